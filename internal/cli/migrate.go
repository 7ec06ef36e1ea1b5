package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"quizgen-backend/internal/config"
	"quizgen-backend/internal/database"
	"quizgen-backend/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), config.DatabaseURL())
		},
	}
}

func runMigrations(ctx context.Context, databaseURL string) error {
	pool, err := database.NewPostgresPool(databaseURL, 2)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		return err
	}
	log.Println("✓ Database migrations applied")
	return nil
}
