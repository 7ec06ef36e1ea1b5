package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"quizgen-backend/internal/middleware"
)

// newTokenCmd mints an owner token for local testing against the API.
func newTokenCmd() *cobra.Command {
	var (
		secret string
		userID string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed owner access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or JWT_SECRET is required")
			}
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				id = parsed
			}

			token, err := middleware.NewJWTAuth(secret).GenerateAccessToken(id, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user_id: %s\ntoken:   %s\n", id, token)
			return nil
		},
	}

	cmd.Flags().StringVar(&secret, "secret", envOrDefault("JWT_SECRET", ""), "JWT signing secret")
	cmd.Flags().StringVar(&userID, "user", "", "owner id (random when empty)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
