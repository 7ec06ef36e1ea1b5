package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"quizgen-backend/internal/config"
	"quizgen-backend/internal/database"
	"quizgen-backend/internal/handlers"
	"quizgen-backend/internal/jobworker"
	"quizgen-backend/internal/metrics"
	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/repository"
	"quizgen-backend/internal/router"
	"quizgen-backend/internal/services"
	"quizgen-backend/internal/websocket"
	"quizgen-backend/migrations"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, port)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides PORT)")
	return cmd
}

func runServer(ctx context.Context, portFlag string) error {
	log.Println("🚀 Starting QuizGen Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	policy, err := cfg.ScoringPolicy()
	if err != nil {
		return err
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		return fmt.Errorf("postgres connection failed: %w", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, migrations.FS); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	questionSetRepo := repository.NewQuestionSetRepo(pool)
	accessTokenRepo := repository.NewAccessTokenRepo(pool)
	attemptRepo := repository.NewAttemptRepo(pool)
	participantRepo := repository.NewParticipantRepo(pool)

	// ──── Step 5: Select Job Worker ────
	var worker services.JobSubmitter
	switch cfg.WorkerMode {
	case config.WorkerModeHTTP:
		worker = jobworker.NewHTTPClient(cfg.WorkerURL, cfg.DispatchTimeout)
		log.Printf("✓ Job worker: HTTP %s", cfg.WorkerURL)
	default:
		worker = jobworker.NewRedisQueue(redisClients.Queue, cfg.JobQueue, 0)
		log.Printf("✓ Job worker: redis queue %s", cfg.JobQueue)
	}

	// ──── Initialize Services ────
	m := metrics.New(prometheus.DefaultRegisterer)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	publisher := websocket.NewPublisher(redisClients.Queue)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)

	generationService := services.NewGenerationService(
		questionSetRepo,
		worker,
		services.URLLocator{BaseURL: cfg.PublicURL},
		publisher,
		m,
		services.GenerationConfig{
			PublicURL:       cfg.PublicURL,
			DispatchTimeout: cfg.DispatchTimeout,
			MaxQuestions:    cfg.MaxQuestions,
		},
	)
	accessService := services.NewAccessService(
		questionSetRepo,
		accessTokenRepo,
		participantRepo,
		emailService,
		m,
		services.AccessConfig{
			FrontendURL:        cfg.FrontendURL,
			DefaultTTL:         cfg.TokenTTL,
			SecondsPerQuestion: cfg.SecondsPerQuestion,
		},
	)
	attemptService := services.NewAttemptService(
		accessService,
		questionSetRepo,
		accessTokenRepo,
		attemptRepo,
		participantRepo,
		m,
		services.AttemptConfig{
			SecondsPerQuestion: cfg.SecondsPerQuestion,
			Policy:             policy,
		},
	)

	// ──── Initialize Handlers ────
	generationHandler := handlers.NewGenerationHandler(generationService)
	accessHandler := handlers.NewAccessHandler(accessService)
	attemptHandler := handlers.NewAttemptHandler(attemptService)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth)
	defer wsHub.Close()
	log.Println("✓ WebSocket hub started")

	// Attempt routes are public; 30 req/min per IP
	attemptLimiter := middleware.NewRateLimiter(30, time.Minute)
	defer attemptLimiter.Stop()

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		attemptLimiter,
		cfg.WebhookSecret,
		generationHandler,
		accessHandler,
		attemptHandler,
		wsHub,
		promhttp.Handler(),
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("✓ QuizGen Backend ready on http://localhost:%s", cfg.Port)
		log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
		log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
