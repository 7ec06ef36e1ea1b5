package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"quizgen-backend/internal/handlers"
	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth,
	attemptLimiter *middleware.RateLimiter,
	webhookSecret string,
	generationHandler *handlers.GenerationHandler,
	accessHandler *handlers.AccessHandler,
	attemptHandler *handlers.AttemptHandler,
	wsHub *websocket.Hub,
	metricsHandler http.Handler,
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Question Set Routes ────
		r.Route("/question-sets", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", generationHandler.List)
			r.Post("/", generationHandler.Create)
			r.Get("/{id}", generationHandler.Get)
			r.Delete("/{id}", generationHandler.Delete)
			r.Post("/{id}/generate", generationHandler.Generate)
			r.Get("/{id}/status", generationHandler.Status)
			r.Post("/{id}/share", accessHandler.Share)
			r.Get("/{id}/results", attemptHandler.Results)
			r.Get("/{id}/results/export", attemptHandler.Export)
		})

		// ──── Worker Callbacks ────
		r.With(middleware.WebhookSecret(webhookSecret)).
			Post("/webhooks/generation", generationHandler.Webhook)

		// ──── Attempt Routes (public, code-authenticated) ────
		r.Route("/attempts", func(r chi.Router) {
			if attemptLimiter != nil {
				r.Use(attemptLimiter.Middleware)
			}
			r.Get("/{code}", attemptHandler.Start)
			r.Post("/{code}/submit", attemptHandler.Submit)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
