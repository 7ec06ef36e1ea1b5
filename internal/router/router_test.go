package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizgen-backend/internal/handlers"
	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/repository/memory"
	"quizgen-backend/internal/services"
	"quizgen-backend/internal/websocket"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.New()
	sets := store.QuestionSets()
	gen := services.NewGenerationService(sets, nil, services.URLLocator{}, nil, nil, services.GenerationConfig{})
	access := services.NewAccessService(sets, store.AccessTokens(), store.Participants(), nil, nil, services.AccessConfig{})
	attempts := services.NewAttemptService(access, sets, store.AccessTokens(), store.Attempts(), store.Participants(), nil, services.AttemptConfig{})

	jwtAuth := middleware.NewJWTAuth("router-test-secret")
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# metrics"))
	})

	return New(
		jwtAuth,
		limiter,
		"hook-secret",
		handlers.NewGenerationHandler(gen),
		handlers.NewAccessHandler(access),
		handlers.NewAttemptHandler(attempts),
		websocket.NewHub(nil, jwtAuth),
		metrics,
		"http://app.test",
	)
}

func TestRouter(t *testing.T) {
	h := newTestRouter(t)

	token, err := middleware.NewJWTAuth("router-test-secret").GenerateAccessToken(uuid.New(), time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	bearer := map[string]string{"Authorization": "Bearer " + token}
	unknownSet := "/api/v1/question-sets/" + uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		status int
	}{
		{"health", http.MethodGet, "/health", nil, http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", nil, http.StatusOK},
		{"owner route needs a token", http.MethodGet, "/api/v1/question-sets/abc/status", nil, http.StatusUnauthorized},
		{"list needs a token", http.MethodGet, "/api/v1/question-sets", nil, http.StatusUnauthorized},
		{"list sets", http.MethodGet, "/api/v1/question-sets", bearer, http.StatusOK},
		{"delete unknown set", http.MethodDelete, unknownSet, bearer, http.StatusNotFound},
		{"export unknown set", http.MethodGet, unknownSet + "/results/export", bearer, http.StatusNotFound},
		{"webhook needs the secret", http.MethodPost, "/api/v1/webhooks/generation", nil, http.StatusUnauthorized},
		{"webhook with secret reaches handler", http.MethodPost, "/api/v1/webhooks/generation",
			map[string]string{middleware.WebhookSecretHeader: "hook-secret"}, http.StatusBadRequest},
		{"attempts are public", http.MethodGet, "/api/v1/attempts/unknown", nil, http.StatusNotFound},
		{"websocket needs a token", http.MethodGet, "/api/v1/ws", nil, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(""))
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Errorf("expected %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRouter_AttemptRateLimit(t *testing.T) {
	h := newTestRouter(t)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/attempts/unknown", nil)
		req.RemoteAddr = "203.0.113.7:5000"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected the third request to be limited, got %d", last)
	}
}
