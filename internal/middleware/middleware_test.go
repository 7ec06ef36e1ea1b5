package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error.Code
}

func TestJWTAuth_Middleware(t *testing.T) {
	auth := NewJWTAuth("test-secret")
	userID := uuid.New()

	valid, err := auth.GenerateAccessToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	expired, _ := auth.GenerateAccessToken(userID, -time.Minute)
	foreign, _ := NewJWTAuth("other-secret").GenerateAccessToken(userID, time.Hour)

	var seen uuid.UUID
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetUserID(r.Context())
	}))

	tests := map[string]struct {
		header   string
		wantCode int
		wantErr  string
	}{
		"valid token":       {header: "Bearer " + valid, wantCode: http.StatusOK},
		"missing header":    {header: "", wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		"wrong scheme":      {header: "Token " + valid, wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
		"expired token":     {header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantErr: "TOKEN_EXPIRED"},
		"foreign signature": {header: "Bearer " + foreign, wantCode: http.StatusUnauthorized, wantErr: "UNAUTHORIZED"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			seen = uuid.Nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			if rr.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if tc.wantErr != "" {
				if got := errorCode(t, rr); got != tc.wantErr {
					t.Fatalf("expected code %s, got %s", tc.wantErr, got)
				}
				return
			}
			if seen != userID {
				t.Fatalf("expected user %s in context, got %s", userID, seen)
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Stop()
	h := rl.Middleware(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("other clients must not be limited, got %d", rr.Code)
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("expected the caller's request id, got %q", got)
	}
}

func TestWebhookSecret(t *testing.T) {
	h := WebhookSecret("s3cret")(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(WebhookSecretHeader, "s3cret")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with secret, got %d", rr.Code)
	}

	open := WebhookSecret("")(http.HandlerFunc(okHandler))
	rr = httptest.NewRecorder()
	open.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("empty secret must disable the check, got %d", rr.Code)
	}
}
