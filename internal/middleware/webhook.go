package middleware

import (
	"crypto/subtle"
	"net/http"
)

const WebhookSecretHeader = "X-Webhook-Secret"

// WebhookSecret rejects callbacks that do not present the shared secret. An
// empty secret disables the check.
func WebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(WebhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid webhook secret", r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
