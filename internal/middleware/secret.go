package middleware

import (
	"crypto/subtle"
	"net/http"
)

// SecretHeaderName carries the shared secret on API requests.
const SecretHeaderName = "X-Lobby-Secret"

// SharedSecret returns middleware that rejects requests whose secret
// header does not match. An empty configured secret disables the check.
func SharedSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(SecretHeaderName)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnauthorized)
					_, _ = w.Write([]byte(`{"error": "unauthorized"}`))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
