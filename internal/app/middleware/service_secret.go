package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// HeaderServiceSecret is presented by trusted callers such as the bot.
const HeaderServiceSecret = "X-SERVICE-SECRET"

// RequireServiceSecret rejects requests whose X-SERVICE-SECRET header does not
// match secret with 403 {"error":"unauthorized"}. An empty configured secret
// rejects everything.
func RequireServiceSecret(secret string, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(HeaderServiceSecret)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				log.WarnContext(r.Context(), "service secret mismatch",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("path", r.URL.Path),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
