package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APITokenMiddleware protects the API with a static bearer token. When no
// token is configured the engine is assumed to sit behind a private network
// and every request passes.
func APITokenMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			got := strings.TrimPrefix(header, "Bearer ")
			if !strings.HasPrefix(header, "Bearer ") ||
				subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
