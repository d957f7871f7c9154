package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/dropDatabas3/bundlekeeper/internal/http/errors"
)

// APIKeyHeader es el header que llevan las llamadas de administración.
const APIKeyHeader = "X-Admin-API-Key"

// RequireAPIKey exige X-Admin-API-Key == key. Con key vacía no se exige nada
// (modo desarrollo).
func RequireAPIKey(key string) Middleware {
	key = strings.TrimSpace(key)
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				errors.WriteError(w, errors.ErrUnauthorized.WithDetail("missing or invalid "+APIKeyHeader))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
