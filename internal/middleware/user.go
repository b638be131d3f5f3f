package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rpattn/cagetrack/internal/auth"
)

// UserMiddleware places the X-User-ID header in the request context. A malformed header is rejected with 400.
func UserMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := auth.ParseUserID(r.Header.Get(auth.UserHeader))
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		if id != nil {
			r = r.WithContext(auth.ContextWithUserID(r.Context(), *id))
		}
		next.ServeHTTP(w, r)
	})
}
