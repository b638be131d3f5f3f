package middleware

import (
	"net/http"

	"github.com/rpattn/cagetrack/internal/hospitalloader"
	"github.com/rpattn/cagetrack/internal/repository"
)

// DataLoaderMiddleware attaches a fresh hospital loader to each request context
func DataLoaderMiddleware(repo repository.HospitalRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := hospitalloader.New(repo)
			ctx := hospitalloader.WithLoader(r.Context(), loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
