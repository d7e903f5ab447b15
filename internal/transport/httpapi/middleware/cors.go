package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// corsMaxAge is how long browsers may cache a preflight answer, in seconds
const corsMaxAge = 600

// CORS lets the back-office UI call the API from its own origin. Exports are
// downloaded through fetch, so Content-Disposition must be readable, and
// EventSource reconnects send Last-Event-ID.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "Retry-After", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	})
}
