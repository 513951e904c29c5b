// Package middleware holds the HTTP middleware the server stacks in front of
// the API router.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/cors"
)

const corsMaxAge = 10 * time.Minute

// NewCORSHandler allows the listed origins (scheme and host, no trailing
// slash) to call every API method. Content-Disposition is exposed so a
// browser client can name the CSV export download.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-Id"},
		MaxAge:         int(corsMaxAge.Seconds()),
	})
	return c.Handler
}
