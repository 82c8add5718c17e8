package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

const corsMaxAgeSeconds = 600

// CORS lets the web UI call the API from another origin. origins is read on
// every request, so a refreshed configuration applies without a restart. An
// entry of "*" trusts every origin. Preflights are answered here and never
// reach the router.
func CORS(origins func() []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool {
			return trusted(origin, origins())
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         corsMaxAgeSeconds,
	})
	return c.Handler
}

func trusted(origin string, allowed []string) bool {
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
