package app

import (
	"context"
	"net/http"
	"time"

	"explorer.placeexplorer.org/internal/middleware"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
)

// Routes registers every endpoint and wraps the router in the middleware
// chain. From the outside in: security headers, CORS, Sentry, request id.
// ctx stops the background refresh of the cached /metrics exposition.
func (app *Application) Routes(ctx context.Context) http.Handler {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodPost, "/v1/search", app.searchHandler)
	router.HandlerFunc(http.MethodPost, "/v1/rank", app.rankHandler)

	router.HandlerFunc(http.MethodGet, "/v1/wishlist", app.listWishlistHandler)
	router.HandlerFunc(http.MethodGet, "/v1/wishlist/details", app.wishlistDetailsHandler)
	router.HandlerFunc(http.MethodGet, "/v1/wishlist/events", app.wishlistEventsHandler)
	router.HandlerFunc(http.MethodPut, "/v1/wishlist/:placeID", app.addWishlistHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/wishlist/:placeID", app.removeWishlistHandler)
	router.HandlerFunc(http.MethodPost, "/v1/wishlist/:placeID/toggle", app.toggleWishlistHandler)

	router.Handler(http.MethodGet, "/metrics", middleware.NewCachedPromHandler(ctx, prometheus.DefaultGatherer, 10*time.Second))

	handler := middleware.RequestID(router)
	handler = middleware.SentryMiddleware(handler)
	handler = middleware.CORS(app.allowedOrigins)(handler)
	return middleware.SecurityHeaders(handler)
}
