package places

import (
	"context"
	"fmt"
	"strings"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
)

// Backend is a provider that can both search and fetch details.
type Backend interface {
	SearchProvider
	DetailProvider
}

// Route sends a set of categories, and place ids carrying IDPrefix, to one backend.
type Route struct {
	Categories []string
	IDPrefix   string
	Backend    Backend
}

// Router dispatches searches by category and detail lookups by id prefix,
// falling back to a default backend. It lets transit categories be answered
// from a GTFS feed while everything else goes to the primary provider.
type Router struct {
	fallback   Backend
	byCategory map[string]Backend
	prefixes   []Route
}

func NewRouter(fallback Backend, routes ...Route) *Router {
	r := &Router{fallback: fallback, byCategory: make(map[string]Backend)}
	for _, route := range routes {
		if route.Backend == nil {
			continue
		}
		for _, c := range route.Categories {
			r.byCategory[strings.ToLower(c)] = route.Backend
		}
		if route.IDPrefix != "" {
			r.prefixes = append(r.prefixes, route)
		}
	}
	return r
}

func (r *Router) Search(ctx context.Context, center geo.Coordinate, radiusMeters float64, category string) (Status, []models.RawPlace, error) {
	backend, ok := r.byCategory[strings.ToLower(category)]
	if !ok {
		backend = r.fallback
	}
	if backend == nil {
		return "", nil, fmt.Errorf("no backend for category %q: %w", category, ErrProviderUnavailable)
	}
	return backend.Search(ctx, center, radiusMeters, category)
}

func (r *Router) Details(ctx context.Context, placeID string, fields []string) (Status, models.RawPlace, error) {
	for _, route := range r.prefixes {
		if strings.HasPrefix(placeID, route.IDPrefix) {
			return route.Backend.Details(ctx, placeID, fields)
		}
	}
	if r.fallback == nil {
		return StatusNotFound, models.RawPlace{}, nil
	}
	return r.fallback.Details(ctx, placeID, fields)
}
