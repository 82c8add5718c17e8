package app

import (
	"context"
	"fmt"
	"net/http"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/gtfs"
	"explorer.placeexplorer.org/internal/location"
	"explorer.placeexplorer.org/internal/places"
	"explorer.placeexplorer.org/internal/wishlist"
	"github.com/olivere/elastic/v7"
)

// placeBackend builds the primary provider selected by settings.Provider.Kind
// and, when a transit feed is configured, routes transit categories and
// "gtfs:" ids to the stop index.
func (app *Application) placeBackend(ctx context.Context, s config.Settings, client *http.Client) (places.Backend, error) {
	var routes []places.Route
	if s.Transit.FeedURL != "" {
		app.GtfsService = gtfs.NewGtfsService(gtfs.NewStopStore(), config.NewBackoffStore(), app.Logger, client)
		routes = append(routes, app.GtfsService.Provider().Route())
	}

	var primary places.Backend
	switch s.Provider.Kind {
	case config.ProviderGoogle:
		provider, err := places.NewGoogleProvider(client, s.Provider.BaseURL, s.Provider.APIKey)
		if err != nil {
			return nil, err
		}
		primary = provider

	case config.ProviderElastic:
		esClient, err := places.NewElasticClient(s.Elastic.URL, elastic.SetHttpClient(client))
		if err != nil {
			return nil, err
		}
		provider := places.NewElasticProvider(esClient, s.Elastic.Index, app.Logger)
		if err := provider.EnsureIndex(ctx); err != nil {
			return nil, err
		}
		if s.Elastic.SeedFile != "" {
			docs, err := places.LoadSeedFile(s.Elastic.SeedFile)
			if err != nil {
				return nil, err
			}
			if err := provider.IndexPlaces(ctx, docs); err != nil {
				return nil, err
			}
			app.Logger.Info("Seeded place index", "index", s.Elastic.Index, "documents", len(docs))
		}
		app.closers = append(app.closers, esClient.Stop)
		primary = provider

	case config.ProviderGTFS:
		if app.GtfsService == nil {
			return nil, fmt.Errorf("provider %q requires transit.feed_url", s.Provider.Kind)
		}
		primary = app.GtfsService.Provider()

	default:
		return nil, fmt.Errorf("unknown provider kind %q", s.Provider.Kind)
	}

	return places.NewRouter(primary, routes...), nil
}

// wishlistKV opens the persistence backend for the wishlist.
func (app *Application) wishlistKV(ctx context.Context, s config.Settings) (wishlist.KeyValueStore, error) {
	switch s.Wishlist.Backend {
	case config.BackendMemory:
		return wishlist.NewMemoryKV(), nil

	case config.BackendFile:
		return wishlist.NewFileKV(s.Wishlist.DataDir, app.Logger)

	case config.BackendPostgres:
		pool, err := wishlist.NewPool(ctx, s.Wishlist.DatabaseURL, app.Logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, pool.Close)

		kv, err := wishlist.NewPostgresKV(ctx, pool, app.Logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, kv.Close)
		return kv, nil

	default:
		return nil, fmt.Errorf("unknown wishlist backend %q", s.Wishlist.Backend)
	}
}

// fallbackPositioner resolves the origin for searches that arrive without a
// position: the configured fallback coordinate first, then the IP lookup.
// It returns nil when neither is configured.
func fallbackPositioner(s config.Settings, client *http.Client) location.Positioner {
	var chain location.Chain
	if s.Location.Fallback != nil {
		chain = append(chain, location.Fixed(*s.Location.Fallback))
	}
	if s.Location.IPLookupURL != "" {
		chain = append(chain, location.NewIPLocator(client, s.Location.IPLookupURL))
	}
	if len(chain) == 0 {
		return nil
	}
	return chain
}
