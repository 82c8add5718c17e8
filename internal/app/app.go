package app

import (
	"context"
	"log/slog"
	"net/http"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/discovery"
	"explorer.placeexplorer.org/internal/gtfs"
	"explorer.placeexplorer.org/internal/location"
	"explorer.placeexplorer.org/internal/places"
	"explorer.placeexplorer.org/internal/wishlist"
)

// Application holds every service the HTTP handlers need. It is built once
// in main by New and torn down with Close.
//
// GtfsService is nil when no transit feed is configured. Positioner backs
// searches whose request carries neither a position nor a client error; it
// may be nil, in which case those searches fail as location unavailable.
type Application struct {
	ConfigService *config.ConfigService
	GtfsService   *gtfs.GtfsService
	Gateway       *places.Gateway
	Pipeline      *discovery.Pipeline
	Wishlist      *wishlist.Store
	Positioner    location.Positioner
	Logger        *slog.Logger
	Version       string

	closers []func()
}

// New creates and wires all dependencies for the Application from the
// current settings of cfg. Network resources (Elasticsearch index, Postgres
// pool) are opened here, so ctx bounds startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, client *http.Client, version string) (*Application, error) {
	settings := cfg.GetSettings()

	app := &Application{
		ConfigService: config.NewConfigService(logger, client, cfg),
		Logger:        logger,
		Version:       version,
	}

	backend, err := app.placeBackend(ctx, settings, client)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Gateway = places.NewGateway(backend, backend, settings.Provider.MaxRadiusMeters, logger)
	app.Pipeline = discovery.NewPipeline(app.Gateway, logger)

	kv, err := app.wishlistKV(ctx, settings)
	if err != nil {
		app.Close()
		return nil, err
	}
	fields := settings.Hydration.Fields
	if len(fields) == 0 {
		fields = places.DefaultDetailFields
	}
	app.Wishlist = wishlist.NewStore(kv, app.Gateway, logger,
		wishlist.WithKey(settings.Wishlist.Key),
		wishlist.WithConcurrency(settings.Hydration.Concurrency),
		wishlist.WithFields(fields),
	)

	app.Positioner = fallbackPositioner(settings, client)

	logger.Info("Application wired",
		"provider", settings.Provider.Kind,
		"transit", app.GtfsService != nil,
		"wishlist_backend", settings.Wishlist.Backend)
	return app, nil
}

// Close releases connections opened by New, most recent first.
func (app *Application) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

// ready reports whether searches can be answered. A GTFS-only deployment is
// not ready until its feed has been indexed once.
func (app *Application) ready() bool {
	if app.Gateway == nil || app.Pipeline == nil || app.Wishlist == nil {
		return false
	}
	if app.providerKind() == config.ProviderGTFS {
		if app.GtfsService == nil {
			return false
		}
		_, loaded := app.GtfsService.Store.Loaded()
		return loaded
	}
	return true
}

func (app *Application) providerKind() string {
	if app.ConfigService == nil || app.ConfigService.Config == nil {
		return ""
	}
	return app.ConfigService.Config.GetSettings().Provider.Kind
}

func (app *Application) allowedOrigins() []string {
	if app.ConfigService == nil || app.ConfigService.Config == nil {
		return []string{config.DefaultUIOrigin}
	}
	return app.ConfigService.Config.GetSettings().AllowedOrigins
}
