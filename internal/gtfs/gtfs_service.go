package gtfs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"explorer.placeexplorer.org/internal/config"
)

// maxFeedRetries bounds DoWithBackoff attempts for one feed download.
const maxFeedRetries = 3

type GtfsService struct {
	Store        *StopStore
	BackoffStore *config.BackoffStore
	Logger       *slog.Logger
	Client       *http.Client
}

func NewGtfsService(store *StopStore, backoffStore *config.BackoffStore, logger *slog.Logger, client *http.Client) *GtfsService {
	return &GtfsService{
		Store:        store,
		BackoffStore: backoffStore,
		Logger:       logger,
		Client:       client,
	}
}

// LoadFeed downloads and indexes the feed once.
func (gs *GtfsService) LoadFeed(ctx context.Context, feedURL string) error {
	return loadFeed(ctx, gs.Client, feedURL, gs.Store, gs.Logger, maxFeedRetries)
}

func (gs *GtfsService) RefreshFeed(ctx context.Context, feedURL string, interval time.Duration) {
	refreshFeed(ctx, gs.Client, feedURL, gs.Store, gs.BackoffStore, gs.Logger, interval, maxFeedRetries)
}

// Provider exposes the indexed stops as a place backend.
func (gs *GtfsService) Provider() *StopProvider {
	return NewStopProvider(gs.Store)
}
