package app

import (
	"context"
	"time"

	"explorer.placeexplorer.org/internal/metrics"
)

// StartMetricsCollection samples gauges that no request path keeps current:
// the persisted wishlist size (changed by other processes sharing the
// backend) and the age of the indexed GTFS feed. It stops when ctx is done.
func (app *Application) StartMetricsCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				app.collectMetrics(ctx)
			}
		}
	}()
}

func (app *Application) collectMetrics(ctx context.Context) {
	if app.Wishlist != nil {
		// Load records explorer_wishlist_size.
		app.Wishlist.Load(ctx)
	}

	if app.GtfsService != nil {
		if loadedAt, ok := app.GtfsService.Store.Loaded(); ok {
			metrics.TransitFeedAge.Set(time.Since(loadedAt).Seconds())
		}
	}
}
