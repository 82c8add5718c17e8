package gtfs

import (
	"context"
	"fmt"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/places"
)

// stopPageSize matches the page size of the other place providers.
const stopPageSize = 20

// ErrFeedNotLoaded is returned by searches issued before the first feed load.
// It wraps places.ErrProviderUnavailable.
var ErrFeedNotLoaded = fmt.Errorf("transit feed not loaded: %w", places.ErrProviderUnavailable)

// Categories are the place types answered from the GTFS feed.
var Categories = []string{
	"transit_station", "bus_station", "train_station", "subway_station", "light_rail_station",
}

// StopProvider answers transit category searches and gtfs: detail lookups
// from the in-memory StopStore. It satisfies places.Backend.
type StopProvider struct {
	store *StopStore
}

func NewStopProvider(store *StopStore) *StopProvider {
	return &StopProvider{store: store}
}

// Route registers the provider for the transit categories and its id prefix.
func (p *StopProvider) Route() places.Route {
	return places.Route{Categories: Categories, IDPrefix: IDPrefix, Backend: p}
}

func (p *StopProvider) Search(_ context.Context, center geo.Coordinate, radiusMeters float64, _ string) (places.Status, []models.RawPlace, error) {
	if _, ok := p.store.Loaded(); !ok {
		return "", nil, ErrFeedNotLoaded
	}
	stops := p.store.Nearby(center, radiusMeters, stopPageSize)
	if len(stops) == 0 {
		return places.StatusZeroResults, nil, nil
	}
	raw := make([]models.RawPlace, len(stops))
	for i, s := range stops {
		raw[i] = s.raw()
	}
	return places.StatusOK, raw, nil
}

func (p *StopProvider) Details(_ context.Context, placeID string, _ []string) (places.Status, models.RawPlace, error) {
	stop, ok := p.store.Get(placeID)
	if !ok {
		return places.StatusNotFound, models.RawPlace{}, nil
	}
	return places.StatusOK, stop.raw(), nil
}
