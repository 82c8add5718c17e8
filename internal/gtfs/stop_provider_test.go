package gtfs

import (
	"context"
	"errors"
	"testing"

	"explorer.placeexplorer.org/internal/discovery"
	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/location"
	"explorer.placeexplorer.org/internal/places"
	remoteGtfs "github.com/jamespfennell/gtfs"
)

var origin = geo.Coordinate{Latitude: 40, Longitude: -75}

func loadedProvider(t *testing.T) *StopProvider {
	t.Helper()

	static, err := remoteGtfs.ParseStatic(readFixture(t, "gtfs.zip"), remoteGtfs.ParseStaticOptions{})
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	store := NewStopStore()
	store.Set(static)
	return NewStopProvider(store)
}

func TestStopProviderSearch(t *testing.T) {
	provider := loadedProvider(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		radius     float64
		wantStatus places.Status
		wantIDs    []string
	}{
		{"station only", 1000, places.StatusOK, []string{"gtfs:STA1"}},
		{"closest first", 5000, places.StatusOK, []string{"gtfs:STA1", "gtfs:S2"}},
		{"everything", 60000, places.StatusOK, []string{"gtfs:STA1", "gtfs:S2", "gtfs:S3"}},
		{"nothing in range", 100, places.StatusZeroResults, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, raw, err := provider.Search(ctx, origin, tt.radius, "bus_station")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.wantStatus {
				t.Fatalf("expected %s, got %s", tt.wantStatus, status)
			}
			if len(raw) != len(tt.wantIDs) {
				t.Fatalf("expected %d places, got %d", len(tt.wantIDs), len(raw))
			}
			for i, id := range tt.wantIDs {
				if raw[i].ID != id {
					t.Errorf("position %d: expected %s, got %s", i, id, raw[i].ID)
				}
			}
		})
	}

	t.Run("child stops collapse into the station", func(t *testing.T) {
		for _, id := range []string{"gtfs:P1", "gtfs:E1"} {
			if status, _, _ := provider.Details(ctx, id, nil); status != places.StatusNotFound {
				t.Errorf("%s: expected NOT_FOUND, got %s", id, status)
			}
		}
	})
}

func TestStopProviderDetails(t *testing.T) {
	provider := loadedProvider(t)

	status, raw, err := provider.Details(context.Background(), "gtfs:S2", nil)
	if err != nil || status != places.StatusOK {
		t.Fatalf("unexpected result %s %v", status, err)
	}
	summary, ok := raw.Summary()
	if !ok {
		t.Fatal("expected a valid summary")
	}
	if summary.Name != "Water St & Ridge Rd" || summary.Vicinity != "Northbound" {
		t.Errorf("unexpected summary %+v", summary)
	}

	_, raw, _ = provider.Details(context.Background(), "gtfs:STA1", nil)
	if raw.Vicinity != "Main St & 1st Ave" {
		t.Errorf("unexpected station vicinity %q", raw.Vicinity)
	}
}

func TestStopProviderThroughGateway(t *testing.T) {
	provider := loadedProvider(t)
	primary := &places.StubBackend{}
	gateway := places.NewGateway(places.NewRouter(primary, provider.Route()), places.NewRouter(primary, provider.Route()), 50000, testLogger())

	found, err := gateway.FindNearby(context.Background(), origin, 3000, "transit_station")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(found) != 2 || primary.SearchCalls != 0 {
		t.Errorf("expected 2 transit places and no primary calls, got %d / %d", len(found), primary.SearchCalls)
	}

	if _, err := gateway.FetchDetails(context.Background(), "gtfs:STA1", nil); err != nil {
		t.Errorf("unexpected details error: %v", err)
	}
}

func TestStopProviderNotLoaded(t *testing.T) {
	provider := NewStopProvider(NewStopStore())
	ctx := context.Background()

	_, _, err := provider.Search(ctx, origin, 1000, "transit_station")
	if !errors.Is(err, ErrFeedNotLoaded) || !errors.Is(err, places.ErrProviderUnavailable) {
		t.Errorf("expected ErrFeedNotLoaded wrapping ErrProviderUnavailable, got %v", err)
	}

	t.Run("search reports the provider as unavailable", func(t *testing.T) {
		primary := &places.StubBackend{}
		router := places.NewRouter(primary, provider.Route())
		pipeline := discovery.NewPipeline(places.NewGateway(router, router, 50000, testLogger()), testLogger())
		locator := location.NewAdapter(location.Fixed(origin), testLogger())

		_, err := pipeline.Submit(ctx, locator, discovery.PreferencesFromKilometers("transit_station", 0, 5))
		if reason := discovery.ReasonOf(err); reason != discovery.ReasonProviderUnavailable {
			t.Errorf("expected reason %s, got %s (%v)", discovery.ReasonProviderUnavailable, reason, err)
		}
		if errors.Is(err, places.ErrSearchFailed) {
			t.Errorf("an unloaded feed must not read as a failed search: %v", err)
		}
		if primary.SearchCalls != 0 {
			t.Errorf("expected no calls to the primary provider, got %d", primary.SearchCalls)
		}
	})
}
