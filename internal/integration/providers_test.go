//go:build integration

package integration

import (
	"context"
	"net/http"
	"testing"
	"time"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/places"
)

// Pioneer Square, Seattle: dense enough that a cafe search never comes back empty.
var liveOrigin = geo.Coordinate{Latitude: 47.6016, Longitude: -122.3343}

func TestGoogleProviderLive(t *testing.T) {
	if settings.Provider.APIKey == "" {
		t.Skip("PLACES_API_KEY not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	provider, err := places.NewGoogleProvider(&http.Client{Timeout: 10 * time.Second}, settings.Provider.BaseURL, settings.Provider.APIKey)
	if err != nil {
		t.Fatalf("NewGoogleProvider: %v", err)
	}
	gateway := places.NewGateway(provider, provider, settings.Provider.MaxRadiusMeters, testLogger())

	summaries, err := gateway.FindNearby(ctx, liveOrigin, 1000, "cafe")
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if len(summaries) == 0 {
		t.Fatal("expected at least one cafe")
	}
	for _, s := range summaries {
		if s.ID == "" || !s.HasLocation() {
			t.Errorf("incomplete summary %+v", s)
		}
	}

	detail, err := gateway.FetchDetails(ctx, summaries[0].ID, nil)
	if err != nil {
		t.Fatalf("FetchDetails: %v", err)
	}
	if detail.ID != summaries[0].ID || detail.Name == "" {
		t.Errorf("unexpected details %+v", detail)
	}
}

func TestElasticProviderLive(t *testing.T) {
	if settings.Elastic.URL == "" {
		t.Skip("ELASTICSEARCH_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := places.NewElasticClient(settings.Elastic.URL)
	if err != nil {
		t.Fatalf("NewElasticClient: %v", err)
	}
	defer client.Stop()

	index := "places-it-" + time.Now().Format("20060102150405")
	provider := places.NewElasticProvider(client, index, testLogger())
	if err := provider.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	defer client.DeleteIndex(index).Do(context.Background())

	docs, err := places.LoadSeedFile("../../testdata/places_seed.json")
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if err := provider.IndexPlaces(ctx, docs); err != nil {
		t.Fatalf("IndexPlaces: %v", err)
	}
	if _, err := client.Refresh(index).Do(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	doc := docs[0]
	if len(doc.Categories) == 0 {
		t.Fatal("seed document without categories")
	}
	gateway := places.NewGateway(provider, provider, 0, testLogger())
	origin := geo.Coordinate{Latitude: doc.Location.Lat, Longitude: doc.Location.Lon}

	summaries, err := gateway.FindNearby(ctx, origin, 500, doc.Categories[0])
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	found := false
	for _, s := range summaries {
		found = found || s.ID == doc.PlaceID
	}
	if !found {
		t.Errorf("seeded place %s not found near its own location", doc.PlaceID)
	}
}
