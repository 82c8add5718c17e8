package places

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/olivere/elastic/v7"
)

const riversideSource = `{"place_id":"es-riverside","name":"Riverside Diner","vicinity":"12 Water St",` +
	`"location":{"lat":40.009,"lon":-75.0},"categories":["restaurant"],"rating":4.4,"user_ratings_total":812}`

// fakeElastic answers the handful of endpoints the provider uses.
type fakeElastic struct {
	mu          sync.Mutex
	indexExists bool
	searchBody  string
	bulkBody    string
	requests    []string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/places/_search":
		f.searchBody = string(body)
		w.Write([]byte(`{"took":1,"hits":{"total":{"value":1,"relation":"eq"},"hits":[` +
			`{"_index":"places","_id":"es-riverside","_source":` + riversideSource + `},` +
			`{"_index":"places","_id":"broken","_source":"not an object"}]}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/places/_doc/es-riverside":
		w.Write([]byte(`{"_index":"places","_id":"es-riverside","found":true,"_source":` + riversideSource + `}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/places/_doc/"):
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"_index":"places","_id":"missing","found":false}`))
	case r.Method == http.MethodHead && r.URL.Path == "/places":
		if !f.indexExists {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/places":
		f.indexExists = true
		w.Write([]byte(`{"acknowledged":true,"shards_acknowledged":true,"index":"places"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/_bulk":
		f.bulkBody = string(body)
		w.Write([]byte(`{"took":3,"errors":false,"items":[{"index":{"_index":"places","_id":"es-riverside","status":201}}]}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"unexpected","reason":"unexpected request"},"status":400}`))
	}
}

func newFakeElasticProvider(t *testing.T, fake *fakeElastic) *ElasticProvider {
	t.Helper()
	ts := httptest.NewServer(fake)
	t.Cleanup(ts.Close)

	client, err := NewElasticClient(ts.URL, elastic.SetHealthcheck(false))
	if err != nil {
		t.Fatalf("Failed to create elastic client: %v", err)
	}
	return NewElasticProvider(client, "places", testLogger())
}

func TestElasticProvider_Search(t *testing.T) {
	fake := &fakeElastic{}
	provider := newFakeElasticProvider(t, fake)

	status, raw, err := provider.Search(context.Background(), origin, 2500, "restaurant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("expected OK, got %s", status)
	}
	if len(raw) != 1 {
		t.Fatalf("expected the unreadable hit to be skipped, got %d places", len(raw))
	}
	if raw[0].ID != "es-riverside" || raw[0].Latitude == nil || *raw[0].Latitude != 40.009 {
		t.Errorf("unexpected place %+v", raw[0])
	}

	for _, want := range []string{`"geo_distance"`, `"2500m"`, `"categories":"restaurant"`, `"size":20`} {
		if !strings.Contains(fake.searchBody, want) {
			t.Errorf("search body missing %s: %s", want, fake.searchBody)
		}
	}
}

func TestElasticProvider_Details(t *testing.T) {
	provider := newFakeElasticProvider(t, &fakeElastic{})
	gateway := NewGateway(provider, provider, 50000, testLogger())

	place, err := gateway.FetchDetails(context.Background(), "es-riverside", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if place.Name != "Riverside Diner" || place.RatingCount == nil || *place.RatingCount != 812 {
		t.Errorf("unexpected place %+v", place)
	}

	status, _, err := provider.Details(context.Background(), "missing", nil)
	if err != nil {
		t.Fatalf("expected not-found to be a status, got %v", err)
	}
	if status != StatusNotFound {
		t.Errorf("expected NOT_FOUND, got %s", status)
	}

	if _, err := gateway.FetchDetails(context.Background(), "missing", nil); !errors.Is(err, ErrDetailsFailed) {
		t.Errorf("expected ErrDetailsFailed, got %v", err)
	}
}

func TestElasticProvider_EnsureIndexAndBulk(t *testing.T) {
	fake := &fakeElastic{}
	provider := newFakeElasticProvider(t, fake)
	ctx := context.Background()

	if err := provider.EnsureIndex(ctx); err != nil {
		t.Fatalf("EnsureIndex: %v", err)
	}
	if err := provider.EnsureIndex(ctx); err != nil {
		t.Fatalf("second EnsureIndex: %v", err)
	}

	creates := 0
	for _, r := range fake.requests {
		if r == "PUT /places" {
			creates++
		}
	}
	if creates != 1 {
		t.Errorf("expected the index to be created once, got %d", creates)
	}

	docs, err := LoadSeedFile("../../testdata/places_seed.json")
	if err != nil {
		t.Fatalf("LoadSeedFile: %v", err)
	}
	if len(docs) == 0 {
		t.Fatal("expected seed documents")
	}
	if err := provider.IndexPlaces(ctx, docs); err != nil {
		t.Fatalf("IndexPlaces: %v", err)
	}
	if !strings.Contains(fake.bulkBody, docs[0].PlaceID) {
		t.Errorf("bulk body does not mention %s", docs[0].PlaceID)
	}

	if err := provider.IndexPlaces(ctx, nil); err != nil {
		t.Errorf("expected empty bulk to be a no-op, got %v", err)
	}
}
