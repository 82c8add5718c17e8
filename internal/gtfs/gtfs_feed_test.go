package gtfs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/metrics"
)

func TestLoadFeed(t *testing.T) {
	t.Run("Success Response", func(t *testing.T) {
		server := setupGtfsServer(t, "gtfs.zip", nil)
		store := NewStopStore()

		if err := loadFeed(context.Background(), server.Client(), server.URL, store, testLogger(), 1); err != nil {
			t.Fatalf("loadFeed failed: %v", err)
		}
		if got := store.Len(); got != 3 {
			t.Errorf("expected 3 searchable stops, got %d", got)
		}
		if _, ok := store.Loaded(); !ok {
			t.Error("expected store to be marked loaded")
		}

		value, err := metrics.GaugeValue(metrics.TransitStopsLoaded.WithLabelValues(server.URL))
		if err != nil {
			t.Fatalf("read gauge: %v", err)
		}
		if value != 3 {
			t.Errorf("expected transit gauge 3, got %v", value)
		}
	})

	t.Run("Local File", func(t *testing.T) {
		store := NewStopStore()
		if err := loadFeed(context.Background(), http.DefaultClient, getFixturePath(t, "gtfs.zip"), store, testLogger(), 1); err != nil {
			t.Fatalf("loadFeed failed: %v", err)
		}
		if store.Len() != 3 {
			t.Errorf("expected 3 stops, got %d", store.Len())
		}
	})

	t.Run("Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		store := NewStopStore()
		if err := loadFeed(context.Background(), server.Client(), server.URL, store, testLogger(), 1); err == nil {
			t.Fatal("expected an error for a 404 feed")
		}
		if _, ok := store.Loaded(); ok {
			t.Error("store must stay unloaded after a failed download")
		}
	})

	t.Run("Invalid Bundle", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not a zip"))
		}))
		defer server.Close()

		if err := loadFeed(context.Background(), server.Client(), server.URL, NewStopStore(), testLogger(), 1); err == nil {
			t.Fatal("expected a parse error")
		}
	})
}

func TestRefreshFeed(t *testing.T) {
	t.Run("reloads on tick", func(t *testing.T) {
		var hits atomic.Int32
		server := setupGtfsServer(t, "gtfs.zip", &hits)
		store := NewStopStore()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			refreshFeed(ctx, server.Client(), server.URL, store, config.NewBackoffStore(), testLogger(), 10*time.Millisecond, 1)
			close(done)
		}()

		deadline := time.Now().Add(2 * time.Second)
		for store.Len() == 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		cancel()
		<-done

		if store.Len() != 3 {
			t.Errorf("expected the refresh to index 3 stops, got %d", store.Len())
		}
		if hits.Load() == 0 {
			t.Error("expected at least one download")
		}
	})

	t.Run("backs off after failure", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		backoff := config.NewBackoffStore()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			refreshFeed(ctx, server.Client(), server.URL, NewStopStore(), backoff, testLogger(), 10*time.Millisecond, 1)
			close(done)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()
		<-done

		if _, ok := backoff.NextRetryAt(server.URL); !ok {
			t.Fatal("expected a backoff entry after a failed refresh")
		}
		// The first backoff window is at least a second, so only one attempt fits.
		if got := hits.Load(); got != 1 {
			t.Errorf("expected 1 download attempt during backoff, got %d", got)
		}
	})
}

func TestFeedLabel(t *testing.T) {
	if got := feedLabel("https://feeds.example.org/gtfs.zip?api_key=secret"); got != "https://feeds.example.org/gtfs.zip" {
		t.Errorf("unexpected label %q", got)
	}
}
