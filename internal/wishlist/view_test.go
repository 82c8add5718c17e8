package wishlist

import (
	"context"
	"reflect"
	"testing"
	"time"

	"explorer.placeexplorer.org/internal/metrics"
)

func nextUpdate(t *testing.T, v *View) []string {
	t.Helper()
	select {
	case ids := <-v.Updates():
		return ids
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a view update")
		return nil
	}
}

func TestViewsStayInSync(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		t.Run(name, func(t *testing.T) {
			// Two stores over one backend behave like two windows of the app.
			left := NewStore(kv, nil, testLogger())
			right := NewStore(kv, nil, testLogger())
			left.Add(ctx, "seed")

			sidebar, err := NewView(ctx, left)
			if err != nil {
				t.Fatalf("NewView: %v", err)
			}
			defer sidebar.Close()
			page, err := NewView(ctx, right)
			if err != nil {
				t.Fatalf("NewView: %v", err)
			}
			defer page.Close()

			if !reflect.DeepEqual(sidebar.IDs(), []string{"seed"}) {
				t.Errorf("sidebar did not read the set on open: %v", sidebar.IDs())
			}

			right.Add(ctx, "new")
			if got := nextUpdate(t, sidebar); !reflect.DeepEqual(got, []string{"seed", "new"}) {
				t.Errorf("sidebar update = %v", got)
			}
			if !sidebar.Contains("new") || sidebar.Len() != 2 {
				t.Errorf("sidebar state not refreshed: %v", sidebar.IDs())
			}
			nextUpdate(t, page)

			left.Remove(ctx, "seed")
			if got := nextUpdate(t, page); !reflect.DeepEqual(got, []string{"new"}) {
				t.Errorf("page update = %v", got)
			}
		})
	}
}

func TestViewClose(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, &stubFetcher{}, testLogger())

	before, _ := metrics.GaugeValue(metrics.ActiveViews)
	v, err := NewView(ctx, store)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	during, _ := metrics.GaugeValue(metrics.ActiveViews)
	if during != before+1 {
		t.Errorf("expected active views to grow, got %v -> %v", before, during)
	}

	store.Add(ctx, "a")
	if results := v.Hydrate(ctx); !results["a"].OK() {
		t.Errorf("expected a hydrated, got %+v", results["a"])
	}

	v.Close()
	v.Close()

	after, _ := metrics.GaugeValue(metrics.ActiveViews)
	if after != before {
		t.Errorf("expected active views to return to %v, got %v", before, after)
	}
	if n := kv.watchers.count(DefaultKey); n != 0 {
		t.Errorf("expected subscription released, %d watchers remain", n)
	}

	// Updates is drained and closed; further writes must not block or panic.
	for range v.Updates() {
	}
	store.Add(ctx, "b")
}
