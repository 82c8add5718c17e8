//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"explorer.placeexplorer.org/internal/places"
	"explorer.placeexplorer.org/internal/wishlist"
	"github.com/google/uuid"
)

func newPostgresStore(t *testing.T, ctx context.Context, key string) *wishlist.Store {
	t.Helper()

	pool, err := wishlist.NewPool(ctx, settings.Wishlist.DatabaseURL, testLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	kv, err := wishlist.NewPostgresKV(ctx, pool, testLogger())
	if err != nil {
		t.Fatalf("NewPostgresKV: %v", err)
	}
	t.Cleanup(kv.Close)

	gateway := places.NewGateway(nil, nil, 0, testLogger())
	return wishlist.NewStore(kv, gateway, testLogger(), wishlist.WithKey(key))
}

// TestPostgresWishlistAcrossProcesses uses two pools, standing in for two
// processes, and checks that a write through one reaches a view on the other.
func TestPostgresWishlistAcrossProcesses(t *testing.T) {
	if settings.Wishlist.DatabaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	key := "wishList-it-" + uuid.NewString()
	writer := newPostgresStore(t, ctx, key)
	reader := newPostgresStore(t, ctx, key)

	if ids := reader.Load(ctx); len(ids) != 0 {
		t.Fatalf("expected a fresh key, got %v", ids)
	}

	view, err := wishlist.NewView(ctx, reader)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	defer view.Close()

	if _, err := writer.Add(ctx, "ChIJ-integration"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	select {
	case ids := <-view.Updates():
		if len(ids) != 1 || ids[0] != "ChIJ-integration" {
			t.Errorf("unexpected ids %v", ids)
		}
	case <-ctx.Done():
		t.Fatal("view on the second pool was never notified")
	}

	if !reader.Contains(ctx, "ChIJ-integration") {
		t.Error("reader does not see the persisted id")
	}

	if changed, err := writer.Remove(ctx, "ChIJ-integration"); err != nil || !changed {
		t.Fatalf("Remove: %v %v", changed, err)
	}
	select {
	case ids := <-view.Updates():
		if len(ids) != 0 {
			t.Errorf("expected an empty set, got %v", ids)
		}
	case <-ctx.Done():
		t.Fatal("removal was never announced")
	}
}
