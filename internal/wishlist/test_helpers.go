package wishlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"explorer.placeexplorer.org/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errFetch = errors.New("provider exploded")

// stubFetcher returns a summary named after the id unless the id is in fail.
type stubFetcher struct {
	mu       sync.Mutex
	fail     map[string]bool
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	block    chan struct{}
}

func (f *stubFetcher) FetchDetails(ctx context.Context, placeID string, _ []string) (models.PlaceSummary, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return models.PlaceSummary{}, ctx.Err()
		}
	}

	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[placeID]++
	fail := f.fail[placeID]
	f.mu.Unlock()

	if fail {
		return models.PlaceSummary{}, fmt.Errorf("%s: %w", placeID, errFetch)
	}
	return models.PlaceSummary{ID: placeID, Name: "Place " + placeID}, nil
}

func (f *stubFetcher) callsFor(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

// failingKV fails every write; reads come from the embedded MemoryKV.
type failingKV struct {
	*MemoryKV
	getErr error
}

func (f failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f failingKV) Set(context.Context, string, string) error {
	return errors.New("disk full")
}
