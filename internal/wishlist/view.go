package wishlist

import (
	"context"
	"sync"
)

// View is one open window onto the wishlist, such as a sidebar, a page or a
// websocket client. It reads the set when opened and follows every change
// until closed.
type View struct {
	store *Store
	stop  func()

	mu      sync.RWMutex
	ids     []string
	closed  bool
	updates chan []string
}

// NewView loads the current set and subscribes to changes. Close releases the
// subscription.
func NewView(ctx context.Context, store *Store) (*View, error) {
	v := &View{
		store:   store,
		updates: make(chan []string, 1),
	}
	v.ids = store.Load(ctx)

	stop, err := store.Subscribe(ctx, v.refresh)
	if err != nil {
		return nil, err
	}
	v.stop = stop
	return v, nil
}

// refresh replaces the view's ids and offers them on Updates, replacing any
// value the reader has not taken yet.
func (v *View) refresh(ids []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.ids = ids

	select {
	case <-v.updates:
	default:
	}
	v.updates <- append([]string(nil), ids...)
}

// Updates delivers the latest id set after each change. Only the newest
// unread set is kept. The channel is closed by Close.
func (v *View) Updates() <-chan []string {
	return v.updates
}

func (v *View) IDs() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return append([]string(nil), v.ids...)
}

// Len is the saved place count shown on the navigation badge.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.ids)
}

func (v *View) Contains(placeID string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	for _, id := range v.ids {
		if id == placeID {
			return true
		}
	}
	return false
}

// Hydrate fetches details for the ids currently shown.
func (v *View) Hydrate(ctx context.Context) map[string]HydrationResult {
	return v.store.HydrateDetails(ctx, v.IDs())
}

func (v *View) Close() {
	v.stop()
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.closed {
		v.closed = true
		close(v.updates)
	}
}
