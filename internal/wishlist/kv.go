// Package wishlist keeps the user's saved place ids in a persisted set and
// keeps every open view of it in sync.
package wishlist

import (
	"context"
	"sync"
)

// KeyValueStore is the persistence port of the wishlist. Watch registers fn to
// run after every successful Set of key, from this process or, where the
// backend supports it, from others. The returned stop func releases the watch.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Watch(ctx context.Context, key string, fn func()) (stop func(), err error)
}

// watchers fans change notifications out to registered callbacks. Callbacks
// run outside the lock so they may read the store again.
type watchers struct {
	mu     sync.Mutex
	nextID int
	byKey  map[string]map[int]func()
}

func (w *watchers) add(key string, fn func()) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.byKey == nil {
		w.byKey = make(map[string]map[int]func())
	}
	if w.byKey[key] == nil {
		w.byKey[key] = make(map[int]func())
	}
	id := w.nextID
	w.nextID++
	w.byKey[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.byKey[key], id)
			if len(w.byKey[key]) == 0 {
				delete(w.byKey, key)
			}
		})
	}
}

func (w *watchers) notify(key string) {
	w.mu.Lock()
	fns := make([]func(), 0, len(w.byKey[key]))
	for _, fn := range w.byKey[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (w *watchers) count(key string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.byKey[key])
}

// MemoryKV keeps values in process memory. Nothing survives a restart.
type MemoryKV struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers watchers
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	m.watchers.notify(key)
	return nil
}

func (m *MemoryKV) Watch(_ context.Context, key string, fn func()) (func(), error) {
	return m.watchers.add(key, fn), nil
}
