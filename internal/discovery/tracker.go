package discovery

import (
	"sync"

	"github.com/google/uuid"
)

// Tracker hands out invocation tokens and remembers the latest one.
type Tracker struct {
	mu     sync.RWMutex
	latest uuid.UUID
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin issues a fresh token and makes it the latest.
func (t *Tracker) Begin() uuid.UUID {
	token := uuid.New()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest = token
	return token
}

func (t *Tracker) IsCurrent(token uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return token != uuid.Nil && token == t.latest
}
