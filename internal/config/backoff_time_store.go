package config

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"
)

const (
	BASE_BACKOFF   = 1 * time.Second
	MAX_BACKOFF    = 2 * time.Minute
	BACKOFF_FACTOR = 2.0
	JITTER_FACTOR  = 0.5
)

// baseBackoff is the first retry delay used by DoWithBackoff. Tests shorten it.
var baseBackoff = BASE_BACKOFF

type backoffData struct {
	BackoffDelay time.Duration
	NextRetryAt  time.Time
}

// BackoffStore remembers, per upstream key (a feed or config URL), how long to
// wait before the next attempt after consecutive failures.
type BackoffStore struct {
	mu       sync.RWMutex
	backoffs map[string]backoffData
}

func NewBackoffStore() *BackoffStore {
	return &BackoffStore{
		backoffs: make(map[string]backoffData),
	}
}

func (s *BackoffStore) NextRetryAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if backoff, exists := s.backoffs[key]; exists {
		return backoff.NextRetryAt.UTC(), true
	}
	return time.Time{}, false
}

// ShouldAttempt reports whether the key is out of its backoff window at now.
func (s *BackoffStore) ShouldAttempt(key string, now time.Time) bool {
	next, ok := s.NextRetryAt(key)
	return !ok || !now.Before(next)
}

func (s *BackoffStore) UpdateBackoff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if backoff, exists := s.backoffs[key]; exists {
		backoff.BackoffDelay = calculateNewBackoffDelay(backoff.BackoffDelay)
		backoff.NextRetryAt = calculateNextRetryAt(backoff.BackoffDelay)
		s.backoffs[key] = backoff
	} else {
		s.backoffs[key] = backoffData{
			BackoffDelay: BASE_BACKOFF,
			NextRetryAt:  calculateNextRetryAt(BASE_BACKOFF),
		}
	}
}

func (s *BackoffStore) ResetBackoff(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.backoffs, key)
}

func withJitter(backoff time.Duration) time.Duration {
	jitter := time.Duration(rand.Float64() * float64(backoff) * JITTER_FACTOR)
	backoff += jitter
	if backoff > MAX_BACKOFF {
		backoff = MAX_BACKOFF
	}
	return backoff
}

func calculateNextRetryAt(backoff time.Duration) time.Time {
	return time.Now().Add(withJitter(backoff)).UTC()
}

func calculateNewBackoffDelay(backoffDelay time.Duration) time.Duration {
	backoffDelay *= BACKOFF_FACTOR
	if backoffDelay >= MAX_BACKOFF {
		backoffDelay = MAX_BACKOFF
	}
	return backoffDelay
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// DoWithBackoff sends req with exponential backoff and jitter on transport
// errors and retryable statuses (429, 5xx). maxRetries is the number of retries
// after the first attempt; zero or less keeps retrying until ctx is done.
//
// It is used for startup and refresh fetches (configuration, GTFS feeds) and
// never for interactive place searches. The request must not carry a body.
func DoWithBackoff(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	delay := baseBackoff
	var lastErr error

	for attempt := 0; maxRetries <= 0 || attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := client.Do(req.Clone(ctx))
		switch {
		case err != nil:
			lastErr = err
		case retryableStatus(resp.StatusCode):
			lastErr = fmt.Errorf("retryable status %d from %s", resp.StatusCode, req.URL.Redacted())
			resp.Body.Close()
		default:
			return resp, nil
		}

		if maxRetries > 0 && attempt == maxRetries {
			break
		}

		timer := time.NewTimer(withJitter(delay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		delay = calculateNewBackoffDelay(delay)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
