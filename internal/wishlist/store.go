package wishlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"explorer.placeexplorer.org/internal/metrics"
	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

// DefaultKey is the key the id set is persisted under.
const DefaultKey = "wishList"

const defaultConcurrency = 8

// ErrInvalidPlaceID is returned for blank place ids.
var ErrInvalidPlaceID = errors.New("place id must not be empty")

// DetailFetcher fetches one place. *places.Gateway satisfies it.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, placeID string, fields []string) (models.PlaceSummary, error)
}

// HydrationResult is the outcome for one id: Place on success, Err otherwise.
type HydrationResult struct {
	Place *models.PlaceSummary
	Err   error
}

func (r HydrationResult) OK() bool {
	return r.Err == nil && r.Place != nil
}

type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithConcurrency bounds the number of detail fetches in flight.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFields sets the detail fields requested during hydration.
func WithFields(fields []string) Option {
	return func(s *Store) {
		if len(fields) > 0 {
			s.fields = append([]string(nil), fields...)
		}
	}
}

// Store is the wishlist: a persisted set of place ids. Details are derived
// from the detail provider on every hydration and never persisted or kept.
type Store struct {
	kv          KeyValueStore
	fetcher     DetailFetcher
	logger      *slog.Logger
	key         string
	concurrency int
	fields      []string

	// writeMu serializes read-modify-write cycles in this process.
	writeMu sync.Mutex
}

func NewStore(kv KeyValueStore, fetcher DetailFetcher, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		kv:          kv,
		fetcher:     fetcher,
		logger:      logger,
		key:         DefaultKey,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the persisted ids in insertion order. A missing, corrupt or
// unreadable record yields an empty set; Load never fails.
func (s *Store) Load(ctx context.Context) []string {
	ids, err := s.read(ctx)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeTags("component", "wishlist", "key", s.key),
			Level: sentry.LevelError,
		})
		s.logger.Error("Failed to read wishlist, treating as empty", "key", s.key, "error", err)
		return []string{}
	}
	metrics.WishlistSize.Set(float64(len(ids)))
	return ids
}

// read distinguishes storage failures, which are returned, from corrupt
// content, which is logged and treated as empty.
func (s *Store) read(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read wishlist %s: %w", s.key, err)
	}
	if !ok {
		return []string{}, nil
	}
	ids, valid := decodeIDs(raw)
	if !valid {
		s.logger.Warn("Persisted wishlist is corrupt, treating as empty", "key", s.key)
	}
	return ids, nil
}

func (s *Store) Contains(ctx context.Context, placeID string) bool {
	placeID = strings.TrimSpace(placeID)
	for _, id := range s.Load(ctx) {
		if id == placeID {
			return true
		}
	}
	return false
}

// Add saves placeID. Adding an id that is already saved changes nothing and
// writes nothing. The set is persisted before Add returns.
func (s *Store) Add(ctx context.Context, placeID string) (bool, error) {
	return s.mutate(ctx, "add", placeID, func(ids []string, id string, present bool) ([]string, bool) {
		if present {
			return ids, false
		}
		return append(ids, id), true
	})
}

// Remove drops placeID. Removing an id that is not saved is a no-op.
func (s *Store) Remove(ctx context.Context, placeID string) (bool, error) {
	return s.mutate(ctx, "remove", placeID, func(ids []string, id string, present bool) ([]string, bool) {
		if !present {
			return ids, false
		}
		return without(ids, id), true
	})
}

// Toggle adds placeID when absent and removes it when present, judged against
// the freshly read set. It returns whether the place is saved afterwards.
func (s *Store) Toggle(ctx context.Context, placeID string) (bool, error) {
	var saved bool
	_, err := s.mutate(ctx, "toggle", placeID, func(ids []string, id string, present bool) ([]string, bool) {
		if present {
			return without(ids, id), true
		}
		saved = true
		return append(ids, id), true
	})
	if err != nil {
		return false, err
	}
	return saved, nil
}

func (s *Store) mutate(ctx context.Context, op, placeID string, apply func(ids []string, id string, present bool) ([]string, bool)) (bool, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return false, ErrInvalidPlaceID
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ids, err := s.read(ctx)
	if err != nil {
		return false, err
	}
	present := false
	for _, id := range ids {
		if id == placeID {
			present = true
			break
		}
	}

	next, changed := apply(ids, placeID, present)
	metrics.WishlistMutations.WithLabelValues(op, strconv.FormatBool(changed)).Inc()
	if !changed {
		return false, nil
	}

	if err := s.kv.Set(ctx, s.key, encodeIDs(next)); err != nil {
		err = fmt.Errorf("persist wishlist %s: %w", s.key, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeTags("component", "wishlist", "op", op, "place_id", placeID),
			Level: sentry.LevelError,
		})
		return false, err
	}
	metrics.WishlistSize.Set(float64(len(next)))
	s.logger.Info("Wishlist updated", "op", op, "place_id", placeID, "size", len(next))
	return true, nil
}

// HydrateDetails fetches details for ids with a bounded fan-out. Each id gets
// its own result; one failure never affects the others. An id listed twice is
// fetched once, and every call fetches afresh so opening hours and ratings
// stay current.
func (s *Store) HydrateDetails(ctx context.Context, ids []string) map[string]HydrationResult {
	results := make(map[string]HydrationResult, len(ids))
	pending := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, done := results[id]; done {
			continue
		}
		if s.fetcher == nil {
			results[id] = HydrationResult{Err: fmt.Errorf("%s: no detail provider configured", id)}
			continue
		}
		results[id] = HydrationResult{}
		pending = append(pending, id)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, s.concurrency)
	for _, id := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			place, err := s.fetcher.FetchDetails(ctx, id, s.fields)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				metrics.HydrationResults.WithLabelValues("failed").Inc()
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeTags("component", "wishlist", "place_id", id),
					Level: sentry.LevelWarning,
				})
				s.logger.Warn("Failed to hydrate wishlist place", "place_id", id, "error", err)
				results[id] = HydrationResult{Err: err}
				return
			}
			metrics.HydrationResults.WithLabelValues("ok").Inc()
			results[id] = HydrationResult{Place: &place}
		}(id)
	}

	wg.Wait()
	return results
}

func without(ids []string, drop string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != drop {
			out = append(out, id)
		}
	}
	return out
}

// Subscribe calls fn with the freshly loaded ids after every change of the
// persisted record, whichever view or process made it. Call stop to release
// the subscription.
func (s *Store) Subscribe(ctx context.Context, fn func(ids []string)) (stop func(), err error) {
	unwatch, err := s.kv.Watch(ctx, s.key, func() {
		fn(s.Load(context.WithoutCancel(ctx)))
	})
	if err != nil {
		return nil, fmt.Errorf("watch wishlist %s: %w", s.key, err)
	}
	metrics.ActiveViews.Inc()

	var once sync.Once
	return func() {
		once.Do(func() {
			unwatch()
			metrics.ActiveViews.Dec()
		})
	}, nil
}
