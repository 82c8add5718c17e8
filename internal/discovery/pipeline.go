// Package discovery turns search preferences and a device position into a
// filtered list of nearby places.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/location"
	"explorer.placeexplorer.org/internal/metrics"
	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/places"
	"github.com/google/uuid"
)

// State is a step of a discovery run.
type State string

const (
	StateIdle      State = "idle"
	StateLocating  State = "locating"
	StateSearching State = "searching"
	StateFiltering State = "filtering"
	StateReady     State = "ready"
	StateFailed    State = "failed"
)

// Reason explains why a run ended in StateFailed.
type Reason string

const (
	ReasonInvalidPreferences  Reason = "invalid_preferences"
	ReasonLocationUnavailable Reason = "location_unavailable"
	ReasonLocationDenied      Reason = "location_denied"
	ReasonProviderUnavailable Reason = "provider_unavailable"
	ReasonSearchFailed        Reason = "search_failed"
)

// FailedError is the terminal error of a run. State is the step that failed.
type FailedError struct {
	State  State
	Reason Reason
	Err    error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("discovery failed while %s (%s): %v", e.State, e.Reason, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, or "" if err is not a FailedError.
func ReasonOf(err error) Reason {
	var failed *FailedError
	if errors.As(err, &failed) {
		return failed.Reason
	}
	return ""
}

// Locator resolves the search origin. *location.Adapter satisfies it.
type Locator interface {
	CurrentLocation(ctx context.Context) (geo.Coordinate, error)
}

// Searcher finds places within a radius. *places.Gateway satisfies it.
type Searcher interface {
	FindNearby(ctx context.Context, origin geo.Coordinate, radiusMeters float64, category string) ([]models.PlaceSummary, error)
}

// Result is the outcome of a run. Transitions lists every state entered,
// starting at StateIdle.
type Result struct {
	Token       uuid.UUID
	Origin      geo.Coordinate
	Places      []models.PlaceSummary
	Transitions []State
}

// Pipeline runs discovery: Idle, Locating, Searching, Filtering, then Ready
// or Failed. Each Submit is an independent run that never retries.
type Pipeline struct {
	searcher Searcher
	tracker  *Tracker
	logger   *slog.Logger
}

func NewPipeline(searcher Searcher, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		searcher: searcher,
		tracker:  NewTracker(),
		logger:   logger,
	}
}

// IsCurrent reports whether token belongs to the most recent submission.
// Callers drop results of superseded runs.
func (p *Pipeline) IsCurrent(token uuid.UUID) bool {
	return p.tracker.IsCurrent(token)
}

type run struct {
	result Result
}

func (r *run) enter(s State) {
	r.result.Transitions = append(r.result.Transitions, s)
	metrics.SearchTransitions.WithLabelValues(string(s)).Inc()
}

func (r *run) fail(state State, reason Reason, err error) (Result, error) {
	r.enter(StateFailed)
	metrics.SearchOutcomes.WithLabelValues(string(StateFailed), string(reason)).Inc()
	return r.result, &FailedError{State: state, Reason: reason, Err: err}
}

// Submit runs the pipeline once. On failure the returned error is a
// *FailedError and the Result still carries the token and transitions.
func (p *Pipeline) Submit(ctx context.Context, locator Locator, prefs Preferences) (Result, error) {
	r := &run{result: Result{Token: p.tracker.Begin()}}
	r.enter(StateIdle)

	if err := prefs.Validate(); err != nil {
		p.logger.Info("Rejected search preferences", "search_id", r.result.Token, "error", err)
		return r.fail(StateIdle, ReasonInvalidPreferences, err)
	}
	prefs = prefs.Normalized()

	r.enter(StateLocating)
	if locator == nil {
		return r.fail(StateLocating, ReasonLocationUnavailable, location.ErrLocationUnavailable)
	}
	origin, err := locator.CurrentLocation(ctx)
	if err != nil {
		reason := ReasonLocationUnavailable
		if errors.Is(err, location.ErrLocationDenied) {
			reason = ReasonLocationDenied
		}
		p.logger.Warn("Search origin unavailable", "search_id", r.result.Token, "reason", reason, "error", err)
		return r.fail(StateLocating, reason, err)
	}
	r.result.Origin = origin

	r.enter(StateSearching)
	if p.searcher == nil {
		return r.fail(StateSearching, ReasonProviderUnavailable, places.ErrProviderUnavailable)
	}
	candidates, err := p.searcher.FindNearby(ctx, origin, prefs.Band.MaxMeters, prefs.Category)
	if err != nil {
		reason := ReasonSearchFailed
		if errors.Is(err, places.ErrProviderUnavailable) {
			reason = ReasonProviderUnavailable
		}
		p.logger.Warn("Nearby search failed",
			"search_id", r.result.Token,
			"origin_cell", geo.CellToken(origin),
			"category", prefs.Category,
			"reason", reason,
			"error", err)
		return r.fail(StateSearching, reason, err)
	}
	metrics.SearchCandidates.WithLabelValues("provider").Observe(float64(len(candidates)))

	r.enter(StateFiltering)
	r.result.Places = FilterByBand(origin, candidates, prefs.Band)
	metrics.SearchCandidates.WithLabelValues("filtered").Observe(float64(len(r.result.Places)))

	r.enter(StateReady)
	metrics.SearchOutcomes.WithLabelValues(string(StateReady), "").Inc()
	p.logger.Info("Discovery run finished",
		"search_id", r.result.Token,
		"origin_cell", geo.CellToken(origin),
		"category", prefs.Category,
		"candidates", len(candidates),
		"retained", len(r.result.Places))
	return r.result, nil
}

// FilterByBand keeps the places whose geodesic distance from origin lies in
// band. Places without a location are dropped. The input is not modified.
func FilterByBand(origin geo.Coordinate, candidates []models.PlaceSummary, band geo.DistanceBand) []models.PlaceSummary {
	kept := make([]models.PlaceSummary, 0, len(candidates))
	for _, p := range candidates {
		if !p.HasLocation() {
			continue
		}
		if band.Contains(geo.GeodesicDistanceMeters(origin, *p.Location)) {
			kept = append(kept, p)
		}
	}
	return kept
}
