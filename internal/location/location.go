// Package location resolves the device position used as a search origin.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"explorer.placeexplorer.org/internal/geo"
)

var (
	// ErrLocationUnavailable means no positioning capability exists or it
	// produced no usable coordinate.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrLocationDenied means the user or platform refused to share a position,
	// or the request for one timed out.
	ErrLocationDenied = errors.New("location denied")
)

// Positioner is a single-shot source of the device position.
type Positioner interface {
	Position(ctx context.Context) (geo.Coordinate, error)
}

// Adapter normalizes any Positioner into the location error taxonomy.
// It never retries; one call yields one attempt.
type Adapter struct {
	positioner Positioner
	logger     *slog.Logger
}

// NewAdapter wraps a Positioner. A nil positioner is allowed and always
// reports ErrLocationUnavailable.
func NewAdapter(positioner Positioner, logger *slog.Logger) *Adapter {
	return &Adapter{positioner: positioner, logger: logger}
}

// CurrentLocation returns the device position or an error wrapping
// ErrLocationUnavailable or ErrLocationDenied.
func (a *Adapter) CurrentLocation(ctx context.Context) (geo.Coordinate, error) {
	if a == nil || a.positioner == nil {
		return geo.Coordinate{}, fmt.Errorf("%w: no position source configured", ErrLocationUnavailable)
	}

	c, err := a.positioner.Position(ctx)
	if err != nil {
		classified := classify(err)
		a.logger.Warn("Device position could not be resolved", "error", classified)
		return geo.Coordinate{}, classified
	}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, geo.ErrInvalidCoordinate)
	}
	return c, nil
}

// classify maps an arbitrary positioner failure onto the taxonomy. Deadlines
// count as denial, matching a browser geolocation timeout.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrLocationDenied), errors.Is(err, ErrLocationUnavailable):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrLocationDenied, err)
	default:
		return fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}
}
