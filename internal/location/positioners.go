package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"explorer.placeexplorer.org/internal/geo"
)

// Fixed is a position already known to the caller, such as the coordinate a
// browser geolocation call produced and sent along with a search.
type Fixed geo.Coordinate

func (f Fixed) Position(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate(f), nil
}

// Failing replays a positioning failure reported by the client.
type Failing struct {
	Err error
}

func (f Failing) Position(context.Context) (geo.Coordinate, error) {
	return geo.Coordinate{}, f.Err
}

// FromClientError maps the failure kind a client reports ("denied",
// "timeout", "unavailable") to a Failing positioner.
func FromClientError(kind string) Failing {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "denied", "permission_denied":
		return Failing{Err: fmt.Errorf("%w: permission refused by client", ErrLocationDenied)}
	case "timeout":
		return Failing{Err: fmt.Errorf("%w: client position request timed out", ErrLocationDenied)}
	default:
		return Failing{Err: fmt.Errorf("%w: client reported %q", ErrLocationUnavailable, kind)}
	}
}

// Chain tries each positioner in order and returns the first position. It
// stops at a denial since a refusal is a decision, not a fault.
type Chain []Positioner

func (c Chain) Position(ctx context.Context) (geo.Coordinate, error) {
	err := fmt.Errorf("%w: no position source configured", ErrLocationUnavailable)
	for _, p := range c {
		if p == nil {
			continue
		}
		var pos geo.Coordinate
		pos, err = p.Position(ctx)
		if err == nil {
			return pos, nil
		}
		if classified := classify(err); errors.Is(classified, ErrLocationDenied) {
			return geo.Coordinate{}, classified
		}
	}
	return geo.Coordinate{}, err
}
