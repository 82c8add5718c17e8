// Package ranking orders place lists by distance from the user or by rating.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
)

type Key string

const (
	KeyNone     Key = "none"
	KeyDistance Key = "distance"
	KeyRating   Key = "rating"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Criterion selects a sort key and direction. It is never persisted.
type Criterion struct {
	Key       Key       `json:"by"`
	Direction Direction `json:"direction"`
}

// DefaultDirection is the direction a key starts in when first selected:
// nearest first, best rated first.
func DefaultDirection(k Key) Direction {
	if k == KeyRating {
		return Desc
	}
	return Asc
}

// ParseCriterion reads user-supplied names. Empty values mean no ranking and
// the key's default direction.
func ParseCriterion(by, direction string) (Criterion, error) {
	c := Criterion{Key: Key(strings.ToLower(strings.TrimSpace(by)))}
	switch c.Key {
	case "":
		c.Key = KeyNone
	case KeyNone, KeyDistance, KeyRating:
	default:
		return Criterion{}, fmt.Errorf("unknown sort key %q", by)
	}

	switch d := Direction(strings.ToLower(strings.TrimSpace(direction))); d {
	case "":
		c.Direction = DefaultDirection(c.Key)
	case Asc, Desc:
		c.Direction = d
	default:
		return Criterion{}, fmt.Errorf("unknown sort direction %q", direction)
	}
	return c, nil
}

// Reversed flips the direction.
func (c Criterion) Reversed() Criterion {
	if c.Direction == Desc {
		c.Direction = Asc
	} else {
		c.Direction = Desc
	}
	return c
}

// keyed pairs a place with its sort key. ok is false when the key cannot be
// computed (distance to a place without a valid location).
type keyed struct {
	place models.PlaceSummary
	key   float64
	ok    bool
}

func computeKeys(list []models.PlaceSummary, k Key, origin geo.Coordinate) []keyed {
	out := make([]keyed, len(list))
	for i, p := range list {
		out[i] = keyed{place: p}
		switch k {
		case KeyDistance:
			if p.Location == nil {
				continue
			}
			d := geo.GeodesicDistanceMeters(origin, *p.Location)
			if math.IsNaN(d) {
				continue
			}
			out[i].key, out[i].ok = d, true
		case KeyRating:
			// Unrated places rank exactly like zero-rated ones.
			r := 0.0
			if p.Rating != nil && !math.IsNaN(*p.Rating) {
				r = *p.Rating
			}
			out[i].key, out[i].ok = r, true
		}
	}
	return out
}

// order sorts keyed items stably. Distance ties keep input order in both
// directions. Rating ascending is the exact reverse of rating descending, so
// tied ratings come out in reverse input order when ascending. Items without
// a key keep their input order and always come last.
func order(items []keyed, k Key, dir Direction) []models.PlaceSummary {
	present := make([]keyed, 0, len(items))
	var missing []keyed
	for _, it := range items {
		if it.ok {
			present = append(present, it)
		} else {
			missing = append(missing, it)
		}
	}

	switch {
	case k == KeyRating:
		sort.SliceStable(present, func(i, j int) bool { return present[i].key > present[j].key })
		if dir == Asc {
			for i, j := 0, len(present)-1; i < j; i, j = i+1, j-1 {
				present[i], present[j] = present[j], present[i]
			}
		}
	case dir == Desc:
		sort.SliceStable(present, func(i, j int) bool { return present[i].key > present[j].key })
	default:
		sort.SliceStable(present, func(i, j int) bool { return present[i].key < present[j].key })
	}

	out := make([]models.PlaceSummary, 0, len(items))
	for _, it := range present {
		out = append(out, it.place)
	}
	for _, it := range missing {
		out = append(out, it.place)
	}
	return out
}

// Rank returns a newly allocated, ordered copy of list. KeyNone keeps the
// input order. The input slice is never modified.
func Rank(list []models.PlaceSummary, c Criterion, origin geo.Coordinate) []models.PlaceSummary {
	if c.Key == KeyNone || c.Key == "" {
		return append(make([]models.PlaceSummary, 0, len(list)), list...)
	}
	return order(computeKeys(list, c.Key, origin), c.Key, c.Direction)
}
