package models

import (
	"math"
	"strings"

	"explorer.placeexplorer.org/internal/geo"
)

// PlaceSummary is the normalized view of a point of interest shared by the
// search pipeline, the ranking engine and the wishlist. Two summaries with the
// same ID describe the same place.
type PlaceSummary struct {
	ID          string          `json:"place_id"`
	Name        string          `json:"name"`
	Location    *geo.Coordinate `json:"location,omitempty"`
	Vicinity    string          `json:"vicinity"`
	Rating      *float64        `json:"rating,omitempty"`
	RatingCount *int            `json:"user_ratings_total,omitempty"`
	OpenNow     *bool           `json:"open_now,omitempty"`
	PhotoRef    string          `json:"photo_ref,omitempty"`
}

// HasLocation reports whether the summary carries a usable position.
func (p PlaceSummary) HasLocation() bool {
	return p.Location != nil && p.Location.Valid()
}

// RawPlace is a provider record before normalization. Providers fill in what
// they know; the gateway decides what survives into a PlaceSummary.
type RawPlace struct {
	ID          string
	Name        string
	Latitude    *float64
	Longitude   *float64
	Vicinity    string
	Types       []string
	Rating      *float64
	RatingCount *int
	OpenNow     *bool
	PhotoRef    string
}

// Summary normalizes a raw provider record. Ratings outside [0,5], negative
// rating counts and unusable coordinates are dropped rather than rejected so
// that one sloppy field does not hide an otherwise valid place. The boolean
// is false when the record has no identity.
func (r RawPlace) Summary() (PlaceSummary, bool) {
	id := strings.TrimSpace(r.ID)
	if id == "" {
		return PlaceSummary{}, false
	}

	summary := PlaceSummary{
		ID:       id,
		Name:     r.Name,
		Vicinity: r.Vicinity,
		OpenNow:  r.OpenNow,
		PhotoRef: r.PhotoRef,
	}

	if r.Latitude != nil && r.Longitude != nil {
		if c, err := geo.NewCoordinate(*r.Latitude, *r.Longitude); err == nil {
			summary.Location = &c
		}
	}
	if r.Rating != nil && !math.IsNaN(*r.Rating) && *r.Rating >= 0 && *r.Rating <= 5 {
		rating := *r.Rating
		summary.Rating = &rating
	}
	if r.RatingCount != nil && *r.RatingCount >= 0 {
		count := *r.RatingCount
		summary.RatingCount = &count
	}
	return summary, true
}
