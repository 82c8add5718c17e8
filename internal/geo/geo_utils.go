package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"
)

// earthRadiusInMeters represents the mean radius of the Earth in meters.
//
// This value (6,371,000 meters) is defined as the Earth's volumetric mean radius,
// which is commonly used for general geospatial calculations and spherical approximations.
//
// Reference: NASA Planetary Fact Sheet – Earth
// https://nssdc.gsfc.nasa.gov/planetary/factsheet/earthfact.html
const earthRadiusInMeters = 6371000

// metersPerKilometer is the factor applied to user-facing distances before they
// reach the search pipeline.
const metersPerKilometer = 1000

// distanceToleranceMeters absorbs floating point and provider-side rounding
// when a measured distance is compared against a band boundary.
const distanceToleranceMeters = 1.0

var (
	// ErrInvalidCoordinate is returned when a latitude or longitude falls
	// outside the geographic bounds or is not a number.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrInvalidBand is returned when a distance band is negative, not a number,
	// or has its lower bound above its upper bound.
	ErrInvalidBand = errors.New("invalid distance band")
)

// Coordinate is an immutable point on the Earth's surface in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates lat/lon and returns the corresponding Coordinate.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if !IsValidLatLon(lat, lon) {
		return Coordinate{}, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinate, lat, lon)
	}
	return Coordinate{Latitude: lat, Longitude: lon}, nil
}

// Valid reports whether c lies within the geographic coordinate bounds.
func (c Coordinate) Valid() bool {
	return IsValidLatLon(c.Latitude, c.Longitude)
}

func (c Coordinate) latLng() s2.LatLng {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude)
}

// IsValidLatLon returns true if the given latitude and longitude values
// fall within the valid geographic coordinate bounds.
//
// Latitude must be between -90 and 90 degrees, and longitude must be
// between -180 and 180 degrees. NaN on either axis is invalid.
//
// Unlike a vehicle feed, a device position of (0,0) is accepted as a real
// location.
func IsValidLatLon(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}
	return true
}

// GeodesicDistanceMeters returns the great-circle distance between a and b in
// meters using the haversine formula on a sphere of radius 6371 km.
//
// The result is symmetric, zero when a == b and never negative. A NaN
// component on either side yields NaN rather than a panic or an error so
// callers can decide how to order unmeasurable places.
func GeodesicDistanceMeters(a, b Coordinate) float64 {
	if math.IsNaN(a.Latitude) || math.IsNaN(a.Longitude) || math.IsNaN(b.Latitude) || math.IsNaN(b.Longitude) {
		return math.NaN()
	}
	return a.latLng().Distance(b.latLng()).Radians() * earthRadiusInMeters
}

// KilometersToMeters converts a user-facing kilometer value to meters.
func KilometersToMeters(km float64) float64 {
	return km * metersPerKilometer
}

// DistanceBand is an inclusive [MinMeters, MaxMeters] interval of distances
// from the search origin.
type DistanceBand struct {
	MinMeters float64 `json:"min_meters"`
	MaxMeters float64 `json:"max_meters"`
}

// Validate rejects bands that are negative, NaN, or inverted.
func (b DistanceBand) Validate() error {
	switch {
	case math.IsNaN(b.MinMeters) || math.IsNaN(b.MaxMeters):
		return fmt.Errorf("%w: bounds must be numbers", ErrInvalidBand)
	case b.MinMeters < 0:
		return fmt.Errorf("%w: minimum %.0fm is negative", ErrInvalidBand, b.MinMeters)
	case b.MinMeters > b.MaxMeters:
		return fmt.Errorf("%w: minimum %.0fm exceeds maximum %.0fm", ErrInvalidBand, b.MinMeters, b.MaxMeters)
	}
	return nil
}

// Contains reports whether a measured distance falls inside the band. The
// lower bound is exact; the upper bound allows one meter of tolerance for
// providers that round their own radius filtering. NaN is never contained.
func (b DistanceBand) Contains(distanceMeters float64) bool {
	if math.IsNaN(distanceMeters) {
		return false
	}
	return distanceMeters >= b.MinMeters && distanceMeters <= b.MaxMeters+distanceToleranceMeters
}
