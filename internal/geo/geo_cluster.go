package geo

import (
	"fmt"
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const s2Level = 10 // S2 cell level with 7–10 km spatial resolution

// CellToken returns the S2 cell token (level 10) covering c. Logs carry the
// token instead of the raw device position.
func CellToken(c Coordinate) string {
	if !c.Valid() {
		return "invalid"
	}
	return s2.CellIDFromLatLng(c.latLng()).Parent(s2Level).ToToken()
}

// angleFromMeters converts an arc length on the Earth's surface to an angle.
func angleFromMeters(meters float64) s1.Angle {
	return s1.Angle(meters/earthRadiusInMeters) * s1.Radian
}

// WithinRadius reports whether point lies inside the spherical cap of
// radiusMeters around center.
func WithinRadius(center, point Coordinate, radiusMeters float64) bool {
	if !center.Valid() || !point.Valid() || math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return false
	}
	c := s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), angleFromMeters(radiusMeters))
	return c.ContainsPoint(s2.PointFromLatLng(point.latLng()))
}

// BoundingBox defines the corners of a lat/lon box
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// IntersectsRadius reports whether a search cap of radiusMeters around center
// can reach any point of the box.
func (b BoundingBox) IntersectsRadius(center Coordinate, radiusMeters float64) bool {
	if !center.Valid() || math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return false
	}
	box := s2.RectFromLatLng(s2.LatLngFromDegrees(b.MinLat, b.MinLon)).
		AddPoint(s2.LatLngFromDegrees(b.MaxLat, b.MaxLon))
	search := s2.CapFromCenterAngle(s2.PointFromLatLng(center.latLng()), angleFromMeters(radiusMeters))
	return box.Intersects(search.RectBound())
}

// ComputeBoundingBox computes the bounding box of all valid coordinates.
func ComputeBoundingBox(points []Coordinate) (BoundingBox, error) {
	if len(points) == 0 {
		return BoundingBox{}, fmt.Errorf("no points to compute bounding box")
	}

	minLat := math.MaxFloat64
	maxLat := -math.MaxFloat64
	minLon := math.MaxFloat64
	maxLon := -math.MaxFloat64

	for _, p := range points {
		if !p.Valid() {
			continue
		}
		minLat = math.Min(minLat, p.Latitude)
		maxLat = math.Max(maxLat, p.Latitude)
		minLon = math.Min(minLon, p.Longitude)
		maxLon = math.Max(maxLon, p.Longitude)
	}

	if minLat == math.MaxFloat64 || maxLon == -math.MaxFloat64 {
		return BoundingBox{}, fmt.Errorf("no valid latitude/longitude found in points")
	}

	return BoundingBox{
		MinLat: minLat,
		MaxLat: maxLat,
		MinLon: minLon,
		MaxLon: maxLon,
	}, nil
}
