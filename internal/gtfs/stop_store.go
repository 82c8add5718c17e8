package gtfs

import (
	"sort"
	"sync"
	"time"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
	remoteGtfs "github.com/jamespfennell/gtfs"
)

// IDPrefix marks place ids that refer to GTFS stops.
const IDPrefix = "gtfs:"

// TransitCategory is the place type attached to every indexed stop.
const TransitCategory = "transit_station"

// transitPlace is a stop reduced to what the place search needs.
type transitPlace struct {
	id       string
	name     string
	vicinity string
	location geo.Coordinate
}

func (p transitPlace) raw() models.RawPlace {
	lat, lon := p.location.Latitude, p.location.Longitude
	return models.RawPlace{
		ID:        p.id,
		Name:      p.name,
		Latitude:  &lat,
		Longitude: &lon,
		Vicinity:  p.vicinity,
		Types:     []string{TransitCategory},
	}
}

// StopStore is a thread-safe index of the searchable stops of one GTFS feed.
// Platforms, entrances and boarding areas collapse into their parent station
// so a station shows up once.
type StopStore struct {
	mu       sync.RWMutex
	places   []transitPlace
	byID     map[string]transitPlace
	bbox     geo.BoundingBox
	loadedAt time.Time
}

func NewStopStore() *StopStore {
	return &StopStore{}
}

// Set replaces the index with the searchable stops of a parsed feed and
// returns how many were indexed.
func (s *StopStore) Set(static *remoteGtfs.Static) int {
	places := searchablePlaces(static)

	byID := make(map[string]transitPlace, len(places))
	points := make([]geo.Coordinate, 0, len(places))
	for _, p := range places {
		byID[p.id] = p
		points = append(points, p.location)
	}
	bbox, err := geo.ComputeBoundingBox(points)
	if err != nil {
		bbox = geo.BoundingBox{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.places = places
	s.byID = byID
	s.bbox = bbox
	s.loadedAt = time.Now()
	return len(places)
}

// Loaded reports whether a feed has been indexed and when.
func (s *StopStore) Loaded() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt, !s.loadedAt.IsZero()
}

func (s *StopStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places)
}

// Get looks a stop up by its place id.
func (s *StopStore) Get(placeID string) (transitPlace, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byID[placeID]
	return p, ok
}

// Nearby returns up to limit stops within radiusMeters of center, closest first.
func (s *StopStore) Nearby(center geo.Coordinate, radiusMeters float64, limit int) []transitPlace {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.places) == 0 || !s.bbox.IntersectsRadius(center, radiusMeters) {
		return nil
	}

	type hit struct {
		place    transitPlace
		distance float64
	}
	var hits []hit
	for _, p := range s.places {
		if !geo.WithinRadius(center, p.location, radiusMeters) {
			continue
		}
		hits = append(hits, hit{place: p, distance: geo.GeodesicDistanceMeters(center, p.location)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].distance < hits[j].distance })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]transitPlace, len(hits))
	for i, h := range hits {
		out[i] = h.place
	}
	return out
}

// searchablePlaces keeps stations and free-standing stops. A stop is dropped
// when it belongs to a station, following the parent_station hierarchy in
// https://gtfs.org/schedule/reference/#stopstxt
func searchablePlaces(static *remoteGtfs.Static) []transitPlace {
	if static == nil {
		return nil
	}

	vicinity := ""
	if len(static.Agencies) == 1 {
		vicinity = static.Agencies[0].Name
	}

	places := make([]transitPlace, 0, len(static.Stops))
	for _, stop := range static.Stops {
		if !isSearchableStop(stop) {
			continue
		}
		if stop.Latitude == nil || stop.Longitude == nil {
			continue
		}
		location := geo.Coordinate{Latitude: *stop.Latitude, Longitude: *stop.Longitude}
		if !location.Valid() {
			continue
		}
		p := transitPlace{
			id:       IDPrefix + stop.Id,
			name:     stop.Name,
			vicinity: stop.Description,
			location: location,
		}
		if p.vicinity == "" {
			p.vicinity = vicinity
		}
		places = append(places, p)
	}
	return places
}

func isSearchableStop(stop remoteGtfs.Stop) bool {
	switch stop.Type {
	case 0: // Stop or Platform
		return stop.Parent == nil
	case 1: // Station
		return true
	default: // Entrances, generic nodes and boarding areas are never places of their own.
		return false
	}
}
