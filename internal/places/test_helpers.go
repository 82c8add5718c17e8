package places

import (
	"context"
	"sync"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
)

// StubBackend is an in-memory Backend used by tests in this and other packages.
type StubBackend struct {
	mu sync.Mutex

	SearchStatus Status
	SearchErr    error
	Places       []models.RawPlace

	// DetailErrs and DetailStatuses override the outcome for individual ids.
	DetailErrs     map[string]error
	DetailStatuses map[string]Status

	SearchCalls  int
	LastRadius   float64
	LastCategory string
	DetailCalls  []string
}

func (s *StubBackend) Search(_ context.Context, _ geo.Coordinate, radiusMeters float64, category string) (Status, []models.RawPlace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SearchCalls++
	s.LastRadius = radiusMeters
	s.LastCategory = category
	if s.SearchErr != nil {
		return "", nil, s.SearchErr
	}
	status := s.SearchStatus
	if status == "" {
		status = StatusOK
	}
	return status, append([]models.RawPlace(nil), s.Places...), nil
}

func (s *StubBackend) Details(_ context.Context, placeID string, _ []string) (Status, models.RawPlace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DetailCalls = append(s.DetailCalls, placeID)
	if err, ok := s.DetailErrs[placeID]; ok {
		return "", models.RawPlace{}, err
	}
	if status, ok := s.DetailStatuses[placeID]; ok {
		return status, models.RawPlace{}, nil
	}
	for _, p := range s.Places {
		if p.ID == placeID {
			return StatusOK, p, nil
		}
	}
	return StatusNotFound, models.RawPlace{}, nil
}

// RawAt builds a RawPlace at the given position.
func RawAt(id string, lat, lon float64) models.RawPlace {
	return models.RawPlace{ID: id, Name: id, Latitude: &lat, Longitude: &lon}
}
