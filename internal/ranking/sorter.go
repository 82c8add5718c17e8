package ranking

import (
	"sync"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
)

// Sorter holds one result list and re-ranks it as the user picks a column or
// flips the direction. Sort keys are computed once per key and reused.
type Sorter struct {
	mu        sync.Mutex
	list      []models.PlaceSummary
	origin    geo.Coordinate
	criterion Criterion
	keys      map[Key][]keyed
}

// NewSorter keeps a private copy of list, initially unranked.
func NewSorter(list []models.PlaceSummary, origin geo.Coordinate) *Sorter {
	return &Sorter{
		list:      append([]models.PlaceSummary(nil), list...),
		origin:    origin,
		criterion: Criterion{Key: KeyNone, Direction: Asc},
		keys:      make(map[Key][]keyed),
	}
}

func (s *Sorter) Criterion() Criterion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.criterion
}

// Select picks a sort key. Selecting the current key again flips the
// direction; a new key starts in its default direction.
func (s *Sorter) Select(k Key) []models.PlaceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k == s.criterion.Key && k != KeyNone {
		s.criterion = s.criterion.Reversed()
	} else {
		s.criterion = Criterion{Key: k, Direction: DefaultDirection(k)}
	}
	return s.rankLocked()
}

// Toggle flips the direction of the current key.
func (s *Sorter) Toggle() []models.PlaceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criterion = s.criterion.Reversed()
	return s.rankLocked()
}

// Apply sets the criterion outright.
func (s *Sorter) Apply(c Criterion) []models.PlaceSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criterion = c
	return s.rankLocked()
}

func (s *Sorter) rankLocked() []models.PlaceSummary {
	if s.criterion.Key == KeyNone {
		return append([]models.PlaceSummary(nil), s.list...)
	}
	keys, ok := s.keys[s.criterion.Key]
	if !ok {
		keys = computeKeys(s.list, s.criterion.Key, s.origin)
		s.keys[s.criterion.Key] = keys
	}
	return order(keys, s.criterion.Key, s.criterion.Direction)
}
