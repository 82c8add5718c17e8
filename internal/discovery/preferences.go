package discovery

import (
	"errors"
	"fmt"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/utils"
)

// Default band of the search form, in kilometers.
const (
	DefaultMinKm = 0
	DefaultMaxKm = 50
)

// ErrEmptyCategory is returned for a blank place category.
var ErrEmptyCategory = errors.New("category must not be empty")

// Preferences is one search submission. They are never persisted.
type Preferences struct {
	Category string
	Band     geo.DistanceBand
}

// PreferencesFromKilometers converts a user-facing kilometer band to meters.
func PreferencesFromKilometers(category string, minKm, maxKm float64) Preferences {
	return Preferences{
		Category: category,
		Band: geo.DistanceBand{
			MinMeters: geo.KilometersToMeters(minKm),
			MaxMeters: geo.KilometersToMeters(maxKm),
		},
	}
}

// Normalized returns a copy with the category trimmed and lower-cased.
func (p Preferences) Normalized() Preferences {
	p.Category = utils.NormalizeCategory(p.Category)
	return p
}

func (p Preferences) Validate() error {
	if utils.NormalizeCategory(p.Category) == "" {
		return ErrEmptyCategory
	}
	if err := p.Band.Validate(); err != nil {
		return fmt.Errorf("distance band: %w", err)
	}
	return nil
}
