package geo

import (
	"errors"
	"math"
	"testing"
)

func TestGeodesicDistanceMeters(t *testing.T) {
	london := Coordinate{Latitude: 51.5074, Longitude: -0.1278}
	paris := Coordinate{Latitude: 48.8566, Longitude: 2.3522}

	t.Run("London to Paris", func(t *testing.T) {
		d := GeodesicDistanceMeters(london, paris)
		if math.Abs(d-343000) > 2000 {
			t.Errorf("expected ~343km, got %.1fm", d)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		ab := GeodesicDistanceMeters(london, paris)
		ba := GeodesicDistanceMeters(paris, london)
		if math.Abs(ab-ba) > 1e-6 {
			t.Errorf("expected symmetric distances, got %v and %v", ab, ba)
		}
	})

	t.Run("Same point", func(t *testing.T) {
		origin := Coordinate{}
		if d := GeodesicDistanceMeters(origin, origin); d >= 1e-6 {
			t.Errorf("expected zero distance, got %v", d)
		}
	})

	t.Run("Monotonic with separation", func(t *testing.T) {
		origin := Coordinate{Latitude: 40, Longitude: -75}
		prev := 0.0
		for _, dLat := range []float64{0.001, 0.01, 0.1, 1, 10} {
			d := GeodesicDistanceMeters(origin, Coordinate{Latitude: 40 + dLat, Longitude: -75})
			if d <= prev {
				t.Fatalf("expected distance to grow past %v at dLat %v, got %v", prev, dLat, d)
			}
			prev = d
		}
	})

	t.Run("NaN propagates", func(t *testing.T) {
		d := GeodesicDistanceMeters(london, Coordinate{Latitude: math.NaN(), Longitude: 0})
		if !math.IsNaN(d) {
			t.Errorf("expected NaN, got %v", d)
		}
	})
}

func TestIsValidLatLon(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"origin is a real place", 0, 0, true},
		{"north pole", 90, 0, true},
		{"antimeridian", 10, -180, true},
		{"latitude too high", 90.0001, 0, false},
		{"longitude too low", 0, -180.5, false},
		{"NaN latitude", math.NaN(), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidLatLon(tt.lat, tt.lon); got != tt.want {
				t.Errorf("IsValidLatLon(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestNewCoordinate(t *testing.T) {
	if _, err := NewCoordinate(91, 0); !errors.Is(err, ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
	c, err := NewCoordinate(40, -75)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Latitude != 40 || c.Longitude != -75 {
		t.Errorf("unexpected coordinate %+v", c)
	}
}

func TestDistanceBand(t *testing.T) {
	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			band    DistanceBand
			wantErr bool
		}{
			{"zero width", DistanceBand{MinMeters: 100, MaxMeters: 100}, false},
			{"typical", DistanceBand{MinMeters: 0, MaxMeters: 5000}, false},
			{"inverted", DistanceBand{MinMeters: 6000, MaxMeters: 5000}, true},
			{"negative", DistanceBand{MinMeters: -1, MaxMeters: 5000}, true},
			{"NaN", DistanceBand{MinMeters: math.NaN(), MaxMeters: 5000}, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := tt.band.Validate()
				if (err != nil) != tt.wantErr {
					t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
				if err != nil && !errors.Is(err, ErrInvalidBand) {
					t.Errorf("expected ErrInvalidBand, got %v", err)
				}
			})
		}
	})

	t.Run("Contains", func(t *testing.T) {
		band := DistanceBand{MinMeters: 1000, MaxMeters: 5000}
		cases := map[float64]bool{
			999:        false,
			1000:       true,
			5000:       true,
			5000.5:     true,
			5002:       false,
			math.NaN(): false,
		}
		for d, want := range cases {
			if got := band.Contains(d); got != want {
				t.Errorf("Contains(%v) = %v, want %v", d, got, want)
			}
		}
	})
}

func TestKilometersToMeters(t *testing.T) {
	if got := KilometersToMeters(5); got != 5000 {
		t.Errorf("expected 5000, got %v", got)
	}
}
