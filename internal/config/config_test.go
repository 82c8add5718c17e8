package config

import (
	"errors"
	"testing"

	"explorer.placeexplorer.org/internal/geo"
)

func TestSettingsValidate(t *testing.T) {
	valid := func() Settings {
		s := DefaultSettings()
		s.Provider.APIKey = "key"
		return s
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr bool
	}{
		{"defaults with key", func(*Settings) {}, false},
		{"google without key", func(s *Settings) { s.Provider.APIKey = "" }, true},
		{"elastic without url", func(s *Settings) { s.Provider.Kind = ProviderElastic }, true},
		{"elastic with url", func(s *Settings) { s.Provider.Kind = ProviderElastic; s.Elastic.URL = "http://localhost:9200" }, false},
		{"gtfs without feed", func(s *Settings) { s.Provider.Kind = ProviderGTFS }, true},
		{"unknown provider", func(s *Settings) { s.Provider.Kind = "yelp" }, true},
		{"postgres without url", func(s *Settings) { s.Wishlist.Backend = BackendPostgres }, true},
		{"unknown backend", func(s *Settings) { s.Wishlist.Backend = "redis" }, true},
		{"bad fallback", func(s *Settings) { s.Location.Fallback = &geo.Coordinate{Latitude: 91} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	s := valid()
	s.Location.Fallback = &geo.Coordinate{Latitude: 91}
	if err := s.Validate(); !errors.Is(err, geo.ErrInvalidCoordinate) {
		t.Errorf("expected ErrInvalidCoordinate, got %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	s := DefaultSettings()
	if s.Provider.Kind != ProviderGoogle || s.Provider.MaxRadiusMeters != GoogleMaxRadiusMeters {
		t.Errorf("unexpected provider defaults %+v", s.Provider)
	}
	if s.Wishlist.Backend != BackendFile || s.Wishlist.Key != DefaultWishlistKey || s.Wishlist.DataDir != "data" {
		t.Errorf("unexpected wishlist defaults %+v", s.Wishlist)
	}
	if s.Hydration.Concurrency != 8 || s.Transit.RefreshHours != 24 || s.Elastic.Index != "places" {
		t.Errorf("unexpected defaults %+v", s)
	}
	if len(s.AllowedOrigins) != 1 || s.AllowedOrigins[0] != DefaultUIOrigin {
		t.Errorf("unexpected origins %v", s.AllowedOrigins)
	}
}

func TestConfigGetSettingsReturnsCopy(t *testing.T) {
	s := DefaultSettings()
	s.Hydration.Fields = []string{"name"}
	s.Location.Fallback = &geo.Coordinate{Latitude: 1, Longitude: 2}
	cfg := NewConfig(4000, "testing", s)

	got := cfg.GetSettings()
	got.Hydration.Fields[0] = "mutated"
	got.AllowedOrigins[0] = "mutated"
	got.Location.Fallback.Latitude = 50

	again := cfg.GetSettings()
	if again.Hydration.Fields[0] != "name" || again.AllowedOrigins[0] != DefaultUIOrigin || again.Location.Fallback.Latitude != 1 {
		t.Errorf("GetSettings leaked shared state: %+v", again)
	}

	s.Provider.Kind = ProviderElastic
	cfg.UpdateSettings(s)
	if cfg.GetSettings().Provider.Kind != ProviderElastic {
		t.Error("UpdateSettings did not replace settings")
	}
}
