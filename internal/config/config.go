package config

import (
	"fmt"
	"sync"

	"explorer.placeexplorer.org/internal/geo"
)

const (
	ProviderGoogle  = "google"
	ProviderElastic = "elastic"
	ProviderGTFS    = "gtfs"

	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"

	// DefaultWishlistKey is the key the wishlist id set is persisted under.
	DefaultWishlistKey = "wishList"

	// GoogleMaxRadiusMeters is the largest radius the Places nearby search accepts.
	GoogleMaxRadiusMeters = 50000

	// DefaultUIOrigin is the development server of the web UI.
	DefaultUIOrigin = "http://localhost:3000"
)

// ProviderSettings selects and configures the place search/detail provider.
type ProviderSettings struct {
	Kind            string  `json:"kind"`
	BaseURL         string  `json:"base_url"`
	APIKey          string  `json:"api_key"`
	MaxRadiusMeters float64 `json:"max_radius_meters"`
}

// ElasticSettings configures the Elasticsearch place index.
type ElasticSettings struct {
	URL      string `json:"url"`
	Index    string `json:"index"`
	SeedFile string `json:"seed_file"`
}

// TransitSettings configures the GTFS static feed used for transit categories.
// An empty FeedURL disables transit stops.
type TransitSettings struct {
	FeedURL      string `json:"feed_url"`
	RefreshHours int    `json:"refresh_hours"`
}

// WishlistSettings selects the persistence backend for the wishlist.
type WishlistSettings struct {
	Backend     string `json:"backend"`
	DataDir     string `json:"data_dir"`
	Key         string `json:"key"`
	DatabaseURL string `json:"database_url"`
}

// LocationSettings configures how the device position is resolved when a
// request does not carry one.
type LocationSettings struct {
	Fallback    *geo.Coordinate `json:"fallback"`
	IPLookupURL string          `json:"ip_lookup_url"`
}

// HydrationSettings bounds wishlist detail fan-out.
type HydrationSettings struct {
	Concurrency int      `json:"concurrency"`
	Fields      []string `json:"fields"`
}

// Settings is the JSON document loaded from --config-file or --config-url.
type Settings struct {
	Provider  ProviderSettings  `json:"provider"`
	Elastic   ElasticSettings   `json:"elasticsearch"`
	Transit   TransitSettings   `json:"transit"`
	Wishlist  WishlistSettings  `json:"wishlist"`
	Location  LocationSettings  `json:"location"`
	Hydration HydrationSettings `json:"hydration"`

	// AllowedOrigins are the browser origins of the UI allowed to call the API.
	AllowedOrigins []string `json:"allowed_origins"`
}

// DefaultSettings returns the settings used when no configuration source is given.
func DefaultSettings() Settings {
	s := Settings{}
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in zero-valued fields.
func (s *Settings) ApplyDefaults() {
	if s.Provider.Kind == "" {
		s.Provider.Kind = ProviderGoogle
	}
	if s.Provider.MaxRadiusMeters <= 0 {
		s.Provider.MaxRadiusMeters = GoogleMaxRadiusMeters
	}
	if s.Elastic.Index == "" {
		s.Elastic.Index = "places"
	}
	if s.Transit.RefreshHours <= 0 {
		s.Transit.RefreshHours = 24
	}
	if s.Wishlist.Backend == "" {
		s.Wishlist.Backend = BackendFile
	}
	if s.Wishlist.DataDir == "" {
		s.Wishlist.DataDir = "data"
	}
	if s.Wishlist.Key == "" {
		s.Wishlist.Key = DefaultWishlistKey
	}
	if s.Hydration.Concurrency <= 0 {
		s.Hydration.Concurrency = 8
	}
	if len(s.AllowedOrigins) == 0 {
		s.AllowedOrigins = []string{DefaultUIOrigin}
	}
}

// Validate checks that the selected provider and backend have what they need.
func (s Settings) Validate() error {
	switch s.Provider.Kind {
	case ProviderGoogle:
		if s.Provider.APIKey == "" {
			return fmt.Errorf("provider %q requires an api key (PLACES_API_KEY)", s.Provider.Kind)
		}
	case ProviderElastic:
		if s.Elastic.URL == "" {
			return fmt.Errorf("provider %q requires elasticsearch.url (ELASTICSEARCH_URL)", s.Provider.Kind)
		}
	case ProviderGTFS:
		if s.Transit.FeedURL == "" {
			return fmt.Errorf("provider %q requires transit.feed_url", s.Provider.Kind)
		}
	default:
		return fmt.Errorf("unknown provider kind %q", s.Provider.Kind)
	}

	switch s.Wishlist.Backend {
	case BackendMemory, BackendFile:
	case BackendPostgres:
		if s.Wishlist.DatabaseURL == "" {
			return fmt.Errorf("wishlist backend %q requires a database url (DATABASE_URL)", s.Wishlist.Backend)
		}
	default:
		return fmt.Errorf("unknown wishlist backend %q", s.Wishlist.Backend)
	}

	if s.Location.Fallback != nil && !s.Location.Fallback.Valid() {
		return fmt.Errorf("location.fallback: %w", geo.ErrInvalidCoordinate)
	}
	return nil
}

// Config holds all the configuration settings for our application.
type Config struct {
	Port     int
	Env      string
	Mu       sync.RWMutex
	settings Settings
}

// NewConfig creates a new instance of a Config struct.
func NewConfig(port int, env string, settings Settings) *Config {
	return &Config{
		Port:     port,
		Env:      env,
		settings: settings,
	}
}

// UpdateSettings safely replaces the live settings.
func (cfg *Config) UpdateSettings(settings Settings) {
	cfg.Mu.Lock()
	defer cfg.Mu.Unlock()
	cfg.settings = settings
}

// GetSettings safely returns a copy of the live settings.
// Slices are copied so callers cannot modify shared state.
func (cfg *Config) GetSettings() Settings {
	cfg.Mu.RLock()
	defer cfg.Mu.RUnlock()
	s := cfg.settings
	s.Hydration.Fields = append([]string(nil), cfg.settings.Hydration.Fields...)
	s.AllowedOrigins = append([]string(nil), cfg.settings.AllowedOrigins...)
	if cfg.settings.Location.Fallback != nil {
		fallback := *cfg.settings.Location.Fallback
		s.Location.Fallback = &fallback
	}
	return s
}
