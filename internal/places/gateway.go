package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/metrics"
	"explorer.placeexplorer.org/internal/models"
	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

var (
	// ErrProviderUnavailable is returned when no provider has been wired in.
	ErrProviderUnavailable = errors.New("place provider unavailable")
	// ErrSearchFailed is returned when a nearby search does not succeed.
	ErrSearchFailed = errors.New("place search failed")
	// ErrDetailsFailed is returned when a single detail lookup does not succeed.
	ErrDetailsFailed = errors.New("place details failed")
)

// Status is the outcome a provider reports alongside its payload. The values
// follow the Places web service vocabulary.
type Status string

const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusNotFound       Status = "NOT_FOUND"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusOverQuotaLimit Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusUnknownError   Status = "UNKNOWN_ERROR"
)

// DefaultDetailFields is the field set requested when hydrating saved places.
var DefaultDetailFields = []string{
	"place_id", "name", "vicinity", "geometry", "photos", "rating", "user_ratings_total", "opening_hours",
}

// SearchProvider finds raw places around a center. Implementations apply only
// the upper radius bound.
type SearchProvider interface {
	Search(ctx context.Context, center geo.Coordinate, radiusMeters float64, category string) (Status, []models.RawPlace, error)
}

// DetailProvider fetches one place by id.
type DetailProvider interface {
	Details(ctx context.Context, placeID string, fields []string) (Status, models.RawPlace, error)
}

// Gateway is the single entry point to the place providers. It clamps the
// radius, normalizes provider records and translates provider statuses into
// ErrSearchFailed or ErrDetailsFailed. It never retries.
type Gateway struct {
	search    SearchProvider
	details   DetailProvider
	maxRadius float64
	logger    *slog.Logger
}

// NewGateway wires the providers. Either may be nil; calls against a nil
// provider fail with ErrProviderUnavailable.
func NewGateway(search SearchProvider, details DetailProvider, maxRadiusMeters float64, logger *slog.Logger) *Gateway {
	return &Gateway{
		search:    search,
		details:   details,
		maxRadius: maxRadiusMeters,
		logger:    logger,
	}
}

// MaxRadius is the largest radius the provider is asked for.
func (g *Gateway) MaxRadius() float64 {
	return g.maxRadius
}

// FindNearby returns normalized summaries within radiusMeters of origin.
// ZERO_RESULTS is a successful empty search, unlike the browser client this
// service replaces, which rejected every status other than OK. A provider
// error that already wraps ErrProviderUnavailable is returned as is.
func (g *Gateway) FindNearby(ctx context.Context, origin geo.Coordinate, radiusMeters float64, category string) ([]models.PlaceSummary, error) {
	if g == nil || g.search == nil {
		return nil, ErrProviderUnavailable
	}
	if math.IsNaN(radiusMeters) || radiusMeters < 0 {
		return nil, fmt.Errorf("%w: radius %v", ErrSearchFailed, radiusMeters)
	}
	radius := radiusMeters
	if g.maxRadius > 0 && radius > g.maxRadius {
		radius = g.maxRadius
	}

	status, raw, err := g.search.Search(ctx, origin, radius, category)
	if errors.Is(err, ErrProviderUnavailable) {
		metrics.ProviderRequests.WithLabelValues("search", "unavailable").Inc()
		g.logger.Warn("Place provider not ready", "category", category, "error", err)
		return nil, err
	}
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("search", "transport_error").Inc()
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeTags("component", "search_gateway", "category", category),
			ExtraContext: map[string]interface{}{
				"radius_meters": radius,
				"origin_cell":   geo.CellToken(origin),
			},
			Level: sentry.LevelError,
		})
		return nil, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	metrics.ProviderRequests.WithLabelValues("search", string(status)).Inc()

	switch status {
	case StatusOK:
	case StatusZeroResults:
		return []models.PlaceSummary{}, nil
	default:
		g.logger.Warn("Place search returned non-success status", "status", status, "category", category)
		return nil, fmt.Errorf("%w: provider status %s", ErrSearchFailed, status)
	}

	summaries := make([]models.PlaceSummary, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		s, ok := r.Summary()
		if !ok {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// FetchDetails returns the summary of one place. Every failure wraps
// ErrDetailsFailed so batch callers can mark the id and carry on.
func (g *Gateway) FetchDetails(ctx context.Context, placeID string, fields []string) (models.PlaceSummary, error) {
	if g == nil || g.details == nil {
		return models.PlaceSummary{}, fmt.Errorf("%w: %w", ErrDetailsFailed, ErrProviderUnavailable)
	}
	if len(fields) == 0 {
		fields = DefaultDetailFields
	}

	status, raw, err := g.details.Details(ctx, placeID, fields)
	if err != nil {
		metrics.ProviderRequests.WithLabelValues("details", "transport_error").Inc()
		return models.PlaceSummary{}, fmt.Errorf("%w: %s: %w", ErrDetailsFailed, placeID, err)
	}
	metrics.ProviderRequests.WithLabelValues("details", string(status)).Inc()

	if status != StatusOK {
		return models.PlaceSummary{}, fmt.Errorf("%w: %s: provider status %s", ErrDetailsFailed, placeID, status)
	}

	if raw.ID == "" {
		raw.ID = placeID
	}
	summary, ok := raw.Summary()
	if !ok {
		return models.PlaceSummary{}, fmt.Errorf("%w: %s: empty record", ErrDetailsFailed, placeID)
	}
	return summary, nil
}
