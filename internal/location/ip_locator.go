package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

// DefaultIPLookupURL is an ip-api compatible endpoint.
const DefaultIPLookupURL = "http://ip-api.com/json/?fields=status,message,lat,lon"

// ipLookupResponse is the subset of the ip-api response we read.
type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// IPLocator approximates the device position from its public IP address.
type IPLocator struct {
	client *http.Client
	url    string
}

func NewIPLocator(client *http.Client, url string) *IPLocator {
	if url == "" {
		url = DefaultIPLookupURL
	}
	return &IPLocator{client: client, url: url}
}

// Position performs one lookup. A lookup the service declines ("fail" status,
// private or reserved ranges) is a denial; transport failures are unavailability.
func (l *IPLocator) Position(ctx context.Context) (geo.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeTags("component", "location", "provider", "ip"),
			Level: sentry.LevelWarning,
		})
		return geo.Coordinate{}, fmt.Errorf("%w: ip lookup failed: %w", ErrLocationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("%w: ip lookup returned status %d", ErrLocationUnavailable, resp.StatusCode)
	}

	var body ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coordinate{}, fmt.Errorf("%w: decoding ip lookup: %w", ErrLocationUnavailable, err)
	}
	if body.Status != "success" {
		return geo.Coordinate{}, fmt.Errorf("%w: ip lookup declined: %s", ErrLocationDenied, body.Message)
	}
	return geo.NewCoordinate(body.Lat, body.Lon)
}
