package places

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"

	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/models"
	"googlemaps.github.io/maps"
)

// googleStatusError matches the status the maps client folds into its errors,
// e.g. "maps: REQUEST_DENIED - The provided API key is invalid."
var googleStatusError = regexp.MustCompile(`^maps: ([A-Z_]+) - `)

// GoogleProvider answers nearby searches and detail lookups from the Places
// web service through the maps client.
type GoogleProvider struct {
	client *maps.Client
}

// NewGoogleProvider builds a maps client on the shared HTTP client. baseURL
// overrides the web service host (https://maps.googleapis.com) and is only
// set for tests and proxies.
func NewGoogleProvider(client *http.Client, baseURL, apiKey string) (*GoogleProvider, error) {
	opts := []maps.ClientOption{maps.WithAPIKey(apiKey), maps.WithHTTPClient(client)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	mc, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleProvider{client: mc}, nil
}

func (p *GoogleProvider) Search(ctx context.Context, center geo.Coordinate, radiusMeters float64, category string) (Status, []models.RawPlace, error) {
	req := &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: center.Latitude, Lng: center.Longitude},
		Radius:   uint(math.Max(1, radiusMeters)),
		Type:     maps.PlaceType(category),
	}
	resp, err := p.client.NearbySearch(ctx, req)
	if err != nil {
		return statusOf(err)
	}
	if len(resp.Results) == 0 {
		return StatusZeroResults, nil, nil
	}

	raw := make([]models.RawPlace, 0, len(resp.Results))
	for _, r := range resp.Results {
		raw = append(raw, googleRaw(r.PlaceID, r.Name, r.Vicinity, r.Types, r.Geometry, r.Rating, r.UserRatingsTotal, r.OpeningHours, r.Photos))
	}
	return StatusOK, raw, nil
}

func (p *GoogleProvider) Details(ctx context.Context, placeID string, fields []string) (Status, models.RawPlace, error) {
	req := &maps.PlaceDetailsRequest{PlaceID: placeID}
	for _, f := range fields {
		mask, err := maps.ParsePlaceDetailsFieldMask(f)
		if err != nil {
			return "", models.RawPlace{}, fmt.Errorf("detail field %q: %w", f, err)
		}
		req.Fields = append(req.Fields, mask)
	}

	r, err := p.client.PlaceDetails(ctx, req)
	if err != nil {
		status, _, err := statusOf(err)
		return status, models.RawPlace{}, err
	}
	return StatusOK, googleRaw(r.PlaceID, r.Name, r.Vicinity, r.Types, r.Geometry, r.Rating, r.UserRatingsTotal, r.OpeningHours, r.Photos), nil
}

// statusOf turns a web service status carried in a maps error back into a
// Status. Anything else (transport, decoding, request validation) stays an
// error.
func statusOf(err error) (Status, []models.RawPlace, error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", nil, err
	}
	if m := googleStatusError.FindStringSubmatch(err.Error()); m != nil {
		return Status(m[1]), nil, nil
	}
	return "", nil, fmt.Errorf("places request failed: %w", err)
}

func googleRaw(id, name, vicinity string, types []string, geometry maps.AddressGeometry, rating float32, ratings int, hours *maps.OpeningHours, photos []maps.Photo) models.RawPlace {
	r := models.RawPlace{
		ID:       id,
		Name:     name,
		Vicinity: vicinity,
		Types:    types,
	}
	// The client decodes absent coordinates and ratings as zero.
	if geometry.Location != (maps.LatLng{}) {
		lat, lng := geometry.Location.Lat, geometry.Location.Lng
		r.Latitude, r.Longitude = &lat, &lng
	}
	if rating > 0 || ratings > 0 {
		// Round-trip through the shortest float32 text so 4.4 stays 4.4.
		v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(rating), 'f', -1, 32), 64)
		r.Rating = &v
	}
	if ratings > 0 {
		n := ratings
		r.RatingCount = &n
	}
	if hours != nil {
		r.OpenNow = hours.OpenNow
	}
	if len(photos) > 0 {
		r.PhotoRef = photos[0].PhotoReference
	}
	return r
}
