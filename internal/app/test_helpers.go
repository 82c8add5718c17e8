package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/discovery"
	"explorer.placeexplorer.org/internal/geo"
	"explorer.placeexplorer.org/internal/places"
	"explorer.placeexplorer.org/internal/wishlist"
)

// testOrigin is the device position used across handler tests.
var testOrigin = geo.Coordinate{Latitude: 40, Longitude: -75}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestApplication wires the handlers to an in-memory provider and
// wishlist. A nil backend leaves the gateway without a provider.
func newTestApplication(t *testing.T, backend *places.StubBackend) *Application {
	t.Helper()

	logger := testLogger()
	settings := config.DefaultSettings()
	settings.Provider.APIKey = "test-key"
	settings.Wishlist.Backend = config.BackendMemory
	cfg := config.NewConfig(4000, "testing", settings)

	var gateway *places.Gateway
	if backend != nil {
		gateway = places.NewGateway(backend, backend, settings.Provider.MaxRadiusMeters, logger)
	} else {
		gateway = places.NewGateway(nil, nil, settings.Provider.MaxRadiusMeters, logger)
	}

	return &Application{
		ConfigService: config.NewConfigService(logger, http.DefaultClient, cfg),
		Gateway:       gateway,
		Pipeline:      discovery.NewPipeline(gateway, logger),
		Wishlist:      wishlist.NewStore(wishlist.NewMemoryKV(), gateway, logger),
		Logger:        logger,
		Version:       "test-version",
	}
}

// serve runs one request through the full middleware chain.
func serve(t *testing.T, app *Application, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		js, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(js)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	app.Routes(ctx).ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}
