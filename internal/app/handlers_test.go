package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/gtfs"
	"explorer.placeexplorer.org/internal/places"
)

func TestHealthcheckHandler(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})

	rr := httptest.NewRecorder()
	request, err := http.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	if err != nil {
		t.Fatal(err)
	}
	app.healthcheckHandler(rr, request)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp HealthStatus
	decodeBody(t, rr, &resp)

	if resp.Status != "available" {
		t.Errorf("expected status 'available', got %q", resp.Status)
	}
	if resp.Environment != "testing" {
		t.Errorf("expected environment 'testing', got %q", resp.Environment)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version 'test-version', got %q", resp.Version)
	}
	if resp.Provider != config.ProviderGoogle {
		t.Errorf("expected provider %q, got %q", config.ProviderGoogle, resp.Provider)
	}
	if !resp.Ready {
		t.Errorf("expected ready true, got false")
	}
}

func TestHealthcheckHandlerNotReady(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})
	settings := app.ConfigService.Config.GetSettings()
	settings.Provider.Kind = config.ProviderGTFS
	app.ConfigService.Config.UpdateSettings(settings)
	app.GtfsService = gtfs.NewGtfsService(gtfs.NewStopStore(), config.NewBackoffStore(), app.Logger, http.DefaultClient)

	rr := serve(t, app, http.MethodGet, "/v1/healthcheck", nil)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 before the feed is loaded, got %d", rr.Code)
	}

	var resp HealthStatus
	decodeBody(t, rr, &resp)
	if resp.Ready {
		t.Error("expected ready false")
	}
}

func TestRoutesMiddleware(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})

	t.Run("unknown route", func(t *testing.T) {
		rr := serve(t, app, http.MethodGet, "/v1/nowhere", nil)
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rr := serve(t, app, http.MethodGet, "/v1/search", nil)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rr.Code)
		}
	})

	t.Run("headers", func(t *testing.T) {
		rr := serve(t, app, http.MethodGet, "/v1/healthcheck", nil)
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("missing security headers")
		}
		if rr.Header().Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type %q", rr.Header().Get("Content-Type"))
		}
	})

	t.Run("metrics", func(t *testing.T) {
		rr := serve(t, app, http.MethodGet, "/metrics", nil)
		if rr.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rr.Code)
		}
	})
}

func TestReadJSON(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"malformed", `{"category": "cafe"`},
		{"wrong type", `{"category": 5}`},
		{"unknown field", `{"category": "cafe", "radius": 5}`},
		{"two values", `{"category": "cafe"}{"category": "bar"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(t, app, http.MethodPost, "/v1/search", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]any
			decodeBody(t, rr, &resp)
			if resp["error"] == "" || resp["error"] == nil {
				t.Error("expected an error message")
			}
		})
	}
}
