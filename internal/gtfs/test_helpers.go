package gtfs

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupGtfsServer serves a testdata fixture and counts requests.
func setupGtfsServer(t *testing.T, fixturePath string, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	data := readFixture(t, fixturePath)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func getFixturePath(t *testing.T, fixturePath string) string {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("..", "..", "testdata", fixturePath))
	if err != nil {
		t.Fatalf("Failed to get absolute path to testdata/%s: %v", fixturePath, err)
	}

	return absPath
}

func readFixture(t *testing.T, fixturePath string) []byte {
	t.Helper()

	data, err := os.ReadFile(getFixturePath(t, fixturePath))
	if err != nil {
		t.Fatalf("Failed to read fixture file: %v", err)
	}

	return data
}
