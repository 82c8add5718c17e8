package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"explorer.placeexplorer.org/internal/metrics"
	"explorer.placeexplorer.org/internal/places"
	"github.com/gorilla/websocket"
)

func startEventsServer(t *testing.T, app *Application) (*httptest.Server, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(app.Routes(ctx))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/wishlist/events"
}

func readEvent(t *testing.T, conn *websocket.Conn) wishlistEvent {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	var ev wishlistEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	return ev
}

func TestWishlistEvents(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})
	if _, err := app.Wishlist.Add(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	srv, wsURL := startEventsServer(t, app)

	before, err := metrics.GaugeValue(metrics.ActiveViews)
	if err != nil {
		t.Fatal(err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	snapshot := readEvent(t, conn)
	if snapshot.Type != eventSnapshot || !equalIDs(snapshot.IDs, []string{"p1"}) || snapshot.Count != 1 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/wishlist/p2", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	changed := readEvent(t, conn)
	if changed.Type != eventChanged || !equalIDs(changed.IDs, []string{"p1", "p2"}) {
		t.Fatalf("unexpected change event %+v", changed)
	}

	if _, err := app.Wishlist.Remove(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	changed = readEvent(t, conn)
	if !equalIDs(changed.IDs, []string{"p2"}) || changed.Count != 1 {
		t.Fatalf("unexpected change event %+v", changed)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		after, err := metrics.GaugeValue(metrics.ActiveViews)
		if err != nil {
			t.Fatal(err)
		}
		if after == before {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("view not released: active views %v, started at %v", after, before)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWishlistEventsOrigin(t *testing.T) {
	app := newTestApplication(t, &places.StubBackend{})
	_, wsURL := startEventsServer(t, app)

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err == nil {
		t.Fatal("expected the handshake to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %v", resp)
	}

	header.Set("Origin", "http://localhost:3000")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("trusted origin refused: %v", err)
	}
	defer conn.Close()
	if ev := readEvent(t, conn); ev.Type != eventSnapshot || ev.IDs == nil {
		t.Errorf("unexpected snapshot %+v", ev)
	}
}
