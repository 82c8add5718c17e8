package app

import (
	"net/http"
	"strings"
	"time"

	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"explorer.placeexplorer.org/internal/wishlist"
	"github.com/getsentry/sentry-go"
	"github.com/gorilla/websocket"
)

const (
	eventSnapshot = "snapshot"
	eventChanged  = "changed"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 512
)

// wishlistEvent is one message on the events socket. The first message is a
// snapshot; every later one is the full set after a change.
type wishlistEvent struct {
	Type  string   `json:"type"`
	IDs   []string `json:"ids"`
	Count int      `json:"count"`
}

func newEvent(kind string, ids []string) wishlistEvent {
	if ids == nil {
		ids = []string{}
	}
	return wishlistEvent{Type: kind, IDs: ids, Count: len(ids)}
}

// originAllowed accepts requests without an Origin header (non-browser
// clients) and browsers on a configured origin.
func (app *Application) originAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range app.allowedOrigins() {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (app *Application) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		HandshakeTimeout: 5 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin: func(r *http.Request) bool {
			return app.originAllowed(r.Header.Get("Origin"))
		},
	}
}

// wishlistEventsHandler keeps one wishlist view open for the lifetime of the
// socket, so a browser tab stays in sync with mutations made from any other
// tab or process. The view is closed when the client goes away.
func (app *Application) wishlistEventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := app.upgrader().Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		app.Logger.Warn("Wishlist events upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	view, err := wishlist.NewView(r.Context(), app.Wishlist)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeTags("component", "wishlist", "route", r.URL.Path),
			Level: sentry.LevelError,
		})
		app.Logger.Error("Failed to open wishlist view", "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "wishlist unavailable"),
			time.Now().Add(writeWait))
		return
	}
	defer view.Close()

	if err := writeEvent(conn, newEvent(eventSnapshot, view.IDs())); err != nil {
		return
	}

	gone := make(chan struct{})
	go readUntilClosed(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case ids, ok := <-view.Updates():
			if !ok {
				return
			}
			if err := writeEvent(conn, newEvent(eventChanged, ids)); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev wishlistEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(ev)
}

// readUntilClosed drains client frames so control messages are processed,
// and closes gone when the connection fails or the client stops answering
// pings.
func readUntilClosed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
