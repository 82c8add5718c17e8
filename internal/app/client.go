package app

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"explorer.placeexplorer.org/internal/metrics"
)

// latencyTrackingRoundTripper records the duration of every outgoing request
// in metrics.OutgoingLatency, labeled by URL (without query, so API keys never
// become label values), method and status.
type latencyTrackingRoundTripper struct {
	next http.RoundTripper
}

func (rt *latencyTrackingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	duration := time.Since(start).Seconds()

	status := "error"
	if err == nil && resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	safeURL := req.URL.Scheme + "://" + req.URL.Host + req.URL.Path
	metrics.OutgoingLatency.WithLabelValues(safeURL, req.Method, status).Observe(duration)

	return resp, err
}

// NewPooledClient returns the HTTP client shared by the place providers, the
// IP locator, the GTFS feed download and the remote config fetch.
//
// Connections are kept alive across searches, dials and TLS handshakes fail
// after 5s, and a whole request (including a feed download) is capped at
// 30s. Latency is exported through latencyTrackingRoundTripper.
func NewPooledClient() *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Transport: &latencyTrackingRoundTripper{next: transport},
		Timeout:   30 * time.Second,
	}
}
