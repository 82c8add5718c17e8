package gtfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/metrics"
	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
	remoteGtfs "github.com/jamespfennell/gtfs"
)

// loadFeed fetches a GTFS static bundle, parses it and replaces the stop index.
// feedURL may be an http(s) URL or a path to a local zip file.
func loadFeed(ctx context.Context, client *http.Client, feedURL string, store *StopStore, logger *slog.Logger, maxRetries int) error {
	data, err := readFeed(ctx, client, feedURL, maxRetries)
	if err != nil {
		return err
	}

	static, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		err = fmt.Errorf("failed to parse GTFS static data from %s: %w", feedURL, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("feed_url", feedURL),
		})
		return err
	}

	count := store.Set(static)
	metrics.TransitStopsLoaded.WithLabelValues(feedLabel(feedURL)).Set(float64(count))
	logger.Info("Indexed GTFS stops", "feed", feedLabel(feedURL), "stops", count, "total_stops", len(static.Stops))
	return nil
}

func readFeed(ctx context.Context, client *http.Client, feedURL string, maxRetries int) ([]byte, error) {
	if !strings.HasPrefix(feedURL, "http://") && !strings.HasPrefix(feedURL, "https://") {
		data, err := os.ReadFile(strings.TrimPrefix(feedURL, "file://"))
		if err != nil {
			return nil, fmt.Errorf("failed to read GTFS bundle %s: %w", feedURL, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", feedURL, err)
	}

	resp, err := config.DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		err = fmt.Errorf("failed to make GET request to %s: %w", feedURL, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("feed_url", feedURL),
		})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected response status %d when downloading GTFS bundle from %s", resp.StatusCode, feedURL)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: utils.MakeMap("feed_url", feedURL),
			ExtraContext: map[string]interface{}{
				"status": resp.Status,
			},
		})
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		err = fmt.Errorf("failed to read GTFS bundle response body from %s: %w", feedURL, err)
		report.ReportError(err)
		return nil, err
	}
	return data, nil
}

// refreshFeed reloads the feed on every tick. A failed load keeps the previous
// index and pushes the next attempt out through the backoff store, so a broken
// feed is not hammered on every tick.
func refreshFeed(ctx context.Context, client *http.Client, feedURL string, store *StopStore, backoff *config.BackoffStore, logger *slog.Logger, interval time.Duration, maxRetries int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping GTFS feed refresh routine")
			return
		case now := <-ticker.C:
			if !backoff.ShouldAttempt(feedURL, now) {
				next, _ := backoff.NextRetryAt(feedURL)
				logger.Debug("Skipping GTFS refresh during backoff", "feed", feedLabel(feedURL), "next_retry_at", next)
				continue
			}
			logger.Info("Refreshing GTFS feed", "feed", feedLabel(feedURL))
			if err := loadFeed(ctx, client, feedURL, store, logger, maxRetries); err != nil {
				backoff.UpdateBackoff(feedURL)
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeMap("feed_url", feedURL),
					Level: sentry.LevelWarning,
				})
				logger.Error("Failed to refresh GTFS feed", "feed", feedLabel(feedURL), "error", err)
				continue
			}
			backoff.ResetBackoff(feedURL)
		}
	}
}

// feedLabel strips the query string, which often carries an API key.
func feedLabel(feedURL string) string {
	if i := strings.IndexByte(feedURL, '?'); i >= 0 {
		return feedURL[:i]
	}
	return feedURL
}
