package config

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
)

// ValidateConfigFlags ensures that at most one configuration source is specified:
// either a config file "--config-file" or a remote config URL "--config-url".
// Supplying neither is allowed; defaults plus environment variables are used.
//
// Returns an error if more than one input method is specified.
func ValidateConfigFlags(configFile, configURL *string) error {
	if (*configFile != "" && *configURL != "") || (*configFile != "" && len(flag.Args()) > 0) || (*configURL != "" && len(flag.Args()) > 0) {
		return fmt.Errorf("only one of --config-file or --config-url can be specified")
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(logger *slog.Logger, files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
		logger.Info("Loaded environment file", "path", f)
	}
	return nil
}

// ApplyEnv overlays secrets and endpoints from the environment on top of the
// loaded settings. Environment values win over the JSON document.
func ApplyEnv(s *Settings) {
	if v := os.Getenv("PLACES_API_KEY"); v != "" {
		s.Provider.APIKey = v
	}
	if v := os.Getenv("PLACES_PROVIDER"); v != "" {
		s.Provider.Kind = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		s.Wishlist.DatabaseURL = v
	}
	if v := os.Getenv("ELASTICSEARCH_URL"); v != "" {
		s.Elastic.URL = v
	}
	if v := os.Getenv("GTFS_FEED_URL"); v != "" {
		s.Transit.FeedURL = v
	}
}

// finalizeSettings applies defaults and environment overrides and validates the result.
func finalizeSettings(s Settings) (Settings, error) {
	s.ApplyDefaults()
	ApplyEnv(&s)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// refreshConfig starts a loop that periodically fetches configuration from a
// remote URL and replaces the live settings.
//
// Errors during fetch or parse are logged and reported to Sentry, but the loop
// continues, keeping the last good settings in place.
//
// The routine stops gracefully when the context is canceled.
func refreshConfig(ctx context.Context, client *http.Client, configURL, configAuthUser, configAuthPass string, cfg *Config, logger *slog.Logger, interval time.Duration, maxRetries int) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping config refresh routine")
			return
		case <-ticker.C:
			settings, err := loadConfigFromURL(ctx, client, configURL, configAuthUser, configAuthPass, maxRetries)
			if err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Tags:  utils.MakeMap("config_url", configURL),
					Level: sentry.LevelError,
				})
				logger.Error("Failed to refresh remote config", "error", err)
				continue
			}
			cfg.UpdateSettings(settings)
			logger.Info("Successfully refreshed configuration")
		}
	}
}

// loadConfigFromFile reads a JSON configuration file from disk and decodes it
// into Settings with defaults and environment overrides applied.
//
// This function is used when the application is configured with --config-file.
func loadConfigFromFile(filePath string) (Settings, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return finalizeSettings(settings)
}

// loadConfigFromURL fetches a JSON configuration from a remote HTTP(S) endpoint,
// using the provided client and optional basic authentication. Transient
// failures are retried with DoWithBackoff.
//
// Errors are reported to Sentry for observability.
func loadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string, maxRetries int) (Settings, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to create request: %w", err)
	}

	if authUser != "" && authPass != "" {
		req.SetBasicAuth(authUser, authPass)
	}

	resp, err := DoWithBackoff(ctx, client, req, maxRetries)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to fetch remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := fmt.Errorf("remote config returned status: %d", resp.StatusCode)
		report.ReportErrorWithSentryOptions(statusErr, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, statusErr
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to read remote config: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return finalizeSettings(settings)
}
