package config

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"explorer.placeexplorer.org/internal/report"
	"explorer.placeexplorer.org/internal/utils"
	"github.com/getsentry/sentry-go"
)

// maxConfigRetries bounds DoWithBackoff attempts for a single config fetch.
const maxConfigRetries = 5

// ConfigService holds dependencies and provides config operations.
type ConfigService struct {
	Logger *slog.Logger
	Client *http.Client
	Config *Config
}

// NewConfigService creates a new ConfigService instance with the provided logger and HTTP client.
func NewConfigService(logger *slog.Logger, client *http.Client, config *Config) *ConfigService {
	return &ConfigService{
		Logger: logger,
		Client: client,
		Config: config,
	}
}

func (cs *ConfigService) RefreshConfig(ctx context.Context, url, authUser, authPass string, interval time.Duration) {
	refreshConfig(ctx, cs.Client, url, authUser, authPass, cs.Config, cs.Logger, interval, maxConfigRetries)
}

// exported helper functions

// LoadSettings resolves settings from whichever source was given on the
// command line, falling back to defaults plus environment variables.
func LoadSettings(ctx context.Context, client *http.Client, configFile, configURL, authUser, authPass string) (Settings, error) {
	switch {
	case configFile != "":
		return LoadConfigFromFile(configFile)
	case configURL != "":
		return LoadConfigFromURL(ctx, client, configURL, authUser, authPass)
	default:
		return finalizeSettings(Settings{})
	}
}

// Load config from file.
func LoadConfigFromFile(filePath string) (Settings, error) {
	settings, err := loadConfigFromFile(filePath)
	if err != nil {
		err := fmt.Errorf("failed to load config from file %s: %w", filePath, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("file_path", filePath),
			Level: sentry.LevelError,
		})
		return Settings{}, err
	}
	return settings, nil
}

// Load config from URL.
func LoadConfigFromURL(ctx context.Context, client *http.Client, url, authUser, authPass string) (Settings, error) {
	settings, err := loadConfigFromURL(ctx, client, url, authUser, authPass, maxConfigRetries)
	if err != nil {
		err := fmt.Errorf("failed to load config from URL %s: %w", url, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags:  utils.MakeMap("config_url", url),
			Level: sentry.LevelError,
		})
		return Settings{}, err
	}
	return settings, nil
}
