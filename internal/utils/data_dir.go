package utils

import (
	"fmt"
	"log/slog"
	"os"

	"explorer.placeexplorer.org/internal/report"
	"github.com/getsentry/sentry-go"
)

// CreateDataDirectory ensures the directory used for file-backed state exists,
// creating it if necessary.
func CreateDataDirectory(dataDir string, logger *slog.Logger) error {
	stat, err := os.Stat(dataDir)

	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
					Level: sentry.LevelError,
					ExtraContext: map[string]interface{}{
						"data_dir": dataDir,
					},
				})
				return err
			}
			logger.Info("Created data directory", "data_dir", dataDir)
			return nil
		}
		return err

	}
	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", dataDir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelError,
			ExtraContext: map[string]interface{}{
				"data_dir": dataDir,
			},
		})
		return err
	}
	return nil
}
