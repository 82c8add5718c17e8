package report_test

import (
	"errors"
	"os"
	"testing"

	"explorer.placeexplorer.org/internal/report"
	"github.com/getsentry/sentry-go"
)

func TestSetupSentry(t *testing.T) {
	t.Run("Valid DSN", func(t *testing.T) {
		os.Setenv("SENTRY_DSN", "https://public@sentry.example.com/1")
		defer os.Unsetenv("SENTRY_DSN")

		if err := report.SetupSentry("testing", "test-version"); err != nil {
			t.Fatalf("SetupSentry failed: %v", err)
		}
		report.FlushSentry()
	})

	t.Run("Empty DSN", func(t *testing.T) {
		os.Unsetenv("SENTRY_DSN")
		if err := report.SetupSentry("testing", "test-version"); err != nil {
			t.Fatalf("expected empty DSN to be accepted, got %v", err)
		}
	})

	t.Run("Malformed DSN", func(t *testing.T) {
		os.Setenv("SENTRY_DSN", "::not a dsn::")
		defer os.Unsetenv("SENTRY_DSN")

		if err := report.SetupSentry("testing", "test-version"); err == nil {
			t.Error("expected error for malformed DSN")
		}
	})
}

func TestReportErrorWithSentryOptions(t *testing.T) {
	// Reporting must be safe with a nil error and with no client bound.
	report.ReportErrorWithSentryOptions(nil, report.SentryReportOptions{})
	report.ReportErrorWithSentryOptions(errors.New("boom"), report.SentryReportOptions{
		Tags:         map[string]string{"component": "test"},
		ExtraContext: map[string]interface{}{"place_id": "abc"},
		Level:        sentry.LevelWarning,
	})
	report.ReportError(errors.New("boom"))
}
