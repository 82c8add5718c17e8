package report

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// SetupSentry initializes the Sentry client from SENTRY_DSN. An empty DSN
// leaves the SDK in no-op mode, which is what local single-user runs get.
func SetupSentry(env, version string) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              os.Getenv("SENTRY_DSN"),
		Environment:      env,
		Release:          "place-explorer@" + version,
		EnableTracing:    true,
		TracesSampleRate: 0.2,
		AttachStacktrace: true,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	sentry.CaptureMessage("Place explorer started")
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
