package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"explorer.placeexplorer.org/internal/app"
	"explorer.placeexplorer.org/internal/config"
	"explorer.placeexplorer.org/internal/report"
	"github.com/getsentry/sentry-go"
)

// Declare a string containing the application version number.
const version = "1.0.0"

func main() {
	var (
		port int
		env  string
	)
	flag.IntVar(&port, "port", 4000, "API server port")
	flag.StringVar(&env, "env", "development", "Environment (development|staging|production)")

	var (
		configFile = flag.String("config-file", "", "Path to a local JSON configuration file")
		configURL  = flag.String("config-url", "", "URL to a remote JSON configuration file")
	)

	flag.Parse()

	if err := config.ValidateConfigFlags(configFile, configURL); err != nil {
		fmt.Println("Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(logger, ".env"); err != nil {
		logger.Error("Failed to load environment file", "error", err)
		os.Exit(1)
	}

	configAuthUser := os.Getenv("CONFIG_AUTH_USER")
	configAuthPass := os.Getenv("CONFIG_AUTH_PASS")

	if err := report.SetupSentry(env, version); err != nil {
		logger.Warn("Sentry disabled", "error", err)
	}
	defer report.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := app.NewPooledClient()

	settings, err := config.LoadSettings(ctx, client, *configFile, *configURL, configAuthUser, configAuthPass)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	report.ConfigureScope(env, version, settings.Provider.Kind)

	cfg := config.NewConfig(port, env, settings)

	application, err := app.New(ctx, cfg, logger, client, version)
	if err != nil {
		report.ReportError(err, sentry.LevelFatal)
		logger.Error("Failed to start application", "error", err)
		report.FlushSentry()
		os.Exit(1)
	}
	defer application.Close()

	// Index the transit feed once before serving, then keep it fresh. A failed
	// first load is retried by the refresh loop.
	if application.GtfsService != nil {
		feedURL := settings.Transit.FeedURL
		if err := application.GtfsService.LoadFeed(ctx, feedURL); err != nil {
			logger.Error("Initial GTFS feed load failed", "error", err)
		}
		interval := time.Duration(settings.Transit.RefreshHours) * time.Hour
		go application.GtfsService.RefreshFeed(ctx, feedURL, interval)
	}

	application.StartMetricsCollection(ctx, 30*time.Second)

	// If a remote URL is specified, refresh the configuration every minute
	if *configURL != "" {
		go application.ConfigService.RefreshConfig(ctx, *configURL, configAuthUser, configAuthPass, time.Minute)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	if err := serve(ctx, srv, logger); err != nil {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("stopped server", "addr", srv.Addr)
}

// serve runs srv until ctx is canceled, then gives in-flight requests up to
// 10 seconds to finish. Open websockets are hijacked connections and are
// closed with the process.
func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server", "addr", srv.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
