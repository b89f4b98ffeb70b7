package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/stormview/internal/adapter/backend"
	kafkaadapter "github.com/couchcryptid/stormview/internal/adapter/kafka"
	"github.com/couchcryptid/stormview/internal/config"
	"github.com/couchcryptid/stormview/internal/domain"
	"github.com/couchcryptid/stormview/internal/observability"
)

// globals carries the process-wide values bound into every command.
type globals struct {
	out     io.Writer
	errOut  io.Writer
	metrics *observability.Metrics
}

// app is the wired dependency graph shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *backend.Client
	images   backend.ImageSource
	observer domain.Observers
	closers  []func() error
}

// newApp loads configuration and builds the backend client, image cache and
// observers. Logs go to logOut; a nil logOut sends them to STORMVIEW_LOG_FILE,
// or nowhere when it is unset, because the terminal belongs to the dashboard.
func newApp(rt *globals, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	a := &app{cfg: cfg}
	if logOut == nil {
		logOut = io.Discard
		if cfg.LogFile != "" {
			f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file: %w", err)
			}
			logOut = f
			a.closers = append(a.closers, f.Close)
		}
	}
	logger := observability.NewLogger(cfg, logOut)

	client := backend.NewClient(cfg.APIURL, cfg.RainURL, cfg.HTTPTimeout, logger, rt.metrics)
	a.logger = logger
	a.client = client
	a.images = backend.NewCachedImages(client, cfg.ImageCacheSize, rt.metrics)
	a.observer = domain.Observers{
		observability.NewLogObserver(logger),
		observability.NewMetricsObserver(rt.metrics),
	}

	// Event publishing is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	if cfg.KafkaEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		a.observer = append(a.observer, pub)
		a.closers = append(a.closers, pub.Close)
		logger.Info("kafka event publishing enabled", "topic", cfg.KafkaEventsTopic, "brokers", cfg.KafkaBrokers)
	}
	return a, nil
}

// inspect loads loc through the image cache and checks that it decodes.
func (a *app) inspect(ctx context.Context, loc domain.ImageLocator) (backend.ImageInfo, error) {
	return backend.Inspect(ctx, a.images, loc)
}

// Close releases the publisher and anything else that holds connections.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
