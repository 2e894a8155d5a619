// Command climate builds the temperature dataset and serves the explorer page.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-explorer/internal/adapter/csvfile"
	httpadapter "github.com/couchcryptid/climate-explorer/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/climate-explorer/internal/adapter/kafka"
	"github.com/couchcryptid/climate-explorer/internal/adapter/postgres"
	"github.com/couchcryptid/climate-explorer/internal/config"
	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/observability"
	"github.com/couchcryptid/climate-explorer/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()

	loaders, closers, err := newLoaders(cfg, logger)
	if err != nil {
		logger.Error("failed to create exporters", "error", err)
		return 1
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("exporter close error", "error", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The dataset is built before the listener opens, so a load failure never
	// leaves a half-started server behind.
	p, ds, err := buildDataset(ctx, cfg, loaders, logger, metrics)
	if err != nil {
		logger.Error("failed to build dataset", "error", err)
		return 1
	}

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:        cfg.HTTPAddr,
		DefaultYear: cfg.DefaultYear,
	}, p, p, metrics, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Export failures are logged and counted; they never stop the server.
	g.Go(func() error {
		if err := p.Export(gctx, ds); err != nil {
			logger.Error("export incomplete", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", "error", err)
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

// buildDataset loads the input tables named in cfg and builds the dataset.
// The returned pipeline is ready and holds the dataset.
func buildDataset(ctx context.Context, cfg *config.Config, loaders []pipeline.Loader, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Pipeline, *domain.Dataset, error) {
	source := csvfile.NewSource(csvfile.Paths{
		Temperatures: cfg.TemperaturesPath,
		Continents:   cfg.ContinentsPath,
		Countries:    cfg.CountriesPath,
		Aliases:      cfg.CountryAliasesPath,
	}, logger)
	years := domain.ReferenceYears{Base: cfg.BaseYear, Late: cfg.LateYear}
	p := pipeline.New(source, years, loaders, logger, metrics, cfg.ExportMaxAttempts)

	ds, err := p.Build(ctx)
	if err != nil {
		return nil, nil, err
	}
	return p, ds, nil
}

// newLoaders creates the delta exporters enabled in cfg.
func newLoaders(cfg *config.Config, logger *slog.Logger) ([]pipeline.Loader, []io.Closer, error) {
	var (
		loaders []pipeline.Loader
		closers []io.Closer
	)
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewDeltaWriter(cfg, logger)
		loaders = append(loaders, w)
		closers = append(closers, w)
		logger.Info("kafka export enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaDeltaTopic)
	}
	if cfg.PostgresEnabled() {
		s, err := postgres.NewDeltaStore(cfg.PostgresDSN, logger)
		if err != nil {
			return nil, closers, err
		}
		loaders = append(loaders, s)
		closers = append(closers, s)
		logger.Info("postgres export enabled", "table", postgres.DefaultTable)
	}
	if len(loaders) == 0 {
		logger.Info("delta export disabled")
	}
	return loaders, closers, nil
}
