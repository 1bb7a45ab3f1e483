package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeremytraini/auscal/internal/api"
	"github.com/jeremytraini/auscal/internal/api/handlers"
	"github.com/jeremytraini/auscal/internal/cache"
	"github.com/jeremytraini/auscal/internal/config"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/enrichment"
	"github.com/jeremytraini/auscal/internal/enrichment/holidays"
	"github.com/jeremytraini/auscal/internal/enrichment/weather"
	"github.com/jeremytraini/auscal/internal/fetch"
	"github.com/jeremytraini/auscal/internal/geocoding"
	"github.com/jeremytraini/auscal/internal/geocoding/nominatim"
	"github.com/jeremytraini/auscal/internal/jobs"
	"github.com/jeremytraini/auscal/internal/metrics"
	"github.com/jeremytraini/auscal/internal/storage/postgres"
	"github.com/jeremytraini/auscal/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const (
	cacheSweepSchedule = "@every 10m"
	// providerRatePerSec throttles 7timer and Nager.Date, which publish no limit.
	providerRatePerSec = 5
)

type serveOptions struct {
	host string
	port int
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AusCal HTTP server",
		Long: `Start the AusCal HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Apply database migrations when DATABASE_MIGRATE_ON_START is set
- Start the holiday prefetch and cache sweep jobs
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  auscal serve

  # Start on a specific host and port
  auscal serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  auscal serve --log-level debug

  # Start with custom config file
  auscal serve --config /etc/auscal/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			if opts.host != "" {
				cfg.Server.Host = opts.host
			}
			if opts.port != 0 {
				cfg.Server.Port = opts.port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting auscal server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if cfg.Database.MigrationsOnStart {
		if err := postgres.MigrateUp(cfg.Database.URL); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	unregisterPool, err := metrics.RegisterPool(pool)
	if err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}
	defer unregisterPool()

	store, closeCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Error().Err(err).Msg("cache close error")
		}
	}()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	loc := cfg.Location()
	clock := func() time.Time { return time.Now().In(loc) }
	gateway, holidayClient := newGateway(cfg, store, logger)

	eventOpts := []events.Option{
		events.WithClock(clock),
		events.WithEnrichTimeout(cfg.Enrichment.Timeout),
	}
	if cfg.Enrichment.Enabled {
		eventOpts = append(eventOpts, events.WithEnricher(gateway))
	} else {
		logger.Warn().Msg("enrichment disabled; event details will carry no weather or holiday data")
	}
	service := events.NewService(repo.Events(), eventOpts...)

	scheduler, err := newScheduler(cfg, store, holidayClient, clock, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := scheduler.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("scheduler shutdown error")
		}
	}()

	handler := api.NewRouter(api.Deps{
		Config:    cfg,
		Logger:    logger,
		Events:    service,
		Forecasts: gateway,
		Health:    handlers.NewHealthChecker(pool, Version, GitCommit),
		Build:     api.BuildInfo{Version: Version, GitCommit: GitCommit, BuildDate: BuildDate},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	serveErr := make(chan error, 1)
	go func() {
		defer close(serveErr)
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	return gracefulShutdown(ctx, server, serveErr, logger)
}

// newGateway builds the enrichment providers. A missing gazetteer only costs
// extra Nominatim lookups, so it is logged rather than fatal.
func newGateway(cfg config.Config, store cache.Cache, logger zerolog.Logger) (*enrichment.Gateway, *holidays.Client) {
	ec := cfg.Enrichment

	gazetteer, err := geocoding.LoadGazetteer(ec.GazetteerPath)
	if err != nil {
		logger.Warn().Err(err).Str("path", ec.GazetteerPath).Msg("suburb gazetteer unavailable; geocoding falls back to nominatim")
	} else {
		logger.Info().Int("suburbs", gazetteer.Len()).Msg("suburb gazetteer loaded")
	}

	httpClient := &http.Client{Timeout: ec.HTTPTimeout}
	searcher := nominatim.NewClient(ec.NominatimURL, ec.NominatimEmail,
		fetch.WithHTTPClient(httpClient),
		fetch.WithRateLimit(ec.NominatimPerSec),
		fetch.WithRetries(ec.MaxRetries),
	)
	providerClient := fetch.New(
		fetch.WithHTTPClient(httpClient),
		fetch.WithRateLimit(providerRatePerSec),
		fetch.WithRetries(ec.MaxRetries),
	)

	geocoder := geocoding.NewService(gazetteer, searcher, store, ec.CountryCode, logger)
	forecasts := weather.NewClient(ec.WeatherURL, providerClient, store, logger)
	holidayClient := holidays.NewClient(ec.HolidaysURL, ec.CountryCode, providerClient, store, logger)

	return enrichment.NewGateway(geocoder, forecasts, holidayClient, logger, enrichment.WithLocation(cfg.Location())), holidayClient
}

func newScheduler(cfg config.Config, store cache.Cache, provider jobs.HolidayProvider, clock func() time.Time, logger zerolog.Logger) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(logger)

	if cfg.Enrichment.Enabled && cfg.Enrichment.HolidaySchedule != "" {
		prefetch := jobs.HolidayPrefetchWorker{Provider: provider, Now: clock}
		if err := scheduler.Register(cfg.Enrichment.HolidaySchedule, prefetch); err != nil {
			return nil, fmt.Errorf("schedule holiday prefetch: %w", err)
		}
		go func() {
			if err := scheduler.RunNow(prefetch); err != nil {
				logger.Warn().Err(err).Msg("initial holiday prefetch failed")
			}
		}()
	}

	if sweeper, ok := store.(jobs.Sweeper); ok {
		if err := scheduler.Register(cacheSweepSchedule, jobs.CacheSweepWorker{Cache: sweeper}); err != nil {
			return nil, fmt.Errorf("schedule cache sweep: %w", err)
		}
	}
	return scheduler, nil
}

func gracefulShutdown(ctx context.Context, server *http.Server, serveErr <-chan error, logger zerolog.Logger) error {
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
