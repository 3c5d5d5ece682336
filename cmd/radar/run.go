package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"solana-token-radar/internal/api"
	"solana-token-radar/internal/config"
	"solana-token-radar/internal/coordinator"
	"solana-token-radar/internal/filter"
	"solana-token-radar/internal/logging"
	"solana-token-radar/internal/marketdata"
	"solana-token-radar/internal/observability"
	"solana-token-radar/internal/recorder"
	"solana-token-radar/internal/solana"
	"solana-token-radar/internal/storage"
	chstore "solana-token-radar/internal/storage/clickhouse"
	"solana-token-radar/internal/storage/memory"
	"solana-token-radar/internal/storage/migrations"
	pgstore "solana-token-radar/internal/storage/postgres"
	"solana-token-radar/internal/strategy"
)

const (
	shutdownTimeout  = 30 * time.Second
	subscriberBuffer = 256
)

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the detection strategies and the status API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			done := make(chan struct{})
			defer close(done)
			go handleSignals(logger, cancel, done)

			err = run(ctx, cfg, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info().Msg("shutdown complete")
			return nil
		},
	}
}

// handleSignals cancels on the first SIGINT/SIGTERM and exits on a second
// one or when graceful shutdown overruns.
func handleSignals(logger zerolog.Logger, cancel context.CancelFunc, done <-chan struct{}) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("initiating graceful shutdown")
		cancel()
	case <-done:
		return
	}

	select {
	case sig := <-sigCh:
		logger.Warn().Str("signal", sig.String()).Msg("second signal, forcing exit")
		os.Exit(1)
	case <-time.After(shutdownTimeout):
		logger.Error().Dur("timeout", shutdownTimeout).Msg("graceful shutdown timed out, forcing exit")
		os.Exit(1)
	case <-done:
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	metrics := observability.NewMetrics("", nil)

	crit, err := cfg.Criteria()
	if err != nil {
		return err
	}

	deps := strategy.Deps{Logger: logger}

	var rpc solana.RPCClient
	if cfg.Solana.RPCURL != "" {
		rpc = solana.NewHTTPClient(cfg.Solana.RPCURL,
			solana.WithTimeout(cfg.Solana.Timeout),
			solana.WithMaxRetries(cfg.Solana.MaxRetries),
			solana.WithObserver(metrics.ObserveRPC),
		)
		deps.RPC = rpc
		if cfg.Detector.MetadataLookup {
			deps.Metadata = solana.NewMetadataFetcher(rpc)
		}
	}

	if cfg.Strategies.WebSocket.Enabled {
		wsCfg := solana.DefaultWSConfig()
		wsCfg.Logger = logger
		ws, err := solana.NewWSClient(ctx, cfg.Solana.WSURL, &wsCfg)
		if err != nil {
			return fmt.Errorf("connect websocket: %w", err)
		}
		defer ws.Close()
		deps.WS = ws
	}

	cache, closeCache, err := openGatewayCache(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	deps.Gateway = marketdata.NewDexScreenerClient(marketdata.Config{
		BaseURL:         cfg.MarketData.BaseURL,
		Timeout:         cfg.MarketData.Timeout,
		RPS:             cfg.MarketData.RPS,
		Burst:           cfg.MarketData.Burst,
		CacheTTL:        cfg.MarketData.CacheTTL,
		BreakerFailures: cfg.MarketData.BreakerFailures,
		BreakerCooldown: cfg.MarketData.BreakerCooldown,
	},
		marketdata.WithCache(cache),
		marketdata.WithLogger(logger),
		marketdata.WithObserver(metrics.ObserveGateway),
	)

	coord := coordinator.New(coordinator.Options{
		Scorer:           filter.NewScorer(crit),
		RPC:              rpc,
		Metrics:          metrics,
		Logger:           logger,
		DetectedCap:      cfg.Detector.DetectedCap,
		SignatureCap:     cfg.Detector.SignatureCap,
		StaggerIncrement: cfg.Detector.StaggerIncrement,
		CleanupInterval:  cfg.Detector.CleanupInterval,
	})
	deps.Signatures = coord

	entries, err := strategy.Build(cfg.StrategySettings(), deps)
	if err != nil {
		return err
	}
	for _, e := range entries {
		coord.Register(e.Strategy, e.Required)
	}

	sinks, err := openSinks(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer sinks.close()

	sub := coord.Subscribe(subscriberBuffer)
	rec := recorder.New(recorder.Options{
		Candidates: sinks.candidates,
		Summaries:  sinks.summaries,
		Metrics:    metrics,
		Logger:     logger,
	})
	recDone := make(chan struct{})
	go func() {
		defer close(recDone)
		rec.Run(ctx, sub)
	}()

	apiErr := make(chan error, 1)
	var srv *api.Server
	if cfg.API.Addr != "" {
		srv = api.NewServer(api.Options{
			Addr:     cfg.API.Addr,
			Detector: coord,
			Metrics:  observability.Handler(),
			Logger:   logger,
		})
		go func() { apiErr <- srv.Start() }()
	}

	logger.Info().
		Str("preset", crit.Name).
		Int("strategies", len(entries)).
		Msg("starting radar")

	var runErr error
	if err := coord.Start(ctx); err != nil {
		runErr = fmt.Errorf("start coordinator: %w", err)
	} else {
		select {
		case <-ctx.Done():
		case err := <-apiErr:
			if err != nil {
				runErr = fmt.Errorf("api server: %w", err)
			}
		}
	}

	if err := coord.Stop(); err != nil {
		logger.Warn().Err(err).Msg("strategies stopped with errors")
	}
	sub.Close()
	<-recDone

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("api shutdown")
		}
	}
	return runErr
}

// openGatewayCache returns a Redis-backed cache when an address is set and
// an in-process one otherwise.
func openGatewayCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) (marketdata.Cache, func(), error) {
	if cfg.Addr == "" {
		return marketdata.NewMemoryCache(), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	logger.Info().Str("addr", cfg.Addr).Msg("using redis gateway cache")
	return marketdata.NewRedisCache(client, cfg.Prefix), func() { _ = client.Close() }, nil
}

type sinks struct {
	candidates storage.CandidateStore
	summaries  storage.SummaryStore
	closers    []func()
}

func (s *sinks) close() {
	for _, c := range s.closers {
		c()
	}
}

// openSinks connects Postgres for candidates and ClickHouse for summaries.
// Either falls back to memory when its DSN is empty.
func openSinks(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (*sinks, error) {
	s := &sinks{
		candidates: memory.NewCandidateStore(),
		summaries:  memory.NewSummaryStore(),
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, pool.Close)
		if cfg.Migrate {
			if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
				s.close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		s.candidates = pgstore.NewCandidateStore(pool)
		logger.Info().Msg("candidates sink: postgres")
	}

	if cfg.ClickHouseDSN != "" {
		var (
			conn *chstore.Conn
			err  error
		)
		if cfg.Migrate {
			conn, err = chstore.EnsureDatabase(ctx, cfg.ClickHouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickHouseDSN)
		}
		if err != nil {
			s.close()
			return nil, err
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		if cfg.Migrate {
			if err := migrations.RunClickhouseMigrations(ctx, conn); err != nil {
				s.close()
				return nil, fmt.Errorf("clickhouse migrations: %w", err)
			}
		}
		s.summaries = chstore.NewSummaryStore(conn)
		logger.Info().Msg("summaries sink: clickhouse")
	}
	return s, nil
}
