package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/talentsearch/internal/config"
	"github.com/kailas-cloud/talentsearch/internal/db"
	dbElastic "github.com/kailas-cloud/talentsearch/internal/db/elastic"
	dbMemory "github.com/kailas-cloud/talentsearch/internal/db/memory"
	dbRedis "github.com/kailas-cloud/talentsearch/internal/db/redis"
	"github.com/kailas-cloud/talentsearch/internal/domain/candidate"
	"github.com/kailas-cloud/talentsearch/internal/domain/schema"
	logpkg "github.com/kailas-cloud/talentsearch/internal/logger"
	"github.com/kailas-cloud/talentsearch/internal/metrics"
	"github.com/kailas-cloud/talentsearch/internal/report"
	replayrepo "github.com/kailas-cloud/talentsearch/internal/repository/replay"
	searchrepo "github.com/kailas-cloud/talentsearch/internal/repository/search"
	chiTransport "github.com/kailas-cloud/talentsearch/internal/transport/chi"
	authuc "github.com/kailas-cloud/talentsearch/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/talentsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/talentsearch/internal/usecase/search"
	"github.com/kailas-cloud/talentsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting talentsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_driver", cfg.Backend.Driver),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.String("replay_driver", cfg.Replay.Driver),
	)

	catalog, err := cfg.Schema.Catalog()
	if err != nil {
		logger.Fatal("Invalid schema", zap.Error(err))
	}

	ctx := context.Background()

	backend, err := buildBackend(ctx, cfg.Backend, catalog, logger)
	if err != nil {
		logger.Fatal("Failed to create search backend", zap.Error(err))
	}
	defer backend.Close()

	replayStore, err := buildReplayStore(ctx, cfg.Replay)
	if err != nil {
		logger.Fatal("Failed to create replay store", zap.Error(err))
	}
	if replayStore != nil {
		defer replayStore.Close()
	}

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	reporter := buildReporter(cfg.Reporting, env, logger)
	if s, ok := reporter.(report.Multi); ok {
		defer flushSentry(s)
	}

	shaper, err := candidate.NewShaper(cfg.Response.Whitelist)
	if err != nil {
		logger.Fatal("Invalid response whitelist", zap.Error(err))
	}

	executor := searchuc.NewExecutor(
		searchrepo.New(backend, cfg.Backend.Index, catalog.IDField()),
		reporter,
		searchuc.ExecutorConfig{
			Timeout:        time.Duration(cfg.Backend.TimeoutMs) * time.Millisecond,
			AttemptTimeout: time.Duration(cfg.Backend.AttemptTimeoutMs) * time.Millisecond,
			MaxRetries:     cfg.Backend.MaxRetries,
			BackoffBase:    time.Duration(cfg.Backend.BackoffBaseMs) * time.Millisecond,
		},
	)
	searchSvc, err := searchuc.New(catalog, executor, shaper, reporter, searchuc.Config{
		HalfLifeDays: cfg.Search.HalfLifeDays,
		Baseline:     cfg.Search.BaselineFilters,
	})
	if err != nil {
		logger.Fatal("Failed to create search service", zap.Error(err))
	}

	gate, err := buildGate(cfg.Auth, replayStore, cfg.Replay.KeyPrefix)
	if err != nil {
		logger.Fatal("Failed to create auth gate", zap.Error(err))
	}

	// Pass nil interface (not typed nil pointer) when replay tracking is off.
	var replayPinger healthuc.Pinger
	if replayStore != nil {
		replayPinger = replayStore
	}
	healthSvc := healthuc.New(backend, replayPinger)

	server := chiTransport.NewServer(searchSvc, healthSvc, gate, reporter, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildBackend creates the search backend. The memory driver gets an index derived
// from the catalog, filled from the fixtures file.
func buildBackend(
	ctx context.Context, cfg config.BackendConfig, catalog *schema.Catalog, logger *zap.Logger,
) (db.Backend, error) {
	switch cfg.Driver {
	case "memory":
		store := dbMemory.NewStore()
		def, err := db.NewIndex(cfg.Index).FromCatalog(catalog).Build()
		if err != nil {
			return nil, fmt.Errorf("index definition: %w", err)
		}
		if err := store.CreateIndex(ctx, def); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if cfg.Fixtures != "" {
			if err := store.LoadFile(cfg.Index, cfg.Fixtures); err != nil {
				return nil, err
			}
			logger.Info("Loaded fixtures", zap.String("path", cfg.Fixtures))
		}
		return store, nil

	case "elastic":
		store, err := dbElastic.NewStore(dbElastic.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, err
		}
		if err := waitForReady(ctx, store, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, err
		}
		exists, err := store.IndexExists(ctx, cfg.Index)
		if err != nil {
			store.Close()
			return nil, err
		}
		if !exists {
			logger.Warn("Search index does not exist; create it with talentctl reset-index",
				zap.String("index", cfg.Index))
		}
		logger.Info("Connected to Elasticsearch", zap.Strings("addrs", cfg.Addrs))
		return store, nil
	}
	return nil, fmt.Errorf("unknown backend driver %q", cfg.Driver)
}

// buildReplayStore returns nil when replay tracking is disabled.
func buildReplayStore(ctx context.Context, cfg config.ReplayConfig) (db.ReplayStore, error) {
	var store db.ReplayStore
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory":
		store = dbMemory.NewKV()
	case "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		if err != nil {
			return nil, err
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown replay driver %q", cfg.Driver)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("replay store not ready: %w", err)
	}
	return store, nil
}

func buildGate(cfg config.AuthConfig, replayStore db.ReplayStore, keyPrefix string) (*authuc.Gate, error) {
	var verifier authuc.Verifier
	switch cfg.Mode {
	case "none":
		verifier = authuc.NewNoneVerifier(cfg.DefaultScopes)
	case "totp":
		keys := make([]authuc.TOTPKey, len(cfg.TOTP.Keys))
		for i, k := range cfg.TOTP.Keys {
			keys[i] = authuc.TOTPKey{Name: k.Name, Secret: k.Secret, Scopes: k.Scopes}
		}
		v, err := authuc.NewTOTPVerifier(keys, time.Duration(cfg.TOTP.PeriodSec)*time.Second, cfg.TOTP.Skew)
		if err != nil {
			return nil, err
		}
		verifier = v
	case "jwt":
		v, err := authuc.NewJWTVerifier(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.LeewaySec)*time.Second)
		if err != nil {
			return nil, err
		}
		verifier = v
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Mode)
	}

	// Pass nil interface (not typed nil pointer) when replay tracking is off.
	var guard authuc.ReplayGuard
	if replayStore != nil {
		guard = replayrepo.New(replayStore, keyPrefix)
	}
	return authuc.NewGate(verifier, guard, authuc.GateConfig{
		RequiredScope: cfg.RequiredScope,
		Anonymous:     cfg.Mode == "none",
	}), nil
}

// buildReporter always logs; Sentry is added when a DSN is configured.
func buildReporter(cfg config.ReportingConfig, env string, logger *zap.Logger) report.Reporter {
	reporters := report.Multi{report.NewLog(logger)}
	if cfg.SentryDSN == "" {
		return reporters
	}
	environment := cfg.Environment
	if environment == "" {
		environment = env
	}
	s, err := report.NewSentry(cfg.SentryDSN, environment, version.Version)
	if err != nil {
		logger.Error("Sentry disabled", zap.Error(err))
		return reporters
	}
	logger.Info("Sentry reporting enabled", zap.String("environment", environment))
	return append(reporters, s)
}

func flushSentry(reporters report.Multi) {
	for _, r := range reporters {
		if s, ok := r.(*report.Sentry); ok {
			s.Flush(2 * time.Second)
		}
	}
}

// waitForReady polls Ping until the backend responds or timeout expires.
func waitForReady(ctx context.Context, p db.Pinger, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := p.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("backend not ready after %s: %w", timeout, ctx.Err())
		case <-ticker.C:
		}
	}
}
