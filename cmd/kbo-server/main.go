// Package main implements the KBO data server: scheduled and on-demand
// ingestion of the league site into a relational store, plus a query API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kbodata/cmd/kbo-server/cli"
	"kbodata/internal/server/cache"
	"kbodata/internal/server/config"
	"kbodata/internal/server/http"
	"kbodata/internal/server/processor"
	"kbodata/internal/server/scheduler"
	"kbodata/internal/server/scraper"
	"kbodata/internal/server/service"
	"kbodata/internal/server/storage"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gracefulShutdownTimeout = time.Second * 5
)

func main() {
	// Check for CLI database commands
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		os.Exit(0)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	// Manage PID file if requested
	if cfg.PIDPath != "" {
		cleanup, err := managePIDFile(cfg.PIDPath, cfg.PIDLock)
		if err != nil {
			return fmt.Errorf("failed to manage PID file: %w", err)
		}
		defer cleanup()
		logger.Info("PID file created", zap.String("path", cfg.PIDPath), zap.Bool("lock", cfg.PIDLock))
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// 1. Initialize Storage
	store, err := storage.NewStore(cfg.DB, cfg.Dev, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := store.InitDB(); err != nil {
		store.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	logger.Info("storage ready", zap.String("driver", cfg.DB.Driver))

	// 2. Query cache (optional)
	var queryCache cache.Cache
	if cfg.Redis.URL != "" {
		rc, err := cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			store.Close()
			return fmt.Errorf("failed to initialize cache: %w", err)
		}
		queryCache = rc
		logger.Info("query cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
	} else {
		logger.Info("query cache disabled (set REDIS_URL to enable)")
	}

	// 3. Service with the league site client
	client := scraper.NewKBOClient(cfg.Scraper, logger)
	svc := service.New(store, client, queryCache, service.Options{
		Location:   loc,
		SeasonYear: cfg.Schedule.SeasonYear,
	}, logger)

	// 4. Processor (orchestrator), injecting the service
	proc := processor.New(svc, logger)

	// 5. Daily result ingestion (optional)
	var sched *scheduler.Scheduler
	if cfg.Schedule.ResultCron != "" {
		sched, err = scheduler.New(cfg.Schedule.ResultCron, loc, func(ctx context.Context) error {
			resp := proc.Execute(ctx, processor.NewIngestResultsCommand())
			if !resp.Success {
				return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
			}
			return nil
		}, logger)
		if err != nil {
			proc.Close(gracefulShutdownTimeout)
			svc.Shutdown()
			return err
		}
		sched.Start()
	}

	// 6. Fiber app, injecting processor and service
	app := http.NewFiberApp(proc, svc, http.Options{
		DevMode:      cfg.Dev,
		AdminKeyHash: cfg.AdminKeyHash,
		Logger:       logger,
	})

	apiAddr := cfg.Addr()
	listenErr := make(chan error, 1)
	go func() {
		logger.Info("KBO data API starting",
			zap.String("addr", "http://"+apiAddr),
			zap.String("endpoints", "http://"+apiAddr+http.APIPrefix),
			zap.Bool("dev", cfg.Dev),
			zap.Bool("admin_guard", cfg.AdminKeyHash != ""),
			zap.String("timezone", loc.String()),
			zap.Int("season", cfg.Schedule.SeasonYear),
		)
		listenErr <- app.Listen(apiAddr)
	}()

	// Wait for an interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-listenErr:
		runErr = fmt.Errorf("API server listen error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logger.Warn("scheduler stop", zap.Error(err))
		}
	}

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	// Cancels an in-flight async backfill
	if err := proc.Close(gracefulShutdownTimeout); err != nil {
		logger.Warn("processor close", zap.Error(err))
	}

	if err := svc.Shutdown(); err != nil {
		logger.Warn("service shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return runErr
}

// newLogger builds a development or production zap logger at the configured level
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
