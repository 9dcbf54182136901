package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aevon-lab/meterstats/internal/config"
	"github.com/aevon-lab/meterstats/internal/core/storage"
	"github.com/aevon-lab/meterstats/internal/core/storage/badger"
	"github.com/aevon-lab/meterstats/internal/core/storage/postgres"
	"github.com/aevon-lab/meterstats/internal/maintenance"
	"github.com/aevon-lab/meterstats/internal/meters"
	"github.com/aevon-lab/meterstats/internal/migrations"
	"github.com/aevon-lab/meterstats/internal/poller"
	"github.com/aevon-lab/meterstats/internal/pricing"
	"github.com/aevon-lab/meterstats/internal/reconcile"
	"github.com/aevon-lab/meterstats/internal/server"
	"github.com/aevon-lab/meterstats/internal/source/eyeonwater"
)

const badgerGCInterval = 10 * time.Minute

// statsStore is a sink the process owns: health-checked and closed on shutdown.
type statsStore interface {
	storage.Sink
	server.HealthChecker
	io.Closer
}

func main() {
	configPath := flag.String("config", "meterstats.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		slog.Error("Invalid logging level", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	slog.Info("Loaded config",
		"database", cfg.Database.Type,
		"meters_dir", cfg.Meters.ConfigDir,
		"poll_enabled", cfg.Poll.Enabled,
		"poll_interval", cfg.Poll.Interval,
		"cost_source", cfg.Cost.Source,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Storage
	store, prices, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize statistics store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// 3. Load Meter Registry
	registry, err := meters.NewFileSystemRepository(cfg.Meters.ConfigDir)
	if err != nil {
		slog.Error("Failed to load meters", "dir", cfg.Meters.ConfigDir, "error", err)
		os.Exit(1)
	}

	// 4. Initialize Coordinator
	source := eyeonwater.NewClient(cfg.Source.BaseURL, cfg.Source.APIToken, cfg.Source.Timeout)
	coordinator := reconcile.NewCoordinator(store, source, registry, prices, reconcile.Options{
		MaxParallel:    cfg.Import.MaxParallel,
		VerifyAttempts: cfg.Verify.Attempts,
		VerifyDelay:    cfg.Verify.Delay,
	})

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), store, cfg.Server.Mode)
	maintenance.NewService(coordinator, cfg.Import.DefaultDays, cfg.Server.MaxBodySizeMB).RegisterRoutes(srv.Engine)

	// 6. Start Background Work
	if cfg.Poll.Enabled {
		p := poller.New(coordinator, cfg.Poll.Interval, cfg.Poll.Days, cfg.Poll.InitialDays)
		go func() {
			if err := p.Start(ctx); err != nil {
				slog.Error("Poller stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Import poller disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

// openStore opens the configured sink and the price source that goes with it.
// The returned pricing.Source is nil when the cost series is disabled.
func openStore(ctx context.Context, cfg *config.Config) (statsStore, pricing.Source, error) {
	switch cfg.Database.Type {
	case config.DatabaseBadger:
		store, err := badger.New(badger.Config{
			Path:        cfg.Database.Path,
			InMemory:    cfg.Database.InMemory,
			MaxMemoryMB: int64(cfg.Database.MaxMemoryMB),
		})
		if err != nil {
			return nil, nil, err
		}
		go runBadgerGC(ctx, store)
		if cfg.Database.CompilerInterval > 0 {
			go badger.NewCompiler(store).Run(ctx, cfg.Database.CompilerInterval)
		}
		prices, err := staticPrices(cfg)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		return store, prices, nil

	default:
		db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		if err := postgres.ValidateSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}

		sink := postgres.NewSink(db)
		if cfg.Cost.Source == config.CostSourceTable {
			return sink, postgres.NewPriceTable(db), nil
		}
		prices, err := staticPrices(cfg)
		if err != nil {
			sink.Close()
			return nil, nil, err
		}
		return sink, prices, nil
	}
}

// staticPrices returns an untyped nil when costs are disabled so the
// coordinator sees no price source at all.
func staticPrices(cfg *config.Config) (pricing.Source, error) {
	if cfg.Cost.Source != config.CostSourceStatic {
		return nil, nil
	}
	price, ok, err := cfg.Cost.Price()
	if err != nil {
		return nil, err
	}
	if !ok {
		return pricing.NewStatic(nil, cfg.Cost.Currency), nil
	}
	return pricing.NewStatic(&price, cfg.Cost.Currency), nil
}

func runBadgerGC(ctx context.Context, store *badger.Store) {
	ticker := time.NewTicker(badgerGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := store.RunGC(0.5); err != nil {
				slog.Warn("[Badger] Value log GC failed", "error", err)
			}
		}
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
