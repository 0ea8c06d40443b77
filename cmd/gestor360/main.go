// Command gestor360 serves the commission API and, in Pro tier, the sale
// import worker.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gestor360/commission/internal/api"
	"github.com/gestor360/commission/internal/bus"
	"github.com/gestor360/commission/internal/cache"
	"github.com/gestor360/commission/internal/calculator"
	"github.com/gestor360/commission/internal/config"
	"github.com/gestor360/commission/internal/domain"
	"github.com/gestor360/commission/internal/goals"
	"github.com/gestor360/commission/internal/repository"
	"github.com/gestor360/commission/internal/rules"
	"github.com/gestor360/commission/internal/settlement"
	"github.com/gestor360/commission/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg)

	slog.Info("starting gestor360 commission service",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	n, err := config.ApplySeed(ctx, repo, cfg.Seed)
	if err != nil {
		slog.Error("failed to apply seed data", "error", err)
		os.Exit(1)
	}
	if n > 0 {
		slog.Info("seed data applied", "entries", n)
	}

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	engine, err := rules.NewEngine()
	if err != nil {
		slog.Error("failed to initialize eligibility engine", "error", err)
		os.Exit(1)
	}
	defer engine.Close()

	goalSvc := goals.NewService(repo, cacheImpl, cfg.Commission.GoalCacheTTL)
	calc := calculator.New(repo, cacheImpl, busImpl, engine, goalSvc, settlement.NewProcessor(), cfg.Commission.TierCacheTTL)
	slog.Info("commission calculator initialized",
		"tier_cache_ttl", cfg.Commission.TierCacheTTL,
		"goal_cache_ttl", cfg.Commission.GoalCacheTTL,
	)

	var importWorker *worker.Worker
	if cfg.Tier == domain.TierPro || cfg.Commission.AsyncWorker {
		importWorker = worker.NewWorker(busImpl, calc)
		workerCfg := worker.Config{TenantIDs: cfg.Commission.WorkerTenants}

		if err := importWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start import worker", "error", err)
		} else {
			slog.Info("import worker started", "tenant_count", len(workerCfg.TenantIDs))
		}
	}

	srv := api.NewServer(cfg.Server, repo, cacheImpl, calc, engine, goalSvc, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("gestor360 is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop consuming imports before the server and stores go away.
	if importWorker != nil {
		if err := importWorker.Stop(); err != nil {
			slog.Error("failed to stop import worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("gestor360 shutdown complete")
}

func setupLogger(cfg *domain.Config) {
	opts := &slog.HandlerOptions{Level: config.LogLevel(cfg)}

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  Gestor360 Commission Service")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints (X-Company-ID header required):")
	fmt.Println("    POST   /commission/simulate              - Simulate a sale's commission")
	fmt.Println("    POST   /sales                            - Record a sale")
	fmt.Println("    GET    /sales/{id}                       - Get a sale by ID")
	fmt.Println("    GET    /commission-tables                - List product types")
	fmt.Println("    GET    /commission-tables/{productType}  - Get commission tiers")
	fmt.Println("    PUT    /commission-tables/{productType}  - Replace commission tiers")
	fmt.Println("    GET    /campaigns                        - List campaigns")
	fmt.Println("    POST   /campaigns                        - Create a campaign")
	fmt.Println("    PUT    /campaigns/{id}                   - Update a campaign")
	fmt.Println("    DELETE /campaigns/{id}                   - Delete a campaign")
	fmt.Println("    GET    /settings/avista-rule             - Get the avista rule")
	fmt.Println("    PUT    /settings/avista-rule             - Set the avista rule")
	fmt.Println("    GET    /goals/{userId}/{month}           - Goal progress")
	fmt.Println("    PUT    /goals/{userId}/{month}           - Set a monthly goal")
	fmt.Println("    GET    /health                           - Health check")
	fmt.Println()
}
