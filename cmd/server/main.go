package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/adpulse/ppc-insights/internal/api"
	"github.com/adpulse/ppc-insights/internal/cache"
	"github.com/adpulse/ppc-insights/internal/config"
	"github.com/adpulse/ppc-insights/internal/pkg/logger"
	"github.com/adpulse/ppc-insights/internal/repository/postgres"
	"github.com/adpulse/ppc-insights/internal/service/attribution"
	"github.com/adpulse/ppc-insights/internal/service/impact"
	"github.com/adpulse/ppc-insights/internal/warehouse"
)

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Fail fast if the port is already taken instead of dying mid-startup.
	addr := fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("port unavailable", "addr", addr, "error", err)
		os.Exit(1)
	}
	ln.Close()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = db.PingContext(pingCtx)
	pingCancel()
	if err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsRepo := postgres.NewMetricsRepo(db)
	actionRepo := postgres.NewActionRepo(db)

	impactEngine := impact.NewEngine(metricsRepo, actionRepo, cfg.Attribution)
	impactEngine.SetSPCProvider(metricsRepo)

	attribEngine := attribution.NewEngine(metricsRepo, cfg.Attribution)

	// Validation tags come from the warehouse when credentials are present.
	// Without them the engine still runs; rows just stay in the pending tier.
	if cfg.Warehouse.Enabled && cfg.Warehouse.Account != "" {
		whClient, err := warehouse.NewClient(cfg.Warehouse)
		if err != nil {
			logger.Warn("warehouse client init failed, validation tiers disabled", "error", err)
		} else {
			collector := warehouse.NewCollector(whClient, cfg.Warehouse.Interval())
			go collector.Start(ctx)
			impactEngine.SetValidationSource(collector)
			logger.Info("warehouse validation collector started",
				"interval", cfg.Warehouse.Interval().String())
		}
	}

	handlers := api.NewHandlers(impactEngine, attribEngine, actionRepo, cfg.Attribution)

	if rdb := initRedis(cfg.Redis); rdb != nil {
		defer rdb.Close()
		handlers.SetAttributionCache(cache.NewAttributionCache(rdb, cfg.Redis.TTL()))
	}

	server := api.NewServer(cfg.Server, handlers)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			done <- syscall.SIGTERM
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// initRedis returns nil when redis is disabled or unreachable. The
// attribution cache is an optimization, not a dependency.
func initRedis(cfg config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unreachable, attribution cache disabled", "error", err)
		client.Close()
		return nil
	}

	logger.Info("redis connected", "addr", cfg.Addr)
	return client
}
