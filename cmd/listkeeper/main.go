// Package main is the entrypoint for the listkeeper server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anved/listkeeper/internal/cache"
	"github.com/anved/listkeeper/internal/config"
	"github.com/anved/listkeeper/internal/identity"
	"github.com/anved/listkeeper/internal/server"
	"github.com/anved/listkeeper/internal/store"

	// Register cache and store drivers
	_ "github.com/anved/listkeeper/internal/cache/loader"
	_ "github.com/anved/listkeeper/internal/store/loader"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to TOML config file (optional)")
	modeFlag := flag.String("mode", "", "Operating mode: prod or dev (overrides config)")
	listenAddr := flag.String("listen", "", "Listen address (overrides config)")
	storeDriver := flag.String("store-driver", "", "Store driver: sqlite or memory (overrides config)")
	storeDataDir := flag.String("store-data-dir", "", "Data directory for the sqlite store (overrides config)")
	cacheDriver := flag.String("cache-driver", "", "Cache driver: memory or valkey (overrides config)")
	tlsMode := flag.String("tls-mode", "", "TLS mode: off, static, selfsigned, or acme (overrides config)")
	loggingLevel := flag.String("logging-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Bootstrap logger for config loading errors (uses default level)
	bootstrapLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Load config with precedence: mode preset -> TOML file -> CLI flags
	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		ModeFlag:   *modeFlag,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			StoreDriver:  storeDriver,
			StoreDataDir: storeDataDir,
			CacheDriver:  cacheDriver,
			TLSMode:      tlsMode,
			LoggingLevel: loggingLevel,
		},
		Logger: bootstrapLogger,
	})
	if err != nil {
		bootstrapLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Create logger with configured level
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Log effective config with secrets redacted
	logger.Info("effective configuration", "config", cfg.Redacted())

	// Create the store driver and run migrations
	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		logger.Error("failed to create store driver", "error", err)
		os.Exit(1)
	}
	if err := driver.Init(context.Background()); err != nil {
		logger.Error("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("failed to close store", "error", err)
		}
	}()
	logger.Info("store initialized", "driver", driver.Name())

	// Create cache (defaults to in-memory if not configured)
	// Passes driver-specific config from [cache.drivers.<driver>] section
	cacheName := cfg.Cache.Driver
	if cacheName == "" {
		cacheName = "memory"
	}
	driverSettings, _ := cfg.Cache.Drivers[cacheName].(map[string]any)
	cacheInstance, err := cache.New(cacheName, driverSettings)
	if err != nil {
		logger.Error("failed to create cache", "driver", cacheName, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := cacheInstance.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()

	// Create session repo
	sessionRepo := identity.NewMemorySessionRepo()

	// Create and start server
	srv, err := server.New(server.Deps{
		Config:   cfg,
		Logger:   logger,
		Driver:   driver,
		Cache:    cacheInstance,
		Sessions: sessionRepo,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server started, press Ctrl+C to stop")

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
