package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/optiondesk/marketdata/internal/api"
	"github.com/optiondesk/marketdata/internal/cache"
	"github.com/optiondesk/marketdata/internal/catalog"
	"github.com/optiondesk/marketdata/internal/config"
	"github.com/optiondesk/marketdata/internal/history"
	"github.com/optiondesk/marketdata/internal/resolve"
	"github.com/optiondesk/marketdata/internal/stream"
	"github.com/optiondesk/marketdata/internal/version"
	"github.com/optiondesk/marketdata/internal/watch"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	configPath := flag.String("config", "configs/feedd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting feedd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"catalog_url", cfg.Catalog.URL,
		"feed_url", cfg.Feed.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Catalog API client
	apiClient := api.NewClient(
		cfg.Catalog.URL,
		cfg.Catalog.APIToken,
		api.WithLogger(logger),
		api.WithTimeout(cfg.Catalog.Timeout),
		api.WithRetries(cfg.Catalog.MaxRetries, time.Second),
	)

	// Catalog cache: Redis when configured, local file otherwise.
	var catalogCache catalog.Cache
	switch {
	case cfg.Cache.RedisAddr != "":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, continuing without catalog cache", "error", err)
		} else {
			catalogCache = cache.NewRedis(redisClient, cfg.Cache.Key)
			logger.Info("catalog cache: redis", "addr", cfg.Cache.RedisAddr, "key", cfg.Cache.Key)
		}
		defer redisClient.Close()
	case cfg.Cache.FilePath != "":
		catalogCache = cache.NewFile(cfg.Cache.FilePath)
		logger.Info("catalog cache: file", "path", cfg.Cache.FilePath)
	default:
		logger.Info("catalog cache disabled")
	}

	// Instrument store
	store := catalog.NewStore(catalog.Config{
		Exchange:     cfg.Catalog.Exchange,
		Underlyings:  cfg.Catalog.Underlyings,
		Freshness:    cfg.Catalog.Freshness,
		FetchTimeout: cfg.Catalog.Timeout,
	}, apiClient, catalogCache, logger)

	logger.Info("loading instrument catalog")
	store.Load(ctx)
	logger.Info("instrument catalog ready", "instruments", store.Count())

	// Periodic catalog refresh
	if cfg.Catalog.RefreshInterval > 0 {
		refresher := catalog.NewRefresher(cfg.Catalog.RefreshInterval, store, logger)
		if err := refresher.Start(ctx); err != nil {
			logger.Error("failed to start catalog refresher", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			refresher.Stop(stopCtx)
		}()
	}

	// History database (optional reference-price tier)
	var histStore *history.Store
	if cfg.History.Enabled() {
		logger.Info("connecting to history database",
			"host", cfg.History.Host,
			"database", cfg.History.Name,
		)
		histStore, err = history.Connect(ctx, cfg.History, logger)
		if err != nil {
			logger.Warn("history database unavailable, daily-close tier disabled", "error", err)
			histStore = nil
		} else {
			defer histStore.Close()
		}
	}

	// Stream client
	client := stream.NewClient(stream.Config{
		URL:              cfg.Feed.URL,
		BaseDelay:        cfg.Feed.ReconnectBaseDelay,
		MaxDelay:         cfg.Feed.ReconnectMaxDelay,
		BackoffFactor:    cfg.Feed.BackoffFactor,
		WriteTimeout:     cfg.Feed.WriteTimeout,
		HandshakeTimeout: cfg.Feed.HandshakeTimeout,
		PingInterval:     cfg.Feed.PingInterval,
	}, logger)
	defer client.Close()

	client.Connect(cfg.Feed.Token)

	// Watch list: track the index spot prices so at-the-money suggestions
	// use live data as soon as ticks arrive.
	watchList := watch.NewList(client, logger)
	defer watchList.Close()
	for _, u := range resolve.Underlyings() {
		watchList.Add(u.DisplaySymbol, u.IndexToken)
	}

	// Resolution engine
	var closes resolve.CloseSource
	if histStore != nil {
		closes = histStore
	}
	engine := resolve.NewEngine(store, watchList, closes, logger)

	// Health server
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, store, client, histStore, watchList, engine),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("feedd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Shutdown(shutdownCtx)

	logger.Info("feedd stopped")
}

// createHealthHandler creates the HTTP handler for health checks and the
// local suggestion endpoint.
func createHealthHandler(path string, store *catalog.Store, client *stream.Client, histStore *history.Store, watchList *watch.List, engine *resolve.Engine) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/suggest", func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		suggestions := engine.Suggest(r.Context(), query, 10)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"query":       query,
			"suggestions": suggestions,
		})
	})

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		// Catalog
		health.Components["catalog"] = map[string]any{
			"ready":       store.Ready(),
			"instruments": store.Count(),
			"loaded_at":   store.LoadedAt(),
		}
		if !store.Ready() {
			health.Status = "degraded"
		}

		// Stream
		stats := client.Stats()
		health.Components["stream"] = map[string]any{
			"state":              string(stats.State),
			"queued_messages":    stats.QueuedMessages,
			"subscriptions":      stats.Subscriptions,
			"reconnect_attempts": stats.ReconnectAttempts,
		}
		if stats.State != stream.StateOpen {
			health.Status = "degraded"
		}

		health.Components["watch"] = map[string]any{
			"symbols": len(watchList.Items()),
		}

		// History database
		if histStore != nil {
			if err := histStore.Ping(ctx); err != nil {
				health.Components["history"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
				health.Status = "degraded"
			} else {
				health.Components["history"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
