// feedtap connects to the market-data feed and streams parsed ticks to
// the console. Usage:
//
//	go run ./cmd/feedtap --config configs/feedd.local.yaml NIFTY50 BANKNIFTY
//
// Symbols given as arguments are subscribed on connect; with none, the
// tap joins the feed and prints whatever broadcast ticks arrive.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/optiondesk/marketdata/internal/config"
	"github.com/optiondesk/marketdata/internal/model"
	"github.com/optiondesk/marketdata/internal/stream"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", "configs/feedd.local.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "print full tick JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

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

	client.On(stream.MessageTick, func(data json.RawMessage) {
		if *verbose {
			pretty, _ := json.MarshalIndent(json.RawMessage(data), "", "  ")
			fmt.Printf("[TICK] %s\n", pretty)
			return
		}

		var tick model.Tick
		if err := json.Unmarshal(data, &tick); err != nil {
			return
		}
		fmt.Printf("[TICK] %-24s %10.2f  vol=%d oi=%d\n",
			tick.Symbol, tick.EffectivePrice(), tick.Volume, tick.OI)
	})

	client.Connect(cfg.Feed.Token)

	for _, symbol := range flag.Args() {
		client.Subscribe(symbol, 0)
		logger.Info("subscribed", "symbol", symbol)
	}

	// Stats printer
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := client.Stats()
				logger.Info("stats",
					"state", string(stats.State),
					"queued", stats.QueuedMessages,
					"subscriptions", stats.Subscriptions,
					"reconnect_attempts", stats.ReconnectAttempts,
				)
			}
		}
	}()

	logger.Info("streaming started - press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info("shutdown complete")
}
