package main

import (
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/meridian-dex/meridian/params"
	"github.com/meridian-dex/meridian/pkg/api"
	"github.com/meridian-dex/meridian/pkg/events"
	"github.com/meridian-dex/meridian/pkg/exchange"
	"github.com/meridian-dex/meridian/pkg/exchange/market"
	"github.com/meridian-dex/meridian/pkg/storage"
	"github.com/meridian-dex/meridian/pkg/util"
)

func main() {
	// Load config from .env file and environment variables.
	cfg := params.LoadFromEnv("")

	if err := os.MkdirAll(cfg.Node.DataDir, 0o755); err != nil {
		log.Fatalf("data dir: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Node.LogFile, cfg.Node.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Node.LogFile)

	// ---- Markets ----
	registry, err := market.LoadRegistry(cfg.Node.MarketsFile)
	if err != nil {
		sugar.Fatalw("markets_load_failed", "file", cfg.Node.MarketsFile, "err", err)
	}
	sugar.Infow("markets_loaded", "pairs", registry.Count())

	// ---- Storage ----
	store, err := storage.NewStore(filepath.Join(cfg.Node.DataDir, "ledger"))
	if err != nil {
		sugar.Fatalw("store_open_failed", "err", err)
	}
	defer store.Close()

	// ---- Event sinks ----
	// The store sink runs first so the audit log is durable before anything
	// leaves the process. The WebSocket hub is created ahead of the server
	// so it joins the fan-out.
	hub := api.NewHub(sugar)
	sinks := events.MultiSink{storage.NewSink(store), events.NewLogSink(sugar), hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		sugar.Infow("kafka_sink_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	// ---- Exchange ----
	ex, err := exchange.New(registry, exchange.Options{
		Store: store,
		Sink:  sinks,
	}, sugar)
	if err != nil {
		sugar.Fatalw("exchange_init_failed", "err", err)
	}

	// ---- API server ----
	server := api.NewServer(ex, hub, sugar)

	go func() {
		if err := server.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("node_started", "api_addr", cfg.API.Addr, "pairs", registry.Count())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	sugar.Info("shutting_down")
}
