package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcarver/oddsparity/internal/config"
	"github.com/jcarver/oddsparity/internal/kafka"
	"github.com/jcarver/oddsparity/internal/logging"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
	"github.com/jcarver/oddsparity/internal/workers"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[snapshot-worker] config: %v", err)
	}
	logging.SetLevel(cfg.Logging.Level)

	brokers := kafka.Brokers(cfg.Kafka.Brokers)
	topic := cfg.Kafka.SnapshotTopic
	if topic == "" {
		topic = kafka.DefaultSnapshotTopic
	}
	group := cfg.Kafka.Group
	workerCount := cfg.Kafka.Workers
	if workerCount <= 0 {
		workerCount = 3
	}

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	err = kafka.WaitForBroker(waitCtx, brokers)
	cancel()
	if err != nil {
		logging.Fatalf("[snapshot-worker] broker not reachable: %v", err)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = kafka.EnsureTopic(ensureCtx, brokers, topic)
	cancel()
	if err != nil {
		logging.Errorf("[snapshot-worker] ensure topic warning: %v", err)
	}

	store, err := sqlstore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatalf("[snapshot-worker] open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[snapshot-worker] create tables: %v", err)
	}

	processor := workers.NewProcessor(store)
	logging.Infof("[snapshot-worker] consuming %s with %d workers (group %s)", topic, workerCount, group)
	workers.Run(ctx, brokers, topic, group, workerCount, processor.Handle)
	logging.Infof("[snapshot-worker] shut down")
}
