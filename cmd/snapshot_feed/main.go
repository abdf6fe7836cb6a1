// snapshot_feed reads a market listing file produced by an external data
// source and publishes each market as a snapshot onto the snapshot topic.
// It also seeds the contract target list when the listing provides one, so a
// fresh environment can run a scan without any venue client.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcarver/oddsparity/internal/config"
	"github.com/jcarver/oddsparity/internal/kafka"
	"github.com/jcarver/oddsparity/internal/logging"
	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/queue"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
)

// listing is the on-disk interchange format for one venue's markets.
type listing struct {
	Venue     markets.Venue            `json:"venue"`
	Markets   []markets.MarketQuestion `json:"markets"`
	Contracts []contractEntry          `json:"contracts,omitempty"`
}

type contractEntry struct {
	MarketID string       `json:"market_id"`
	Name     string       `json:"name"`
	Side     markets.Side `json:"side"`
}

func main() {
	godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to config file")
	inPath := flag.String("in", "", "market listing JSON file (required)")
	direct := flag.Bool("direct", false, "write to sqlite directly instead of publishing to kafka")
	flag.Parse()

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "usage: snapshot_feed -in <listing.json> [-direct]")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[snapshot-feed] config: %v", err)
	}
	logging.SetLevel(cfg.Logging.Level)

	l, err := readListing(*inPath)
	if err != nil {
		logging.Fatalf("[snapshot-feed] %v", err)
	}
	logging.Infof("[snapshot-feed] %s: %d markets, %d contracts", l.Venue, len(l.Markets), len(l.Contracts))

	store, err := sqlstore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatalf("[snapshot-feed] open sqlite: %v", err)
	}
	defer store.Close()
	if err := store.CreateTables(ctx); err != nil {
		logging.Fatalf("[snapshot-feed] create tables: %v", err)
	}

	if len(l.Contracts) > 0 {
		contracts := make([]markets.ContractSide, len(l.Contracts))
		marketIDs := make([]string, len(l.Contracts))
		for i, c := range l.Contracts {
			contracts[i] = markets.ContractSide{Name: c.Name, Side: c.Side, Venue: l.Venue}
			marketIDs[i] = c.MarketID
		}
		if err := store.UpsertContracts(ctx, contracts, marketIDs); err != nil {
			logging.Fatalf("[snapshot-feed] seed contracts: %v", err)
		}
	}

	if *direct {
		if err := store.UpsertMarkets(ctx, l.Venue, l.Markets); err != nil {
			logging.Fatalf("[snapshot-feed] upsert markets: %v", err)
		}
		now := time.Now().UTC()
		for _, m := range l.Markets {
			snap := markets.NewSnapshot(l.Venue, m, now)
			if err := store.UpsertSnapshot(ctx, snap); err != nil {
				logging.Errorf("[snapshot-feed] snapshot %s: %v", m.ID, err)
			}
		}
		logging.Infof("[snapshot-feed] wrote %d markets directly", len(l.Markets))
		return
	}

	brokers := kafka.Brokers(cfg.Kafka.Brokers)
	topic := cfg.Kafka.SnapshotTopic
	if topic == "" {
		topic = kafka.DefaultSnapshotTopic
	}

	waitCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	err = kafka.WaitForBroker(waitCtx, brokers)
	cancel()
	if err != nil {
		logging.Fatalf("[snapshot-feed] broker not reachable: %v", err)
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = kafka.EnsureTopic(ensureCtx, brokers, topic)
	cancel()
	if err != nil {
		logging.Errorf("[snapshot-feed] ensure topic warning: %v", err)
	}

	writer := kafka.NewWriter(brokers, topic)
	defer writer.Close()
	if err := queue.PublishSnapshots(ctx, writer, l.Venue, l.Markets); err != nil {
		logging.Fatalf("[snapshot-feed] publish: %v", err)
	}
	logging.Infof("[snapshot-feed] published %d snapshots to %s", len(l.Markets), topic)
}

func readListing(path string) (*listing, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	var l listing
	if err := json.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	if l.Venue == "" {
		return nil, fmt.Errorf("listing is missing a venue")
	}
	if len(l.Markets) == 0 {
		return nil, fmt.Errorf("listing carries no markets")
	}
	return &l, nil
}
