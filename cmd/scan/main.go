package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/jcarver/oddsparity/internal/arb"
	"github.com/jcarver/oddsparity/internal/cache"
	"github.com/jcarver/oddsparity/internal/config"
	"github.com/jcarver/oddsparity/internal/kafka"
	"github.com/jcarver/oddsparity/internal/logging"
	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/matching"
	"github.com/jcarver/oddsparity/internal/queue"
	"github.com/jcarver/oddsparity/internal/review"
	sqlstore "github.com/jcarver/oddsparity/internal/storage/sqlite"
)

func main() {
	godotenv.Load()
	logging.InitFromEnv()

	configPath := flag.String("config", "config.yaml", "path to config file")
	reviewLog := flag.String("review-log", "review_queue.log", "file receiving matches that need human review")
	noPublish := flag.Bool("no-publish", false, "skip publishing opportunities to kafka")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatalf("[scan] config: %v", err)
	}
	logging.SetLevel(cfg.Logging.Level)

	store, err := sqlstore.Open(cfg.Storage.SQLitePath)
	if err != nil {
		logging.Fatalf("[scan] open sqlite: %v", err)
	}
	defer store.Close()

	sourceVenue := markets.Venue(cfg.Scan.SourceVenue)
	targetVenue := markets.Venue(cfg.Scan.TargetVenue)

	targets, err := loadTargets(ctx, store, sourceVenue)
	if err != nil {
		logging.Fatalf("[scan] load targets: %v", err)
	}
	pool, err := store.LoadMarkets(ctx, targetVenue)
	if err != nil {
		logging.Fatalf("[scan] load market pool: %v", err)
	}
	logging.Infof("[scan] %d contracts on %s vs %d markets on %s", len(targets), sourceVenue, len(pool), targetVenue)

	engine := matching.NewEngine(cfg.MatchingEngine())
	results, err := engine.Match(targets, pool)
	if err != nil {
		logging.Fatalf("[scan] matching: %v", err)
	}
	logging.Infof("[scan] %d contracts matched above confidence %.2f", len(results), engine.MinConfidence())

	scannedAt := time.Now().UTC()
	if err := store.InsertMatchResults(ctx, results, scannedAt); err != nil {
		logging.Errorf("[scan] persist matches: %v", err)
	}
	exportReviewQueue(*reviewLog, results)

	verdicts := reviewMatches(ctx, cfg, results)

	arbCfg := cfg.ArbEngine()
	var ops []arb.Opportunity
	for _, res := range results {
		for _, op := range arb.FromMatch(res, arbCfg) {
			if verdict, reviewed := verdicts[review.CacheKey(res)]; reviewed && !verdict {
				op = op.Downgrade(arb.FlagReviewRejected)
			}
			ops = append(ops, op)
		}
	}
	ops = rank(ops)

	if err := store.InsertOpportunities(ctx, ops); err != nil {
		logging.Errorf("[scan] persist opportunities: %v", err)
	}

	alertable := filterAlertable(ctx, cfg, ops)
	if !*noPublish && len(alertable) > 0 {
		publishOpportunities(ctx, cfg, alertable)
	}
	logSummary(ops, alertable)
}

func loadTargets(ctx context.Context, store *sqlstore.Store, venue markets.Venue) ([]matching.Target, error) {
	contractRows, err := store.LoadContracts(ctx, venue)
	if err != nil {
		return nil, err
	}
	hostMarkets, err := store.LoadMarkets(ctx, venue)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]markets.MarketQuestion, len(hostMarkets))
	for _, m := range hostMarkets {
		byID[m.ID] = m
	}

	targets := make([]matching.Target, 0, len(contractRows))
	for _, row := range contractRows {
		host, ok := byID[row.MarketID]
		if !ok {
			logging.Debugf("[scan] contract %q references unknown market %s", row.Contract.Name, row.MarketID)
			continue
		}
		targets = append(targets, matching.Target{Contract: row.Contract, Market: host})
	}
	return targets, nil
}

// reviewMatches runs the optional LLM reviewer over pairs that need it,
// consulting the redis verdict cache first. Review failures downgrade the
// single affected pair, never the scan.
func reviewMatches(ctx context.Context, cfg *config.Config, results []matching.Result) map[string]bool {
	verdicts := make(map[string]bool)
	if !cfg.Review.Enabled {
		return verdicts
	}

	var verdictCache cache.VerdictCache
	if cfg.Redis.Addr != "" {
		vc, err := cache.NewRedisVerdictCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, "")
		if err != nil {
			logging.Errorf("[scan] verdict cache: %v", err)
		} else {
			verdictCache = vc
			defer vc.Close()
		}
	}

	client, err := review.NewClient(review.ClientConfig{
		APIKey:  cfg.Review.APIKey,
		BaseURL: cfg.Review.BaseURL,
		Model:   cfg.Review.Model,
	})
	if err != nil {
		logging.Errorf("[scan] review client: %v", err)
		return verdicts
	}
	service, err := review.NewService(client)
	if err != nil {
		logging.Errorf("[scan] review service: %v", err)
		return verdicts
	}

	for _, res := range results {
		key := review.CacheKey(res)
		if verdictCache != nil {
			if equivalent, ok, err := verdictCache.Get(ctx, key); err == nil && ok {
				verdicts[key] = equivalent
				continue
			} else if err != nil {
				logging.Errorf("[scan] verdict cache get: %v", err)
			}
		}
		verdict, err := service.Review(ctx, res)
		if err != nil {
			logging.Errorf("[scan] review pair %s/%s: %v", res.Source.ID, res.Matched.ID, err)
			continue
		}
		verdicts[key] = verdict.Equivalent
		logging.Infof("[scan] review %s -> %s equivalent=%t (%s)",
			res.Source.ID, res.Matched.ID, verdict.Equivalent, verdict.Reason)
		if verdictCache != nil {
			if err := verdictCache.Set(ctx, key, verdict.Equivalent); err != nil {
				logging.Errorf("[scan] verdict cache set: %v", err)
			}
		}
	}
	return verdicts
}

// filterAlertable keeps non-rejected opportunities whose edge improves on
// the cached best for their pair, and refreshes the cache.
func filterAlertable(ctx context.Context, cfg *config.Config, ops []arb.Opportunity) []arb.Opportunity {
	var opCache cache.OpportunityCache
	if cfg.Redis.Addr != "" {
		oc, err := cache.NewRedisOpportunityCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, "")
		if err != nil {
			logging.Errorf("[scan] opportunity cache: %v", err)
		} else {
			opCache = oc
			defer oc.Close()
		}
	}

	var out []arb.Opportunity
	for _, op := range ops {
		if op.Classification == arb.ClassRejected {
			continue
		}
		if opCache != nil {
			record, _, err := opCache.Get(ctx, op.PairID)
			if err != nil {
				logging.Errorf("[scan] opportunity cache get: %v", err)
			} else if !cache.Improves(record, op) {
				continue
			}
			if err := opCache.Set(ctx, op.PairID, cache.OpportunityRecord{
				Edge:           op.Edge,
				Classification: op.Classification,
				PositionSize:   op.PositionSize,
				UpdatedAt:      time.Now().UTC(),
			}); err != nil {
				logging.Errorf("[scan] opportunity cache set: %v", err)
			}
		}
		out = append(out, op)
	}
	return out
}

func publishOpportunities(ctx context.Context, cfg *config.Config, ops []arb.Opportunity) {
	brokers := kafka.Brokers(cfg.Kafka.Brokers)
	topic := cfg.Kafka.OpportunityTopic
	if topic == "" {
		topic = kafka.DefaultOpportunityTopic
	}

	ensureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	if err := kafka.EnsureTopic(ensureCtx, brokers, topic); err != nil {
		logging.Errorf("[scan] ensure topic warning: %v", err)
	}
	cancel()

	writer := kafka.NewWriter(brokers, topic)
	defer writer.Close()
	if err := queue.PublishOpportunities(ctx, writer, ops); err != nil {
		logging.Errorf("[scan] publish opportunities: %v", err)
	}
}

func exportReviewQueue(path string, results []matching.Result) {
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logging.Errorf("[scan] review log open: %v", err)
		return
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, res := range results {
		if !res.NeedsReview {
			continue
		}
		if err := enc.Encode(res); err != nil {
			logging.Errorf("[scan] review log write: %v", err)
			return
		}
	}
}

func rank(ops []arb.Opportunity) []arb.Opportunity {
	ranked := make([]arb.Opportunity, len(ops))
	copy(ranked, ops)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Edge > ranked[j].Edge })
	return ranked
}

func logSummary(ops, alertable []arb.Opportunity) {
	pure, stat := 0, 0
	for _, op := range ops {
		switch op.Classification {
		case arb.ClassPure:
			pure++
		case arb.ClassStatistical:
			stat++
		}
	}
	logging.Infof("[scan] evaluated %d opportunities: %d pure, %d statistical, %d alertable", len(ops), pure, stat, len(alertable))
	for _, op := range alertable {
		fmt.Printf("[arb-opportunity] pair=%s class=%s cost=%.4f edge=%.4f conf=%.2f size=%.2f\n",
			op.PairID[:12], op.Classification, op.CombinedCost, op.Edge, op.MatchConfidence, op.PositionSize)
	}
}
