// Package config loads and validates the scanner configuration from a file
// plus environment overrides. Validation runs once, before any scan; a bad
// threshold is fatal to the run, never a mid-scan surprise.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/jcarver/oddsparity/internal/arb"
	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/matching"
	"github.com/jcarver/oddsparity/internal/oddseq"
)

// Config is the full application configuration.
type Config struct {
	Scan        ScanConfig        `mapstructure:"scan"`
	Matching    MatchingConfig    `mapstructure:"matching"`
	Arb         ArbConfig         `mapstructure:"arb"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Review      ReviewConfig      `mapstructure:"review"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ScanConfig names the two venues of one scan: contracts from the source
// venue are matched against the target venue's question pool.
type ScanConfig struct {
	SourceVenue string `mapstructure:"source_venue"`
	TargetVenue string `mapstructure:"target_venue"`
}

// MatchingConfig tunes the cross-venue matcher.
type MatchingConfig struct {
	MinConfidence        float64 `mapstructure:"min_confidence"`
	HighConfidenceCutoff float64 `mapstructure:"high_confidence_cutoff"`
	PriorWeight          float64 `mapstructure:"prior_weight"`
	SimilarityWeight     float64 `mapstructure:"similarity_weight"`
	PriceSumTolerance    float64 `mapstructure:"price_sum_tolerance"`
	Workers              int     `mapstructure:"workers"`
}

// ArbConfig tunes opportunity evaluation.
type ArbConfig struct {
	MinEdge             float64            `mapstructure:"min_edge"`
	SlippageEstimate    float64            `mapstructure:"slippage_estimate"`
	BankrollCap         float64            `mapstructure:"bankroll_cap"`
	ResolutionTolerance time.Duration      `mapstructure:"resolution_tolerance"`
	VenueFees           map[string]float64 `mapstructure:"venue_fees"`
}

// PathConfig is one threshold progression to evaluate.
type PathConfig struct {
	Thresholds []float64 `mapstructure:"thresholds"`
	Direction  string    `mapstructure:"direction"`
}

// ProgressionConfig tunes the odds sequence analyzer.
type ProgressionConfig struct {
	MaxGap time.Duration `mapstructure:"max_gap"`
	Paths  []PathConfig  `mapstructure:"paths"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	SnapshotTopic    string   `mapstructure:"snapshot_topic"`
	OpportunityTopic string   `mapstructure:"opportunity_topic"`
	Group            string   `mapstructure:"group"`
	Workers          int      `mapstructure:"workers"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type StorageConfig struct {
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ReviewConfig controls the optional LLM resolution reviewer.
type ReviewConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the config file, applies ODDSPARITY_* environment overrides,
// normalizes percent-style thresholds, and validates.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("ODDSPARITY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// a missing file means defaults plus environment overrides
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.source_venue", string(markets.VenuePredictIt))
	v.SetDefault("scan.target_venue", string(markets.VenuePolymarket))

	v.SetDefault("matching.min_confidence", 0.60)
	v.SetDefault("matching.high_confidence_cutoff", 0.90)
	v.SetDefault("matching.prior_weight", 0.5)
	v.SetDefault("matching.similarity_weight", 0.5)
	v.SetDefault("matching.price_sum_tolerance", markets.DefaultPriceSumTolerance)
	v.SetDefault("matching.workers", 4)

	v.SetDefault("arb.min_edge", 0.02)
	v.SetDefault("arb.slippage_estimate", 0.005)
	v.SetDefault("arb.bankroll_cap", 1000)
	v.SetDefault("arb.resolution_tolerance", 24*time.Hour)

	v.SetDefault("progression.max_gap", oddseq.DefaultMaxGap)

	v.SetDefault("kafka.brokers", []string{"kafka-broker:9092"})
	v.SetDefault("kafka.snapshot_topic", "markets.snapshots")
	v.SetDefault("kafka.opportunity_topic", "arb.opportunities")
	v.SetDefault("kafka.group", "oddsparity")
	v.SetDefault("kafka.workers", 1)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 240*time.Hour)

	v.SetDefault("storage.sqlite_path", "data/oddsparity.db")

	v.SetDefault("review.enabled", false)

	v.SetDefault("logging.level", "info")
}

// normalize rescales percent-style thresholds (values above 1) into [0,1].
func (c *Config) normalize() {
	for i := range c.Progression.Paths {
		for j, t := range c.Progression.Paths[i].Thresholds {
			if t > 1 {
				c.Progression.Paths[i].Thresholds[j] = t / 100
			}
		}
	}
}

// Validate surfaces configuration errors once, before any scan runs.
func (c *Config) Validate() error {
	if c.Scan.SourceVenue == "" || c.Scan.TargetVenue == "" {
		return fmt.Errorf("scan.source_venue and scan.target_venue are required")
	}
	if c.Scan.SourceVenue == c.Scan.TargetVenue {
		return fmt.Errorf("scan venues must differ, got %q on both sides", c.Scan.SourceVenue)
	}
	if c.Matching.MinConfidence < 0 || c.Matching.MinConfidence > 1 {
		return fmt.Errorf("matching.min_confidence %v outside [0,1]", c.Matching.MinConfidence)
	}
	if c.Matching.HighConfidenceCutoff < 0 || c.Matching.HighConfidenceCutoff > 1 {
		return fmt.Errorf("matching.high_confidence_cutoff %v outside [0,1]", c.Matching.HighConfidenceCutoff)
	}
	if c.Matching.PriorWeight < 0 || c.Matching.SimilarityWeight < 0 {
		return fmt.Errorf("matching weights must be non-negative")
	}
	for venue, fee := range c.Arb.VenueFees {
		if fee < 0 || fee >= 1 {
			return fmt.Errorf("arb.venue_fees[%s] %v outside [0,1)", venue, fee)
		}
	}
	if c.Progression.MaxGap < 0 {
		return fmt.Errorf("progression.max_gap must be positive")
	}
	for i, p := range c.Progression.Paths {
		if err := p.toPath().Validate(); err != nil {
			return fmt.Errorf("progression.paths[%d]: %w", i, err)
		}
	}
	if c.Review.Enabled && c.Review.APIKey == "" {
		return fmt.Errorf("review.api_key is required when review is enabled")
	}
	return nil
}

func (p PathConfig) toPath() oddseq.Path {
	return oddseq.Path{Thresholds: p.Thresholds, Direction: oddseq.Direction(p.Direction)}
}

// MatchingEngine converts to the matcher's own config type.
func (c *Config) MatchingEngine() matching.Config {
	return matching.Config{
		MinConfidence:        c.Matching.MinConfidence,
		HighConfidenceCutoff: c.Matching.HighConfidenceCutoff,
		Weights: matching.Weights{
			Prior:      c.Matching.PriorWeight,
			Similarity: c.Matching.SimilarityWeight,
		},
		PriceSumTolerance: c.Matching.PriceSumTolerance,
		Workers:           c.Matching.Workers,
	}
}

// ArbEngine converts to the arbitrage calculator's config type.
func (c *Config) ArbEngine() arb.Config {
	fees := make(map[markets.Venue]float64, len(c.Arb.VenueFees))
	for venue, fee := range c.Arb.VenueFees {
		fees[markets.Venue(venue)] = fee
	}
	return arb.Config{
		MinEdge:              c.Arb.MinEdge,
		HighConfidenceCutoff: c.Matching.HighConfidenceCutoff,
		SlippageEstimate:     c.Arb.SlippageEstimate,
		BankrollCap:          c.Arb.BankrollCap,
		ResolutionTolerance:  c.Arb.ResolutionTolerance,
		VenueFees:            fees,
	}
}

// ProgressionPaths converts the configured paths for the analyzer.
func (c *Config) ProgressionPaths() []oddseq.Path {
	paths := make([]oddseq.Path, 0, len(c.Progression.Paths))
	for _, p := range c.Progression.Paths {
		paths = append(paths, p.toPath())
	}
	return paths
}
