package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcarver/oddsparity/internal/oddseq"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)

	assert.Equal(t, "predictit", cfg.Scan.SourceVenue)
	assert.Equal(t, "polymarket", cfg.Scan.TargetVenue)
	assert.InDelta(t, 0.60, cfg.Matching.MinConfidence, 1e-9)
	assert.InDelta(t, 0.90, cfg.Matching.HighConfidenceCutoff, 1e-9)
	assert.InDelta(t, 0.02, cfg.Arb.MinEdge, 1e-9)
	assert.Equal(t, oddseq.DefaultMaxGap, cfg.Progression.MaxGap)
	assert.Equal(t, "markets.snapshots", cfg.Kafka.SnapshotTopic)
	assert.Equal(t, "arb.opportunities", cfg.Kafka.OpportunityTopic)
	assert.Equal(t, "data/oddsparity.db", cfg.Storage.SQLitePath)
	assert.False(t, cfg.Review.Enabled)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "predictit", cfg.Scan.SourceVenue)
}

func TestLoadNormalizesPercentThresholds(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
progression:
  paths:
    - thresholds: [10, 50]
      direction: rising
    - thresholds: [0.8, 0.3]
      direction: falling
`))
	require.NoError(t, err)

	paths := cfg.ProgressionPaths()
	require.Len(t, paths, 2)
	assert.InDelta(t, 0.10, paths[0].Thresholds[0], 1e-9)
	assert.InDelta(t, 0.50, paths[0].Thresholds[1], 1e-9)
	assert.InDelta(t, 0.80, paths[1].Thresholds[0], 1e-9)
	assert.Equal(t, oddseq.DirectionFalling, paths[1].Direction)
}

func TestLoadRejectsSameVenueOnBothSides(t *testing.T) {
	_, err := Load(writeConfig(t, `
scan:
  source_venue: polymarket
  target_venue: polymarket
`))
	assert.Error(t, err)
}

func TestLoadRejectsBadThresholdPath(t *testing.T) {
	_, err := Load(writeConfig(t, `
progression:
  paths:
    - thresholds: [0.5]
      direction: rising
`))
	assert.Error(t, err)
}

func TestLoadRejectsBadFee(t *testing.T) {
	_, err := Load(writeConfig(t, `
arb:
  venue_fees:
    polymarket: 1.5
`))
	assert.Error(t, err)
}

func TestLoadRequiresReviewKeyWhenEnabled(t *testing.T) {
	_, err := Load(writeConfig(t, `
review:
  enabled: true
`))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, `
review:
  enabled: true
  api_key: sk-test
`))
	require.NoError(t, err)
	assert.True(t, cfg.Review.Enabled)
}

func TestConverters(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
matching:
  min_confidence: 0.7
  high_confidence_cutoff: 0.85
arb:
  min_edge: 0.03
  venue_fees:
    predictit: 0.01
`))
	require.NoError(t, err)

	mc := cfg.MatchingEngine()
	assert.InDelta(t, 0.7, mc.MinConfidence, 1e-9)
	assert.InDelta(t, 0.85, mc.HighConfidenceCutoff, 1e-9)

	ac := cfg.ArbEngine()
	assert.InDelta(t, 0.03, ac.MinEdge, 1e-9)
	assert.InDelta(t, 0.85, ac.HighConfidenceCutoff, 1e-9)
	assert.InDelta(t, 0.01, ac.VenueFees["predictit"], 1e-9)
}
