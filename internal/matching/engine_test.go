package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcarver/oddsparity/internal/markets"
)

func testMarket(id string, question string, yes float64) markets.MarketQuestion {
	return markets.MarketQuestion{
		ID:       id,
		Venue:    markets.VenuePolymarket,
		Question: question,
		OutcomePrices: map[string]float64{
			markets.OutcomeYes: yes,
			markets.OutcomeNo:  1 - yes,
		},
	}
}

func houseTarget() Target {
	return Target{
		Contract: markets.ContractSide{
			Name:  "the Republicans",
			Side:  markets.SideYes,
			Venue: markets.VenuePredictIt,
		},
		Market: testMarket("pi-house", "Who will win control of the US House after the 2024 election?", 0.52),
	}
}

func TestMatchOriginalPatternExactHit(t *testing.T) {
	engine := NewEngine(Config{})
	pool := []markets.MarketQuestion{
		testMarket("pm-house", "Will the Republicans win control of the US House after the 2024 election?", 0.45),
		testMarket("pm-btc", "Will Bitcoin close above 100k this year?", 0.30),
	}

	results, err := engine.Match([]Target{houseTarget()}, pool)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, "pm-house", res.Matched.ID)
	assert.Equal(t, StrategyOriginalPattern, res.Strategy)
	assert.InDelta(t, 1.0, res.Similarity, 1e-9)
	assert.InDelta(t, 0.95, res.Confidence, 1e-9)
	assert.False(t, res.NeedsReview)
	assert.Empty(t, res.RiskFactors)
}

func TestMatchDropsBelowConfidenceFloor(t *testing.T) {
	engine := NewEngine(Config{})
	target := Target{
		Contract: markets.ContractSide{Name: "Quantum Flux", Side: markets.SideYes, Venue: markets.VenuePredictIt},
		Market:   testMarket("pi-heat", "Temperature in NYC above 90F on July 4?", 0.40),
	}
	pool := []markets.MarketQuestion{
		testMarket("pm-senate", "Will the Democrats win the Senate?", 0.50),
	}

	results, err := engine.Match([]Target{target}, pool)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMatchEmptyPool(t *testing.T) {
	engine := NewEngine(Config{})
	_, err := engine.Match([]Target{houseTarget()}, nil)
	assert.Error(t, err)
}

func TestMatchAllPoolMarketsInvalid(t *testing.T) {
	engine := NewEngine(Config{})
	pool := []markets.MarketQuestion{
		{ID: "no-prices", Question: "Will anything happen?"},
		{ID: "bad-sum", Question: "Will something else happen?", OutcomePrices: map[string]float64{
			markets.OutcomeYes: 0.80,
			markets.OutcomeNo:  0.80,
		}},
	}
	_, err := engine.Match([]Target{houseTarget()}, pool)
	assert.Error(t, err)
}

func TestMatchExcludesFlaggedMarkets(t *testing.T) {
	engine := NewEngine(Config{})
	// The flagged duplicate would otherwise be the best hit.
	flagged := testMarket("pm-house-bad", "Will the Republicans win control of the US House after the 2024 election?", 0.45)
	flagged.OutcomePrices[markets.OutcomeNo] = 0.90
	pool := []markets.MarketQuestion{
		flagged,
		testMarket("pm-house", "Will the Republicans win control of the US House?", 0.45),
	}

	results, err := engine.Match([]Target{houseTarget()}, pool)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "pm-house", results[0].Matched.ID)
}

func TestMatchResultsInTargetOrder(t *testing.T) {
	engine := NewEngine(Config{Workers: 4})
	targets := []Target{
		houseTarget(),
		{
			Contract: markets.ContractSide{Name: "the Democrats", Side: markets.SideYes, Venue: markets.VenuePredictIt},
			Market:   testMarket("pi-senate", "Who will win control of the US Senate after the 2024 election?", 0.48),
		},
	}
	pool := []markets.MarketQuestion{
		testMarket("pm-senate", "Will the Democrats win control of the US Senate after the 2024 election?", 0.55),
		testMarket("pm-house", "Will the Republicans win control of the US House after the 2024 election?", 0.45),
	}

	results, err := engine.Match(targets, pool)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "pm-house", results[0].Matched.ID)
	assert.Equal(t, "pm-senate", results[1].Matched.ID)
}

func TestMatchIdempotent(t *testing.T) {
	engine := NewEngine(Config{Workers: 4})
	targets := []Target{
		houseTarget(),
		{
			Contract: markets.ContractSide{Name: "the Democrats", Side: markets.SideYes, Venue: markets.VenuePredictIt},
			Market:   testMarket("pi-senate", "Who will win control of the US Senate after the 2024 election?", 0.48),
		},
		{
			Contract: markets.ContractSide{Name: "Quantum Flux", Side: markets.SideYes, Venue: markets.VenuePredictIt},
			Market:   testMarket("pi-heat", "Temperature in NYC above 90F on July 4?", 0.40),
		},
	}
	pool := []markets.MarketQuestion{
		testMarket("pm-senate", "Will the Democrats win control of the US Senate after the 2024 election?", 0.55),
		testMarket("pm-house", "Will the Republicans win control of the US House after the 2024 election?", 0.45),
		testMarket("pm-btc", "Will Bitcoin close above 100k this year?", 0.30),
	}

	first, err := engine.Match(targets, pool)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.Match(targets, pool)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRaisingConfidenceFloorNeverAddsMatches(t *testing.T) {
	targets := []Target{
		houseTarget(),
		{
			Contract: markets.ContractSide{Name: "the Democrats", Side: markets.SideYes, Venue: markets.VenuePredictIt},
			Market:   testMarket("pi-senate", "Who will win control of the US Senate after the 2024 election?", 0.48),
		},
		{
			Contract: markets.ContractSide{Name: "Quantum Flux", Side: markets.SideYes, Venue: markets.VenuePredictIt},
			Market:   testMarket("pi-heat", "Temperature in NYC above 90F on July 4?", 0.40),
		},
	}
	pool := []markets.MarketQuestion{
		testMarket("pm-senate", "Will the Democrats win control of the US Senate after the 2024 election?", 0.55),
		testMarket("pm-house", "Will the Republicans win control of the US House after the 2024 election?", 0.45),
	}

	prev := len(targets) + 1
	for _, floor := range []float64{0.50, 0.70, 0.96} {
		engine := NewEngine(Config{MinConfidence: floor})
		results, err := engine.Match(targets, pool)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(results), prev, "floor %.2f", floor)
		prev = len(results)
	}
	assert.Zero(t, prev, "no match should survive a 0.96 floor")
}

func TestConfidenceClamped(t *testing.T) {
	high := NewScorer(Weights{Prior: 2, Similarity: 2})
	assert.InDelta(t, 1.0, high.Confidence(1, 1), 1e-9)

	low := NewScorer(Weights{Prior: -2, Similarity: 0.1})
	assert.InDelta(t, 0.0, low.Confidence(1, 0), 1e-9)

	even := NewScorer(Weights{})
	assert.InDelta(t, 0.95, even.Confidence(0.9, 1.0), 1e-9)
}

func TestEqualConfidenceResolvesToHigherPriorityStrategy(t *testing.T) {
	// With similarity-only weights both fuzzy_reconstruction and
	// election_elected phrase this contract as {will, newsom, elected} and
	// score 1.0 against the pool question. fuzzy_reconstruction carries the
	// larger prior and so sorts first, but election_elected sits higher in
	// the strategy table and must win the tie.
	engine := NewEngine(Config{Weights: Weights{Prior: 0, Similarity: 1}})
	target := Target{
		Contract: markets.ContractSide{Name: "Newsom", Side: markets.SideYes, Venue: markets.VenuePredictIt},
		Market:   testMarket("pi-elected", "Elected?", 0.40),
	}
	pool := []markets.MarketQuestion{
		testMarket("pm-elected", "Will Newsom be elected?", 0.45),
	}

	results, err := engine.Match([]Target{target}, pool)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, StrategyElectionElected, results[0].Strategy)
}

func TestDetectRiskFactors(t *testing.T) {
	base := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		offset time.Duration
		want   []string
	}{
		{name: "same day", offset: 6 * time.Hour, want: nil},
		{name: "three days apart", offset: 72 * time.Hour, want: []string{RiskCloseTimeMismatch}},
		{name: "ten days apart", offset: 10 * 24 * time.Hour, want: []string{RiskCloseTimeMismatch, RiskCloseTimeMismatchGtWeek}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := markets.MarketQuestion{CloseTime: base}
			matched := markets.MarketQuestion{CloseTime: base.Add(tt.offset)}
			assert.Equal(t, tt.want, detectRiskFactors(source, matched))
			// symmetric in sign
			assert.Equal(t, tt.want, detectRiskFactors(matched, source))
		})
	}
}

func TestRiskFactorsForceReview(t *testing.T) {
	engine := NewEngine(Config{})
	target := houseTarget()
	target.Market.CloseTime = time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)

	matched := testMarket("pm-house", "Will the Republicans win control of the US House after the 2024 election?", 0.45)
	matched.CloseTime = target.Market.CloseTime.Add(3 * 24 * time.Hour)

	results, err := engine.Match([]Target{target}, []markets.MarketQuestion{matched})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].NeedsReview)
	assert.Contains(t, results[0].RiskFactors, RiskCloseTimeMismatch)
}
