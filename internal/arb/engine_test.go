package arb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/matching"
)

var closeTime = time.Date(2024, 11, 5, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		MinEdge:          0.02,
		SlippageEstimate: 0.02,
		BankrollCap:      1000,
		VenueFees: map[markets.Venue]float64{
			markets.VenuePredictIt:  0.01,
			markets.VenuePolymarket: 0.01,
		},
	}
}

func testLeg(venue markets.Venue, marketID string, yesPrice, depth, confidence float64) Leg {
	return Leg{
		Contract:   markets.ContractSide{Name: "the Republicans", Side: markets.SideYes, Venue: venue},
		MarketID:   marketID,
		Question:   "Will the Republicans win the House?",
		Venue:      venue,
		YesPrice:   yesPrice,
		Depth:      depth,
		CloseTime:  closeTime,
		Confidence: confidence,
	}
}

func TestEvaluatePureArb(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)

	op := Evaluate(yes, no, testConfig())

	// 0.45 + (1 - 0.62) + 0.01 + 0.01 + 0.02 = 0.87
	assert.InDelta(t, 0.87, op.CombinedCost, 1e-9)
	assert.InDelta(t, 0.13, op.Edge, 1e-9)
	assert.InDelta(t, 1.0, op.CombinedCost+op.Edge, 1e-9)
	assert.Equal(t, ClassPure, op.Classification)
	assert.Empty(t, op.Flags)
	assert.InDelta(t, 0.95, op.MatchConfidence, 1e-9)
	assert.InDelta(t, 500, op.PositionSize, 1e-9)
}

func TestEvaluateRejectsThinEdge(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.50, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.53, 800, 0.95)

	// 0.50 + 0.47 + 0.04 = 1.01, edge -0.01
	op := Evaluate(yes, no, testConfig())
	assert.Equal(t, ClassRejected, op.Classification)
	assert.Contains(t, op.Flags, FlagEdgeBelowMin)
	assert.InDelta(t, -0.01, op.Edge, 1e-9)
}

func TestEvaluateLowConfidenceIsStatistical(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.72)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)

	op := Evaluate(yes, no, testConfig())
	assert.Equal(t, ClassStatistical, op.Classification)
	assert.Contains(t, op.Flags, FlagLowMatchConfidence)
	assert.InDelta(t, 0.72, op.MatchConfidence, 1e-9)
}

func TestEvaluateWindowMismatchIsStatistical(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)
	no.CloseTime = closeTime.Add(72 * time.Hour)

	op := Evaluate(yes, no, testConfig())
	assert.Equal(t, ClassStatistical, op.Classification)
	assert.Contains(t, op.Flags, FlagResolutionWindowMismatch)
}

func TestEvaluateZeroCloseTimeNeverPure(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)
	no.CloseTime = time.Time{}

	op := Evaluate(yes, no, testConfig())
	assert.Equal(t, ClassStatistical, op.Classification)
	assert.Contains(t, op.Flags, FlagResolutionWindowMismatch)
}

func TestPairIDDirectionIndependent(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)

	forward := Evaluate(yes, no, testConfig())
	reverse := Evaluate(no, yes, testConfig())
	assert.Equal(t, forward.PairID, reverse.PairID)
}

func TestDowngrade(t *testing.T) {
	yes := testLeg(markets.VenuePredictIt, "pi-1", 0.45, 500, 0.95)
	no := testLeg(markets.VenuePolymarket, "pm-1", 0.62, 800, 0.95)

	op := Evaluate(yes, no, testConfig())
	require.Equal(t, ClassPure, op.Classification)

	down := op.Downgrade(FlagReviewRejected)
	assert.Equal(t, ClassStatistical, down.Classification)
	assert.Contains(t, down.Flags, FlagReviewRejected)

	// rejected stays rejected
	rejected := Opportunity{Classification: ClassRejected}
	assert.Equal(t, ClassRejected, rejected.Downgrade(FlagReviewRejected).Classification)
}

func pairResult(srcYes, dstYes float64, confidence float64) matching.Result {
	return matching.Result{
		Contract: markets.ContractSide{Name: "the Republicans", Side: markets.SideYes, Venue: markets.VenuePredictIt},
		Source: markets.MarketQuestion{
			ID:            "pi-1",
			Venue:         markets.VenuePredictIt,
			Question:      "Republicans to win the House",
			OutcomePrices: map[string]float64{markets.OutcomeYes: srcYes, markets.OutcomeNo: 1 - srcYes},
			CloseTime:     closeTime,
			Liquidity:     500,
		},
		Matched: markets.MarketQuestion{
			ID:            "pm-1",
			Venue:         markets.VenuePolymarket,
			Question:      "Will the Republicans win the House?",
			OutcomePrices: map[string]float64{markets.OutcomeYes: dstYes, markets.OutcomeNo: 1 - dstYes},
			CloseTime:     closeTime,
			Liquidity:     800,
		},
		Strategy:   matching.StrategyOriginalPattern,
		Confidence: confidence,
	}
}

func TestFromMatchEvaluatesBothDirections(t *testing.T) {
	ops := FromMatch(pairResult(0.45, 0.62, 0.95), testConfig())
	require.Len(t, ops, 2)

	// forward: yes on predictit, no on polymarket
	assert.Equal(t, markets.VenuePredictIt, ops[0].YesLeg.Venue)
	assert.InDelta(t, 0.13, ops[0].Edge, 1e-9)
	assert.Equal(t, ClassPure, ops[0].Classification)

	// reverse direction pays both spreads
	assert.Equal(t, markets.VenuePolymarket, ops[1].YesLeg.Venue)
	assert.InDelta(t, -0.21, ops[1].Edge, 1e-9)
	assert.Equal(t, ClassRejected, ops[1].Classification)
}

func TestFromMatchSkipsMissingQuotes(t *testing.T) {
	res := pairResult(0.45, 0.62, 0.95)
	res.Source.OutcomePrices = nil
	assert.Nil(t, FromMatch(res, testConfig()))
}

func TestScanRanksByEdge(t *testing.T) {
	results := []matching.Result{
		pairResult(0.48, 0.55, 0.95), // forward edge 0.03
		pairResult(0.45, 0.62, 0.95), // forward edge 0.13
	}
	ops := Scan(results, testConfig())
	require.Len(t, ops, 4)
	for i := 1; i < len(ops); i++ {
		assert.GreaterOrEqual(t, ops[i-1].Edge, ops[i].Edge)
	}
	assert.InDelta(t, 0.13, ops[0].Edge, 1e-9)
}

func TestPositionSize(t *testing.T) {
	assert.InDelta(t, 300, positionSize(300, 800, 1000), 1e-9)
	assert.InDelta(t, 250, positionSize(300, 800, 250), 1e-9)
	assert.InDelta(t, 300, positionSize(300, 800, 0), 1e-9)
	assert.InDelta(t, 0, positionSize(-5, 800, 1000), 1e-9)
}
