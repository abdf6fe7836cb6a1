// Package arb prices cross-venue hedges over matched contract pairs. Every
// scan cycle produces a fresh, immutable snapshot of opportunities; nothing
// here mutates state between cycles.
package arb

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jcarver/oddsparity/internal/hashutil"
	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/matching"
)

// Classification buckets an evaluated opportunity.
type Classification string

const (
	// ClassPure marks a hedge whose cost structure guarantees a positive
	// return, contingent on a high-confidence match and aligned resolution
	// windows.
	ClassPure Classification = "pure_arb"
	// ClassStatistical marks a positive-edge hedge that failed a confidence
	// or resolution-window check. Positive expectation, not risk-free.
	ClassStatistical Classification = "stat_arb"
	ClassRejected    Classification = "rejected"
)

// Flags explaining why an opportunity was downgraded or rejected.
const (
	FlagEdgeBelowMin             = "edge_below_min"
	FlagLowMatchConfidence       = "low_match_confidence"
	FlagResolutionWindowMismatch = "resolution_window_mismatch"
	FlagReviewRejected           = "resolution_review_rejected"
)

// Leg is one side of the hedge: the YES quote of one market on one venue.
type Leg struct {
	Contract   markets.ContractSide `json:"contract"`
	MarketID   string               `json:"market_id"`
	Question   string               `json:"question"`
	Venue      markets.Venue        `json:"venue"`
	YesPrice   float64              `json:"yes_price"`
	Depth      float64              `json:"depth"`
	CloseTime  time.Time            `json:"close_time"`
	Confidence float64              `json:"confidence"`
}

// Opportunity is the outcome of evaluating one hedge direction for one
// matched pair. Negative edges are valid, reportable results.
type Opportunity struct {
	PairID          string         `json:"pair_id"`
	YesLeg          Leg            `json:"yes_leg"`
	NoLeg           Leg            `json:"no_leg"`
	CombinedCost    float64        `json:"combined_cost"`
	Edge            float64        `json:"edge"`
	Classification  Classification `json:"classification"`
	MatchConfidence float64        `json:"match_confidence"`
	PositionSize    float64        `json:"position_size"`
	Flags           []string       `json:"flags,omitempty"`
	DetectedAt      time.Time      `json:"detected_at"`
}

// Config carries the venue fee schedule and the classification thresholds.
type Config struct {
	MinEdge              float64
	HighConfidenceCutoff float64
	SlippageEstimate     float64
	BankrollCap          float64
	ResolutionTolerance  time.Duration
	VenueFees            map[markets.Venue]float64
}

const (
	defaultHighConfidenceCutoff = 0.90
	defaultResolutionTolerance  = 24 * time.Hour
)

func (c Config) withDefaults() Config {
	if c.HighConfidenceCutoff <= 0 {
		c.HighConfidenceCutoff = defaultHighConfidenceCutoff
	}
	if c.ResolutionTolerance <= 0 {
		c.ResolutionTolerance = defaultResolutionTolerance
	}
	return c
}

func (c Config) fee(v markets.Venue) float64 {
	return c.VenueFees[v]
}

// Evaluate prices the hedge buy-YES on yesLeg's venue, buy-NO on noLeg's
// venue. The NO leg costs the complement of its venue's YES quote:
//
//	combined = yes_a + (1 - yes_b) + fee_a + fee_b + slippage
//	edge     = 1 - combined
func Evaluate(yesLeg, noLeg Leg, cfg Config) Opportunity {
	cfg = cfg.withDefaults()

	combined := yesLeg.YesPrice + (1 - noLeg.YesPrice) +
		cfg.fee(yesLeg.Venue) + cfg.fee(noLeg.Venue) + cfg.SlippageEstimate
	edge := 1 - combined

	op := Opportunity{
		PairID: hashutil.PairKey(
			fmt.Sprintf("%s:%s", yesLeg.Venue, yesLeg.MarketID),
			fmt.Sprintf("%s:%s", noLeg.Venue, noLeg.MarketID),
		),
		YesLeg:          yesLeg,
		NoLeg:           noLeg,
		CombinedCost:    combined,
		Edge:            edge,
		MatchConfidence: math.Min(yesLeg.Confidence, noLeg.Confidence),
		PositionSize:    positionSize(yesLeg.Depth, noLeg.Depth, cfg.BankrollCap),
		DetectedAt:      time.Now().UTC(),
	}

	if edge < cfg.MinEdge {
		op.Classification = ClassRejected
		op.Flags = append(op.Flags, FlagEdgeBelowMin)
		return op
	}
	if op.MatchConfidence < cfg.HighConfidenceCutoff {
		op.Flags = append(op.Flags, FlagLowMatchConfidence)
	}
	if !windowsOverlap(yesLeg.CloseTime, noLeg.CloseTime, cfg.ResolutionTolerance) {
		op.Flags = append(op.Flags, FlagResolutionWindowMismatch)
	}
	if len(op.Flags) == 0 {
		op.Classification = ClassPure
	} else {
		op.Classification = ClassStatistical
	}
	return op
}

// Downgrade demotes a pure opportunity to statistical and records why. Used
// when an external check (e.g. the resolution reviewer) withdraws the
// risk-free claim.
func (op Opportunity) Downgrade(flag string) Opportunity {
	if op.Classification == ClassPure {
		op.Classification = ClassStatistical
	}
	op.Flags = append(op.Flags, flag)
	return op
}

// FromMatch evaluates both hedge directions for one matched pair: YES on the
// source venue against NO on the matched venue, and the reverse. Directions
// whose markets carry no YES quote are skipped.
func FromMatch(res matching.Result, cfg Config) []Opportunity {
	srcYes, okSrc := res.Source.YesPrice()
	dstYes, okDst := res.Matched.YesPrice()
	if !okSrc || !okDst {
		return nil
	}

	srcLeg := legFor(res, res.Source, srcYes)
	dstLeg := legFor(res, res.Matched, dstYes)

	return []Opportunity{
		Evaluate(srcLeg, dstLeg, cfg),
		Evaluate(dstLeg, srcLeg, cfg),
	}
}

// Scan evaluates every matched pair in both directions and ranks the
// resulting snapshot by descending edge.
func Scan(results []matching.Result, cfg Config) []Opportunity {
	var ops []Opportunity
	for _, res := range results {
		ops = append(ops, FromMatch(res, cfg)...)
	}
	sort.SliceStable(ops, func(i, j int) bool { return ops[i].Edge > ops[j].Edge })
	return ops
}

func legFor(res matching.Result, q markets.MarketQuestion, yesPrice float64) Leg {
	return Leg{
		Contract:   res.Contract,
		MarketID:   q.ID,
		Question:   q.Question,
		Venue:      q.Venue,
		YesPrice:   yesPrice,
		Depth:      q.Liquidity,
		CloseTime:  q.CloseTime,
		Confidence: res.Confidence,
	}
}

// positionSize is a recommendation only: the smallest of both venues' depth
// and the configured bankroll cap.
func positionSize(depthA, depthB, bankroll float64) float64 {
	size := math.Min(depthA, depthB)
	if bankroll > 0 {
		size = math.Min(size, bankroll)
	}
	if size < 0 {
		return 0
	}
	return size
}

func windowsOverlap(a, b time.Time, tolerance time.Duration) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}
