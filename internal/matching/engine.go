// Package matching links contract sides on one venue to market questions on
// another. A closed table of phrasing strategies proposes candidate queries,
// a scorer rates them against the question pool, and the engine keeps the
// single best match per contract above a confidence floor.
package matching

import (
	"fmt"
	"sync"
	"time"

	"github.com/jcarver/oddsparity/internal/logging"
	"github.com/jcarver/oddsparity/internal/markets"
)

// Target couples a contract side with the market it trades on. The market
// title is the phrasing context the strategies work from.
type Target struct {
	Contract markets.ContractSide
	Market   markets.MarketQuestion
}

// Result is the best-scoring match for one contract. At most one Result is
// retained per contract; contracts whose best candidate falls below the
// confidence floor produce none.
type Result struct {
	Contract   markets.ContractSide   `json:"contract"`
	Source     markets.MarketQuestion `json:"source"`
	Matched    markets.MarketQuestion `json:"matched"`
	Strategy   StrategyID             `json:"strategy"`
	Similarity float64                `json:"similarity"`
	Confidence float64                `json:"confidence"`
	// RiskFactors flag structural doubts about the match (e.g. resolution
	// windows that do not line up). They mark the pair for human review but
	// never drop it.
	RiskFactors []string `json:"risk_factors,omitempty"`
	NeedsReview bool     `json:"needs_review"`
}

// Risk factors attached to otherwise accepted matches.
const (
	RiskCloseTimeMismatch       = "close_time_mismatch"
	RiskCloseTimeMismatchGtWeek = "close_time_mismatch_gt_week"
)

// Config tunes the engine. Zero values fall back to the documented defaults.
type Config struct {
	MinConfidence        float64 // floor for retaining a match, default 0.60
	HighConfidenceCutoff float64 // below this a match needs review, default 0.90
	Weights              Weights
	PriceSumTolerance    float64
	Workers              int
}

const (
	defaultMinConfidence        = 0.60
	defaultHighConfidenceCutoff = 0.90
)

type Engine struct {
	cfg    Config
	scorer *Scorer
}

func NewEngine(cfg Config) *Engine {
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = defaultMinConfidence
	}
	if cfg.HighConfidenceCutoff <= 0 {
		cfg.HighConfidenceCutoff = defaultHighConfidenceCutoff
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{cfg: cfg, scorer: NewScorer(cfg.Weights)}
}

// MinConfidence returns the configured retention floor.
func (e *Engine) MinConfidence() float64 {
	return e.cfg.MinConfidence
}

// Match scores every target against the pool and returns the retained
// matches in target order. Markets that fail price validation are excluded
// from the pool before scoring. An empty pool is a blocking failure; a
// contract with no viable candidate is not.
func (e *Engine) Match(targets []Target, pool []markets.MarketQuestion) ([]Result, error) {
	if len(pool) == 0 {
		return nil, fmt.Errorf("matching: empty market pool")
	}

	clean := make([]markets.MarketQuestion, 0, len(pool))
	for _, q := range pool {
		if flags := q.Validate(e.cfg.PriceSumTolerance); len(flags) > 0 {
			logging.Debugf("[matching] excluding market %s: %v", q.ID, flags)
			continue
		}
		clean = append(clean, q)
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("matching: no market in pool passed validation")
	}

	slots := make([]*Result, len(targets))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = e.matchOne(targets[i], clean)
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	results := make([]Result, 0, len(targets))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	return results, nil
}

// matchOne evaluates every candidate phrasing for one contract and keeps the
// highest-confidence hit. On equal confidence the strategy with the higher
// fixed table priority wins; the prior-descending candidate order is not a
// proxy for that, because priors and table order disagree for a few rows.
func (e *Engine) matchOne(target Target, pool []markets.MarketQuestion) *Result {
	candidates := GenerateCandidates(target.Contract, target.Market)
	if len(candidates) == 0 {
		return nil
	}

	var best *Result
	for _, cand := range candidates {
		idx, sim := e.scorer.Score(cand, pool)
		if idx < 0 {
			continue
		}
		conf := e.scorer.Confidence(cand.Prior, sim)
		if best != nil {
			if conf < best.Confidence {
				continue
			}
			if conf == best.Confidence && Rank(cand.Strategy) >= Rank(best.Strategy) {
				continue
			}
		}
		best = &Result{
			Contract:   target.Contract,
			Source:     target.Market,
			Matched:    pool[idx],
			Strategy:   cand.Strategy,
			Similarity: sim,
			Confidence: conf,
		}
	}
	if best == nil || best.Confidence < e.cfg.MinConfidence {
		return nil
	}

	best.RiskFactors = detectRiskFactors(best.Source, best.Matched)
	best.NeedsReview = best.Confidence < e.cfg.HighConfidenceCutoff || len(best.RiskFactors) > 0
	return best
}

func detectRiskFactors(source, matched markets.MarketQuestion) []string {
	if source.CloseTime.IsZero() || matched.CloseTime.IsZero() {
		return nil
	}
	diff := source.CloseTime.Sub(matched.CloseTime)
	if diff < 0 {
		diff = -diff
	}
	var risks []string
	if diff > 24*time.Hour {
		risks = append(risks, RiskCloseTimeMismatch)
	}
	if diff > 7*24*time.Hour {
		risks = append(risks, RiskCloseTimeMismatchGtWeek)
	}
	return risks
}
