package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcarver/oddsparity/internal/arb"
	"github.com/jcarver/oddsparity/internal/hashutil"
	"github.com/jcarver/oddsparity/internal/matching"
	"github.com/jcarver/oddsparity/internal/oddseq"
)

// InsertMatchResults stores one scan's retained matches.
func (s *Store) InsertMatchResults(ctx context.Context, results []matching.Result, scannedAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(results) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stamp := scannedAt.UTC().Format(time.RFC3339Nano)
	for _, r := range results {
		risksJSON, err := json.Marshal(r.RiskFactors)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal risk factors: %w", err)
		}
		pairID := hashutil.PairKey(
			fmt.Sprintf("%s:%s", r.Source.Venue, r.Source.ID),
			fmt.Sprintf("%s:%s", r.Matched.Venue, r.Matched.ID),
		)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO match_results (
	pair_id, contract_name, contract_side,
	source_venue, source_market_id, source_question,
	matched_venue, matched_market_id, matched_question,
	strategy, similarity, confidence, risk_factors_json, needs_review, scanned_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
			pairID, r.Contract.Name, string(r.Contract.Side),
			string(r.Source.Venue), r.Source.ID, r.Source.Question,
			string(r.Matched.Venue), r.Matched.ID, r.Matched.Question,
			string(r.Strategy), r.Similarity, r.Confidence,
			string(risksJSON), boolToInt(r.NeedsReview), stamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertOpportunities stores an evaluated opportunity snapshot, rejected
// results included; the history of near-misses is part of the audit trail.
func (s *Store) InsertOpportunities(ctx context.Context, ops []arb.Opportunity) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(ops) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, op := range ops {
		flagsJSON, err := json.Marshal(op.Flags)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal flags: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO opportunities (
	pair_id, yes_venue, yes_market_id, yes_price,
	no_venue, no_market_id, no_yes_price,
	combined_cost, edge, classification, match_confidence,
	position_size, flags_json, detected_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?);`,
			op.PairID,
			string(op.YesLeg.Venue), op.YesLeg.MarketID, op.YesLeg.YesPrice,
			string(op.NoLeg.Venue), op.NoLeg.MarketID, op.NoLeg.YesPrice,
			op.CombinedCost, op.Edge, string(op.Classification), op.MatchConfidence,
			op.PositionSize, string(flagsJSON),
			op.DetectedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// InsertProgressionStats stores one analysis run's per-path statistics.
func (s *Store) InsertProgressionStats(ctx context.Context, stats []oddseq.Stats, runAt time.Time) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if len(stats) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stamp := runAt.UTC().Format(time.RFC3339Nano)
	for _, st := range stats {
		thresholdsJSON, err := json.Marshal(st.Path.Thresholds)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal thresholds: %w", err)
		}
		baseJSON, err := json.Marshal(st.BaseEvents)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal base events: %w", err)
		}
		successJSON, err := json.Marshal(st.SuccessEvents)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("marshal success events: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO progression_stats (
	run_at, thresholds_json, direction,
	sequence_base, sequence_success, base_crossings,
	base_events_json, success_events_json
) VALUES (?,?,?,?,?,?,?,?);`,
			stamp, string(thresholdsJSON), string(st.Path.Direction),
			st.SequenceBase, st.SequenceSuccess, st.BaseCrossings,
			string(baseJSON), string(successJSON)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
