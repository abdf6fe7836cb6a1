// Package sqlite persists market snapshots, contract targets, odds
// histories, and scan outputs. The core packages never touch it; it is the
// collaborator that feeds scans and keeps their results.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/oddseq"
)

const defaultPath = "data/oddsparity.db"

// Store wraps a SQLite DB connection.
type Store struct {
	path string
	db   *sql.DB
}

// Open creates (if needed) and opens the SQLite database.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := ensureWAL(db); err != nil {
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	return &Store{path: path, db: db}, nil
}

func ensureWAL(db *sql.DB) error {
	const (
		maxAttempts = 5
		delay       = 200 * time.Millisecond
	)
	for i := 0; i < maxAttempts; i++ {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			if strings.Contains(err.Error(), "database is locked") {
				time.Sleep(delay)
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("database is locked after retries")
}

// Path returns the path backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close closes the DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS markets (
	venue TEXT NOT NULL,
	market_id TEXT NOT NULL,
	question TEXT,
	yes_price REAL,
	no_price REAL,
	close_time TEXT,
	volume REAL,
	liquidity REAL,
	flags_json TEXT,
	last_seen_at TEXT,
	PRIMARY KEY (venue, market_id)
);
CREATE TABLE IF NOT EXISTS contracts (
	venue TEXT NOT NULL,
	market_id TEXT NOT NULL,
	name TEXT NOT NULL,
	side TEXT NOT NULL,
	PRIMARY KEY (venue, market_id, name, side)
);
CREATE TABLE IF NOT EXISTS match_results (
	pair_id TEXT NOT NULL,
	contract_name TEXT,
	contract_side TEXT,
	source_venue TEXT,
	source_market_id TEXT,
	source_question TEXT,
	matched_venue TEXT,
	matched_market_id TEXT,
	matched_question TEXT,
	strategy TEXT,
	similarity REAL,
	confidence REAL,
	risk_factors_json TEXT,
	needs_review INTEGER,
	scanned_at TEXT
);
CREATE TABLE IF NOT EXISTS opportunities (
	pair_id TEXT NOT NULL,
	yes_venue TEXT,
	yes_market_id TEXT,
	yes_price REAL,
	no_venue TEXT,
	no_market_id TEXT,
	no_yes_price REAL,
	combined_cost REAL,
	edge REAL,
	classification TEXT,
	match_confidence REAL,
	position_size REAL,
	flags_json TEXT,
	detected_at TEXT
);
CREATE TABLE IF NOT EXISTS odds_observations (
	event_id TEXT NOT NULL,
	observed_at TEXT NOT NULL,
	probability REAL NOT NULL,
	PRIMARY KEY (event_id, observed_at)
);
CREATE TABLE IF NOT EXISTS progression_stats (
	run_at TEXT NOT NULL,
	thresholds_json TEXT NOT NULL,
	direction TEXT NOT NULL,
	sequence_base INTEGER,
	sequence_success INTEGER,
	base_crossings INTEGER,
	base_events_json TEXT,
	success_events_json TEXT
);
CREATE INDEX IF NOT EXISTS odds_event_idx ON odds_observations(event_id);
CREATE INDEX IF NOT EXISTS opportunities_pair_idx ON opportunities(pair_id);
`

// CreateTables ensures the full schema exists.
func (s *Store) CreateTables(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropTables removes every table.
func (s *Store) DropTables(ctx context.Context) error {
	for _, table := range []string{"markets", "contracts", "match_results", "opportunities", "odds_observations", "progression_stats"} {
		if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+table+`;`); err != nil {
			return err
		}
	}
	return nil
}

// ClearTables truncates every table but keeps the schema.
func (s *Store) ClearTables(ctx context.Context) error {
	for _, table := range []string{"markets", "contracts", "match_results", "opportunities", "odds_observations", "progression_stats"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+`;`); err != nil {
			return err
		}
	}
	return nil
}

const marketUpsertSQL = `
INSERT INTO markets (venue, market_id, question, yes_price, no_price, close_time, volume, liquidity, flags_json, last_seen_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(venue, market_id) DO UPDATE SET
	question=excluded.question,
	yes_price=excluded.yes_price,
	no_price=excluded.no_price,
	close_time=excluded.close_time,
	volume=excluded.volume,
	liquidity=excluded.liquidity,
	flags_json=excluded.flags_json,
	last_seen_at=excluded.last_seen_at;
`

// UpsertSnapshot stores the market carried by one snapshot and appends its
// YES quote to the odds history.
func (s *Store) UpsertSnapshot(ctx context.Context, snap markets.Snapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlite store not initialized")
	}
	if err := s.upsertMarket(ctx, snap.Venue, snap.Market, snap.CapturedAt); err != nil {
		return err
	}
	yes, ok := snap.Market.YesPrice()
	if !ok {
		return nil
	}
	return s.InsertOddsObservation(ctx, oddseq.Observation{
		EventID:     fmt.Sprintf("%s:%s", snap.Venue, snap.Market.ID),
		Timestamp:   snap.CapturedAt,
		Probability: yes,
	})
}

// UpsertMarkets stores a batch of markets for one venue in one transaction.
func (s *Store) UpsertMarkets(ctx context.Context, venue markets.Venue, questions []markets.MarketQuestion) error {
	if len(questions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, q := range questions {
		if err := upsertMarketTx(ctx, tx, venue, q, now); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) upsertMarket(ctx context.Context, venue markets.Venue, q markets.MarketQuestion, seenAt time.Time) error {
	flagsJSON, err := json.Marshal(q.Validate(0))
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, marketUpsertSQL,
		string(venue), q.ID, q.Question, yesColumn(q), noColumn(q),
		formatTime(q.CloseTime), q.Volume, q.Liquidity,
		string(flagsJSON), seenAt.Format(time.RFC3339Nano))
	return err
}

func upsertMarketTx(ctx context.Context, tx *sql.Tx, venue markets.Venue, q markets.MarketQuestion, seenAt time.Time) error {
	flagsJSON, err := json.Marshal(q.Validate(0))
	if err != nil {
		return fmt.Errorf("marshal flags: %w", err)
	}
	_, err = tx.ExecContext(ctx, marketUpsertSQL,
		string(venue), q.ID, q.Question, yesColumn(q), noColumn(q),
		formatTime(q.CloseTime), q.Volume, q.Liquidity,
		string(flagsJSON), seenAt.Format(time.RFC3339Nano))
	return err
}

// yesColumn and noColumn keep absent quotes NULL so a quoteless market
// round-trips back to the no_outcome_prices flag instead of a bogus 0/0
// price sum.
func yesColumn(q markets.MarketQuestion) sql.NullFloat64 {
	yes, ok := q.YesPrice()
	return sql.NullFloat64{Float64: yes, Valid: ok}
}

func noColumn(q markets.MarketQuestion) sql.NullFloat64 {
	no, ok := q.NoPrice()
	return sql.NullFloat64{Float64: no, Valid: ok}
}

// LoadMarkets returns every stored market for a venue.
func (s *Store) LoadMarkets(ctx context.Context, venue markets.Venue) ([]markets.MarketQuestion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market_id, question, yes_price, no_price, close_time, volume, liquidity FROM markets WHERE venue = ?;`,
		string(venue))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []markets.MarketQuestion
	for rows.Next() {
		var (
			q         markets.MarketQuestion
			yes, no   sql.NullFloat64
			closeTime sql.NullString
		)
		q.Venue = venue
		if err := rows.Scan(&q.ID, &q.Question, &yes, &no, &closeTime, &q.Volume, &q.Liquidity); err != nil {
			return nil, err
		}
		q.OutcomePrices = map[string]float64{}
		if yes.Valid {
			q.OutcomePrices[markets.OutcomeYes] = yes.Float64
		}
		if no.Valid {
			q.OutcomePrices[markets.OutcomeNo] = no.Float64
		}
		q.CloseTime = parseTime(closeTime.String)
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpsertContracts stores the contract target list for a venue.
func (s *Store) UpsertContracts(ctx context.Context, contracts []markets.ContractSide, marketIDs []string) error {
	if len(contracts) != len(marketIDs) {
		return fmt.Errorf("contracts and market ids length mismatch: %d vs %d", len(contracts), len(marketIDs))
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for i, c := range contracts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO contracts (venue, market_id, name, side) VALUES (?,?,?,?);`,
			string(c.Venue), marketIDs[i], c.Name, string(c.Side)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ContractRow joins a stored contract with its host market ID.
type ContractRow struct {
	Contract markets.ContractSide
	MarketID string
}

// LoadContracts returns the stored contract list for a venue.
func (s *Store) LoadContracts(ctx context.Context, venue markets.Venue) ([]ContractRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT market_id, name, side FROM contracts WHERE venue = ?;`, string(venue))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ContractRow
	for rows.Next() {
		var row ContractRow
		var side string
		row.Contract.Venue = venue
		if err := rows.Scan(&row.MarketID, &row.Contract.Name, &side); err != nil {
			return nil, err
		}
		row.Contract.Side = markets.Side(side)
		out = append(out, row)
	}
	return out, rows.Err()
}

// InsertOddsObservation appends one probability sample; duplicate timestamps
// for an event are ignored.
func (s *Store) InsertOddsObservation(ctx context.Context, obs oddseq.Observation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO odds_observations (event_id, observed_at, probability) VALUES (?,?,?);`,
		obs.EventID, obs.Timestamp.UTC().Format(time.RFC3339Nano), obs.Probability)
	return err
}

// LoadOddsSeries returns every event's observations ordered by timestamp.
func (s *Store) LoadOddsSeries(ctx context.Context) (map[string][]oddseq.Observation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, observed_at, probability FROM odds_observations ORDER BY event_id, observed_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	series := make(map[string][]oddseq.Observation)
	for rows.Next() {
		var (
			obs oddseq.Observation
			ts  string
		)
		if err := rows.Scan(&obs.EventID, &ts, &obs.Probability); err != nil {
			return nil, err
		}
		obs.Timestamp = parseTime(ts)
		series[obs.EventID] = append(series[obs.EventID], obs)
	}
	return series, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
