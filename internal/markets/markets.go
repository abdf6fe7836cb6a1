package markets

import (
	"time"
)

// Venue identifies the prediction-market platform a market belongs to.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
	VenuePredictIt  Venue = "predictit"
)

// Side is one tradable outcome of a binary market.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// Opposite returns the other side of a binary contract.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// ContractSide is one tradable outcome of a market question on a venue.
type ContractSide struct {
	Name  string `json:"name"`
	Side  Side   `json:"side"`
	Venue Venue  `json:"venue"`
}

// MarketQuestion is the normalized representation of one market on one venue.
type MarketQuestion struct {
	ID            string             `json:"id"`
	Venue         Venue              `json:"venue"`
	Question      string             `json:"question"`
	OutcomePrices map[string]float64 `json:"outcome_prices"`
	CloseTime     time.Time          `json:"close_time"`
	Volume        float64            `json:"volume"`
	Liquidity     float64            `json:"liquidity"`
}

// Outcome labels used by binary markets across venues.
const (
	OutcomeYes = "yes"
	OutcomeNo  = "no"
)

// DefaultPriceSumTolerance bounds how far a binary market's outcome prices may
// drift from summing to 1 before the market is flagged.
const DefaultPriceSumTolerance = 0.01

// YesPrice returns the price of the YES outcome, or false if absent.
func (m *MarketQuestion) YesPrice() (float64, bool) {
	p, ok := m.OutcomePrices[OutcomeYes]
	return p, ok
}

// NoPrice returns the price of the NO outcome. When only a YES price is
// quoted the complement is derived.
func (m *MarketQuestion) NoPrice() (float64, bool) {
	if p, ok := m.OutcomePrices[OutcomeNo]; ok {
		return p, true
	}
	if p, ok := m.OutcomePrices[OutcomeYes]; ok {
		return 1 - p, true
	}
	return 0, false
}

// PriceFor returns the quoted price for the given contract side.
func (m *MarketQuestion) PriceFor(side Side) (float64, bool) {
	if side == SideYes {
		return m.YesPrice()
	}
	return m.NoPrice()
}

// Flags a market can carry after validation. Flagged markets are excluded
// from scoring but are never treated as fatal.
const (
	FlagPriceSumOutOfTolerance = "outcome_prices_sum_out_of_tolerance"
	FlagPriceOutOfRange        = "outcome_price_out_of_range"
	FlagNoPrices               = "no_outcome_prices"
)

// Validate checks the price invariants of a binary market and returns the
// violated flags. A nil result means the market is clean.
func (m *MarketQuestion) Validate(tolerance float64) []string {
	if tolerance <= 0 {
		tolerance = DefaultPriceSumTolerance
	}
	if len(m.OutcomePrices) == 0 {
		return []string{FlagNoPrices}
	}
	var flags []string
	sum := 0.0
	for _, p := range m.OutcomePrices {
		if p < 0 || p > 1 {
			flags = append(flags, FlagPriceOutOfRange)
			break
		}
	}
	yes, okYes := m.OutcomePrices[OutcomeYes]
	no, okNo := m.OutcomePrices[OutcomeNo]
	if okYes && okNo {
		sum = yes + no
		if sum < 1-tolerance || sum > 1+tolerance {
			flags = append(flags, FlagPriceSumOutOfTolerance)
		}
	}
	return flags
}

// Tradable reports whether the market passed validation.
func (m *MarketQuestion) Tradable(tolerance float64) bool {
	return len(m.Validate(tolerance)) == 0
}

// Snapshot is the envelope placed on the snapshot topic: one market question
// captured at one instant.
type Snapshot struct {
	Venue      Venue          `json:"venue"`
	Market     MarketQuestion `json:"market"`
	CapturedAt time.Time      `json:"captured_at"`
}

// NewSnapshot stamps a market with its capture time.
func NewSnapshot(venue Venue, market MarketQuestion, capturedAt time.Time) Snapshot {
	return Snapshot{Venue: venue, Market: market, CapturedAt: capturedAt}
}
