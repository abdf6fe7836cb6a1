// Package oddseq segments time-stamped probability histories into gap-bounded
// sequences and computes empirical threshold-progression statistics over
// them.
package oddseq

import (
	"fmt"
	"sort"
	"time"
)

// Observation is one sampled probability for one event.
type Observation struct {
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	Probability float64   `json:"probability"`
}

// Sequence is a maximal run of an event's observations where no inter-sample
// gap exceeds the configured bound. A single observation is a valid
// sequence.
type Sequence struct {
	EventID      string
	Index        int
	Observations []Observation
}

// ID identifies the sequence within its event's history.
func (s Sequence) ID() string {
	return fmt.Sprintf("%s#%d", s.EventID, s.Index)
}

// Direction of a threshold progression.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
)

// DefaultMaxGap matches the 5-60 minute snapshot cadence the segmentation is
// tuned for.
const DefaultMaxGap = 60 * time.Minute

// Path is an ordered threshold progression. Two thresholds form the common
// (from, to) pair; longer paths require each threshold to be reached in
// order within one sequence.
type Path struct {
	Thresholds []float64 `json:"thresholds"`
	Direction  Direction `json:"direction"`
}

// Validate surfaces configuration errors before any analysis runs.
func (p Path) Validate() error {
	if len(p.Thresholds) < 2 {
		return fmt.Errorf("oddseq: path needs at least two thresholds, got %d", len(p.Thresholds))
	}
	for _, t := range p.Thresholds {
		if t < 0 || t > 1 {
			return fmt.Errorf("oddseq: threshold %v outside [0,1]", t)
		}
	}
	switch p.Direction {
	case DirectionRising, DirectionFalling:
	default:
		return fmt.Errorf("oddseq: unknown direction %q", p.Direction)
	}
	return nil
}

// From and To are the end points of the path.
func (p Path) From() float64 { return p.Thresholds[0] }
func (p Path) To() float64   { return p.Thresholds[len(p.Thresholds)-1] }

// Split segments one event's observations into gap-bounded sequences. The
// input is sorted by timestamp; observations with probabilities outside
// [0,1] are dropped and counted, never fatal. Concatenating the returned
// sequences reproduces the retained observations exactly.
func Split(eventID string, obs []Observation, maxGap time.Duration) ([]Sequence, int) {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}

	valid := make([]Observation, 0, len(obs))
	dropped := 0
	for _, o := range obs {
		if o.Probability < 0 || o.Probability > 1 {
			dropped++
			continue
		}
		valid = append(valid, o)
	}
	if len(valid) == 0 {
		return nil, dropped
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Timestamp.Before(valid[j].Timestamp)
	})

	var seqs []Sequence
	start := 0
	for i := 1; i <= len(valid); i++ {
		if i < len(valid) && valid[i].Timestamp.Sub(valid[i-1].Timestamp) <= maxGap {
			continue
		}
		seqs = append(seqs, Sequence{
			EventID:      eventID,
			Index:        len(seqs),
			Observations: valid[start:i:i],
		})
		start = i
	}
	return seqs, dropped
}

// reaches reports whether the value crosses the threshold in the given
// direction.
func reaches(value, threshold float64, dir Direction) bool {
	if dir == DirectionRising {
		return value >= threshold
	}
	return value <= threshold
}

// walk follows the path through the sequence: the first threshold may be
// reached anywhere, each later one strictly afterwards. Equal consecutive
// thresholds are trivially satisfied at the same observation. It returns
// whether the first threshold was reached and whether the full path
// completed.
func walk(seq Sequence, path Path) (baseHit, success bool) {
	idx := findFrom(seq.Observations, path.Thresholds[0], path.Direction, 0)
	if idx < 0 {
		return false, false
	}
	prev := path.Thresholds[0]
	for _, t := range path.Thresholds[1:] {
		if t == prev {
			continue
		}
		idx = findFrom(seq.Observations, t, path.Direction, idx+1)
		if idx < 0 {
			return true, false
		}
		prev = t
	}
	return true, true
}

func findFrom(obs []Observation, threshold float64, dir Direction, start int) int {
	for i := start; i < len(obs); i++ {
		if reaches(obs[i].Probability, threshold, dir) {
			return i
		}
	}
	return -1
}

// crossings counts distinct entries into the threshold region: transitions
// from not-reaching to reaching. An exposed richer statistic alongside the
// first-crossing progression counts.
func crossings(seq Sequence, threshold float64, dir Direction) int {
	count := 0
	inside := false
	for _, o := range seq.Observations {
		hit := reaches(o.Probability, threshold, dir)
		if hit && !inside {
			count++
		}
		inside = hit
	}
	return count
}
