package oddseq

import (
	"fmt"
	"sort"
	"time"
)

// Stats aggregates one path's progression across all sequences of all
// tracked events. Recomputed per run, never mutated afterwards.
type Stats struct {
	Path Path `json:"path"`

	// Sequence-level counts: how many sequences reached the first
	// threshold, and how many of those completed the full path.
	SequenceBase    int `json:"sequence_base"`
	SequenceSuccess int `json:"sequence_success"`

	// Event-level identifier sets, kept so results stay auditable.
	BaseEvents    []string `json:"base_events"`
	SuccessEvents []string `json:"success_events"`

	// BaseCrossings counts every distinct entry into the first threshold's
	// region, not just first crossings.
	BaseCrossings int `json:"base_crossings"`
}

// SequenceRate is successes over bases at sequence granularity. The second
// return is false when no sequence reached the first threshold, making the
// rate undefined rather than zero-by-accident.
func (s Stats) SequenceRate() (float64, bool) {
	if s.SequenceBase == 0 {
		return 0, false
	}
	return float64(s.SequenceSuccess) / float64(s.SequenceBase), true
}

// EventRate is the same ratio at event granularity.
func (s Stats) EventRate() (float64, bool) {
	if len(s.BaseEvents) == 0 {
		return 0, false
	}
	return float64(len(s.SuccessEvents)) / float64(len(s.BaseEvents)), true
}

// Result is the outcome of one analysis run.
type Result struct {
	Stats         []Stats `json:"stats"`
	Sequences     int     `json:"sequences"`
	Events        int     `json:"events"`
	DroppedPoints int     `json:"dropped_points"`
}

// Analyzer evaluates a configured list of threshold paths over per-event
// observation histories. Path validation happens once, in New, before any
// scan runs.
type Analyzer struct {
	maxGap time.Duration
	paths  []Path
}

func New(maxGap time.Duration, paths []Path) (*Analyzer, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("oddseq: at least one threshold path is required")
	}
	for i, p := range paths {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("oddseq: path %d: %w", i, err)
		}
	}
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	return &Analyzer{maxGap: maxGap, paths: paths}, nil
}

// Run segments every event's history and accumulates progression counts for
// each configured path. Events contribute independently; the aggregation is
// a plain sum, so iteration order never affects the counts.
func (a *Analyzer) Run(series map[string][]Observation) (Result, error) {
	if len(series) == 0 {
		return Result{}, fmt.Errorf("oddseq: no observation series provided")
	}

	baseEvents := make([]map[string]struct{}, len(a.paths))
	successEvents := make([]map[string]struct{}, len(a.paths))
	for i := range a.paths {
		baseEvents[i] = make(map[string]struct{})
		successEvents[i] = make(map[string]struct{})
	}

	res := Result{Stats: make([]Stats, len(a.paths)), Events: len(series)}
	for i, p := range a.paths {
		res.Stats[i].Path = p
	}

	eventIDs := make([]string, 0, len(series))
	for id := range series {
		eventIDs = append(eventIDs, id)
	}
	sort.Strings(eventIDs)

	for _, eventID := range eventIDs {
		seqs, dropped := Split(eventID, series[eventID], a.maxGap)
		res.Sequences += len(seqs)
		res.DroppedPoints += dropped
		for _, seq := range seqs {
			for i, path := range a.paths {
				baseHit, success := walk(seq, path)
				if !baseHit {
					continue
				}
				st := &res.Stats[i]
				st.SequenceBase++
				st.BaseCrossings += crossings(seq, path.From(), path.Direction)
				baseEvents[i][eventID] = struct{}{}
				if success {
					st.SequenceSuccess++
					successEvents[i][eventID] = struct{}{}
				}
			}
		}
	}

	for i := range res.Stats {
		res.Stats[i].BaseEvents = sortedKeys(baseEvents[i])
		res.Stats[i].SuccessEvents = sortedKeys(successEvents[i])
	}
	return res, nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
