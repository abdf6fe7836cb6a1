package matching

import (
	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/textnorm"
)

// Weights combine a candidate's strategy prior with its observed text
// similarity into a final confidence.
type Weights struct {
	Prior      float64
	Similarity float64
}

// DefaultWeights gives prior and similarity equal say.
func DefaultWeights() Weights {
	return Weights{Prior: 0.5, Similarity: 0.5}
}

func (w Weights) orDefault() Weights {
	if w.Prior <= 0 && w.Similarity <= 0 {
		return DefaultWeights()
	}
	return w
}

// Scorer matches candidate phrasings against a pool of market questions.
type Scorer struct {
	weights Weights
}

func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w.orDefault()}
}

// Score finds the pool question most similar to the candidate text. It
// returns the index of the best question and its similarity; index -1 means
// the pool was empty.
func (s *Scorer) Score(cand Candidate, pool []markets.MarketQuestion) (int, float64) {
	bestIdx := -1
	bestSim := 0.0
	for i := range pool {
		sim := textnorm.Similarity(cand.Text, pool[i].Question)
		if bestIdx == -1 || sim > bestSim {
			bestIdx = i
			bestSim = sim
		}
	}
	return bestIdx, bestSim
}

// Confidence folds the strategy prior and the similarity into [0,1].
func (s *Scorer) Confidence(prior, similarity float64) float64 {
	conf := prior*s.weights.Prior + similarity*s.weights.Similarity
	if conf < 0 {
		return 0
	}
	if conf > 1 {
		return 1
	}
	return conf
}
