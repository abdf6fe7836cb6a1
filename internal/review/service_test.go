package review

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcarver/oddsparity/internal/markets"
	"github.com/jcarver/oddsparity/internal/matching"
)

type fakeCompleter struct {
	response string
	err      error
	lastUser string
}

func (f *fakeCompleter) Complete(_ context.Context, _, userPrompt string) (string, error) {
	f.lastUser = userPrompt
	return f.response, f.err
}

func pairResult() matching.Result {
	return matching.Result{
		Source: markets.MarketQuestion{
			ID: "pi-1", Venue: markets.VenuePredictIt,
			Question: "Republicans to win the House",
		},
		Matched: markets.MarketQuestion{
			ID: "pm-1", Venue: markets.VenuePolymarket,
			Question: "Will the Republicans win the House?",
		},
		Strategy:   matching.StrategyOriginalPattern,
		Confidence: 0.95,
	}
}

func TestReviewParsesVerdict(t *testing.T) {
	fake := &fakeCompleter{response: `{"Equivalent": true, "Reason": "same outcome"}`}
	svc := &Service{llm: fake}

	verdict, err := svc.Review(context.Background(), pairResult())
	require.NoError(t, err)
	assert.True(t, verdict.Equivalent)
	assert.Equal(t, "same outcome", verdict.Reason)
	assert.Contains(t, fake.lastUser, "Republicans to win the House")
	assert.Contains(t, fake.lastUser, "Will the Republicans win the House?")
}

func TestReviewPropagatesClientError(t *testing.T) {
	svc := &Service{llm: &fakeCompleter{err: fmt.Errorf("rate limited")}}
	_, err := svc.Review(context.Background(), pairResult())
	assert.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		wantErr bool
	}{
		{name: "plain json", raw: `{"Equivalent": false, "Reason": "different cutoff"}`, want: false},
		{name: "json wrapped in prose", raw: "Sure, here you go:\n{\"Equivalent\": true, \"Reason\": \"ok\"}\nHope that helps!", want: true},
		{name: "not json", raw: "I cannot decide", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVerdict(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Equivalent)
		})
	}
}

func TestCacheKeyOrderIndependentAndTextSensitive(t *testing.T) {
	res := pairResult()

	swapped := res
	swapped.Source, swapped.Matched = res.Matched, res.Source
	assert.Equal(t, CacheKey(res), CacheKey(swapped))

	reworded := res
	reworded.Matched.Question = "Will Republicans control the House?"
	assert.NotEqual(t, CacheKey(res), CacheKey(reworded))
}

func TestNewServiceRequiresClient(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
