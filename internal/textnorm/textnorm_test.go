package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "lowercases and strips punctuation",
			in:   "Will the Republicans win control of the U.S. House?",
			want: []string{"will", "republicans", "win", "control", "u", "s", "house"},
		},
		{
			name: "strips diacritics",
			in:   "Claudia Sheinbaum élection",
			want: []string{"claudia", "sheinbaum", "election"},
		},
		{
			name: "drops stop words",
			in:   "Who is the President of the United States",
			want: []string{"president", "united", "states"},
		},
		{
			name: "empty input",
			in:   "   ",
			want: nil,
		},
		{
			name: "only stop words",
			in:   "the of and",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := "Will Trump WIN the 2024 Élection?"
	once := Normalize(in)
	require.NotEmpty(t, once)
	twice := Normalize(join(once))
	assert.Equal(t, once, twice)
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical token sets", a: "Republicans win the House", b: "republicans WIN house!", want: 1},
		{name: "disjoint", a: "bitcoin price above 100k", b: "senate runoff georgia", want: 0},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "", b: "something", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a := "Will the Democrats win the Senate in 2024?"
	b := "Democrats hold Senate control after 2024 election"
	assert.InDelta(t, Similarity(a, b), Similarity(b, a), 1e-9)
}

func TestSimilarityPartialOverlap(t *testing.T) {
	// sets: {will, republicans, win, house} and {republicans, house, majority}
	// common 2, sizes 4+3 -> dice = 4/7
	got := Similarity("will republicans win house", "republicans house majority")
	assert.InDelta(t, 4.0/7.0, got, 1e-9)
}

func TestExtractKeyTerms(t *testing.T) {
	terms := ExtractKeyTerms("Will Biden win the 2024 US election?")
	assert.Equal(t, []string{"will", "biden", "win", "2024", "election"}, terms)
}

func TestSubset(t *testing.T) {
	assert.True(t, Subset(TokenSet("republicans house"), TokenSet("will republicans win the house")))
	assert.False(t, Subset(TokenSet("republicans senate"), TokenSet("will republicans win the house")))
	assert.False(t, Subset(nil, TokenSet("anything")))
}

func join(tokens []string) string {
	out := ""
	for i, tok := range tokens {
		if i > 0 {
			out += " "
		}
		out += tok
	}
	return out
}
