package markets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideNo, SideYes.Opposite())
	assert.Equal(t, SideYes, SideNo.Opposite())
}

func TestNoPriceDerivesComplement(t *testing.T) {
	m := MarketQuestion{OutcomePrices: map[string]float64{OutcomeYes: 0.42}}
	no, ok := m.NoPrice()
	assert.True(t, ok)
	assert.InDelta(t, 0.58, no, 1e-9)

	m.OutcomePrices[OutcomeNo] = 0.57
	no, _ = m.NoPrice()
	assert.InDelta(t, 0.57, no, 1e-9)

	empty := MarketQuestion{}
	_, ok = empty.NoPrice()
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		prices map[string]float64
		want   []string
	}{
		{
			name:   "clean",
			prices: map[string]float64{OutcomeYes: 0.45, OutcomeNo: 0.55},
			want:   nil,
		},
		{
			name:   "within tolerance",
			prices: map[string]float64{OutcomeYes: 0.45, OutcomeNo: 0.554},
			want:   nil,
		},
		{
			name:   "sum out of tolerance",
			prices: map[string]float64{OutcomeYes: 0.45, OutcomeNo: 0.60},
			want:   []string{FlagPriceSumOutOfTolerance},
		},
		{
			name:   "price out of range",
			prices: map[string]float64{OutcomeYes: 1.2, OutcomeNo: -0.2},
			want:   []string{FlagPriceOutOfRange},
		},
		{
			name: "no prices",
			want: []string{FlagNoPrices},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MarketQuestion{ID: "m", OutcomePrices: tt.prices}
			assert.Equal(t, tt.want, m.Validate(0))
			assert.Equal(t, len(tt.want) == 0, m.Tradable(0))
		})
	}
}
