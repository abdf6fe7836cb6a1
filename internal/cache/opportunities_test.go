package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jcarver/oddsparity/internal/arb"
)

func TestImproves(t *testing.T) {
	op := arb.Opportunity{Edge: 0.05}

	assert.True(t, Improves(nil, op), "nothing cached yet")
	assert.True(t, Improves(&OpportunityRecord{Edge: 0.03}, op))
	assert.False(t, Improves(&OpportunityRecord{Edge: 0.05}, op), "equal edge is not an improvement")
	assert.False(t, Improves(&OpportunityRecord{Edge: 0.08}, op))
}

func TestNewCachesRequireAddr(t *testing.T) {
	_, err := NewRedisOpportunityCache("", "", 0, 0, "")
	assert.Error(t, err)
	_, err = NewRedisVerdictCache("", "", 0, 0, "")
	assert.Error(t, err)
}
