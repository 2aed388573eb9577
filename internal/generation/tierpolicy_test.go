package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragcore/internal/config"
	"ragcore/internal/ragtype"
)

func testTiers() map[config.ModelTier]string {
	return map[config.ModelTier]string{
		config.TierFast:     "fast-model",
		config.TierStandard: "standard-model",
		config.TierComplex:  "complex-model",
	}
}

func TestModelTierPolicy_ForceComplexOverridesEverything(t *testing.T) {
	p := NewModelTierPolicy(testTiers())
	tier, model := p.Decide(ragtype.RouteRAG, 10, 5, Flags{ForceComplex: true})
	assert.Equal(t, config.TierComplex, tier)
	assert.Equal(t, "complex-model", model)
}

func TestModelTierPolicy_EscalateAlwaysComplex(t *testing.T) {
	p := NewModelTierPolicy(testTiers())
	tier, _ := p.Decide(ragtype.RouteEscalate, 0, 0, Flags{})
	assert.Equal(t, config.TierComplex, tier)
}

func TestModelTierPolicy_LargeContextEscalatesToStandard(t *testing.T) {
	p := NewModelTierPolicy(testTiers())
	tier, _ := p.Decide(ragtype.RouteDirect, 2000, 5, Flags{})
	assert.Equal(t, config.TierStandard, tier)
}

func TestModelTierPolicy_SmallRAGRequestStaysFast(t *testing.T) {
	p := NewModelTierPolicy(testTiers())
	tier, model := p.Decide(ragtype.RouteRAG, 100, 20, Flags{})
	assert.Equal(t, config.TierFast, tier)
	assert.Equal(t, "fast-model", model)
}
