package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ragcore/internal/config"
)

func TestFlagResolver_UnknownFlagReturnsEmpty(t *testing.T) {
	r := NewFlagResolver(map[string]config.FlagConfig{})
	assert.Equal(t, "", r.Resolve("model_variant", "u1", "acme"))
}

func TestFlagResolver_TenantOverrideWinsOverUserOverrideAndBucket(t *testing.T) {
	r := NewFlagResolver(map[string]config.FlagConfig{
		"model_variant": {
			Variants:        []config.VariantWeight{{Name: "control", Weight: 1.0}},
			UserOverrides:   map[string]string{"u1": "user_override"},
			TenantOverrides: map[string]string{"acme": "tenant_override"},
			Default:         "control",
		},
	})
	assert.Equal(t, "tenant_override", r.Resolve("model_variant", "u1", "acme"))
}

func TestFlagResolver_UserOverrideWinsOverBucket(t *testing.T) {
	r := NewFlagResolver(map[string]config.FlagConfig{
		"model_variant": {
			Variants:      []config.VariantWeight{{Name: "control", Weight: 1.0}},
			UserOverrides: map[string]string{"u1": "user_override"},
			Default:       "control",
		},
	})
	assert.Equal(t, "user_override", r.Resolve("model_variant", "u1", "acme"))
}

func TestFlagResolver_BucketIsDeterministicAndCoversFullWeightSpan(t *testing.T) {
	r := NewFlagResolver(map[string]config.FlagConfig{
		"model_variant": {
			Variants: []config.VariantWeight{{Name: "all", Weight: 1.0}},
			Default:  "fallback",
		},
	})
	first := r.Resolve("model_variant", "u-42", "acme")
	second := r.Resolve("model_variant", "u-42", "acme")
	assert.Equal(t, first, second)
	assert.Equal(t, "all", first)
}

func TestFlagResolver_FallsBackToDefaultWhenWeightsDontCoverBucket(t *testing.T) {
	r := NewFlagResolver(map[string]config.FlagConfig{
		"model_variant": {
			Variants: []config.VariantWeight{{Name: "tiny", Weight: 0.0}},
			Default:  "fallback",
		},
	})
	assert.Equal(t, "fallback", r.Resolve("model_variant", "u-1", "acme"))
}
