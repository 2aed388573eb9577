// Package generation implements the LLM collaborator interface and the
// pure model-tier selection policy.
package generation

import (
	"context"

	"ragcore/internal/config"
	"ragcore/internal/ragtype"
)

// Limits bounds a single generate call.
type Limits struct {
	MaxTokens   int
	Temperature float64
}

// Request is the full input to one LLMClient.Generate call.
type Request struct {
	System   string
	Context  string
	Question string
	ModelID  string
	Limits   Limits
}

// LLMClient is the generation collaborator. Implementations must honor the
// deadline carried on ctx and return ragtype.CancelledError if the
// cancellation signal fires before or during the call.
type LLMClient interface {
	Generate(ctx context.Context, req Request) (ragtype.Generation, error)
}

// ModelTierPolicy decides the model tier from (route, context size, query
// length, flags). It is pure: no I/O, no side effects.
type ModelTierPolicy struct {
	tiers map[config.ModelTier]string
}

// NewModelTierPolicy builds the policy from the tier→model_id map in config.
func NewModelTierPolicy(tiers map[config.ModelTier]string) *ModelTierPolicy {
	return &ModelTierPolicy{tiers: tiers}
}

// Flags carries the boolean signals the policy may consult, e.g. an explicit
// "force_complex" experiment flag.
type Flags struct {
	ForceComplex bool
}

// Decide maps (route, context token count, query length, flags) to a tier and
// its concrete model_id.
func (p *ModelTierPolicy) Decide(route ragtype.RouteKind, contextTokens, queryLength int, flags Flags) (config.ModelTier, string) {
	tier := config.TierFast

	switch {
	case flags.ForceComplex:
		tier = config.TierComplex
	case route == ragtype.RouteEscalate:
		tier = config.TierComplex
	case contextTokens > 1500 || queryLength > 400:
		tier = config.TierStandard
	case route == ragtype.RouteRAG && contextTokens > 500:
		tier = config.TierStandard
	}

	return tier, p.tiers[tier]
}
