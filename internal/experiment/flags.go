// Package experiment implements feature flag resolution, variant recording,
// and the shadow-run fork.
package experiment

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"ragcore/internal/config"
)

// FlagResolver resolves a feature flag to a variant name deterministically
// for a given (user_id, tenant_id) pair, generalized from the teacher's
// FNV-hash traffic-split selectVariant (internal/llmops/experiments.go) to
// the MD5-mod-10000 bucketing scheme plus tenant/user override priority.
type FlagResolver struct {
	flags map[string]config.FlagConfig
}

// NewFlagResolver builds a resolver from the flags section of config.
func NewFlagResolver(flags map[string]config.FlagConfig) *FlagResolver {
	return &FlagResolver{flags: flags}
}

// Resolve returns the variant name assigned to (flagName, userID, tenantID).
// Priority: tenant override, user override, hash-bucket walk over configured
// variants, then the flag's default_variant.
func (r *FlagResolver) Resolve(flagName, userID, tenantID string) string {
	flag, ok := r.flags[flagName]
	if !ok {
		return ""
	}

	if v, ok := flag.TenantOverrides[tenantID]; ok {
		return v
	}
	if v, ok := flag.UserOverrides[userID]; ok {
		return v
	}

	bucket := bucketFor(userID)

	var cumulative float64
	for _, variant := range flag.Variants {
		cumulative += variant.Weight
		if bucket < cumulative {
			return variant.Name
		}
	}

	return flag.Default
}

// bucketFor maps a user id to a deterministic value in [0, 1): the first 8
// hex characters of MD5(user_id), interpreted as a base-16 integer, mod
// 10000, divided by 10000.
func bucketFor(userID string) float64 {
	sum := md5.Sum([]byte(userID))
	hexPrefix := hex.EncodeToString(sum[:])[:8]
	n, err := strconv.ParseUint(hexPrefix, 16, 64)
	if err != nil {
		return 0
	}
	return float64(n%10000) / 10000.0
}
