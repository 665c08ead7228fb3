package search

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/search/types"
)

// NormalizeResults invokes each successful plan's adapter Normalize step and
// concatenates the outputs. A normalization error is logged and skipped
// per-provider; it never fails the overall step.
func NormalizeResults(registry *provider.Registry, raw types.RawProviderResults, plans []types.QueryPlan, logger zerolog.Logger) []types.NormalizedResult {
	results := make([]types.NormalizedResult, 0)

	for _, plan := range plans {
		res, ok := raw[plan.Key()]
		if !ok || !res.OK {
			continue
		}

		adapter, err := registry.Get(plan.Provider)
		if err != nil {
			logger.Warn().
				Str("provider", plan.Provider).
				Msg("Adapter disappeared between execution and normalization")
			continue
		}

		normalized, err := adapter.Normalize(res.Data)
		if err != nil {
			logger.Warn().
				Err(err).
				Str("provider", plan.Provider).
				Str("endpoint", plan.Endpoint).
				Msg("Failed to normalize provider response")
			continue
		}
		results = append(results, normalized...)
	}
	return results
}

// dedupKey builds the identity key for a result: normalized title + type +
// year, with a missing year spelled "unknown".
func dedupKey(r types.NormalizedResult) string {
	year := "unknown"
	if r.Year != 0 {
		year = fmt.Sprintf("%d", r.Year)
	}
	return NormalizeTitle(r.Title) + "|" + string(r.Type) + "|" + year
}

// Deduplicate merges results that describe the same entity across providers.
// The first occurrence of a key is kept as the canonical record and keeps its
// first-seen position; later matches contribute their provider data (union,
// never overwriting an existing provider entry) instead of being dropped.
func Deduplicate(results []types.NormalizedResult) []types.NormalizedResult {
	if len(results) == 0 {
		return results
	}

	seen := make(map[string]int, len(results))
	deduped := make([]types.NormalizedResult, 0, len(results))

	for _, result := range results {
		key := dedupKey(result)
		idx, exists := seen[key]
		if !exists {
			seen[key] = len(deduped)
			deduped = append(deduped, result)
			continue
		}

		// Merge into a fresh map: the canonical record still shares its
		// ProviderData with the caller's input slice.
		canonical := &deduped[idx]
		merged := make(map[string]any, len(canonical.ProviderData)+len(result.ProviderData))
		for name, data := range canonical.ProviderData {
			merged[name] = data
		}
		for name, data := range result.ProviderData {
			if _, taken := merged[name]; !taken {
				merged[name] = data
			}
		}
		canonical.ProviderData = merged
	}
	return deduped
}
