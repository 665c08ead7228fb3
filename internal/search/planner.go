package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wigg/wigg/internal/search/types"
)

// defaultPlanTimeoutMs bounds each individual provider call.
const defaultPlanTimeoutMs = 3500

// ambiguousQueries are short titles that collide across verticals ("It" the
// movie vs the book, "Up", "Her").
var ambiguousQueries = map[string]bool{
	"it": true, "up": true, "her": true, "us": true, "if": true, "elf": true,
}

// CapabilityView reports which providers have a registered, ready adapter.
// Plans are never emitted for providers that cannot serve them.
type CapabilityView interface {
	Ready(provider string) bool
}

// Planner turns analyzer output plus a cost budget into an ordered,
// budget-capped list of provider calls.
type Planner struct {
	capabilities CapabilityView
}

// NewPlanner creates a planner gated by the given capability view.
func NewPlanner(capabilities CapabilityView) *Planner {
	return &Planner{capabilities: capabilities}
}

// GeneratePlans builds the query plans for a validated input, ordered by
// descending weight and truncated to the input's provider budget. Every plan
// carries a human-readable reason preserved verbatim through execution.
func (p *Planner) GeneratePlans(input types.SearchInput) []types.QueryPlan {
	tokens := DetectTokens(input.Query)
	predicted := PredictMediaTypes(input.Query, input.Profile)
	top := predicted[0]

	baseParams := func(extra map[string]string) map[string]string {
		params := map[string]string{
			"query":  input.Query,
			"locale": input.Locale,
			"market": input.Market,
		}
		for k, v := range extra {
			params[k] = v
		}
		return params
	}

	var plans []types.QueryPlan
	add := func(plan types.QueryPlan) {
		if !p.capabilities.Ready(plan.Provider) {
			return
		}
		for _, existing := range plans {
			if existing.Key() == plan.Key() {
				return
			}
		}
		plans = append(plans, plan)
	}

	if tokens.Episode {
		add(types.QueryPlan{
			Provider:  types.ProviderTMDB,
			Endpoint:  types.EndpointSearchTV,
			Params:    baseParams(nil),
			Weight:    1.5,
			Reason:    "Episode marker detected; searching TV series",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	if tokens.Anime {
		add(types.QueryPlan{
			Provider:  types.ProviderAniList,
			Endpoint:  types.EndpointSearchAnime,
			Params:    baseParams(map[string]string{"mediaType": "ANIME"}),
			Weight:    1.4,
			Reason:    "Anime keyword detected; searching AniList",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}
	if tokens.Manga {
		add(types.QueryPlan{
			Provider:  types.ProviderAniList,
			Endpoint:  types.EndpointSearchManga,
			Params:    baseParams(map[string]string{"mediaType": "MANGA"}),
			Weight:    1.4,
			Reason:    "Manga keyword detected; searching AniList",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	if tokens.Bookish {
		add(types.QueryPlan{
			Provider:  types.ProviderOpenLibrary,
			Endpoint:  types.EndpointSearchBooks,
			Params:    baseParams(nil),
			Weight:    1.3,
			Reason:    "Book marker detected; searching Open Library",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	} else if top == types.MediaTypeBook {
		add(types.QueryPlan{
			Provider:  types.ProviderOpenLibrary,
			Endpoint:  types.EndpointSearchBooks,
			Params:    baseParams(nil),
			Weight:    1.0,
			Reason:    "Book is the top predicted type",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	if tokens.Podcast {
		add(types.QueryPlan{
			Provider:  types.ProviderPodcastIndex,
			Endpoint:  types.EndpointSearchPodcasts,
			Params:    baseParams(nil),
			Weight:    1.3,
			Reason:    "Podcast keyword detected; searching Podcast Index",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	if tokens.Games {
		add(types.QueryPlan{
			Provider:  types.ProviderIGDB,
			Endpoint:  types.EndpointSearchGames,
			Params:    baseParams(nil),
			Weight:    1.2,
			Reason:    "Game keyword detected; searching IGDB",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	} else if top == types.MediaTypeGame {
		add(types.QueryPlan{
			Provider:  types.ProviderIGDB,
			Endpoint:  types.EndpointSearchGames,
			Params:    baseParams(nil),
			Weight:    0.8,
			Reason:    "Game is the top predicted type",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	// Primary movie/TV search, unless a non-screen vertical already claimed
	// the query outright.
	if !tokens.Bookish && !tokens.Podcast && !tokens.Games {
		primaryEndpoint := types.EndpointSearchMovie
		if top == types.MediaTypeTV || top == types.MediaTypeAnime {
			primaryEndpoint = types.EndpointSearchTV
		}
		add(types.QueryPlan{
			Provider:  types.ProviderTMDB,
			Endpoint:  primaryEndpoint,
			Params:    baseParams(nil),
			Weight:    1.1,
			Reason:    fmt.Sprintf("Primary search for top predicted type %q", top),
			TimeoutMs: defaultPlanTimeoutMs,
		})

		if !tokens.Episode {
			add(types.QueryPlan{
				Provider:  types.ProviderTMDB,
				Endpoint:  types.EndpointSearchMulti,
				Params:    baseParams(nil),
				Weight:    0.9,
				Reason:    "General multi-type search to surface cross-type alternatives",
				TimeoutMs: defaultPlanTimeoutMs,
			})
		}
	}

	if isAmbiguousQuery(input.Query) && input.Budget.FallbacksAllowed() {
		add(types.QueryPlan{
			Provider:  types.ProviderTMDB,
			Endpoint:  types.EndpointSearchMulti,
			Params:    baseParams(nil),
			Weight:    0.7,
			Reason:    "Ambiguous short query; broad multi-type fallback",
			TimeoutMs: defaultPlanTimeoutMs,
		})
		add(types.QueryPlan{
			Provider:  types.ProviderOpenLibrary,
			Endpoint:  types.EndpointSearchBooks,
			Params:    baseParams(nil),
			Weight:    0.6,
			Reason:    "Ambiguous short query; book fallback",
			TimeoutMs: defaultPlanTimeoutMs,
		})
	}

	// Descending weight; stable so equal-weight plans keep emission order.
	sort.SliceStable(plans, func(i, j int) bool {
		return plans[i].Weight > plans[j].Weight
	})

	if len(plans) > input.Budget.MaxProviders {
		plans = plans[:input.Budget.MaxProviders]
	}
	return plans
}

// isAmbiguousQuery flags very short queries and known cross-vertical titles.
func isAmbiguousQuery(query string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(query))
	return len(trimmed) <= 3 || ambiguousQueries[trimmed]
}
