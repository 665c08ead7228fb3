// Package types holds the shared data model for the smart search pipeline.
package types

import (
	"errors"
	"strings"
)

// MediaType identifies the vertical a result belongs to.
type MediaType string

// Known media types.
const (
	MediaTypeTV      MediaType = "tv"
	MediaTypeMovie   MediaType = "movie"
	MediaTypeBook    MediaType = "book"
	MediaTypeAnime   MediaType = "anime"
	MediaTypeManga   MediaType = "manga"
	MediaTypePodcast MediaType = "podcast"
	MediaTypeVideo   MediaType = "video"
	MediaTypeGame    MediaType = "game"
)

// AllMediaTypes lists every known media type in canonical order.
var AllMediaTypes = []MediaType{
	MediaTypeTV, MediaTypeMovie, MediaTypeBook, MediaTypeAnime,
	MediaTypeManga, MediaTypePodcast, MediaTypeVideo, MediaTypeGame,
}

// IsValid reports whether t is one of the known media types.
func (t MediaType) IsValid() bool {
	for _, known := range AllMediaTypes {
		if t == known {
			return true
		}
	}
	return false
}

// UserProfile carries per-user hints that bias type prediction.
type UserProfile struct {
	LastVertical MediaType `json:"lastVertical,omitempty"`
	NSFW         bool      `json:"nsfw,omitempty"`
}

// MaxProviderBudget is the hard cap on providers queried per search.
const MaxProviderBudget = 5

// CostBudget limits how many provider calls a single search may fan out to.
// AllowFallbacks is a pointer so an omitted value can default to true.
type CostBudget struct {
	MaxProviders   int   `json:"maxProviders"`
	AllowFallbacks *bool `json:"allowFallbacks,omitempty"`
}

// FallbacksAllowed reports whether ambiguity fallback plans may be added.
func (b CostBudget) FallbacksAllowed() bool {
	return b.AllowFallbacks == nil || *b.AllowFallbacks
}

// SearchInput is the immutable request for one search invocation.
type SearchInput struct {
	Query   string       `json:"query"`
	Locale  string       `json:"locale"`
	Market  string       `json:"market"`
	Profile *UserProfile `json:"userProfile,omitempty"`
	Budget  CostBudget   `json:"costBudget"`
}

// Validation errors.
var (
	ErrNilInput   = errors.New("search input is nil")
	ErrEmptyQuery = errors.New("search query must not be empty")
)

// ValidateInput checks and defaults a SearchInput in place.
// Locale defaults to en-US, market to US, fallbacks to allowed, and the
// provider budget is clamped to [1, MaxProviderBudget].
func ValidateInput(input *SearchInput) error {
	if input == nil {
		return ErrNilInput
	}
	if strings.TrimSpace(input.Query) == "" {
		return ErrEmptyQuery
	}
	if input.Locale == "" {
		input.Locale = "en-US"
	}
	if input.Market == "" {
		input.Market = "US"
	}
	if input.Budget.MaxProviders <= 0 || input.Budget.MaxProviders > MaxProviderBudget {
		input.Budget.MaxProviders = MaxProviderBudget
	}
	if input.Budget.AllowFallbacks == nil {
		allowed := true
		input.Budget.AllowFallbacks = &allowed
	}
	return nil
}

// Provider and endpoint names shared between the planner and the adapters.
const (
	ProviderTMDB         = "tmdb"
	ProviderAniList      = "anilist"
	ProviderOpenLibrary  = "openlibrary"
	ProviderPodcastIndex = "podcastindex"
	ProviderIGDB         = "igdb"

	EndpointSearchTV       = "search_tv"
	EndpointSearchMovie    = "search_movie"
	EndpointSearchMulti    = "search_multi"
	EndpointSearchAnime    = "search_anime"
	EndpointSearchManga    = "search_manga"
	EndpointSearchBooks    = "search_books"
	EndpointSearchPodcasts = "search_podcasts"
	EndpointSearchGames    = "search_games"
)

// QueryPlan is a single provider call the pipeline intends to execute.
type QueryPlan struct {
	Provider  string            `json:"provider"`
	Endpoint  string            `json:"endpoint"`
	Params    map[string]string `json:"params,omitempty"`
	Weight    float64           `json:"weight"`
	Reason    string            `json:"reason"`
	TimeoutMs int               `json:"timeoutMs"`
}

// Key returns the provider:endpoint identifier used to key results.
func (p QueryPlan) Key() string {
	return p.Provider + ":" + p.Endpoint
}

// ProviderResult records the outcome of one executed plan.
// Failures are data, not errors: the pipeline proceeds with whatever succeeded.
type ProviderResult struct {
	OK        bool   `json:"ok"`
	ElapsedMs int64  `json:"elapsedMs"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RawProviderResults maps plan keys (provider:endpoint) to their outcomes.
type RawProviderResults map[string]ProviderResult

// NormalizedResult is the common result shape every adapter maps into.
// ID has the form "provider:type:id" and is globally unique before dedup.
type NormalizedResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Type         MediaType      `json:"type"`
	Year         int            `json:"year,omitempty"`
	Description  string         `json:"description,omitempty"`
	Image        string         `json:"image,omitempty"`
	Rating       float64        `json:"rating,omitempty"`
	Creators     []string       `json:"creators,omitempty"`
	Genres       []string       `json:"genres,omitempty"`
	Popularity   float64        `json:"popularity,omitempty"`
	Language     string         `json:"language,omitempty"`
	Country      []string       `json:"country,omitempty"`
	ProviderData map[string]any `json:"providerData,omitempty"`
}

// ScoredResult pairs a normalized result with its relevance score in [0,1].
type ScoredResult struct {
	NormalizedResult
	Score float64 `json:"score"`
}

// ProviderRef is a per-provider identifier on an entity card.
type ProviderRef struct {
	ID string `json:"id"`
}

// EntityCard is the output-facing projection of a candidate entity.
type EntityCard struct {
	TitleID      string                  `json:"titleId"`
	DisplayTitle string                  `json:"displayTitle"`
	Type         MediaType               `json:"type"`
	YearStart    int                     `json:"yearStart,omitempty"`
	Confidence   float64                 `json:"confidence,omitempty"`
	Providers    map[string]*ProviderRef `json:"providers,omitempty"`
}

// DecisionMode says whether the resolver picked a single entity or wants the
// user to disambiguate.
type DecisionMode string

// Decision modes.
const (
	DecisionAutoSelect   DecisionMode = "auto_select"
	DecisionDisambiguate DecisionMode = "disambiguate"
)

// SearchDecision explains the resolver's choice.
type SearchDecision struct {
	Mode       DecisionMode `json:"mode"`
	Confidence float64      `json:"confidence"`
	Why        []string     `json:"why"`
}

// UnitHint carries season/episode or chapter/volume numbers extracted from
// the query, for downstream unit-level navigation. Zero means absent.
type UnitHint struct {
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
	Chapter int `json:"chapter,omitempty"`
	Volume  int `json:"volume,omitempty"`
}

// MaxAlternatives caps how many non-primary candidates are surfaced.
const MaxAlternatives = 3

// ResolvedSearch is the final envelope returned for every search.
type ResolvedSearch struct {
	Decision      SearchDecision `json:"decision"`
	Primary       EntityCard     `json:"primary"`
	Alternatives  []EntityCard   `json:"alternatives"`
	QueryPlanEcho []QueryPlan    `json:"queryPlanEcho,omitempty"`
	UnitHint      *UnitHint      `json:"unitHint,omitempty"`
}
