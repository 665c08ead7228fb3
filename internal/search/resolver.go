package search

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/wigg/wigg/internal/search/types"
)

var (
	titleApostropheRegex = regexp.MustCompile("[''`‘’ʼ]")
	titleSpecialRegex    = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
	titleSpaceRegex      = regexp.MustCompile(`\s+`)
)

// titleStopWords are dropped when normalizing titles for comparison. A
// superset of the query stop words: articles, prepositions, conjunctions.
var titleStopWords = map[string]bool{
	"the": true, "a": true, "an": true,
	"and": true, "or": true,
	"of": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "with": true, "by": true,
}

// NormalizeTitle converts a title to a normalized form for comparison:
// lowercase, apostrophes stripped (so "Schitt's" and "Schitts" agree),
// remaining punctuation replaced with spaces, whitespace collapsed, and
// articles/prepositions/conjunctions dropped.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	normalized = titleApostropheRegex.ReplaceAllString(normalized, "")
	normalized = titleSpecialRegex.ReplaceAllString(normalized, " ")
	normalized = titleSpaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	fields := strings.Fields(normalized)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if titleStopWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// FuzzyMatch scores the similarity of two strings in [0,1]. Exact
// case-insensitive equality after trimming scores 1.0; two empty strings
// score 0.0 since there is no meaningful overlap. Substring containment
// scores the length ratio scaled by 0.9. Otherwise the score is a
// Levenshtein similarity plus a word-overlap bonus of up to 0.2, capped at 1.
func FuzzyMatch(a, b string) float64 {
	x := strings.ToLower(strings.TrimSpace(a))
	y := strings.ToLower(strings.TrimSpace(b))

	if x == "" && y == "" {
		return 0.0
	}
	if x == y {
		return 1.0
	}
	if x == "" || y == "" {
		return 0.0
	}

	// Lengths are counted in runes to match ComputeDistance, which
	// operates on runes; byte lengths would skew multi-byte titles.
	lenX := utf8.RuneCountInString(x)
	lenY := utf8.RuneCountInString(y)

	if strings.Contains(x, y) || strings.Contains(y, x) {
		shorter, longer := lenX, lenY
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return (float64(shorter) / float64(longer)) * 0.9
	}

	maxLen := lenX
	if lenY > maxLen {
		maxLen = lenY
	}
	distance := levenshtein.ComputeDistance(x, y)
	similarity := float64(maxLen-distance) / float64(maxLen)
	if similarity < 0 {
		similarity = 0
	}

	score := similarity + wordOverlap(x, y)*0.2
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// wordOverlap returns the fraction of words shared between two strings,
// relative to the larger word count.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0.0
	}

	setA := make(map[string]bool, len(wordsA))
	for _, w := range wordsA {
		setA[w] = true
	}
	shared := 0
	counted := make(map[string]bool, len(wordsB))
	for _, w := range wordsB {
		if setA[w] && !counted[w] {
			shared++
			counted[w] = true
		}
	}

	larger := len(wordsA)
	if len(wordsB) > larger {
		larger = len(wordsB)
	}
	return float64(shared) / float64(larger)
}

// Scoring weights. Title similarity dominates; the rest are soft priors.
const (
	titleWeight      = 0.55
	typeWeight       = 0.15
	popularityWeight = 0.15
	yearWeight       = 0.10
	creatorWeight    = 0.05

	popularityCeiling = 1000.0
	yearDecaySpan     = 50.0

	lowRatingPenalty = 0.10
	oldYearPenalty   = 0.05
	adultPenalty     = 0.20
)

// typeSimilarity is the fixed pairwise similarity table between media types.
// Symmetric; identical types score 1.0; unrelated pairs fall back to 0.2.
var typeSimilarity = map[[2]types.MediaType]float64{
	{types.MediaTypeTV, types.MediaTypeMovie}:      0.6,
	{types.MediaTypeTV, types.MediaTypeAnime}:      0.7,
	{types.MediaTypeTV, types.MediaTypeVideo}:      0.5,
	{types.MediaTypeMovie, types.MediaTypeAnime}:   0.5,
	{types.MediaTypeMovie, types.MediaTypeVideo}:   0.5,
	{types.MediaTypeAnime, types.MediaTypeManga}:   0.8,
	{types.MediaTypeBook, types.MediaTypeManga}:    0.6,
	{types.MediaTypeBook, types.MediaTypeMovie}:    0.3,
	{types.MediaTypePodcast, types.MediaTypeVideo}: 0.4,
	{types.MediaTypeGame, types.MediaTypeVideo}:    0.4,
}

func mediaTypeSimilarity(a, b types.MediaType) float64 {
	if a == b {
		return 1.0
	}
	if sim, ok := typeSimilarity[[2]types.MediaType{a, b}]; ok {
		return sim
	}
	if sim, ok := typeSimilarity[[2]types.MediaType{b, a}]; ok {
		return sim
	}
	return 0.2
}

// ScoreResult scores a candidate against the query and predicted type.
func ScoreResult(result types.NormalizedResult, query string, predicted types.MediaType) float64 {
	return scoreResultAt(result, query, predicted, time.Now())
}

// scoreResultAt is the deterministic core of ScoreResult with an injected
// clock for year-reasonableness.
func scoreResultAt(result types.NormalizedResult, query string, predicted types.MediaType, now time.Time) float64 {
	var score float64

	// Title match: exact normalized equality short-circuits the fuzzy path.
	if NormalizeTitle(result.Title) != "" && NormalizeTitle(result.Title) == NormalizeTitle(query) {
		score += titleWeight
	} else {
		score += FuzzyMatch(result.Title, query) * titleWeight
	}

	score += mediaTypeSimilarity(result.Type, predicted) * typeWeight

	popularity := result.Popularity / popularityCeiling
	if popularity > 1.0 {
		popularity = 1.0
	}
	score += popularity * popularityWeight

	// Year reasonableness decays linearly to zero at fifty years out;
	// unknown years sit at the midpoint.
	yearScore := 0.5
	if result.Year != 0 {
		diff := now.Year() - result.Year
		if diff < 0 {
			diff = -diff
		}
		yearScore = 1.0 - float64(diff)/yearDecaySpan
		if yearScore < 0 {
			yearScore = 0
		}
	}
	score += yearScore * yearWeight

	if len(result.Creators) > 0 {
		score += creatorWeight
	}

	// Penalties.
	if result.Rating > 0 && result.Rating < 3.0 {
		score -= lowRatingPenalty
	}
	if result.Year != 0 && result.Year < 1980 && !strings.Contains(query, strconv.Itoa(result.Year)) {
		score -= oldYearPenalty
	}
	for _, genre := range result.Genres {
		if strings.Contains(strings.ToLower(genre), "adult") {
			score -= adultPenalty
			break
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Decision thresholds.
const (
	autoSelectThreshold    = 0.90
	midConfidenceThreshold = 0.60
	alternativeFloor       = 0.3
)

// Resolve scores every candidate, picks the primary and up to three
// alternatives, and decides auto_select vs disambiguate with a why trail.
func Resolve(results []types.NormalizedResult, query string, predicted types.MediaType, profile *types.UserProfile) types.ResolvedSearch {
	return resolveAt(results, query, predicted, profile, time.Now())
}

func resolveAt(results []types.NormalizedResult, query string, predicted types.MediaType, profile *types.UserProfile, now time.Time) types.ResolvedSearch {
	if len(results) == 0 {
		return types.ResolvedSearch{
			Decision: types.SearchDecision{
				Mode:       types.DecisionDisambiguate,
				Confidence: 0.0,
				Why:        []string{"No results found"},
			},
			Primary:      emptyEntityCard(query, predicted),
			Alternatives: []types.EntityCard{},
		}
	}

	scored := make([]types.ScoredResult, len(results))
	for i, result := range results {
		scored[i] = types.ScoredResult{
			NormalizedResult: result,
			Score:            scoreResultAt(result, query, predicted, now),
		}
	}
	// Stable descending sort keeps original order among equal scores, which
	// in turn keeps the alternatives' confidence ordering well defined.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	top := scored[0]
	primary := entityCard(top)

	alternatives := make([]types.EntityCard, 0, types.MaxAlternatives)
	for _, candidate := range scored[1:] {
		if len(alternatives) == types.MaxAlternatives {
			break
		}
		if candidate.Score <= alternativeFloor {
			continue
		}
		alternatives = append(alternatives, entityCard(candidate))
	}

	mode := types.DecisionDisambiguate
	if top.Score >= autoSelectThreshold {
		mode = types.DecisionAutoSelect
	}

	return types.ResolvedSearch{
		Decision: types.SearchDecision{
			Mode:       mode,
			Confidence: top.Score,
			Why:        explainDecision(top, query, predicted),
		},
		Primary:      primary,
		Alternatives: alternatives,
	}
}

// explainDecision builds the human-readable reason trail for the top result.
func explainDecision(top types.ScoredResult, query string, predicted types.MediaType) []string {
	if top.Score < midConfidenceThreshold {
		return []string{"Low confidence matches", "Consider refining search"}
	}

	var why []string
	titleSim := FuzzyMatch(top.Title, query)
	switch {
	case titleSim > 0.95:
		why = append(why, "Exact title match")
	case titleSim > 0.8:
		why = append(why, "Close title match")
	}
	if top.Type == predicted {
		why = append(why, fmt.Sprintf("Matches expected type %q", predicted))
	}
	if top.Popularity > 500 {
		why = append(why, "Highly popular title")
	}
	if top.Rating > 7.5 {
		why = append(why, "Highly rated")
	}
	if top.Score < autoSelectThreshold {
		why = append(why, "Multiple good matches; confirmation recommended")
	}
	if len(why) == 0 {
		why = append(why, "Best available match")
	}
	return why
}

// entityCard projects a scored result into the output-facing card shape.
func entityCard(r types.ScoredResult) types.EntityCard {
	providers := make(map[string]*types.ProviderRef, len(r.ProviderData))
	for name, raw := range r.ProviderData {
		providers[name] = providerRef(raw)
	}
	return types.EntityCard{
		TitleID:      r.ID,
		DisplayTitle: r.Title,
		Type:         r.Type,
		YearStart:    r.Year,
		Confidence:   r.Score,
		Providers:    providers,
	}
}

// providerRef extracts a provider-native identifier from raw provider data,
// or nil when none can be found.
func providerRef(raw any) *types.ProviderRef {
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	id, ok := fields["id"]
	if !ok {
		return nil
	}
	switch v := id.(type) {
	case string:
		return &types.ProviderRef{ID: v}
	case int:
		return &types.ProviderRef{ID: strconv.Itoa(v)}
	case int64:
		return &types.ProviderRef{ID: strconv.FormatInt(v, 10)}
	case float64:
		return &types.ProviderRef{ID: strconv.FormatInt(int64(v), 10)}
	default:
		return nil
	}
}

// emptyEntityCard is the synthetic primary used when no results exist. Its
// title ID is derived from the normalized query so resolution stays
// deterministic.
func emptyEntityCard(query string, predicted types.MediaType) types.EntityCard {
	slug := strings.ReplaceAll(NormalizeQuery(query), " ", "-")
	if slug == "" {
		slug = "query"
	}
	return types.EntityCard{
		TitleID:      "empty:" + slug,
		DisplayTitle: strings.TrimSpace(query),
		Type:         predicted,
		Providers:    map[string]*types.ProviderRef{},
	}
}
