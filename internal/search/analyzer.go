// Package search implements the smart search resolution pipeline: it analyzes
// a free-text query, plans provider calls under a cost budget, executes them
// concurrently, normalizes and deduplicates the results, and resolves a
// primary entity with explainable confidence.
package search

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wigg/wigg/internal/search/types"
)

var (
	queryPunctRegex      = regexp.MustCompile(`[^a-z0-9\s]`)
	queryMultiSpaceRegex = regexp.MustCompile(`\s+`)
)

// queryStopWords are dropped from normalized queries. Articles, conjunctions
// and common prepositions only; comparison text, never display text.
var queryStopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"and": true, "or": true, "but": true,
	"of": true, "in": true, "on": true, "at": true,
	"to": true, "for": true, "with": true, "by": true, "from": true,
}

// NormalizeQuery lowercases, strips punctuation, collapses whitespace and
// removes stop words. The result is used for comparison, not display.
func NormalizeQuery(text string) string {
	normalized := strings.ToLower(text)
	normalized = queryPunctRegex.ReplaceAllString(normalized, " ")
	normalized = queryMultiSpaceRegex.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)

	fields := strings.Fields(normalized)
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		if queryStopWords[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// TokenSignals records which lexical markers fired for a query.
type TokenSignals struct {
	Episode bool `json:"episode"`
	Bookish bool `json:"bookish"`
	Anime   bool `json:"anime"`
	Manga   bool `json:"manga"`
	Podcast bool `json:"podcast"`
	YouTube bool `json:"youtube"`
	Twitch  bool `json:"twitch"`
	Games   bool `json:"games"`
}

var (
	episodeTokenRegex = regexp.MustCompile(`\bs\d{1,2}\s*e\d{1,3}\b|\bseason\s+\d{1,2}(\s+episode\s+\d{1,3})?\b|\bep(isode)?\.?\s*\d{1,3}\b`)
	bookishTokenRegex = regexp.MustCompile(`\b(chapter|volume|isbn|page)s?\b|\b(ch|vol)\.`)
	animeTokenRegex   = regexp.MustCompile(`\b(anime|ova|ona|crunchyroll)\b`)
	mangaTokenRegex   = regexp.MustCompile(`\b(manga|manhwa|manhua|scanlation)\b`)
	podcastTokenRegex = regexp.MustCompile(`\bpodcasts?\b`)
	youtubeTokenRegex = regexp.MustCompile(`\byoutube\b|\byt\b|youtu\.be`)
	twitchTokenRegex  = regexp.MustCompile(`\btwitch\b|\bvod\b`)
	gamesTokenRegex   = regexp.MustCompile(`\b(game|games|gameplay|dlc|walkthrough|speedrun|playthrough)\b`)
)

// DetectTokens runs the lexical detectors over the raw query text.
func DetectTokens(text string) TokenSignals {
	lowered := strings.ToLower(text)
	return TokenSignals{
		Episode: episodeTokenRegex.MatchString(lowered),
		Bookish: bookishTokenRegex.MatchString(lowered),
		Anime:   animeTokenRegex.MatchString(lowered),
		Manga:   mangaTokenRegex.MatchString(lowered),
		Podcast: podcastTokenRegex.MatchString(lowered),
		YouTube: youtubeTokenRegex.MatchString(lowered),
		Twitch:  twitchTokenRegex.MatchString(lowered),
		Games:   gamesTokenRegex.MatchString(lowered),
	}
}

// Token-driven type weights. Episode markers are the strongest signal.
const (
	weightEpisodeTV    = 1.5
	weightAnimeManga   = 1.4
	weightBookToken    = 1.3
	weightPodcastToken = 1.3
	weightGameToken    = 1.2
	weightVideoToken   = 1.1
	weightProfileBoost = 0.1
	weightProfileNew   = 0.9
)

// PredictMediaTypes builds the ranked list of likely media types for a query.
// Detected tokens seed the weights; without a strong token the list falls back
// to a slight TV bias. A user profile's last vertical adds a small boost.
// The ordering is a heuristic prior consumed by scoring, not a guarantee.
func PredictMediaTypes(query string, profile *types.UserProfile) []types.MediaType {
	tokens := DetectTokens(query)
	weights := make(map[types.MediaType]float64)

	if tokens.Episode {
		weights[types.MediaTypeTV] = weightEpisodeTV
	}
	if tokens.Anime {
		weights[types.MediaTypeAnime] = weightAnimeManga
	}
	if tokens.Manga {
		weights[types.MediaTypeManga] = weightAnimeManga
	}
	if tokens.Bookish {
		weights[types.MediaTypeBook] = weightBookToken
	}
	if tokens.Podcast {
		weights[types.MediaTypePodcast] = weightPodcastToken
	}
	if tokens.Games {
		weights[types.MediaTypeGame] = weightGameToken
	}
	if tokens.YouTube || tokens.Twitch {
		weights[types.MediaTypeVideo] = weightVideoToken
	}

	// No strong token fired: default ranked list with a slight TV bias.
	if len(weights) == 0 {
		weights[types.MediaTypeTV] = 1.1
		weights[types.MediaTypeMovie] = 1.0
		weights[types.MediaTypeBook] = 0.8
		weights[types.MediaTypeAnime] = 0.7
	}

	if profile != nil && profile.LastVertical != "" && profile.LastVertical.IsValid() {
		if existing, ok := weights[profile.LastVertical]; ok {
			weights[profile.LastVertical] = existing + weightProfileBoost
		} else {
			weights[profile.LastVertical] = weightProfileNew
		}
	}

	ranked := make([]types.MediaType, 0, len(weights))
	for mt := range weights {
		ranked = append(ranked, mt)
	}
	// Descending weight, ties broken by canonical type order for determinism.
	sort.SliceStable(ranked, func(i, j int) bool {
		if weights[ranked[i]] != weights[ranked[j]] {
			return weights[ranked[i]] > weights[ranked[j]]
		}
		return typeRank(ranked[i]) < typeRank(ranked[j])
	})
	return ranked
}

func typeRank(t types.MediaType) int {
	for i, known := range types.AllMediaTypes {
		if t == known {
			return i
		}
	}
	return len(types.AllMediaTypes)
}

// EpisodeInfo is a season/episode hint extracted from a query. Zero fields
// mean the component was not present.
type EpisodeInfo struct {
	Season  int `json:"season,omitempty"`
	Episode int `json:"episode,omitempty"`
}

// ChapterInfo is a chapter/volume hint extracted from a query.
type ChapterInfo struct {
	Chapter int `json:"chapter,omitempty"`
	Volume  int `json:"volume,omitempty"`
}

var (
	sxxExxRegex         = regexp.MustCompile(`\bs(\d{1,2})\s*e(\d{1,3})\b`)
	seasonEpisodeRegex  = regexp.MustCompile(`\bseason\s+(\d{1,2})\s+episode\s+(\d{1,3})\b`)
	seasonOnlyRegex     = regexp.MustCompile(`\bseason\s+(\d{1,2})\b`)
	episodeOnlyRegex    = regexp.MustCompile(`\bep(?:isode)?\.?\s*(\d{1,3})\b`)
	chapterExtractRegex = regexp.MustCompile(`\bch(?:apter)?\.?\s*(\d{1,4})\b`)
	volumeExtractRegex  = regexp.MustCompile(`\bvol(?:ume)?\.?\s*(\d{1,3})\b`)
)

// ExtractEpisodeInfo pulls season/episode numbers from a query. Patterns are
// tried in a fixed priority order (S#E#, "season X episode Y", "season X",
// "ep N"); the first match wins. Returns nil if nothing matches.
func ExtractEpisodeInfo(query string) *EpisodeInfo {
	lowered := strings.ToLower(query)

	if m := sxxExxRegex.FindStringSubmatch(lowered); m != nil {
		return &EpisodeInfo{Season: mustAtoi(m[1]), Episode: mustAtoi(m[2])}
	}
	if m := seasonEpisodeRegex.FindStringSubmatch(lowered); m != nil {
		return &EpisodeInfo{Season: mustAtoi(m[1]), Episode: mustAtoi(m[2])}
	}
	if m := seasonOnlyRegex.FindStringSubmatch(lowered); m != nil {
		return &EpisodeInfo{Season: mustAtoi(m[1])}
	}
	if m := episodeOnlyRegex.FindStringSubmatch(lowered); m != nil {
		return &EpisodeInfo{Episode: mustAtoi(m[1])}
	}
	return nil
}

// ExtractChapterInfo pulls a chapter or volume number from a query. Chapter
// patterns are tried before volume patterns; the first match wins.
func ExtractChapterInfo(query string) *ChapterInfo {
	lowered := strings.ToLower(query)

	if m := chapterExtractRegex.FindStringSubmatch(lowered); m != nil {
		return &ChapterInfo{Chapter: mustAtoi(m[1])}
	}
	if m := volumeExtractRegex.FindStringSubmatch(lowered); m != nil {
		return &ChapterInfo{Volume: mustAtoi(m[1])}
	}
	return nil
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
