package search

import (
	"testing"

	"github.com/wigg/wigg/internal/search/types"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases and strips punctuation",
			input:    "The Wire: Season 1!",
			expected: "wire season 1",
		},
		{
			name:     "collapses whitespace",
			input:    "  breaking   bad  ",
			expected: "breaking bad",
		},
		{
			name:     "drops stop words",
			input:    "Lord of the Rings",
			expected: "lord rings",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
		{
			name:     "only stop words",
			input:    "the and of",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeQuery(tt.input); got != tt.expected {
				t.Errorf("NormalizeQuery(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDetectTokens(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected TokenSignals
	}{
		{
			name:     "sxxexx episode marker",
			query:    "the wire s01e03",
			expected: TokenSignals{Episode: true},
		},
		{
			name:     "season episode words",
			query:    "breaking bad season 2 episode 5",
			expected: TokenSignals{Episode: true},
		},
		{
			name:     "chapter marker",
			query:    "one piece chapter 1044",
			expected: TokenSignals{Bookish: true},
		},
		{
			name:     "abbreviated chapter",
			query:    "berserk ch. 364",
			expected: TokenSignals{Bookish: true},
		},
		{
			name:     "anime keyword",
			query:    "frieren anime",
			expected: TokenSignals{Anime: true},
		},
		{
			name:     "manga keyword",
			query:    "vagabond manga",
			expected: TokenSignals{Manga: true},
		},
		{
			name:     "podcast keyword",
			query:    "hardcore history podcast",
			expected: TokenSignals{Podcast: true},
		},
		{
			name:     "game keyword",
			query:    "elden ring dlc",
			expected: TokenSignals{Games: true},
		},
		{
			name:     "youtube keyword",
			query:    "mkbhd youtube",
			expected: TokenSignals{YouTube: true},
		},
		{
			name:     "plain title fires nothing",
			query:    "the wire",
			expected: TokenSignals{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectTokens(tt.query); got != tt.expected {
				t.Errorf("DetectTokens(%q) = %+v, want %+v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestPredictMediaTypes(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		profile *types.UserProfile
		first   types.MediaType
	}{
		{
			name:  "episode marker predicts tv first",
			query: "the wire s01e03",
			first: types.MediaTypeTV,
		},
		{
			name:  "chapter marker predicts book first",
			query: "dune chapter 3",
			first: types.MediaTypeBook,
		},
		{
			name:  "anime keyword predicts anime first",
			query: "frieren anime",
			first: types.MediaTypeAnime,
		},
		{
			name:  "no tokens defaults to tv bias",
			query: "the wire",
			first: types.MediaTypeTV,
		},
		{
			name:    "profile boost does not outrank default tv bias",
			query:   "dune",
			profile: &types.UserProfile{LastVertical: types.MediaTypeBook},
			first:   types.MediaTypeTV,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PredictMediaTypes(tt.query, tt.profile)
			if len(got) == 0 {
				t.Fatal("expected at least one predicted type")
			}
			if got[0] != tt.first {
				t.Errorf("PredictMediaTypes(%q)[0] = %q, want %q", tt.query, got[0], tt.first)
			}
		})
	}
}

func TestPredictMediaTypesDeterministic(t *testing.T) {
	first := PredictMediaTypes("the wire", nil)
	for i := 0; i < 20; i++ {
		again := PredictMediaTypes("the wire", nil)
		if len(again) != len(first) {
			t.Fatalf("run %d: length %d, want %d", i, len(again), len(first))
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: position %d = %q, want %q", i, j, again[j], first[j])
			}
		}
	}
}

func TestExtractEpisodeInfo(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected *EpisodeInfo
	}{
		{
			name:     "compact sxxexx",
			query:    "The Wire S1E3",
			expected: &EpisodeInfo{Season: 1, Episode: 3},
		},
		{
			name:     "padded sxxexx",
			query:    "breaking bad s02e07",
			expected: &EpisodeInfo{Season: 2, Episode: 7},
		},
		{
			name:     "season episode words",
			query:    "the wire season 1 episode 3",
			expected: &EpisodeInfo{Season: 1, Episode: 3},
		},
		{
			name:     "season only",
			query:    "the wire season 4",
			expected: &EpisodeInfo{Season: 4},
		},
		{
			name:     "episode only",
			query:    "the wire episode 12",
			expected: &EpisodeInfo{Episode: 12},
		},
		{
			name:     "abbreviated episode",
			query:    "the wire ep 12",
			expected: &EpisodeInfo{Episode: 12},
		},
		{
			name:     "no marker",
			query:    "The Wire",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractEpisodeInfo(tt.query)
			if tt.expected == nil {
				if got != nil {
					t.Fatalf("ExtractEpisodeInfo(%q) = %+v, want nil", tt.query, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractEpisodeInfo(%q) = nil, want %+v", tt.query, tt.expected)
			}
			if *got != *tt.expected {
				t.Errorf("ExtractEpisodeInfo(%q) = %+v, want %+v", tt.query, got, tt.expected)
			}
		})
	}
}

func TestExtractChapterInfo(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected *ChapterInfo
	}{
		{
			name:     "chapter word",
			query:    "one piece chapter 1044",
			expected: &ChapterInfo{Chapter: 1044},
		},
		{
			name:     "abbreviated chapter",
			query:    "berserk ch. 364",
			expected: &ChapterInfo{Chapter: 364},
		},
		{
			name:     "volume word",
			query:    "vagabond volume 12",
			expected: &ChapterInfo{Volume: 12},
		},
		{
			name:     "abbreviated volume",
			query:    "vagabond vol. 12",
			expected: &ChapterInfo{Volume: 12},
		},
		{
			name:     "chapter wins over volume",
			query:    "vagabond volume 12 chapter 100",
			expected: &ChapterInfo{Chapter: 100},
		},
		{
			name:     "no marker",
			query:    "vagabond",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractChapterInfo(tt.query)
			if tt.expected == nil {
				if got != nil {
					t.Fatalf("ExtractChapterInfo(%q) = %+v, want nil", tt.query, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractChapterInfo(%q) = nil, want %+v", tt.query, tt.expected)
			}
			if *got != *tt.expected {
				t.Errorf("ExtractChapterInfo(%q) = %+v, want %+v", tt.query, got, tt.expected)
			}
		})
	}
}
