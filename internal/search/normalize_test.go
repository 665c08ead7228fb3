package search

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/provider/mock"
	"github.com/wigg/wigg/internal/search/types"
)

func TestNormalizeResultsSkipsFailures(t *testing.T) {
	registry := provider.NewRegistry(zerolog.Nop())
	registry.Register(mock.New("good", types.NormalizedResult{
		ID:    "good:tv:1",
		Title: "The Wire",
		Type:  types.MediaTypeTV,
		Year:  2002,
	}))
	broken := mock.New("broken")
	broken.NormalizeErr = errors.New("bad payload")
	registry.Register(broken)

	plans := []types.QueryPlan{
		testPlan("good", types.EndpointSearchTV, 1000),
		testPlan("broken", types.EndpointSearchTV, 1000),
		testPlan("failed", types.EndpointSearchTV, 1000),
	}
	raw := types.RawProviderResults{
		plans[0].Key(): {OK: true, Data: []types.NormalizedResult{{
			ID:    "good:tv:1",
			Title: "The Wire",
			Type:  types.MediaTypeTV,
			Year:  2002,
		}}},
		plans[1].Key(): {OK: true, Data: []types.NormalizedResult{{ID: "broken:tv:9"}}},
		plans[2].Key(): {OK: false, Error: "timeout"},
	}

	results := NormalizeResults(registry, raw, plans, zerolog.Nop())
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "good:tv:1" {
		t.Errorf("result ID = %q, want good:tv:1", results[0].ID)
	}
}

func TestDeduplicate(t *testing.T) {
	results := []types.NormalizedResult{
		{
			ID:    "tmdb:tv:1438",
			Title: "The Wire",
			Type:  types.MediaTypeTV,
			Year:  2002,
			ProviderData: map[string]any{
				"tmdb": map[string]any{"id": 1438},
			},
		},
		{
			ID:    "trakt:tv:the-wire",
			Title: "The Wire",
			Type:  types.MediaTypeTV,
			Year:  2002,
			ProviderData: map[string]any{
				"trakt": map[string]any{"id": "the-wire"},
			},
		},
		{
			ID:    "tmdb:movie:860",
			Title: "Wired",
			Type:  types.MediaTypeMovie,
			Year:  1989,
			ProviderData: map[string]any{
				"tmdb": map[string]any{"id": 860},
			},
		},
	}

	deduped := Deduplicate(results)
	if len(deduped) != 2 {
		t.Fatalf("got %d results, want 2", len(deduped))
	}

	// First-seen record stays canonical and in position.
	merged := deduped[0]
	if merged.ID != "tmdb:tv:1438" {
		t.Errorf("canonical ID = %q, want tmdb record", merged.ID)
	}
	if _, ok := merged.ProviderData["tmdb"]; !ok {
		t.Error("merged result lost tmdb provider data")
	}
	if _, ok := merged.ProviderData["trakt"]; !ok {
		t.Error("merged result missing trakt provider data")
	}
}

func TestDeduplicateDoesNotOverwriteProviderData(t *testing.T) {
	results := []types.NormalizedResult{
		{
			Title: "Dune",
			Type:  types.MediaTypeBook,
			Year:  1965,
			ProviderData: map[string]any{
				"openlibrary": map[string]any{"id": "OL893415W"},
			},
		},
		{
			Title: "Dune",
			Type:  types.MediaTypeBook,
			Year:  1965,
			ProviderData: map[string]any{
				"openlibrary": map[string]any{"id": "OL999999W"},
			},
		},
	}

	deduped := Deduplicate(results)
	if len(deduped) != 1 {
		t.Fatalf("got %d results, want 1", len(deduped))
	}
	data := deduped[0].ProviderData["openlibrary"].(map[string]any)
	if data["id"] != "OL893415W" {
		t.Errorf("provider data overwritten: id = %v", data["id"])
	}
}

func TestDeduplicateLeavesInputsUntouched(t *testing.T) {
	tmdbData := map[string]any{"tmdb": map[string]any{"id": 1438}}
	results := []types.NormalizedResult{
		{
			Title:        "The Wire",
			Type:         types.MediaTypeTV,
			Year:         2002,
			ProviderData: tmdbData,
		},
		{
			Title: "The Wire",
			Type:  types.MediaTypeTV,
			Year:  2002,
			ProviderData: map[string]any{
				"trakt": map[string]any{"id": "the-wire"},
			},
		},
	}

	deduped := Deduplicate(results)
	if len(deduped) != 1 {
		t.Fatalf("got %d results, want 1", len(deduped))
	}
	if _, ok := deduped[0].ProviderData["trakt"]; !ok {
		t.Error("merged record should carry the trakt entry")
	}
	if _, ok := tmdbData["trakt"]; ok {
		t.Error("input result's provider data was mutated by the merge")
	}
	if len(results[0].ProviderData) != 1 {
		t.Errorf("input slice mutated: %d provider entries, want 1", len(results[0].ProviderData))
	}
}

func TestDeduplicateIdempotent(t *testing.T) {
	results := []types.NormalizedResult{
		{Title: "The Wire", Type: types.MediaTypeTV, Year: 2002},
		{Title: "The Wire", Type: types.MediaTypeTV, Year: 2002},
		{Title: "The Wire", Type: types.MediaTypeTV}, // unknown year is distinct
	}

	once := Deduplicate(results)
	twice := Deduplicate(once)
	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("got %d then %d results, want 2 both times", len(once), len(twice))
	}
}

func TestDedupKeyUsesNormalizedTitle(t *testing.T) {
	a := types.NormalizedResult{Title: "Schitt's Creek", Type: types.MediaTypeTV, Year: 2015}
	b := types.NormalizedResult{Title: "schitts creek", Type: types.MediaTypeTV, Year: 2015}
	if dedupKey(a) != dedupKey(b) {
		t.Errorf("keys differ: %q vs %q", dedupKey(a), dedupKey(b))
	}

	c := types.NormalizedResult{Title: "Schitt's Creek", Type: types.MediaTypeTV}
	if dedupKey(a) == dedupKey(c) {
		t.Error("unknown year should produce a distinct key")
	}
}
