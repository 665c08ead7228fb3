package podcastindex

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wigg/wigg/internal/config"
	"github.com/wigg/wigg/internal/search/types"
)

const (
	testAPIKey    = "test-api-key"
	testAPISecret = "test-api-secret"
)

func expectedAuth(key, secret string, ts int64) string {
	hash := sha1.Sum([]byte(fmt.Sprintf("%s%s%d", key, secret, ts)))
	return fmt.Sprintf("%x", hash)
}

func TestClient_Ready(t *testing.T) {
	client := NewClient(config.PodcastIndexConfig{APIKey: testAPIKey, APISecret: testAPISecret}, zerolog.Nop())
	assert.True(t, client.Ready())

	partial := NewClient(config.PodcastIndexConfig{APIKey: testAPIKey}, zerolog.Nop())
	assert.False(t, partial.Ready())
}

func TestClient_Execute(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/byterm", r.URL.Path)
		assert.Equal(t, "this american life", r.URL.Query().Get("q"))

		assert.Equal(t, testAPIKey, r.Header.Get("X-Auth-Key"))
		assert.Equal(t, fmt.Sprintf("%d", fixedTime.Unix()), r.Header.Get("X-Auth-Date"))
		assert.Equal(t, expectedAuth(testAPIKey, testAPISecret, fixedTime.Unix()), r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": "true",
			"count": 1,
			"feeds": [{
				"id": 522613,
				"title": "This American Life",
				"author": "This American Life",
				"description": "Stories built around a weekly theme.",
				"image": "https://example.com/tal.jpg",
				"language": "en",
				"categories": {"55": "News"},
				"episodeCount": 780
			}]
		}`)
	}))
	defer server.Close()

	client := NewClient(config.PodcastIndexConfig{
		APIKey:    testAPIKey,
		APISecret: testAPISecret,
		BaseURL:   server.URL,
	}, zerolog.Nop())
	client.now = func() time.Time { return fixedTime }

	raw, err := client.Execute(context.Background(), types.QueryPlan{
		Provider: "podcastindex",
		Endpoint: types.EndpointSearchPodcasts,
		Params:   map[string]string{"query": "this american life"},
	})
	require.NoError(t, err)

	results, err := client.Normalize(raw)
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, "podcastindex:podcast:522613", got.ID)
	assert.Equal(t, types.MediaTypePodcast, got.Type)
	assert.Equal(t, []string{"This American Life"}, got.Creators)
	assert.Equal(t, float64(780), got.Popularity)
	assert.Equal(t, "en", got.Language)
}

func TestClient_ExecuteWithoutCredentials(t *testing.T) {
	client := NewClient(config.PodcastIndexConfig{BaseURL: "http://example.invalid"}, zerolog.Nop())
	_, err := client.Execute(context.Background(), types.QueryPlan{
		Provider: "podcastindex",
		Endpoint: types.EndpointSearchPodcasts,
		Params:   map[string]string{"query": "serial"},
	})
	require.ErrorIs(t, err, ErrCredentialsMissing)
}

func TestClient_ExecuteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(config.PodcastIndexConfig{
		APIKey:    testAPIKey,
		APISecret: "wrong-secret",
		BaseURL:   server.URL,
	}, zerolog.Nop())

	_, err := client.Execute(context.Background(), types.QueryPlan{
		Provider: "podcastindex",
		Endpoint: types.EndpointSearchPodcasts,
		Params:   map[string]string{"query": "serial"},
	})
	require.ErrorIs(t, err, ErrAPIError)
}

func TestClient_NormalizeBadPayload(t *testing.T) {
	client := NewClient(config.PodcastIndexConfig{}, zerolog.Nop())
	_, err := client.Normalize(42)
	require.ErrorIs(t, err, ErrBadPayload)
}
