// Package podcastindex implements the Podcast Index provider adapter.
package podcastindex

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/config"
	"github.com/wigg/wigg/internal/search/types"
)

var (
	ErrCredentialsMissing = errors.New("Podcast Index credentials not configured")
	ErrAPIError           = errors.New("Podcast Index API error")
	ErrBadPayload         = errors.New("unexpected Podcast Index payload type")
)

const searchMax = 10

// Client is a Podcast Index client implementing the adapter contract.
type Client struct {
	httpClient *http.Client
	config     config.PodcastIndexConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// NewClient creates a new Podcast Index client.
func NewClient(cfg config.PodcastIndexConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "podcastindex").Logger(),
		now:        time.Now,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "podcastindex"
}

// Ready reports whether API credentials are configured.
func (c *Client) Ready() bool {
	return c.config.APIKey != "" && c.config.APISecret != ""
}

// Feed is one podcast feed in a Podcast Index search response.
type Feed struct {
	ID           int64             `json:"id"`
	Title        string            `json:"title"`
	Author       string            `json:"author"`
	Description  string            `json:"description"`
	Image        string            `json:"image"`
	Language     string            `json:"language"`
	Categories   map[string]string `json:"categories"`
	EpisodeCount int               `json:"episodeCount"`
}

// SearchResponse is the /search/byterm response.
type SearchResponse struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
	Feeds  []Feed `json:"feeds"`
}

// authHeaders sets the three headers Podcast Index requires: the key, the
// unix timestamp, and a SHA-1 of key+secret+timestamp.
func (c *Client) authHeaders(req *http.Request) {
	ts := fmt.Sprintf("%d", c.now().Unix())
	hash := sha1.Sum([]byte(c.config.APIKey + c.config.APISecret + ts))
	req.Header.Set("X-Auth-Key", c.config.APIKey)
	req.Header.Set("X-Auth-Date", ts)
	req.Header.Set("Authorization", fmt.Sprintf("%x", hash))
	req.Header.Set("User-Agent", "wigg/1.0")
}

// Execute performs the podcast search for a plan.
func (c *Client) Execute(ctx context.Context, plan types.QueryPlan) (any, error) {
	if !c.Ready() {
		return nil, ErrCredentialsMissing
	}

	params := url.Values{}
	params.Set("q", plan.Params["query"])
	params.Set("max", fmt.Sprintf("%d", searchMax))

	reqURL := fmt.Sprintf("%s/search/byterm?%s", strings.TrimRight(c.config.BaseURL, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &decoded, nil
}

// Normalize maps feeds into the common result schema. Episode count stands
// in for popularity.
func (c *Client) Normalize(raw any) ([]types.NormalizedResult, error) {
	payload, ok := raw.(*SearchResponse)
	if !ok {
		return nil, ErrBadPayload
	}

	results := make([]types.NormalizedResult, 0, len(payload.Feeds))
	for _, feed := range payload.Feeds {
		var genres []string
		for _, name := range feed.Categories {
			genres = append(genres, name)
		}

		var creators []string
		if feed.Author != "" {
			creators = []string{feed.Author}
		}

		results = append(results, types.NormalizedResult{
			ID:          fmt.Sprintf("podcastindex:podcast:%d", feed.ID),
			Title:       feed.Title,
			Type:        types.MediaTypePodcast,
			Description: feed.Description,
			Image:       feed.Image,
			Creators:    creators,
			Genres:      genres,
			Popularity:  float64(feed.EpisodeCount),
			Language:    feed.Language,
			ProviderData: map[string]any{
				"podcastindex": map[string]any{"id": feed.ID, "episodeCount": feed.EpisodeCount},
			},
		})
	}
	return results, nil
}
