// Package openlibrary implements the Open Library provider adapter for book
// searches.
package openlibrary

import (
	"context"
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
	"github.com/wigg/wigg/internal/provider"
	"github.com/wigg/wigg/internal/search/types"
)

var (
	ErrAPIError   = errors.New("Open Library API error")
	ErrBadPayload = errors.New("unexpected Open Library payload type")
)

const (
	searchLimit = 10
	maxRetries  = 2
)

// Client is an Open Library search client implementing the adapter contract.
type Client struct {
	httpClient *http.Client
	config     config.OpenLibraryConfig
	logger     zerolog.Logger
	retryBase  time.Duration
}

// NewClient creates a new Open Library client.
func NewClient(cfg config.OpenLibraryConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "openlibrary").Logger(),
		retryBase:  250 * time.Millisecond,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openlibrary"
}

// Ready reports whether the client can serve requests.
func (c *Client) Ready() bool {
	return c.config.BaseURL != ""
}

// Doc is one work entry in an Open Library search response.
type Doc struct {
	Key              string   `json:"key"` // "/works/OL45804W"
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverI           int      `json:"cover_i"`
	EditionCount     int      `json:"edition_count"`
	Subject          []string `json:"subject"`
	Language         []string `json:"language"`
	RatingsAverage   float64  `json:"ratings_average"` // 0-5
}

// SearchResponse is the Open Library /search.json response.
type SearchResponse struct {
	NumFound int   `json:"numFound"`
	Docs     []Doc `json:"docs"`
}

// Execute performs the book search for a plan.
func (c *Client) Execute(ctx context.Context, plan types.QueryPlan) (any, error) {
	params := url.Values{}
	params.Set("q", plan.Params["query"])
	params.Set("limit", fmt.Sprintf("%d", searchLimit))
	params.Set("fields", "key,title,author_name,first_publish_year,cover_i,edition_count,subject,language,ratings_average")

	reqURL := fmt.Sprintf("%s/search.json?%s", strings.TrimRight(c.config.BaseURL, "/"), params.Encode())

	var decoded SearchResponse
	err := provider.WithRetry(ctx, maxRetries, c.retryBase, func(ctx context.Context) error {
		return c.fetch(ctx, reqURL, &decoded)
	})
	if err != nil {
		return nil, err
	}
	return &decoded, nil
}

// fetch performs one search request. Network errors and 5xx responses are
// marked transient so the caller's retry loop picks them up.
func (c *Client) fetch(ctx context.Context, reqURL string, out *SearchResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return provider.Transient(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		apiErr := fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(raw)))
		if resp.StatusCode >= http.StatusInternalServerError {
			return provider.Transient(apiErr)
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Normalize maps Open Library docs into the common result schema. Edition
// count stands in for popularity since the search API exposes no direct
// popularity signal.
func (c *Client) Normalize(raw any) ([]types.NormalizedResult, error) {
	payload, ok := raw.(*SearchResponse)
	if !ok {
		return nil, ErrBadPayload
	}

	results := make([]types.NormalizedResult, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		key := strings.TrimPrefix(doc.Key, "/works/")

		var image string
		if doc.CoverI > 0 {
			image = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverI)
		}

		var language string
		if len(doc.Language) > 0 {
			language = doc.Language[0]
		}

		genres := doc.Subject
		if len(genres) > 5 {
			genres = genres[:5]
		}

		results = append(results, types.NormalizedResult{
			ID:          fmt.Sprintf("openlibrary:book:%s", key),
			Title:       doc.Title,
			Type:        types.MediaTypeBook,
			Year:        doc.FirstPublishYear,
			Image:       image,
			Rating:      doc.RatingsAverage * 2, // 0-5 scale to 0-10
			Creators:    doc.AuthorName,
			Genres:      genres,
			Popularity:  float64(doc.EditionCount),
			Language:    language,
			ProviderData: map[string]any{
				"openlibrary": map[string]any{"id": key, "editions": doc.EditionCount},
			},
		})
	}
	return results, nil
}
