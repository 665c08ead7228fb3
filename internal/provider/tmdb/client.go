// Package tmdb implements the TMDB provider adapter for movie, TV and
// multi-type searches.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/config"
	"github.com/wigg/wigg/internal/search/types"
)

var (
	ErrAPIKeyMissing   = errors.New("TMDB API key is not configured")
	ErrAPIError        = errors.New("TMDB API error")
	ErrRateLimited     = errors.New("TMDB API rate limited")
	ErrUnknownEndpoint = errors.New("unknown TMDB endpoint")
	ErrBadPayload      = errors.New("unexpected TMDB payload type")
)

// Client is a TMDB API client implementing the provider adapter contract.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// Ready returns true if the API key is set.
func (c *Client) Ready() bool {
	return c.config.APIKey != ""
}

// Test verifies connectivity by requesting the API configuration.
func (c *Client) Test(ctx context.Context) error {
	if !c.Ready() {
		return ErrAPIKeyMissing
	}
	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, c.config.BaseURL+"/configuration", url.Values{}, &result)
}

// Execute performs the provider call for a plan and returns a typed payload.
func (c *Client) Execute(ctx context.Context, plan types.QueryPlan) (any, error) {
	if !c.Ready() {
		return nil, ErrAPIKeyMissing
	}

	query := plan.Params["query"]
	params := url.Values{}
	params.Set("query", query)
	params.Set("include_adult", "false")
	if locale := plan.Params["locale"]; locale != "" {
		params.Set("language", locale)
	}

	payload := &Payload{Endpoint: plan.Endpoint}
	switch plan.Endpoint {
	case types.EndpointSearchMovie:
		var response SearchMoviesResponse
		if err := c.doRequest(ctx, c.config.BaseURL+"/search/movie", params, &response); err != nil {
			return nil, err
		}
		payload.Movies = &response
	case types.EndpointSearchTV:
		var response SearchTVResponse
		if err := c.doRequest(ctx, c.config.BaseURL+"/search/tv", params, &response); err != nil {
			return nil, err
		}
		payload.TV = &response
	case types.EndpointSearchMulti:
		var response SearchMultiResponse
		if err := c.doRequest(ctx, c.config.BaseURL+"/search/multi", params, &response); err != nil {
			return nil, err
		}
		payload.Multi = &response
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEndpoint, plan.Endpoint)
	}
	return payload, nil
}

// Normalize maps a typed TMDB payload into the common result schema.
func (c *Client) Normalize(raw any) ([]types.NormalizedResult, error) {
	payload, ok := raw.(*Payload)
	if !ok {
		return nil, ErrBadPayload
	}

	var results []types.NormalizedResult
	switch {
	case payload.Movies != nil:
		for _, movie := range payload.Movies.Results {
			results = append(results, c.normalizeMovie(movie))
		}
	case payload.TV != nil:
		for _, series := range payload.TV.Results {
			results = append(results, c.normalizeSeries(series))
		}
	case payload.Multi != nil:
		for _, entry := range payload.Multi.Results {
			normalized, ok := c.normalizeMulti(entry)
			if !ok {
				continue
			}
			results = append(results, normalized)
		}
	}
	return results, nil
}

func (c *Client) normalizeMovie(movie MovieResult) types.NormalizedResult {
	genres := genresFromIDs(movie.GenreIDs)
	return types.NormalizedResult{
		ID:          fmt.Sprintf("tmdb:movie:%d", movie.ID),
		Title:       movie.Title,
		Type:        types.MediaTypeMovie,
		Year:        yearFromDate(movie.ReleaseDate),
		Description: movie.Overview,
		Image:       c.imageURL(movie.PosterPath),
		Rating:      movie.VoteAverage,
		Genres:      genres,
		Popularity:  movie.Popularity,
		Language:    movie.OriginalLanguage,
		ProviderData: map[string]any{
			"tmdb": map[string]any{"id": movie.ID, "mediaType": "movie"},
		},
	}
}

func (c *Client) normalizeSeries(series TVResult) types.NormalizedResult {
	// Japanese animation is classified as anime rather than trusting
	// TMDB's flat tv category.
	mediaType := types.MediaTypeTV
	if series.OriginalLanguage == "ja" && containsGenreID(series.GenreIDs, animationGenreID) {
		mediaType = types.MediaTypeAnime
	}
	return types.NormalizedResult{
		ID:          fmt.Sprintf("tmdb:%s:%d", mediaType, series.ID),
		Title:       series.Name,
		Type:        mediaType,
		Year:        yearFromDate(series.FirstAirDate),
		Description: series.Overview,
		Image:       c.imageURL(series.PosterPath),
		Rating:      series.VoteAverage,
		Genres:      genresFromIDs(series.GenreIDs),
		Popularity:  series.Popularity,
		Language:    series.OriginalLanguage,
		Country:     series.OriginCountry,
		ProviderData: map[string]any{
			"tmdb": map[string]any{"id": series.ID, "mediaType": "tv"},
		},
	}
}

func (c *Client) normalizeMulti(entry MultiResult) (types.NormalizedResult, bool) {
	switch entry.MediaType {
	case "movie":
		return c.normalizeMovie(MovieResult{
			ID:               entry.ID,
			Title:            entry.Title,
			ReleaseDate:      entry.ReleaseDate,
			Overview:         entry.Overview,
			PosterPath:       entry.PosterPath,
			VoteAverage:      entry.VoteAverage,
			Popularity:       entry.Popularity,
			GenreIDs:         entry.GenreIDs,
			OriginalLanguage: entry.OriginalLanguage,
			Adult:            entry.Adult,
		}), true
	case "tv":
		return c.normalizeSeries(TVResult{
			ID:               entry.ID,
			Name:             entry.Name,
			FirstAirDate:     entry.FirstAirDate,
			Overview:         entry.Overview,
			PosterPath:       entry.PosterPath,
			VoteAverage:      entry.VoteAverage,
			Popularity:       entry.Popularity,
			GenreIDs:         entry.GenreIDs,
			OriginalLanguage: entry.OriginalLanguage,
			OriginCountry:    entry.OriginCountry,
		}), true
	default:
		// People and other entities are not searchable media.
		return types.NormalizedResult{}, false
	}
}

func (c *Client) imageURL(path string) string {
	if path == "" || c.config.ImageBaseURL == "" {
		return ""
	}
	return c.config.ImageBaseURL + "/w342" + path
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}

func containsGenreID(ids []int, want int) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}

// doRequest performs a GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("api_key", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
