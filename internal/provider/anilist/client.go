// Package anilist implements the AniList GraphQL provider adapter for anime
// and manga searches.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wigg/wigg/internal/config"
	"github.com/wigg/wigg/internal/search/types"
)

var (
	ErrAPIError   = errors.New("AniList API error")
	ErrBadPayload = errors.New("unexpected AniList payload type")
)

// searchQuery is the GraphQL document used for both anime and manga search.
const searchQuery = `
query ($search: String, $type: MediaType, $perPage: Int) {
  Page(page: 1, perPage: $perPage) {
    media(search: $search, type: $type, sort: SEARCH_MATCH) {
      id
      title { romaji english }
      startDate { year }
      description(asHtml: false)
      coverImage { large }
      averageScore
      popularity
      genres
      format
      countryOfOrigin
      isAdult
      staff(perPage: 3) { nodes { name { full } } }
    }
  }
}`

const defaultPerPage = 10

// Client is an AniList GraphQL client implementing the adapter contract.
type Client struct {
	httpClient *http.Client
	config     config.AniListConfig
	logger     zerolog.Logger
}

// NewClient creates a new AniList client.
func NewClient(cfg config.AniListConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		config:     cfg,
		logger:     logger.With().Str("component", "anilist").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anilist"
}

// Ready reports whether the client can serve requests. AniList needs no API
// key, only a base URL.
func (c *Client) Ready() bool {
	return c.config.BaseURL != ""
}

// Media is one entry in an AniList search response.
type Media struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
	} `json:"title"`
	StartDate struct {
		Year int `json:"year"`
	} `json:"startDate"`
	Description string `json:"description"`
	CoverImage  struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	AverageScore    int      `json:"averageScore"` // 0-100
	Popularity      int      `json:"popularity"`
	Genres          []string `json:"genres"`
	Format          string   `json:"format"`
	CountryOfOrigin string   `json:"countryOfOrigin"`
	IsAdult         bool     `json:"isAdult"`
	Staff           struct {
		Nodes []struct {
			Name struct {
				Full string `json:"full"`
			} `json:"name"`
		} `json:"nodes"`
	} `json:"staff"`
}

// Payload tags a decoded response with the media type it was searched as.
type Payload struct {
	MediaType types.MediaType
	Media     []Media
}

type graphqlResponse struct {
	Data struct {
		Page struct {
			Media []Media `json:"media"`
		} `json:"Page"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Execute performs the GraphQL search for a plan.
func (c *Client) Execute(ctx context.Context, plan types.QueryPlan) (any, error) {
	mediaType := types.MediaTypeAnime
	gqlType := "ANIME"
	if plan.Endpoint == types.EndpointSearchManga || plan.Params["mediaType"] == "MANGA" {
		mediaType = types.MediaTypeManga
		gqlType = "MANGA"
	}

	body, err := json.Marshal(map[string]any{
		"query": searchQuery,
		"variables": map[string]any{
			"search":  plan.Params["query"],
			"type":    gqlType,
			"perPage": defaultPerPage,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrAPIError, decoded.Errors[0].Message)
	}

	return &Payload{MediaType: mediaType, Media: decoded.Data.Page.Media}, nil
}

// Normalize maps AniList media entries into the common result schema.
func (c *Client) Normalize(raw any) ([]types.NormalizedResult, error) {
	payload, ok := raw.(*Payload)
	if !ok {
		return nil, ErrBadPayload
	}

	results := make([]types.NormalizedResult, 0, len(payload.Media))
	for _, media := range payload.Media {
		title := media.Title.English
		if title == "" {
			title = media.Title.Romaji
		}

		var creators []string
		for _, node := range media.Staff.Nodes {
			if node.Name.Full != "" {
				creators = append(creators, node.Name.Full)
			}
		}

		genres := media.Genres
		if media.IsAdult {
			genres = append(append([]string{}, genres...), "Adult")
		}

		var country []string
		if media.CountryOfOrigin != "" {
			country = []string{media.CountryOfOrigin}
		}

		results = append(results, types.NormalizedResult{
			ID:          fmt.Sprintf("anilist:%s:%d", payload.MediaType, media.ID),
			Title:       title,
			Type:        payload.MediaType,
			Year:        media.StartDate.Year,
			Description: media.Description,
			Image:       media.CoverImage.Large,
			Rating:      float64(media.AverageScore) / 10.0,
			Creators:    creators,
			Genres:      genres,
			Popularity:  float64(media.Popularity),
			Country:     country,
			ProviderData: map[string]any{
				"anilist": map[string]any{"id": media.ID, "format": media.Format},
			},
		})
	}
	return results, nil
}
