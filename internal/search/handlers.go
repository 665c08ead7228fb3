package search

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wigg/wigg/internal/search/types"
)

// Handlers provides HTTP handlers for smart search operations.
type Handlers struct {
	service      *Service
	maxProviders int
}

// NewHandlers creates new search handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// SetMaxProviders sets the provider budget used when a request omits one.
func (h *Handlers) SetMaxProviders(n int) {
	h.maxProviders = n
}

// RegisterRoutes registers the search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/resolve", h.Resolve)
	g.GET("/providers", h.Providers)
}

// ResolveRequest represents a resolve request.
type ResolveRequest struct {
	Query          string `query:"query"`
	Locale         string `query:"locale"`
	Market         string `query:"market"`
	LastVertical   string `query:"lastVertical"`
	NSFW           bool   `query:"nsfw"`
	MaxProviders   int    `query:"maxProviders"`
	AllowFallbacks *bool  `query:"allowFallbacks"`
}

// Resolve handles smart search requests.
// GET /api/v1/search/resolve?query=...&maxProviders=...
func (h *Handlers) Resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request parameters",
		})
	}

	maxProviders := req.MaxProviders
	if maxProviders == 0 {
		maxProviders = h.maxProviders
	}

	input := types.SearchInput{
		Query:  req.Query,
		Locale: req.Locale,
		Market: req.Market,
		Budget: types.CostBudget{
			MaxProviders:   maxProviders,
			AllowFallbacks: req.AllowFallbacks,
		},
	}
	if req.LastVertical != "" || req.NSFW {
		input.Profile = &types.UserProfile{
			LastVertical: types.MediaType(req.LastVertical),
			NSFW:         req.NSFW,
		}
	}

	resolved, err := h.service.Execute(c.Request().Context(), input)
	if err != nil {
		if errors.Is(err, types.ErrEmptyQuery) || errors.Is(err, types.ErrNilInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, resolved)
}

// Providers lists the registered provider adapters and their readiness.
// GET /api/v1/search/providers
func (h *Handlers) Providers(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Registry().Capabilities())
}
