package search

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sabueso/sabueso/internal/torznab"
)

// Handlers provides the aggregated search endpoint.
type Handlers struct {
	service *Service
}

// NewHandlers creates new search handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers the search routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/search", h.SearchAll)
}

// SearchAll runs a keyword search across every enabled indexer and
// merges the answers. Indexers that fail are reported in the Errors
// field without failing the whole request.
// GET /api/v1/search
func (h *Handlers) SearchAll(c echo.Context) error {
	if invalid := torznab.UnsupportedParams(c.QueryParams(), torznab.ValidSearchParams); len(invalid) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":        "Unsupported parameters: " + strings.Join(invalid, ", "),
			"valid_params": torznab.ValidSearchParams,
		})
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "q" is required`,
		})
	}

	result, err := h.service.Search(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	releases := torznab.PageReleases(result.Releases,
		torznab.ParseNumber(c.QueryParam("limit")),
		torznab.ParseNumber(c.QueryParam("offset")))

	results := torznab.FromReleases(releases)
	base := c.Scheme() + "://" + c.Request().Host
	for i := range results {
		results[i].Link = torznab.AbsolutizeLink(results[i].Link, base)
	}

	resp := torznab.SearchResponse{
		Results:         results,
		NumberOfResults: len(results),
		Query:           query,
	}
	if len(result.Errors) > 0 {
		resp.Errors = result.Errors
	}
	return c.JSON(http.StatusOK, resp)
}
