package history

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Handlers provides HTTP handlers for history operations.
type Handlers struct {
	service *Service
}

// NewHandlers creates a new history handlers instance.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers history routes on an Echo group.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/searches", h.ListSearches)
	g.GET("/grabs", h.ListGrabs)
	g.DELETE("", h.Clear)
}

func listOptions(c echo.Context) ListOptions {
	opts := ListOptions{Page: 1, PageSize: 50}
	if p := c.QueryParam("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			opts.Page = v
		}
	}
	if ps := c.QueryParam("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			opts.PageSize = v
		}
	}
	return opts
}

// ListSearches returns paginated search history.
// GET /api/v1/history/searches
func (h *Handlers) ListSearches(c echo.Context) error {
	result, err := h.service.ListSearches(c.Request().Context(), listOptions(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// ListGrabs returns paginated grab history.
// GET /api/v1/history/grabs
func (h *Handlers) ListGrabs(c echo.Context) error {
	result, err := h.service.ListGrabs(c.Request().Context(), listOptions(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// Clear deletes all history entries.
// DELETE /api/v1/history
func (h *Handlers) Clear(c echo.Context) error {
	if err := h.service.Clear(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
