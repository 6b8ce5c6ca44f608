package registry

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sabueso/sabueso/internal/config"
	"github.com/sabueso/sabueso/internal/indexer"
	"github.com/sabueso/sabueso/internal/indexer/sitedef"
	"github.com/sabueso/sabueso/internal/indexer/status"
	"github.com/sabueso/sabueso/internal/indexer/types"
	"github.com/sabueso/sabueso/internal/torznab"
)

// Handlers provides HTTP handlers for the per-indexer routes.
type Handlers struct {
	service   *Service
	statusSvc *status.Service
	capsLimit int
}

// NewHandlers creates new registry handlers. capsLimit is the paging
// bound advertised in caps documents.
func NewHandlers(service *Service, statusSvc *status.Service, capsLimit int) *Handlers {
	return &Handlers{service: service, statusSvc: statusSvc, capsLimit: capsLimit}
}

// RegisterRoutes registers the indexer routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/indexers", h.List)
	g.PUT("/indexers/:id", h.UpdateSettings)
	g.GET("/indexers/:id/status", h.GetStatus)
	g.GET("/indexers/:id/results", h.SearchOne)
	g.GET("/indexers/:id/tvsearch", h.TVSearch)
	g.GET("/indexers/:id/api", h.Torznab)
	g.GET("/indexers/:id/download", h.Download)
	g.GET("/test", h.TestAll)
	g.GET("/status", h.GetAllStatuses)
}

// List returns the registered indexers.
// GET /api/v1/indexers
func (h *Handlers) List(c echo.Context) error {
	summaries := h.service.List()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"indexers": summaries,
		"count":    len(summaries),
	})
}

// UpdateSettings persists new settings for an indexer.
// PUT /api/v1/indexers/:id
func (h *Handlers) UpdateSettings(c echo.Context) error {
	var input UpdateSettingsInput
	if err := c.Bind(&input); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	summary, err := h.service.UpdateSettings(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		if errors.Is(err, ErrIndexerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summary)
}

// TestAll checks connectivity to every enabled indexer.
// GET /api/v1/test
func (h *Handlers) TestAll(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.TestAll(c.Request().Context()))
}

// GetStatus returns the health summary of one indexer.
// GET /api/v1/indexers/:id/status
func (h *Handlers) GetStatus(c echo.Context) error {
	id := c.Param("id")
	summary, ok := h.service.Lookup(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, ErrIndexerNotFound.Error())
	}

	health, err := h.statusSvc.GetHealth(c.Request().Context(), id, summary.Name)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, health)
}

// GetAllStatuses returns the health of all registered indexers.
// GET /api/v1/status
func (h *Handlers) GetAllStatuses(c echo.Context) error {
	ctx := c.Request().Context()

	summaries := h.service.List()
	healths := make([]*status.IndexerHealth, 0, len(summaries))
	for _, summary := range summaries {
		health, err := h.statusSvc.GetHealth(ctx, summary.ID, summary.Name)
		if err != nil {
			continue
		}
		healths = append(healths, health)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"indexers": healths,
		"stats":    status.ComputeStats(healths),
	})
}

// SearchOne runs a keyword search against one indexer.
// GET /api/v1/indexers/:id/results
func (h *Handlers) SearchOne(c echo.Context) error {
	if invalid := torznab.UnsupportedParams(c.QueryParams(), torznab.ValidSearchParams); len(invalid) > 0 {
		return rejectParams(c, invalid, torznab.ValidSearchParams, "")
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "q" is required`,
		})
	}

	name := c.Param("id")
	idx, ok := h.service.Get(name)
	if !ok {
		return h.indexerNotFound(c, name)
	}

	releases, err := idx.Search(c.Request().Context(), query)
	h.service.RecordOutcome(c.Request().Context(), idx, err)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"indexer": name,
		})
	}

	results := torznab.FromReleases(releases)
	absolutizeLinks(results, baseURL(c))

	return c.JSON(http.StatusOK, torznab.IndexerSearchResponse{
		Results:         results,
		NumberOfResults: len(results),
		Query:           query,
		Indexer:         name,
	})
}

// TVSearch runs an episode search against one indexer.
// GET /api/v1/indexers/:id/tvsearch
func (h *Handlers) TVSearch(c echo.Context) error {
	if invalid := torznab.UnsupportedParams(c.QueryParams(), torznab.ValidTVSearchParams); len(invalid) > 0 {
		return rejectParams(c, invalid, torznab.ValidTVSearchParams, `Use "ep" instead of "episode" (Torznab standard)`)
	}

	series := strings.TrimSpace(c.QueryParam("q"))
	if series == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "q" (series name) is required`,
		})
	}

	name := c.Param("id")
	idx, ok := h.service.Get(name)
	if !ok {
		return h.indexerNotFound(c, name)
	}

	es, ok := idx.(indexer.EpisodeSearcher)
	if !ok {
		return c.JSON(http.StatusNotImplemented, map[string]string{
			"error": fmt.Sprintf("Indexer %q does not support episode search", name),
		})
	}

	season := torznab.ParseNumber(c.QueryParam("season"))
	episode := torznab.ParseNumber(c.QueryParam("ep"))

	releases, err := es.SearchEpisodes(c.Request().Context(), series, season, episode)
	h.service.RecordOutcome(c.Request().Context(), idx, err)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"indexer": name,
		})
	}

	results := torznab.FromReleases(releases)
	base := baseURL(c)
	for i := range results {
		results[i].Link = torznab.AbsolutizeLink(results[i].Link, base)
		// Echo the requested numbers onto each result, zero staying
		// unset like an absent value.
		if season != nil && *season != 0 {
			results[i].Season = season
		}
		if episode != nil && *episode != 0 {
			results[i].Episode = episode
		}
	}

	return c.JSON(http.StatusOK, torznab.TVSearchResponse{
		Results:         results,
		NumberOfResults: len(results),
		Query:           series,
		Season:          season,
		Episode:         episode,
		Indexer:         name,
	})
}

// Torznab serves the XML API automation tools point at: caps plus RSS
// renditions of search and tvsearch.
// GET /api/v1/indexers/:id/api
func (h *Handlers) Torznab(c echo.Context) error {
	name := c.Param("id")
	idx, ok := h.service.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error":              fmt.Sprintf("Indexer %q not found or not enabled", name),
			"available_indexers": h.service.EnabledIDs(),
		})
	}

	t := strings.ToLower(c.QueryParam("t"))
	switch t {
	case "caps":
		return h.torznabCaps(c, name, idx)
	case "search":
		return h.torznabSearch(c, name, idx)
	case "tvsearch":
		return h.torznabTVSearch(c, name, idx)
	default:
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":           "Unknown request type: " + t,
			"supported_types": []string{"caps", "search", "tvsearch"},
		})
	}
}

func (h *Handlers) torznabCaps(c echo.Context, name string, idx indexer.Indexer) error {
	names := map[int]string{}
	if def, err := sitedef.Get(name); err == nil {
		names = def.CategoryNames()
	}

	doc := torznab.NewCaps("Sabueso", config.Version, h.capsLimit, idx.Capabilities(), names)
	return c.XML(http.StatusOK, doc)
}

func (h *Handlers) torznabSearch(c echo.Context, name string, idx indexer.Indexer) error {
	if invalid := torznab.UnsupportedParams(c.QueryParams(), torznab.ValidSearchParams); len(invalid) > 0 {
		return rejectParams(c, invalid, torznab.ValidSearchParams, "")
	}

	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "q" is required`,
		})
	}

	releases, err := idx.Search(c.Request().Context(), query)
	h.service.RecordOutcome(c.Request().Context(), idx, err)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"indexer": name,
		})
	}

	releases = torznab.PageReleases(releases, torznab.ParseNumber(c.QueryParam("limit")), torznab.ParseNumber(c.QueryParam("offset")))
	feed := torznab.NewFeed(idx.Name(), fmt.Sprintf("%s search results", idx.Name()), baseURL(c), releases)
	return c.XML(http.StatusOK, feed)
}

func (h *Handlers) torznabTVSearch(c echo.Context, name string, idx indexer.Indexer) error {
	// The dispatcher owns the t parameter, so it passes here even
	// though the plain tvsearch route rejects it.
	valid := append([]string{"t"}, torznab.ValidTVSearchParams...)
	if invalid := torznab.UnsupportedParams(c.QueryParams(), valid); len(invalid) > 0 {
		return rejectParams(c, invalid, torznab.ValidTVSearchParams, `Use "ep" instead of "episode" (Torznab standard)`)
	}

	series := strings.TrimSpace(c.QueryParam("q"))
	if series == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "q" (series name) is required`,
		})
	}

	es, ok := idx.(indexer.EpisodeSearcher)
	if !ok {
		return c.JSON(http.StatusNotImplemented, map[string]string{
			"error": fmt.Sprintf("Indexer %q does not support episode search", name),
		})
	}

	releases, err := es.SearchEpisodes(c.Request().Context(), series, torznab.ParseNumber(c.QueryParam("season")), torznab.ParseNumber(c.QueryParam("ep")))
	h.service.RecordOutcome(c.Request().Context(), idx, err)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error":   err.Error(),
			"indexer": name,
		})
	}

	feed := torznab.NewFeed(idx.Name(), fmt.Sprintf("%s episode results", idx.Name()), baseURL(c), releases)
	return c.XML(http.StatusOK, feed)
}

// Download resolves a result into its final download location and
// redirects the client there.
// GET /api/v1/indexers/:id/download
func (h *Handlers) Download(c echo.Context) error {
	name := c.Param("id")
	idx, ok := h.service.Get(name)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("Indexer %q no encontrado", name),
		})
	}

	if _, ok := idx.(indexer.DownloadResolver); !ok {
		return c.JSON(http.StatusNotImplemented, map[string]string{
			"error": "Download method not implemented for this indexer",
		})
	}

	detailURL := c.QueryParam("url")
	tabla := c.QueryParam("tabla")
	if tabla == "" {
		tabla = "peliculas"
	}
	episodeID := c.QueryParam("episode_id")

	if episodeID == "" && detailURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": `Parameter "url" or "episode_id" is required`,
		})
	}

	downloadURL, err := h.service.Grab(c.Request().Context(), idx, types.ResolveRequest{
		DetailURL:        detailURL,
		EpisodeContentID: episodeID,
		TableHint:        tabla,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": downloadErrorMessage(err),
		})
	}

	return c.Redirect(http.StatusFound, downloadURL)
}

// downloadErrorMessage keeps the stable client-facing texts for the
// two failure stages of download resolution.
func downloadErrorMessage(err error) string {
	var ie *indexer.IndexerError
	if errors.As(err, &ie) && ie.Stage == "detail" {
		return "Could not get content_id from detail page"
	}
	return "Could not get download link after PoW"
}

// indexerNotFound is the rejection for search routes addressing an
// unknown or disabled indexer.
func (h *Handlers) indexerNotFound(c echo.Context, name string) error {
	return c.JSON(http.StatusNotFound, map[string]interface{}{
		"error":              fmt.Sprintf("Indexer %q no encontrado o no habilitado", name),
		"available_indexers": h.service.EnabledIDs(),
	})
}

func rejectParams(c echo.Context, invalid, valid []string, hint string) error {
	body := map[string]interface{}{
		"error":        "Unsupported parameters: " + strings.Join(invalid, ", "),
		"valid_params": valid,
	}
	if hint != "" {
		body["hint"] = hint
	}
	return c.JSON(http.StatusBadRequest, body)
}

func absolutizeLinks(results []torznab.Result, base string) {
	for i := range results {
		results[i].Link = torznab.AbsolutizeLink(results[i].Link, base)
	}
}

func baseURL(c echo.Context) string {
	return c.Scheme() + "://" + c.Request().Host
}
