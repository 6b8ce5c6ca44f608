// Package dontorrent implements the DonTorrent site client: form-based
// keyword search, episode enumeration from series detail pages, and
// download resolution through the site's proof-of-work gate.
package dontorrent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go"
	"github.com/rs/zerolog"
	"golang.org/x/net/publicsuffix"

	"github.com/sabueso/sabueso/internal/indexer"
	"github.com/sabueso/sabueso/internal/indexer/sitedef"
	"github.com/sabueso/sabueso/internal/indexer/types"
)

const (
	indexerID = "dontorrent"

	defaultTimeout    = 30 * time.Second
	testTimeout       = 10 * time.Second
	defaultDifficulty = 3

	detailRetryAttempts = 3
	detailRetryDelay    = 500 * time.Millisecond

	powEndpoint = "/api_validate_pow.php"

	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	acceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "es-ES,es;q=0.9,en;q=0.8"
)

// Client scrapes the DonTorrent site.
type Client struct {
	name       string
	domain     string
	difficulty int
	caps       types.Capabilities
	httpClient *http.Client
	logger     *zerolog.Logger
}

var (
	_ indexer.Indexer          = (*Client)(nil)
	_ indexer.EpisodeSearcher  = (*Client)(nil)
	_ indexer.DownloadResolver = (*Client)(nil)
)

// Config holds the site client settings.
type Config struct {
	Domain     string // overrides the definition's primary link when set
	Timeout    int    // request timeout in seconds
	Difficulty int    // leading zero hex characters the download gate requires
	Logger     *zerolog.Logger
}

// New creates a DonTorrent client from the embedded site definition and
// the given overrides.
func New(cfg Config) (*Client, error) {
	def, err := sitedef.Get(indexerID)
	if err != nil {
		return nil, err
	}

	domain := strings.TrimSuffix(cfg.Domain, "/")
	if domain == "" {
		domain = strings.TrimSuffix(def.PrimaryLink(), "/")
	}

	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	difficulty := cfg.Difficulty
	if difficulty <= 0 {
		difficulty = defaultDifficulty
	}

	// The jar carries the site's session cookie between the challenge
	// and validation calls of the download gate.
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	logger := cfg.Logger.With().
		Str("component", "dontorrent").
		Str("domain", domain).
		Logger()

	return &Client{
		name:       def.Name,
		domain:     domain,
		difficulty: difficulty,
		caps:       def.Capabilities(),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger: &logger,
	}, nil
}

// ID returns the registry identifier.
func (c *Client) ID() string { return indexerID }

// Name returns the display name from the site definition.
func (c *Client) Name() string { return c.name }

// Domain returns the site base URL in use.
func (c *Client) Domain() string { return c.domain }

// Capabilities describes the supported search modes and categories.
func (c *Client) Capabilities() types.Capabilities { return c.caps }

// Test checks connectivity by fetching the site root.
func (c *Client) Test(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, testTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.domain, nil)
	if err != nil {
		return indexer.NewTransportError(indexerID, c.name, "test", err)
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return indexer.NewTransportError(indexerID, c.name, "test", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return indexer.NewTransportError(indexerID, c.name, "test", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

// Search runs a keyword search and returns the normalized listings.
// Pages whose structure does not match yield an empty result.
func (c *Client) Search(ctx context.Context, query string) ([]types.Release, error) {
	body, err := c.postSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	listings := parseListings(body, c.domain)
	releases := make([]types.Release, 0, len(listings))
	for _, raw := range listings {
		releases = append(releases, normalizeListing(raw, c.name))
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(releases)).
		Msg("search completed")
	return releases, nil
}

// SearchEpisodes finds episode releases for a series. With a season the
// query carries the site's season suffix to narrow the match list. The
// initial search must succeed; individual detail pages that cannot be
// fetched are skipped so one dead page does not sink the whole search.
func (c *Client) SearchEpisodes(ctx context.Context, series string, season, episode *int) ([]types.Release, error) {
	query := series
	if season != nil {
		query = fmt.Sprintf("%s - %dª Temporada", series, *season)
	}

	body, err := c.postSearch(ctx, query)
	if err != nil {
		return nil, err
	}

	matches := parseSeriesMatches(body, c.domain)
	releases := make([]types.Release, 0)
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := c.getDetail(ctx, match.DetailURL)
		if err != nil {
			c.logger.Warn().Err(err).
				Str("url", match.DetailURL).
				Msg("skipping unreachable series page")
			continue
		}
		releases = append(releases, c.extractEpisodes(page, match.DetailURL, season, episode)...)
	}

	c.logger.Debug().
		Str("series", series).
		Int("matches", len(matches)).
		Int("results", len(releases)).
		Msg("episode search completed")
	return releases, nil
}

// extractEpisodes pulls the episode releases out of one series detail
// page, honoring the requested season and episode. Rows whose labels
// cannot be classified are skipped. An episode request keeps single
// episodes only; without one the season packs are kept instead.
func (c *Client) extractEpisodes(page []byte, detailURL string, season, episode *int) []types.Release {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil
	}

	sctx := parseSeriesContext(doc)

	var releases []types.Release
	for _, row := range parseEpisodeTable(doc) {
		class, ok := classifyEpisodeLabel(row.Label)
		if !ok {
			continue
		}
		if episode != nil && class.IsPack {
			continue
		}
		if episode == nil && !class.IsPack {
			continue
		}

		rowSeason := class.Season
		if sctx.Season != nil {
			rowSeason = sctx.Season
		}
		if season != nil && (rowSeason == nil || *rowSeason != *season) {
			continue
		}
		if episode != nil && (class.Episode == nil || *class.Episode != *episode) {
			continue
		}

		release, ok := normalizeEpisode(sctx, detailURL, c.name, row, class)
		if !ok {
			continue
		}
		releases = append(releases, release)
	}

	return releases
}

// ResolveDownload turns a search result into the final download URL.
// Results carrying an episode content id skip the detail page; the
// others fetch it to read the protected download marker. The content id
// then goes through the site's generate, solve and validate exchange.
func (c *Client) ResolveDownload(ctx context.Context, req types.ResolveRequest) (string, error) {
	contentID := req.EpisodeContentID
	tableKey := req.TableHint

	if contentID == "" {
		if req.DetailURL == "" {
			return "", indexer.NewContractError(indexerID, c.name, "detail", "detail url or episode content id is required")
		}

		page, err := c.get(ctx, req.DetailURL)
		if err != nil {
			return "", indexer.NewTransportError(indexerID, c.name, "detail", err)
		}

		id, buttonTable, ok := parseDetailContentID(page)
		if !ok {
			return "", indexer.NewContractError(indexerID, c.name, "detail", "protected download marker not found")
		}
		contentID = id
		if buttonTable != "" {
			tableKey = buttonTable
		}
	}
	if tableKey == "" {
		tableKey = "peliculas"
	}

	numericID, err := strconv.Atoi(contentID)
	if err != nil {
		return "", indexer.NewContractError(indexerID, c.name, "generate", fmt.Sprintf("content id %q is not numeric", contentID))
	}

	challenge, err := c.generateChallenge(ctx, numericID, tableKey)
	if err != nil {
		return "", err
	}

	nonce, err := SolvePoW(ctx, challenge)
	if err != nil {
		if errors.Is(err, errInfeasibleDifficulty) {
			return "", indexer.NewConfigError(indexerID, fmt.Sprintf("pow difficulty %d is not solvable", challenge.Difficulty))
		}
		return "", err
	}

	c.logger.Debug().
		Str("content_id", contentID).
		Str("tabla", tableKey).
		Int("nonce", nonce).
		Msg("proof of work solved")

	return c.validateNonce(ctx, challenge.Token, nonce)
}

// powGenerateRequest asks the download gate for a challenge.
type powGenerateRequest struct {
	Action    string `json:"action"`
	ContentID int    `json:"content_id"`
	Tabla     string `json:"tabla"`
}

// powValidateRequest submits a solved nonce.
type powValidateRequest struct {
	Action    string `json:"action"`
	Challenge string `json:"challenge"`
	Nonce     int    `json:"nonce"`
}

// powResponse is the gate's answer to both actions.
type powResponse struct {
	Success     bool   `json:"success"`
	Challenge   string `json:"challenge,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

func (c *Client) generateChallenge(ctx context.Context, contentID int, tableKey string) (types.Challenge, error) {
	var resp powResponse
	err := c.postJSON(ctx, "generate", powGenerateRequest{
		Action:    "generate",
		ContentID: contentID,
		Tabla:     tableKey,
	}, &resp)
	if err != nil {
		return types.Challenge{}, err
	}

	if !resp.Success {
		return types.Challenge{}, indexer.NewPuzzleError(indexerID, c.name, "generate", powReason(resp.Error))
	}
	if resp.Challenge == "" {
		return types.Challenge{}, indexer.NewContractError(indexerID, c.name, "generate", "challenge missing from response")
	}

	// The gate does not state its difficulty; the configured value has
	// to match what the server verifies.
	return types.Challenge{Token: resp.Challenge, Difficulty: c.difficulty}, nil
}

func (c *Client) validateNonce(ctx context.Context, token string, nonce int) (string, error) {
	var resp powResponse
	err := c.postJSON(ctx, "validate", powValidateRequest{
		Action:    "validate",
		Challenge: token,
		Nonce:     nonce,
	}, &resp)
	if err != nil {
		return "", err
	}

	if !resp.Success {
		return "", indexer.NewPuzzleError(indexerID, c.name, "validate", powReason(resp.Error))
	}
	if resp.DownloadURL == "" {
		return "", indexer.NewContractError(indexerID, c.name, "validate", "download url missing from response")
	}
	return resp.DownloadURL, nil
}

func powReason(serverError string) string {
	if serverError == "" {
		return "server rejected the request"
	}
	return serverError
}

// postSearch submits the site's search form and returns the result page.
func (c *Client) postSearch(ctx context.Context, query string) ([]byte, error) {
	form := url.Values{}
	form.Set("valor", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.domain+"/buscar", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, indexer.NewTransportError(indexerID, c.name, "search", err)
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, indexer.NewTransportError(indexerID, c.name, "search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, indexer.NewTransportError(indexerID, c.name, "search", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, indexer.NewTransportError(indexerID, c.name, "search", err)
	}
	return body, nil
}

// getDetail fetches a series detail page, retrying transient failures
// before the caller gives up on the series.
func (c *Client) getDetail(ctx context.Context, pageURL string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			b, err := c.get(ctx, pageURL)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Attempts(detailRetryAttempts),
		retry.Delay(detailRetryDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	c.setBrowserHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// postJSON posts a JSON payload to the download gate and decodes the
// answer, mapping failures onto the error taxonomy for the given stage.
func (c *Client) postJSON(ctx context.Context, stage string, payload, result interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", stage, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.domain+powEndpoint, bytes.NewReader(body))
	if err != nil {
		return indexer.NewTransportError(indexerID, c.name, stage, err)
	}
	c.setBrowserHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return indexer.NewTransportError(indexerID, c.name, stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return indexer.NewTransportError(indexerID, c.name, stage, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return indexer.NewContractError(indexerID, c.name, stage, "malformed json response")
	}
	return nil
}

// setBrowserHeaders applies the browser-like headers the site expects.
func (c *Client) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguage)
}
