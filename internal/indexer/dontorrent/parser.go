package dontorrent

import (
	"bytes"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// contentPrefixes maps listing URL path prefixes to the site's internal
// table key used by the download endpoint.
var contentPrefixes = []struct {
	prefix   string
	tableKey string
}{
	{"/pelicula/", "peliculas"},
	{"/serie/", "series"},
	{"/documental/", "documentales"},
}

var (
	reSeriesHeading = regexp.MustCompile(`^(.+?)\s*-\s*\d+ª Temporada`)
	reLeadingName   = regexp.MustCompile(`^([^-]+)`)
	rePageSeason    = regexp.MustCompile(`(\d+)ª Temporada`)
	rePageTitle     = regexp.MustCompile(`Descargar (.+?) Torrent`)
	reQualityLabel  = regexp.MustCompile(`Format:\s*(.+?)(?:\s|$)`)
)

// parseListings scans a search-results page for content links. Blocks
// without a recognized link, without a title, or with fewer than two
// path segments are skipped. Malformed or empty HTML yields an empty
// result, never an error: structural absence is normal site variance.
func parseListings(html []byte, baseURL string) []types.RawListing {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var listings []types.RawListing
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		link := p.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		href := link.AttrOr("href", "")
		tableKey, ok := matchContentPrefix(href)
		if !ok {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		contentID, ok := secondPathSegment(href)
		if !ok {
			return
		}

		kind, hint := categoryFromSpan(p)
		listings = append(listings, types.RawListing{
			Kind:         kind,
			ContentID:    contentID,
			Title:        title,
			Quality:      qualityBetweenParens(p.Text()),
			CategoryHint: hint,
			DetailURL:    resolveURL(baseURL, href),
			TableKey:     tableKey,
		})
	})

	return listings
}

// seriesMatch is a series listing selected as an episode-search candidate.
type seriesMatch struct {
	Title     string
	DetailURL string
}

// parseSeriesMatches finds the series listings on a search-results page.
// A paragraph qualifies when its link points at a series page and its
// text marks it as one; mentions of movies or documentaries disqualify
// it regardless.
func parseSeriesMatches(html []byte, baseURL string) []seriesMatch {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil
	}

	var matches []seriesMatch
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		link := p.Find("a[href]").First()
		if link.Length() == 0 {
			return
		}

		href := link.AttrOr("href", "")
		if !strings.HasPrefix(href, "/serie/") {
			return
		}

		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}

		isSeries := false
		if badge := p.Find("span.badge").First(); badge.Length() > 0 {
			isSeries = strings.Contains(strings.ToLower(strings.TrimSpace(badge.Text())), "serie")
		}
		if !isSeries {
			if span := p.Find("span").First(); span.Length() > 0 {
				isSeries = strings.Contains(strings.ToLower(strings.TrimSpace(span.Text())), "serie")
			}
		}
		text := strings.ToLower(p.Text())
		if !isSeries {
			isSeries = strings.Contains(text, "serie")
		}
		if strings.Contains(text, "movie") || strings.Contains(text, "pelicula") || strings.Contains(text, "película") || strings.Contains(text, "documental") {
			isSeries = false
		}
		if !isSeries {
			return
		}

		matches = append(matches, seriesMatch{
			Title:     title,
			DetailURL: resolveURL(baseURL, href),
		})
	})

	return matches
}

// parseDetailContentID reads the protected-download marker of a detail
// page. The table key is returned as-is and may be empty; callers apply
// their own default. ok is false when the marker or the content id
// attribute is missing.
func parseDetailContentID(html []byte) (contentID, tableKey string, ok bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", false
	}

	marker := doc.Find(".protected-download").First()
	if marker.Length() == 0 {
		return "", "", false
	}

	contentID = marker.AttrOr("data-content-id", "")
	if contentID == "" {
		return "", "", false
	}

	return contentID, marker.AttrOr("data-tabla", ""), true
}

// seriesContext is the page-level context of a series detail page that
// episode rows inherit.
type seriesContext struct {
	Name    string
	Season  *int
	Quality string
}

// parseSeriesContext extracts the series name, the page-level season and
// the release quality from a detail page.
//
// The heading is located through a fallback chain kept in the site's
// historical order: the first h2 mentioning a season, then the page
// title, then the second h2, then a literal placeholder. The chain is
// best-effort; unusual markup can mis-title results.
func parseSeriesContext(doc *goquery.Document) seriesContext {
	var heading string

	doc.Find("h2").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		text := strings.TrimSpace(h.Text())
		if strings.Contains(strings.ToLower(text), "temporada") {
			heading = text
			return false
		}
		return true
	})

	if heading == "" {
		if m := rePageTitle.FindStringSubmatch(doc.Find("title").First().Text()); m != nil {
			heading = strings.TrimSpace(m[1])
		}
	}

	if heading == "" {
		if second := doc.Find("h2").Eq(1); second.Length() > 0 {
			heading = strings.TrimSpace(second.Text())
		}
	}

	if heading == "" {
		heading = "Serie"
	}

	ctx := seriesContext{Name: heading}

	if m := reSeriesHeading.FindStringSubmatch(heading); m != nil {
		ctx.Name = strings.TrimSpace(m[1])
	} else if m := reLeadingName.FindStringSubmatch(heading); m != nil {
		ctx.Name = strings.TrimSpace(m[1])
	}

	if m := rePageSeason.FindStringSubmatch(heading); m != nil {
		if season, err := strconv.Atoi(m[1]); err == nil {
			ctx.Season = &season
		}
	}

	doc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := strings.TrimSpace(p.Text())
		if !strings.Contains(text, "Format:") {
			return true
		}
		if m := reQualityLabel.FindStringSubmatch(text); m != nil {
			ctx.Quality = strings.TrimSpace(m[1])
		}
		return false
	})

	return ctx
}

// episodeTableRow is one unclassified row of a series' episode table.
type episodeTableRow struct {
	Label     string
	ContentID string
	TableKey  string
	Date      *time.Time
}

// parseEpisodeTable reads the first table of a series detail page. Rows
// without a protected-download button or a content id carry nothing to
// resolve and are dropped. A table with only a header yields no rows.
func parseEpisodeTable(doc *goquery.Document) []episodeTableRow {
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil
	}

	trs := table.Find("tr")
	if trs.Length() <= 1 {
		return nil
	}

	var rows []episodeTableRow
	trs.Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}

		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}

		button := cells.Eq(1).Find(".protected-download").First()
		if button.Length() == 0 {
			return
		}
		contentID := button.AttrOr("data-content-id", "")
		if contentID == "" {
			return
		}

		row := episodeTableRow{
			Label:     strings.TrimSpace(cells.Eq(0).Text()),
			ContentID: contentID,
			TableKey:  button.AttrOr("data-tabla", "series"),
		}

		if cells.Length() >= 3 {
			if date, err := time.Parse("2006-01-02", strings.TrimSpace(cells.Eq(2).Text())); err == nil {
				row.Date = &date
			}
		}

		rows = append(rows, row)
	})

	return rows
}

func matchContentPrefix(href string) (string, bool) {
	for _, p := range contentPrefixes {
		if strings.HasPrefix(href, p.prefix) {
			return p.tableKey, true
		}
	}
	return "", false
}

// categoryFromSpan derives the content kind and the free-text category
// label from the first span of a listing paragraph. Listings without a
// recognizable span fall back to the site's "unknown" label.
func categoryFromSpan(p *goquery.Selection) (types.ContentKind, string) {
	span := p.Find("span").First()
	if span.Length() == 0 {
		return types.KindUnknown, "Desconocido"
	}

	text := strings.ToLower(strings.TrimSpace(span.Text()))
	switch {
	case strings.Contains(text, "movie"), strings.Contains(text, "pelicula"), strings.Contains(text, "película"):
		return types.KindMovie, "Movies"
	case strings.Contains(text, "serie"):
		return types.KindSeries, "Series"
	case strings.Contains(text, "documental"):
		return types.KindDocumentary, "Documentales"
	default:
		return types.KindUnknown, "Desconocido"
	}
}

// qualityBetweenParens extracts the text between the first opening and
// first closing parenthesis, or "" when they are absent or reversed.
func qualityBetweenParens(text string) string {
	open := strings.Index(text, "(")
	closing := strings.Index(text, ")")
	if open == -1 || closing == -1 || closing <= open {
		return ""
	}
	return text[open+1 : closing]
}

func secondPathSegment(href string) (string, bool) {
	parts := strings.Split(strings.Trim(href, "/"), "/")
	if len(parts) < 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// resolveURL resolves href against the base URL, mirroring how browsers
// join listing links with the site domain.
func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
