package dontorrent

import (
	"fmt"
	"net/url"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// downloadPath is the app-relative endpoint that resolves a protected
// download; the HTTP layer absolutizes it against the request host.
const downloadPath = "/api/v1/indexers/dontorrent/download"

// normalizeListing converts a parsed search listing into a release.
func normalizeListing(raw types.RawListing, indexerName string) types.Release {
	return types.Release{
		Title:        formatTitle(raw.Title, raw.Quality),
		GUID:         "dontorrent-" + raw.ContentID,
		DownloadLink: downloadLink(raw.DetailURL, raw.TableKey, ""),
		DetailsURL:   raw.DetailURL,
		IndexerName:  indexerName,
		Category:     raw.CategoryHint,
	}
}

// normalizeEpisode converts a classified episode row into a release,
// folding in the page-level series context. The page season wins over
// the season read from the row label. Packs that name no season at all
// cannot be titled and are dropped.
func normalizeEpisode(sctx seriesContext, detailURL, indexerName string, row episodeTableRow, class episodeClass) (types.Release, bool) {
	season := class.Season
	if sctx.Season != nil {
		season = sctx.Season
	}

	name := titleCaseName(sctx.Name)

	var title string
	switch {
	case class.IsPack && season != nil:
		title = formatTitle(fmt.Sprintf("%s - Temporada %d Completa", name, *season), sctx.Quality)
	case !class.IsPack && season != nil && class.Episode != nil:
		title = formatTitle(fmt.Sprintf("%s S%02dE%02d", name, *season, *class.Episode), sctx.Quality)
	default:
		return types.Release{}, false
	}

	release := types.Release{
		Title:        title,
		GUID:         "dontorrent-episode-" + row.ContentID,
		DownloadLink: downloadLink(detailURL, row.TableKey, row.ContentID),
		DetailsURL:   detailURL,
		IndexerName:  indexerName,
		PublishDate:  row.Date,
		Category:     "Series",
		Season:       season,
	}
	if !class.IsPack {
		release.Episode = class.Episode
	}
	return release, true
}

func formatTitle(base, quality string) string {
	if quality == "" {
		return base
	}
	return base + " [" + quality + "]"
}

// titleCaseName applies Spanish title casing to a series name, matching
// how the site capitalizes headings.
func titleCaseName(name string) string {
	return cases.Title(language.Spanish).String(name)
}

func downloadLink(detailURL, tableKey, episodeID string) string {
	q := url.Values{}
	q.Set("url", detailURL)
	q.Set("tabla", tableKey)
	if episodeID != "" {
		q.Set("episode_id", episodeID)
	}
	return downloadPath + "?" + q.Encode()
}
