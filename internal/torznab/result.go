package torznab

import (
	"strings"
	"time"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// Result is one search result in the Jackett-compatible JSON shape.
// Optional fields are omitted rather than emitted as null so the output
// matches what download automation tools expect.
type Result struct {
	Title        string `json:"Title"`
	Guid         string `json:"Guid"`
	Link         string `json:"Link"`
	Details      string `json:"Details"`
	Tracker      string `json:"Tracker"`
	Size         *int64 `json:"Size,omitempty"`
	Seeders      *int   `json:"Seeders,omitempty"`
	Peers        *int   `json:"Peers,omitempty"`
	PublishDate  string `json:"PublishDate,omitempty"`
	Category     []int  `json:"Category,omitempty"`
	CategoryDesc string `json:"CategoryDesc,omitempty"`
	Imdb         string `json:"Imdb,omitempty"`
	Season       *int   `json:"Season,omitempty"`
	Episode      *int   `json:"Episode,omitempty"`
}

// SearchResponse is the answer of the aggregated search endpoint.
// Errors carries per-indexer failure text and appears only when an
// indexer failed.
type SearchResponse struct {
	Results         []Result          `json:"Results"`
	NumberOfResults int               `json:"NumberOfResults"`
	Query           string            `json:"Query"`
	Errors          map[string]string `json:"Errors,omitempty"`
}

// IndexerSearchResponse is the answer of a per-indexer search.
type IndexerSearchResponse struct {
	Results         []Result `json:"Results"`
	NumberOfResults int      `json:"NumberOfResults"`
	Query           string   `json:"Query"`
	Indexer         string   `json:"Indexer"`
}

// TVSearchResponse is the answer of a per-indexer episode search. The
// requested season and episode are echoed even when absent, as null.
type TVSearchResponse struct {
	Results         []Result `json:"Results"`
	NumberOfResults int      `json:"NumberOfResults"`
	Query           string   `json:"Query"`
	Season          *int     `json:"Season"`
	Episode         *int     `json:"Episode"`
	Indexer         string   `json:"Indexer"`
}

// FromRelease converts a normalized release into the JSON result shape.
// The season and episode of the release are not mapped here; the
// tvsearch handler echoes the requested values instead.
func FromRelease(r types.Release) Result {
	res := Result{
		Title:   r.Title,
		Guid:    r.GUID,
		Link:    r.DownloadLink,
		Details: r.DetailsURL,
		Tracker: r.IndexerName,
		Size:    r.Size,
		Seeders: r.Seeders,
		Peers:   r.Leechers,
		Imdb:    r.ImdbID,
	}

	if r.PublishDate != nil {
		res.PublishDate = r.PublishDate.Format(time.RFC3339)
	}
	if r.Category != "" {
		res.Category = CategoriesForLabel(r.Category)
		res.CategoryDesc = r.Category
	}

	return res
}

// FromReleases converts a slice of releases, never returning nil so the
// JSON field encodes as an empty array.
func FromReleases(releases []types.Release) []Result {
	results := make([]Result, 0, len(releases))
	for _, r := range releases {
		results = append(results, FromRelease(r))
	}
	return results
}

// AbsolutizeLink prefixes an app-relative link with the request base
// URL so download links resolve from any client.
func AbsolutizeLink(link, baseURL string) string {
	if strings.HasPrefix(link, "/") {
		return strings.TrimSuffix(baseURL, "/") + link
	}
	return link
}
