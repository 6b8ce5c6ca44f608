// Package types contains shared type definitions for indexer packages.
package types

import (
	"time"
)

// ContentKind is the coarse category of scraped content, inferred from
// the listing URL path and page labels.
type ContentKind string

const (
	KindMovie       ContentKind = "movie"
	KindSeries      ContentKind = "series"
	KindDocumentary ContentKind = "documentary"
	KindUnknown     ContentKind = "unknown"
)

// RawListing is one entry found on a search-results page. Records that
// fail basic shape checks (empty content id, missing detail URL) are
// dropped by the parser, never constructed.
type RawListing struct {
	Kind         ContentKind `json:"kind"`
	ContentID    string      `json:"contentId"`
	Title        string      `json:"title"`
	Quality      string      `json:"quality,omitempty"`
	CategoryHint string      `json:"categoryHint"`
	DetailURL    string      `json:"detailUrl"`
	TableKey     string      `json:"tableKey"`
}

// EpisodeRow is one classified row of a series' episode table. Exactly
// one of {Episode set, IsPack} holds for a classified row; rows that
// cannot be classified are excluded by the parser, never defaulted.
type EpisodeRow struct {
	RawLabel    string     `json:"rawLabel"`
	IsPack      bool       `json:"isPack"`
	Season      *int       `json:"season,omitempty"`
	Episode     *int       `json:"episode,omitempty"`
	ContentID   string     `json:"contentId"`
	TableKey    string     `json:"tableKey"`
	PublishDate *time.Time `json:"publishDate,omitempty"`
}

// Release is the protocol-agnostic normalized search result. It is
// constructed once by the normalizer and immutable afterwards. Size,
// Seeders and Leechers stay nil when the source page does not expose
// them; zero is a meaningful value for "no seeders" and is never used
// as a default.
type Release struct {
	Title        string     `json:"title"`
	GUID         string     `json:"guid"`
	DownloadLink string     `json:"downloadLink"`
	DetailsURL   string     `json:"detailsUrl"`
	IndexerName  string     `json:"indexer"`
	Size         *int64     `json:"size,omitempty"`
	Seeders      *int       `json:"seeders,omitempty"`
	Leechers     *int       `json:"leechers,omitempty"`
	PublishDate  *time.Time `json:"publishDate,omitempty"`
	Category     string     `json:"category,omitempty"`
	ImdbID       string     `json:"imdbId,omitempty"`
	Season       *int       `json:"season,omitempty"`
	Episode      *int       `json:"episode,omitempty"`
}

// Challenge is a server-issued proof-of-work puzzle. It lives only for
// the duration of one download resolution.
type Challenge struct {
	Token      string `json:"token"`
	Difficulty int    `json:"difficulty"`
}

// ResolveRequest identifies the content a download should be resolved
// for. When EpisodeContentID is set the detail-page lookup is skipped
// and TableHint names the site table the id belongs to.
type ResolveRequest struct {
	DetailURL        string `json:"detailUrl,omitempty"`
	EpisodeContentID string `json:"episodeContentId,omitempty"`
	TableHint        string `json:"tableHint,omitempty"`
}

// Capabilities describes what an indexer variant supports.
type Capabilities struct {
	SupportsSearch    bool     `json:"supportsSearch"`
	SupportsTV        bool     `json:"supportsTvSearch"`
	SupportsMovies    bool     `json:"supportsMovieSearch"`
	SupportsDownload  bool     `json:"supportsDownload"`
	SearchParams      []string `json:"searchParams"`
	TvSearchParams    []string `json:"tvSearchParams"`
	MovieSearchParams []string `json:"movieSearchParams"`
	Categories        []int    `json:"categories"`
}

// TestResult is the outcome of an indexer connectivity test.
type TestResult struct {
	Status string `json:"status"` // "ok" or "error"
	Domain string `json:"domain,omitempty"`
	Error  string `json:"error,omitempty"`
}
