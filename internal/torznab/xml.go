package torznab

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

const torznabNamespace = "http://torznab.com/schemas/2015/feed"

// Feed is a Torznab RSS search answer.
type Feed struct {
	XMLName   xml.Name `xml:"rss"`
	Version   string   `xml:"version,attr"`
	TorznabNS string   `xml:"xmlns:torznab,attr"`
	Channel   Channel  `xml:"channel"`
}

// Channel holds the feed metadata and items.
type Channel struct {
	Title       string `xml:"title"`
	Description string `xml:"description,omitempty"`
	Items       []Item `xml:"item"`
}

// Item is one release in the feed.
type Item struct {
	Title     string    `xml:"title"`
	GUID      string    `xml:"guid"`
	Link      string    `xml:"link"`
	PubDate   string    `xml:"pubDate"`
	Size      *int64    `xml:"size,omitempty"`
	Enclosure Enclosure `xml:"enclosure"`
	Attrs     []Attr    `xml:"torznab:attr"`
}

// Enclosure points download clients at the torrent payload.
type Enclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// Attr is one torznab extended attribute.
type Attr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// NewFeed builds the RSS answer for a Torznab search. Releases without
// a publish date get the current time; every item must carry a pubDate
// because feed consumers sort on it.
func NewFeed(title, description, baseURL string, releases []types.Release) Feed {
	now := time.Now().UTC()

	items := make([]Item, 0, len(releases))
	for _, r := range releases {
		items = append(items, newItem(r, baseURL, now))
	}

	return Feed{
		Version:   "2.0",
		TorznabNS: torznabNamespace,
		Channel: Channel{
			Title:       title,
			Description: description,
			Items:       items,
		},
	}
}

func newItem(r types.Release, baseURL string, now time.Time) Item {
	link := AbsolutizeLink(r.DownloadLink, baseURL)

	pubDate := now
	if r.PublishDate != nil {
		pubDate = *r.PublishDate
	}

	var length int64
	if r.Size != nil {
		length = *r.Size
	}

	item := Item{
		Title:   r.Title,
		GUID:    r.GUID,
		Link:    link,
		PubDate: pubDate.Format(time.RFC1123Z),
		Size:    r.Size,
		Enclosure: Enclosure{
			URL:    link,
			Length: length,
			Type:   "application/x-bittorrent",
		},
	}

	if r.Category != "" {
		for _, cat := range CategoriesForLabel(r.Category) {
			item.Attrs = append(item.Attrs, Attr{Name: "category", Value: strconv.Itoa(cat)})
		}
	}
	if r.Seeders != nil {
		item.Attrs = append(item.Attrs, Attr{Name: "seeders", Value: strconv.Itoa(*r.Seeders)})
	}
	if r.Leechers != nil {
		item.Attrs = append(item.Attrs, Attr{Name: "peers", Value: strconv.Itoa(*r.Leechers)})
	}
	if r.Season != nil {
		item.Attrs = append(item.Attrs, Attr{Name: "season", Value: strconv.Itoa(*r.Season)})
	}
	if r.Episode != nil {
		item.Attrs = append(item.Attrs, Attr{Name: "episode", Value: strconv.Itoa(*r.Episode)})
	}

	return item
}

// CapsDocument is the Torznab caps answer.
type CapsDocument struct {
	XMLName    xml.Name       `xml:"caps"`
	Server     CapsServer     `xml:"server"`
	Limits     CapsLimits     `xml:"limits"`
	Searching  CapsSearching  `xml:"searching"`
	Categories CapsCategories `xml:"categories"`
}

// CapsServer identifies the responding service.
type CapsServer struct {
	Title   string `xml:"title,attr"`
	Version string `xml:"version,attr"`
}

// CapsLimits advertises the result paging bounds.
type CapsLimits struct {
	Max     int `xml:"max,attr"`
	Default int `xml:"default,attr"`
}

// CapsSearching lists the supported search modes.
type CapsSearching struct {
	Search      CapsSearchMode `xml:"search"`
	TVSearch    CapsSearchMode `xml:"tv-search"`
	MovieSearch CapsSearchMode `xml:"movie-search"`
}

// CapsSearchMode describes one search mode.
type CapsSearchMode struct {
	Available       string `xml:"available,attr"`
	SupportedParams string `xml:"supportedParams,attr"`
}

// CapsCategories wraps the advertised category list.
type CapsCategories struct {
	Categories []CapsCategory `xml:"category"`
}

// CapsCategory is one advertised category.
type CapsCategory struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// NewCaps builds the caps document from an indexer's capability set.
// categoryNames overrides the standard Newznab names where the site
// uses its own labels.
func NewCaps(title, version string, limit int, caps types.Capabilities, categoryNames map[int]string) CapsDocument {
	doc := CapsDocument{
		Server: CapsServer{Title: title, Version: version},
		Limits: CapsLimits{Max: limit, Default: limit},
		Searching: CapsSearching{
			Search:      searchMode(caps.SupportsSearch, caps.SearchParams),
			TVSearch:    searchMode(caps.SupportsTV, caps.TvSearchParams),
			MovieSearch: searchMode(caps.SupportsMovies, caps.MovieSearchParams),
		},
	}

	for _, id := range caps.Categories {
		name := categoryNames[id]
		if name == "" {
			name = CategoryName(id)
		}
		doc.Categories.Categories = append(doc.Categories.Categories, CapsCategory{ID: id, Name: name})
	}

	return doc
}

func searchMode(available bool, params []string) CapsSearchMode {
	mode := CapsSearchMode{Available: "no"}
	if available {
		mode.Available = "yes"
		mode.SupportedParams = strings.Join(params, ",")
	}
	return mode
}
