package dontorrent

import (
	"bytes"
	"strconv"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

const listingsBase = "https://example.com"

func TestParseListings(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []types.RawListing
	}{
		{
			name: "series listing with quality and badge",
			html: `<p><a href="/serie/42/foo">Foo</a> (HDTV-720p) <span>Serie</span></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindSeries,
					ContentID:    "42",
					Title:        "Foo",
					Quality:      "HDTV-720p",
					CategoryHint: "Series",
					DetailURL:    "https://example.com/serie/42/foo",
					TableKey:     "series",
				},
			},
		},
		{
			name: "movie listing",
			html: `<p><a href="/pelicula/7/bar">Bar</a> (BluRay-1080p) <span>Película</span></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindMovie,
					ContentID:    "7",
					Title:        "Bar",
					Quality:      "BluRay-1080p",
					CategoryHint: "Movies",
					DetailURL:    "https://example.com/pelicula/7/bar",
					TableKey:     "peliculas",
				},
			},
		},
		{
			name: "documentary listing",
			html: `<p><a href="/documental/9/baz">Baz</a> <span>Documental</span></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindDocumentary,
					ContentID:    "9",
					Title:        "Baz",
					CategoryHint: "Documentales",
					DetailURL:    "https://example.com/documental/9/baz",
					TableKey:     "documentales",
				},
			},
		},
		{
			name: "unrecognized span label",
			html: `<p><a href="/pelicula/7/bar">Bar</a> <span>Estreno</span></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindUnknown,
					ContentID:    "7",
					Title:        "Bar",
					CategoryHint: "Desconocido",
					DetailURL:    "https://example.com/pelicula/7/bar",
					TableKey:     "peliculas",
				},
			},
		},
		{
			name: "no span defaults to unknown",
			html: `<p><a href="/pelicula/7/bar">Bar</a></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindUnknown,
					ContentID:    "7",
					Title:        "Bar",
					CategoryHint: "Desconocido",
					DetailURL:    "https://example.com/pelicula/7/bar",
					TableKey:     "peliculas",
				},
			},
		},
		{
			name: "reversed parentheses yield no quality",
			html: `<p><a href="/pelicula/7/bar">Bar</a> )oops( <span>Película</span></p>`,
			want: []types.RawListing{
				{
					Kind:         types.KindMovie,
					ContentID:    "7",
					Title:        "Bar",
					CategoryHint: "Movies",
					DetailURL:    "https://example.com/pelicula/7/bar",
					TableKey:     "peliculas",
				},
			},
		},
		{
			name: "unrelated link is skipped",
			html: `<p><a href="/contacto">Contacto</a></p>`,
			want: nil,
		},
		{
			name: "empty title is skipped",
			html: `<p><a href="/pelicula/7/bar">  </a> <span>Película</span></p>`,
			want: nil,
		},
		{
			name: "href without id segment is skipped",
			html: `<p><a href="/pelicula/">Bar</a></p>`,
			want: nil,
		},
		{
			name: "empty page",
			html: ``,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseListings([]byte(tt.html), listingsBase)
			if len(got) != len(tt.want) {
				t.Fatalf("parseListings() returned %d listings, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseListings()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseSeriesMatches(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []seriesMatch
	}{
		{
			name: "badge marks a series",
			html: `<p><a href="/serie/99/foo">Foo</a> <span class="badge">Serie</span></p>`,
			want: []seriesMatch{{Title: "Foo", DetailURL: "https://example.com/serie/99/foo"}},
		},
		{
			name: "plain span marks a series",
			html: `<p><a href="/serie/99/foo">Foo</a> <span>Serie</span></p>`,
			want: []seriesMatch{{Title: "Foo", DetailURL: "https://example.com/serie/99/foo"}},
		},
		{
			name: "series word in text suffices",
			html: `<p><a href="/serie/99/foo">Foo</a> serie completa</p>`,
			want: []seriesMatch{{Title: "Foo", DetailURL: "https://example.com/serie/99/foo"}},
		},
		{
			name: "movie word vetoes the match",
			html: `<p><a href="/serie/99/foo">Foo</a> <span class="badge">Serie</span> pelicula</p>`,
			want: nil,
		},
		{
			name: "movie link is ignored",
			html: `<p><a href="/pelicula/7/bar">Bar</a> <span>Serie</span></p>`,
			want: nil,
		},
		{
			name: "paragraph without series hint is ignored",
			html: `<p><a href="/serie/99/foo">Foo</a> <span>Estreno</span></p>`,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSeriesMatches([]byte(tt.html), listingsBase)
			if len(got) != len(tt.want) {
				t.Fatalf("parseSeriesMatches() returned %d matches, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("parseSeriesMatches()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParseDetailContentID(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantID    string
		wantTabla string
		wantOK    bool
	}{
		{
			name:      "marker with table",
			html:      `<button class="protected-download" data-content-id="123" data-tabla="series">Descargar</button>`,
			wantID:    "123",
			wantTabla: "series",
			wantOK:    true,
		},
		{
			name:      "marker without table",
			html:      `<a class="protected-download" data-content-id="55">Descargar</a>`,
			wantID:    "55",
			wantTabla: "",
			wantOK:    true,
		},
		{
			name:   "marker without content id",
			html:   `<button class="protected-download" data-tabla="series">Descargar</button>`,
			wantOK: false,
		},
		{
			name:   "no marker",
			html:   `<p>nothing here</p>`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, tabla, ok := parseDetailContentID([]byte(tt.html))
			if ok != tt.wantOK {
				t.Fatalf("parseDetailContentID() ok = %v, want %v", ok, tt.wantOK)
			}
			if id != tt.wantID || tabla != tt.wantTabla {
				t.Errorf("parseDetailContentID() = (%q, %q), want (%q, %q)", id, tabla, tt.wantID, tt.wantTabla)
			}
		})
	}
}

func TestParseSeriesContext(t *testing.T) {
	tests := []struct {
		name        string
		html        string
		wantName    string
		wantSeason  *int
		wantQuality string
	}{
		{
			name:       "season heading",
			html:       `<h2>Breaking Bad - 3ª Temporada</h2>`,
			wantName:   "Breaking Bad",
			wantSeason: intPtr(3),
		},
		{
			name:        "quality from format paragraph",
			html:        `<h2>Foo - 1ª Temporada</h2><p>Format: HDTV 720p</p>`,
			wantName:    "Foo",
			wantSeason:  intPtr(1),
			wantQuality: "HDTV",
		},
		{
			name:     "page title fallback",
			html:     `<title>Descargar Foo Torrent</title><h2>Enlaces</h2>`,
			wantName: "Foo",
		},
		{
			name:     "second heading fallback",
			html:     `<h2>Enlaces</h2><h2>Foo - Capítulos</h2>`,
			wantName: "Foo",
		},
		{
			name:     "placeholder when nothing matches",
			html:     `<p>bare page</p>`,
			wantName: "Serie",
		},
		{
			name:       "first season heading wins over order of other headings",
			html:       `<h2>Enlaces</h2><h2>Bar - 2ª Temporada</h2>`,
			wantName:   "Bar",
			wantSeason: intPtr(2),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(tt.html)))
			if err != nil {
				t.Fatalf("NewDocumentFromReader() error = %v", err)
			}

			got := parseSeriesContext(doc)
			if got.Name != tt.wantName {
				t.Errorf("parseSeriesContext() Name = %q, want %q", got.Name, tt.wantName)
			}
			if !intPtrEqual(got.Season, tt.wantSeason) {
				t.Errorf("parseSeriesContext() Season = %v, want %v", intPtrString(got.Season), intPtrString(tt.wantSeason))
			}
			if got.Quality != tt.wantQuality {
				t.Errorf("parseSeriesContext() Quality = %q, want %q", got.Quality, tt.wantQuality)
			}
		})
	}
}

func TestParseEpisodeTable(t *testing.T) {
	html := `
<table>
  <tr><th>Episodio</th><th>Enlace</th><th>Fecha</th></tr>
  <tr>
    <td>3x01 - Piloto</td>
    <td><button class="protected-download" data-content-id="100" data-tabla="series">DL</button></td>
    <td>2024-05-01</td>
  </tr>
  <tr>
    <td>3x02 - Segundo</td>
    <td><button class="protected-download" data-content-id="101">DL</button></td>
    <td>not a date</td>
  </tr>
  <tr>
    <td>3x03 - Sin enlace</td>
    <td>pendiente</td>
    <td>2024-05-15</td>
  </tr>
  <tr><td>celda suelta</td></tr>
</table>
<table>
  <tr><th>otro</th></tr>
  <tr><td>9x09</td><td><button class="protected-download" data-content-id="999">DL</button></td></tr>
</table>`

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() error = %v", err)
	}

	rows := parseEpisodeTable(doc)
	if len(rows) != 2 {
		t.Fatalf("parseEpisodeTable() returned %d rows, want 2", len(rows))
	}

	first := rows[0]
	if first.Label != "3x01 - Piloto" || first.ContentID != "100" || first.TableKey != "series" {
		t.Errorf("parseEpisodeTable()[0] = %+v, want label 3x01 - Piloto id 100 tabla series", first)
	}
	wantDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if first.Date == nil || !first.Date.Equal(wantDate) {
		t.Errorf("parseEpisodeTable()[0].Date = %v, want %v", first.Date, wantDate)
	}

	second := rows[1]
	if second.Label != "3x02 - Segundo" || second.ContentID != "101" {
		t.Errorf("parseEpisodeTable()[1] = %+v, want label 3x02 - Segundo id 101", second)
	}
	if second.TableKey != "series" {
		t.Errorf("parseEpisodeTable()[1].TableKey = %q, want default series", second.TableKey)
	}
	if second.Date != nil {
		t.Errorf("parseEpisodeTable()[1].Date = %v, want nil", second.Date)
	}
}

func TestParseEpisodeTableHeaderOnly(t *testing.T) {
	html := `<table><tr><th>Episodio</th><th>Enlace</th></tr></table>`

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatalf("NewDocumentFromReader() error = %v", err)
	}

	if rows := parseEpisodeTable(doc); rows != nil {
		t.Errorf("parseEpisodeTable() = %v, want nil", rows)
	}
}

func TestQualityBetweenParens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "simple", text: "Foo (HDTV) Serie", want: "HDTV"},
		{name: "first pair wins", text: "Foo (A) (B)", want: "A"},
		{name: "missing close", text: "Foo (HDTV", want: ""},
		{name: "missing open", text: "Foo HDTV)", want: ""},
		{name: "reversed", text: "Foo )HDTV(", want: ""},
		{name: "empty pair", text: "Foo ()", want: ""},
		{name: "not trimmed", text: "Foo ( HDTV )", want: " HDTV "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qualityBetweenParens(tt.text); got != tt.want {
				t.Errorf("qualityBetweenParens(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func intPtr(n int) *int { return &n }

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func intPtrString(p *int) string {
	if p == nil {
		return "<nil>"
	}
	return strconv.Itoa(*p)
}
