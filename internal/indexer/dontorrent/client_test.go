package dontorrent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/indexer"
	"github.com/sabueso/sabueso/internal/indexer/types"
)

func newTestClient(t *testing.T, domain string, difficulty int) *Client {
	t.Helper()

	logger := zerolog.Nop()
	c, err := New(Config{Domain: domain, Timeout: 5, Difficulty: difficulty, Logger: &logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewDefaults(t *testing.T) {
	logger := zerolog.Nop()
	c, err := New(Config{Logger: &logger})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if c.ID() != "dontorrent" {
		t.Errorf("ID() = %q, want dontorrent", c.ID())
	}
	if c.Name() != "DonTorrent" {
		t.Errorf("Name() = %q, want DonTorrent", c.Name())
	}
	if c.Domain() != "https://dontorrent.li" {
		t.Errorf("Domain() = %q, want definition primary link", c.Domain())
	}

	caps := c.Capabilities()
	if !caps.SupportsSearch || !caps.SupportsTV || !caps.SupportsDownload {
		t.Errorf("Capabilities() = %+v, want search, tv and download support", caps)
	}
}

func TestClientSearch(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/buscar" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if ua := r.Header.Get("User-Agent"); ua != userAgent {
			t.Errorf("User-Agent = %q, want %q", ua, userAgent)
		}
		gotQuery = r.FormValue("valor")
		fmt.Fprint(w, `<p><a href="/pelicula/7/bar">Bar</a> (BluRay-1080p) <span>Película</span></p>
<p><a href="/serie/42/foo">Foo</a> (HDTV-720p) <span>Serie</span></p>`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	releases, err := c.Search(context.Background(), "matrix")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotQuery != "matrix" {
		t.Errorf("search form valor = %q, want matrix", gotQuery)
	}
	if len(releases) != 2 {
		t.Fatalf("Search() returned %d releases, want 2", len(releases))
	}
	if releases[0].Title != "Bar [BluRay-1080p]" {
		t.Errorf("Search()[0].Title = %q, want %q", releases[0].Title, "Bar [BluRay-1080p]")
	}
	if releases[0].Category != "Movies" {
		t.Errorf("Search()[0].Category = %q, want Movies", releases[0].Category)
	}
	if releases[1].GUID != "dontorrent-42" {
		t.Errorf("Search()[1].GUID = %q, want dontorrent-42", releases[1].GUID)
	}
	if releases[1].DetailsURL != srv.URL+"/serie/42/foo" {
		t.Errorf("Search()[1].DetailsURL = %q, want %q", releases[1].DetailsURL, srv.URL+"/serie/42/foo")
	}
}

func TestClientSearchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.Search(context.Background(), "matrix")
	if !errors.Is(err, indexer.ErrTransport) {
		t.Errorf("Search() error = %v, want transport error", err)
	}
}

func TestClientSearchEmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>Sin resultados</p></body></html>`)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	releases, err := c.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(releases) != 0 {
		t.Errorf("Search() returned %d releases, want 0", len(releases))
	}
}

const seriesDetailPage = `
<h2>Foo - 2ª Temporada</h2>
<p>Format: HDTV</p>
<table>
  <tr><th>Episodio</th><th>Enlace</th><th>Fecha</th></tr>
  <tr><td>2x01 - Piloto</td><td><button class="protected-download" data-content-id="100" data-tabla="series">DL</button></td><td>2024-05-01</td></tr>
  <tr><td>2x02 - Segundo</td><td><button class="protected-download" data-content-id="101" data-tabla="series">DL</button></td><td>2024-05-08</td></tr>
  <tr><td>2x01 al 2x10</td><td><button class="protected-download" data-content-id="102" data-tabla="series">DL</button></td><td>2024-06-01</td></tr>
</table>`

func TestClientSearchEpisodes(t *testing.T) {
	var gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("/buscar", func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.FormValue("valor")
		fmt.Fprint(w, `<p><a href="/serie/99/foo">Foo</a> <span class="badge">Serie</span></p>`)
	})
	mux.HandleFunc("/serie/99/foo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, seriesDetailPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)

	t.Run("season search returns the pack", func(t *testing.T) {
		releases, err := c.SearchEpisodes(context.Background(), "Foo", intPtr(2), nil)
		if err != nil {
			t.Fatalf("SearchEpisodes() error = %v", err)
		}

		if gotQuery != "Foo - 2ª Temporada" {
			t.Errorf("search form valor = %q, want %q", gotQuery, "Foo - 2ª Temporada")
		}
		if len(releases) != 1 {
			t.Fatalf("SearchEpisodes() returned %d releases, want 1", len(releases))
		}
		if releases[0].Title != "Foo - Temporada 2 Completa [HDTV]" {
			t.Errorf("SearchEpisodes()[0].Title = %q, want pack title", releases[0].Title)
		}
		if releases[0].Episode != nil {
			t.Errorf("SearchEpisodes()[0].Episode = %v, want nil", *releases[0].Episode)
		}
	})

	t.Run("episode search returns the matching episode", func(t *testing.T) {
		releases, err := c.SearchEpisodes(context.Background(), "Foo", intPtr(2), intPtr(1))
		if err != nil {
			t.Fatalf("SearchEpisodes() error = %v", err)
		}

		if len(releases) != 1 {
			t.Fatalf("SearchEpisodes() returned %d releases, want 1", len(releases))
		}
		if releases[0].Title != "Foo S02E01 [HDTV]" {
			t.Errorf("SearchEpisodes()[0].Title = %q, want episode title", releases[0].Title)
		}
		if !strings.Contains(releases[0].DownloadLink, "episode_id=100") {
			t.Errorf("SearchEpisodes()[0].DownloadLink = %q, want episode_id=100", releases[0].DownloadLink)
		}
	})

	t.Run("season mismatch filters everything", func(t *testing.T) {
		releases, err := c.SearchEpisodes(context.Background(), "Foo", intPtr(3), nil)
		if err != nil {
			t.Fatalf("SearchEpisodes() error = %v", err)
		}
		if len(releases) != 0 {
			t.Errorf("SearchEpisodes() returned %d releases, want 0", len(releases))
		}
	})
}

func TestClientSearchEpisodesSkipsDeadDetail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/buscar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p><a href="/serie/1/dead">Dead</a> <span>Serie</span></p>
<p><a href="/serie/99/foo">Foo</a> <span>Serie</span></p>`)
	})
	mux.HandleFunc("/serie/1/dead", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusInternalServerError)
	})
	mux.HandleFunc("/serie/99/foo", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, seriesDetailPage)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	releases, err := c.SearchEpisodes(context.Background(), "Foo", intPtr(2), nil)
	if err != nil {
		t.Fatalf("SearchEpisodes() error = %v", err)
	}
	if len(releases) != 1 {
		t.Errorf("SearchEpisodes() returned %d releases, want 1 from the reachable series", len(releases))
	}
}

// powHandler implements the download gate for tests: it hands out a
// fixed challenge and accepts any nonce whose digest clears difficulty 1.
func powHandler(t *testing.T, token string, wantContentID int, wantTabla string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("pow request decode error = %v", err)
			return
		}

		switch req["action"] {
		case "generate":
			if id, ok := req["content_id"].(float64); !ok || int(id) != wantContentID {
				t.Errorf("generate content_id = %v, want %d", req["content_id"], wantContentID)
			}
			if req["tabla"] != wantTabla {
				t.Errorf("generate tabla = %v, want %q", req["tabla"], wantTabla)
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "challenge": token})
		case "validate":
			if req["challenge"] != token {
				t.Errorf("validate challenge = %v, want %q", req["challenge"], token)
			}
			nonce := int(req["nonce"].(float64))
			sum := sha256.Sum256([]byte(token + strconv.Itoa(nonce)))
			if !strings.HasPrefix(hex.EncodeToString(sum[:]), "0") {
				json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "invalid nonce"})
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "download_url": "https://cdn.example.com/file.torrent"})
		default:
			t.Errorf("unexpected pow action %v", req["action"])
		}
	}
}

func TestClientResolveDownload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pelicula/7/bar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<button class="protected-download" data-content-id="7" data-tabla="peliculas">DL</button>`)
	})
	mux.HandleFunc("/api_validate_pow.php", powHandler(t, "challenge-token", 7, "peliculas"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	got, err := c.ResolveDownload(context.Background(), types.ResolveRequest{DetailURL: srv.URL + "/pelicula/7/bar"})
	if err != nil {
		t.Fatalf("ResolveDownload() error = %v", err)
	}
	if got != "https://cdn.example.com/file.torrent" {
		t.Errorf("ResolveDownload() = %q, want the gate's download url", got)
	}
}

func TestClientResolveDownloadDirectEpisode(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api_validate_pow.php", powHandler(t, "challenge-token", 55, "series"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	got, err := c.ResolveDownload(context.Background(), types.ResolveRequest{EpisodeContentID: "55", TableHint: "series"})
	if err != nil {
		t.Fatalf("ResolveDownload() error = %v", err)
	}
	if got != "https://cdn.example.com/file.torrent" {
		t.Errorf("ResolveDownload() = %q, want the gate's download url", got)
	}
}

func TestClientResolveDownloadNoMarker(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/pelicula/7/bar", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>no download here</p>`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.ResolveDownload(context.Background(), types.ResolveRequest{DetailURL: srv.URL + "/pelicula/7/bar"})
	if !errors.Is(err, indexer.ErrContract) {
		t.Fatalf("ResolveDownload() error = %v, want contract violation", err)
	}

	var ierr *indexer.IndexerError
	if !errors.As(err, &ierr) || ierr.Stage != "detail" {
		t.Errorf("ResolveDownload() error stage = %v, want detail", err)
	}
}

func TestClientResolveDownloadRejectedNonce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api_validate_pow.php", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("pow request decode error = %v", err)
			return
		}
		if req["action"] == "generate" {
			json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "challenge": "tok"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "invalid nonce"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.ResolveDownload(context.Background(), types.ResolveRequest{EpisodeContentID: "55", TableHint: "series"})
	if !errors.Is(err, indexer.ErrPuzzle) {
		t.Fatalf("ResolveDownload() error = %v, want puzzle rejection", err)
	}

	var ierr *indexer.IndexerError
	if !errors.As(err, &ierr) {
		t.Fatalf("ResolveDownload() error = %v, want IndexerError", err)
	}
	if ierr.Stage != "validate" || ierr.Message != "invalid nonce" {
		t.Errorf("ResolveDownload() error = %+v, want validate stage with server reason", ierr)
	}
}

func TestClientResolveDownloadNonNumericID(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", 1)
	_, err := c.ResolveDownload(context.Background(), types.ResolveRequest{EpisodeContentID: "abc"})
	if !errors.Is(err, indexer.ErrContract) {
		t.Errorf("ResolveDownload() error = %v, want contract violation", err)
	}
}

func TestClientTest(t *testing.T) {
	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>home</html>")
	}))
	defer okSrv.Close()

	if err := newTestClient(t, okSrv.URL, 1).Test(context.Background()); err != nil {
		t.Errorf("Test() error = %v, want nil", err)
	}

	downSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer downSrv.Close()

	err := newTestClient(t, downSrv.URL, 1).Test(context.Background())
	if !errors.Is(err, indexer.ErrTransport) {
		t.Errorf("Test() error = %v, want transport error", err)
	}
}
