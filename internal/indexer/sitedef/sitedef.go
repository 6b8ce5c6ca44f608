// Package sitedef loads the embedded definition files describing the
// indexer sites this service knows how to scrape. A definition carries
// the declarative metadata of a site: identity, mirror links, search
// modes and category mappings. Scraping behavior itself lives in the
// per-site packages; keeping the metadata in data files means mirrors
// and category tables can change without touching scraper code.
package sitedef

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

//go:embed definitions/*.yaml
var definitionFS embed.FS

// Definition describes one indexer site.
type Definition struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Language    string   `yaml:"language"`
	Type        string   `yaml:"type"` // public, private, semi-private
	Download    bool     `yaml:"download"`
	Links       []string `yaml:"links"`

	Caps Caps `yaml:"caps"`
}

// Caps describes the search modes and category mappings of a site.
type Caps struct {
	Modes            map[string][]string `yaml:"modes"` // search, tv-search, movie-search -> supported params
	CategoryMappings []CategoryMapping   `yaml:"categorymappings"`
}

// CategoryMapping maps a site-side category label to a Newznab category.
type CategoryMapping struct {
	ID   string `yaml:"id"`   // label as the site prints it
	Cat  int    `yaml:"cat"`  // Newznab numeric category
	Desc string `yaml:"desc"` // name advertised in caps
}

var (
	loadOnce sync.Once
	loaded   map[string]Definition
	loadErr  error
)

func load() {
	entries, err := definitionFS.ReadDir("definitions")
	if err != nil {
		loadErr = fmt.Errorf("failed to read embedded definitions: %w", err)
		return
	}

	defs := make(map[string]Definition, len(entries))
	for _, entry := range entries {
		data, err := definitionFS.ReadFile("definitions/" + entry.Name())
		if err != nil {
			loadErr = fmt.Errorf("failed to read definition %s: %w", entry.Name(), err)
			return
		}

		var def Definition
		if err := yaml.Unmarshal(data, &def); err != nil {
			loadErr = fmt.Errorf("failed to parse definition %s: %w", entry.Name(), err)
			return
		}
		if err := def.validate(); err != nil {
			loadErr = fmt.Errorf("invalid definition %s: %w", entry.Name(), err)
			return
		}

		defs[def.ID] = def
	}

	loaded = defs
}

func (d Definition) validate() error {
	if d.ID == "" {
		return fmt.Errorf("missing id")
	}
	if d.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(d.Links) == 0 {
		return fmt.Errorf("missing links")
	}
	return nil
}

// Get returns the definition with the given id.
func Get(id string) (Definition, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return Definition{}, loadErr
	}

	def, ok := loaded[id]
	if !ok {
		return Definition{}, fmt.Errorf("unknown site definition: %s", id)
	}
	return def, nil
}

// All returns every embedded definition, sorted by id.
func All() ([]Definition, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}

	defs := make([]Definition, 0, len(loaded))
	for _, def := range loaded {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs, nil
}

// PrimaryLink returns the first mirror link, used as the site domain
// when no override is configured.
func (d Definition) PrimaryLink() string {
	return d.Links[0]
}

// Capabilities converts the declarative caps block into the runtime
// capability set.
func (d Definition) Capabilities() types.Capabilities {
	caps := types.Capabilities{
		SupportsDownload: d.Download,
	}

	if params, ok := d.Caps.Modes["search"]; ok {
		caps.SupportsSearch = true
		caps.SearchParams = params
	}
	if params, ok := d.Caps.Modes["tv-search"]; ok {
		caps.SupportsTV = true
		caps.TvSearchParams = params
	}
	if params, ok := d.Caps.Modes["movie-search"]; ok {
		caps.SupportsMovies = true
		caps.MovieSearchParams = params
	}

	seen := make(map[int]bool)
	for _, m := range d.Caps.CategoryMappings {
		if seen[m.Cat] {
			continue
		}
		seen[m.Cat] = true
		caps.Categories = append(caps.Categories, m.Cat)
	}

	return caps
}

// CategoryNames returns the caps display name for each distinct Newznab
// category, keyed by category id.
func (d Definition) CategoryNames() map[int]string {
	names := make(map[int]string, len(d.Caps.CategoryMappings))
	for _, m := range d.Caps.CategoryMappings {
		if _, ok := names[m.Cat]; !ok {
			names[m.Cat] = m.Desc
		}
	}
	return names
}
