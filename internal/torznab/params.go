package torznab

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// Parameter sets of the search endpoints, pre-sorted for the
// valid_params field of rejection responses.
var (
	ValidSearchParams   = []string{"cat", "limit", "offset", "q", "t"}
	ValidTVSearchParams = []string{"ep", "imdbid", "q", "rid", "season", "tvdbid"}
)

// UnsupportedParams returns the query parameters outside the valid
// set, sorted.
func UnsupportedParams(params url.Values, valid []string) []string {
	allowed := make(map[string]bool, len(valid))
	for _, p := range valid {
		allowed[p] = true
	}

	var invalid []string
	for name := range params {
		if !allowed[name] {
			invalid = append(invalid, name)
		}
	}
	sort.Strings(invalid)
	return invalid
}

// ParseNumber parses a numeric query value, anything not purely digits
// counting as absent.
func ParseNumber(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

// PageReleases applies limit and offset paging.
func PageReleases(releases []types.Release, limit, offset *int) []types.Release {
	if offset != nil {
		if *offset >= len(releases) {
			return nil
		}
		releases = releases[*offset:]
	}
	if limit != nil && *limit < len(releases) {
		releases = releases[:*limit]
	}
	return releases
}
