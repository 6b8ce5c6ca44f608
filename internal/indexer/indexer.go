// Package indexer provides the indexer registry and the capability
// interfaces concrete site clients implement.
package indexer

import (
	"context"

	"github.com/sabueso/sabueso/internal/indexer/types"
)

// Indexer is the interface all site clients implement.
type Indexer interface {
	// ID returns the registry identifier, e.g. "dontorrent".
	ID() string
	// Name returns the display name, e.g. "DonTorrent".
	Name() string
	// Domain returns the site base URL in use.
	Domain() string
	// Capabilities describes the supported search modes and categories.
	Capabilities() types.Capabilities
	// Test checks connectivity to the site.
	Test(ctx context.Context) error
	// Search runs a keyword search and returns normalized results.
	// Page-structure variance yields an empty slice, not an error.
	Search(ctx context.Context, query string) ([]types.Release, error)
}

// EpisodeSearcher is implemented by indexers that can enumerate the
// episode tables of series detail pages.
type EpisodeSearcher interface {
	SearchEpisodes(ctx context.Context, series string, season, episode *int) ([]types.Release, error)
}

// DownloadResolver is implemented by indexers that can turn a search
// result into a final download URL.
type DownloadResolver interface {
	ResolveDownload(ctx context.Context, req types.ResolveRequest) (string, error)
}
