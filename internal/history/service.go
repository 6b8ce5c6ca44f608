// Package history exposes the recorded searches and download grabs.
package history

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/database"
)

// Service provides history listing and cleanup.
type Service struct {
	store  *database.Store
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(store *database.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

func clampOptions(opts ListOptions) ListOptions {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize < 1 {
		opts.PageSize = 50
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	return opts
}

func totalPages(totalCount int64, pageSize int) int {
	pages := int(totalCount) / pageSize
	if int(totalCount)%pageSize > 0 {
		pages++
	}
	return pages
}

// ListSearches lists recorded searches, newest first.
func (s *Service) ListSearches(ctx context.Context, opts ListOptions) (*SearchesResponse, error) {
	opts = clampOptions(opts)

	rows, err := s.store.ListSearches(ctx, opts.PageSize, (opts.Page-1)*opts.PageSize)
	if err != nil {
		return nil, err
	}
	totalCount, err := s.store.CountSearches(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*SearchEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, searchRecordToEntry(row))
	}

	return &SearchesResponse{
		Items:      entries,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, opts.PageSize),
	}, nil
}

// ListGrabs lists recorded download resolutions, newest first.
func (s *Service) ListGrabs(ctx context.Context, opts ListOptions) (*GrabsResponse, error) {
	opts = clampOptions(opts)

	rows, err := s.store.ListGrabs(ctx, opts.PageSize, (opts.Page-1)*opts.PageSize)
	if err != nil {
		return nil, err
	}
	totalCount, err := s.store.CountGrabs(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]*GrabEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, grabRecordToEntry(row))
	}

	return &GrabsResponse{
		Items:      entries,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalCount: totalCount,
		TotalPages: totalPages(totalCount, opts.PageSize),
	}, nil
}

// Clear deletes all history entries.
func (s *Service) Clear(ctx context.Context) error {
	return s.store.ClearHistory(ctx)
}

// Cleanup deletes history entries older than retentionDays. A
// non-positive retention disables pruning.
func (s *Service) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	removed, err := s.store.PruneHistory(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("pruned old history")
	}
	return removed, nil
}

func searchRecordToEntry(row database.SearchRecord) *SearchEntry {
	entry := &SearchEntry{
		ID:          row.ID,
		SearchID:    row.SearchID,
		Query:       row.Query,
		Kind:        row.Kind,
		ResultCount: row.ResultCount,
		DurationMS:  row.DurationMS,
		CreatedAt:   row.CreatedAt.Format(time.RFC3339),
	}
	if row.Indexers != "" {
		entry.Indexers = strings.Split(row.Indexers, ",")
	}
	if row.Errors != "" {
		var searchErrors map[string]string
		if err := json.Unmarshal([]byte(row.Errors), &searchErrors); err == nil {
			entry.Errors = searchErrors
		}
	}
	return entry
}

func grabRecordToEntry(row database.GrabRecord) *GrabEntry {
	return &GrabEntry{
		ID:          row.ID,
		IndexerID:   row.IndexerID,
		SourceURL:   row.SourceURL,
		DownloadURL: row.DownloadURL,
		Success:     row.Success,
		Error:       row.Error,
		DurationMS:  row.DurationMS,
		CreatedAt:   row.CreatedAt.Format(time.RFC3339),
	}
}
