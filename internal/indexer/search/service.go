// Package search fans keyword queries out to every enabled indexer and
// merges the answers into one response.
package search

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/sabueso/sabueso/internal/database"
	"github.com/sabueso/sabueso/internal/indexer"
	"github.com/sabueso/sabueso/internal/indexer/types"
	"github.com/sabueso/sabueso/internal/metrics"
)

// perIndexerTimeout bounds how long one site may take before its part
// of the fan-out is abandoned.
const perIndexerTimeout = 30 * time.Second

// Provider supplies the indexers a search fans out to and receives
// their outcomes for health tracking. *registry.Service satisfies it.
type Provider interface {
	// Enabled returns the enabled indexers in registration order.
	Enabled() []indexer.Indexer
	// RecordOutcome feeds one indexer's search outcome into health
	// tracking.
	RecordOutcome(ctx context.Context, idx indexer.Indexer, err error)
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Result is the merged outcome of one aggregated search.
type Result struct {
	SearchID     string
	Releases     []types.Release
	Errors       map[string]string
	IndexersUsed []string
}

// Service runs aggregated searches across all enabled indexers.
type Service struct {
	provider      Provider
	maxConcurrent int
	store         *database.Store
	hub           Broadcaster
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewService creates a search service. maxConcurrent bounds how many
// indexers are queried at once.
func NewService(provider Provider, maxConcurrent int, logger zerolog.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Service{
		provider:      provider,
		maxConcurrent: maxConcurrent,
		logger:        logger.With().Str("component", "search").Logger(),
	}
}

// SetStore sets the store used to record search history.
func (s *Service) SetStore(store *database.Store) {
	s.store = store
}

// SetHub sets the broadcaster used for search events.
func (s *Service) SetHub(hub Broadcaster) {
	s.hub = hub
}

// SetMetrics sets the metrics collection.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// searchOutcome is one indexer's contribution to a fan-out, indexed by
// the indexer's position in the dispatch order.
type searchOutcome struct {
	releases []types.Release
	err      error
}

// Search queries every enabled indexer in parallel and merges the
// results in registration order. Individual indexer failures do not
// fail the search; they are collected into Result.Errors keyed by
// indexer ID.
func (s *Service) Search(ctx context.Context, query string) (*Result, error) {
	var idxs []indexer.Indexer
	for _, idx := range s.provider.Enabled() {
		if idx.Capabilities().SupportsSearch {
			idxs = append(idxs, idx)
		}
	}

	ids := make([]string, len(idxs))
	for i, idx := range idxs {
		ids[i] = idx.ID()
	}

	searchID := uuid.NewString()
	s.broadcast(indexer.EventSearchStarted, indexer.SearchStartedPayload{
		SearchID: searchID,
		Query:    query,
		Type:     "search",
		Indexers: ids,
	})

	s.logger.Info().
		Str("searchId", searchID).
		Str("query", query).
		Int("indexers", len(idxs)).
		Msg("starting aggregated search")

	start := time.Now()
	outcomes := make([]searchOutcome, len(idxs))

	p := pool.New().
		WithMaxGoroutines(s.maxConcurrent).
		WithContext(ctx)
	for i, idx := range idxs {
		i, idx := i, idx
		p.Go(func(c context.Context) error {
			sctx, cancel := context.WithTimeout(c, perIndexerTimeout)
			defer cancel()

			releases, err := idx.Search(sctx, query)
			s.provider.RecordOutcome(sctx, idx, err)
			outcomes[i] = searchOutcome{releases: releases, err: err}
			return nil
		})
	}
	// Workers never return an error; failures ride in outcomes.
	_ = p.Wait()

	var releases []types.Release
	searchErrors := make(map[string]string)
	for i, idx := range idxs {
		if outcomes[i].err != nil {
			searchErrors[idx.ID()] = outcomes[i].err.Error()
			s.logger.Warn().
				Err(outcomes[i].err).
				Str("indexer", idx.ID()).
				Msg("indexer search failed")
			continue
		}
		releases = append(releases, outcomes[i].releases...)
	}

	elapsed := time.Since(start)
	s.recordHistory(ctx, searchID, query, ids, len(releases), elapsed, searchErrors)
	s.observe(len(releases), elapsed)

	s.broadcast(indexer.EventSearchCompleted, indexer.SearchCompletedPayload{
		SearchID:     searchID,
		Query:        query,
		Type:         "search",
		TotalResults: len(releases),
		IndexersUsed: len(idxs),
		Errors:       flattenErrors(searchErrors),
		ElapsedMs:    elapsed.Milliseconds(),
	})

	s.logger.Info().
		Str("searchId", searchID).
		Str("query", query).
		Int("results", len(releases)).
		Int("failed", len(searchErrors)).
		Dur("elapsed", elapsed).
		Msg("aggregated search completed")

	return &Result{
		SearchID:     searchID,
		Releases:     releases,
		Errors:       searchErrors,
		IndexersUsed: ids,
	}, nil
}

func (s *Service) recordHistory(ctx context.Context, searchID, query string, ids []string, resultCount int, elapsed time.Duration, searchErrors map[string]string) {
	if s.store == nil {
		return
	}

	rec := database.SearchRecord{
		SearchID:    searchID,
		Query:       query,
		Kind:        "search",
		Indexers:    strings.Join(ids, ","),
		ResultCount: resultCount,
		DurationMS:  elapsed.Milliseconds(),
	}
	if len(searchErrors) > 0 {
		if encoded, err := json.Marshal(searchErrors); err == nil {
			rec.Errors = string(encoded)
		}
	}
	if err := s.store.InsertSearch(ctx, rec); err != nil {
		s.logger.Debug().Err(err).Msg("failed to record search")
	}
}

func (s *Service) observe(resultCount int, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchesTotal.WithLabelValues("search").Inc()
	s.metrics.SearchDuration.WithLabelValues("search").Observe(elapsed.Seconds())
	s.metrics.SearchResults.WithLabelValues("search").Observe(float64(resultCount))
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Debug().Err(err).Str("event", msgType).Msg("failed to broadcast event")
	}
}

// flattenErrors renders an error map as sorted "id: message" lines for
// event payloads.
func flattenErrors(searchErrors map[string]string) []string {
	if len(searchErrors) == 0 {
		return nil
	}
	lines := make([]string, 0, len(searchErrors))
	for id, msg := range searchErrors {
		lines = append(lines, id+": "+msg)
	}
	sort.Strings(lines)
	return lines
}
