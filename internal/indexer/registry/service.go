// Package registry builds the configured site clients and serves the
// per-indexer operations: listing, settings, connectivity tests,
// searches, and download resolution.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/config"
	"github.com/sabueso/sabueso/internal/database"
	"github.com/sabueso/sabueso/internal/indexer"
	"github.com/sabueso/sabueso/internal/indexer/dontorrent"
	"github.com/sabueso/sabueso/internal/indexer/sitedef"
	"github.com/sabueso/sabueso/internal/indexer/status"
	"github.com/sabueso/sabueso/internal/indexer/types"
	"github.com/sabueso/sabueso/internal/metrics"
)

var (
	ErrIndexerNotFound   = errors.New("indexer not found")
	ErrNoDownloadSupport = errors.New("download not supported")
)

// buildConfig carries the merged settings a client is built from.
type buildConfig struct {
	Domain     string
	Timeout    int
	Difficulty int
	Logger     *zerolog.Logger
}

// builders maps registry IDs to client constructors. Adding a site
// means adding its client package and one entry here.
var builders = map[string]func(cfg buildConfig) (indexer.Indexer, error){
	"dontorrent": func(cfg buildConfig) (indexer.Indexer, error) {
		return dontorrent.New(dontorrent.Config{
			Domain:     cfg.Domain,
			Timeout:    cfg.Timeout,
			Difficulty: cfg.Difficulty,
			Logger:     cfg.Logger,
		})
	},
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// entry is one registered indexer with its runtime state. The domain
// override is tracked separately from the client so rebuilds without
// an override fall back to the site definition again.
type entry struct {
	client         indexer.Indexer
	enabled        bool
	fileCfg        config.IndexerConfig
	domainOverride string
}

// Summary is one row of the indexer listing.
type Summary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Enabled bool   `json:"enabled"`
}

// Service owns the built indexer clients and their persisted settings.
type Service struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string

	store     *database.Store
	statusSvc *status.Service
	hub       Broadcaster
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// NewService builds the clients for every indexer that has a site
// definition and a configuration block, applying persisted overrides
// on top of the file configuration.
func NewService(cfg *config.Config, store *database.Store, statusSvc *status.Service, logger zerolog.Logger) (*Service, error) {
	subLogger := logger.With().Str("component", "indexer-registry").Logger()

	s := &Service{
		entries:   make(map[string]*entry),
		store:     store,
		statusSvc: statusSvc,
		logger:    subLogger,
	}

	defs, err := sitedef.All()
	if err != nil {
		return nil, fmt.Errorf("failed to load site definitions: %w", err)
	}

	saved := make(map[string]database.IndexerSettings)
	if store != nil {
		rows, err := store.ListIndexerSettings(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to load indexer settings: %w", err)
		}
		for _, row := range rows {
			saved[row.IndexerID] = row
		}
	}

	for _, def := range defs {
		fileCfg, ok := cfg.Indexers[def.ID]
		if !ok {
			continue
		}

		build, ok := builders[def.ID]
		if !ok {
			subLogger.Warn().Str("indexer", def.ID).Msg("no client implemented for configured indexer")
			continue
		}

		e := &entry{enabled: fileCfg.Enabled, fileCfg: fileCfg}
		if row, ok := saved[def.ID]; ok {
			e.enabled = row.Enabled
			e.domainOverride = row.Domain
		}

		client, err := build(buildConfig{
			Domain:     e.domain(),
			Timeout:    fileCfg.Timeout,
			Difficulty: fileCfg.Difficulty,
			Logger:     &subLogger,
		})
		if err != nil {
			subLogger.Error().Err(err).Str("indexer", def.ID).Msg("failed to build indexer client")
			continue
		}
		e.client = client

		s.entries[def.ID] = e
		s.order = append(s.order, def.ID)
		subLogger.Info().
			Str("indexer", def.ID).
			Str("domain", client.Domain()).
			Bool("enabled", e.enabled).
			Msg("indexer loaded")
	}

	return s, nil
}

// domain returns the effective domain override for a rebuild, the
// persisted one winning over the file one.
func (e *entry) domain() string {
	if e.domainOverride != "" {
		return e.domainOverride
	}
	return e.fileCfg.Domain
}

// SetHub sets the broadcaster used for grab events.
func (s *Service) SetHub(hub Broadcaster) {
	s.hub = hub
}

// SetMetrics sets the collectors for grab and failure instrumentation.
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// List returns all registered indexers in definition order.
func (s *Service) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.order))
	for _, id := range s.order {
		e := s.entries[id]
		summaries = append(summaries, Summary{
			ID:      id,
			Name:    e.client.Name(),
			Domain:  e.client.Domain(),
			Enabled: e.enabled,
		})
	}
	return summaries
}

// Lookup returns the summary for any registered indexer, enabled or
// not.
func (s *Service) Lookup(id string) (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Summary{}, false
	}
	return Summary{ID: id, Name: e.client.Name(), Domain: e.client.Domain(), Enabled: e.enabled}, true
}

// Get returns an enabled indexer by ID.
func (s *Service) Get(id string) (indexer.Indexer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok || !e.enabled {
		return nil, false
	}
	return e.client, true
}

// Enabled returns all enabled indexers in definition order.
func (s *Service) Enabled() []indexer.Indexer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clients []indexer.Indexer
	for _, id := range s.order {
		if e := s.entries[id]; e.enabled {
			clients = append(clients, e.client)
		}
	}
	return clients
}

// EnabledIDs returns the IDs of all enabled indexers.
func (s *Service) EnabledIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.order))
	for _, id := range s.order {
		if s.entries[id].enabled {
			ids = append(ids, id)
		}
	}
	return ids
}

// TestAll checks connectivity to every enabled indexer and records the
// outcomes for health tracking.
func (s *Service) TestAll(ctx context.Context) map[string]types.TestResult {
	results := make(map[string]types.TestResult)

	for _, idx := range s.Enabled() {
		if err := idx.Test(ctx); err != nil {
			results[idx.ID()] = types.TestResult{Status: "error", Error: err.Error()}
			s.recordFailure(ctx, idx, err)
			continue
		}
		results[idx.ID()] = types.TestResult{Status: "ok", Domain: idx.Domain()}
		s.recordSuccess(ctx, idx)
	}

	return results
}

// RecordOutcome notes a search or grab result for health tracking.
// Only transport-level failures count against an indexer; parse gaps
// and contract violations say nothing about connectivity.
func (s *Service) RecordOutcome(ctx context.Context, idx indexer.Indexer, err error) {
	if err != nil && s.metrics != nil {
		s.metrics.IndexerFailures.WithLabelValues(idx.ID()).Inc()
	}

	switch {
	case err == nil:
		s.recordSuccess(ctx, idx)
	case errors.Is(err, indexer.ErrTransport):
		s.recordFailure(ctx, idx, err)
	}
}

func (s *Service) recordSuccess(ctx context.Context, idx indexer.Indexer) {
	if s.statusSvc == nil {
		return
	}
	if err := s.statusSvc.RecordSuccess(ctx, idx.ID(), idx.Name()); err != nil {
		s.logger.Debug().Err(err).Str("indexer", idx.ID()).Msg("failed to record success")
	}
}

func (s *Service) recordFailure(ctx context.Context, idx indexer.Indexer, opErr error) {
	if s.statusSvc == nil {
		return
	}
	if err := s.statusSvc.RecordFailure(ctx, idx.ID(), idx.Name(), opErr); err != nil {
		s.logger.Debug().Err(err).Str("indexer", idx.ID()).Msg("failed to record failure")
	}
}

// UpdateSettingsInput is the input for updating indexer settings.
// Absent fields keep their current value.
type UpdateSettingsInput struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Domain  *string `json:"domain,omitempty"`
}

// UpdateSettings persists new settings for an indexer and rebuilds its
// client when the domain changed.
func (s *Service) UpdateSettings(ctx context.Context, id string, input UpdateSettingsInput) (Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Summary{}, ErrIndexerNotFound
	}

	enabled := e.enabled
	if input.Enabled != nil {
		enabled = *input.Enabled
	}
	override := e.domainOverride
	if input.Domain != nil {
		override = *input.Domain
	}

	if override != e.domainOverride {
		subLogger := s.logger
		client, err := builders[id](buildConfig{
			Domain:     pickDomain(override, e.fileCfg.Domain),
			Timeout:    e.fileCfg.Timeout,
			Difficulty: e.fileCfg.Difficulty,
			Logger:     &subLogger,
		})
		if err != nil {
			return Summary{}, fmt.Errorf("failed to rebuild indexer client: %w", err)
		}
		e.client = client
	}

	if s.store != nil {
		settings := database.IndexerSettings{IndexerID: id, Enabled: enabled, Domain: override}
		if err := s.store.UpsertIndexerSettings(ctx, settings); err != nil {
			return Summary{}, err
		}
	}

	e.enabled = enabled
	e.domainOverride = override

	s.logger.Info().
		Str("indexer", id).
		Bool("enabled", enabled).
		Str("domain", e.client.Domain()).
		Msg("indexer settings updated")

	return Summary{ID: id, Name: e.client.Name(), Domain: e.client.Domain(), Enabled: enabled}, nil
}

func pickDomain(override, fileDomain string) string {
	if override != "" {
		return override
	}
	return fileDomain
}

// Grab resolves the final download URL for a result, recording the
// attempt in the grab history and emitting progress events.
func (s *Service) Grab(ctx context.Context, idx indexer.Indexer, req types.ResolveRequest) (string, error) {
	resolver, ok := idx.(indexer.DownloadResolver)
	if !ok {
		return "", ErrNoDownloadSupport
	}

	s.broadcast(indexer.EventGrabStarted, indexer.GrabStartedPayload{
		IndexerID: idx.ID(),
		ContentID: req.EpisodeContentID,
		DetailURL: req.DetailURL,
	})

	start := time.Now()
	downloadURL, err := resolver.ResolveDownload(ctx, req)
	elapsed := time.Since(start)

	s.RecordOutcome(ctx, idx, err)
	s.recordGrab(ctx, idx.ID(), req, downloadURL, elapsed, err)

	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.GrabsTotal.WithLabelValues(idx.ID(), outcome).Inc()
		s.metrics.GrabDuration.Observe(elapsed.Seconds())
	}

	payload := indexer.GrabCompletedPayload{IndexerID: idx.ID(), Success: err == nil}
	if err != nil {
		payload.Error = err.Error()
		s.logger.Warn().Err(err).Str("indexer", idx.ID()).Msg("download resolution failed")
	} else {
		s.logger.Info().
			Str("indexer", idx.ID()).
			Dur("elapsed", elapsed).
			Msg("download resolved")
	}
	s.broadcast(indexer.EventGrabCompleted, payload)

	return downloadURL, err
}

func (s *Service) recordGrab(ctx context.Context, indexerID string, req types.ResolveRequest, downloadURL string, elapsed time.Duration, opErr error) {
	if s.store == nil {
		return
	}

	rec := database.GrabRecord{
		IndexerID:   indexerID,
		SourceURL:   req.DetailURL,
		DownloadURL: downloadURL,
		Success:     opErr == nil,
		DurationMS:  elapsed.Milliseconds(),
	}
	if opErr != nil {
		rec.Error = opErr.Error()
	}
	if err := s.store.InsertGrab(ctx, rec); err != nil {
		s.logger.Debug().Err(err).Msg("failed to record grab")
	}
}

func (s *Service) broadcast(msgType string, payload interface{}) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Broadcast(msgType, payload); err != nil {
		s.logger.Debug().Err(err).Str("event", msgType).Msg("failed to broadcast event")
	}
}
