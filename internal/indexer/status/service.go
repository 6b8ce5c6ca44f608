package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/database"
	"github.com/sabueso/sabueso/internal/indexer"
)

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Service tracks indexer health and persists it across restarts.
type Service struct {
	store  *database.Store
	hub    Broadcaster
	logger zerolog.Logger
}

// NewService creates a new status service.
func NewService(store *database.Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "indexer-status").Logger(),
	}
}

// SetHub sets the broadcaster used for health transition events.
func (s *Service) SetHub(hub Broadcaster) {
	s.hub = hub
}

// RecordSuccess records a successful operation and clears any failure
// state.
func (s *Service) RecordSuccess(ctx context.Context, indexerID, indexerName string) error {
	prev, err := s.currentStatus(ctx, indexerID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	next := database.IndexerStatus{
		IndexerID:   indexerID,
		Status:      string(HealthStatusHealthy),
		LastCheck:   &now,
		LastSuccess: &now,
	}
	if err := s.store.UpsertIndexerStatus(ctx, next); err != nil {
		return fmt.Errorf("failed to record success: %w", err)
	}

	s.logger.Debug().Str("indexer", indexerID).Msg("recorded successful indexer operation")
	s.broadcastTransition(prev.Status, next.Status, indexerID, indexerName, "")

	return nil
}

// RecordFailure records a failed operation, bumping the consecutive
// failure counter.
func (s *Service) RecordFailure(ctx context.Context, indexerID, indexerName string, opErr error) error {
	prev, err := s.currentStatus(ctx, indexerID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	next := database.IndexerStatus{
		IndexerID:    indexerID,
		Status:       string(HealthStatusFailing),
		FailureCount: prev.FailureCount + 1,
		LastError:    opErr.Error(),
		LastCheck:    &now,
		LastSuccess:  prev.LastSuccess,
	}
	if err := s.store.UpsertIndexerStatus(ctx, next); err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}

	s.logger.Warn().
		Str("indexer", indexerID).
		Int("failureCount", next.FailureCount).
		Err(opErr).
		Msg("recorded indexer failure")
	s.broadcastTransition(prev.Status, next.Status, indexerID, indexerName, opErr.Error())

	return nil
}

// GetHealth returns the health summary for an indexer.
func (s *Service) GetHealth(ctx context.Context, indexerID, indexerName string) (*IndexerHealth, error) {
	row, err := s.currentStatus(ctx, indexerID)
	if err != nil {
		return nil, err
	}

	health := &IndexerHealth{
		IndexerID:    indexerID,
		IndexerName:  indexerName,
		Status:       HealthStatus(row.Status),
		FailureCount: row.FailureCount,
		LastCheck:    row.LastCheck,
		LastSuccess:  row.LastSuccess,
		LastError:    row.LastError,
	}

	switch health.Status {
	case HealthStatusHealthy:
		health.Message = "Operating normally"
	case HealthStatusFailing:
		health.Message = fmt.Sprintf("%d consecutive failure(s)", row.FailureCount)
	default:
		health.Status = HealthStatusUnknown
		health.Message = "Not checked yet"
	}

	return health, nil
}

// currentStatus loads the persisted snapshot, substituting a fresh
// unknown state when none exists.
func (s *Service) currentStatus(ctx context.Context, indexerID string) (database.IndexerStatus, error) {
	row, err := s.store.GetIndexerStatus(ctx, indexerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.IndexerStatus{
				IndexerID: indexerID,
				Status:    string(HealthStatusUnknown),
			}, nil
		}
		return database.IndexerStatus{}, err
	}
	return *row, nil
}

// broadcastTransition emits an event when the health state changed.
func (s *Service) broadcastTransition(prev, next, indexerID, indexerName, errMsg string) {
	if s.hub == nil || prev == next {
		return
	}

	payload := indexer.IndexerStatusPayload{
		IndexerID:   indexerID,
		IndexerName: indexerName,
		Healthy:     next == string(HealthStatusHealthy),
		Message:     errMsg,
	}
	if err := s.hub.Broadcast(indexer.EventIndexerStatus, payload); err != nil {
		s.logger.Debug().Err(err).Msg("failed to broadcast status event")
	}
}
