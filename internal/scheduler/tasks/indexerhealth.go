// Package tasks contains the background jobs wired into the scheduler.
package tasks

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sabueso/sabueso/internal/indexer/registry"
	"github.com/sabueso/sabueso/internal/scheduler"
)

// IndexerHealthTaskID identifies the health check task.
const IndexerHealthTaskID = "indexer-health"

// IndexerHealthTask tests connectivity to every enabled indexer.
type IndexerHealthTask struct {
	registry *registry.Service
	logger   zerolog.Logger
}

// NewIndexerHealthTask creates a new indexer health check task.
func NewIndexerHealthTask(registrySvc *registry.Service, logger zerolog.Logger) *IndexerHealthTask {
	return &IndexerHealthTask{
		registry: registrySvc,
		logger:   logger.With().Str("task", "indexer-health").Logger(),
	}
}

// Run executes the health check. Status bookkeeping happens inside
// TestAll; this task reports the tally.
func (t *IndexerHealthTask) Run(ctx context.Context) error {
	results := t.registry.TestAll(ctx)
	if len(results) == 0 {
		t.logger.Info().Msg("no enabled indexers, skipping health check")
		return nil
	}

	failed := 0
	for id, result := range results {
		if result.Status != "ok" {
			failed++
			t.logger.Warn().Str("indexer", id).Str("error", result.Error).Msg("indexer health check failed")
		}
	}

	t.logger.Info().
		Int("checked", len(results)).
		Int("failed", failed).
		Msg("indexer health check completed")
	return nil
}

// RegisterIndexerHealthTask registers the health check with the
// scheduler under the configured cron expression.
func RegisterIndexerHealthTask(sched *scheduler.Scheduler, registrySvc *registry.Service, cron string, logger zerolog.Logger) error {
	if cron == "" {
		cron = "*/15 * * * *"
	}

	task := NewIndexerHealthTask(registrySvc, logger)
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          IndexerHealthTaskID,
		Name:        "Indexer Health Check",
		Description: "Tests connectivity to all enabled indexers",
		Cron:        cron,
		RunOnStart:  true,
		Func:        task.Run,
	})
}
