package tasks

import (
	"context"

	"github.com/sabueso/sabueso/internal/history"
	"github.com/sabueso/sabueso/internal/scheduler"
)

// HistoryCleanupTaskID identifies the history cleanup task.
const HistoryCleanupTaskID = "history-cleanup"

// RegisterHistoryCleanupTask registers the nightly history prune.
// Entries older than retentionDays are deleted; a non-positive
// retention keeps the task listed but makes it a no-op.
func RegisterHistoryCleanupTask(sched *scheduler.Scheduler, historySvc *history.Service, retentionDays int) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          HistoryCleanupTaskID,
		Name:        "History Cleanup",
		Description: "Deletes history entries older than the configured retention period",
		Cron:        "0 2 * * *",
		Func: func(ctx context.Context) error {
			_, err := historySvc.Cleanup(ctx, retentionDays)
			return err
		},
	})
}
