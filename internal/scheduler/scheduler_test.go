package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/sabueso/sabueso/internal/testutil"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(testutil.NopLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func noop(ctx context.Context) error { return nil }

func TestRegisterTaskRejectsDuplicates(t *testing.T) {
	s := newTestScheduler(t)

	cfg := TaskConfig{ID: "job", Name: "Job", Cron: "0 0 1 1 *", Func: noop}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}
	if err := s.RegisterTask(cfg); err == nil {
		t.Error("duplicate registration did not fail")
	}
}

func TestRegisterTaskRejectsBadCron(t *testing.T) {
	s := newTestScheduler(t)

	err := s.RegisterTask(TaskConfig{ID: "bad", Name: "Bad", Cron: "not a cron", Func: noop})
	if err == nil {
		t.Error("invalid cron expression did not fail")
	}
}

func TestRunNow(t *testing.T) {
	s := newTestScheduler(t)

	ran := make(chan struct{}, 1)
	err := s.RegisterTask(TaskConfig{
		ID:   "job",
		Name: "Job",
		Cron: "0 0 1 1 *",
		Func: func(ctx context.Context) error {
			ran <- struct{}{}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("RegisterTask() error = %v", err)
	}

	if err := s.RunNow("job"); err != nil {
		t.Fatalf("RunNow() error = %v", err)
	}
	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	// The run state settles shortly after the task function returns.
	deadline := time.Now().Add(2 * time.Second)
	for {
		info, err := s.GetTask("job")
		if err != nil {
			t.Fatalf("GetTask() error = %v", err)
		}
		if !info.Running && info.LastRun != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task state never settled: %+v", info)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.RunNow("ghost"); err == nil {
		t.Error("unknown task did not fail")
	}
}

func TestListTasksKeepsRegistrationOrder(t *testing.T) {
	s := newTestScheduler(t)

	for _, id := range []string{"c", "a", "b"} {
		err := s.RegisterTask(TaskConfig{ID: id, Name: id, Cron: "0 0 1 1 *", Func: noop})
		if err != nil {
			t.Fatalf("RegisterTask(%q) error = %v", id, err)
		}
	}

	infos := s.ListTasks()
	if len(infos) != 3 {
		t.Fatalf("got %d tasks, want 3", len(infos))
	}
	for i, want := range []string{"c", "a", "b"} {
		if infos[i].ID != want {
			t.Errorf("tasks[%d].ID = %q, want %q", i, infos[i].ID, want)
		}
	}

	if _, err := s.GetTask("missing"); err == nil {
		t.Error("unknown task lookup did not fail")
	}
}
