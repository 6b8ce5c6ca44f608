// Package scheduler runs recurring background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

// TaskFunc is the function signature for scheduled tasks.
type TaskFunc func(ctx context.Context) error

// TaskConfig describes one recurring task.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	// Cron is a standard five-field expression, or a gocron
	// "@every 30m" form.
	Cron       string
	Func       TaskFunc
	RunOnStart bool
}

// TaskInfo is the API view of a registered task.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cron        string     `json:"cron"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config  TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// Scheduler manages the registered background tasks.
type Scheduler struct {
	mu     sync.Mutex
	gocron gocron.Scheduler
	tasks  map[string]*taskEntry
	order  []string
	logger zerolog.Logger
}

// New creates a scheduler. It does not start ticking until Start.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		gocron: gs,
		tasks:  make(map[string]*taskEntry),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// RegisterTask adds a task to the schedule. Task IDs must be unique.
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task %q already registered", config.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(config.Cron, false),
		gocron.NewTask(func() { s.run(config.ID) }),
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{config: config, job: job}
	s.order = append(s.order, config.ID)

	s.logger.Info().
		Str("task", config.ID).
		Str("cron", config.Cron).
		Bool("runOnStart", config.RunOnStart).
		Msg("registered task")
	return nil
}

// run executes one task, skipping it when a previous run is still
// going.
func (s *Scheduler) run(taskID string) {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists || entry.running {
		s.mu.Unlock()
		return
	}
	entry.running = true
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info().Str("task", taskID).Msg("task started")

	err := entry.config.Func(context.Background())

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &start
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).Str("task", taskID).Dur("elapsed", time.Since(start)).Msg("task failed")
		return
	}
	s.logger.Info().Str("task", taskID).Dur("elapsed", time.Since(start)).Msg("task completed")
}

// Start begins cron evaluation and fires the tasks marked RunOnStart.
func (s *Scheduler) Start() {
	s.gocron.Start()

	s.mu.Lock()
	total := len(s.order)
	var startup []string
	for _, id := range s.order {
		if s.tasks[id].config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.Unlock()

	for _, id := range startup {
		go s.run(id)
	}
	s.logger.Info().Int("tasks", total).Msg("scheduler started")
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("stopping scheduler")
	return s.gocron.Shutdown()
}

// RunNow triggers a task outside its schedule.
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.Lock()
	entry, exists := s.tasks[taskID]
	if !exists {
		s.mu.Unlock()
		return fmt.Errorf("task %q not found", taskID)
	}
	if entry.running {
		s.mu.Unlock()
		return fmt.Errorf("task %q is already running", taskID)
	}
	s.mu.Unlock()

	go s.run(taskID)
	return nil
}

// ListTasks returns the registered tasks in registration order.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]TaskInfo, 0, len(s.order))
	for _, id := range s.order {
		infos = append(infos, s.taskInfoLocked(s.tasks[id]))
	}
	return infos
}

// GetTask returns one task by ID.
func (s *Scheduler) GetTask(taskID string) (*TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tasks[taskID]
	if !exists {
		return nil, fmt.Errorf("task %q not found", taskID)
	}
	info := s.taskInfoLocked(entry)
	return &info, nil
}

func (s *Scheduler) taskInfoLocked(entry *taskEntry) TaskInfo {
	info := TaskInfo{
		ID:          entry.config.ID,
		Name:        entry.config.Name,
		Description: entry.config.Description,
		Cron:        entry.config.Cron,
		LastRun:     entry.lastRun,
		Running:     entry.running,
	}
	if nextRun, err := entry.job.NextRun(); err == nil {
		info.NextRun = &nextRun
	}
	return info
}
