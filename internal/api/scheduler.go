package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sabueso/sabueso/internal/scheduler"
)

// SchedulerHandlers exposes the background task registry over HTTP.
type SchedulerHandlers struct {
	scheduler *scheduler.Scheduler
}

// NewSchedulerHandlers creates new scheduler handlers.
func NewSchedulerHandlers(sched *scheduler.Scheduler) *SchedulerHandlers {
	return &SchedulerHandlers{scheduler: sched}
}

// RegisterRoutes registers the scheduler routes.
func (h *SchedulerHandlers) RegisterRoutes(g *echo.Group) {
	g.GET("/tasks", h.ListTasks)
	g.GET("/tasks/:id", h.GetTask)
	g.POST("/tasks/:id/run", h.RunTask)
}

// ListTasks returns all scheduled tasks.
// GET /api/v1/scheduler/tasks
func (h *SchedulerHandlers) ListTasks(c echo.Context) error {
	return c.JSON(http.StatusOK, h.scheduler.ListTasks())
}

// GetTask returns information about one task.
// GET /api/v1/scheduler/tasks/:id
func (h *SchedulerHandlers) GetTask(c echo.Context) error {
	task, err := h.scheduler.GetTask(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, task)
}

// RunTask manually triggers a task to run.
// POST /api/v1/scheduler/tasks/:id/run
func (h *SchedulerHandlers) RunTask(c echo.Context) error {
	taskID := c.Param("id")
	if err := h.scheduler.RunNow(taskID); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusAccepted, map[string]string{
		"message": "Task started",
		"taskId":  taskID,
	})
}
