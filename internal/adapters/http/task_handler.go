package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskdeck/core/internal/application/services"
	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService *services.TaskService
	logger      *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// ListTasks handles GET /api/tasks with optional completed, priority, status
// and search filters. Results are always newest first.
func (h *TaskHandler) ListTasks(c echo.Context) error {
	var filter ports.TaskFilter

	// Presence matters: "?completed=" filters to false, no parameter means
	// no constraint. Anything but "true" parses to false.
	if params := c.QueryParams(); params.Has("completed") {
		value := params.Get("completed") == "true"
		filter.Completed = &value
	}
	if priority := c.QueryParam("priority"); priority != "" {
		value := entities.Priority(priority)
		filter.Priority = &value
	}
	if status := c.QueryParam("status"); status != "" {
		value := entities.Status(status)
		filter.Status = &value
	}
	if search := c.QueryParam("search"); search != "" {
		filter.Search = &search
	}

	tasks, err := h.taskService.ListTasks(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, tasks, fmt.Sprintf("Found %d tasks", len(tasks)))
}

// GetTask handles GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c echo.Context) error {
	task, err := h.taskService.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, task, "Task retrieved successfully")
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return entities.NewValidationError("Invalid request format")
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusCreated, task, "Task created successfully")
}

// UpdateTask handles PUT /api/tasks/:id. Only fields present in the body
// change.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return entities.NewValidationError("Invalid request format")
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), c.Param("id"), req)
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, task, "Task updated successfully")
}

// ToggleTask handles PATCH /api/tasks/:id/toggle.
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	task, err := h.taskService.ToggleTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}

	state := "incomplete"
	if task.Completed {
		state = "completed"
	}

	return sendSuccess(c, http.StatusOK, task, fmt.Sprintf("Task marked as %s", state))
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	if err := h.taskService.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, nil, "Task deleted successfully")
}

// BulkOperations handles POST /api/tasks/bulk: delete, update or complete a
// set of task ids in one storage call. Unknown ids are counted as no-ops.
func (h *TaskHandler) BulkOperations(c echo.Context) error {
	var req ports.BulkOperationRequest
	if err := c.Bind(&req); err != nil {
		return entities.NewValidationError("Invalid bulk operation parameters")
	}
	if err := c.Validate(&req); err != nil {
		return entities.NewValidationError("Invalid bulk operation parameters")
	}

	result, err := h.taskService.BulkOperation(c.Request().Context(), req)
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, result, result.Message)
}

// GetStats handles GET /api/tasks/stats.
func (h *TaskHandler) GetStats(c echo.Context) error {
	stats, err := h.taskService.Stats(c.Request().Context())
	if err != nil {
		return err
	}

	return sendSuccess(c, http.StatusOK, stats, "Task statistics retrieved successfully")
}
