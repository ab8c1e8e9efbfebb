package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/infrastructure/logger"
	"github.com/taskdeck/core/internal/ports"
)

// TaskService handles task-related operations: input validation,
// normalization into canonical records, sparse update patches, bulk dispatch
// and statistics derivation. All storage access goes through the repository
// port.
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
}

// NewTaskService creates a new task service.
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   logger,
	}
}

// Accepted due-date layouts, most specific first.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDueDate(raw string) (time.Time, error) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, entities.NewValidationError("Invalid due date format")
}

// CreateTask validates and normalizes a full create payload and persists the
// resulting record. Completed is always false at creation regardless of what
// the caller sent; createdAt is stamped by the storage layer.
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (*entities.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, entities.NewValidationError("Title is required")
	}

	task := &entities.Task{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Priority:    entities.PriorityMedium,
		Status:      entities.StatusTodo,
		Tags:        buildTags(req.Tags),
		Completed:   false,
		Recurring:   entities.RecurrenceNone,
	}
	if req.Priority != "" {
		task.Priority = entities.Priority(req.Priority)
	}
	if req.Status != "" {
		task.Status = entities.Status(req.Status)
	}
	if req.Recurring != "" {
		task.Recurring = entities.Recurrence(req.Recurring)
	}
	if req.DueDate != "" {
		due, err := parseDueDate(req.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}

	created, err := s.taskRepo.Insert(ctx, task)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task created", "task_id", created.ID, "title", created.Title)

	return created, nil
}

// GetTask retrieves a task by ID.
func (s *TaskService) GetTask(ctx context.Context, id string) (*entities.Task, error) {
	return s.taskRepo.GetByID(ctx, id)
}

// ListTasks retrieves tasks matching the filter, newest first.
func (s *TaskService) ListTasks(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	return s.taskRepo.List(ctx, filter)
}

// UpdateTask applies a partial update. Only fields present in the request
// change; the stored values of absent fields are preserved.
func (s *TaskService) UpdateTask(ctx context.Context, id string, req ports.UpdateTaskRequest) (*entities.Task, error) {
	existing, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := buildPatch(req)
	if err != nil {
		return nil, err
	}
	if patch.IsZero() {
		return existing, nil
	}

	updated, err := s.taskRepo.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task updated", "task_id", updated.ID, "title", updated.Title)

	return updated, nil
}

// ToggleTask flips the completion flag. The completion invariant resyncs the
// status on save, so toggling twice restores both fields.
func (s *TaskService) ToggleTask(ctx context.Context, id string) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	task.Completed = !task.Completed

	saved, err := s.taskRepo.Save(ctx, task)
	if err != nil {
		return nil, err
	}

	s.logger.Infow("Task completion toggled", "task_id", saved.ID, "completed", saved.Completed)

	return saved, nil
}

// DeleteTask removes a single task.
func (s *TaskService) DeleteTask(ctx context.Context, id string) error {
	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Infow("Task deleted", "task_id", id)

	return nil
}

// BulkOperation dispatches one operation over a set of task ids. Ids that do
// not exist are silently skipped; they affect the reported count, not the
// outcome. Update and complete report the matched count, so a task that was
// already complete still counts.
func (s *TaskService) BulkOperation(ctx context.Context, req ports.BulkOperationRequest) (ports.BulkResult, error) {
	if req.Operation == "" || req.TaskIDs == nil {
		return ports.BulkResult{}, entities.NewValidationError("Invalid bulk operation parameters")
	}

	switch req.Operation {
	case ports.BulkOperationDelete:
		deleted, err := s.taskRepo.DeleteMany(ctx, req.TaskIDs)
		if err != nil {
			return ports.BulkResult{}, err
		}
		s.logger.Infow("Bulk delete", "requested", len(req.TaskIDs), "deleted", deleted)
		return ports.BulkResult{DeletedCount: &deleted, Message: "Tasks deleted successfully"}, nil

	case ports.BulkOperationUpdate:
		if req.Data == nil {
			return ports.BulkResult{}, entities.NewValidationError("Update data is required for bulk update")
		}
		patch, err := buildPatch(*req.Data)
		if err != nil {
			return ports.BulkResult{}, err
		}
		modified, err := s.taskRepo.PatchMany(ctx, req.TaskIDs, patch)
		if err != nil {
			return ports.BulkResult{}, err
		}
		s.logger.Infow("Bulk update", "requested", len(req.TaskIDs), "modified", modified)
		return ports.BulkResult{ModifiedCount: &modified, Message: "Tasks updated successfully"}, nil

	case ports.BulkOperationComplete:
		completed := true
		done := entities.StatusDone
		patch := ports.TaskPatch{Completed: &completed, Status: &done}
		modified, err := s.taskRepo.PatchMany(ctx, req.TaskIDs, patch)
		if err != nil {
			return ports.BulkResult{}, err
		}
		s.logger.Infow("Bulk complete", "requested", len(req.TaskIDs), "modified", modified)
		return ports.BulkResult{ModifiedCount: &modified, Message: "Tasks marked as completed"}, nil

	default:
		return ports.BulkResult{}, entities.NewValidationError(
			"Invalid operation. Supported operations: %s, %s, %s",
			ports.BulkOperationDelete, ports.BulkOperationUpdate, ports.BulkOperationComplete,
		)
	}
}

// Stats recomputes the aggregate snapshot from the full task set. Nothing is
// cached.
func (s *TaskService) Stats(ctx context.Context) (ports.TaskStats, error) {
	counts, err := s.taskRepo.Counts(ctx, time.Now())
	if err != nil {
		return ports.TaskStats{}, err
	}

	stats := ports.TaskStats{
		Total:     counts.Total,
		Completed: counts.Completed,
		Pending:   counts.Pending,
		Overdue:   counts.Overdue,
	}
	if counts.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(counts.Completed) / float64(counts.Total) * 100))
	}

	return stats, nil
}

// buildTags converts tag inputs, filling in the default color for tags
// created without one. Names are not trimmed or deduplicated here; the rule
// table rejects blank names at save time.
func buildTags(inputs []ports.TagInput) []entities.Tag {
	tags := make([]entities.Tag, 0, len(inputs))
	for _, in := range inputs {
		color := in.Color
		if color == "" {
			color = entities.DefaultTagColor
		}
		tags = append(tags, entities.Tag{Name: in.Name, Color: color})
	}
	return tags
}

// buildPatch turns a partial update request into a sparse patch. Enum fields
// and bounds go through the same rules the create path saves under, so the
// two validation paths cannot drift.
func buildPatch(req ports.UpdateTaskRequest) (ports.TaskPatch, error) {
	var patch ports.TaskPatch

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return ports.TaskPatch{}, entities.NewValidationError("Title cannot be empty")
		}
		if utf8.RuneCountInString(title) > entities.MaxTitleLength {
			return ports.TaskPatch{}, entities.NewValidationError("Title cannot be more than %d characters", entities.MaxTitleLength)
		}
		patch.Title = &title
	}

	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if utf8.RuneCountInString(description) > entities.MaxDescriptionLength {
			return ports.TaskPatch{}, entities.NewValidationError("Description cannot be more than %d characters", entities.MaxDescriptionLength)
		}
		patch.Description = &description
	}

	if len(req.DueDate) > 0 {
		cleared, due, err := parseDueDatePatch(req.DueDate)
		if err != nil {
			return ports.TaskPatch{}, err
		}
		if cleared {
			patch.ClearDueDate = true
		} else {
			patch.DueDate = due
		}
	}

	if req.Priority != nil {
		priority := entities.Priority(*req.Priority)
		if !priority.IsValid() {
			return ports.TaskPatch{}, entities.NewValidationError("%s is not a valid value for priority", priority)
		}
		patch.Priority = &priority
	}

	if req.Status != nil {
		status := entities.Status(*req.Status)
		if !status.IsValid() {
			return ports.TaskPatch{}, entities.NewValidationError("%s is not a valid value for status", status)
		}
		patch.Status = &status
	}

	if req.Tags != nil {
		tags := buildTags(*req.Tags)
		for _, tag := range tags {
			if strings.TrimSpace(tag.Name) == "" {
				return ports.TaskPatch{}, entities.NewValidationError("Tag name is required")
			}
		}
		patch.Tags = &tags
	}

	if req.Completed != nil {
		completed := *req.Completed
		patch.Completed = &completed
	}

	if req.Recurring != nil {
		recurring := entities.Recurrence(*req.Recurring)
		if !recurring.IsValid() {
			return ports.TaskPatch{}, entities.NewValidationError("%s is not a valid value for recurring", recurring)
		}
		patch.Recurring = &recurring
	}

	return patch, nil
}

// parseDueDatePatch interprets the raw dueDate field of an update. A JSON
// null or empty string clears the due date; anything else must parse as a
// date.
func parseDueDatePatch(raw json.RawMessage) (cleared bool, due *time.Time, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "null" {
		return true, nil, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, nil, entities.NewValidationError("Invalid due date format")
	}
	if value == "" {
		return true, nil, nil
	}

	parsed, err := parseDueDate(value)
	if err != nil {
		return false, nil, err
	}
	return false, &parsed, nil
}

var (
	_ ports.TaskReader = (*TaskService)(nil)
	_ ports.TaskWriter = (*TaskService)(nil)
)
