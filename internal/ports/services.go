package ports

import (
	"context"
	"encoding/json"

	"github.com/taskdeck/core/internal/domain/entities"
)

// TaskReader exposes the read side of the task service.
type TaskReader interface {
	ListTasks(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	GetTask(ctx context.Context, id string) (*entities.Task, error)
	Stats(ctx context.Context) (TaskStats, error)
}

// TaskWriter exposes the write side of the task service.
type TaskWriter interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*entities.Task, error)
	UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*entities.Task, error)
	ToggleTask(ctx context.Context, id string) (*entities.Task, error)
	DeleteTask(ctx context.Context, id string) error
	BulkOperation(ctx context.Context, req BulkOperationRequest) (BulkResult, error)
}

// TagInput is a tag as supplied by the client; a missing color falls back to
// the default.
type TagInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CreateTaskRequest is the full-payload create input. Completed is not
// settable: new tasks always start incomplete.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     string     `json:"dueDate"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Tags        []TagInput `json:"tags"`
	Recurring   string     `json:"recurring"`
}

// UpdateTaskRequest is a partial update. Nil pointers mean "no change".
// DueDate is kept raw so that an explicit null or empty string (clear the due
// date) can be told apart from an absent field.
type UpdateTaskRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	DueDate     json.RawMessage `json:"dueDate"`
	Priority    *string         `json:"priority"`
	Status      *string         `json:"status"`
	Tags        *[]TagInput     `json:"tags"`
	Completed   *bool           `json:"completed"`
	Recurring   *string         `json:"recurring"`
}

// BulkOperationRequest applies one operation to a set of task ids. Data is
// only consulted for the update operation.
type BulkOperationRequest struct {
	Operation string             `json:"operation" validate:"required"`
	TaskIDs   []string           `json:"taskIds"`
	Data      *UpdateTaskRequest `json:"data"`
}

// Supported bulk operations.
const (
	BulkOperationDelete   = "delete"
	BulkOperationUpdate   = "update"
	BulkOperationComplete = "complete"
)

// BulkResult reports how many documents a bulk operation touched. Exactly one
// of the count fields is set depending on the operation.
type BulkResult struct {
	DeletedCount  *int64 `json:"deletedCount,omitempty"`
	ModifiedCount *int64 `json:"modifiedCount,omitempty"`
	Message       string `json:"-"`
}

// TaskStats is the aggregate snapshot returned by the stats endpoint.
// CompletionRate is a whole percentage, rounded half up, and 0 for an empty
// collection.
type TaskStats struct {
	Total          int64 `json:"total"`
	Completed      int64 `json:"completed"`
	Pending        int64 `json:"pending"`
	Overdue        int64 `json:"overdue"`
	CompletionRate int   `json:"completionRate"`
}
