package ports

import (
	"context"
	"time"

	"github.com/taskdeck/core/internal/domain/entities"
)

// TaskRepository defines the interface for task data operations. Two
// implementations exist: a MongoDB document store and an in-memory store for
// zero-backend demo mode. Which one backs the service is a composition-time
// decision; nothing above this port branches on the driver.
type TaskRepository interface {
	Insert(ctx context.Context, task *entities.Task) (*entities.Task, error)
	GetByID(ctx context.Context, id string) (*entities.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]*entities.Task, error)
	Save(ctx context.Context, task *entities.Task) (*entities.Task, error)
	Patch(ctx context.Context, id string, patch TaskPatch) (*entities.Task, error)
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	PatchMany(ctx context.Context, ids []string, patch TaskPatch) (int64, error)
	Counts(ctx context.Context, now time.Time) (TaskCounts, error)
}

// TaskFilter narrows a listing. Nil fields impose no constraint. Search is a
// case-insensitive pattern matched against title or description; results are
// always ordered by createdAt descending.
type TaskFilter struct {
	Completed *bool
	Priority  *entities.Priority
	Status    *entities.Status
	Search    *string
}

// TaskPatch is a sparse set of field changes. Nil fields are left untouched.
// ClearDueDate removes the due date and takes precedence over DueDate.
// A patch never carries id or createdAt.
type TaskPatch struct {
	Title        *string
	Description  *string
	DueDate      *time.Time
	ClearDueDate bool
	Priority     *entities.Priority
	Status       *entities.Status
	Tags         *[]entities.Tag
	Completed    *bool
	Recurring    *entities.Recurrence
}

// IsZero reports whether the patch changes nothing.
func (p TaskPatch) IsZero() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil &&
		!p.ClearDueDate && p.Priority == nil && p.Status == nil &&
		p.Tags == nil && p.Completed == nil && p.Recurring == nil
}

// Apply writes the patch onto a task. Used by the in-memory driver; the Mongo
// driver translates the same patch into an update document instead.
func (p TaskPatch) Apply(t *entities.Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Tags != nil {
		tags := make([]entities.Tag, len(*p.Tags))
		copy(tags, *p.Tags)
		t.Tags = tags
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Recurring != nil {
		t.Recurring = *p.Recurring
	}
}

// TaskCounts holds the raw aggregate counts the statistics endpoint derives
// its completion rate from. Pending and completed do not have to add up to
// total: a task with completed=false and status=Done counts toward neither.
type TaskCounts struct {
	Total     int64
	Completed int64
	Pending   int64
	Overdue   int64
}
