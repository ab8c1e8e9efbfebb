package entities

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Priority represents how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// IsValid checks if the priority is one of the accepted values.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Status represents where a task sits in its lifecycle.
type Status string

const (
	StatusTodo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// IsValid checks if the status is one of the accepted values.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Recurrence represents how often a task repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "None"
	RecurrenceDaily   Recurrence = "Daily"
	RecurrenceWeekly  Recurrence = "Weekly"
	RecurrenceMonthly Recurrence = "Monthly"
)

// IsValid checks if the recurrence is one of the accepted values.
func (r Recurrence) IsValid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Field bounds and defaults shared by every write path.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	DefaultTagColor      = "#3b82f6"
)

// Tag is a named label with a display color, embedded in its task.
type Tag struct {
	Name  string `json:"name" bson:"name"`
	Color string `json:"color" bson:"color"`
}

// Task is the core domain entity. The id is an opaque string; only the
// storage adapter knows what backs it.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"createdAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Tags        []Tag      `json:"tags"`
	Completed   bool       `json:"completed"`
	Recurring   Recurrence `json:"recurring"`
}

// SyncCompletion keeps the completion flag and the status consistent: a
// completed task is Done, and a task taken out of completion leaves Done.
// The flag wins; the status follows it.
func (t *Task) SyncCompletion() {
	if t.Completed && t.Status != StatusDone {
		t.Status = StatusDone
	} else if !t.Completed && t.Status == StatusDone {
		t.Status = StatusTodo
	}
}

// IsOverdue reports whether the task has an unmet due date. Completed tasks
// are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// ValidateSchema enforces the field rules every persisted task must satisfy.
// The past-due-date rule only applies on insert: a stored task may keep a due
// date that has since gone by.
func (t *Task) ValidateSchema(forInsert bool, now time.Time) error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("Title cannot be more than %d characters", MaxTitleLength)
	}
	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return NewValidationError("Description cannot be more than %d characters", MaxDescriptionLength)
	}
	if forInsert && t.DueDate != nil && t.DueDate.Before(now) {
		return NewValidationError("Due date cannot be in the past")
	}
	if !t.Priority.IsValid() {
		return NewValidationError("%s is not a valid value for priority", t.Priority)
	}
	if !t.Status.IsValid() {
		return NewValidationError("%s is not a valid value for status", t.Status)
	}
	if !t.Recurring.IsValid() {
		return NewValidationError("%s is not a valid value for recurring", t.Recurring)
	}
	for _, tag := range t.Tags {
		if strings.TrimSpace(tag.Name) == "" {
			return NewValidationError("Tag name is required")
		}
	}
	return nil
}

// BeforeInsert prepares a task for first persistence: stamps createdAt,
// resyncs the completion invariant and validates the result.
func (t *Task) BeforeInsert(now time.Time) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.SyncCompletion()
	return t.ValidateSchema(true, now)
}

// BeforeSave prepares an existing task for re-persistence. Unlike insert, a
// due date in the past is tolerated.
func (t *Task) BeforeSave(now time.Time) error {
	t.SyncCompletion()
	return t.ValidateSchema(false, now)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	copied := *t
	if t.DueDate != nil {
		due := *t.DueDate
		copied.DueDate = &due
	}
	if t.Tags != nil {
		copied.Tags = make([]Tag, len(t.Tags))
		copy(copied.Tags, t.Tags)
	}
	return &copied
}
