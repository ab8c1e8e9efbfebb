package entities

import (
	"strings"
	"testing"
	"time"
)

func validTask() *Task {
	return &Task{
		Title:       "Write report",
		Description: "Quarterly numbers",
		Priority:    PriorityMedium,
		Status:      StatusTodo,
		Tags:        []Tag{{Name: "work", Color: DefaultTagColor}},
		Recurring:   RecurrenceNone,
	}
}

func TestSyncCompletion(t *testing.T) {
	task := validTask()
	task.Completed = true
	task.Status = StatusInProgress

	task.SyncCompletion()
	if task.Status != StatusDone {
		t.Errorf("expected status %q after completing, got %q", StatusDone, task.Status)
	}

	task.Completed = false
	task.SyncCompletion()
	if task.Status != StatusTodo {
		t.Errorf("expected status %q after un-completing, got %q", StatusTodo, task.Status)
	}
}

func TestSyncCompletionLeavesOtherStatusesAlone(t *testing.T) {
	task := validTask()
	task.Completed = false
	task.Status = StatusInProgress

	task.SyncCompletion()
	if task.Status != StatusInProgress {
		t.Errorf("expected status untouched, got %q", task.Status)
	}
}

func TestBeforeInsertStampsCreatedAt(t *testing.T) {
	now := time.Now()
	task := validTask()

	if err := task.BeforeInsert(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !task.CreatedAt.Equal(now) {
		t.Errorf("expected createdAt %v, got %v", now, task.CreatedAt)
	}

	// An existing timestamp is immutable.
	earlier := now.Add(-time.Hour)
	task2 := validTask()
	task2.CreatedAt = earlier
	if err := task2.BeforeInsert(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !task2.CreatedAt.Equal(earlier) {
		t.Errorf("expected createdAt preserved, got %v", task2.CreatedAt)
	}
}

func TestBeforeInsertRejectsPastDueDate(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	task := validTask()
	task.DueDate = &past

	err := task.BeforeInsert(now)
	if err == nil {
		t.Fatal("expected error for past due date")
	}
	if err.Error() != "Due date cannot be in the past" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestBeforeSaveToleratesPastDueDate(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)

	task := validTask()
	task.CreatedAt = now.Add(-24 * time.Hour)
	task.DueDate = &past

	if err := task.BeforeSave(now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateSchema(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr string
	}{
		{
			name:   "valid task",
			mutate: func(task *Task) {},
		},
		{
			name:    "blank title",
			mutate:  func(task *Task) { task.Title = "   " },
			wantErr: "Title is required",
		},
		{
			name:    "title too long",
			mutate:  func(task *Task) { task.Title = strings.Repeat("a", MaxTitleLength+1) },
			wantErr: "Title cannot be more than 200 characters",
		},
		{
			// Limits count characters, not bytes.
			name:   "multibyte title within limit",
			mutate: func(task *Task) { task.Title = strings.Repeat("é", MaxTitleLength) },
		},
		{
			name:    "multibyte title too long",
			mutate:  func(task *Task) { task.Title = strings.Repeat("é", MaxTitleLength+1) },
			wantErr: "Title cannot be more than 200 characters",
		},
		{
			name:    "description too long",
			mutate:  func(task *Task) { task.Description = strings.Repeat("a", MaxDescriptionLength+1) },
			wantErr: "Description cannot be more than 1000 characters",
		},
		{
			name:    "invalid priority",
			mutate:  func(task *Task) { task.Priority = "Urgent" },
			wantErr: "Urgent is not a valid value for priority",
		},
		{
			name:    "invalid status",
			mutate:  func(task *Task) { task.Status = "Blocked" },
			wantErr: "Blocked is not a valid value for status",
		},
		{
			name:    "invalid recurrence",
			mutate:  func(task *Task) { task.Recurring = "Yearly" },
			wantErr: "Yearly is not a valid value for recurring",
		},
		{
			name:    "blank tag name",
			mutate:  func(task *Task) { task.Tags = []Tag{{Name: " ", Color: DefaultTagColor}} },
			wantErr: "Tag name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := validTask()
			tt.mutate(task)

			err := task.ValidateSchema(false, now)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("expected %q, got %q", tt.wantErr, err.Error())
			}
			if !IsValidation(err) {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	task := validTask()
	if task.IsOverdue(now) {
		t.Error("task without due date should not be overdue")
	}

	task.DueDate = &future
	if task.IsOverdue(now) {
		t.Error("future due date should not be overdue")
	}

	task.DueDate = &past
	if !task.IsOverdue(now) {
		t.Error("past due date on an incomplete task should be overdue")
	}

	task.Completed = true
	if task.IsOverdue(now) {
		t.Error("completed task should never be overdue")
	}
}

func TestCloneIsDeep(t *testing.T) {
	due := time.Now().Add(time.Hour)
	task := validTask()
	task.DueDate = &due

	clone := task.Clone()
	clone.Tags[0].Name = "changed"
	*clone.DueDate = due.Add(time.Hour)

	if task.Tags[0].Name != "work" {
		t.Errorf("clone shares tag storage with the original")
	}
	if !task.DueDate.Equal(due) {
		t.Errorf("clone shares due date storage with the original")
	}
}
