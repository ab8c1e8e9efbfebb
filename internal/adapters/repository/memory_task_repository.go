package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/core/internal/domain/entities"
	"github.com/taskdeck/core/internal/ports"
)

// MemoryTaskRepository implements the TaskRepository interface on a
// mutex-guarded map. It backs the zero-backend demo mode: the same capability
// surface as the document store with no external process, mirroring the
// frontend's local persistence mode. State is lost on restart.
type MemoryTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*entities.Task
	seq   map[string]int64
	next  int64
}

// NewMemoryTaskRepository creates an empty in-memory task repository.
func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[string]*entities.Task),
		seq:   make(map[string]int64),
	}
}

// HealthCheck always succeeds; there is no connection to lose.
func (r *MemoryTaskRepository) HealthCheck() error {
	return nil
}

func (r *MemoryTaskRepository) Insert(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	stored := task.Clone()
	if err := stored.BeforeInsert(time.Now()); err != nil {
		return nil, err
	}
	stored.ID = uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.next++
	r.tasks[stored.ID] = stored
	r.seq[stored.ID] = r.next

	return stored.Clone(), nil
}

func (r *MemoryTaskRepository) GetByID(ctx context.Context, id string) (*entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}
	return task.Clone(), nil
}

func (r *MemoryTaskRepository) List(ctx context.Context, filter ports.TaskFilter) ([]*entities.Task, error) {
	var search *regexp.Regexp
	if filter.Search != nil {
		re, err := regexp.Compile("(?i)" + *filter.Search)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		search = re
	}

	r.mu.RLock()
	matched := make([]*entities.Task, 0, len(r.tasks))
	seq := make(map[string]int64, len(r.tasks))
	for id, task := range r.tasks {
		if matchesFilter(task, filter, search) {
			matched = append(matched, task.Clone())
			seq[id] = r.seq[id]
		}
	}
	r.mu.RUnlock()

	// Newest first; insertion order breaks createdAt ties.
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return seq[matched[i].ID] > seq[matched[j].ID]
	})

	return matched, nil
}

func matchesFilter(task *entities.Task, filter ports.TaskFilter, search *regexp.Regexp) bool {
	if filter.Completed != nil && task.Completed != *filter.Completed {
		return false
	}
	if filter.Priority != nil && task.Priority != *filter.Priority {
		return false
	}
	if filter.Status != nil && task.Status != *filter.Status {
		return false
	}
	if search != nil && !search.MatchString(task.Title) && !search.MatchString(task.Description) {
		return false
	}
	return true
}

func (r *MemoryTaskRepository) Save(ctx context.Context, task *entities.Task) (*entities.Task, error) {
	stored := task.Clone()
	if err := stored.BeforeSave(time.Now()); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[stored.ID]; !ok {
		return nil, entities.ErrTaskNotFound
	}
	r.tasks[stored.ID] = stored

	return stored.Clone(), nil
}

func (r *MemoryTaskRepository) Patch(ctx context.Context, id string, patch ports.TaskPatch) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, entities.ErrTaskNotFound
	}

	patch.Apply(task)

	return task.Clone(), nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, id)
	delete(r.seq, id)

	return nil
}

func (r *MemoryTaskRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for _, id := range ids {
		if _, ok := r.tasks[id]; ok {
			delete(r.tasks, id)
			delete(r.seq, id)
			deleted++
		}
	}

	return deleted, nil
}

func (r *MemoryTaskRepository) PatchMany(ctx context.Context, ids []string, patch ports.TaskPatch) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched int64
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		task, ok := r.tasks[id]
		if !ok {
			continue
		}
		patch.Apply(task)
		matched++
	}

	return matched, nil
}

func (r *MemoryTaskRepository) Counts(ctx context.Context, now time.Time) (ports.TaskCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var counts ports.TaskCounts
	for _, task := range r.tasks {
		counts.Total++
		if task.Completed {
			counts.Completed++
		}
		if !task.Completed && task.Status != entities.StatusDone {
			counts.Pending++
		}
		if task.IsOverdue(now) {
			counts.Overdue++
		}
	}

	return counts, nil
}

var _ ports.TaskRepository = (*MemoryTaskRepository)(nil)
