package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
)

// View names a read projection of the task collection.
type View string

const (
	ViewActive    View = "active"
	ViewCompleted View = "completed"
	ViewReminders View = "reminders"
)

var allViews = []View{ViewActive, ViewCompleted, ViewReminders}

var viewQueries = map[View]entity.TaskQuery{
	ViewActive: {
		Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted},
		Sort:   []entity.SortOrder{{Field: entity.SortCreatedAt, Desc: true}},
	},
	ViewCompleted: {
		Filter: entity.TaskFilter{Status: entity.StatusCompleted},
		Sort: []entity.SortOrder{
			{Field: entity.SortCompletedAt, Desc: true},
			{Field: entity.SortUpdatedAt, Desc: true},
		},
	},
	ViewReminders: {
		Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted, HasReminder: true},
		Sort:   []entity.SortOrder{{Field: entity.SortReminder}},
	},
}

// ActiveTasks returns every task that is not completed, newest first.
func (uc *TaskUseCaseImpl) ActiveTasks(ctx context.Context) ([]entity.Task, error) {
	return uc.view(ctx, ViewActive)
}

// CompletedTasks returns completed tasks, most recently completed first.
func (uc *TaskUseCaseImpl) CompletedTasks(ctx context.Context) ([]entity.Task, error) {
	return uc.view(ctx, ViewCompleted)
}

// Reminders returns open tasks with a reminder, soonest first.
func (uc *TaskUseCaseImpl) Reminders(ctx context.Context) ([]entity.Task, error) {
	return uc.view(ctx, ViewReminders)
}

// TaskByID returns nil when the task does not exist or id is malformed.
func (uc *TaskUseCaseImpl) TaskByID(ctx context.Context, id string) (*entity.Task, error) {
	taskID, ok := parseID(id)
	if !ok {
		return nil, nil
	}

	memo := memoFrom(ctx)
	if task, ok := memo.task(taskID); ok {
		return task, nil
	}

	task, err := uc.taskRepo.Get(ctx, taskID)
	switch {
	case errors.Is(err, ErrTaskNotFound):
		memo.storeTask(taskID, nil)
		return nil, nil
	case err != nil:
		logger.Log.WithField("task_id", id).WithError(err).Error("Failed to get task from repository")
		return nil, err
	}

	memo.storeTask(taskID, &task)
	return &task, nil
}

func (uc *TaskUseCaseImpl) view(ctx context.Context, v View) ([]entity.Task, error) {
	memo := memoFrom(ctx)
	if tasks, ok := memo.view(v); ok {
		return tasks, nil
	}

	log := logger.Log.WithField("view", string(v))

	tasks, hit, err := uc.cacheRepo.GetView(ctx, string(v))
	if err != nil {
		log.WithError(err).Warn("Cache lookup failed")
		hit = false
	}
	uc.observer.ObserveCacheLookup(string(v), hit)

	if !hit {
		log.Debug("Cache miss, retrieving from repository")

		// The generation is read before the store so a write landing
		// during Find makes the result uncacheable.
		gen, genErr := uc.cacheRepo.Generation(ctx, string(v))
		if genErr != nil {
			log.WithError(genErr).Warn("Cache generation lookup failed, result will not be cached")
		}

		tasks, err = uc.taskRepo.Find(ctx, viewQueries[v])
		if err != nil {
			log.WithError(err).Error("Failed to list tasks from repository")
			return nil, err
		}

		if genErr == nil {
			err := uc.cacheRepo.SetView(ctx, string(v), gen, tasks, uc.cacheTTL)
			switch {
			case errors.Is(err, ErrStaleView):
				log.Debug("View changed while loading, skipping cache fill")
			case err != nil:
				log.WithError(err).Error("Failed to set tasks in cache")
			}
		}
	}
	if tasks == nil {
		tasks = []entity.Task{}
	}

	memo.storeView(v, tasks)
	return tasks, nil
}

type memoKey struct{}

// readMemo memoizes view and point reads for the lifetime of one request.
// Writes made through the use case in the same request evict what they affect.
type readMemo struct {
	mu    sync.Mutex
	views map[View][]entity.Task
	tasks map[uuid.UUID]*entity.Task
}

// WithReadMemo returns a context whose reads are memoized until it is discarded.
func WithReadMemo(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoKey{}, &readMemo{
		views: make(map[View][]entity.Task),
		tasks: make(map[uuid.UUID]*entity.Task),
	})
}

func memoFrom(ctx context.Context) *readMemo {
	m, _ := ctx.Value(memoKey{}).(*readMemo)
	return m
}

func (m *readMemo) view(v View) ([]entity.Task, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	tasks, ok := m.views[v]
	if !ok {
		return nil, false
	}
	return append([]entity.Task(nil), tasks...), true
}

func (m *readMemo) storeView(v View, tasks []entity.Task) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[v] = append([]entity.Task{}, tasks...)
}

func (m *readMemo) task(id uuid.UUID) (*entity.Task, bool) {
	if m == nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok || task == nil {
		return nil, ok
	}
	cp := *task
	return &cp, true
}

func (m *readMemo) storeTask(id uuid.UUID, task *entity.Task) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if task == nil {
		m.tasks[id] = nil
		return
	}
	cp := *task
	m.tasks[id] = &cp
}

func (m *readMemo) forget(id uuid.UUID, views ...View) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	for _, v := range views {
		delete(m.views, v)
	}
}
