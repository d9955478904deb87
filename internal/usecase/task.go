package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrTaskNotFound = entity.ErrTaskNotFound
	// ErrStaleView is returned by CacheRepository.SetView when the view was
	// invalidated after its generation was read.
	ErrStaleView = errors.New("view invalidated while loading")
)

type TaskUseCase interface {
	Create(ctx context.Context, input entity.CreateTaskInput) (entity.Task, error)
	Update(ctx context.Context, id string, input entity.UpdateTaskInput) (entity.Task, error)
	Complete(ctx context.Context, id string) (entity.Task, error)
	Delete(ctx context.Context, id string) error
	SetReminder(ctx context.Context, id string, at time.Time) (entity.Task, error)
	ClearReminder(ctx context.Context, id string) (entity.Task, error)

	ActiveTasks(ctx context.Context) ([]entity.Task, error)
	CompletedTasks(ctx context.Context) ([]entity.Task, error)
	Reminders(ctx context.Context) ([]entity.Task, error)
	TaskByID(ctx context.Context, id string) (*entity.Task, error)

	Seed(ctx context.Context) (SeedResult, error)
	Location() *time.Location
}

type TaskUseCaseImpl struct {
	taskRepo  TaskRepository
	cacheRepo CacheRepository
	observer  Observer
	clock     func() time.Time
	loc       *time.Location
	cacheTTL  time.Duration
}

type Option func(*TaskUseCaseImpl)

// WithClock replaces time.Now as the source of lifecycle timestamps.
func WithClock(clock func() time.Time) Option {
	return func(uc *TaskUseCaseImpl) { uc.clock = clock }
}

// WithLocation sets the zone calendar dates and wall-clock times are read in.
func WithLocation(loc *time.Location) Option {
	return func(uc *TaskUseCaseImpl) {
		if loc != nil {
			uc.loc = loc
		}
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(uc *TaskUseCaseImpl) { uc.cacheTTL = ttl }
}

func WithObserver(o Observer) Option {
	return func(uc *TaskUseCaseImpl) {
		if o != nil {
			uc.observer = o
		}
	}
}

func NewTaskUseCase(taskRepo TaskRepository, cacheRepo CacheRepository, opts ...Option) *TaskUseCaseImpl {
	uc := &TaskUseCaseImpl{
		taskRepo:  taskRepo,
		cacheRepo: cacheRepo,
		observer:  nopObserver{},
		clock:     time.Now,
		loc:       time.UTC,
		cacheTTL:  5 * time.Minute,
	}
	if uc.cacheRepo == nil {
		uc.cacheRepo = NopCache{}
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *TaskUseCaseImpl) Location() *time.Location {
	return uc.loc
}

// now is truncated to microseconds so it round-trips through every store unchanged.
func (uc *TaskUseCaseImpl) now() time.Time {
	return uc.clock().UTC().Truncate(time.Microsecond)
}

func (uc *TaskUseCaseImpl) Create(ctx context.Context, input entity.CreateTaskInput) (task entity.Task, err error) {
	defer func() { uc.observer.ObserveOperation("create", err) }()
	log := logger.Log.WithField("title", input.Title)
	log.Debug("Starting task creation")

	if err := input.Validate(); err != nil {
		log.WithError(err).Warn("Task validation failed")
		return entity.Task{}, err
	}

	schedule, err := entity.ComposeSchedule(input.DueDate, input.DueTime, input.ReminderDate, input.ReminderTime, uc.loc)
	if err != nil {
		log.WithError(err).Warn("Task schedule rejected")
		return entity.Task{}, err
	}

	now := uc.now()
	task = entity.Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      entity.StatusPending,
		Priority:    priorityOrDefault(input.Priority),
		DueDate:     schedule.DueDate,
		DueTime:     schedule.DueTime,
		Reminder:    schedule.Reminder,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	createdTask, err := uc.taskRepo.Create(ctx, task)
	if err != nil {
		log.WithError(err).Error("Failed to create task")
		return entity.Task{}, err
	}

	uc.invalidate(ctx, createdTask.ID, ViewActive, ViewReminders)

	log.WithField("task_id", createdTask.ID.String()).Info("Task created successfully")
	return createdTask, nil
}

func (uc *TaskUseCaseImpl) Update(ctx context.Context, id string, input entity.UpdateTaskInput) (task entity.Task, err error) {
	defer func() { uc.observer.ObserveOperation("update", err) }()
	log := logger.Log.WithField("task_id", id)
	log.Debug("Starting task update")

	taskID, ok := parseID(id)
	if !ok {
		log.Warn("Invalid task ID format")
		return entity.Task{}, ErrTaskNotFound
	}

	if err := input.Validate(); err != nil {
		log.WithError(err).Warn("Validation failed during task update")
		return entity.Task{}, err
	}

	schedule, err := entity.ComposeSchedule(input.DueDate, input.DueTime, input.ReminderDate, input.ReminderTime, uc.loc)
	if err != nil {
		log.WithError(err).Warn("Task schedule rejected")
		return entity.Task{}, err
	}

	status := input.Status
	if status == "" {
		status = entity.StatusPending
	}

	updatedTask, err := uc.taskRepo.Update(ctx, entity.Task{
		ID:          taskID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      status,
		Priority:    priorityOrDefault(input.Priority),
		DueDate:     schedule.DueDate,
		DueTime:     schedule.DueTime,
		Reminder:    schedule.Reminder,
		UpdatedAt:   uc.now(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to update task in repository")
		return entity.Task{}, err
	}

	uc.invalidate(ctx, taskID, allViews...)

	log.Info("Task updated successfully")
	return updatedTask, nil
}

func (uc *TaskUseCaseImpl) Complete(ctx context.Context, id string) (task entity.Task, err error) {
	defer func() { uc.observer.ObserveOperation("complete", err) }()
	log := logger.Log.WithField("task_id", id)

	taskID, ok := parseID(id)
	if !ok {
		log.Warn("Invalid task ID format")
		return entity.Task{}, ErrTaskNotFound
	}

	task, err = uc.taskRepo.Complete(ctx, taskID, uc.now())
	if err != nil {
		log.WithError(err).Error("Failed to complete task")
		return entity.Task{}, err
	}

	uc.invalidate(ctx, taskID, allViews...)

	log.Info("Task marked as complete")
	return task, nil
}

// Delete is best-effort: an absent or malformed id is not an error.
func (uc *TaskUseCaseImpl) Delete(ctx context.Context, id string) (err error) {
	defer func() { uc.observer.ObserveOperation("delete", err) }()
	log := logger.Log.WithField("task_id", id)
	log.Debug("Deleting task")

	taskID, ok := parseID(id)
	if !ok {
		log.Warn("Ignoring delete of malformed task ID")
		return nil
	}

	removed, err := uc.taskRepo.Delete(ctx, taskID)
	if err != nil {
		log.WithError(err).Error("Failed to delete task from repository")
		return err
	}

	uc.invalidate(ctx, taskID, allViews...)

	log.WithField("removed", removed).Info("Task deleted successfully")
	return nil
}

func (uc *TaskUseCaseImpl) SetReminder(ctx context.Context, id string, at time.Time) (task entity.Task, err error) {
	defer func() { uc.observer.ObserveOperation("set_reminder", err) }()
	reminder := at.UTC().Truncate(time.Microsecond)
	return uc.setReminder(ctx, id, &reminder)
}

func (uc *TaskUseCaseImpl) ClearReminder(ctx context.Context, id string) (task entity.Task, err error) {
	defer func() { uc.observer.ObserveOperation("clear_reminder", err) }()
	return uc.setReminder(ctx, id, nil)
}

func (uc *TaskUseCaseImpl) setReminder(ctx context.Context, id string, reminder *time.Time) (entity.Task, error) {
	log := logger.Log.WithFields(logrus.Fields{"task_id": id, "reminder": reminder})

	taskID, ok := parseID(id)
	if !ok {
		log.Warn("Invalid task ID format")
		return entity.Task{}, ErrTaskNotFound
	}

	task, err := uc.taskRepo.SetReminder(ctx, taskID, reminder, uc.now())
	if err != nil {
		log.WithError(err).Error("Failed to change task reminder")
		return entity.Task{}, err
	}

	uc.invalidate(ctx, taskID, allViews...)

	log.Info("Task reminder changed")
	return task, nil
}

// invalidate drops the request memo and the shared cache entries of views.
// Cache failures are logged only; the store remains the source of truth.
func (uc *TaskUseCaseImpl) invalidate(ctx context.Context, id uuid.UUID, views ...View) {
	memo := memoFrom(ctx)
	memo.forget(id, views...)

	names := make([]string, len(views))
	for i, v := range views {
		names[i] = string(v)
	}
	if err := uc.cacheRepo.Invalidate(ctx, names...); err != nil {
		logger.Log.WithError(err).Error("Failed to invalidate cache")
	}
}

func parseID(id string) (uuid.UUID, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, false
	}
	return parsed, true
}

func priorityOrDefault(p entity.Priority) entity.Priority {
	if p == "" {
		return entity.PriorityMedium
	}
	return p
}

type TaskRepository interface {
	Create(ctx context.Context, task entity.Task) (entity.Task, error)
	Get(ctx context.Context, id uuid.UUID) (entity.Task, error)
	Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error)
	Update(ctx context.Context, task entity.Task) (entity.Task, error)
	Complete(ctx context.Context, id uuid.UUID, at time.Time) (entity.Task, error)
	SetReminder(ctx context.Context, id uuid.UUID, reminder *time.Time, at time.Time) (entity.Task, error)
	// Delete reports whether a task was removed.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	Count(ctx context.Context) (int, error)
}

// CacheRepository is a shared cache of view results. Every Invalidate bumps
// the generation of the views it names; SetView stores a result only while
// the generation read before loading it is still current, so a load that
// raced with a write never repopulates the cache with pre-write rows.
type CacheRepository interface {
	Generation(ctx context.Context, view string) (int64, error)
	SetView(ctx context.Context, view string, gen int64, tasks []entity.Task, ttl time.Duration) error
	GetView(ctx context.Context, view string) ([]entity.Task, bool, error)
	Invalidate(ctx context.Context, views ...string) error
}

// NopCache is the CacheRepository used when no shared cache is configured.
type NopCache struct{}

func (NopCache) Generation(context.Context, string) (int64, error) { return 0, nil }

func (NopCache) SetView(context.Context, string, int64, []entity.Task, time.Duration) error {
	return nil
}

func (NopCache) GetView(context.Context, string) ([]entity.Task, bool, error) { return nil, false, nil }

func (NopCache) Invalidate(context.Context, ...string) error { return nil }

// Observer receives operation outcomes, e.g. for metrics.
type Observer interface {
	ObserveOperation(op string, err error)
	ObserveCacheLookup(view string, hit bool)
	ObserveNotification(err error)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(string, error)  {}
func (nopObserver) ObserveCacheLookup(string, bool) {}
func (nopObserver) ObserveNotification(error)       {}
