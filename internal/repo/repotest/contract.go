// Package repotest checks a usecase.TaskRepository implementation against the
// behaviour every store backend must share.
package repotest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 6, 1, 9, 30, 15, 123456000, time.UTC)

func newTask(title string, created time.Time) entity.Task {
	return entity.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    entity.StatusPending,
		Priority:  entity.PriorityMedium,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func ptr[T any](v T) *T { return &v }

func titles(tasks []entity.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

// Run exercises repo. newRepo must return an empty store.
func Run(t *testing.T, newRepo func(t *testing.T) usecase.TaskRepository) {
	t.Run("CreateAndGet", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("Write report", base)
		task.Description = "quarterly"
		task.Priority = entity.PriorityHigh
		task.DueDate = ptr(base.Add(24 * time.Hour))
		task.DueTime = ptr("14:30")
		task.Reminder = ptr(base.Add(2 * time.Hour))

		created, err := repo.Create(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, task, created)

		got, err := repo.Get(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, task, got)
		assert.Equal(t, time.UTC, got.CreatedAt.Location())
	})

	t.Run("GetMissing", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, entity.ErrTaskNotFound)
	})

	t.Run("FindFiltersAndSorts", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		a := newTask("a", base)
		b := newTask("b", base.Add(2*time.Hour))
		b.Reminder = ptr(base.Add(5 * time.Hour))
		c := newTask("c", base.Add(time.Hour))
		c.Reminder = ptr(base.Add(3 * time.Hour))
		d := newTask("d", base.Add(3*time.Hour))
		d.Status = entity.StatusCompleted
		d.Reminder = ptr(base.Add(time.Hour))
		d.CompletedAt = ptr(base.Add(4 * time.Hour))
		for _, task := range []entity.Task{a, b, c, d} {
			_, err := repo.Create(ctx, task)
			require.NoError(t, err)
		}

		active, err := repo.Find(ctx, entity.TaskQuery{
			Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted},
			Sort:   []entity.SortOrder{{Field: entity.SortCreatedAt, Desc: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, titles(active))

		completed, err := repo.Find(ctx, entity.TaskQuery{Filter: entity.TaskFilter{Status: entity.StatusCompleted}})
		require.NoError(t, err)
		assert.Equal(t, []string{"d"}, titles(completed))

		reminders, err := repo.Find(ctx, entity.TaskQuery{
			Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted, HasReminder: true},
			Sort:   []entity.SortOrder{{Field: entity.SortReminder}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, titles(reminders))

		// absent values order first ascending and last descending
		byReminder, err := repo.Find(ctx, entity.TaskQuery{
			Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted},
			Sort:   []entity.SortOrder{{Field: entity.SortReminder}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "c", "b"}, titles(byReminder))

		byReminderDesc, err := repo.Find(ctx, entity.TaskQuery{
			Filter: entity.TaskFilter{NotStatus: entity.StatusCompleted},
			Sort:   []entity.SortOrder{{Field: entity.SortReminder, Desc: true}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c", "a"}, titles(byReminderDesc))

		_, err = repo.Find(ctx, entity.TaskQuery{Sort: []entity.SortOrder{{Field: "title; DROP TABLE tasks"}}})
		assert.Error(t, err)
	})

	t.Run("FindEmpty", func(t *testing.T) {
		repo := newRepo(t)

		tasks, err := repo.Find(context.Background(), entity.TaskQuery{})
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("Update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("draft", base)
		task.Reminder = ptr(base.Add(time.Hour))
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)

		changed := task
		changed.Title = "final"
		changed.Status = entity.StatusInProgress
		changed.Priority = entity.PriorityLow
		changed.Reminder = nil
		changed.DueDate = ptr(base.Add(48 * time.Hour))
		changed.UpdatedAt = base.Add(time.Minute)
		changed.CreatedAt = time.Time{}

		updated, err := repo.Update(ctx, changed)
		require.NoError(t, err)
		assert.Equal(t, "final", updated.Title)
		assert.Equal(t, entity.StatusInProgress, updated.Status)
		assert.Nil(t, updated.Reminder)
		assert.Equal(t, base, updated.CreatedAt, "created_at is immutable")
		assert.Equal(t, base.Add(time.Minute), updated.UpdatedAt)

		missing := newTask("ghost", base)
		_, err = repo.Update(ctx, missing)
		assert.ErrorIs(t, err, entity.ErrTaskNotFound)
	})

	t.Run("Complete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("ship", base)
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)

		at := base.Add(time.Hour)
		done, err := repo.Complete(ctx, task.ID, at)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusCompleted, done.Status)
		require.NotNil(t, done.CompletedAt)
		assert.Equal(t, at, *done.CompletedAt)
		assert.Equal(t, at, done.UpdatedAt)

		_, err = repo.Complete(ctx, uuid.New(), at)
		assert.ErrorIs(t, err, entity.ErrTaskNotFound)
	})

	t.Run("SetReminder", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("call", base)
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)

		reminder := base.Add(3 * time.Hour)
		got, err := repo.SetReminder(ctx, task.ID, &reminder, base.Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, got.Reminder)
		assert.Equal(t, reminder, *got.Reminder)

		got, err = repo.SetReminder(ctx, task.ID, nil, base.Add(2*time.Minute))
		require.NoError(t, err)
		assert.Nil(t, got.Reminder)
		assert.Equal(t, base.Add(2*time.Minute), got.UpdatedAt)

		_, err = repo.SetReminder(ctx, uuid.New(), nil, base)
		assert.ErrorIs(t, err, entity.ErrTaskNotFound)
	})

	t.Run("DeleteAndCount", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("tmp", base)
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		removed, err := repo.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Delete(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		n, err = repo.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("DuplicateIDIsStoreError", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		task := newTask("once", base)
		_, err := repo.Create(ctx, task)
		require.NoError(t, err)

		_, err = repo.Create(ctx, task)
		var storeErr *entity.StoreError
		assert.True(t, errors.As(err, &storeErr))
	})
}
