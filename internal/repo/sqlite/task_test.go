package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/repotest"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) usecase.TaskRepository {
		repo, err := Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestOpen_FileIsReopenable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	ctx := context.Background()

	repo, err := Open(ctx, path)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	task := entity.Task{
		ID:        uuid.New(),
		Title:     "persisted",
		Status:    entity.StatusPending,
		Priority:  entity.PriorityLow,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = repo.Create(ctx, task)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestTimeLayoutSortsLexically(t *testing.T) {
	early := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	late := early.Add(999 * time.Microsecond)

	a, b := formatTime(&early).(string), formatTime(&late).(string)
	assert.Len(t, a, len(b))
	assert.Less(t, a, b)
	assert.Nil(t, formatTime(nil))
}
