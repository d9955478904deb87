package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/repotest"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect returns a migrated repository on TEST_DATABASE_URL with an empty
// tasks table, or skips when no database is reachable.
func connect(t *testing.T) *TaskRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, err := Connect(ctx, dsn)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	_, err = repo.db.Exec(ctx, `TRUNCATE tasks`)
	require.NoError(t, err)
	return repo
}

func TestTaskRepository(t *testing.T) {
	repotest.Run(t, func(t *testing.T) usecase.TaskRepository {
		return connect(t)
	})
}

func TestPing(t *testing.T) {
	repo := connect(t)
	require.NoError(t, repo.Ping(context.Background()))
}

func TestConnect_ReleasesMigrationConnections(t *testing.T) {
	repo := connect(t)

	assert.Zero(t, repo.db.Stat().AcquiredConns())
	require.NoError(t, repo.Ping(context.Background()))
}
