package memo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlite"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	usecase.TaskRepository

	mu    sync.Mutex
	finds int
}

func (r *countingRepo) Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error) {
	r.mu.Lock()
	r.finds++
	r.mu.Unlock()
	return r.TaskRepository.Find(ctx, q)
}

func TestMiddleware(t *testing.T) {
	store, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repo := &countingRepo{TaskRepository: store}
	uc := usecase.NewTaskUseCase(repo, nil)

	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for range 3 {
			_, err := uc.ActiveTasks(r.Context())
			assert.NoError(t, err)
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 1, repo.finds)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 2, repo.finds)
}
