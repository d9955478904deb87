package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlite"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openStore(t *testing.T) *sqlite.TaskRepository {
	t.Helper()

	repo, err := sqlite.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func setupUseCase(t *testing.T, opts ...usecase.Option) (*usecase.TaskUseCaseImpl, *sqlite.TaskRepository, *fakeClock) {
	t.Helper()

	repo := openStore(t)
	clock := newFakeClock()
	opts = append([]usecase.Option{usecase.WithClock(clock.Now)}, opts...)
	return usecase.NewTaskUseCase(repo, nil, opts...), repo, clock
}

func mustCreate(t *testing.T, uc usecase.TaskUseCase, title string) entity.Task {
	t.Helper()

	task, err := uc.Create(context.Background(), entity.CreateTaskInput{Title: title, DueDate: "2024-06-10"})
	require.NoError(t, err)
	return task
}

func titles(tasks []entity.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

// countingRepo counts reads reaching the store.
type countingRepo struct {
	usecase.TaskRepository

	mu    sync.Mutex
	finds int
	gets  int
}

var _ usecase.TaskRepository = (*countingRepo)(nil)

func (r *countingRepo) Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error) {
	r.mu.Lock()
	r.finds++
	r.mu.Unlock()
	return r.TaskRepository.Find(ctx, q)
}

func (r *countingRepo) Get(ctx context.Context, id uuid.UUID) (entity.Task, error) {
	r.mu.Lock()
	r.gets++
	r.mu.Unlock()
	return r.TaskRepository.Get(ctx, id)
}

func (r *countingRepo) counts() (finds, gets int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finds, r.gets
}

// mapCache is an in-process CacheRepository.
type mapCache struct {
	mu          sync.Mutex
	views       map[string][]entity.Task
	gens        map[string]int64
	sets        int
	invalidated []string
	getErr      error
}

var _ usecase.CacheRepository = (*mapCache)(nil)

func newMapCache() *mapCache {
	return &mapCache{views: make(map[string][]entity.Task), gens: make(map[string]int64)}
}

func (c *mapCache) Generation(_ context.Context, view string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[view], nil
}

func (c *mapCache) SetView(_ context.Context, view string, gen int64, tasks []entity.Task, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[view] != gen {
		return usecase.ErrStaleView
	}
	c.views[view] = append([]entity.Task(nil), tasks...)
	c.sets++
	return nil
}

func (c *mapCache) GetView(_ context.Context, view string) ([]entity.Task, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	tasks, ok := c.views[view]
	return tasks, ok, nil
}

func (c *mapCache) Invalidate(_ context.Context, views ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range views {
		c.gens[v]++
		delete(c.views, v)
	}
	c.invalidated = append(c.invalidated, views...)
	return nil
}

// gatedRepo holds the first Find after it has read from the store until
// release is closed, so a write can be slipped in between.
type gatedRepo struct {
	usecase.TaskRepository

	once    sync.Once
	read    chan struct{}
	release chan struct{}
}

func newGatedRepo(repo usecase.TaskRepository) *gatedRepo {
	return &gatedRepo{
		TaskRepository: repo,
		read:           make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (r *gatedRepo) Find(ctx context.Context, q entity.TaskQuery) ([]entity.Task, error) {
	tasks, err := r.TaskRepository.Find(ctx, q)
	r.once.Do(func() {
		close(r.read)
		<-r.release
	})
	return tasks, err
}
