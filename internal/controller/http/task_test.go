package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/repo/sqlite"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo usecase.TaskRepository) (*chi.Mux, *usecase.TaskUseCaseImpl) {
	t.Helper()

	if repo == nil {
		store, err := sqlite.Open(context.Background(), ":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		repo = store
	}

	uc := usecase.NewTaskUseCase(repo, nil)
	h := NewTaskHandler(uc)

	r := chi.NewRouter()
	r.Route("/api/v1", h.RegisterRoutes)
	r.Get("/api/seed", h.SeedHandler)
	return r, uc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCreateTask(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/tasks", entity.CreateTaskInput{
		Title:        "Write report",
		Priority:     entity.PriorityHigh,
		DueDate:      "2024-06-01",
		DueTime:      "14:30",
		ReminderDate: "2024-06-01",
		ReminderTime: "14:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	task := decode[entity.Task](t, rec)
	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.Equal(t, entity.StatusPending, task.Status)
	require.NotNil(t, task.DueTime)
	assert.Equal(t, "14:30", *task.DueTime)
	require.NotNil(t, task.Reminder)
	assert.Equal(t, time.Date(2024, 6, 1, 14, 0, 0, 0, time.UTC), task.Reminder.UTC())
}

func TestCreateTask_Errors(t *testing.T) {
	r, uc := newTestRouter(t, nil)

	rec := doJSON(t, r, http.MethodPost, "/api/v1/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/tasks", entity.CreateTaskInput{DueDate: "2024-06-01"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "title", body.Field)

	rec = doJSON(t, r, http.MethodPost, "/api/v1/tasks", entity.CreateTaskInput{Title: "A", DueDate: "tomorrow"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	active, err := uc.ActiveTasks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestTaskLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	created := decode[entity.Task](t, doJSON(t, r, http.MethodPost, "/api/v1/tasks",
		entity.CreateTaskInput{Title: "Lifecycle", DueDate: "2024-06-01"}))
	path := "/api/v1/tasks/" + created.ID.String()

	rec := doJSON(t, r, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lifecycle", decode[entity.Task](t, rec).Title)

	rec = doJSON(t, r, http.MethodPut, path, entity.UpdateTaskInput{
		Title:    "Lifecycle v2",
		Status:   entity.StatusInProgress,
		Priority: entity.PriorityLow,
		DueDate:  "2024-06-02",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[entity.Task](t, rec)
	assert.Equal(t, entity.StatusInProgress, updated.Status)
	assert.Equal(t, entity.PriorityLow, updated.Priority)

	rec = doJSON(t, r, http.MethodPut, path+"/reminder", ReminderRequest{Date: "2024-06-02", Time: "08:15"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, decode[entity.Task](t, rec).Reminder)

	reminders := decode[[]entity.Task](t, doJSON(t, r, http.MethodGet, "/api/v1/tasks/reminders", nil))
	require.Len(t, reminders, 1)

	rec = doJSON(t, r, http.MethodDelete, path+"/reminder", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[entity.Task](t, rec).Reminder)

	rec = doJSON(t, r, http.MethodPost, path+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	done := decode[entity.Task](t, rec)
	assert.Equal(t, entity.StatusCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	assert.Empty(t, decode[[]entity.Task](t, doJSON(t, r, http.MethodGet, "/api/v1/tasks", nil)))
	assert.Len(t, decode[[]entity.Task](t, doJSON(t, r, http.MethodGet, "/api/v1/tasks/completed", nil)), 1)

	history := decode[[]usecase.DayGroup](t, doJSON(t, r, http.MethodGet, "/api/v1/tasks/history", nil))
	require.Len(t, history, 1)
	assert.Equal(t, done.CompletedAt.UTC().Format(entity.DateLayout), history[0].Key)

	rec = doJSON(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotFound(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	path := "/api/v1/tasks/" + uuid.NewString()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"get", http.MethodGet, path, nil},
		{"get malformed", http.MethodGet, "/api/v1/tasks/not-a-uuid", nil},
		{"update", http.MethodPut, path, entity.UpdateTaskInput{Title: "x"}},
		{"complete", http.MethodPost, path + "/complete", nil},
		{"set reminder", http.MethodPut, path + "/reminder", ReminderRequest{Date: "2024-06-01", Time: "09:00"}},
		{"clear reminder", http.MethodDelete, path + "/reminder", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestDeleteUnknownTask(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/api/v1/tasks/"+uuid.NewString(), nil).Code)
	assert.Equal(t, http.StatusNoContent, doJSON(t, r, http.MethodDelete, "/api/v1/tasks/garbage", nil).Code)
}

func TestSetReminder_Validation(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	created := decode[entity.Task](t, doJSON(t, r, http.MethodPost, "/api/v1/tasks",
		entity.CreateTaskInput{Title: "Remind me", DueDate: "2024-06-01"}))
	path := "/api/v1/tasks/" + created.ID.String() + "/reminder"

	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, r, http.MethodPut, path, ReminderRequest{Date: "2024-06-01"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(t, r, http.MethodPut, path, ReminderRequest{Date: "01/06/2024", Time: "09:00"}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPut, path, "[").Code)
}

func TestSeedHandler(t *testing.T) {
	r, _ := newTestRouter(t, nil)

	rec := doJSON(t, r, http.MethodGet, "/api/seed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[usecase.SeedResult](t, rec)
	assert.True(t, first.Success)
	assert.Equal(t, 6, first.Count)

	rec = doJSON(t, r, http.MethodGet, "/api/seed", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Database already seeded","count":6}`, rec.Body.String())
}

type brokenRepo struct {
	usecase.TaskRepository
}

func (brokenRepo) Find(context.Context, entity.TaskQuery) ([]entity.Task, error) {
	return nil, &entity.StoreError{Op: "find", Err: errors.New("connection refused")}
}

func (brokenRepo) Count(context.Context) (int, error) {
	return 0, &entity.StoreError{Op: "count", Err: errors.New("connection refused")}
}

func TestStoreFailure(t *testing.T) {
	r, _ := newTestRouter(t, brokenRepo{})

	rec := doJSON(t, r, http.MethodGet, "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decode[ErrorResponse](t, rec).Error)

	rec = doJSON(t, r, http.MethodGet, "/api/seed", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Failed to seed database"}`, rec.Body.String())
}
