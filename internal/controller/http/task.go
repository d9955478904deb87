package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// TaskHandler serves the JSON task API.
type TaskHandler struct {
	taskUseCase usecase.TaskUseCase
}

func NewTaskHandler(taskUseCase usecase.TaskUseCase) *TaskHandler {
	return &TaskHandler{
		taskUseCase: taskUseCase,
	}
}

// ErrorResponse is the body of every non-2xx API response except a failed seed.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// SeedFailure is the 500 body of /seed. Success is always present and false.
type SeedFailure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ReminderRequest sets a reminder from a calendar date and a wall-clock time
// in the server's configured zone.
type ReminderRequest struct {
	Date string `json:"date" example:"2024-06-01"`
	Time string `json:"time" example:"09:00"`
}

// RegisterRoutes mounts the task routes on r, which is expected to be the /api/v1 subrouter.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.CreateTask)
		r.Get("/", h.ListActive)
		r.Get("/completed", h.ListCompleted)
		r.Get("/reminders", h.ListReminders)
		r.Get("/history", h.History)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetTask)
			r.Put("/", h.UpdateTask)
			r.Delete("/", h.DeleteTask)
			r.Post("/complete", h.CompleteTask)
			r.Put("/reminder", h.SetReminder)
			r.Delete("/reminder", h.ClearReminder)
		})
	})
}

// CreateTask creates a pending task.
// @Summary      Create task
// @Description  Creates a new task. The status is always pending.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        task body     entity.CreateTaskInput true "Task fields"
// @Success      201  {object} entity.Task
// @Failure      400  {object} ErrorResponse "Malformed body"
// @Failure      422  {object} ErrorResponse "Validation error"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks [post]
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var input entity.CreateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskUseCase.Create(r.Context(), input)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, task)
}

// ListActive returns tasks that are not completed.
// @Summary      Active tasks
// @Description  Returns every task that is not completed, newest first
// @Tags         tasks
// @Produce      json
// @Success      200  {array}  entity.Task
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks [get]
func (h *TaskHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, r, h.taskUseCase.ActiveTasks)
}

// ListCompleted returns completed tasks.
// @Summary      Completed tasks
// @Description  Returns completed tasks, most recently completed first
// @Tags         tasks
// @Produce      json
// @Success      200  {array}  entity.Task
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/completed [get]
func (h *TaskHandler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, r, h.taskUseCase.CompletedTasks)
}

// ListReminders returns open tasks that have a reminder.
// @Summary      Reminders
// @Description  Returns open tasks with a reminder, soonest first
// @Tags         tasks
// @Produce      json
// @Success      200  {array}  entity.Task
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/reminders [get]
func (h *TaskHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	h.respondWithView(w, r, h.taskUseCase.Reminders)
}

// History returns completed tasks grouped by the day they were completed.
// @Summary      Completion history
// @Description  Completed tasks grouped by local calendar day, newest day first
// @Tags         tasks
// @Produce      json
// @Success      200  {array}  usecase.DayGroup
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/history [get]
func (h *TaskHandler) History(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskUseCase.CompletedTasks(r.Context())
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	groups := usecase.GroupHistory(tasks, h.taskUseCase.Location())
	if groups == nil {
		groups = []usecase.DayGroup{}
	}
	respondWithJSON(w, http.StatusOK, groups)
}

// GetTask returns one task.
// @Summary      Get task
// @Description  Returns a task by its ID
// @Tags         tasks
// @Produce      json
// @Param        id   path     string true "Task ID"
// @Success      200  {object} entity.Task
// @Failure      404  {object} ErrorResponse "Task not found"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id} [get]
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := h.taskUseCase.TaskByID(r.Context(), id)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}
	if task == nil {
		logger.Log.WithField("task_id", id).Warn("Task not found")
		respondWithError(w, http.StatusNotFound, "Task not found")
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// UpdateTask replaces the mutable fields of a task.
// @Summary      Update task
// @Description  Replaces title, description, priority, status, due date and reminder
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id   path     string true "Task ID"
// @Param        task body     entity.UpdateTaskInput true "Task fields"
// @Success      200  {object} entity.Task
// @Failure      400  {object} ErrorResponse "Malformed body"
// @Failure      404  {object} ErrorResponse "Task not found"
// @Failure      422  {object} ErrorResponse "Validation error"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var input entity.UpdateTaskInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	task, err := h.taskUseCase.Update(r.Context(), id, input)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// DeleteTask removes a task. Deleting an unknown task succeeds.
// @Summary      Delete task
// @Description  Deletes a task by its ID; unknown IDs are ignored
// @Tags         tasks
// @Param        id   path     string true "Task ID"
// @Success      204
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.taskUseCase.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask marks a task completed.
// @Summary      Complete task
// @Description  Sets status to completed and stamps completedAt
// @Tags         tasks
// @Produce      json
// @Param        id   path     string true "Task ID"
// @Success      200  {object} entity.Task
// @Failure      404  {object} ErrorResponse "Task not found"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id}/complete [post]
func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUseCase.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// SetReminder sets or moves the reminder of a task.
// @Summary      Set reminder
// @Description  Sets the reminder from a date and an HH:mm time in the server zone
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Param        id       path     string          true "Task ID"
// @Param        reminder body     ReminderRequest true "Reminder date and time"
// @Success      200  {object} entity.Task
// @Failure      400  {object} ErrorResponse "Malformed body"
// @Failure      404  {object} ErrorResponse "Task not found"
// @Failure      422  {object} ErrorResponse "Validation error"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id}/reminder [put]
func (h *TaskHandler) SetReminder(w http.ResponseWriter, r *http.Request) {
	var req ReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Time == "" {
		respondWithUseCaseError(w, &entity.ValidationError{Field: "time", Reason: "reminder time is required"})
		return
	}

	at, err := entity.ComposeInstant(req.Date, req.Time, h.taskUseCase.Location())
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	task, err := h.taskUseCase.SetReminder(r.Context(), chi.URLParam(r, "id"), at)
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// ClearReminder removes the reminder of a task.
// @Summary      Clear reminder
// @Description  Removes the reminder of a task
// @Tags         tasks
// @Produce      json
// @Param        id   path     string true "Task ID"
// @Success      200  {object} entity.Task
// @Failure      404  {object} ErrorResponse "Task not found"
// @Failure      500  {object} ErrorResponse "Internal server error"
// @Router       /tasks/{id}/reminder [delete]
func (h *TaskHandler) ClearReminder(w http.ResponseWriter, r *http.Request) {
	task, err := h.taskUseCase.ClearReminder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, task)
}

// SeedHandler fills an empty store with sample tasks.
// @Summary      Seed sample data
// @Description  Inserts the sample task set when the store is empty
// @Tags         admin
// @Produce      json
// @Success      200  {object} usecase.SeedResult
// @Failure      500  {object} SeedFailure
// @Router       /seed [get]
func (h *TaskHandler) SeedHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.taskUseCase.Seed(r.Context())
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, SeedFailure{Message: "Failed to seed database"})
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *TaskHandler) respondWithView(w http.ResponseWriter, r *http.Request, view func(ctx context.Context) ([]entity.Task, error)) {
	tasks, err := view(r.Context())
	if err != nil {
		respondWithUseCaseError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, tasks)
}

func respondWithUseCaseError(w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error: validationErr.Reason,
			Field: validationErr.Field,
		})
	case errors.Is(err, usecase.ErrTaskNotFound):
		respondWithError(w, http.StatusNotFound, "Task not found")
	default:
		logger.Log.WithFields(logrus.Fields{"error": err}).Error("Request failed")
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logger.Log.WithError(err).Error("Failed to encode response")
		}
	}
}
