// Package web renders the board, history and reminders pages and handles
// their form posts.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/KarpovAlexandrGo/taskmaster/internal/controller/memo"
	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// BoardRefresh is how often the board page reloads itself so reminders keep
// being evaluated while it is open.
const BoardRefresh = 60 * time.Second

const (
	pageBoard     = "board.html"
	pageHistory   = "history.html"
	pageReminders = "reminders.html"
)

type Handler struct {
	taskUseCase usecase.TaskUseCase
	notifier    *usecase.ReminderNotifier
	pages       map[string]*template.Template
	clock       func() time.Time
}

// NewHandler parses the embedded templates. notifier may be nil, in which
// case pages never show reminder notifications.
func NewHandler(taskUseCase usecase.TaskUseCase, notifier *usecase.ReminderNotifier) (*Handler, error) {
	h := &Handler{
		taskUseCase: taskUseCase,
		notifier:    notifier,
		pages:       make(map[string]*template.Template),
		clock:       time.Now,
	}

	funcs := h.templateFuncs()
	for _, page := range []string{pageBoard, pageHistory, pageReminders} {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/partials.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", page, err)
		}
		h.pages[page] = tmpl
	}
	return h, nil
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(memo.Middleware)

		r.Get("/", h.Board)
		r.Get("/history", h.History)
		r.Get("/reminders", h.Reminders)

		r.Post("/tasks", h.CreateTask)
		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Post("/", h.UpdateTask)
			r.Post("/complete", h.CompleteTask)
			r.Post("/delete", h.DeleteTask)
			r.Post("/reminder", h.SetReminder)
			r.Post("/reminder/delete", h.ClearReminder)
		})
	})
}

// EmptyState is the placeholder shown when a page has nothing to list.
type EmptyState struct {
	Variant     string
	Title       string
	Description string
	ActionLabel string
	ActionHref  string
}

var emptyStates = map[string]EmptyState{
	"tasks": {
		Variant:     "tasks",
		Title:       "No tasks yet",
		Description: "Create your first task to get started",
		ActionLabel: "Add Task",
		ActionHref:  "#add-task",
	},
	"history": {
		Variant:     "history",
		Title:       "No completed tasks",
		Description: "Your completed tasks will appear here",
		ActionLabel: "View Tasks",
		ActionHref:  "/",
	},
	"reminders": {
		Variant:     "reminders",
		Title:       "No reminders set",
		Description: "Add reminders to your tasks to get notified",
		ActionLabel: "View Tasks",
		ActionHref:  "/",
	},
}

func EmptyStateFor(variant string) EmptyState {
	if s, ok := emptyStates[variant]; ok {
		return s
	}
	return emptyStates["tasks"]
}

type pageData struct {
	Title         string
	Nav           string
	Notice        string
	Error         string
	Refresh       int
	Notifications []usecase.Notification
	Tasks         []entity.Task
	Groups        []usecase.DayGroup
	Empty         *EmptyState
	Zone          string
}

func (h *Handler) newPage(r *http.Request, title, nav string) pageData {
	q := r.URL.Query()
	return pageData{
		Title:  title,
		Nav:    nav,
		Notice: q.Get("notice"),
		Error:  q.Get("error"),
		Zone:   h.taskUseCase.Location().String(),
	}
}

func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskUseCase.ActiveTasks(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPage(r, "Tasks", "board")
	data.Refresh = int(BoardRefresh.Seconds())
	data.Tasks = tasks
	data.Notifications = h.checkReminders(r, tasks)
	if len(tasks) == 0 {
		empty := EmptyStateFor("tasks")
		data.Empty = &empty
	}
	h.render(w, pageBoard, data)
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskUseCase.CompletedTasks(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPage(r, "History", "history")
	data.Groups = usecase.GroupHistory(tasks, h.taskUseCase.Location())
	if len(data.Groups) == 0 {
		empty := EmptyStateFor("history")
		data.Empty = &empty
	}
	h.render(w, pageHistory, data)
}

func (h *Handler) Reminders(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.taskUseCase.Reminders(r.Context())
	if err != nil {
		h.renderError(w, err)
		return
	}

	data := h.newPage(r, "Reminders", "reminders")
	data.Groups = usecase.GroupReminders(tasks, h.taskUseCase.Location())
	data.Notifications = h.checkReminders(r, tasks)
	if len(data.Groups) == 0 {
		empty := EmptyStateFor("reminders")
		data.Empty = &empty
	}
	h.render(w, pageReminders, data)
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "", "Failed to add task. Please try again.")
		return
	}

	_, err := h.taskUseCase.Create(r.Context(), entity.CreateTaskInput{
		Title:        r.PostForm.Get("title"),
		Description:  r.PostForm.Get("description"),
		Priority:     entity.Priority(r.PostForm.Get("priority")),
		DueDate:      r.PostForm.Get("dueDate"),
		DueTime:      r.PostForm.Get("dueTime"),
		ReminderDate: r.PostForm.Get("reminderDate"),
		ReminderTime: r.PostForm.Get("reminderTime"),
	})
	if err != nil {
		redirect(w, r, "", failureMessage(err, "Failed to add task. Please try again."))
		return
	}
	redirect(w, r, "Task added successfully", "")
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "", "Failed to update task. Please try again.")
		return
	}

	_, err := h.taskUseCase.Update(r.Context(), chi.URLParam(r, "id"), entity.UpdateTaskInput{
		Title:        r.PostForm.Get("title"),
		Description:  r.PostForm.Get("description"),
		Status:       entity.Status(r.PostForm.Get("status")),
		Priority:     entity.Priority(r.PostForm.Get("priority")),
		DueDate:      r.PostForm.Get("dueDate"),
		DueTime:      r.PostForm.Get("dueTime"),
		ReminderDate: r.PostForm.Get("reminderDate"),
		ReminderTime: r.PostForm.Get("reminderTime"),
	})
	if err != nil {
		redirect(w, r, "", failureMessage(err, "Failed to update task. Please try again."))
		return
	}
	redirect(w, r, "Task updated successfully", "")
}

func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	if _, err := h.taskUseCase.Complete(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirect(w, r, "", "Failed to complete task")
		return
	}
	redirect(w, r, "Task marked as complete", "")
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.taskUseCase.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirect(w, r, "", "Failed to delete task")
		return
	}
	redirect(w, r, "Task deleted successfully", "")
}

func (h *Handler) SetReminder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		redirect(w, r, "", "Failed to set reminder")
		return
	}

	date, clock := r.PostForm.Get("reminderDate"), r.PostForm.Get("reminderTime")
	if strings.TrimSpace(clock) == "" {
		redirect(w, r, "", "Reminder time is required")
		return
	}
	at, err := entity.ComposeInstant(date, clock, h.taskUseCase.Location())
	if err != nil {
		redirect(w, r, "", failureMessage(err, "Failed to set reminder"))
		return
	}

	if _, err := h.taskUseCase.SetReminder(r.Context(), chi.URLParam(r, "id"), at); err != nil {
		redirect(w, r, "", "Failed to set reminder")
		return
	}
	redirect(w, r, "Reminder set successfully", "")
}

func (h *Handler) ClearReminder(w http.ResponseWriter, r *http.Request) {
	if _, err := h.taskUseCase.ClearReminder(r.Context(), chi.URLParam(r, "id")); err != nil {
		redirect(w, r, "", "Failed to remove reminder")
		return
	}
	redirect(w, r, "Reminder removed successfully", "")
}

func (h *Handler) checkReminders(r *http.Request, tasks []entity.Task) []usecase.Notification {
	if h.notifier == nil {
		return nil
	}
	return h.notifier.Check(r.Context(), tasks)
}

func (h *Handler) render(w http.ResponseWriter, page string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		logger.Log.WithFields(logrus.Fields{"page": page}).WithError(err).Error("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		logger.Log.WithError(err).Warn("Failed to write page")
	}
}

func (h *Handler) renderError(w http.ResponseWriter, err error) {
	logger.Log.WithError(err).Error("Failed to load tasks")
	http.Error(w, "Failed to load tasks", http.StatusInternalServerError)
}

var returnPaths = map[string]bool{"/": true, "/history": true, "/reminders": true}

// redirect sends the browser back to the page named by the "next" form field
// with a toast message in the query string.
func redirect(w http.ResponseWriter, r *http.Request, notice, errMsg string) {
	target := r.FormValue("next")
	if !returnPaths[target] {
		target = "/"
	}

	q := url.Values{}
	if notice != "" {
		q.Set("notice", notice)
	}
	if errMsg != "" {
		q.Set("error", errMsg)
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// failureMessage shows validation reasons to the user and hides everything else
// behind the generic message.
func failureMessage(err error, generic string) string {
	var validationErr *entity.ValidationError
	if errors.As(err, &validationErr) {
		return capitalize(validationErr.Reason)
	}
	return generic
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
