package entity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

const MaxTitleLength = 255

// Task is the single persisted entity. Optional fields are nil when absent.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	DueTime     *string    `json:"dueTime"`
	Reminder    *time.Time `json:"reminder"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// HistoryTime is the instant a completed task is filed under in the history view.
func (t Task) HistoryTime() time.Time {
	if t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.UpdatedAt
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// CreateTaskInput carries the fields a caller may supply on creation.
// It has no status field; new tasks are always pending.
type CreateTaskInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Priority     Priority `json:"priority"`
	DueDate      string   `json:"dueDate"`
	DueTime      string   `json:"dueTime"`
	ReminderDate string   `json:"reminderDate"`
	ReminderTime string   `json:"reminderTime"`
}

// UpdateTaskInput replaces every mutable field of an existing task.
type UpdateTaskInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Status       Status   `json:"status"`
	Priority     Priority `json:"priority"`
	DueDate      string   `json:"dueDate"`
	DueTime      string   `json:"dueTime"`
	ReminderDate string   `json:"reminderDate"`
	ReminderTime string   `json:"reminderTime"`
}

func (in *CreateTaskInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if strings.TrimSpace(in.DueDate) == "" {
		return &ValidationError{Field: "dueDate", Reason: "due date is required"}
	}
	return validatePriority(in.Priority)
}

func (in *UpdateTaskInput) Validate() error {
	if err := validateTitle(in.Title); err != nil {
		return err
	}
	if in.Status != "" && !in.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "status must be one of: pending, in-progress, completed"}
	}
	return validatePriority(in.Priority)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: "title", Reason: "task title is required"}
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: "title must be less than 255 characters"}
	}
	return nil
}

func validatePriority(p Priority) error {
	if p != "" && !p.Valid() {
		return &ValidationError{Field: "priority", Reason: "priority must be one of: low, medium, high"}
	}
	return nil
}
