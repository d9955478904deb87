package entity

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCreateTaskInput_Validate(t *testing.T) {
	tests := []struct {
		name  string
		input CreateTaskInput
		field string
	}{
		{"valid", CreateTaskInput{Title: "A", DueDate: "2024-06-01"}, ""},
		{"blank title", CreateTaskInput{Title: "   ", DueDate: "2024-06-01"}, "title"},
		{"long title", CreateTaskInput{Title: strings.Repeat("x", 256), DueDate: "2024-06-01"}, "title"},
		{"multibyte title at limit", CreateTaskInput{Title: strings.Repeat("é", MaxTitleLength), DueDate: "2024-06-01"}, ""},
		{"multibyte title over limit", CreateTaskInput{Title: strings.Repeat("é", MaxTitleLength+1), DueDate: "2024-06-01"}, "title"},
		{"missing due date", CreateTaskInput{Title: "A"}, "dueDate"},
		{"bad priority", CreateTaskInput{Title: "A", DueDate: "2024-06-01", Priority: "urgent"}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var v *ValidationError
			if assert.ErrorAs(t, err, &v) {
				assert.Equal(t, tt.field, v.Field)
			}
		})
	}
}

func TestUpdateTaskInput_Validate(t *testing.T) {
	assert.NoError(t, (&UpdateTaskInput{Title: "A"}).Validate())
	assert.NoError(t, (&UpdateTaskInput{Title: "A", Status: StatusInProgress}).Validate())
	assert.True(t, IsValidation((&UpdateTaskInput{Title: "A", Status: "done"}).Validate()))
	assert.True(t, IsValidation((&UpdateTaskInput{}).Validate()))
}

func TestTask_HistoryTime(t *testing.T) {
	updated := time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC)
	completed := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	task := Task{UpdatedAt: updated}
	assert.Equal(t, updated, task.HistoryTime())

	task.CompletedAt = &completed
	assert.Equal(t, completed, task.HistoryTime())
}

func TestStoreError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := error(&StoreError{Op: "create", Err: cause})

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsStore(err))
	assert.False(t, IsValidation(err))
	assert.Equal(t, "store create: connection refused", err.Error())
}
