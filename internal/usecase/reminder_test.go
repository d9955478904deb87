package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	notes []usecase.Notification
	err   error
}

func (s *recordingSink) Notify(_ context.Context, n usecase.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = append(s.notes, n)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

func withReminder(title string, at time.Time) entity.Task {
	return entity.Task{ID: uuid.New(), Title: title, Status: entity.StatusPending, Reminder: &at}
}

func TestDueSoon(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	window := usecase.DefaultReminderWindow

	tests := []struct {
		name string
		task entity.Task
		want bool
	}{
		{"in ten minutes", withReminder("a", now.Add(10*time.Minute)), true},
		{"exactly thirty minutes", withReminder("a", now.Add(30*time.Minute)), true},
		{"thirty one minutes", withReminder("a", now.Add(31*time.Minute)), false},
		{"right now", withReminder("a", now), false},
		{"in the past", withReminder("a", now.Add(-time.Minute)), false},
		{"no reminder", entity.Task{Title: "a"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, usecase.DueSoon(tt.task, now, window))
		})
	}

	done := withReminder("done", now.Add(time.Minute))
	done.Status = entity.StatusCompleted
	assert.False(t, usecase.DueSoon(done, now, window))
}

func TestReminderNotifier_Check(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{}
	n := usecase.NewReminderNotifier(sink, usecase.WithNotifierClock(clock.Now), usecase.WithDedupe(false))

	soon := withReminder("Stand-up", clock.Now().Add(15*time.Minute))
	tasks := []entity.Task{soon, withReminder("Later", clock.Now().Add(3*time.Hour))}

	notes := n.Check(context.Background(), tasks)
	require.Len(t, notes, 1)
	assert.Equal(t, soon.ID, notes[0].TaskID)
	assert.Equal(t, "Task Reminder", notes[0].Title)
	assert.Equal(t, "Stand-up is due in 30 minutes", notes[0].Body)
	assert.Equal(t, 10, notes[0].DismissAfterSeconds)
	assert.Equal(t, 1, sink.count())

	// Without suppression every qualifying check notifies again.
	n.Check(context.Background(), tasks)
	assert.Equal(t, 2, sink.count())
}

func TestReminderNotifier_Dedupe(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{}
	n := usecase.NewReminderNotifier(sink, usecase.WithNotifierClock(clock.Now), usecase.WithDedupe(true))

	task := withReminder("Pay rent", clock.Now().Add(5*time.Minute))
	assert.Len(t, n.Check(context.Background(), []entity.Task{task}), 1)
	assert.Empty(t, n.Check(context.Background(), []entity.Task{task}))

	moved := clock.Now().Add(20 * time.Minute)
	task.Reminder = &moved
	assert.Len(t, n.Check(context.Background(), []entity.Task{task}), 1)
	assert.Equal(t, 2, sink.count())
}

func TestReminderNotifier_SinkFailureKeepsNotification(t *testing.T) {
	clock := newFakeClock()
	sink := &recordingSink{err: errors.New("channel closed")}
	n := usecase.NewReminderNotifier(sink, usecase.WithNotifierClock(clock.Now))

	notes := n.Check(context.Background(), []entity.Task{withReminder("x", clock.Now().Add(time.Minute))})
	assert.Len(t, notes, 1)
}

func TestReminderNotifier_Window(t *testing.T) {
	clock := newFakeClock()
	n := usecase.NewReminderNotifier(nil, usecase.WithNotifierClock(clock.Now), usecase.WithWindow(time.Hour))

	notes := n.Check(context.Background(), []entity.Task{withReminder("x", clock.Now().Add(45*time.Minute))})
	require.Len(t, notes, 1)
	assert.Equal(t, "x is due in 60 minutes", notes[0].Body)
	assert.Equal(t, time.Hour, n.Window())
}
