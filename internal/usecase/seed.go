package usecase

import (
	"context"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
)

// SeedResult reports a seed run. Success is omitted when the store already
// had rows and nothing was inserted.
type SeedResult struct {
	Success bool   `json:"success,omitempty"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// Seed inserts the demo task set into an empty store. With existing rows it
// only reports the current count.
func (uc *TaskUseCaseImpl) Seed(ctx context.Context) (SeedResult, error) {
	count, err := uc.taskRepo.Count(ctx)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to count tasks")
		return SeedResult{}, err
	}
	if count > 0 {
		logger.Log.WithField("count", count).Info("Database already seeded")
		return SeedResult{Message: "Database already seeded", Count: count}, nil
	}

	inserted := 0
	for _, task := range sampleTasks(uc.now(), uc.loc) {
		task.ID = uuid.New()
		if _, err := uc.taskRepo.Create(ctx, task); err != nil {
			logger.Log.WithError(err).Error("Error seeding database")
			return SeedResult{}, err
		}
		inserted++
	}

	uc.invalidate(ctx, uuid.Nil, allViews...)

	logger.Log.WithField("count", inserted).Info("Database seeded successfully")
	return SeedResult{Success: true, Message: "Database seeded successfully", Count: inserted}, nil
}

func sampleTasks(now time.Time, loc *time.Location) []entity.Task {
	tomorrow := now.AddDate(0, 0, 1)
	nextWeek := now.AddDate(0, 0, 7)
	yesterday := now.AddDate(0, 0, -1)

	at := func(day time.Time, hour int) *time.Time {
		local := day.In(loc)
		t := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc).UTC()
		return &t
	}
	ptr := func(t time.Time) *time.Time { return &t }

	return []entity.Task{
		{
			Title:       "Complete project documentation",
			Description: "Finish writing the technical documentation for the new feature",
			Status:      entity.StatusPending,
			Priority:    entity.PriorityHigh,
			DueDate:     ptr(tomorrow),
			Reminder:    at(tomorrow, 9),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Title:       "Review pull requests",
			Description: "Review and approve pending pull requests from the team",
			Status:      entity.StatusInProgress,
			Priority:    entity.PriorityMedium,
			DueDate:     ptr(tomorrow),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Title:       "Weekly team meeting",
			Description: "Prepare agenda for the weekly team sync",
			Status:      entity.StatusPending,
			Priority:    entity.PriorityMedium,
			DueDate:     ptr(nextWeek),
			Reminder:    at(nextWeek, 13),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Title:       "Fix critical bug in production",
			Description: "Address the authentication issue reported by users",
			Status:      entity.StatusCompleted,
			Priority:    entity.PriorityHigh,
			CompletedAt: ptr(yesterday),
			CreatedAt:   yesterday,
			UpdatedAt:   yesterday,
		},
		{
			Title:       "Update dependencies",
			Description: "Update all npm packages to their latest versions",
			Status:      entity.StatusPending,
			Priority:    entity.PriorityLow,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			Title:       "Refactor authentication module",
			Description: "Improve code quality and performance of the auth system",
			Status:      entity.StatusPending,
			Priority:    entity.PriorityMedium,
			DueDate:     ptr(nextWeek),
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
}
