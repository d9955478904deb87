package web

import (
	"html/template"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
)

var priorityEmoji = map[entity.Priority]string{
	entity.PriorityHigh:   "🚨",
	entity.PriorityMedium: "⚠️",
	entity.PriorityLow:    "✅",
}

var priorityPalette = map[entity.Priority][]string{
	entity.PriorityHigh:   {"card-rose", "card-red", "card-orange"},
	entity.PriorityMedium: {"card-amber", "card-yellow", "card-teal"},
	entity.PriorityLow:    {"card-green", "card-blue", "card-indigo"},
}

type cardData struct {
	Task  entity.Task
	Index int
}

func (h *Handler) templateFuncs() template.FuncMap {
	local := func(t time.Time) time.Time { return t.In(h.taskUseCase.Location()) }

	return template.FuncMap{
		"emoji": func(p entity.Priority) string {
			if e, ok := priorityEmoji[p]; ok {
				return e
			}
			return "📝"
		},
		"cardClass": func(p entity.Priority, i int) string {
			palette, ok := priorityPalette[p]
			if !ok {
				return "card-gray"
			}
			return palette[i%len(palette)]
		},
		// date renders "Jun 1, 2024".
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return local(*t).Format("Jan 2, 2006")
		},
		// clock renders "9:05 AM".
		"clock": func(t time.Time) string {
			return local(t).Format("3:04 PM")
		},
		"heading": func(day time.Time) string {
			return day.Format("Monday, January 2, 2006")
		},
		"inputDate": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return local(*t).Format(entity.DateLayout)
		},
		"inputTime": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return local(*t).Format(entity.TimeLayout)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"overdue": func(t entity.Task) bool {
			return t.DueDate != nil && !t.IsCompleted() && t.DueDate.Before(h.clock())
		},
		"card": func(t entity.Task, i int) cardData {
			return cardData{Task: t, Index: i}
		},
		"blank": func() entity.Task {
			return entity.Task{Priority: entity.PriorityMedium}
		},
		"statuses": func() []entity.Status {
			return []entity.Status{entity.StatusPending, entity.StatusInProgress, entity.StatusCompleted}
		},
		"priorities": func() []entity.Priority {
			return []entity.Priority{entity.PriorityLow, entity.PriorityMedium, entity.PriorityHigh}
		},
	}
}
