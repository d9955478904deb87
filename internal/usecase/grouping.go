package usecase

import (
	"slices"
	"strings"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
)

// DayGroup is the set of tasks filed under one calendar day of the display zone.
type DayGroup struct {
	Key   string        `json:"date"`
	Day   time.Time     `json:"-"`
	Tasks []entity.Task `json:"tasks"`
}

// GroupHistory groups completed tasks by the local day they were completed
// (falling back to their last update), newest day first.
func GroupHistory(tasks []entity.Task, loc *time.Location) []DayGroup {
	return GroupByDay(tasks, func(t entity.Task) (time.Time, bool) {
		return t.HistoryTime(), true
	}, loc, true)
}

// GroupReminders groups tasks by the local day of their reminder, soonest
// day first. Tasks without a reminder are skipped.
func GroupReminders(tasks []entity.Task, loc *time.Location) []DayGroup {
	return GroupByDay(tasks, func(t entity.Task) (time.Time, bool) {
		if t.Reminder == nil {
			return time.Time{}, false
		}
		return *t.Reminder, true
	}, loc, false)
}

// GroupByDay buckets tasks by the calendar day of instant in loc. Tasks keep
// their input order inside a bucket; buckets are ordered by day.
func GroupByDay(tasks []entity.Task, instant func(entity.Task) (time.Time, bool), loc *time.Location, desc bool) []DayGroup {
	if loc == nil {
		loc = time.UTC
	}

	var groups []DayGroup
	index := make(map[string]int)

	for _, t := range tasks {
		at, ok := instant(t)
		if !ok {
			continue
		}
		local := at.In(loc)
		key := local.Format(entity.DateLayout)

		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{
				Key: key,
				Day: time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc),
			})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}

	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		if desc {
			return strings.Compare(b.Key, a.Key)
		}
		return strings.Compare(a.Key, b.Key)
	})
	return groups
}
