package entity

import (
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ComposeInstant builds an instant from a calendar date ("2006-01-02") and an
// optional wall-clock time ("15:04") in loc. Without a time the instant is
// midnight of that day in loc.
func ComposeInstant(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Reason: "expected YYYY-MM-DD"}
	}

	hour, minute := 0, 0
	if c := strings.TrimSpace(clock); c != "" {
		hm, err := time.Parse(TimeLayout, c)
		if err != nil {
			return time.Time{}, &ValidationError{Field: "time", Reason: "expected HH:mm"}
		}
		hour, minute = hm.Hour(), hm.Minute()
	}

	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
}

// Schedule holds the composed due date and reminder of a task.
type Schedule struct {
	DueDate  *time.Time
	DueTime  *string
	Reminder *time.Time
}

// ComposeSchedule applies the date rules shared by create and update: the due
// date is present only when its date part is given, the display time is kept
// verbatim, and a reminder needs both a date and a time.
func ComposeSchedule(dueDate, dueTime, reminderDate, reminderTime string, loc *time.Location) (Schedule, error) {
	var s Schedule

	if strings.TrimSpace(dueDate) != "" {
		due, err := ComposeInstant(dueDate, dueTime, loc)
		if err != nil {
			return Schedule{}, renameField(err, "dueDate", "dueTime")
		}
		due = due.UTC()
		s.DueDate = &due
	}

	if t := strings.TrimSpace(dueTime); t != "" {
		if _, err := time.Parse(TimeLayout, t); err != nil {
			return Schedule{}, &ValidationError{Field: "dueTime", Reason: "expected HH:mm"}
		}
		s.DueTime = &t
	}

	if strings.TrimSpace(reminderDate) != "" && strings.TrimSpace(reminderTime) != "" {
		rem, err := ComposeInstant(reminderDate, reminderTime, loc)
		if err != nil {
			return Schedule{}, renameField(err, "reminderDate", "reminderTime")
		}
		rem = rem.UTC()
		s.Reminder = &rem
	}

	return s, nil
}

func renameField(err error, dateField, timeField string) error {
	v, ok := err.(*ValidationError)
	if !ok {
		return err
	}
	switch v.Field {
	case "date":
		return &ValidationError{Field: dateField, Reason: v.Reason}
	case "time":
		return &ValidationError{Field: timeField, Reason: v.Reason}
	}
	return err
}
