// Package notify holds NotificationSink implementations.
package notify

import (
	"context"
	"errors"

	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/sirupsen/logrus"
)

// LogSink writes each notification as a structured log entry.
type LogSink struct {
	log *logrus.Logger
}

func NewLogSink(log *logrus.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, n usecase.Notification) error {
	s.log.WithFields(logrus.Fields{
		"task_id":   n.TaskID.String(),
		"remind_at": n.RemindAt,
	}).Info(n.Title + ": " + n.Body)
	return nil
}

// Multi fans a notification out to every sink and joins their errors.
type Multi []usecase.NotificationSink

func (m Multi) Notify(ctx context.Context, n usecase.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
