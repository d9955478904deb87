package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/KarpovAlexandrGo/taskmaster/internal/entity"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultReminderWindow = 30 * time.Minute
	NotificationDismiss   = 10 * time.Second
)

// Notification is the payload emitted for a task whose reminder is due soon.
type Notification struct {
	TaskID              uuid.UUID `json:"taskId"`
	Title               string    `json:"title"`
	Body                string    `json:"body"`
	RemindAt            time.Time `json:"remindAt"`
	DismissAfterSeconds int       `json:"dismissAfterSeconds"`
}

// NotificationSink delivers notifications, e.g. to a log or a message channel.
type NotificationSink interface {
	Notify(ctx context.Context, n Notification) error
}

// DueSoon reports whether an open task's reminder falls within (now, now+window].
func DueSoon(t entity.Task, now time.Time, window time.Duration) bool {
	if t.Reminder == nil || t.IsCompleted() {
		return false
	}
	until := t.Reminder.Sub(now)
	return until > 0 && until <= window
}

type ReminderNotifier struct {
	sink     NotificationSink
	window   time.Duration
	dedupe   bool
	clock    func() time.Time
	observer Observer

	mu   sync.Mutex
	sent map[sentKey]struct{}
}

type sentKey struct {
	id uuid.UUID
	at int64
}

type NotifierOption func(*ReminderNotifier)

func WithWindow(d time.Duration) NotifierOption {
	return func(n *ReminderNotifier) {
		if d > 0 {
			n.window = d
		}
	}
}

// WithDedupe suppresses repeat notifications for the same task and reminder
// instant for the lifetime of the notifier.
func WithDedupe(on bool) NotifierOption {
	return func(n *ReminderNotifier) { n.dedupe = on }
}

func WithNotifierClock(clock func() time.Time) NotifierOption {
	return func(n *ReminderNotifier) { n.clock = clock }
}

func WithNotifierObserver(o Observer) NotifierOption {
	return func(n *ReminderNotifier) {
		if o != nil {
			n.observer = o
		}
	}
}

func NewReminderNotifier(sink NotificationSink, opts ...NotifierOption) *ReminderNotifier {
	n := &ReminderNotifier{
		sink:     sink,
		window:   DefaultReminderWindow,
		clock:    time.Now,
		observer: nopObserver{},
		sent:     make(map[sentKey]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *ReminderNotifier) Window() time.Duration {
	return n.window
}

// Check evaluates tasks against the current time and returns a notification
// for each one due soon. Each returned notification is also sent to the sink
// once; sink failures are logged and do not drop the notification.
func (n *ReminderNotifier) Check(ctx context.Context, tasks []entity.Task) []Notification {
	now := n.clock()

	var out []Notification
	for _, t := range tasks {
		if !DueSoon(t, now, n.window) {
			continue
		}
		if n.dedupe && !n.markSent(t) {
			continue
		}

		note := Notification{
			TaskID:              t.ID,
			Title:               "Task Reminder",
			Body:                fmt.Sprintf("%s is due in %d minutes", t.Title, int(n.window.Minutes())),
			RemindAt:            *t.Reminder,
			DismissAfterSeconds: int(NotificationDismiss.Seconds()),
		}
		out = append(out, note)

		if n.sink == nil {
			continue
		}
		err := n.sink.Notify(ctx, note)
		n.observer.ObserveNotification(err)
		if err != nil {
			logger.Log.WithField("task_id", t.ID.String()).WithError(err).Warn("Failed to deliver reminder notification")
		}
	}
	return out
}

func (n *ReminderNotifier) markSent(t entity.Task) bool {
	key := sentKey{id: t.ID, at: t.Reminder.UnixNano()}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.sent[key]; ok {
		return false
	}
	n.sent[key] = struct{}{}
	return true
}
