package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/redis/go-redis/v9"
)

const ReminderChannel = "taskmaster:reminders"

// ReminderPublisher is a notification sink that publishes each due-soon
// reminder as JSON on a Redis channel.
type ReminderPublisher struct {
	client  *redis.Client
	channel string
}

func NewReminderPublisher(client *redis.Client) *ReminderPublisher {
	return &ReminderPublisher{client: client, channel: ReminderChannel}
}

func (p *ReminderPublisher) Notify(ctx context.Context, n usecase.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}
