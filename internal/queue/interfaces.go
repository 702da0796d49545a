package queue

import (
	"context"

	"github.com/Wenjie0329/email-pitch-tool/internal/domain"
)

// EventPublisher announces appended events to downstream subscribers
type EventPublisher interface {
	PublishEvent(ctx context.Context, notification domain.Notification) error
}

// NotificationSubscriber receives append announcements. An empty result
// with a nil error means the poll window elapsed quietly.
type NotificationSubscriber interface {
	ReceiveNotifications(ctx context.Context) ([]domain.Notification, error)
}
