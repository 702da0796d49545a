package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Wenjie0329/email-pitch-tool/internal/queue"
)

const watcherRetryDelay = time.Second

// Watcher turns append notifications into drain wakeups
type Watcher struct {
	subscriber queue.NotificationSubscriber
	retryDelay time.Duration
	log        *zap.Logger
}

// NewWatcher creates a new notification watcher
func NewWatcher(subscriber queue.NotificationSubscriber, log *zap.Logger) *Watcher {
	return &Watcher{
		subscriber: subscriber,
		retryDelay: watcherRetryDelay,
		log:        log,
	}
}

// Start polls until ctx is cancelled. Wakeups coalesce: if a signal is
// already pending, new notifications are dropped.
func (w *Watcher) Start(ctx context.Context, wake chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Watcher shutting down")
			return
		default:
		}

		notifications, err := w.subscriber.ReceiveNotifications(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			w.log.Error("Error receiving notifications", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(w.retryDelay):
			}
			continue
		}

		if len(notifications) == 0 {
			continue
		}

		w.log.Debug("Received append notifications", zap.Int("count", len(notifications)))

		select {
		case wake <- struct{}{}:
		default:
		}
	}
}
