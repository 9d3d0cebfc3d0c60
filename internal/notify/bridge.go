package notify

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/hr-records-be/internal/pubsub"
)

// EventSource yields job-outcome events to forward to live connections.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan pubsub.Event, error)
}

// Bridge forwards pub/sub events to the live connections of the addressed
// user. Events for users with no live connection are dropped; the durable
// notification store keeps them queryable.
type Bridge struct {
	source   EventSource
	registry *Registry
	logger   *slog.Logger
}

// NewBridge wires an event source to the connection registry.
func NewBridge(source EventSource, registry *Registry, logger *slog.Logger) *Bridge {
	return &Bridge{
		source:   source,
		registry: registry,
		logger:   logger,
	}
}

// Run consumes events until ctx is canceled. Delivery failures never
// propagate: a dead or missing connection is simply skipped.
func (b *Bridge) Run(ctx context.Context) error {
	events, err := b.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	b.logger.Info("Notification bridge started")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Notification bridge stopped")
			return nil
		case event, ok := <-events:
			if !ok {
				b.logger.Info("Notification bridge source closed")
				return nil
			}

			if event.UserID == "" {
				b.logger.Warn("Event without user id, skipping",
					slog.String("type", event.Type),
					slog.String("job_id", event.JobID),
				)
				continue
			}

			delivered := b.registry.Deliver(event.UserID, event)
			b.logger.Debug("Event forwarded to live connections",
				slog.String("user_id", event.UserID),
				slog.String("job_id", event.JobID),
				slog.Int("connections", delivered),
			)
		}
	}
}
