package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Channel is the fixed pub/sub channel for job-outcome events.
const Channel = "employee-notifications"

// Event types and statuses carried on the bus.
const (
	EventEmployeeCreated = "employee_created"

	StatusSuccess = "success"
	StatusError   = "error"
)

// Event is one job-outcome message broadcast to live subscribers.
// The shape is shared with the SSE push endpoint verbatim.
type Event struct {
	Type      string         `json:"type"`
	UserID    string         `json:"userId"`
	JobID     string         `json:"jobId"`
	Status    string         `json:"status"`
	Data      map[string]any `json:"data,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// Publisher broadcasts events on the employee-notifications channel.
type Publisher struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewPublisher creates a publisher over an existing Redis client.
func NewPublisher(rdb *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		rdb:    rdb,
		logger: logger,
	}
}

// Publish sends one event to every current subscriber. There is no replay:
// events published before a subscription are not redelivered.
func (p *Publisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, Channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Event published",
		slog.String("type", event.Type),
		slog.String("job_id", event.JobID),
		slog.String("status", event.Status),
	)

	return nil
}

// Subscriber consumes events from the employee-notifications channel.
type Subscriber struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewSubscriber creates a subscriber over an existing Redis client.
func NewSubscriber(rdb *redis.Client, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe opens the channel subscription and returns a stream of decoded
// events. Malformed payloads are logged and dropped. The stream closes when
// ctx is canceled.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan Event, error) {
	ps := s.rdb.Subscribe(ctx, Channel)

	// Confirm the subscription before handing out the channel
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Channel, err)
	}

	out := make(chan Event, 64)

	go func() {
		defer close(out)
		defer ps.Close()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					s.logger.Error("Failed to decode pub/sub event",
						slog.String("payload", msg.Payload),
						slog.Any("error", err),
					)
					continue
				}

				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	s.logger.Info("Subscribed to pub/sub channel",
		slog.String("channel", Channel),
	)

	return out, nil
}
