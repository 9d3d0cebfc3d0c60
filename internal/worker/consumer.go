package worker

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/hr-records-be/internal/jobs"
)

// jobMessage pairs a decoded envelope with the delivery it arrived on so the
// pool can ack or nack after processing
type jobMessage struct {
	envelope *jobs.Envelope
	delivery amqp.Delivery
}

func (w *Worker) setupConsumer(topic string) (<-chan amqp.Delivery, error) {
	consumerTag := fmt.Sprintf("%s-%s", w.workerID, topic)

	deliveries, err := w.rabbitClient.Consume(topic, consumerTag)
	if err != nil {
		return nil, err
	}

	w.logger.Info("Consumer registered",
		slog.String("topic", topic),
		slog.String("consumer_tag", consumerTag),
	)

	return deliveries, nil
}

// startMessageDispatcher reads deliveries for one topic, decodes them and
// hands them to the worker pool. Envelopes that cannot be decoded are
// rejected without requeue.
func (w *Worker) startMessageDispatcher(ctx context.Context, topic string, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()

	w.logger.Info("Message dispatcher started", slog.String("topic", topic))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopping", slog.String("topic", topic))
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopping", slog.String("topic", topic))
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Delivery channel closed", slog.String("topic", topic))
				return
			}

			env, err := jobs.Decode(delivery.Body)
			if err != nil {
				w.logger.Error("Failed to decode job envelope, rejecting",
					slog.String("topic", topic),
					slog.String("error", err.Error()),
				)

				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to nack malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			select {
			case w.jobsChan <- &jobMessage{envelope: env, delivery: delivery}:
			case <-ctx.Done():
				return
			case <-w.stopChan:
				return
			}
		}
	}
}
