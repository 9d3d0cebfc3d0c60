package worker

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/hr-records-be/internal/worker/domain"
)

func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

func (w *Worker) workerLoop(ctx context.Context, id int) {
	defer w.wg.Done()

	logger := w.logger.With(slog.Int("pool_worker", id))
	logger.Debug("Pool worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Pool worker stopping")
			return

		case <-w.stopChan:
			logger.Debug("Pool worker stopping")
			return

		case msg := <-w.jobsChan:
			w.handleJob(ctx, logger, msg)
		}
	}
}

func (w *Worker) handleJob(ctx context.Context, logger *slog.Logger, msg *jobMessage) {
	env := msg.envelope

	logger = logger.With(
		slog.String("job_id", env.JobID),
		slog.String("topic", env.Topic),
		slog.Int("attempt", env.Attempt),
	)

	processor, ok := w.processors[env.Topic]
	if !ok {
		logger.Error("No processor registered for topic, rejecting")
		w.nackNoRequeue(logger, msg)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := processor.Process(jobCtx, env)
	cancel()

	switch {
	case err == nil:
		if ackErr := msg.delivery.Ack(false); ackErr != nil {
			logger.Error("Failed to ack job", slog.String("error", ackErr.Error()))
			return
		}
		logger.Info("Job completed")

	case domain.IsRetryable(err):
		logger.Warn("Job failed with retryable error, scheduling retry",
			slog.String("error", err.Error()),
		)
		w.scheduleRetry(ctx, logger, msg)

	default:
		// validation failures, malformed payloads and exhausted retries all
		// end here: the processor has already emitted any terminal
		// notification, so the message is dropped from the queue
		logger.Error("Job failed permanently", slog.String("error", err.Error()))
		w.nackNoRequeue(logger, msg)
	}
}

// scheduleRetry republishes the job to the topic retry queue with a delay
// derived from the attempt number, then acks the original delivery. If the
// republish fails the delivery is requeued so the job is not lost.
func (w *Worker) scheduleRetry(ctx context.Context, logger *slog.Logger, msg *jobMessage) {
	next := msg.envelope.NextAttempt()
	delay := RetryDelay(msg.envelope.Attempt, w.retryBaseDelay, w.retryMaxDelay)

	body, err := next.Encode()
	if err != nil {
		logger.Error("Failed to encode retry envelope", slog.String("error", err.Error()))
		w.requeue(logger, msg)
		return
	}

	if err := w.rabbitClient.PublishRetry(ctx, next.Topic, body, delay); err != nil {
		logger.Error("Failed to publish retry, requeueing delivery",
			slog.String("error", err.Error()),
		)
		w.requeue(logger, msg)
		return
	}

	if err := msg.delivery.Ack(false); err != nil {
		logger.Error("Failed to ack retried job", slog.String("error", err.Error()))
		return
	}

	logger.Info("Retry scheduled",
		slog.Int("next_attempt", next.Attempt),
		slog.Duration("delay", delay),
	)
}

func (w *Worker) nackNoRequeue(logger *slog.Logger, msg *jobMessage) {
	if err := msg.delivery.Nack(false, false); err != nil {
		logger.Error("Failed to nack job", slog.String("error", err.Error()))
	}
}

func (w *Worker) requeue(logger *slog.Logger, msg *jobMessage) {
	if err := msg.delivery.Nack(false, true); err != nil {
		logger.Error("Failed to requeue job", slog.String("error", err.Error()))
	}
}
