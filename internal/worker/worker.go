package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/jobs"
	"github.com/cuongbtq/hr-records-be/shared/rabbitmq"
)

// Processor handles all jobs of one topic
type Processor interface {
	Process(ctx context.Context, env *jobs.Envelope) error
}

// Config holds worker configuration
type Config struct {
	Logger         *slog.Logger
	RabbitClient   *rabbitmq.Client
	Processors     map[string]Processor
	Concurrency    int
	JobTimeout     time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// Worker consumes the per-topic job queues and processes envelopes on a
// fixed-size goroutine pool
type Worker struct {
	logger         *slog.Logger
	rabbitClient   *rabbitmq.Client
	processors     map[string]Processor
	concurrency    int
	jobTimeout     time.Duration
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	workerID       string
	jobsChan       chan *jobMessage
	wg             sync.WaitGroup
	stopChan       chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	hostname, _ := os.Hostname()

	return &Worker{
		logger:         cfg.Logger,
		rabbitClient:   cfg.RabbitClient,
		processors:     cfg.Processors,
		concurrency:    cfg.Concurrency,
		jobTimeout:     cfg.JobTimeout,
		retryBaseDelay: cfg.RetryBaseDelay,
		retryMaxDelay:  cfg.RetryMaxDelay,
		workerID:       fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		jobsChan:       make(chan *jobMessage),
		stopChan:       make(chan struct{}),
	}
}

// Start begins consuming and processing jobs. It blocks until ctx is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	w.spawnWorkerPool(ctx)

	for _, topic := range jobs.Topics {
		if _, ok := w.processors[topic]; !ok {
			continue
		}

		deliveries, err := w.setupConsumer(topic)
		if err != nil {
			return fmt.Errorf("failed to start consumer for topic %s: %w", topic, err)
		}

		w.wg.Add(1)
		go w.startMessageDispatcher(ctx, topic, deliveries)
	}

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
