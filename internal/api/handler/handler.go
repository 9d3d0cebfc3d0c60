package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/hr-records-be/internal/api/storage"
	"github.com/cuongbtq/hr-records-be/internal/config"
	"github.com/cuongbtq/hr-records-be/internal/notify"
	"github.com/cuongbtq/hr-records-be/internal/progress"
)

// JobEnqueuer publishes encoded job envelopes to a topic's work queue
type JobEnqueuer interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Storage      *storage.Storage
	RabbitClient JobEnqueuer
	Progress     *progress.Store
	Registry     *notify.Registry
	Auth         config.AuthConfig
	Import       config.ImportConfig
	MaxAttempts  int
}
