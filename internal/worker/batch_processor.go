package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cuongbtq/hr-records-be/internal/importer"
	"github.com/cuongbtq/hr-records-be/internal/jobs"
	"github.com/cuongbtq/hr-records-be/internal/progress"
	"github.com/cuongbtq/hr-records-be/internal/worker/domain"
)

// BulkEmployeeStore persists an import batch in one storage operation
type BulkEmployeeStore interface {
	BulkInsertEmployees(ctx context.Context, employees []domain.Employee) error
}

// ProgressTracker records per-batch completion and terminal import failures
type ProgressTracker interface {
	CompleteBatch(ctx context.Context, jobID string, batchIndex, totalBatches int) (*progress.Record, error)
	Fail(ctx context.Context, jobID, message string) error
}

// BatchProcessor handles process-csv-batch jobs: clean and filter the raw
// rows, bulk-persist the survivors, and record batch completion. Rows failing
// shape checks are dropped silently; only the aggregate counters reflect them.
type BatchProcessor struct {
	store    BulkEmployeeStore
	progress ProgressTracker
	logger   *slog.Logger
}

// NewBatchProcessor creates a processor for the process-csv-batch topic
func NewBatchProcessor(store BulkEmployeeStore, progress ProgressTracker, logger *slog.Logger) *BatchProcessor {
	return &BatchProcessor{
		store:    store,
		progress: progress,
		logger:   logger,
	}
}

// Process runs one csv-batch job. A storage error fails the whole batch and
// takes the retry path; once attempts are exhausted the import is marked
// failed. Progress updates are keyed by batch index, so re-processing a
// batch after a transient failure cannot double-count.
func (p *BatchProcessor) Process(ctx context.Context, env *jobs.Envelope) error {
	var payload jobs.CSVBatchPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		p.logger.Error("Failed to decode csv batch payload",
			slog.String("job_id", env.JobID),
			slog.Any("error", err),
		)
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}

	if payload.TotalBatches <= 0 {
		return domain.NewValidationError("Batch job has no batches")
	}

	employees := transformRows(payload.Batch)

	if len(employees) > 0 {
		if err := p.store.BulkInsertEmployees(ctx, employees); err != nil {
			p.logger.Error("Batch persistence failed",
				slog.String("job_id", payload.JobID),
				slog.Int("batch", payload.CurrentBatch),
				slog.Int("attempt", env.Attempt),
				slog.Any("error", err),
			)

			if env.Attempt < env.MaxAttempts {
				return domain.NewRetryableError(fmt.Errorf("batch persistence failed: %w", err))
			}

			if failErr := p.progress.Fail(ctx, payload.JobID, err.Error()); failErr != nil {
				p.logger.Error("Failed to record import error",
					slog.String("job_id", payload.JobID),
					slog.Any("error", failErr),
				)
			}
			return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
		}
	}

	record, err := p.progress.CompleteBatch(ctx, payload.JobID, payload.CurrentBatch, payload.TotalBatches)
	if errors.Is(err, progress.ErrExpired) {
		// The rows are persisted; the progress record lapsed while this batch
		// sat in the queue. Nothing left to record.
		p.logger.Warn("Import progress expired before batch completion",
			slog.String("job_id", payload.JobID),
			slog.Int("batch", payload.CurrentBatch),
		)
		return nil
	}
	if err != nil {
		// The batch is persisted but unrecorded; redelivery is safe because
		// both the insert's effect and the progress update are idempotent at
		// the aggregate level.
		if env.Attempt < env.MaxAttempts {
			return domain.NewRetryableError(fmt.Errorf("progress update failed: %w", err))
		}
		return fmt.Errorf("%w: %v", domain.ErrMaxRetriesExceeded, err)
	}

	p.logger.Info("Import batch processed",
		slog.String("job_id", payload.JobID),
		slog.Int("batch", payload.CurrentBatch),
		slog.Int("rows", len(payload.Batch)),
		slog.Int("persisted", len(employees)),
		slog.Int("progress", record.Progress),
		slog.String("status", record.Status),
	)

	return nil
}

// transformRows trims and parses raw CSV rows, dropping any row that fails
// basic shape checks. Dropped rows are not retried or reported individually.
func transformRows(rows []importer.Row) []domain.Employee {
	employees := make([]domain.Employee, 0, len(rows))

	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		position := strings.TrimSpace(row.Position)

		age, ageErr := strconv.Atoi(strings.TrimSpace(row.Age))
		salary, salaryErr := strconv.ParseFloat(strings.TrimSpace(row.Salary), 64)

		if name == "" || position == "" || ageErr != nil || salaryErr != nil {
			continue
		}

		employees = append(employees, domain.Employee{
			ID:       uuid.New().String(),
			Name:     name,
			Age:      age,
			Position: position,
			Salary:   salary,
		})
	}

	return employees
}
