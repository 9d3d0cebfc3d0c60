package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-records-be/internal/importer"
	"github.com/cuongbtq/hr-records-be/internal/jobs"
	"github.com/cuongbtq/hr-records-be/internal/progress"
	"github.com/cuongbtq/hr-records-be/internal/worker/domain"
)

type fakeBulkStore struct {
	batches   [][]domain.Employee
	insertErr error
}

func (f *fakeBulkStore) BulkInsertEmployees(_ context.Context, employees []domain.Employee) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.batches = append(f.batches, employees)
	return nil
}

type fakeProgressTracker struct {
	completed   [][2]int // batchIndex, totalBatches
	failures    []string
	completeErr error
	record      *progress.Record
}

func (f *fakeProgressTracker) CompleteBatch(_ context.Context, _ string, batchIndex, totalBatches int) (*progress.Record, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	f.completed = append(f.completed, [2]int{batchIndex, totalBatches})
	if f.record != nil {
		return f.record, nil
	}
	return &progress.Record{Progress: 100, Processed: totalBatches, TotalBatches: totalBatches, Status: progress.StatusCompleted}, nil
}

func (f *fakeProgressTracker) Fail(_ context.Context, _, message string) error {
	f.failures = append(f.failures, message)
	return nil
}

func batchEnvelope(t *testing.T, payload jobs.CSVBatchPayload, attempt int) *jobs.Envelope {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	return &jobs.Envelope{
		JobID:       payload.JobID,
		Topic:       jobs.TopicProcessCSVBatch,
		Attempt:     attempt,
		MaxAttempts: 3,
		Payload:     body,
	}
}

func TestBatchProcessor_Process_Success(t *testing.T) {
	store := &fakeBulkStore{}
	tracker := &fakeProgressTracker{}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch: []importer.Row{
			{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"},
			{Name: "Bob", Age: "45", Position: "Manager", Salary: "110000.50"},
		},
		JobID:        "import-1",
		CurrentBatch: 2,
		TotalBatches: 3,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.NoError(t, err)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)
	assert.Equal(t, "Alice", store.batches[0][0].Name)
	assert.Equal(t, 30, store.batches[0][0].Age)
	assert.Equal(t, 110000.50, store.batches[0][1].Salary)

	require.Len(t, tracker.completed, 1)
	assert.Equal(t, [2]int{2, 3}, tracker.completed[0])
	assert.Empty(t, tracker.failures)
}

func TestBatchProcessor_Process_DropsInvalidRows(t *testing.T) {
	store := &fakeBulkStore{}
	tracker := &fakeProgressTracker{}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch: []importer.Row{
			{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"},
			{Name: "", Age: "30", Position: "Engineer", Salary: "85000"},
			{Name: "Bob", Age: "forty", Position: "Manager", Salary: "85000"},
			{Name: "Carol", Age: "28", Position: "", Salary: "85000"},
			{Name: "Dave", Age: "50", Position: "Director", Salary: "abc"},
		},
		JobID:        "import-2",
		CurrentBatch: 1,
		TotalBatches: 1,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.NoError(t, err)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 1)
	assert.Equal(t, "Alice", store.batches[0][0].Name)

	// batch still counts toward progress even with dropped rows
	require.Len(t, tracker.completed, 1)
}

func TestBatchProcessor_Process_AllRowsInvalid(t *testing.T) {
	store := &fakeBulkStore{}
	tracker := &fakeProgressTracker{}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch: []importer.Row{
			{Name: "", Age: "", Position: "", Salary: ""},
		},
		JobID:        "import-3",
		CurrentBatch: 1,
		TotalBatches: 1,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.NoError(t, err)

	// no storage call for an empty batch, progress still recorded
	assert.Empty(t, store.batches)
	require.Len(t, tracker.completed, 1)
}

func TestBatchProcessor_Process_NoBatches(t *testing.T) {
	processor := NewBatchProcessor(&fakeBulkStore{}, &fakeProgressTracker{}, discardLogger())

	payload := jobs.CSVBatchPayload{
		JobID:        "import-4",
		CurrentBatch: 1,
		TotalBatches: 0,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestBatchProcessor_Process_StorageFailureRetryable(t *testing.T) {
	store := &fakeBulkStore{insertErr: errors.New("deadlock detected")}
	tracker := &fakeProgressTracker{}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch:        []importer.Row{{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"}},
		JobID:        "import-5",
		CurrentBatch: 1,
		TotalBatches: 2,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))

	// import not marked failed while attempts remain
	assert.Empty(t, tracker.failures)
	assert.Empty(t, tracker.completed)
}

func TestBatchProcessor_Process_StorageFailureExhausted(t *testing.T) {
	store := &fakeBulkStore{insertErr: errors.New("deadlock detected")}
	tracker := &fakeProgressTracker{}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch:        []importer.Row{{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"}},
		JobID:        "import-6",
		CurrentBatch: 1,
		TotalBatches: 2,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 3))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMaxRetriesExceeded)
	assert.False(t, domain.IsRetryable(err))

	require.Len(t, tracker.failures, 1)
	assert.Equal(t, "deadlock detected", tracker.failures[0])
}

func TestBatchProcessor_Process_ProgressExpired(t *testing.T) {
	store := &fakeBulkStore{}
	tracker := &fakeProgressTracker{completeErr: progress.ErrExpired}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch:        []importer.Row{{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"}},
		JobID:        "import-9",
		CurrentBatch: 1,
		TotalBatches: 2,
	}

	// rows are persisted and the lapsed record is left alone: the job must
	// complete, not spin on retries
	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.NoError(t, err)
	require.Len(t, store.batches, 1)
	assert.Empty(t, tracker.failures)
}

func TestBatchProcessor_Process_ProgressFailureRetryable(t *testing.T) {
	store := &fakeBulkStore{}
	tracker := &fakeProgressTracker{completeErr: errors.New("redis timeout")}
	processor := NewBatchProcessor(store, tracker, discardLogger())

	payload := jobs.CSVBatchPayload{
		Batch:        []importer.Row{{Name: "Alice", Age: "30", Position: "Engineer", Salary: "85000"}},
		JobID:        "import-7",
		CurrentBatch: 1,
		TotalBatches: 2,
	}

	err := processor.Process(context.Background(), batchEnvelope(t, payload, 1))
	require.Error(t, err)
	assert.True(t, domain.IsRetryable(err))
	require.Len(t, store.batches, 1)
}

func TestBatchProcessor_Process_MalformedPayload(t *testing.T) {
	processor := NewBatchProcessor(&fakeBulkStore{}, &fakeProgressTracker{}, discardLogger())

	env := &jobs.Envelope{
		JobID:       "import-8",
		Topic:       jobs.TopicProcessCSVBatch,
		Attempt:     1,
		MaxAttempts: 3,
		Payload:     json.RawMessage(`[`),
	}

	err := processor.Process(context.Background(), env)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)
}
