package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrExpired is returned when an update arrives after the record's TTL has
// elapsed. The stale update is dropped; writing it would resurrect the key
// without an expiry.
var ErrExpired = errors.New("import progress record expired")

// Import job status values
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// Record is the aggregate completion state of one import job.
type Record struct {
	Progress     int    `json:"progress"`
	Processed    int    `json:"processed"`
	TotalBatches int    `json:"totalBatches"`
	Status       string `json:"status"`
	Error        string `json:"error,omitempty"`
	CreatedAt    string `json:"createdAt"`
	LastUpdated  string `json:"lastUpdated"`
}

// completeBatchScript records one finished batch idempotently.
// The batch index goes into a set, processed is derived from the set's
// cardinality, so re-delivering the same batch can never overcount.
// The set inherits the hash's remaining TTL so both keys expire together.
// A hash that no longer exists has expired: the update is dropped rather
// than resurrecting the key with no TTL.
var completeBatchScript = redis.NewScript(`
local hash = KEYS[1]
local set = KEYS[2]
if redis.call('EXISTS', hash) == 0 then
  redis.call('DEL', set)
  return {-1, -1, ''}
end
redis.call('SADD', set, ARGV[1])
local ttl = redis.call('PTTL', hash)
if ttl > 0 then
  redis.call('PEXPIRE', set, ttl)
end
local total = tonumber(ARGV[2])
local processed = redis.call('SCARD', set)
if processed > total then
  processed = total
end
local prog = math.floor(processed / total * 100 + 0.5)
local status = 'processing'
if processed >= total then
  status = 'completed'
  prog = 100
end
redis.call('HSET', hash,
  'progress', prog,
  'processed', processed,
  'totalBatches', total,
  'status', status,
  'lastUpdated', ARGV[3])
return {processed, prog, status}
`)

// Store keeps per-import-job progress records in Redis hashes with a TTL.
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewStore creates a progress store. ttl bounds the lifetime of every record
// regardless of terminal state.
func NewStore(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func progressKey(jobID string) string {
	return "import-progress:" + jobID
}

func batchesKey(jobID string) string {
	return progressKey(jobID) + ":batches"
}

// Init creates the progress record before any batch job is enqueued.
func (s *Store) Init(ctx context.Context, jobID string, totalBatches int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	key := progressKey(jobID)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key,
		"progress", 0,
		"processed", 0,
		"totalBatches", totalBatches,
		"status", StatusProcessing,
		"createdAt", now,
		"lastUpdated", now,
	)
	pipe.Expire(ctx, key, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to initialize import progress: %w", err)
	}

	s.logger.Info("Import progress initialized",
		slog.String("job_id", jobID),
		slog.Int("total_batches", totalBatches),
	)

	return nil
}

// CompleteBatch marks one batch as finished and returns the updated record.
// Safe to call more than once for the same batch index.
func (s *Store) CompleteBatch(ctx context.Context, jobID string, batchIndex, totalBatches int) (*Record, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := completeBatchScript.Run(ctx, s.rdb,
		[]string{progressKey(jobID), batchesKey(jobID)},
		batchIndex, totalBatches, now,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to update import progress: %w", err)
	}

	if len(res) != 3 {
		return nil, fmt.Errorf("unexpected progress script result: %v", res)
	}

	processed, _ := res[0].(int64)
	prog, _ := res[1].(int64)
	status, _ := res[2].(string)

	if processed < 0 {
		s.logger.Warn("Dropping batch completion for expired import",
			slog.String("job_id", jobID),
			slog.Int("batch", batchIndex),
		)
		return nil, ErrExpired
	}

	s.logger.Debug("Import batch recorded",
		slog.String("job_id", jobID),
		slog.Int("batch", batchIndex),
		slog.Int64("processed", processed),
		slog.Int64("progress", prog),
		slog.String("status", status),
	)

	return &Record{
		Progress:     int(prog),
		Processed:    int(processed),
		TotalBatches: totalBatches,
		Status:       status,
		LastUpdated:  now,
	}, nil
}

// failScript writes the terminal error state only while the record still
// exists, so a late failure cannot resurrect an expired key.
var failScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1],
  'status', ARGV[1],
  'error', ARGV[2],
  'lastUpdated', ARGV[3])
return 1
`)

// Fail writes a terminal error state for the import job.
func (s *Store) Fail(ctx context.Context, jobID, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	written, err := failScript.Run(ctx, s.rdb,
		[]string{progressKey(jobID)},
		StatusError, message, now,
	).Int()
	if err != nil {
		return fmt.Errorf("failed to record import error: %w", err)
	}

	if written == 0 {
		s.logger.Warn("Dropping failure for expired import",
			slog.String("job_id", jobID),
		)
		return ErrExpired
	}

	s.logger.Warn("Import marked as failed",
		slog.String("job_id", jobID),
		slog.String("error", message),
	)

	return nil
}

// Get returns the record for jobID, or nil when none exists (or it expired).
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, progressKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read import progress: %w", err)
	}

	if len(fields) == 0 {
		return nil, nil
	}

	return &Record{
		Progress:     atoi(fields["progress"]),
		Processed:    atoi(fields["processed"]),
		TotalBatches: atoi(fields["totalBatches"]),
		Status:       fields["status"],
		Error:        fields["error"],
		CreatedAt:    fields["createdAt"],
		LastUpdated:  fields["lastUpdated"],
	}, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
