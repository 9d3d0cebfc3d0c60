package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongbtq/hr-records-be/internal/importer"
	"github.com/google/uuid"
)

// Topics processed by the worker service. Each topic maps to one durable queue.
const (
	TopicCreateEmployee  = "create-employee"
	TopicProcessCSVBatch = "process-csv-batch"
)

// Topics lists every queue the worker consumes, in declaration order.
var Topics = []string{TopicCreateEmployee, TopicProcessCSVBatch}

// Envelope is the wire format for one unit of asynchronous work.
// Attempt starts at 1 and is incremented on every redelivery the worker
// schedules; delivery stops for good once Attempt reaches MaxAttempts.
type Envelope struct {
	JobID       string          `json:"job_id"`
	Topic       string          `json:"topic"`
	Attempt     int             `json:"attempt"`
	MaxAttempts int             `json:"max_attempts"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
	Payload     json.RawMessage `json:"payload"`
}

// EmployeeCreationPayload carries one requester-submitted employee record.
// EmployeeData stays a generic map so validation can distinguish a field that
// is absent from one that is present but empty.
type EmployeeCreationPayload struct {
	EmployeeData map[string]any `json:"employeeData"`
	JobID        string         `json:"jobId"`
	UserID       string         `json:"userId"`
}

// CSVBatchPayload carries one batch of raw import rows.
// CurrentBatch is the zero-based batch index within the import job.
type CSVBatchPayload struct {
	Batch        []importer.Row `json:"batch"`
	JobID        string         `json:"jobId"`
	CurrentBatch int            `json:"currentBatch"`
	TotalBatches int            `json:"totalBatches"`
}

// NewEnvelope wraps a payload for publishing on the given topic.
func NewEnvelope(topic string, maxAttempts int, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	return &Envelope{
		JobID:       uuid.New().String(),
		Topic:       topic,
		Attempt:     1,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
		Payload:     raw,
	}, nil
}

// NextAttempt returns a copy of the envelope with the attempt counter advanced,
// ready to be published to the retry queue.
func (e *Envelope) NextAttempt() *Envelope {
	next := *e
	next.Attempt++
	return &next
}

// Encode serializes the envelope for publishing.
func (e *Envelope) Encode() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job envelope: %w", err)
	}
	return body, nil
}

// Decode parses an envelope off the wire.
func Decode(body []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(body, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job envelope: %w", err)
	}
	if e.Topic == "" {
		return nil, fmt.Errorf("job envelope has no topic")
	}
	if e.Attempt <= 0 {
		e.Attempt = 1
	}
	return &e, nil
}
