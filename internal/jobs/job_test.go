package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	payload := EmployeeCreationPayload{
		EmployeeData: map[string]any{"name": "Alice"},
		JobID:        "job-1",
		UserID:       "user-1",
	}

	env, err := NewEnvelope(TopicCreateEmployee, 3, payload)
	require.NoError(t, err)

	assert.NotEmpty(t, env.JobID)
	assert.Equal(t, TopicCreateEmployee, env.Topic)
	assert.Equal(t, 1, env.Attempt)
	assert.Equal(t, 3, env.MaxAttempts)
	assert.False(t, env.EnqueuedAt.IsZero())
}

func TestEnvelope_NextAttempt(t *testing.T) {
	env, err := NewEnvelope(TopicProcessCSVBatch, 3, CSVBatchPayload{JobID: "job-2"})
	require.NoError(t, err)

	next := env.NextAttempt()

	assert.Equal(t, 2, next.Attempt)
	assert.Equal(t, env.JobID, next.JobID)
	assert.Equal(t, env.MaxAttempts, next.MaxAttempts)
	// the original is untouched
	assert.Equal(t, 1, env.Attempt)
}

func TestEncodeDecode(t *testing.T) {
	env, err := NewEnvelope(TopicCreateEmployee, 3, EmployeeCreationPayload{JobID: "job-3"})
	require.NoError(t, err)

	body, err := env.Encode()
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, env.JobID, decoded.JobID)
	assert.Equal(t, env.Topic, decoded.Topic)
	assert.Equal(t, env.Attempt, decoded.Attempt)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("{truncated"))
	require.Error(t, err)
}
