package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/hr-records-be/shared/logger"
)

func newTestBus(t *testing.T) (*Publisher, *Subscriber) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	log := logger.NewDefault().Logger
	return NewPublisher(rdb, log), NewSubscriber(rdb, log)
}

func waitForEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	pub, sub := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	sent := Event{
		Type:      EventEmployeeCreated,
		UserID:    "user-1",
		JobID:     "job-1",
		Status:    StatusSuccess,
		Data:      map[string]any{"employee": map[string]any{"name": "John Doe"}},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, pub.Publish(ctx, sent))

	got := waitForEvent(t, events)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.UserID, got.UserID)
	assert.Equal(t, sent.JobID, got.JobID)
	assert.Equal(t, sent.Status, got.Status)
	assert.Equal(t, sent.Timestamp, got.Timestamp)
}

func TestPublish_ErrorEvent(t *testing.T) {
	pub, sub := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, pub.Publish(ctx, Event{
		Type:      EventEmployeeCreated,
		UserID:    "user-1",
		JobID:     "job-2",
		Status:    StatusError,
		Error:     "Salary must be a positive number",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}))

	got := waitForEvent(t, events)
	assert.Equal(t, StatusError, got.Status)
	assert.Equal(t, "Salary must be a positive number", got.Error)
	assert.Nil(t, got.Data)
}

func TestSubscribe_CancelClosesStream(t *testing.T) {
	_, sub := newTestBus(t)

	ctx, cancel := context.WithCancel(context.Background())

	events, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-events:
		assert.False(t, ok, "event channel should be closed after cancel")
	case <-time.After(2 * time.Second):
		t.Fatal("event channel was not closed after cancel")
	}
}
