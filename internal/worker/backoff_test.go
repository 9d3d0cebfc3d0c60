package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelay(t *testing.T) {
	base := time.Second
	max := time.Minute

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{name: "first attempt", attempt: 1, want: time.Second},
		{name: "second attempt", attempt: 2, want: 2 * time.Second},
		{name: "third attempt", attempt: 3, want: 4 * time.Second},
		{name: "sixth attempt", attempt: 6, want: 32 * time.Second},
		{name: "delay capped at max", attempt: 7, want: time.Minute},
		{name: "huge attempt capped", attempt: 500, want: time.Minute},
		{name: "zero attempt treated as first", attempt: 0, want: time.Second},
		{name: "negative attempt treated as first", attempt: -3, want: time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryDelay(tt.attempt, base, max))
		})
	}
}

func TestRetryDelay_Defaults(t *testing.T) {
	assert.Equal(t, time.Second, RetryDelay(1, 0, 0))
	assert.Equal(t, time.Minute, RetryDelay(10, 0, 0))
}
