//go:build unit

package notify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutcome(t *testing.T) {
	boom := errors.New("broker unreachable")

	tests := []struct {
		name        string
		attempts    int
		maxAttempts int
		err         error
		want        jobOutcome
	}{
		{name: "published", attempts: 0, maxAttempts: 3, want: outcomeSent},
		{name: "published after retries", attempts: 2, maxAttempts: 3, want: outcomeSent},
		{name: "first failure retries", attempts: 0, maxAttempts: 3, err: boom, want: outcomeRetry},
		{name: "second failure retries", attempts: 1, maxAttempts: 3, err: boom, want: outcomeRetry},
		{name: "last attempt fails the job", attempts: 2, maxAttempts: 3, err: boom, want: outcomeFailed},
		{name: "single attempt budget", attempts: 0, maxAttempts: 1, err: boom, want: outcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcome(tt.attempts, tt.maxAttempts, tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	base := 100 * time.Millisecond

	for attempt := 0; attempt < 5; attempt++ {
		floor := time.Duration(1<<attempt) * base
		got := calculateBackoff(attempt, base)
		assert.GreaterOrEqual(t, got, floor)
		assert.Less(t, got, floor+floor/5+time.Nanosecond)
	}
}

func TestCalculateBackoff_CapsExponent(t *testing.T) {
	base := time.Millisecond
	assert.Equal(t, calculateBackoff(16, 0), calculateBackoff(40, 0))
	assert.Less(t, calculateBackoff(40, base), time.Duration(1<<17)*base)
}
