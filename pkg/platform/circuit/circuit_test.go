package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b := New("screening", WithFailureThreshold(3))

	assert.False(t, b.RecordFailure())
	assert.False(t, b.RecordFailure())
	assert.False(t, b.IsOpen())

	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())
}

func TestBreaker_SuccessResetsFailureStreak(t *testing.T) {
	b := New("screening", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "non-consecutive failures must not trip the circuit")
}

func TestBreaker_ClosesAfterConsecutiveSuccesses(t *testing.T) {
	b := New("screening", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	assert.False(t, b.RecordSuccess())
	assert.True(t, b.IsOpen(), "one success is not enough to close")

	assert.True(t, b.RecordSuccess())
	assert.False(t, b.IsOpen())
}

func TestBreaker_FailureWhileOpenResetsSuccessStreak(t *testing.T) {
	b := New("screening", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordSuccess()
	assert.True(t, b.IsOpen(), "successes must be consecutive to close")
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []State
	b := New("screening",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithStateChange(func(_ string, state State) {
			transitions = append(transitions, state)
		}))

	b.RecordFailure()
	b.RecordSuccess()
	assert.Equal(t, []State{StateOpen, StateClosed}, transitions)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("screening", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.False(t, b.RecordFailure(), "counts start over after reset")
}
