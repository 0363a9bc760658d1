package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerStartsClosed(t *testing.T) {
	b := NewCircuitBreaker()
	assert.NoError(t, b.Allow())
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 3

	for i := 0; i < 2; i++ {
		b.RecordFailure()
		require.NoError(t, b.Allow())
	}
	b.RecordFailure()

	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestCircuitBreakerHalfOpensAfterResetTimeout(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.ResetTimeout = 10 * time.Millisecond

	b.RecordFailure()
	assert.ErrorIs(t, b.Allow(), ErrOpen)

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, b.Allow(), "should allow a single half-open trial call")
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.ResetTimeout = 10 * time.Millisecond

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordFailure()
	assert.ErrorIs(t, b.Allow(), ErrOpen)
}

func TestCircuitBreakerHalfOpenSuccessCloses(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 1
	b.ResetTimeout = 10 * time.Millisecond

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, b.Allow())

	b.RecordSuccess()
	assert.NoError(t, b.Allow())
}

func TestCircuitBreakerFailuresOutsideWindowDontAccumulate(t *testing.T) {
	b := NewCircuitBreaker()
	b.FailureThreshold = 2
	b.Window = 10 * time.Millisecond

	b.RecordFailure()
	time.Sleep(20 * time.Millisecond)
	b.RecordFailure()

	assert.NoError(t, b.Allow(), "first failure should have aged out of the window")
}
