package circuitbreaker

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swcolombo/waitlist-api/pkg/metrics"
)

func TestExecute_Success(t *testing.T) {
	cb := New("test-success", nil)

	got, err := Execute(cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestExecute_ReturnsResultWithError(t *testing.T) {
	cb := New("test-partial", nil)
	boom := errors.New("boom")

	got, err := Execute(cb, func() (int, error) { return 7, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 7, got)
}

func TestExecute_OpensAfterFailures(t *testing.T) {
	cb := New("test-open", nil)

	boom := errors.New("boom")
	for i := 0; i < minRequestsToTrip; i++ {
		_, err := Execute(cb, func() (int, error) { return 0, boom })
		assert.ErrorIs(t, err, boom)
		assert.False(t, IsRejected(err))
	}

	assert.True(t, IsOpen(cb))
	assert.Equal(t, float64(gobreaker.StateOpen), testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("test-open")))

	called := false
	_, err := Execute(cb, func() (int, error) { called = true; return 1, nil })
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.True(t, IsRejected(err))
	assert.Contains(t, err.Error(), `breaker "test-open"`)
}

func TestExecute_IsSuccessfulKeepsCircuitClosed(t *testing.T) {
	business := errors.New("rejected by remote")
	cb := New("test-business", func(err error) bool { return err == nil || errors.Is(err, business) })

	for i := 0; i < 10; i++ {
		_, err := Execute(cb, func() (int, error) { return 0, business })
		assert.ErrorIs(t, err, business)
	}

	assert.False(t, IsOpen(cb))
}

func TestSettings_ReadyToTrip(t *testing.T) {
	trip := Settings("x", nil).ReadyToTrip

	assert.False(t, trip(gobreaker.Counts{Requests: 4, TotalFailures: 4}))
	assert.False(t, trip(gobreaker.Counts{Requests: 10, TotalFailures: 5}))
	assert.True(t, trip(gobreaker.Counts{Requests: 5, TotalFailures: 3}))
}

func TestIsRejected(t *testing.T) {
	assert.True(t, IsRejected(gobreaker.ErrTooManyRequests))
	assert.False(t, IsRejected(errors.New("other")))
	assert.False(t, IsRejected(nil))
}
