package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func fail(context.Context) error { return errBackend }
func ok(context.Context) error   { return nil }

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

func TestCircuitBreaker_ClosedState(t *testing.T) {
	cb := New("test", Settings{ReadyToTrip: tripAfter(3)})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, cb.Execute(ctx, ok))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(5), cb.Counts().TotalSuccesses)
}

func TestCircuitBreaker_TripsAndRejects(t *testing.T) {
	cb := New("test", Settings{ReadyToTrip: tripAfter(3), Timeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, fail), errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrOpenState)
	assert.False(t, called, "打开状态不应调用fn")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New("test", Settings{ReadyToTrip: tripAfter(1), Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenToOpen(t *testing.T) {
	cb := New("test", Settings{ReadyToTrip: tripAfter(1), Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)

	_ = cb.Execute(ctx, fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	cb := New("redis", Settings{
		ReadyToTrip: tripAfter(2),
		Timeout:     20 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	time.Sleep(30 * time.Millisecond)
	_ = cb.Execute(ctx, ok)

	assert.Equal(t, []string{
		"redis:CLOSED->OPEN",
		"redis:OPEN->HALF_OPEN",
		"redis:HALF_OPEN->CLOSED",
	}, transitions)
}

func TestCircuitBreaker_IsSuccessful(t *testing.T) {
	notFound := errors.New("not found")
	cb := New("test", Settings{
		ReadyToTrip:  tripAfter(1),
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, notFound) },
	})

	err := cb.Execute(context.Background(), func(context.Context) error { return notFound })
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCounts_FailureRate(t *testing.T) {
	assert.Equal(t, float64(0), Counts{}.FailureRate())
	assert.Equal(t, 0.25, Counts{Requests: 4, TotalFailures: 1}.FailureRate())
}
