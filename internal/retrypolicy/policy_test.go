package retrypolicy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoff_RateLimitedExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < 4; attempt++ {
		base := time.Duration(1000*(1<<attempt)) * time.Millisecond
		for i := 0; i < 20; i++ {
			d := Backoff(ClassRateLimited, attempt)
			require.GreaterOrEqual(t, d, base)
			require.Less(t, d, base+1000*time.Millisecond)
		}
	}
}

func TestBackoff_RateLimitedCapped(t *testing.T) {
	// At attempt 10 the uncapped delay is over 1000 seconds.
	require.Equal(t, 30000*time.Millisecond, Backoff(ClassRateLimited, 10))
}

func TestBackoff_TransientLinear(t *testing.T) {
	require.Equal(t, 1000*time.Millisecond, Backoff(ClassTransient, 0))
	require.Equal(t, 2000*time.Millisecond, Backoff(ClassTransient, 1))
	require.Equal(t, 3000*time.Millisecond, Backoff(ClassTransient, 2))
}

func TestBackoff_ParseFixed(t *testing.T) {
	require.Equal(t, 500*time.Millisecond, Backoff(ClassParse, 0))
	require.Equal(t, 500*time.Millisecond, Backoff(ClassParse, 5))
}

func TestBackoff_NoneZero(t *testing.T) {
	require.Equal(t, time.Duration(0), Backoff(ClassNone, 0))
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 3, Classify: func(error) Class { return ClassTransient }}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	var slept []time.Duration
	p := Policy{
		MaxAttempts: 3,
		Classify:    func(error) Class { return ClassTransient },
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, slept)
}

func TestDo_PermanentErrorNotRetried(t *testing.T) {
	calls := 0
	permanent := errors.New("bad input")
	p := Policy{
		MaxAttempts: 5,
		Classify:    func(error) Class { return ClassNone },
		Sleep: func(ctx context.Context, d time.Duration) error {
			t.Fatal("sleep should not be called for permanent errors")
			return nil
		},
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return permanent
	})

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	failure := errors.New("still down")
	p := Policy{
		MaxAttempts: 3,
		Classify:    func(error) Class { return ClassTransient },
		Sleep:       func(ctx context.Context, d time.Duration) error { return nil },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return failure
	})

	require.ErrorIs(t, err, failure)
	require.Equal(t, 3, calls)
}

func TestDo_ZeroMaxAttemptsMeansOne(t *testing.T) {
	calls := 0
	p := Policy{Classify: func(error) Class { return ClassTransient }}

	_ = p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("nope")
	})

	require.Equal(t, 1, calls)
}

func TestDo_CancelledSleepStopsRetrying(t *testing.T) {
	calls := 0
	failure := errors.New("transient")
	p := Policy{
		MaxAttempts: 5,
		Classify:    func(error) Class { return ClassTransient },
		Sleep:       func(ctx context.Context, d time.Duration) error { return context.Canceled },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return failure
	})

	require.ErrorIs(t, err, failure)
	require.Equal(t, 1, calls)
}
