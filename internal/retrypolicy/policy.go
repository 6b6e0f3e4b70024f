// Package retrypolicy provides one shared retry abstraction for the three
// external collaborators (voice providers, transcription, LLM judge) so each
// caller classifies its own errors but the attempt loop and backoff math live
// in a single place.
package retrypolicy

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Class describes how a failed attempt should be handled.
type Class int

const (
	// ClassNone means the error is permanent; do not retry.
	ClassNone Class = iota
	// ClassRateLimited gets exponential backoff with jitter.
	ClassRateLimited
	// ClassTransient (connection/timeout) gets linear backoff.
	ClassTransient
	// ClassParse (malformed collaborator output) gets one short fixed delay.
	ClassParse
)

const (
	baseDelay      = 1000 * time.Millisecond
	maxDelay       = 30000 * time.Millisecond
	parseFixedWait = 500 * time.Millisecond
)

// Policy drives bounded retries around a collaborator call.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// Classify maps an attempt's error to a retry class.
	Classify func(err error) Class
	// Sleep waits between attempts. Injectable so tests run without real
	// delays; defaults to a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Backoff returns the wait before retrying attempt (0-based: the delay after
// the first failed attempt uses attempt=0).
//
// Rate limits: min(1000*2^attempt + rand(0,1000), 30000) ms.
// Transient:   1000*(attempt+1) ms.
// Parse:       fixed 500 ms.
func Backoff(class Class, attempt int) time.Duration {
	switch class {
	case ClassRateLimited:
		d := time.Duration(float64(baseDelay)*math.Pow(2, float64(attempt))) +
			time.Duration(rand.Int63n(1000))*time.Millisecond
		if d > maxDelay {
			d = maxDelay
		}
		return d
	case ClassTransient:
		return baseDelay * time.Duration(attempt+1)
	case ClassParse:
		return parseFixedWait
	default:
		return 0
	}
}

// Do runs fn until it succeeds, its error classifies as ClassNone, attempts
// run out, or the context is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		class := ClassNone
		if p.Classify != nil {
			class = p.Classify(lastErr)
		}
		if class == ClassNone || attempt == attempts-1 {
			return lastErr
		}
		if err := sleep(ctx, Backoff(class, attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
