package provideradapters

import (
	"context"
	"net/http/httptrace"
	"time"
)

// latencyTimer measures TTFB and total duration for one provider call.
// TTFB is taken from the transport's first response byte; if the trace never
// fires (e.g. a dial failure) TTFB falls back to the total.
type latencyTimer struct {
	start time.Time
	ttfb  time.Duration
}

// withClientTrace attaches the TTFB trace to a request context and starts
// the clock.
func (t *latencyTimer) withClientTrace(ctx context.Context) context.Context {
	t.start = time.Now()
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() {
			t.ttfb = time.Since(t.start)
		},
	}
	return httptrace.WithClientTrace(ctx, trace)
}

// snapshot finalizes the measurement.
func (t *latencyTimer) snapshot() Latency {
	total := time.Since(t.start)
	ttfb := t.ttfb
	if ttfb == 0 {
		ttfb = total
	}
	return Latency{TTFBMs: ttfb.Milliseconds(), TotalMs: total.Milliseconds()}
}
