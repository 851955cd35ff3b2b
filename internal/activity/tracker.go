// Package activity turns raw user interaction signals into UpdateActivity calls.
package activity

import (
	"context"
	"sync/atomic"
)

// Kind is a qualifying user interaction.
type Kind string

const (
	PointerMove Kind = "pointer_move"
	KeyPress    Kind = "key_press"
	Scroll      Kind = "scroll"
	Touch       Kind = "touch"
	Click       Kind = "click"
)

// Qualifies reports whether k counts as user activity.
func (k Kind) Qualifies() bool {
	switch k {
	case PointerMove, KeyPress, Scroll, Touch, Click:
		return true
	}
	return false
}

// Sink receives coalesced activity.
type Sink interface {
	UpdateActivity(ctx context.Context)
}

// Tracker collects interaction signals from any goroutine and forwards them to a Sink
// from Run. Signals that arrive while one is already pending collapse into it, so a burst
// of events produces a single UpdateActivity call.
type Tracker struct {
	sink    Sink
	pending chan struct{}

	observed  atomic.Int64
	coalesced atomic.Int64
	forwarded atomic.Int64
}

// NewTracker returns a Tracker feeding sink.
func NewTracker(sink Sink) *Tracker {
	return &Tracker{sink: sink, pending: make(chan struct{}, 1)}
}

// Observe records one interaction. It never blocks. Non-qualifying kinds are ignored.
func (t *Tracker) Observe(k Kind) {
	if !k.Qualifies() {
		return
	}
	t.observed.Add(1)
	select {
	case t.pending <- struct{}{}:
	default:
		t.coalesced.Add(1)
	}
}

// Run forwards pending activity to the sink until ctx is done.
func (t *Tracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.pending:
			t.sink.UpdateActivity(ctx)
			t.forwarded.Add(1)
		}
	}
}

// Stats reports observed, coalesced and forwarded signal counts.
type Stats struct {
	Observed  int64
	Coalesced int64
	Forwarded int64
}

func (t *Tracker) Stats() Stats {
	return Stats{
		Observed:  t.observed.Load(),
		Coalesced: t.coalesced.Load(),
		Forwarded: t.forwarded.Load(),
	}
}
