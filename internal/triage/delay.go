package triage

import (
	"context"
	"math/rand"
	"time"
)

// Delay models the engine's simulated thinking time. It is injected so
// interactive deployments get a humanizing pause while tests run with
// no delay at all.
type Delay interface {
	// Sleep blocks for the strategy's duration or until ctx is done.
	Sleep(ctx context.Context)
}

// NoDelay returns immediately. Used in tests and batch contexts.
type NoDelay struct{}

func (NoDelay) Sleep(context.Context) {}

// RandomDelay sleeps a uniformly random duration in [Min, Max].
type RandomDelay struct {
	Min time.Duration
	Max time.Duration
}

func (d RandomDelay) Sleep(ctx context.Context) {
	wait := d.Min
	if d.Max > d.Min {
		wait += time.Duration(rand.Int63n(int64(d.Max - d.Min)))
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
