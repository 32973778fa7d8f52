package builder

import (
	"context"
	"fmt"
	"sync"
)

// ProgressFunc receives the completed percentage of a pass, 0 to 100.
type ProgressFunc func(task string, percent float64)

// ProgressTracker tracks the unit-of-work budget of one pass and is the single
// point where cancellation is observed.
type ProgressTracker struct {
	ctx    context.Context
	task   string
	report ProgressFunc

	mu     sync.Mutex
	worked float64
}

func NewProgressTracker(ctx context.Context, task string, report ProgressFunc) *ProgressTracker {
	return &ProgressTracker{ctx: ctx, task: task, report: report}
}

// CheckCancelled returns an error wrapping ErrCanceled once the pass context is done.
func (t *ProgressTracker) CheckCancelled() error {
	if err := t.ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCanceled, err)
	}
	return nil
}

// Advance adds fraction (of the whole pass) to the work done, capped at 1.
func (t *ProgressTracker) Advance(fraction float64) {
	if fraction <= 0 {
		return
	}
	t.mu.Lock()
	t.worked += fraction
	if t.worked > 1 {
		t.worked = 1
	}
	worked := t.worked
	t.mu.Unlock()
	t.emit(worked)
}

// Done completes the budget regardless of how much was advanced.
func (t *ProgressTracker) Done() {
	t.mu.Lock()
	t.worked = 1
	t.mu.Unlock()
	t.emit(1)
}

func (t *ProgressTracker) Percent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.worked * 100
}

func (t *ProgressTracker) emit(worked float64) {
	if t.report != nil {
		t.report(t.task, worked*100)
	}
}
