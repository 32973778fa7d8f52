package backend

import (
	"context"
	"sync"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// Promise is the Future implementation shared by backend adapters. The adapter
// resolves it exactly once from its own goroutine.
type Promise struct {
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
	result types.CompileResult
	err    error
}

func NewPromise(cancel context.CancelFunc) *Promise {
	if cancel == nil {
		cancel = func() {}
	}
	return &Promise{done: make(chan struct{}), cancel: cancel}
}

// Resolved returns an already completed Promise.
func Resolved(res types.CompileResult, err error) *Promise {
	p := NewPromise(nil)
	p.Resolve(res, err)
	return p
}

func (p *Promise) Resolve(res types.CompileResult, err error) {
	p.once.Do(func() {
		p.result = res
		p.err = err
		close(p.done)
	})
}

func (p *Promise) Done() <-chan struct{} {
	return p.done
}

func (p *Promise) Result() (types.CompileResult, error) {
	<-p.done
	return p.result, p.err
}

func (p *Promise) Cancel() {
	p.cancel()
}

// Wait blocks until f completes or ctx is done. On ctx expiry the call is cancelled.
func Wait(ctx context.Context, f Future) (types.CompileResult, error) {
	select {
	case <-f.Done():
		return f.Result()
	case <-ctx.Done():
		f.Cancel()
		return types.CompileResult{}, ctx.Err()
	}
}
