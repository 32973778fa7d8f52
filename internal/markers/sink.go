package markers

import (
	"context"
	"sync"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// Sink is the write side of diagnostic storage.
type Sink interface {
	Add(ctx context.Context, d types.Diagnostic) error
	// Clear removes every diagnostic attached to resource.
	Clear(ctx context.Context, project, resource string) error
	// ClearProject removes every diagnostic of the project, project level ones included.
	ClearProject(ctx context.Context, project string) error
}

// Reader is implemented by sinks that can be queried.
type Reader interface {
	List(ctx context.Context, project string) ([]types.Diagnostic, error)
}

// Memory keeps diagnostics in insertion order.
type Memory struct {
	mu    sync.RWMutex
	items []types.Diagnostic
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Add(_ context.Context, d types.Diagnostic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, d)
	return nil
}

func (m *Memory) Clear(_ context.Context, project, resource string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = filter(m.items, func(d types.Diagnostic) bool {
		return !(d.Project == project && d.Resource == resource)
	})
	return nil
}

func (m *Memory) ClearProject(_ context.Context, project string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = filter(m.items, func(d types.Diagnostic) bool { return d.Project != project })
	return nil
}

func (m *Memory) List(_ context.Context, project string) ([]types.Diagnostic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.items, func(d types.Diagnostic) bool { return d.Project == project }), nil
}

// For returns the diagnostics of one resource.
func (m *Memory) For(project, resource string) []types.Diagnostic {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filter(m.items, func(d types.Diagnostic) bool {
		return d.Project == project && d.Resource == resource
	})
}

func filter(in []types.Diagnostic, keep func(types.Diagnostic) bool) []types.Diagnostic {
	out := make([]types.Diagnostic, 0, len(in))
	for _, d := range in {
		if keep(d) {
			out = append(out, d)
		}
	}
	return out
}
