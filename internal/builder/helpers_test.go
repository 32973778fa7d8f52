package builder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
)

// mockBackend records every call and resolves futures from canned results,
// keyed by project-relative resource path.
type mockBackend struct {
	mu sync.Mutex

	results    map[string]types.CompileResult
	failures   map[string]error // remote errors, delivered through the future
	submitErrs map[string]error // synchronous submission errors
	appSrcErr  error
	appSrcRes  *types.CompileResult
	hold       bool
	panicOn    string
	noFuture   string // resource answered with a nil future and no error

	submitted []string
	cancelled []string
	appSrc    []backend.AppSrcRequest
	sources   []backend.SourceRequest
	added     []string
	removed   []string
	pending   map[string]*backend.Promise
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		results:    make(map[string]types.CompileResult),
		failures:   make(map[string]error),
		submitErrs: make(map[string]error),
		pending:    make(map[string]*backend.Promise),
	}
}

func (m *mockBackend) Name() string    { return "mock" }
func (m *mockBackend) Version() string { return "26.2" }

func (m *mockBackend) AddProjectPath(_ context.Context, project, outputDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added = append(m.added, project+"="+outputDir)
	return nil
}

func (m *mockBackend) RemoveProjectPath(_ context.Context, project string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, project)
	return nil
}

func (m *mockBackend) CompileSource(_ context.Context, req backend.SourceRequest) (backend.Future, error) {
	m.mu.Lock()
	m.sources = append(m.sources, req)
	m.mu.Unlock()
	return m.submit(req.Resource.Path)
}

func (m *mockBackend) CompileGrammar(_ context.Context, req backend.GrammarRequest) (backend.Future, error) {
	return m.submit(req.Resource.Path)
}

func (m *mockBackend) CompileAppSrc(_ context.Context, req backend.AppSrcRequest) (backend.Future, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appSrc = append(m.appSrc, req)
	if m.appSrcErr != nil {
		return nil, m.appSrcErr
	}
	if m.appSrcRes != nil {
		return backend.Resolved(*m.appSrcRes, nil), nil
	}
	return backend.Resolved(types.CompileResult{Outcome: types.OutcomeOK}, nil), nil
}

func (m *mockBackend) submit(rel string) (backend.Future, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rel == m.panicOn {
		panic("boom")
	}
	m.submitted = append(m.submitted, rel)
	if err, ok := m.submitErrs[rel]; ok {
		return nil, err
	}
	if rel == m.noFuture {
		return nil, nil
	}

	p := backend.NewPromise(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.cancelled = append(m.cancelled, rel)
	})
	if m.hold {
		m.pending[rel] = p
		return p, nil
	}
	m.resolveLocked(rel, p)
	return p, nil
}

func (m *mockBackend) resolveLocked(rel string, p *backend.Promise) {
	if err, ok := m.failures[rel]; ok {
		p.Resolve(types.CompileResult{}, err)
		return
	}
	res, ok := m.results[rel]
	if !ok {
		res = types.CompileResult{Outcome: types.OutcomeOK}
	}
	p.Resolve(res, nil)
}

// release resolves a held future.
func (m *mockBackend) release(rel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.pending[rel]; ok {
		m.resolveLocked(rel, p)
		delete(m.pending, rel)
	}
}

func (m *mockBackend) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.submitted...)
	sort.Strings(out)
	return out
}

func (m *mockBackend) Cancelled() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.cancelled...)
	sort.Strings(out)
	return out
}

type mockProvider struct {
	backend  backend.Backend
	err      error
	required []string
}

func (p *mockProvider) Acquire(_ context.Context, required string) (backend.Backend, error) {
	p.required = append(p.required, required)
	if p.err != nil {
		return nil, p.err
	}
	return p.backend, nil
}

func unavailable() *mockProvider {
	return &mockProvider{err: errors.New("no backends registered")}
}

// newTestProject lays files out under a temporary project root.
func newTestProject(t *testing.T, files map[string]string) *project.Project {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0644))
	}
	proj, err := project.Open(root)
	require.NoError(t, err)
	return proj
}

func newTestBuilder(provider BackendProvider, sink markers.Sink, opts ...Option) *Builder {
	return NewBuilder(provider, sink, NewMetricsCollector(nil), zap.NewNop(), opts...)
}

// newTestPass prepares a pass for exercising a single component.
func newTestPass(t *testing.T, ctx context.Context, proj *project.Project, req types.BuildRequest) *pass {
	t.Helper()
	p := newPass(ctx, proj, req, nil, zap.NewNop())
	cfg, err := proj.LoadConfig()
	require.NoError(t, err)
	p.config = cfg
	return p
}

func projectDiagnostics(diags []types.Diagnostic) []types.Diagnostic {
	var out []types.Diagnostic
	for _, d := range diags {
		if d.Resource == "" {
			out = append(out, d)
		}
	}
	return out
}

func list(t *testing.T, sink *markers.Memory, proj *project.Project) []types.Diagnostic {
	t.Helper()
	diags, err := sink.List(context.Background(), proj.Name)
	require.NoError(t, err)
	return diags
}
