// Package builder implements the incremental build orchestrator: it resolves
// which sources are stale, submits them to a compile backend, joins the
// asynchronous results and records diagnostics.
package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
)

// BackendProvider hands out a backend able to build for a runtime version.
type BackendProvider interface {
	Acquire(ctx context.Context, requiredVersion string) (backend.Backend, error)
}

// Report summarizes a finished pass.
type Report struct {
	PassID  string
	Kind    types.BuildKind
	Results []types.CompileResult
	Percent float64
	Elapsed time.Duration
}

type Option func(*Builder)

// WithProgress installs a callback receiving pass progress.
func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) { b.progress = fn }
}

type Builder struct {
	resolver   *ChangeSetResolver
	dispatcher *BuildDispatcher
	joiner     *CompletionJoiner
	janitor    *ArtifactJanitor
	manifests  *ManifestGenerator

	backends BackendProvider
	sink     markers.Sink
	metrics  *MetricsCollector
	logger   *zap.Logger
	progress ProgressFunc

	locks sync.Map // project root -> *sync.Mutex
}

func NewBuilder(
	backends BackendProvider,
	sink markers.Sink,
	metrics *MetricsCollector,
	logger *zap.Logger,
	opts ...Option,
) *Builder {
	b := &Builder{
		resolver:   NewChangeSetResolver(logger),
		dispatcher: NewBuildDispatcher(sink, logger),
		joiner:     NewCompletionJoiner(sink, metrics, logger),
		janitor:    NewArtifactJanitor(sink, logger),
		manifests:  NewManifestGenerator(logger),
		backends:   backends,
		sink:       sink,
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs one pass. Fatal conditions leave exactly one project diagnostic
// and are returned wrapped around ErrConfiguration or ErrBackendUnavailable.
// A cancelled pass returns ErrCanceled and adds no diagnostic.
func (b *Builder) Build(ctx context.Context, proj *project.Project, req types.BuildRequest) (*Report, error) {
	if req.Kind == types.KindClean {
		return b.Clean(ctx, proj)
	}
	return b.run(ctx, proj, req, b.compile)
}

// Clean removes derived artifacts that have a source and clears all diagnostics.
func (b *Builder) Clean(ctx context.Context, proj *project.Project) (*Report, error) {
	return b.run(ctx, proj, types.BuildRequest{Kind: types.KindClean}, func(ctx context.Context, p *pass) error {
		return b.janitor.Clean(ctx, p)
	})
}

func (b *Builder) run(ctx context.Context, proj *project.Project, req types.BuildRequest, stage func(context.Context, *pass) error) (report *Report, err error) {
	if proj == nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, project.ErrNotAccessible)
	}
	unlock := b.lock(proj.Root)
	defer unlock()

	p := newPass(ctx, proj, req, b.progress, b.logger)
	b.metrics.StartPass(p.id, proj.Name, req.Kind.String())
	p.log.Info("build started")

	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
		err = b.report(ctx, p, err)
		p.progress.Done()

		status := StatusSuccess
		switch {
		case errors.Is(err, ErrCanceled):
			status = StatusCanceled
		case err != nil:
			status = StatusFailed
		}
		b.metrics.EndPass(p.id, status)
		p.log.Info("build done",
			zap.String("status", status),
			zap.Duration("took", time.Since(p.started)))

		report = &Report{
			PassID:  p.id,
			Kind:    req.Kind,
			Results: p.results,
			Percent: p.progress.Percent(),
			Elapsed: time.Since(p.started),
		}
	}()

	// project level diagnostics describe the previous pass only
	if err := b.sink.Clear(ctx, proj.Name, ""); err != nil {
		p.log.Warn("failed to clear project diagnostics", zap.Error(err))
	}

	cfg, err := proj.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	p.config = cfg
	return nil, stage(ctx, p)
}

func (b *Builder) compile(ctx context.Context, p *pass) error {
	if err := os.MkdirAll(p.outputDir(), 0755); err != nil {
		return fmt.Errorf("%w: cannot create output directory: %v", ErrConfiguration, err)
	}

	be, beErr := b.backends.Acquire(ctx, p.config.RequiredBackendVersion)
	if beErr == nil {
		if n := b.manifests.Generate(ctx, p, be); n > 0 {
			p.log.Debug("generated application manifests", zap.Int("count", n))
		}
	} else {
		p.log.Warn("no backend for manifest generation", zap.Error(beErr))
	}
	if err := p.progress.CheckCancelled(); err != nil {
		return err
	}

	set, err := b.resolver.Resolve(ctx, p)
	if err != nil {
		return err
	}
	p.log.Debug("will compile resources", zap.Int("count", len(set)))
	if len(set) == 0 {
		return nil
	}
	if beErr != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, beErr)
	}

	if err := be.AddProjectPath(ctx, p.project.Name, p.outputDir()); err != nil {
		return fmt.Errorf("%w: cannot register project path: %v", ErrBackendUnavailable, err)
	}
	defer func() {
		if err := be.RemoveProjectPath(context.WithoutCancel(ctx), p.project.Name); err != nil {
			p.log.Warn("failed to unregister project path", zap.Error(err))
		}
	}()

	jobs, err := b.dispatcher.Dispatch(ctx, p, set, be)
	if err != nil {
		return err
	}
	results, err := b.joiner.Join(ctx, p, jobs, 1.0/float64(len(set)))
	p.results = results
	if err != nil {
		return err
	}

	if all, err := b.resolver.full(ctx, p); err == nil {
		if n := checkClashes(ctx, p, b.sink, all, set); n > 0 {
			p.log.Warn("module name clashes found", zap.Int("count", n))
		}
	}
	return nil
}

// report turns a pass error into its single project diagnostic.
func (b *Builder) report(ctx context.Context, p *pass, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrCanceled) {
		p.log.Info("build was canceled")
		return err
	}

	var msg string
	switch {
	case errors.Is(err, ErrConfiguration):
		msg = fmt.Sprintf("invalid project configuration: %v", err)
	case errors.Is(err, ErrBackendUnavailable):
		msg = "No backend with the required version could be found. Can't build."
		if p.config != nil && p.config.RequiredBackendVersion != "" {
			msg = fmt.Sprintf("No backend with the required version (%s) could be found. Can't build.",
				p.config.RequiredBackendVersion)
		}
	default:
		msg = fmt.Sprintf("inconsistent project: %v (%s)", err, origin(err))
	}

	p.log.Error("build failed", zap.Error(err))
	d := p.diagnostic("", types.SeverityError, msg, 0, 0)
	if addErr := b.sink.Add(context.WithoutCancel(ctx), d); addErr != nil {
		p.log.Error("failed to add project diagnostic", zap.Error(addErr))
	}
	return err
}

func (b *Builder) lock(root string) func() {
	v, _ := b.locks.LoadOrStore(root, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// origin names the type of the innermost cause of err.
func origin(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}
