package builder

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/markers"
)

// CompileKind is the closed set of compile operations a resource maps to.
type CompileKind int

const (
	CompileUnknown CompileKind = iota
	CompileSource
	CompileGrammar
)

func compileKindOf(r types.BuildResource) CompileKind {
	switch r.Ext() {
	case ".erl":
		return CompileSource
	case ".yrl":
		return CompileGrammar
	default:
		return CompileUnknown
	}
}

type JobState int

const (
	JobPending JobState = iota
	JobDone
	JobFailed
)

// CompileJob tracks one submitted resource within a pass.
type CompileJob struct {
	Resource types.BuildResource
	Handle   backend.Future
	State    JobState
}

// BuildDispatcher submits one compile job per resource.
type BuildDispatcher struct {
	sink   markers.Sink
	logger *zap.Logger
}

func NewBuildDispatcher(sink markers.Sink, logger *zap.Logger) *BuildDispatcher {
	return &BuildDispatcher{sink: sink, logger: logger}
}

// Dispatch returns the jobs in path order. Resources that could not be submitted
// are returned as failed jobs with a diagnostic already attached.
func (d *BuildDispatcher) Dispatch(ctx context.Context, p *pass, set types.ResourceSet, be backend.Backend) ([]*CompileJob, error) {
	if be == nil {
		return nil, fmt.Errorf("%w: no backend for dispatch", ErrBackendUnavailable)
	}

	share := 1.0 / float64(max(len(set), 1))
	opts := p.compilerOptions()
	full := p.request.Kind == types.KindFull
	includes := p.includeDirs()
	jobs := make([]*CompileJob, 0, len(set))

	for _, res := range set.Sorted() {
		if err := p.progress.CheckCancelled(); err != nil {
			abandon(p, jobs)
			return nil, err
		}
		if err := d.sink.Clear(ctx, p.project.Name, res.Path); err != nil {
			p.log.Warn("failed to clear diagnostics",
				zap.String("resource", res.Path),
				zap.Error(err))
		}

		var (
			handle backend.Future
			err    error
		)
		switch compileKindOf(res) {
		case CompileSource:
			handle, err = be.CompileSource(ctx, backend.SourceRequest{
				Resource:    res,
				Path:        p.project.Abs(res.Path),
				OutputDir:   p.outputDir(),
				IncludeDirs: includes,
				Options:     opts,
				FullBuild:   full,
			})
		case CompileGrammar:
			handle, err = be.CompileGrammar(ctx, backend.GrammarRequest{
				Resource: res,
				Path:     p.project.Abs(res.Path),
				Options:  opts,
			})
		case CompileUnknown:
			p.log.Warn("don't know how to compile", zap.String("resource", res.Path))
			d.add(ctx, p, p.diagnostic(res.Path, types.SeverityWarning,
				fmt.Sprintf("don't know how to compile %s", res.Path), 0, 0))
			p.progress.Advance(share)
			continue
		}

		if err == nil && handle == nil {
			err = errors.New("backend returned no result handle")
		}
		if err != nil {
			p.log.Error("failed to submit compile job",
				zap.String("resource", res.Path),
				zap.Error(err))
			d.add(ctx, p, p.diagnostic(res.Path, types.SeverityError,
				fmt.Sprintf("compile request failed: %v", err), 0, 0))
			jobs = append(jobs, &CompileJob{Resource: res, State: JobFailed})
			p.progress.Advance(share)
			continue
		}
		jobs = append(jobs, &CompileJob{Resource: res, Handle: handle, State: JobPending})
	}

	p.log.Debug("dispatched compile jobs", zap.Int("jobs", len(jobs)))
	return jobs, nil
}

func (d *BuildDispatcher) add(ctx context.Context, p *pass, diag types.Diagnostic) {
	if err := d.sink.Add(ctx, diag); err != nil {
		p.log.Warn("failed to add diagnostic",
			zap.String("resource", diag.Resource),
			zap.Error(err))
	}
}

// abandon asks the backend to drop every job still pending.
func abandon(p *pass, jobs []*CompileJob) {
	n := 0
	for _, job := range jobs {
		if job.State == JobPending && job.Handle != nil {
			job.Handle.Cancel()
			n++
		}
	}
	if n > 0 {
		p.log.Info("abandoned pending compile jobs", zap.Int("jobs", n))
	}
}
