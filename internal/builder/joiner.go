package builder

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/markers"
)

// CompletionJoiner waits for dispatched jobs and applies their results.
// It selects over every pending completion channel plus the cancellation
// channel, so a pass reacts to whichever happens first.
type CompletionJoiner struct {
	sink    markers.Sink
	metrics *MetricsCollector
	logger  *zap.Logger
}

func NewCompletionJoiner(sink markers.Sink, metrics *MetricsCollector, logger *zap.Logger) *CompletionJoiner {
	return &CompletionJoiner{sink: sink, metrics: metrics, logger: logger}
}

// Join returns the results of the jobs that completed. On cancellation the
// results gathered so far are returned together with an ErrCanceled error and
// the remaining jobs are cancelled at the backend.
func (j *CompletionJoiner) Join(ctx context.Context, p *pass, jobs []*CompileJob, share float64) ([]types.CompileResult, error) {
	pending := make([]*CompileJob, 0, len(jobs))
	for _, job := range jobs {
		if job.State == JobPending {
			pending = append(pending, job)
		}
	}
	results := make([]types.CompileResult, 0, len(pending))

	for len(pending) > 0 {
		if err := p.progress.CheckCancelled(); err != nil {
			abandon(p, pending)
			return results, err
		}

		cases := make([]reflect.SelectCase, 0, len(pending)+1)
		offset := 0
		if done := ctx.Done(); done != nil {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(done)})
			offset = 1
		}
		for _, job := range pending {
			cases = append(cases, reflect.SelectCase{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(job.Handle.Done())})
		}

		chosen, _, _ := reflect.Select(cases)
		if chosen < offset {
			continue
		}
		idx := chosen - offset
		job := pending[idx]
		pending = append(pending[:idx], pending[idx+1:]...)

		if res, ok := j.complete(ctx, p, job); ok {
			results = append(results, res)
		}
		p.progress.Advance(share)
	}
	return results, nil
}

func (j *CompletionJoiner) complete(ctx context.Context, p *pass, job *CompileJob) (types.CompileResult, bool) {
	res, err := job.Handle.Result()
	if err != nil {
		job.State = JobFailed
		j.metrics.RecordJob(p.id, "failed")
		p.log.Error("compile job failed",
			zap.String("resource", job.Resource.Path),
			zap.Error(err))
		j.add(ctx, p, p.diagnostic(job.Resource.Path, types.SeverityError,
			fmt.Sprintf("compilation of %s failed: %v", job.Resource.Path, err), 0, 0))
		return types.CompileResult{}, false
	}

	job.State = JobDone
	res.Resource = job.Resource
	j.apply(ctx, p, res)
	j.metrics.RecordJob(p.id, res.Outcome.String())
	return res, true
}

// apply writes the diagnostics of one result in backend order. The resource
// was cleared when it was dispatched.
func (j *CompletionJoiner) apply(ctx context.Context, p *pass, res types.CompileResult) {
	var fallback types.Severity
	switch res.Outcome {
	case types.OutcomeOK:
		return
	case types.OutcomeOKWithWarnings:
		fallback = types.SeverityWarning
	case types.OutcomeError:
		fallback = types.SeverityError
		if len(res.Diagnostics) == 0 {
			j.add(ctx, p, p.diagnostic(res.Resource.Path, types.SeverityError,
				fmt.Sprintf("compilation of %s failed", res.Resource.Path), 0, 0))
			return
		}
	}

	for _, d := range res.Diagnostics {
		d.Project = p.project.Name
		if d.Resource == "" {
			d.Resource = res.Resource.Path
		}
		if d.Severity == types.SeverityUnset {
			d.Severity = fallback
		}
		j.add(ctx, p, d)
	}
}

func (j *CompletionJoiner) add(ctx context.Context, p *pass, d types.Diagnostic) {
	switch d.Severity {
	case types.SeverityError:
		j.metrics.RecordDiagnostic(p.id, true)
	case types.SeverityWarning:
		j.metrics.RecordDiagnostic(p.id, false)
	}
	if err := j.sink.Add(ctx, d); err != nil {
		p.log.Warn("failed to add diagnostic",
			zap.String("resource", d.Resource),
			zap.Error(err))
	}
}
