package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/backend/factory"
	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/delta"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
)

// MarkersFile holds the diagnostics of a project between runs, next to the
// snapshot in the output directory.
const MarkersFile = ".erlbuild-markers.db"

type diagnosticStore interface {
	markers.Sink
	markers.Reader
}

// session runs passes in process against the configured backends.
type session struct {
	builder *builder.Builder
	sink    diagnosticStore
	closers []io.Closer
	out     io.Writer
	log     *zap.Logger
}

func newSession(ctx context.Context, g *Global, proj *project.Project, out io.Writer) (*session, error) {
	cfg, err := proj.LoadConfig()
	if err != nil {
		return nil, err
	}
	store, err := markers.OpenSQLite(ctx, filepath.Join(proj.Abs(cfg.OutputDir), MarkersFile))
	if err != nil {
		return nil, err
	}

	var svc *auth.Service
	if g.Config.Auth.JWTSecret != "" {
		svc = auth.NewService(&g.Config.Auth, g.Logger)
	}
	manager, err := factory.NewManager(factory.NewFactory(&g.Config.Backend, svc, g.Logger), g.Logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	progress := func(task string, percent float64) {
		g.Logger.Debug("progress", zap.String("task", task), zap.Float64("percent", percent))
	}
	b := builder.NewBuilder(manager, store, builder.NewMetricsCollector(nil), g.Logger, builder.WithProgress(progress))

	return &session{
		builder: b,
		sink:    store,
		closers: []io.Closer{manager, store},
		out:     out,
		log:     g.Logger,
	}, nil
}

func (s *session) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// build runs one pass. Incremental passes derive their change description
// from the snapshot left by the previous successful pass.
func (s *session) build(ctx context.Context, proj *project.Project, kind types.BuildKind, opts map[string]string) error {
	cfg, err := proj.LoadConfig()
	if err != nil {
		return fmt.Errorf("%w: %v", builder.ErrConfiguration, err)
	}

	snapshot, err := delta.Take(proj, cfg)
	if err != nil {
		return err
	}
	req := types.BuildRequest{Kind: kind, Options: opts}
	if kind == types.KindIncremental {
		prev, err := delta.Load(delta.Path(proj, cfg))
		if err != nil {
			s.log.Warn("ignoring unreadable snapshot", zap.Error(err))
		}
		req.Delta = delta.Diff(prev, snapshot)
		if req.Delta != nil && req.Delta.Empty() {
			fmt.Fprintln(s.out, "nothing to do")
			return nil
		}
	}

	report, err := s.builder.Build(ctx, proj, req)
	s.print(ctx, proj)
	if err != nil {
		return err
	}

	if err := snapshot.Save(delta.Path(proj, cfg)); err != nil {
		s.log.Warn("failed to save snapshot", zap.Error(err))
	}
	fmt.Fprintf(s.out, "%s build of %s: %d compiled in %s\n",
		report.Kind, proj.Name, len(report.Results), report.Elapsed.Round(time.Millisecond))
	if s.hasErrors(ctx, proj) {
		return errors.New("build finished with errors")
	}
	return nil
}

func (s *session) clean(ctx context.Context, proj *project.Project) error {
	if _, err := s.builder.Clean(ctx, proj); err != nil {
		return err
	}
	cfg, err := proj.LoadConfig()
	if err != nil {
		return nil
	}
	if err := os.Remove(delta.Path(proj, cfg)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove snapshot: %w", err)
	}
	fmt.Fprintf(s.out, "cleaned %s\n", proj.Name)
	return nil
}

func (s *session) print(ctx context.Context, proj *project.Project) {
	diags, _ := s.sink.List(ctx, proj.Name)
	for _, d := range diags {
		loc := d.Resource
		if loc == "" {
			loc = proj.Name
		}
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, d.Line)
			if d.Column > 0 {
				loc = fmt.Sprintf("%s:%d", loc, d.Column)
			}
		}
		fmt.Fprintf(s.out, "%s: %s: %s\n", loc, d.Severity, d.Message)
	}
}

func (s *session) hasErrors(ctx context.Context, proj *project.Project) bool {
	diags, _ := s.sink.List(ctx, proj.Name)
	for _, d := range diags {
		if d.Severity == types.SeverityError {
			return true
		}
	}
	return false
}
