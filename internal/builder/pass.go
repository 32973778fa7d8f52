package builder

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/project"
)

// pass carries the state of one build or clean invocation through every
// component. Nothing in it outlives the invocation.
type pass struct {
	id       string
	project  *project.Project
	request  types.BuildRequest
	config   *types.ProjectBuildConfig
	progress *ProgressTracker
	log      *zap.Logger
	started  time.Time
	results  []types.CompileResult
}

func newPass(ctx context.Context, proj *project.Project, req types.BuildRequest, report ProgressFunc, logger *zap.Logger) *pass {
	id := uuid.NewString()
	return &pass{
		id:       id,
		project:  proj,
		request:  req,
		progress: NewProgressTracker(ctx, fmt.Sprintf("%s build of %s", req.Kind, proj.Name), report),
		log: logger.With(
			zap.String("pass_id", id),
			zap.String("project", proj.Name),
			zap.Stringer("kind", req.Kind)),
		started: time.Now(),
	}
}

func (p *pass) outputDir() string {
	return p.project.Abs(p.config.OutputDir)
}

func (p *pass) sourceDirs() []string {
	dirs := make([]string, 0, len(p.config.SourceDirs))
	for _, d := range p.config.SourceDirs {
		dirs = append(dirs, filepath.Clean(p.project.Abs(d)))
	}
	return dirs
}

func (p *pass) includeDirs() []string {
	dirs := make([]string, 0, len(p.config.IncludeDirs))
	for _, d := range p.config.IncludeDirs {
		dirs = append(dirs, filepath.Clean(p.project.Abs(d)))
	}
	return dirs
}

// compilerOptions merges request options over the configured ones.
func (p *pass) compilerOptions() map[string]string {
	opts := make(map[string]string, len(p.config.CompilerOptions)+len(p.request.Options))
	for k, v := range p.config.CompilerOptions {
		opts[k] = v
	}
	for k, v := range p.request.Options {
		opts[k] = v
	}
	return opts
}

func (p *pass) diagnostic(resource string, sev types.Severity, msg string, line, col int) types.Diagnostic {
	return types.Diagnostic{
		Project:  p.project.Name,
		Resource: resource,
		Severity: sev,
		Message:  msg,
		Line:     line,
		Column:   col,
	}
}
