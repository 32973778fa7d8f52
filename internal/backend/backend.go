// Package backend defines the compile backend contract used by the builder and
// the manager that locates a backend compatible with a project.
package backend

import (
	"context"
	"errors"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// ErrUnavailable is returned when no backend satisfies the required version.
var ErrUnavailable = errors.New("no compatible backend available")

type SourceRequest struct {
	Resource  types.BuildResource
	Path      string // absolute
	OutputDir string // absolute
	// IncludeDirs are absolute directories searched for included headers.
	IncludeDirs []string
	Options     map[string]string
	FullBuild   bool
}

type GrammarRequest struct {
	Resource types.BuildResource
	Path     string
	Options  map[string]string
}

type AppSrcRequest struct {
	TemplatePath string
	DestPath     string
	SourceDirs   []string
}

// Future is the handle of one asynchronous backend call. Result may only be
// read after Done is closed.
type Future interface {
	Done() <-chan struct{}
	Result() (types.CompileResult, error)
	// Cancel asks the backend to stop the call. It is safe to call more than once
	// and after completion.
	Cancel()
}

//go:generate mockgen -source=backend.go -destination=mocks/mock_backend.go -package=mocks

// Backend submits compile work and returns immediately with a Future.
type Backend interface {
	Name() string
	Version() string
	AddProjectPath(ctx context.Context, project, outputDir string) error
	RemoveProjectPath(ctx context.Context, project string) error
	CompileSource(ctx context.Context, req SourceRequest) (Future, error)
	CompileGrammar(ctx context.Context, req GrammarRequest) (Future, error)
	CompileAppSrc(ctx context.Context, req AppSrcRequest) (Future, error)
}
