package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/project"
)

// ChangeSetResolver decides which resources a pass has to compile.
type ChangeSetResolver struct {
	logger *zap.Logger
}

func NewChangeSetResolver(logger *zap.Logger) *ChangeSetResolver {
	return &ChangeSetResolver{logger: logger}
}

func (r *ChangeSetResolver) Resolve(ctx context.Context, p *pass) (types.ResourceSet, error) {
	switch p.request.Kind {
	case types.KindClean:
		return types.ResourceSet{}, nil
	case types.KindIncremental:
		delta := p.request.Delta
		if delta == nil {
			p.log.Info("no delta available: doing full rebuild")
			return r.full(ctx, p)
		}
		if delta.ConfigChanged || delta.Touches(project.ConfigFile) {
			p.log.Info("project configuration changed: doing full rebuild")
			return r.full(ctx, p)
		}
		return r.incremental(p, delta), nil
	default:
		return r.full(ctx, p)
	}
}

func (r *ChangeSetResolver) full(_ context.Context, p *pass) (types.ResourceSet, error) {
	set := types.ResourceSet{}
	dirs := append(append([]string{}, p.config.SourceDirs...), p.config.IncludeDirs...)
	for _, dir := range dirs {
		if err := r.walk(p, dir, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func (r *ChangeSetResolver) walk(p *pass, dir string, set types.ResourceSet) error {
	root := p.project.Abs(dir)
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.log.Debug("configured directory does not exist", zap.String("dir", dir))
			return nil
		}
		return fmt.Errorf("%w: cannot read directory %s: %v", ErrConfiguration, dir, err)
	}

	err := filepath.WalkDir(root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: cannot read directory %s: %v", ErrConfiguration, abs, err)
		}
		rel, err := p.project.Rel(abs)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := p.progress.CheckCancelled(); err != nil {
				return err
			}
			if project.Under(rel, p.config.OutputDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if project.IsSource(d.Name()) {
			set.Add(types.BuildResource{Path: rel, Kind: types.ResourceSource})
		}
		return nil
	})
	return err
}

// incremental keeps the added and changed sources of the delta that live in a
// source directory.
func (r *ChangeSetResolver) incremental(p *pass, delta *types.ChangeDescription) types.ResourceSet {
	set := types.ResourceSet{}
	for _, list := range [][]string{delta.Added, delta.Changed} {
		for _, rel := range list {
			rel = path.Clean(filepath.ToSlash(rel))
			if !project.IsSource(rel) || project.Under(rel, p.config.OutputDir) {
				continue
			}
			if !inAny(rel, p.config.SourceDirs) {
				continue
			}
			if !p.project.Exists(rel) {
				p.log.Debug("changed resource no longer exists", zap.String("resource", rel))
				continue
			}
			set.Add(types.BuildResource{Path: rel, Kind: types.ResourceSource})
		}
	}
	return set
}

func inAny(rel string, dirs []string) bool {
	for _, d := range dirs {
		if project.Under(rel, d) {
			return true
		}
	}
	return false
}
