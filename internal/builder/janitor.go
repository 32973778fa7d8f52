package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
)

// derivedExtensions are the artifact kinds a clean may remove.
var derivedExtensions = map[string]bool{
	".beam": true,
	".app":  true,
}

// ArtifactJanitor removes derived artifacts that can be regenerated from a
// source still present in the project.
type ArtifactJanitor struct {
	sink   markers.Sink
	logger *zap.Logger
}

func NewArtifactJanitor(sink markers.Sink, logger *zap.Logger) *ArtifactJanitor {
	return &ArtifactJanitor{sink: sink, logger: logger}
}

func (a *ArtifactJanitor) Clean(ctx context.Context, p *pass) error {
	if err := a.sink.ClearProject(ctx, p.project.Name); err != nil {
		p.log.Warn("failed to clear project diagnostics", zap.Error(err))
	}

	out := p.outputDir()
	entries, err := os.ReadDir(out)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: cannot read output directory: %v", ErrConfiguration, err)
	}

	var artifacts []string
	for _, e := range entries {
		if e.Type().IsRegular() && derivedExtensions[filepath.Ext(e.Name())] {
			artifacts = append(artifacts, e.Name())
		}
	}
	if len(artifacts) == 0 {
		return nil
	}

	sources, err := a.sourceIndex(p)
	if err != nil {
		return err
	}

	share := 1.0 / float64(len(artifacts))
	removed := 0
	for _, name := range artifacts {
		if err := p.progress.CheckCancelled(); err != nil {
			return err
		}
		src, ok := sources[baseName(name)]
		if !ok {
			p.log.Debug("keeping artifact without source", zap.String("artifact", name))
			p.progress.Advance(share)
			continue
		}
		if err := os.Remove(filepath.Join(out, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("failed to delete artifact",
				zap.String("artifact", name),
				zap.Error(err))
		} else {
			removed++
			p.log.Debug("deleted artifact",
				zap.String("artifact", name),
				zap.String("source", src))
		}
		p.progress.Advance(share)
	}
	p.log.Info("cleaned output directory",
		zap.Int("removed", removed),
		zap.Int("kept", len(artifacts)-removed))
	return nil
}

// sourceIndex maps a base name to the first matching source in lexicographic
// path order. The output directory and dot directories are not searched.
func (a *ArtifactJanitor) sourceIndex(p *pass) (map[string]string, error) {
	index := make(map[string]string)
	err := filepath.WalkDir(p.project.Root, func(abs string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: cannot search project: %v", ErrConfiguration, err)
		}
		rel, err := p.project.Rel(abs)
		if err != nil {
			return err
		}
		if d.IsDir() {
			if rel != "." && (strings.HasPrefix(d.Name(), ".") || project.Under(rel, p.config.OutputDir)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isArtifactSource(d.Name()) {
			return nil
		}
		if _, seen := index[baseName(d.Name())]; !seen {
			index[baseName(d.Name())] = rel
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return index, nil
}

func isArtifactSource(name string) bool {
	return project.IsSource(name) || strings.HasSuffix(name, appSrcSuffix)
}

// baseName is the part of a file name before its first dot.
func baseName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
