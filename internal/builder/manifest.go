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

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
)

const appSrcSuffix = ".app.src"

// ManifestGenerator materializes application manifests from their templates.
// Failures are logged per file and never abort the pass.
type ManifestGenerator struct {
	logger *zap.Logger
}

func NewManifestGenerator(logger *zap.Logger) *ManifestGenerator {
	return &ManifestGenerator{logger: logger}
}

// Generate returns the number of manifests written.
func (g *ManifestGenerator) Generate(ctx context.Context, p *pass, be backend.Backend) int {
	sourceDirs := p.sourceDirs()
	written := 0
	for _, dir := range p.config.SourceDirs {
		entries, err := os.ReadDir(p.project.Abs(dir))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				p.log.Error("failed to list source directory",
					zap.String("dir", dir),
					zap.Error(err))
			}
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), appSrcSuffix) {
				continue
			}
			if ctx.Err() != nil {
				return written
			}
			req := backend.AppSrcRequest{
				TemplatePath: filepath.Join(p.project.Abs(dir), e.Name()),
				DestPath:     filepath.Join(p.outputDir(), strings.TrimSuffix(e.Name(), ".src")),
				SourceDirs:   sourceDirs,
			}
			if err := g.generateOne(ctx, be, req); err != nil {
				p.log.Error("failed to generate application manifest",
					zap.String("template", req.TemplatePath),
					zap.Error(err))
				continue
			}
			written++
		}
	}
	return written
}

func (g *ManifestGenerator) generateOne(ctx context.Context, be backend.Backend, req backend.AppSrcRequest) error {
	f, err := be.CompileAppSrc(ctx, req)
	if err != nil {
		return err
	}
	res, err := backend.Wait(ctx, f)
	if err != nil {
		return err
	}
	if res.Outcome == types.OutcomeError {
		return manifestError(res.Diagnostics)
	}
	return nil
}

func manifestError(diags []types.Diagnostic) error {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		msgs = append(msgs, d.Message)
	}
	if len(msgs) == 0 {
		return errors.New("manifest generation failed")
	}
	return fmt.Errorf("manifest generation failed: %s", strings.Join(msgs, "; "))
}
