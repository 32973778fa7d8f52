package builder

import (
	"context"
	"fmt"
	"path"
	"sort"

	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/markers"
)

// checkClashes warns about rebuilt sources whose module name is also defined
// by another source of the project.
func checkClashes(ctx context.Context, p *pass, sink markers.Sink, all, rebuilt types.ResourceSet) int {
	modules := make(map[string][]string)
	for _, r := range all.Sorted() {
		if compileKindOf(r) != CompileSource {
			continue
		}
		name := baseName(path.Base(r.Path))
		modules[name] = append(modules[name], r.Path)
	}

	n := 0
	for _, r := range rebuilt.Sorted() {
		if compileKindOf(r) != CompileSource {
			continue
		}
		paths := modules[baseName(path.Base(r.Path))]
		if len(paths) < 2 {
			continue
		}
		others := make([]string, 0, len(paths)-1)
		for _, q := range paths {
			if q != r.Path {
				others = append(others, q)
			}
		}
		sort.Strings(others)
		d := p.diagnostic(r.Path, types.SeverityWarning,
			fmt.Sprintf("module %s is also defined in %v", baseName(path.Base(r.Path)), others), 0, 0)
		if err := sink.Add(ctx, d); err != nil {
			p.log.Warn("failed to add diagnostic", zap.String("resource", r.Path), zap.Error(err))
			continue
		}
		n++
	}
	return n
}
