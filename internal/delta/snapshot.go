// Package delta derives change descriptions for hosts that do not track file
// changes themselves, by comparing content hashes between passes.
package delta

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/project"
)

// FileName is stored inside the output directory.
const FileName = ".erlbuild-snapshot.yaml"

const snapshotVersion = 1

// Snapshot maps project-relative paths to BLAKE3 content hashes.
type Snapshot struct {
	Version int               `yaml:"version"`
	Files   map[string]string `yaml:"files"`
}

// Path returns where the snapshot of a project lives.
func Path(p *project.Project, cfg *types.ProjectBuildConfig) string {
	return filepath.Join(p.Abs(cfg.OutputDir), FileName)
}

// Take hashes every file a build depends on: sources, includes, manifest
// templates and the project configuration.
func Take(p *project.Project, cfg *types.ProjectBuildConfig) (*Snapshot, error) {
	s := &Snapshot{Version: snapshotVersion, Files: make(map[string]string)}

	dirs := append(append([]string{}, cfg.SourceDirs...), cfg.IncludeDirs...)
	for _, dir := range dirs {
		err := filepath.WalkDir(p.Abs(dir), func(abs string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			rel, err := p.Rel(abs)
			if err != nil {
				return err
			}
			if d.IsDir() {
				if project.Under(rel, cfg.OutputDir) {
					return filepath.SkipDir
				}
				return nil
			}
			if !tracked(rel) {
				return nil
			}
			if _, seen := s.Files[rel]; seen {
				return nil
			}
			sum, err := hashFile(abs)
			if err != nil {
				return err
			}
			s.Files[rel] = sum
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot %s: %w", dir, err)
		}
	}

	if sum, err := hashFile(p.Abs(project.ConfigFile)); err == nil {
		s.Files[project.ConfigFile] = sum
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to snapshot project config: %w", err)
	}
	return s, nil
}

// Load reads a snapshot. A missing file yields (nil, nil).
func Load(file string) (*Snapshot, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if s.Version != snapshotVersion {
		return nil, nil
	}
	if s.Files == nil {
		s.Files = make(map[string]string)
	}
	return &s, nil
}

func (s *Snapshot) Save(file string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, file)
}

// Diff describes what changed from prev to cur. A nil prev yields a nil
// description, which the builder treats as a full build.
func Diff(prev, cur *Snapshot) *types.ChangeDescription {
	if prev == nil {
		return nil
	}
	d := &types.ChangeDescription{}
	for p, sum := range cur.Files {
		old, ok := prev.Files[p]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case old != sum:
			d.Changed = append(d.Changed, p)
		}
	}
	for p := range prev.Files {
		if _, ok := cur.Files[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Changed)
	sort.Strings(d.Removed)
	d.ConfigChanged = d.Touches(project.ConfigFile)
	return d
}

func tracked(rel string) bool {
	return project.IsSource(rel) || project.IsInclude(rel) || strings.HasSuffix(path.Base(rel), ".app.src")
}

func hashFile(file string) (string, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
