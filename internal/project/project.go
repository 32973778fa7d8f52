package project

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/elskow/erlbuild/internal/builder/types"
)

// ConfigFile is the project-relative location of the build configuration.
const ConfigFile = ".settings/erlbuild.toml"

const (
	DefaultSourceDir  = "src"
	DefaultIncludeDir = "include"
	DefaultOutputDir  = "ebin"
)

var ErrNotAccessible = errors.New("project is not accessible")

type Project struct {
	Name string
	Root string
}

// Open returns the project rooted at dir. The name defaults to the directory name.
func Open(dir string) (*Project, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotAccessible, abs)
	}
	return &Project{Name: filepath.Base(abs), Root: abs}, nil
}

// Abs maps a project-relative slash path to an absolute filesystem path.
func (p *Project) Abs(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

// Rel maps an absolute path back to a project-relative slash path.
func (p *Project) Rel(abs string) (string, error) {
	rel, err := filepath.Rel(p.Root, abs)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func (p *Project) Exists(rel string) bool {
	_, err := os.Stat(p.Abs(rel))
	return err == nil
}

// KindOf classifies a file by extension.
func KindOf(name string) types.ResourceKind {
	switch path.Ext(name) {
	case ".erl", ".yrl":
		return types.ResourceSource
	case ".hrl":
		return types.ResourceInclude
	default:
		return types.ResourceOther
	}
}

func IsSource(name string) bool  { return KindOf(name) == types.ResourceSource }
func IsInclude(name string) bool { return KindOf(name) == types.ResourceInclude }

// Under reports whether rel lies inside dir (both project-relative).
func Under(rel, dir string) bool {
	dir = strings.TrimSuffix(path.Clean(dir), "/")
	if dir == "." || dir == "" {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// LoadConfig reads ConfigFile from the project root, falling back to the
// conventional OTP layout when the file is absent.
func (p *Project) LoadConfig() (*types.ProjectBuildConfig, error) {
	v := viper.New()
	v.SetConfigFile(p.Abs(ConfigFile))
	v.SetConfigType("toml")
	v.SetDefault("source_dirs", []string{DefaultSourceDir})
	v.SetDefault("include_dirs", []string{DefaultIncludeDir})
	v.SetDefault("output_dir", DefaultOutputDir)

	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading project config: %w", err)
			}
		}
	}

	var cfg types.ProjectBuildConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling project config: %w", err)
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output_dir must not be empty")
	}
	cfg.OutputDir = path.Clean(filepath.ToSlash(cfg.OutputDir))
	for i, d := range cfg.SourceDirs {
		cfg.SourceDirs[i] = path.Clean(filepath.ToSlash(d))
	}
	for i, d := range cfg.IncludeDirs {
		cfg.IncludeDirs[i] = path.Clean(filepath.ToSlash(d))
	}
	return &cfg, nil
}
