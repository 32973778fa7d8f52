package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elskow/erlbuild/internal/builder/types"
)

func writeConfig(t *testing.T, root, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".settings"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, filepath.FromSlash(ConfigFile)), []byte(content), 0644))
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	p, err := Open(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(root), p.Name)
	assert.Equal(t, root, p.Root)

	_, err = Open(filepath.Join(root, "missing"))
	require.ErrorIs(t, err, ErrNotAccessible)

	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Open(file)
	require.ErrorIs(t, err, ErrNotAccessible)
}

func TestPaths(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	abs := p.Abs("src/a.erl")
	assert.Equal(t, filepath.Join(p.Root, "src", "a.erl"), abs)

	rel, err := p.Rel(abs)
	require.NoError(t, err)
	assert.Equal(t, "src/a.erl", rel)

	assert.False(t, p.Exists("src/a.erl"))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, types.ResourceSource, KindOf("a.erl"))
	assert.Equal(t, types.ResourceSource, KindOf("src/parser.yrl"))
	assert.Equal(t, types.ResourceInclude, KindOf("include/a.hrl"))
	assert.Equal(t, types.ResourceOther, KindOf("a.app.src"))
	assert.Equal(t, types.ResourceOther, KindOf("a.beam"))
	assert.True(t, IsSource("a.erl"))
	assert.True(t, IsInclude("a.hrl"))
}

func TestUnder(t *testing.T) {
	tests := []struct {
		rel, dir string
		want     bool
	}{
		{"src/a.erl", "src", true},
		{"src/sub/a.erl", "src", true},
		{"srcx/a.erl", "src", false},
		{"ebin", "ebin", true},
		{"ebin/a.beam", "ebin/", true},
		{"a.erl", ".", true},
		{"a.erl", "", true},
		{"lib/a.erl", "src", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Under(tt.rel, tt.dir), "Under(%q, %q)", tt.rel, tt.dir)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	p, err := Open(t.TempDir())
	require.NoError(t, err)

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSourceDir}, cfg.SourceDirs)
	assert.Equal(t, []string{DefaultIncludeDir}, cfg.IncludeDirs)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Empty(t, cfg.RequiredBackendVersion)
}

func TestLoadConfig_File(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
source_dirs = ["src", "./lib/"]
include_dirs = ["include", "deps/include"]
output_dir = "_build/ebin/"
backend_version = "26.1"

[compiler_options]
debug_info = ""
warn_export_all = "true"
`)
	p, err := Open(root)
	require.NoError(t, err)

	cfg, err := p.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lib"}, cfg.SourceDirs)
	assert.Equal(t, []string{"include", "deps/include"}, cfg.IncludeDirs)
	assert.Equal(t, "_build/ebin", cfg.OutputDir)
	assert.Equal(t, "26.1", cfg.RequiredBackendVersion)
	assert.Equal(t, map[string]string{"debug_info": "", "warn_export_all": "true"}, cfg.CompilerOptions)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed", content: "source_dirs = ["},
		{name: "empty output dir", content: `output_dir = ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeConfig(t, root, tt.content)
			p, err := Open(root)
			require.NoError(t, err)

			_, err = p.LoadConfig()
			require.Error(t, err)
		})
	}
}
