package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/backend/mocks"
	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/delta"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
	"github.com/elskow/erlbuild/internal/server"
)

type staticProvider struct {
	be backend.Backend
}

func (p staticProvider) Acquire(context.Context, string) (backend.Backend, error) {
	return p.be, nil
}

func newLocalSession(t *testing.T, be backend.Backend) (*session, *bytes.Buffer) {
	t.Helper()
	sink := markers.NewMemory()
	out := &bytes.Buffer{}
	b := builder.NewBuilder(staticProvider{be}, sink, builder.NewMetricsCollector(nil), zap.NewNop())
	return &session{builder: b, sink: sink, out: out, log: zap.NewNop()}, out
}

func TestSession_BuildUsesSnapshots(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.erl"), []byte("-module(a)."), 0644))
	proj, err := project.Open(root)
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	be := mocks.NewMockBackend(ctrl)
	be.EXPECT().AddProjectPath(gomock.Any(), proj.Name, proj.Abs("ebin")).Return(nil)
	be.EXPECT().RemoveProjectPath(gomock.Any(), proj.Name).Return(nil)
	be.EXPECT().CompileSource(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req backend.SourceRequest) (backend.Future, error) {
			assert.Equal(t, "src/a.erl", req.Resource.Path)
			return backend.Resolved(types.CompileResult{
				Outcome: types.OutcomeError,
				Diagnostics: []types.Diagnostic{
					{Severity: types.SeverityError, Message: "syntax error before: '.'", Line: 3, Column: 7},
				},
			}, nil), nil
		})

	s, out := newLocalSession(t, be)
	ctx := context.Background()

	err = s.build(ctx, proj, types.KindIncremental, nil)
	require.EqualError(t, err, "build finished with errors")
	assert.Contains(t, out.String(), "src/a.erl:3:7: error: syntax error before: '.'")
	assert.FileExists(t, filepath.Join(proj.Abs("ebin"), delta.FileName))

	// unchanged tree: no second compile
	out.Reset()
	require.NoError(t, s.build(ctx, proj, types.KindIncremental, nil))
	assert.Equal(t, "nothing to do\n", out.String())
}

func TestSession_Clean(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ebin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.erl"), []byte("-module(a)."), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ebin", "a.beam"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "ebin", delta.FileName), []byte("version: 1\n"), 0644))
	proj, err := project.Open(root)
	require.NoError(t, err)

	s, out := newLocalSession(t, nil)
	require.NoError(t, s.clean(context.Background(), proj))

	assert.NoFileExists(t, filepath.Join(root, "ebin", "a.beam"))
	assert.NoFileExists(t, filepath.Join(root, "ebin", delta.FileName))
	assert.Contains(t, out.String(), "cleaned "+proj.Name)
}

func TestNewGlobal_DefaultsWithoutConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", server.EnvTesting)
	t.Setenv(server.ConfigPathEnv, t.TempDir())

	g, err := newGlobal(&CLI{Env: server.EnvTesting, ConfigDir: os.Getenv(server.ConfigPathEnv)})
	require.NoError(t, err)
	assert.Equal(t, "9300", g.Config.Server.Port)
	assert.Equal(t, "grpc", g.Config.Backend.Kind)
	assert.NotNil(t, g.Logger)
}

func TestStringMap(t *testing.T) {
	assert.Equal(t, map[string]any{"debug_info": ""}, stringMap(map[string]string{"debug_info": ""}))
	assert.Empty(t, stringMap(nil))
}
