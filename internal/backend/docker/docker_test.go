package docker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/config"
)

type fakeAPI struct {
	mu       sync.Mutex
	exit     int64
	stdout   string
	stderr   string
	block    bool
	created  []*container.Config
	hosts    []*container.HostConfig
	platform *ocispec.Platform
	removed  []string
	createFn func() error
}

func (f *fakeAPI) ContainerCreate(_ context.Context, cfg *container.Config, host *container.HostConfig,
	_ *network.NetworkingConfig, platform *ocispec.Platform, _ string) (container.CreateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createFn != nil {
		if err := f.createFn(); err != nil {
			return container.CreateResponse{}, err
		}
	}
	f.created = append(f.created, cfg)
	f.hosts = append(f.hosts, host)
	f.platform = platform
	return container.CreateResponse{ID: "c1"}, nil
}

func (f *fakeAPI) ContainerStart(context.Context, string, container.StartOptions) error {
	return nil
}

func (f *fakeAPI) ContainerWait(ctx context.Context, _ string, _ container.WaitCondition) (<-chan container.WaitResponse, <-chan error) {
	statusCh := make(chan container.WaitResponse, 1)
	errCh := make(chan error, 1)
	if !f.block {
		statusCh <- container.WaitResponse{StatusCode: f.exit}
	}
	return statusCh, errCh
}

func (f *fakeAPI) ContainerLogs(context.Context, string, container.LogsOptions) (io.ReadCloser, error) {
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(f.stdout))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte(f.stderr))
	return io.NopCloser(&buf), nil
}

func (f *fakeAPI) ContainerRemove(_ context.Context, id string, _ container.RemoveOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeAPI) Close() error { return nil }

func (f *fakeAPI) removedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.removed)
}

func newTestBackend(api *fakeAPI) *Backend {
	return newBackend(api, &config.DockerConfig{Version: "26.2", Platform: "linux/arm64"}, zap.NewNop())
}

func TestBackend_CompileSource(t *testing.T) {
	api := &fakeAPI{
		stdout: "/p/src/a.erl:3:5: Warning: variable 'X' is unused\n",
	}
	b := newTestBackend(api)
	require.NoError(t, b.AddProjectPath(context.Background(), "app", "/p/ebin"))

	res := types.BuildResource{Path: "src/a.erl", Kind: types.ResourceSource}
	f, err := b.CompileSource(context.Background(), backend.SourceRequest{
		Resource:    res,
		Path:        "/p/src/a.erl",
		OutputDir:   "/p/ebin",
		IncludeDirs: []string{"/p/include"},
		Options:     map[string]string{"debug_info": "true", "d": "TEST,DEBUG", "warn_export_vars": "false"},
	})
	require.NoError(t, err)

	got, err := backend.Wait(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeOKWithWarnings, got.Outcome)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, "variable 'X' is unused", got.Diagnostics[0].Message)
	assert.Equal(t, types.SeverityWarning, got.Diagnostics[0].Severity)

	require.Len(t, api.created, 1)
	assert.Equal(t, DefaultImage, api.created[0].Image)
	assert.Equal(t, []string{
		"erlc", "-o", "/p/ebin",
		"-I", "/p/include",
		"-pa", "/p/ebin",
		"-DTEST", "-DDEBUG", "+debug_info",
		"/p/src/a.erl",
	}, []string(api.created[0].Cmd))

	var targets []string
	for _, m := range api.hosts[0].Mounts {
		targets = append(targets, m.Target)
	}
	assert.Equal(t, []string{"/p/ebin", "/p/include", "/p/src"}, targets)
	assert.Equal(t, "arm64", api.platform.Architecture)
	assert.Equal(t, 1, api.removedCount())
}

func TestBackend_CompileErrors(t *testing.T) {
	api := &fakeAPI{
		exit:   1,
		stderr: "/p/src/b.erl:7: syntax error before: '.'\n/p/src/b.erl: no such file\n",
	}
	b := newTestBackend(api)

	f, err := b.CompileSource(context.Background(), backend.SourceRequest{
		Resource:  types.BuildResource{Path: "src/b.erl"},
		Path:      "/p/src/b.erl",
		OutputDir: "/p/ebin",
	})
	require.NoError(t, err)

	got, err := backend.Wait(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeError, got.Outcome)
	require.Len(t, got.Diagnostics, 1)
	assert.Equal(t, 7, got.Diagnostics[0].Line)
	assert.Equal(t, types.SeverityError, got.Diagnostics[0].Severity)
}

func TestBackend_CreateFailure(t *testing.T) {
	api := &fakeAPI{createFn: func() error { return errors.New("image not found") }}
	b := newTestBackend(api)

	f, err := b.CompileGrammar(context.Background(), backend.GrammarRequest{
		Resource: types.BuildResource{Path: "src/p.yrl"},
		Path:     "/p/src/p.yrl",
	})
	require.NoError(t, err)

	_, err = backend.Wait(context.Background(), f)
	assert.ErrorContains(t, err, "image not found")
}

func TestBackend_Cancel(t *testing.T) {
	api := &fakeAPI{block: true}
	b := newTestBackend(api)

	f, err := b.CompileGrammar(context.Background(), backend.GrammarRequest{
		Resource: types.BuildResource{Path: "src/p.yrl"},
		Path:     "/p/src/p.yrl",
	})
	require.NoError(t, err)

	f.Cancel()
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("future not resolved after cancel")
	}
	_, err = f.Result()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, api.removedCount())
}

func TestBackend_IncompleteRequest(t *testing.T) {
	b := newTestBackend(&fakeAPI{})

	_, err := b.CompileSource(context.Background(), backend.SourceRequest{Path: "/p/src/a.erl"})
	assert.Error(t, err)
	_, err = b.CompileAppSrc(context.Background(), backend.AppSrcRequest{TemplatePath: "/p/src/a.app.src"})
	assert.Error(t, err)
}

func TestAppSrcScript(t *testing.T) {
	script := appSrcScript(backend.AppSrcRequest{
		TemplatePath: "/p/src/app.app.src",
		DestPath:     "/p/ebin/app.app",
		SourceDirs:   []string{"/p/src", `/p/we"ird`},
	})
	assert.Contains(t, script, `file:consult("/p/src/app.app.src")`)
	assert.Contains(t, script, `D <- ["/p/src","/p/we\"ird"]`)
	assert.Contains(t, script, `file:write_file("/p/ebin/app.app"`)
}

func TestParseDiagnostic(t *testing.T) {
	tests := []struct {
		name string
		line string
		want types.Diagnostic
		ok   bool
	}{
		{
			name: "warning with column",
			line: "src/a.erl:3:5: Warning: variable 'X' is unused",
			want: types.Diagnostic{Severity: types.SeverityWarning, Message: "variable 'X' is unused", Line: 3, Column: 5},
			ok:   true,
		},
		{
			name: "error without column",
			line: "src/a.erl:12: syntax error before: '.'",
			want: types.Diagnostic{Severity: types.SeverityError, Message: "syntax error before: '.'", Line: 12},
			ok:   true,
		},
		{
			name: "lowercase warning",
			line: "src/p.yrl:4:1: warning: conflicts: 1 shift/reduce",
			want: types.Diagnostic{Severity: types.SeverityWarning, Message: "conflicts: 1 shift/reduce", Line: 4, Column: 1},
			ok:   true,
		},
		{name: "noise", line: "Compiling src/a.erl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDiagnostic(tt.line)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
