// Package docker runs the Erlang compiler in throwaway containers. Project
// directories are bind mounted at their host paths so absolute paths in
// requests resolve unchanged inside the container.
package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/config"
)

const DefaultImage = "erlang:26-alpine"

// containerAPI is the part of the docker client the backend uses.
type containerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	Close() error
}

type Backend struct {
	api      containerAPI
	image    string
	version  string
	platform *ocispec.Platform
	logger   *zap.Logger

	mu        sync.Mutex
	codePaths map[string]string // project -> output dir
}

// New connects to the docker daemon configured in the environment.
func New(cfg *config.DockerConfig, logger *zap.Logger) (*Backend, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newBackend(cli, cfg, logger), nil
}

func newBackend(api containerAPI, cfg *config.DockerConfig, logger *zap.Logger) *Backend {
	image := cfg.Image
	if image == "" {
		image = DefaultImage
	}
	return &Backend{
		api:       api,
		image:     image,
		version:   cfg.Version,
		platform:  parsePlatform(cfg.Platform),
		logger:    logger.With(zap.String("backend", "docker"), zap.String("image", image)),
		codePaths: make(map[string]string),
	}
}

func (b *Backend) Name() string    { return "docker:" + b.image }
func (b *Backend) Version() string { return b.version }

func (b *Backend) AddProjectPath(_ context.Context, project, outputDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.codePaths[project] = outputDir
	return nil
}

func (b *Backend) RemoveProjectPath(_ context.Context, project string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.codePaths, project)
	return nil
}

func (b *Backend) CompileSource(ctx context.Context, req backend.SourceRequest) (backend.Future, error) {
	if req.Path == "" || req.OutputDir == "" {
		return nil, fmt.Errorf("source request for %q is incomplete", req.Resource.Path)
	}
	paths := b.paths()
	cmd := []string{"erlc", "-o", req.OutputDir}
	for _, dir := range req.IncludeDirs {
		cmd = append(cmd, "-I", dir)
	}
	for _, dir := range paths {
		cmd = append(cmd, "-pa", dir)
	}
	cmd = append(cmd, compilerFlags(req.Options)...)
	cmd = append(cmd, req.Path)

	mounts := append([]string{filepath.Dir(req.Path), req.OutputDir}, req.IncludeDirs...)
	return b.submit(ctx, req.Resource, cmd, append(mounts, paths...)), nil
}

func (b *Backend) CompileGrammar(ctx context.Context, req backend.GrammarRequest) (backend.Future, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("grammar request for %q is incomplete", req.Resource.Path)
	}
	dir := filepath.Dir(req.Path)
	cmd := []string{"erlc", "-o", dir}
	cmd = append(cmd, compilerFlags(req.Options)...)
	cmd = append(cmd, req.Path)
	return b.submit(ctx, req.Resource, cmd, []string{dir}), nil
}

func (b *Backend) CompileAppSrc(ctx context.Context, req backend.AppSrcRequest) (backend.Future, error) {
	if req.TemplatePath == "" || req.DestPath == "" {
		return nil, fmt.Errorf("manifest request is incomplete")
	}
	cmd := []string{"erl", "-noshell", "-eval", appSrcScript(req)}
	mounts := append([]string{filepath.Dir(req.TemplatePath), filepath.Dir(req.DestPath)}, req.SourceDirs...)
	return b.submit(ctx, types.BuildResource{Path: req.TemplatePath}, cmd, mounts), nil
}

func (b *Backend) Close() error {
	return b.api.Close()
}

func (b *Backend) paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.codePaths))
	for _, dir := range b.codePaths {
		out = append(out, dir)
	}
	sort.Strings(out)
	return out
}

func (b *Backend) submit(ctx context.Context, res types.BuildResource, cmd []string, mounts []string) backend.Future {
	runCtx, cancel := context.WithCancel(ctx)
	p := backend.NewPromise(cancel)
	go func() {
		defer cancel()
		exit, stdout, stderr, err := b.run(runCtx, cmd, mounts)
		if err != nil {
			p.Resolve(types.CompileResult{Resource: res}, err)
			return
		}
		p.Resolve(interpret(res, exit, stdout+stderr), nil)
	}()
	return p
}

func (b *Backend) run(ctx context.Context, cmd []string, dirs []string) (int64, string, string, error) {
	resp, err := b.api.ContainerCreate(ctx,
		&container.Config{
			Image: b.image,
			Cmd:   cmd,
			Tty:   false,
		},
		&container.HostConfig{
			Mounts: bindMounts(dirs),
		},
		nil, b.platform, "")
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to create compiler container: %w", err)
	}
	defer func() {
		err := b.api.ContainerRemove(context.WithoutCancel(ctx), resp.ID, container.RemoveOptions{Force: true})
		if err != nil {
			b.logger.Warn("failed to remove compiler container",
				zap.String("container", resp.ID),
				zap.Error(err))
		}
	}()

	if err := b.api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return 0, "", "", fmt.Errorf("failed to start compiler container: %w", err)
	}

	var exit int64
	statusCh, errCh := b.api.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return 0, "", "", fmt.Errorf("failed waiting for compiler container: %w", err)
		}
	case st := <-statusCh:
		if st.Error != nil {
			return 0, "", "", fmt.Errorf("compiler container failed: %s", st.Error.Message)
		}
		exit = st.StatusCode
	case <-ctx.Done():
		return 0, "", "", ctx.Err()
	}

	logs, err := b.api.ContainerLogs(ctx, resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return 0, "", "", fmt.Errorf("failed to read compiler output: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil {
		return 0, "", "", fmt.Errorf("failed to demultiplex compiler output: %w", err)
	}

	b.logger.Debug("compiler container finished",
		zap.String("container", resp.ID),
		zap.Int64("exit_code", exit))
	return exit, stdout.String(), stderr.String(), nil
}

func bindMounts(dirs []string) []mount.Mount {
	seen := make(map[string]bool, len(dirs))
	var out []mount.Mount
	for _, d := range dirs {
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, mount.Mount{Type: mount.TypeBind, Source: d, Target: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// compilerFlags turns options into erlc flags: "d" defines macros, a true or
// empty value is a bare flag, anything else becomes a {Key, Value} term.
func compilerFlags(opts map[string]string) []string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var flags []string
	for _, k := range keys {
		v := opts[k]
		switch {
		case k == "d":
			for _, macro := range strings.Split(v, ",") {
				if macro = strings.TrimSpace(macro); macro != "" {
					flags = append(flags, "-D"+macro)
				}
			}
		case v == "false":
		case v == "" || v == "true":
			flags = append(flags, "+"+k)
		default:
			flags = append(flags, fmt.Sprintf("+{%s,%s}", k, v))
		}
	}
	return flags
}

// appSrcScript fills the modules list of an application resource template
// with every module found in the source directories and writes the result.
func appSrcScript(req backend.AppSrcRequest) string {
	dirs := make([]string, 0, len(req.SourceDirs))
	for _, d := range req.SourceDirs {
		dirs = append(dirs, erlString(d))
	}
	return fmt.Sprintf(
		`{ok,[{application,App,Props}]} = file:consult(%s), `+
			`Mods = [list_to_atom(filename:basename(F, ".erl")) || D <- [%s], F <- lists:sort(filelib:wildcard(filename:join(D, "*.erl")))], `+
			`Out = {application,App,lists:keystore(modules,1,Props,{modules,Mods})}, `+
			`ok = file:write_file(%s, io_lib:format("~p.~n", [Out])), `+
			`halt(0).`,
		erlString(req.TemplatePath), strings.Join(dirs, ","), erlString(req.DestPath))
}

func erlString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func parsePlatform(s string) *ocispec.Platform {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, "/")
	p := &ocispec.Platform{OS: parts[0]}
	if len(parts) > 1 {
		p.Architecture = parts[1]
	}
	if len(parts) > 2 {
		p.Variant = parts[2]
	}
	return p
}
