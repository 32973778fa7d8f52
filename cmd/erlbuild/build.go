package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/api"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/buildsvc"
	"github.com/elskow/erlbuild/internal/delta"
	"github.com/elskow/erlbuild/internal/project"
	"github.com/elskow/erlbuild/internal/watch"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Project string            `arg:"" optional:"" help:"Project root" default:"." type:"existingdir"`
	Kind    string            `short:"k" help:"full or incremental" default:"incremental" enum:"full,incremental"`
	Option  map[string]string `short:"o" help:"Compiler option override (key=value)"`
	Daemon  string            `help:"Send the request to a build daemon at this address instead of building in process"`
	Token   string            `help:"Daemon token" env:"ERLBUILD_TOKEN"`
}

func (c *BuildCmd) Run(ctx context.Context, g *Global) error {
	kind, _ := types.ParseBuildKind(c.Kind)
	proj, err := project.Open(c.Project)
	if err != nil {
		return err
	}
	if c.Daemon != "" {
		return c.remote(ctx, proj, kind)
	}

	s, err := newSession(ctx, g, proj, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.build(ctx, proj, kind, c.Option)
}

// remote hands the pass to a daemon. The change description is still derived
// from the local snapshot, which is only advanced when the daemon succeeds.
func (c *BuildCmd) remote(ctx context.Context, proj *project.Project, kind types.BuildKind) error {
	cfg, err := proj.LoadConfig()
	if err != nil {
		return err
	}
	snapshot, err := delta.Take(proj, cfg)
	if err != nil {
		return err
	}

	fields := map[string]any{
		"project": proj.Root,
		"kind":    kind.String(),
		"options": stringMap(c.Option),
	}
	if kind == types.KindIncremental {
		prev, _ := delta.Load(delta.Path(proj, cfg))
		if d := delta.Diff(prev, snapshot); d != nil {
			fields["delta"] = buildsvc.EncodeDelta(d)
		}
	}

	if err := remote(ctx, c.Daemon, c.Token, api.BuilderBuild, fields); err != nil {
		return err
	}
	return snapshot.Save(delta.Path(proj, cfg))
}

// CleanCmd implements the 'clean' command.
type CleanCmd struct {
	Project string `arg:"" optional:"" help:"Project root" default:"." type:"existingdir"`
	Daemon  string `help:"Send the request to a build daemon at this address"`
	Token   string `help:"Daemon token" env:"ERLBUILD_TOKEN"`
}

func (c *CleanCmd) Run(ctx context.Context, g *Global) error {
	proj, err := project.Open(c.Project)
	if err != nil {
		return err
	}
	if c.Daemon != "" {
		return remote(ctx, c.Daemon, c.Token, api.BuilderClean, map[string]any{"project": proj.Root})
	}

	s, err := newSession(ctx, g, proj, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.clean(ctx, proj)
}

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Project  string        `arg:"" optional:"" help:"Project root" default:"." type:"existingdir"`
	Debounce time.Duration `help:"Quiet period before a rebuild" default:"300ms"`
}

func (c *WatchCmd) Run(ctx context.Context, g *Global) error {
	proj, err := project.Open(c.Project)
	if err != nil {
		return err
	}
	cfg, err := proj.LoadConfig()
	if err != nil {
		return err
	}
	s, err := newSession(ctx, g, proj, os.Stdout)
	if err != nil {
		return err
	}
	defer s.Close()

	rebuild := func(ctx context.Context) {
		if err := s.build(ctx, proj, types.KindIncremental, nil); err != nil {
			g.Logger.Warn("build failed", zap.Error(err))
		}
	}
	rebuild(ctx)

	fmt.Printf("watching %s\n", proj.Root)
	w := watch.New(proj.Root, []string{proj.Abs(cfg.OutputDir)}, c.Debounce, rebuild, g.Logger)
	return w.Run(ctx)
}

func remote(ctx context.Context, addr, token, method string, fields map[string]any) error {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to daemon: %w", err)
	}
	defer conn.Close()

	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	resp, err := api.Invoke(ctx, conn, method, req)
	if err != nil {
		return err
	}

	hasErrors := false
	for _, v := range resp.GetFields()["diagnostics"].GetListValue().GetValues() {
		d := v.GetStructValue().GetFields()
		sev := d["severity"].GetStringValue()
		if sev == types.SeverityError.String() {
			hasErrors = true
		}
		fmt.Printf("%s:%d: %s: %s\n", d["resource"].GetStringValue(),
			int(d["line"].GetNumberValue()), sev, d["message"].GetStringValue())
	}
	fmt.Printf("pass %s done in %dms\n",
		resp.GetFields()["pass_id"].GetStringValue(),
		int64(resp.GetFields()["elapsed_ms"].GetNumberValue()))
	if hasErrors {
		return errors.New("build finished with errors")
	}
	return nil
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
