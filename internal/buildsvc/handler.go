// Package buildsvc serves build and clean requests over gRPC.
package buildsvc

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/builder"
	"github.com/elskow/erlbuild/internal/builder/types"
	"github.com/elskow/erlbuild/internal/config"
	"github.com/elskow/erlbuild/internal/events"
	"github.com/elskow/erlbuild/internal/markers"
	"github.com/elskow/erlbuild/internal/project"
)

// Runner is the part of the builder the handler drives.
type Runner interface {
	Build(ctx context.Context, proj *project.Project, req types.BuildRequest) (*builder.Report, error)
	Clean(ctx context.Context, proj *project.Project) (*builder.Report, error)
}

type Handler struct {
	runner    Runner
	sink      markers.Sink
	allowed   map[string]bool
	publisher events.Publisher
	log       *zap.Logger

	mu    sync.Mutex
	names map[string]string // project name -> root
}

type Option func(*Handler)

// WithPublisher announces every finished pass through p.
func WithPublisher(p events.Publisher) Option {
	return func(h *Handler) { h.publisher = p }
}

func NewHandler(runner Runner, sink markers.Sink, cfg *config.BuildConfig, log *zap.Logger, opts ...Option) *Handler {
	allowed := make(map[string]bool, len(cfg.Projects))
	for _, p := range cfg.Projects {
		if abs, err := filepath.Abs(p); err == nil {
			allowed[abs] = true
		}
	}
	h := &Handler{
		runner:    runner,
		sink:      sink,
		allowed:   allowed,
		publisher: events.Nop{},
		log:       log,
		names:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Build(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	proj, err := h.project(req)
	if err != nil {
		return nil, err
	}

	fields := req.GetFields()
	kind := types.KindIncremental
	if s := fields["kind"].GetStringValue(); s != "" {
		k, ok := types.ParseBuildKind(s)
		if !ok {
			return nil, status.Errorf(codes.InvalidArgument, "unknown build kind %q", s)
		}
		kind = k
	}

	buildReq := types.BuildRequest{
		Kind:    kind,
		Delta:   decodeDelta(fields["delta"]),
		Options: decodeOptions(fields["options"]),
	}

	h.log.Info("handling build request",
		zap.String("project", proj.Root),
		zap.Stringer("kind", kind),
		zap.String("client", clientOf(ctx)))

	report, err := h.runner.Build(ctx, proj, buildReq)
	return h.respond(ctx, proj, report, err)
}

func (h *Handler) Clean(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	proj, err := h.project(req)
	if err != nil {
		return nil, err
	}

	h.log.Info("handling clean request",
		zap.String("project", proj.Root),
		zap.String("client", clientOf(ctx)))

	report, err := h.runner.Clean(ctx, proj)
	return h.respond(ctx, proj, report, err)
}

func (h *Handler) project(req *structpb.Struct) (*project.Project, error) {
	root := req.GetFields()["project"].GetStringValue()
	if root == "" {
		return nil, status.Error(codes.InvalidArgument, "project is required")
	}
	proj, err := project.Open(root)
	if err != nil {
		if errors.Is(err, project.ErrNotAccessible) {
			return nil, status.Error(codes.NotFound, err.Error())
		}
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if len(h.allowed) > 0 && !h.allowed[proj.Root] {
		return nil, status.Errorf(codes.PermissionDenied, "project %s is not served by this daemon", proj.Root)
	}
	if name := req.GetFields()["name"].GetStringValue(); name != "" {
		proj.Name = name
	}
	if err := h.claim(proj); err != nil {
		return nil, err
	}
	return proj, nil
}

// claim binds a project name to its root. Diagnostics are stored per name, so
// two roots must never share one.
func (h *Handler) claim(proj *project.Project) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if owner, ok := h.names[proj.Name]; ok && owner != proj.Root {
		return status.Errorf(codes.FailedPrecondition,
			"project name %q is already used by %s, pass a distinct name", proj.Name, owner)
	}
	h.names[proj.Name] = proj.Root
	return nil
}

func (h *Handler) respond(ctx context.Context, proj *project.Project, report *builder.Report, err error) (*structpb.Struct, error) {
	h.announce(ctx, proj, report, err)
	if err != nil {
		code := codeOf(err)
		if code == codes.Internal {
			h.log.Error("build pass failed", zap.String("project", proj.Root), zap.Error(err))
		}
		return nil, status.Error(code, err.Error())
	}

	out := encodeReport(report)
	if reader, ok := h.sink.(markers.Reader); ok {
		diags, err := reader.List(ctx, proj.Name)
		if err != nil {
			h.log.Warn("failed to list diagnostics", zap.String("project", proj.Name), zap.Error(err))
		} else {
			out["diagnostics"] = encodeDiagnostics(diags)
		}
	}
	return structpb.NewStruct(out)
}

func (h *Handler) announce(ctx context.Context, proj *project.Project, report *builder.Report, err error) {
	event := events.PassEvent{
		Project: proj.Name,
		Root:    proj.Root,
		Status:  builder.StatusSuccess,
	}
	switch {
	case errors.Is(err, builder.ErrCanceled):
		event.Status = builder.StatusCanceled
	case err != nil:
		event.Status = builder.StatusFailed
		event.Message = err.Error()
	}
	if report != nil {
		event.PassID = report.PassID
		event.Kind = report.Kind.String()
		event.Compiled = len(report.Results)
		event.ElapsedMS = report.Elapsed.Milliseconds()
		for _, res := range report.Results {
			if res.Outcome == types.OutcomeError && len(res.Diagnostics) == 0 {
				event.Errors++
			}
			for _, d := range res.Diagnostics {
				sev := d.Severity
				if sev == types.SeverityUnset && res.Outcome == types.OutcomeError {
					sev = types.SeverityError
				} else if sev == types.SeverityUnset {
					sev = types.SeverityWarning
				}
				switch sev {
				case types.SeverityError:
					event.Errors++
				case types.SeverityWarning:
					event.Warnings++
				}
			}
		}
	}

	if err := h.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		h.log.Warn("failed to publish pass event", zap.String("project", proj.Name), zap.Error(err))
	}
}

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, builder.ErrCanceled):
		return codes.Canceled
	case errors.Is(err, builder.ErrConfiguration):
		return codes.FailedPrecondition
	case errors.Is(err, builder.ErrBackendUnavailable):
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

func clientOf(ctx context.Context) string {
	client, err := auth.GetClientFromContext(ctx)
	if err != nil {
		return ""
	}
	return client
}
