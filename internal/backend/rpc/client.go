// Package rpc connects the builder to compile backends served over gRPC.
package rpc

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/api"
	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/builder/types"
)

// Client is a backend.Backend talking to a remote compiler node. Every compile
// call runs on its own goroutine and resolves a Promise.
type Client struct {
	conn    *grpc.ClientConn
	cc      grpc.ClientConnInterface
	name    string
	version string
	log     *zap.Logger
	closed  atomic.Bool
}

// Dial connects to ep. When ep carries no version the node is asked for it.
func Dial(ctx context.Context, ep backend.Endpoint, creds credentials.PerRPCCredentials, log *zap.Logger) (*Client, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if creds != nil {
		opts = append(opts, grpc.WithPerRPCCredentials(creds))
	}

	conn, err := grpc.NewClient(ep.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to backend %s: %w", ep.Address, err)
	}

	c := NewClient(conn, ep.Name, ep.Version, log)
	c.conn = conn
	if c.version == "" {
		if err := c.fetchInfo(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface, name, version string, log *zap.Logger) *Client {
	if name == "" {
		name = "remote"
	}
	return &Client{
		cc:      cc,
		name:    name,
		version: version,
		log:     log.With(zap.String("backend", name)),
	}
}

func (c *Client) Name() string    { return c.name }
func (c *Client) Version() string { return c.version }

func (c *Client) AddProjectPath(ctx context.Context, project, outputDir string) error {
	req, err := structpb.NewStruct(map[string]any{
		"project":    project,
		"output_dir": outputDir,
	})
	if err != nil {
		return err
	}
	if _, err := api.Invoke(ctx, c.cc, api.BackendAddProjectPath, req); err != nil {
		return fmt.Errorf("failed to add project path: %w", err)
	}
	return nil
}

func (c *Client) RemoveProjectPath(ctx context.Context, project string) error {
	req, err := structpb.NewStruct(map[string]any{"project": project})
	if err != nil {
		return err
	}
	if _, err := api.Invoke(ctx, c.cc, api.BackendRemoveProjectPath, req); err != nil {
		return fmt.Errorf("failed to remove project path: %w", err)
	}
	return nil
}

func (c *Client) CompileSource(ctx context.Context, req backend.SourceRequest) (backend.Future, error) {
	msg, err := encodeSourceRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.submit(ctx, api.BackendCompileSource, msg, req.Resource)
}

func (c *Client) CompileGrammar(ctx context.Context, req backend.GrammarRequest) (backend.Future, error) {
	msg, err := encodeGrammarRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.submit(ctx, api.BackendCompileGrammar, msg, req.Resource)
}

func (c *Client) CompileAppSrc(ctx context.Context, req backend.AppSrcRequest) (backend.Future, error) {
	msg, err := encodeAppSrcRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.submit(ctx, api.BackendCompileAppSrc, msg, types.BuildResource{Path: req.TemplatePath})
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) submit(ctx context.Context, method string, req *structpb.Struct, resource types.BuildResource) (backend.Future, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: client for %s is closed", backend.ErrUnavailable, c.name)
	}

	callCtx, cancel := context.WithCancel(ctx)
	p := backend.NewPromise(cancel)
	go func() {
		defer cancel()
		out, err := api.Invoke(callCtx, c.cc, method, req)
		if err != nil {
			c.log.Debug("backend call failed",
				zap.String("method", method),
				zap.String("resource", resource.Path),
				zap.Error(err))
			p.Resolve(types.CompileResult{Resource: resource}, err)
			return
		}
		p.Resolve(decodeResult(out, resource))
	}()
	return p, nil
}

func (c *Client) fetchInfo(ctx context.Context) error {
	out, err := api.Invoke(ctx, c.cc, api.BackendInfo, &structpb.Struct{})
	if err != nil {
		return fmt.Errorf("failed to query backend info: %w", err)
	}
	fields := out.GetFields()
	c.version = fields["version"].GetStringValue()
	if name := fields["name"].GetStringValue(); name != "" && c.name == "remote" {
		c.name = name
	}
	return nil
}
