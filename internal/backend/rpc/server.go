package rpc

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/elskow/erlbuild/internal/backend"
)

// Server exposes a local backend.Backend as a compiler node. Each unary call
// waits for the backend's Future; a cancelled call cancels the Future.
type Server struct {
	backend backend.Backend
	log     *zap.Logger
}

func NewServer(be backend.Backend, log *zap.Logger) *Server {
	return &Server{backend: be, log: log}
}

func (s *Server) Info(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"name":    s.backend.Name(),
		"version": s.backend.Version(),
	})
}

func (s *Server) AddProjectPath(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	f := req.GetFields()
	project := f["project"].GetStringValue()
	if project == "" {
		return nil, status.Error(codes.InvalidArgument, "project is required")
	}
	if err := s.backend.AddProjectPath(ctx, project, f["output_dir"].GetStringValue()); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{}, nil
}

func (s *Server) RemoveProjectPath(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	project := req.GetFields()["project"].GetStringValue()
	if project == "" {
		return nil, status.Error(codes.InvalidArgument, "project is required")
	}
	if err := s.backend.RemoveProjectPath(ctx, project); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &structpb.Struct{}, nil
}

func (s *Server) CompileSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := decodeSourceRequest(req)
	if r.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	f, err := s.backend.CompileSource(ctx, r)
	return s.await(ctx, f, err)
}

func (s *Server) CompileGrammar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := decodeGrammarRequest(req)
	if r.Path == "" {
		return nil, status.Error(codes.InvalidArgument, "path is required")
	}
	f, err := s.backend.CompileGrammar(ctx, r)
	return s.await(ctx, f, err)
}

func (s *Server) CompileAppSrc(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r := decodeAppSrcRequest(req)
	if r.TemplatePath == "" || r.DestPath == "" {
		return nil, status.Error(codes.InvalidArgument, "template and dest are required")
	}
	f, err := s.backend.CompileAppSrc(ctx, r)
	return s.await(ctx, f, err)
}

func (s *Server) await(ctx context.Context, f backend.Future, err error) (*structpb.Struct, error) {
	if err != nil {
		if errors.Is(err, backend.ErrUnavailable) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.Error(codes.Internal, err.Error())
	}

	res, err := backend.Wait(ctx, f)
	if err != nil {
		if ctx.Err() != nil {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
		s.log.Warn("compile call failed", zap.Error(err))
		return nil, status.Error(codes.Internal, err.Error())
	}
	return encodeResult(res)
}
