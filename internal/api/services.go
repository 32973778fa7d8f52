package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Method is the shape of every unary RPC in this module. Payloads travel as
// google.protobuf.Struct so no generated stubs are needed.
type Method func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

type BuilderServer interface {
	Build(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Clean(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type AuthServer interface {
	Token(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type BackendServer interface {
	Info(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	AddProjectPath(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	RemoveProjectPath(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompileSource(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompileGrammar(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CompileAppSrc(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var BuilderServiceDesc = grpc.ServiceDesc{
	ServiceName: BuilderService,
	HandlerType: (*BuilderServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Build", BuilderBuild, func(srv any) Method { return srv.(BuilderServer).Build }),
		unary("Clean", BuilderClean, func(srv any) Method { return srv.(BuilderServer).Clean }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "erlbuild/v1/builder.proto",
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthService,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Token", AuthToken, func(srv any) Method { return srv.(AuthServer).Token }),
		unary("ValidateToken", AuthValidateToken, func(srv any) Method { return srv.(AuthServer).ValidateToken }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "erlbuild/v1/auth.proto",
}

var BackendServiceDesc = grpc.ServiceDesc{
	ServiceName: BackendService,
	HandlerType: (*BackendServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Info", BackendInfo, func(srv any) Method { return srv.(BackendServer).Info }),
		unary("AddProjectPath", BackendAddProjectPath, func(srv any) Method { return srv.(BackendServer).AddProjectPath }),
		unary("RemoveProjectPath", BackendRemoveProjectPath, func(srv any) Method { return srv.(BackendServer).RemoveProjectPath }),
		unary("CompileSource", BackendCompileSource, func(srv any) Method { return srv.(BackendServer).CompileSource }),
		unary("CompileGrammar", BackendCompileGrammar, func(srv any) Method { return srv.(BackendServer).CompileGrammar }),
		unary("CompileAppSrc", BackendCompileAppSrc, func(srv any) Method { return srv.(BackendServer).CompileAppSrc }),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "erlbuild/backend/v1/backend.proto",
}

func RegisterBuilderServer(s grpc.ServiceRegistrar, srv BuilderServer) {
	s.RegisterService(&BuilderServiceDesc, srv)
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

func RegisterBackendServer(s grpc.ServiceRegistrar, srv BackendServer) {
	s.RegisterService(&BackendServiceDesc, srv)
}

// Invoke calls a unary method by its full name.
func Invoke(ctx context.Context, cc grpc.ClientConnInterface, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := cc.Invoke(ctx, method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func unary(name, fullMethod string, pick func(srv any) Method) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			call := pick(srv)
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
