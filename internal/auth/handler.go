package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log,
	}
}

func (h *Handler) Token(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	client := fields["client"].GetStringValue()
	secret := fields["secret"].GetStringValue()
	if client == "" {
		return nil, status.Error(codes.InvalidArgument, "client is required")
	}
	if secret == "" {
		return nil, status.Error(codes.InvalidArgument, "secret is required")
	}

	token, err := h.service.IssueToken(client, secret)
	if err != nil {
		if errors.Is(err, ErrInvalidSecret) {
			h.log.Warn("rejected token request", zap.String("client", client))
			return nil, status.Error(codes.Unauthenticated, "invalid client secret")
		}
		h.log.Error("failed to issue token", zap.String("client", client), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to issue token")
	}

	return structpb.NewStruct(map[string]any{
		"token":      token,
		"expires_in": h.service.config.TokenExpiration.Seconds(),
	})
}

func (h *Handler) ValidateToken(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	token := req.GetFields()["token"].GetStringValue()
	if token == "" {
		return structpb.NewStruct(map[string]any{
			"valid":   false,
			"message": "token is required",
		})
	}

	claims, err := h.service.ValidateToken(token)
	if err != nil {
		return structpb.NewStruct(map[string]any{
			"valid":   false,
			"message": err.Error(),
		})
	}

	return structpb.NewStruct(map[string]any{
		"valid":   true,
		"client":  claims.Client,
		"message": "Token is valid",
	})
}
