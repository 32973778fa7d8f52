package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func request(t *testing.T, fields map[string]any) *structpb.Struct {
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestHandler_Token(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		fields   map[string]any
		wantCode codes.Code
	}{
		{
			name:     "valid secret",
			fields:   map[string]any{"client": "ide", "secret": testSecret},
			wantCode: codes.OK,
		},
		{
			name:     "missing client",
			fields:   map[string]any{"secret": testSecret},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "missing secret",
			fields:   map[string]any{"client": "ide"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "wrong secret",
			fields:   map[string]any{"client": "ide", "secret": "wrong"},
			wantCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.Token(ctx, request(t, tt.fields))
			if tt.wantCode != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, resp.GetFields()["token"].GetStringValue())
			assert.Equal(t, float64(3600), resp.GetFields()["expires_in"].GetNumberValue())
		})
	}
}

func TestHandler_ValidateToken(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	resp, err := h.Token(ctx, request(t, map[string]any{"client": "ide", "secret": testSecret}))
	require.NoError(t, err)
	validToken := resp.GetFields()["token"].GetStringValue()

	tests := []struct {
		name      string
		token     string
		wantValid bool
	}{
		{name: "valid token", token: validToken, wantValid: true},
		{name: "invalid token", token: "invalid.token.here"},
		{name: "empty token", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := h.ValidateToken(ctx, request(t, map[string]any{"token": tt.token}))
			require.NoError(t, err)

			fields := resp.GetFields()
			assert.Equal(t, tt.wantValid, fields["valid"].GetBoolValue())
			if tt.wantValid {
				assert.Equal(t, "ide", fields["client"].GetStringValue())
			}
		})
	}
}

func TestAuthMiddleware(t *testing.T) {
	cfg := newTestConfig(t)
	svc := NewService(cfg, newTestLogger(t))
	m := NewAuthMiddleware(cfg)

	token, err := svc.GenerateToken("ide")
	require.NoError(t, err)

	tests := []struct {
		name     string
		ctx      context.Context
		wantCode codes.Code
	}{
		{
			name:     "bearer token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token)),
			wantCode: codes.OK,
		},
		{
			name:     "raw token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", token)),
			wantCode: codes.OK,
		},
		{
			name:     "no metadata",
			ctx:      context.Background(),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "no token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "x")),
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "bad token",
			ctx:      metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "garbage")),
			wantCode: codes.Unauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := m.AuthenticationMiddleware(tt.ctx)
			if tt.wantCode != codes.OK {
				assert.Equal(t, tt.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			client, err := GetClientFromContext(ctx)
			require.NoError(t, err)
			assert.Equal(t, "ide", client)
		})
	}
}

func TestTokenCredentials(t *testing.T) {
	svc := newTestService(t)
	creds := NewTokenCredentials(svc, "erlbuild", false)

	md, err := creds.GetRequestMetadata(context.Background())
	require.NoError(t, err)
	assert.False(t, creds.RequireTransportSecurity())

	claims, err := svc.ValidateToken(bearer(md["authorization"]))
	require.NoError(t, err)
	assert.Equal(t, "erlbuild", claims.Client)
}
