package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/backend/rpc"
	"github.com/elskow/erlbuild/internal/config"
)

func TestFactory_CreateLocator(t *testing.T) {
	tests := []struct {
		name    string
		config  config.BackendConfig
		want    []backend.Endpoint
		wantErr bool
	}{
		{
			name: "static endpoints by default",
			config: config.BackendConfig{
				Endpoints: []config.BackendEndpoint{
					{Address: "node-a:9400", Version: "26"},
					{Address: "node-b:9400", Version: "25.3"},
				},
			},
			want: []backend.Endpoint{
				{Name: "node-a:9400", Address: "node-a:9400", Version: "26"},
				{Name: "node-b:9400", Address: "node-b:9400", Version: "25.3"},
			},
		},
		{
			name:   "docker",
			config: config.BackendConfig{Kind: KindDocker, Docker: config.DockerConfig{Version: "26"}},
			want:   []backend.Endpoint{{Name: "docker", Address: "docker://erlang:26-alpine", Version: "26"}},
		},
		{
			name:    "unknown kind",
			config:  config.BackendConfig{Kind: "ssh"},
			wantErr: true,
		},
		{
			name:    "unknown discovery",
			config:  config.BackendConfig{Discovery: config.DiscoveryConfig{Kind: "consul"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFactory(&tt.config, nil, zap.NewNop())
			l, err := f.CreateLocator()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			got, err := l.Locate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFactory_OpenRemote(t *testing.T) {
	f := NewFactory(&config.BackendConfig{}, nil, zap.NewNop())

	be, err := f.Open(context.Background(), backend.Endpoint{Name: "node-a", Address: "127.0.0.1:1", Version: "26"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = be.(*rpc.Client).Close() })

	assert.Equal(t, "node-a", be.Name())
	assert.Equal(t, "26", be.Version())
}
