// Package factory builds the backend locator and opener selected by the
// application configuration.
package factory

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/credentials"

	"github.com/elskow/erlbuild/internal/auth"
	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/backend/discovery"
	"github.com/elskow/erlbuild/internal/backend/docker"
	"github.com/elskow/erlbuild/internal/backend/rpc"
	"github.com/elskow/erlbuild/internal/config"
)

const (
	KindGRPC   = "grpc"
	KindDocker = "docker"

	DiscoveryStatic     = "static"
	DiscoveryKubernetes = "kubernetes"

	defaultSubject = "erlbuild"
)

type Factory struct {
	config *config.BackendConfig
	auth   *auth.Service
	logger *zap.Logger
}

func NewFactory(config *config.BackendConfig, auth *auth.Service, logger *zap.Logger) *Factory {
	return &Factory{
		config: config,
		auth:   auth,
		logger: logger,
	}
}

func (f *Factory) CreateLocator() (backend.Locator, error) {
	switch f.kind() {
	case KindDocker:
		image := f.config.Docker.Image
		if image == "" {
			image = docker.DefaultImage
		}
		return backend.StaticLocator{{
			Name:    "docker",
			Address: "docker://" + image,
			Version: f.config.Docker.Version,
		}}, nil
	case KindGRPC:
		return f.createRemoteLocator()
	default:
		return nil, fmt.Errorf("unsupported backend kind: %s", f.config.Kind)
	}
}

func (f *Factory) createRemoteLocator() (backend.Locator, error) {
	switch f.config.Discovery.Kind {
	case "", DiscoveryStatic:
		endpoints := make(backend.StaticLocator, 0, len(f.config.Endpoints))
		for _, ep := range f.config.Endpoints {
			endpoints = append(endpoints, backend.Endpoint{
				Name:    ep.Address,
				Address: ep.Address,
				Version: ep.Version,
			})
		}
		return endpoints, nil
	case DiscoveryKubernetes:
		clientset, err := discovery.NewClientset(f.config.Discovery.Kubeconfig)
		if err != nil {
			return nil, err
		}
		return discovery.NewLocator(discovery.NewRealK8sClient(clientset), &f.config.Discovery, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported discovery kind: %s", f.config.Discovery.Kind)
	}
}

func (f *Factory) Open(ctx context.Context, ep backend.Endpoint) (backend.Backend, error) {
	switch f.kind() {
	case KindDocker:
		be, err := docker.New(&f.config.Docker, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create docker backend: %w", err)
		}
		return be, nil
	default:
		subject := f.config.Subject
		if subject == "" {
			subject = defaultSubject
		}
		var creds credentials.PerRPCCredentials
		if f.auth != nil {
			creds = auth.NewTokenCredentials(f.auth, subject, false)
		}
		client, err := rpc.Dial(ctx, ep, creds, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create remote backend: %w", err)
		}
		return client, nil
	}
}

func (f *Factory) kind() string {
	if f.config.Kind == "" {
		return KindGRPC
	}
	return f.config.Kind
}
