// Package discovery finds compiler nodes running as Kubernetes services.
package discovery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/config"
)

const (
	// VersionLabel carries the runtime version a compiler node builds for.
	VersionLabel = "erlbuild.io/otp-version"

	DefaultLabelSelector = "app.kubernetes.io/component=erlbuild-backend"
	DefaultPortName      = "grpc"
)

// Locator lists compiler node services on every call, so scaling the
// deployment is picked up by the next pass.
type Locator struct {
	client    K8sClient
	namespace string
	selector  string
	portName  string
	logger    *zap.Logger
}

func NewLocator(client K8sClient, cfg *config.DiscoveryConfig, logger *zap.Logger) *Locator {
	l := &Locator{
		client:    client,
		namespace: cfg.Namespace,
		selector:  cfg.LabelSelector,
		portName:  cfg.PortName,
		logger:    logger,
	}
	if l.namespace == "" {
		l.namespace = metav1.NamespaceDefault
	}
	if l.selector == "" {
		l.selector = DefaultLabelSelector
	}
	if l.portName == "" {
		l.portName = DefaultPortName
	}
	return l
}

func (l *Locator) Locate(ctx context.Context) ([]backend.Endpoint, error) {
	services, err := l.client.ListServices(ctx, l.namespace, metav1.ListOptions{LabelSelector: l.selector})
	if err != nil {
		return nil, fmt.Errorf("failed to list backend services: %w", err)
	}

	endpoints := make([]backend.Endpoint, 0, len(services.Items))
	for i := range services.Items {
		svc := &services.Items[i]
		port, ok := l.port(svc)
		if !ok {
			l.logger.Warn("backend service has no usable port",
				zap.String("service", svc.Name),
				zap.String("port_name", l.portName))
			continue
		}
		endpoints = append(endpoints, backend.Endpoint{
			Name:    svc.Name,
			Address: fmt.Sprintf("%s.%s.svc:%d", svc.Name, svc.Namespace, port),
			Version: svc.Labels[VersionLabel],
		})
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i].Name < endpoints[j].Name })

	l.logger.Debug("discovered backends",
		zap.String("namespace", l.namespace),
		zap.Int("count", len(endpoints)))
	return endpoints, nil
}

func (l *Locator) port(svc *corev1.Service) (int32, bool) {
	for _, p := range svc.Spec.Ports {
		if p.Name == l.portName {
			return p.Port, true
		}
	}
	if len(svc.Spec.Ports) == 1 {
		return svc.Spec.Ports[0].Port, true
	}
	return 0, false
}
