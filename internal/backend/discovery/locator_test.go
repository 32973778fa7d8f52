package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/elskow/erlbuild/internal/backend"
	"github.com/elskow/erlbuild/internal/config"
)

func service(name, namespace string, labels map[string]string, ports ...corev1.ServicePort) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{Ports: ports},
	}
}

func backendLabels(version string) map[string]string {
	return map[string]string{
		"app.kubernetes.io/component": "erlbuild-backend",
		VersionLabel:                  version,
	}
}

func TestLocator_Locate(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		service("otp26", "build", backendLabels("26.2"),
			corev1.ServicePort{Name: "metrics", Port: 9100},
			corev1.ServicePort{Name: "grpc", Port: 9400}),
		service("otp25", "build", backendLabels("25.3"),
			corev1.ServicePort{Name: "anything", Port: 9401}),
		service("broken", "build", backendLabels("27"),
			corev1.ServicePort{Name: "a", Port: 1},
			corev1.ServicePort{Name: "b", Port: 2}),
		service("web", "build", map[string]string{"app": "web"},
			corev1.ServicePort{Name: "grpc", Port: 80}),
		service("otp24", "other", backendLabels("24"),
			corev1.ServicePort{Name: "grpc", Port: 9400}),
	)

	l := NewLocator(NewRealK8sClient(clientset), &config.DiscoveryConfig{Namespace: "build"}, zap.NewNop())

	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []backend.Endpoint{
		{Name: "otp25", Address: "otp25.build.svc:9401", Version: "25.3"},
		{Name: "otp26", Address: "otp26.build.svc:9400", Version: "26.2"},
	}, got)
}

func TestLocator_Defaults(t *testing.T) {
	l := NewLocator(NewRealK8sClient(fake.NewSimpleClientset()), &config.DiscoveryConfig{}, zap.NewNop())
	assert.Equal(t, metav1.NamespaceDefault, l.namespace)
	assert.Equal(t, DefaultLabelSelector, l.selector)
	assert.Equal(t, DefaultPortName, l.portName)

	got, err := l.Locate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLocator_FeedsManager(t *testing.T) {
	clientset := fake.NewSimpleClientset(
		service("otp26", "default", backendLabels("26.1"), corev1.ServicePort{Name: "grpc", Port: 9400}),
		service("otp26-new", "default", backendLabels("26.3"), corev1.ServicePort{Name: "grpc", Port: 9400}),
	)
	l := NewLocator(NewRealK8sClient(clientset), &config.DiscoveryConfig{}, zap.NewNop())

	var opened []string
	m := backend.NewManager(l, func(_ context.Context, ep backend.Endpoint) (backend.Backend, error) {
		opened = append(opened, ep.Name)
		return nil, assert.AnError
	}, zap.NewNop())

	_, err := m.Acquire(context.Background(), "26.2")
	assert.ErrorIs(t, err, backend.ErrUnavailable)
	assert.Equal(t, []string{"otp26-new"}, opened)
}
