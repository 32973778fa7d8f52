package backend

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// Endpoint describes a backend that can be opened.
type Endpoint struct {
	Name    string
	Address string
	Version string
}

// Locator lists the backends currently known.
type Locator interface {
	Locate(ctx context.Context) ([]Endpoint, error)
}

// Opener connects to an endpoint.
type Opener func(ctx context.Context, ep Endpoint) (Backend, error)

// StaticLocator serves a fixed endpoint list.
type StaticLocator []Endpoint

func (s StaticLocator) Locate(context.Context) ([]Endpoint, error) {
	return s, nil
}

// Manager hands out backends compatible with a required runtime version and
// keeps them open across passes.
type Manager struct {
	locator Locator
	open    Opener
	logger  *zap.Logger

	mu    sync.Mutex
	cache map[string]Backend
}

func NewManager(locator Locator, open Opener, logger *zap.Logger) *Manager {
	return &Manager{
		locator: locator,
		open:    open,
		logger:  logger,
		cache:   make(map[string]Backend),
	}
}

// Acquire returns the newest backend whose version is compatible with required.
// An empty required version accepts any backend.
func (m *Manager) Acquire(ctx context.Context, required string) (Backend, error) {
	endpoints, err := m.locator.Locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to locate backends: %v", ErrUnavailable, err)
	}

	candidates := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if Compatible(ep.Version, required) {
			candidates = append(candidates, ep)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: required version %q", ErrUnavailable, required)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return semver.Compare(canonical(candidates[i].Version), canonical(candidates[j].Version)) > 0
	})

	m.mu.Lock()
	defer m.mu.Unlock()

	var lastErr error
	for _, ep := range candidates {
		if b, ok := m.cache[ep.Address]; ok {
			return b, nil
		}
		b, err := m.open(ctx, ep)
		if err != nil {
			m.logger.Warn("failed to open backend",
				zap.String("backend", ep.Name),
				zap.String("address", ep.Address),
				zap.Error(err))
			lastErr = err
			continue
		}
		m.logger.Info("backend opened",
			zap.String("backend", ep.Name),
			zap.String("version", ep.Version))
		m.cache[ep.Address] = b
		return b, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Close releases every cached backend that holds resources.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for addr, b := range m.cache {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		delete(m.cache, addr)
	}
	return firstErr
}

// Compatible reports whether a backend at version have can build for required:
// same major version and not older.
func Compatible(have, required string) bool {
	if strings.TrimSpace(required) == "" {
		return true
	}
	h, r := canonical(have), canonical(required)
	if !semver.IsValid(h) || !semver.IsValid(r) {
		return false
	}
	return semver.Major(h) == semver.Major(r) && semver.Compare(h, r) >= 0
}

// canonical turns OTP style versions ("26", "26.2.1") into semver strings.
func canonical(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "OTP-")
	if v != "" && !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
