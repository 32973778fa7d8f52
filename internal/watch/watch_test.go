package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShouldIgnoreEvent(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/p/src/a.erl", false},
		{"/p/src/a.erl~", true},
		{"/p/src/.a.erl.swp", true},
		{"/p/src/.#a.erl", true},
		{"/p/src/#a.erl#", true},
		{"/p/.settings/erlbuild.toml", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIgnoreEvent(tt.path), tt.path)
	}
}

func TestSkipped(t *testing.T) {
	w := New("/p", []string{"/p/ebin"}, 0, nil, zap.NewNop())
	assert.True(t, w.skipped("/p/ebin"))
	assert.True(t, w.skipped("/p/ebin/a.beam"))
	assert.False(t, w.skipped("/p/ebin2/x"))
	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestDebouncer(t *testing.T) {
	out := make(chan struct{}, 1)
	trigger := debouncer(20*time.Millisecond, out)
	for i := 0; i < 10; i++ {
		trigger()
	}

	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("debounced trigger never fired")
	}
	select {
	case <-out:
		t.Fatal("burst produced more than one trigger")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_Run(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "ebin"), 0755))

	var builds atomic.Int32
	rebuilt := make(chan struct{}, 8)
	w := New(root, []string{filepath.Join(root, "ebin")}, 20*time.Millisecond, func(context.Context) {
		builds.Add(1)
		rebuilt <- struct{}{}
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register directories.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "ebin", "a.beam"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.erl"), []byte("-module(a)."), 0644))

	select {
	case <-rebuilt:
	case <-time.After(5 * time.Second):
		t.Fatal("no rebuild after source change")
	}

	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, builds.Load(), int32(1))
}
