package watch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestDebouncer(t *testing.T) {
	t.Run("collapses changes", func(t *testing.T) {
		calls := make(chan []string, 4)
		d := NewDebouncer(30 * time.Millisecond)
		d.SetCallback(func(files []string) { calls <- files })

		d.Add("user.go")
		d.Add("post.go")
		d.Add("user.go")

		select {
		case files := <-calls:
			assert.Equal(t, []string{"post.go", "user.go"}, files)
		case <-time.After(time.Second):
			t.Fatal("callback not called")
		}
		select {
		case files := <-calls:
			t.Fatalf("unexpected second callback with %v", files)
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("separate batches", func(t *testing.T) {
		calls := make(chan []string, 4)
		d := NewDebouncer(20 * time.Millisecond)
		d.SetCallback(func(files []string) { calls <- files })

		d.Add("a.go")
		assert.Equal(t, []string{"a.go"}, <-calls)
		d.Add("b.go")
		assert.Equal(t, []string{"b.go"}, <-calls)
	})

	t.Run("stop cancels pending changes", func(t *testing.T) {
		calls := make(chan []string, 1)
		d := NewDebouncer(50 * time.Millisecond)
		d.SetCallback(func(files []string) { calls <- files })

		d.Add("a.go")
		d.Stop()
		d.Add("b.go")
		select {
		case files := <-calls:
			t.Fatalf("unexpected callback with %v", files)
		case <-time.After(150 * time.Millisecond):
		}
	})
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "actors")
	require.NoError(t, os.Mkdir(out, 0o755))
	schema := filepath.Join(dir, "shop.yaml")
	require.NoError(t, os.WriteFile(schema, []byte("package: shop\n"), 0o644))

	calls := make(chan []string, 4)
	core, logs := observer.New(zap.DebugLevel)
	w, err := New(Options{
		Patterns: []string{"*.go", "*.yaml"},
		Ignored:  []string{out},
		Delay:    20 * time.Millisecond,
		Logger:   zap.New(core),
	}, func(files []string) error {
		calls <- files
		return errors.New("generation failed")
	})
	require.NoError(t, err)
	require.NoError(t, w.Start(schema, dir))
	defer func() { require.NoError(t, w.Stop()) }()

	// Ignored: generated output, test files, hidden files and other extensions.
	require.NoError(t, os.WriteFile(filepath.Join(out, "user_query.go"), []byte("package actors\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "user_test.go"), []byte("package shop\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".shop.yaml.swp"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))
	require.NoError(t, os.WriteFile(schema, []byte("package: shop\nmodels: []\n"), 0o644))

	select {
	case files := <-calls:
		assert.Equal(t, []string{schema}, files)
	case <-time.After(2 * time.Second):
		t.Fatal("no change detected")
	}
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("change handler failed").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestWatcherStart(t *testing.T) {
	w, err := New(Options{}, func([]string) error { return nil })
	require.NoError(t, err)
	err = w.Start(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
	require.NoError(t, w.watcher.Close())
}

func TestWatcherStop(t *testing.T) {
	w, err := New(Options{}, func([]string) error { return nil })
	require.NoError(t, err)
	require.NoError(t, w.Start(t.TempDir()))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
