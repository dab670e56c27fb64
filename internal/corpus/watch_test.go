package corpus

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Relevant(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(Source{Root: root, Subdirs: []string{"docs"}}, 0, nil, nil)
	require.NoError(t, err)
	defer w.fsw.Close()

	rel, ok := w.relevant(filepath.Join(root, "docs", "sub", "a.md"))
	assert.True(t, ok)
	assert.Equal(t, "docs/sub/a.md", rel)

	_, ok = w.relevant(filepath.Join(root, "docs", "a.txt"))
	assert.False(t, ok)

	_, ok = w.relevant(filepath.Join(root, "other", "a.md"))
	assert.False(t, ok)

	assert.Equal(t, DefaultDebounce, w.debounce)
}

func TestWatcher_DebouncesChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "a")

	var calls atomic.Int32
	fired := make(chan struct{}, 10)
	onChange := func(ctx context.Context) error {
		calls.Add(1)
		fired <- struct{}{}
		return nil
	}

	w, err := NewWatcher(Source{Root: root, Subdirs: []string{"docs"}}, 100*time.Millisecond, onChange, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give Run time to register the directories
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.md"), []byte{byte('a' + i)}, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "ignored.txt"), []byte("x"), 0o644))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("change callback was not invoked")
	}

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))

	fired := make(chan struct{}, 10)
	onChange := func(ctx context.Context) error {
		fired <- struct{}{}
		return nil
	}

	w, err := NewWatcher(Source{Root: root, Subdirs: []string{"docs"}}, 50*time.Millisecond, onChange, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "fresh"), 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "fresh", "new.md"), []byte("# New"), 0o644))

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("change in new directory was not reported")
	}
}
