package watcher

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, dir string, excludeDirs, excludeFiles []string) <-chan []string {
	t.Helper()
	changed := make(chan []string, 16)
	w, err := NewWatcher(50*time.Millisecond, excludeDirs, excludeFiles, func(paths []string) {
		changed <- paths
	})
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })
	require.NoError(t, w.Watch([]string{dir}))
	return changed
}

// waitFor drains batches until one contains path.
func waitFor(t *testing.T, changed <-chan []string, path string) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case paths := <-changed:
			if slices.Contains(paths, path) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for change of %s", path)
		}
	}
}

func expectQuiet(t *testing.T, changed <-chan []string, path string) {
	t.Helper()
	timeout := time.After(300 * time.Millisecond)
	for {
		select {
		case paths := <-changed:
			assert.NotContains(t, paths, path)
		case <-timeout:
			return
		}
	}
}

func TestNewWatcherRejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	assert.ErrorIs(t, err, os.ErrInvalid)
	assert.Nil(t, w)
}

func TestNewWatcherRejectsBadPattern(t *testing.T) {
	_, err := NewWatcher(100*time.Millisecond, nil, []string{"[a"}, func([]string) {})
	assert.Error(t, err)
}

func TestWatcherReportsQmlFiles(t *testing.T) {
	dir := t.TempDir()
	changed := newTestWatcher(t, dir, []string{"build"}, []string{"*_test.qml"})

	main := filepath.Join(dir, "Main.qml")
	require.NoError(t, os.WriteFile(main, []byte("Item {}"), 0o644))
	waitFor(t, changed, main)

	qmldir := filepath.Join(dir, "qmldir")
	require.NoError(t, os.WriteFile(qmldir, []byte("Button 1.0 Button.qml\n"), 0o644))
	waitFor(t, changed, qmldir)

	for _, name := range []string{"notes.txt", "Main_test.qml"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		expectQuiet(t, changed, p)
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	dir := t.TempDir()
	changed := newTestWatcher(t, dir, nil, nil)

	sub := filepath.Join(dir, "controls")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	nested := filepath.Join(sub, "Button.qml")
	require.NoError(t, os.WriteFile(nested, []byte("Item {}"), 0o644))

	waitFor(t, changed, nested)
}

func TestWatcherSkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Main.qml")
	require.NoError(t, os.WriteFile(path, []byte("Item {}"), 0o644))

	changed := newTestWatcher(t, dir, nil, nil)

	require.NoError(t, os.WriteFile(path, []byte("Item {}"), 0o644))
	expectQuiet(t, changed, path)

	require.NoError(t, os.WriteFile(path, []byte("Item { width: 1 }"), 0o644))
	waitFor(t, changed, path)
}

func TestWatcherReportsRemoval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Gone.qml")
	require.NoError(t, os.WriteFile(path, []byte("Item {}"), 0o644))

	changed := newTestWatcher(t, dir, nil, nil)
	require.NoError(t, os.Remove(path))
	waitFor(t, changed, path)
}
