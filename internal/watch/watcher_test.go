package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, contentRoot, configPath string, debounce time.Duration) chan struct{} {
	t.Helper()

	fired := make(chan struct{}, 16)
	w, err := NewWatcher(contentRoot, configPath, debounce, func() { fired <- struct{}{} })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(w.Stop)

	return fired
}

func awaitChange(t *testing.T, fired chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("no change callback")
	}
}

func TestWatcher_FiresOnMarkdownWrite(t *testing.T) {
	root := t.TempDir()
	posts := filepath.Join(root, "posts")
	require.NoError(t, os.MkdirAll(posts, 0o755))

	fired := startWatcher(t, root, "", 30*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(posts, "hello.md"), []byte("# Hello\n"), 0o644))
	awaitChange(t, fired)
}

func TestWatcher_FiresOnRemove(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "gone.md")
	require.NoError(t, os.WriteFile(path, []byte("draft\n"), 0o644))

	fired := startWatcher(t, root, "", 30*time.Millisecond)

	require.NoError(t, os.Remove(path))
	awaitChange(t, fired)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	fired := startWatcher(t, root, "", 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("scratch\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hello.md.swp"), []byte("vim\n"), 0o644))

	select {
	case <-fired:
		t.Fatal("callback fired for non-markdown files")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	root := t.TempDir()
	fired := startWatcher(t, root, "", 150*time.Millisecond)

	path := filepath.Join(root, "burst.md")
	for i := range 5 {
		require.NoError(t, os.WriteFile(path, []byte{byte('a' + i)}, 0o644))
	}

	awaitChange(t, fired)
	select {
	case <-fired:
		t.Fatal("burst produced more than one callback")
	case <-time.After(400 * time.Millisecond):
	}
}

func TestWatcher_WatchesConfigFile(t *testing.T) {
	siteRoot := t.TempDir()
	content := filepath.Join(siteRoot, "content")
	require.NoError(t, os.MkdirAll(content, 0o755))
	configPath := filepath.Join(siteRoot, "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("baseURL = \"https://example.com/\"\n"), 0o644))

	fired := startWatcher(t, content, configPath, 30*time.Millisecond)

	require.NoError(t, os.WriteFile(configPath, []byte("baseURL = \"https://example.org/\"\n"), 0o644))
	awaitChange(t, fired)
}

func TestWatcher_PicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	fired := startWatcher(t, root, "", 30*time.Millisecond)

	series := filepath.Join(root, "series")
	require.NoError(t, os.MkdirAll(series, 0o755))
	// Give the watcher a beat to register the new directory.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(series, "part-one.md"), []byte("# Part One\n"), 0o644))
	awaitChange(t, fired)
}

func TestScheduler_RunsPeriodicJob(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	var runs atomic.Int64
	id, err := s.Every("rescan", 20*time.Millisecond, func() { runs.Add(1) })
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s.Start()
	require.Eventually(t, func() bool { return runs.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })

	_, err = s.Every("rescan", 0, func() {})
	require.Error(t, err)
}
