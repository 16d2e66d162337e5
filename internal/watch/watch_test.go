package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ccr/internal/rules"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRelevant(t *testing.T) {
	tests := map[string]bool{
		"team/a.yml":     true,
		"team/a.YAML":    true,
		"community/b.md": true,
		"order.yml":      true,
		"a.yml.swp":      false,
		"notes.txt":      false,
		"team":           false,
	}
	for path, want := range tests {
		assert.Equal(t, want, relevant(path), path)
	}
}

func TestFlushPending(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.yml"), "max_lines: 20\n")
	ctx := context.Background()

	engine := rules.New(dir)
	require.Len(t, engine.Rules(ctx), 1)

	var got []Result
	w, err := New(ctx, engine, rules.MergeOptions{}, 0, func(_ context.Context, r Result) {
		got = append(got, r)
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })
	assert.Equal(t, DefaultDebounce, w.debounce)

	w.flushPending(ctx)
	assert.Empty(t, got, "nothing pending, no reload")

	teamFile := filepath.Join(dir, "team", "x.yml")
	writeFile(t, teamFile, "max_lines: 80\n")
	w.handleFSEvent(ctx, fsnotify.Event{Name: teamFile, Op: fsnotify.Create})
	w.handleFSEvent(ctx, fsnotify.Event{Name: teamFile, Op: fsnotify.Write})
	w.handleFSEvent(ctx, fsnotify.Event{Name: filepath.Join(dir, "ignored.txt"), Op: fsnotify.Write})
	w.handleFSEvent(ctx, fsnotify.Event{Name: filepath.Join(dir, "base.yml"), Op: fsnotify.Chmod})
	w.flushPending(ctx)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"team/x.yml"}, got[0].Changed)
	assert.Equal(t, 2, got[0].Rules)
	require.NoError(t, got[0].Err)
	assert.Contains(t, got[0].Merged, "max_lines: 80")
	assert.Empty(t, w.pending)
}

func TestRun_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "base.yml"), "indent: 2\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 10)
	w, err := New(ctx, rules.New(dir), rules.MergeOptions{}, 20*time.Millisecond, func(_ context.Context, r Result) {
		results <- r
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	writeFile(t, filepath.Join(dir, "base.yml"), "indent: 4\n")

	select {
	case r := <-results:
		require.NoError(t, r.Err)
		assert.Contains(t, r.Changed, "base.yml")
		assert.Contains(t, r.Merged, "indent: 4")
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after change")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan Result, 10)
	w, err := New(ctx, rules.New(dir), rules.MergeOptions{}, 20*time.Millisecond, func(_ context.Context, r Result) {
		results <- r
	})
	require.NoError(t, err)
	go func() { _ = w.Run(ctx) }()

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "team"), 0o755))
	writeFile(t, filepath.Join(dir, "team", "late.yml"), "late: true\n")

	deadline := time.After(5 * time.Second)
	for {
		select {
		case r := <-results:
			if r.Rules == 1 {
				assert.Contains(t, r.Merged, "late: true")
				return
			}
		case <-deadline:
			t.Fatal("rule in new directory never loaded")
		}
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	_, err := New(context.Background(), rules.New(filepath.Join(t.TempDir(), "nope")), rules.MergeOptions{}, 0, nil)
	assert.Error(t, err)
}
