package order

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeOrderFile(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644))
}

func TestOpen_MissingFile(t *testing.T) {
	s := Open(context.Background(), t.TempDir())
	for _, c := range Categories {
		assert.Empty(t, s.List(c), "category %s", c)
	}
	assert.Equal(t, Unlisted, s.Value(CategoryTeam, "anything"))
}

func TestOpen_CorruptFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeOrderFile(t, dir, "community: [unterminated\n  - : :")

	s := Open(context.Background(), dir)
	assert.Empty(t, s.List(CategoryCommunity))
	assert.Empty(t, s.List(CategoryTeam))
}

func TestOpen_IgnoresBadCategories(t *testing.T) {
	dir := t.TempDir()
	writeOrderFile(t, dir, "community: not-a-list\nteam:\n  - alpha\n  - 42\n  - beta\nlang:\n  - x\n")

	s := Open(context.Background(), dir)
	assert.Empty(t, s.List(CategoryCommunity))
	assert.Equal(t, []string{"alpha", "beta"}, s.List(CategoryTeam))
	assert.Empty(t, s.List("lang"), "unknown categories are dropped on load")
}

func TestValue(t *testing.T) {
	dir := t.TempDir()
	writeOrderFile(t, dir, "community:\n  - b\n  - a\n")

	s := Open(context.Background(), dir)
	assert.Equal(t, 1, s.Value(CategoryCommunity, "b"))
	assert.Equal(t, 2, s.Value(CategoryCommunity, "a"))
	assert.Equal(t, Unlisted, s.Value(CategoryCommunity, "c"))
	assert.Equal(t, Unlisted, s.Value(CategoryTeam, "a"))
	assert.Equal(t, Unlisted, s.Value("missing", "a"))
}

func TestAdd_PersistsAndIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := Open(ctx, dir)

	require.NoError(t, s.Add(CategoryTeam, "example"))
	require.NoError(t, s.Add(CategoryTeam, "style/go"))
	require.NoError(t, s.Add(CategoryTeam, "example"))

	assert.Equal(t, []string{"example", "style/go"}, s.List(CategoryTeam))

	reopened := Open(ctx, dir)
	assert.Equal(t, []string{"example", "style/go"}, reopened.List(CategoryTeam))
	assert.Empty(t, reopened.List(CategoryCommunity))

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Rule ordering")
	assert.Contains(t, string(data), "community: []")
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeOrderFile(t, dir, "team:\n  - a\n  - b\n  - c\n")
	s := Open(ctx, dir)

	removed, err := s.Remove(CategoryTeam, "b")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{"a", "c"}, s.List(CategoryTeam))

	removed, err = s.Remove(CategoryTeam, "b")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Equal(t, []string{"a", "c"}, Open(ctx, dir).List(CategoryTeam))
}

func TestMoveUpDown(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeOrderFile(t, dir, "community:\n  - a\n  - b\n  - c\n")
	s := Open(ctx, dir)

	tests := []struct {
		name string
		move func(string, string) (bool, error)
		id   string
		ok   bool
		want []string
	}{
		{"up at top", s.MoveUp, "a", false, []string{"a", "b", "c"}},
		{"down at bottom", s.MoveDown, "c", false, []string{"a", "b", "c"}},
		{"missing id", s.MoveUp, "zzz", false, []string{"a", "b", "c"}},
		{"up middle", s.MoveUp, "b", true, []string{"b", "a", "c"}},
		{"down first", s.MoveDown, "b", true, []string{"a", "b", "c"}},
		{"down to end", s.MoveDown, "b", true, []string{"a", "c", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := tt.move(CategoryCommunity, tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, s.List(CategoryCommunity))
		})
	}

	assert.Equal(t, []string{"a", "c", "b"}, Open(ctx, dir).List(CategoryCommunity))
}

func TestMoveUp_UnknownCategory(t *testing.T) {
	s := Open(context.Background(), t.TempDir())
	ok, err := s.MoveUp("lang", "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntries(t *testing.T) {
	dir := t.TempDir()
	writeOrderFile(t, dir, "team:\n  - t1\ncommunity:\n  - c1\n  - c2\n")
	s := Open(context.Background(), dir)

	assert.Equal(t, []Entry{
		{Category: CategoryCommunity, ID: "c1", Order: 1},
		{Category: CategoryCommunity, ID: "c2", Order: 2},
		{Category: CategoryTeam, ID: "t1", Order: 1},
	}, s.Entries())
}

func TestSave_WriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// rules dir path runs through a regular file, so MkdirAll fails.
	s := Open(context.Background(), filepath.Join(blocker, "rules"))
	assert.Error(t, s.Add(CategoryTeam, "x"))
}
