package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ccr/internal/order"
)

// writeRules creates files under dir from a map of slash paths to contents.
func writeRules(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func names(rs []*Rule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Name)
	}
	return out
}

func TestLoad_MissingDirectory(t *testing.T) {
	e := New(filepath.Join(t.TempDir(), "does-not-exist"))
	rs := e.Load(context.Background())
	assert.Empty(t, rs)
	assert.Empty(t, e.Rules(context.Background()))
}

func TestLoad_LevelsFromLocation(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"base.yml":                    "k: base\n",
		"community/google/python.yml": "k: community\n",
		"team/example.yml":            "k: team\n",
		"stray.yml":                   "k: stray\n",
		"other/nested.md":             "stray prose",
		"team/deep/nested/rule.md":    "team prose",
		"community/base.yml":          "k: not-base\n",
	})

	e := New(dir)
	levels := map[string]Level{}
	for _, r := range e.Rules(context.Background()) {
		levels[filepath.ToSlash(mustRel(t, dir, r.Source))] = r.Level
	}

	assert.Equal(t, map[string]Level{
		"base.yml":                    LevelBase,
		"community/google/python.yml": LevelCommunity,
		"community/base.yml":          LevelCommunity,
		"team/example.yml":            LevelTeam,
		"team/deep/nested/rule.md":    LevelTeam,
		"stray.yml":                   LevelCommunity,
		"other/nested.md":             LevelCommunity,
	}, levels)
}

func mustRel(t *testing.T, base, target string) string {
	t.Helper()
	rel, err := filepath.Rel(base, target)
	require.NoError(t, err)
	return rel
}

func TestLoad_SkipsReservedFiles(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"order.yml":                  "team: []\n",
		"config.yaml":                "model: gpt-4\n",
		"README.md":                  "# Rules\n",
		"community/google/README.md": "docs",
		"community/acme/config.yaml": "_meta:\n  name: acme-config\nk: v\n",
		"community/acme/style.yml":   "k: v\n",
		"team/order.yml":             "team: []\n",
		"team/Config.yml":            "k: v\n",
	})

	rs := New(dir).Load(context.Background())
	assert.Equal(t, []string{"style"}, names(rs))
}

func TestLoad_StructuredWinsOverProse(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"team/x.md":  "---\nname: x-prose\n---\nprose body",
		"team/x.yml": "_meta:\n  name: x\nstyle:\n  quotes: double\n",
		"team/y.md":  "only prose",
	})

	rs := New(dir).Load(context.Background())
	require.Len(t, rs, 2)
	assert.Equal(t, []string{"x", "y"}, names(rs))
	assert.True(t, rs[0].Structured)
	assert.False(t, rs[1].Structured)

	doc, err := Merge(rs, MergeOptions{})
	require.NoError(t, err)
	assert.NotContains(t, doc, "prose body")
	assert.Contains(t, doc, "quotes: double")
}

func TestLoad_UnparsableFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"team/good.yml": "k: v\n",
		"team/bad.yml":  "k: [unclosed\n",
		"team/list.yml": "- a\n",
	})

	rs := New(dir).Load(context.Background())
	assert.Equal(t, []string{"good"}, names(rs))
}

func TestLoad_SortOrder(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"team/alpha.yml":     "k: 1\n",
		"community/Zeta.yml": "k: 1\n",
		"community/beta.yml": "k: 1\n",
		"base.yml":           "k: 1\n",
		"team/Bravo.md":      "text",
	})

	rs := New(dir).Load(context.Background())
	assert.Equal(t, []string{"base", "beta", "Zeta", "alpha", "Bravo"}, names(rs))
	for _, r := range rs {
		assert.Equal(t, order.Unlisted, r.Order, r.Name)
	}
}

func TestLoad_OrderStoreTieBreak(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeRules(t, dir, map[string]string{
		"community/a.yml": "k: a\n",
		"community/b.yml": "k: b\n",
	})

	e := New(dir)
	assert.Equal(t, []string{"a", "b"}, names(e.Rules(ctx)))

	require.NoError(t, order.Open(ctx, dir).Add(order.CategoryCommunity, "b"))
	assert.Equal(t, []string{"a", "b"}, names(e.Rules(ctx)), "no rescan without Reload")

	rs := e.Reload(ctx)
	assert.Equal(t, []string{"b", "a"}, names(rs))
	assert.Equal(t, 1, rs[0].Order)
	assert.Equal(t, order.Unlisted, rs[1].Order)
}

func TestLoad_OrderStoreFullList(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"community/a.yml":             "k: a\n",
		"community/b.yml":             "k: b\n",
		"community/google/python.yml": "_meta:\n  name: gpy\nk: g\n",
		"team/t.yml":                  "k: t\n",
		"order.yml":                   "community:\n  - google/python\n  - b\n  - a\nteam:\n  - t\n",
	})

	rs := New(dir).Load(context.Background())
	assert.Equal(t, []string{"gpy", "b", "a", "t"}, names(rs))
	assert.Equal(t, []int{1, 2, 3, 1}, []int{rs[0].Order, rs[1].Order, rs[2].Order, rs[3].Order})
}

func TestLoad_Deterministic(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"community/a.yml":     "k: 1\n",
		"community/sub/a.yml": "k: 2\n",
		"community/A.md":      "upper",
		"team/x.yml":          "k: 3\n",
		"team/y.md":           "y",
		"base.md":             "base",
	})

	ctx := context.Background()
	e := New(dir)
	first := e.Load(ctx)
	var firstSources []string
	for _, r := range first {
		firstSources = append(firstSources, r.Source)
	}
	second := e.Reload(ctx)
	var secondSources []string
	for _, r := range second {
		secondSources = append(secondSources, r.Source)
	}
	assert.Equal(t, firstSources, secondSources)
}

func TestLoad_ProseLevelOverride(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"community/legacy.md": "---\nlevel: 3\n---\nlegacy",
		"team/plain.md":       "plain",
	})

	rs := New(dir).Load(context.Background())
	require.Len(t, rs, 2)
	for _, r := range rs {
		assert.Equal(t, LevelTeam, r.Level, r.Name)
	}
}

func TestLoad_ProseWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"team/naming.md": "Use clear names.\n",
	})

	rs := New(dir).Load(context.Background())
	require.Len(t, rs, 1)
	assert.Equal(t, "naming", rs[0].Name)
	assert.Equal(t, LevelTeam, rs[0].Level)
	assert.Equal(t, "Use clear names.", rs[0].Content)
}

func TestReload_PicksUpNewFiles(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	writeRules(t, dir, map[string]string{"team/a.yml": "k: 1\n"})

	e := New(dir)
	require.Len(t, e.Rules(ctx), 1)

	writeRules(t, dir, map[string]string{"team/b.yml": "k: 2\n"})
	assert.Len(t, e.Rules(ctx), 1)
	assert.Len(t, e.Reload(ctx), 2)
}

func TestOrderKeyAndCategory(t *testing.T) {
	tests := []struct {
		rel      string
		category string
		key      string
	}{
		{"community/google/python.yml", order.CategoryCommunity, "google/python"},
		{"community/a.md", order.CategoryCommunity, "a"},
		{"team/example.yml", order.CategoryTeam, "example"},
		{"Team/Nested/x.yaml", order.CategoryTeam, "Nested/x"},
		{"base.yml", order.CategoryCommunity, "base"},
		{"other/x.yml", order.CategoryCommunity, "other/x"},
		{"team.yml", order.CategoryCommunity, "team"},
	}
	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			c := categoryFor(tt.rel)
			assert.Equal(t, tt.category, c)
			assert.Equal(t, tt.key, orderKey(tt.rel, c))
		})
	}
}

func TestOrderRef(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"community/google/python.yml": "k: 1\n",
		"team/x.md":                   "x",
	})
	e := New(dir)
	ctx := context.Background()

	refs := map[string][2]string{}
	for _, r := range e.Rules(ctx) {
		c, id, err := e.OrderRef(r)
		require.NoError(t, err)
		refs[r.Name] = [2]string{c, id}
	}
	assert.Equal(t, map[string][2]string{
		"python": {order.CategoryCommunity, "google/python"},
		"x":      {order.CategoryTeam, "x"},
	}, refs)

	_, _, err := e.OrderRef(&Rule{Source: filepath.Join(t.TempDir(), "elsewhere.yml")})
	assert.Error(t, err)
}

func TestQueries(t *testing.T) {
	dir := t.TempDir()
	writeRules(t, dir, map[string]string{
		"base.yml":         "_meta:\n  tags: [general]\nk: 1\n",
		"community/py.yml": "_meta:\n  name: Python\n  language: python\n  tags: [style]\nk: 2\n",
		"community/js.yml": "_meta:\n  language: JavaScript\n  tags: [Security]\nk: 3\n",
		"team/sec.md":      "---\ntags: [security, style]\n---\nbody",
	})
	ctx := context.Background()
	e := New(dir)

	assert.Equal(t, []string{"base", "js", "Python", "sec"}, names(e.ForLanguage(ctx, "")))
	assert.Equal(t, []string{"base", "Python", "sec"}, names(e.ForLanguage(ctx, "PYTHON")))
	assert.Equal(t, []string{"base", "js", "sec"}, names(e.ForLanguage(ctx, "javascript")))
	assert.Equal(t, []string{"base", "sec"}, names(e.ForLanguage(ctx, "rust")))

	assert.Equal(t, []string{"js", "sec"}, names(e.ByTags(ctx, []string{"security"})))
	assert.Equal(t, []string{"base", "js", "Python", "sec"}, names(e.ByTags(ctx, nil)))
	assert.Empty(t, e.ByTags(ctx, []string{"nope"}))
	assert.Equal(t, []string{"sec"}, names(e.Select(ctx, "rust", []string{"style"})))

	r, err := e.Lookup(ctx, "python")
	require.NoError(t, err)
	assert.Equal(t, "Python", r.Name)

	_, err = e.Lookup(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	sums := e.Summaries(ctx)
	require.Len(t, sums, 4)
	assert.Equal(t, Summary{
		Name:       "Python",
		Level:      LevelCommunity,
		LevelName:  "Community",
		Language:   "python",
		Tags:       []string{"style"},
		Order:      order.Unlisted,
		Source:     filepath.Join(dir, "community", "py.yml"),
		Structured: true,
	}, sums[2])
	assert.Equal(t, "Team", sums[3].LevelName)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "Base", LevelBase.String())
	assert.Equal(t, "Community", LevelCommunity.String())
	assert.Equal(t, "Team", LevelTeam.String())
	assert.Equal(t, "Unknown", Level(9).String())
}
