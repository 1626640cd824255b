package catalog

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusroom/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCategoryID(t *testing.T) {
	tests := map[string]string{
		"social.json":                "social",
		"social_blocklist.json":      "social",
		"porn_blocklist.json":        core.CategoryAdult,
		"News.YAML":                  "news",
		"gaming.yml":                 "gaming",
		"socialMedia_blocklist.json": core.CategorySocial,
		"settings.json":              "",
		"README.md":                  "",
		".hidden.json":               "",
		"_blocklist.json":            "",
	}
	for name, want := range tests {
		assert.Equal(t, want, CategoryID(name), name)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "social_blocklist.json", `{
		// comments and trailing commas are fine
		"domains": ["facebook.com", "twitter.com",],
		"keywords": ["instagram"]
	}`)
	writeFile(t, dir, "shopping.yaml", "domains:\n  - amazon.com\nkeywords:\n  - shop\n")
	writeFile(t, dir, "news.json", `{not json`)
	writeFile(t, dir, "porn_blocklist.json", `{"keywords": ["xxx"]}`)
	writeFile(t, dir, "gaming.yml", "domains: [steampowered.com]\n")
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "settings.json", `{"custom_domains": ["a.com"]}`)

	catalog, err := LoadDir(context.Background(), dir, testLogger())
	require.NoError(t, err)

	want := core.Catalog{
		{ID: core.CategorySocial, Domains: []string{"facebook.com", "twitter.com"}, Keywords: []string{"instagram"}, Loaded: true},
		{ID: core.CategoryShopping, Domains: []string{"amazon.com"}, Keywords: []string{"shop"}, Loaded: true},
		{ID: core.CategoryNews},
		{ID: core.CategoryEntertainment},
		{ID: core.CategoryAdult, Keywords: []string{"xxx"}, Loaded: true},
		{ID: "gaming", Domains: []string{"steampowered.com"}, Loaded: true},
	}
	if diff := cmp.Diff(want, catalog); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDir_MergesFilesOfOneCategory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "social.json", `{"domains": ["facebook.com"]}`)
	writeFile(t, dir, "social.yaml", "domains: [x.com]\n")

	catalog, err := LoadDir(context.Background(), dir, testLogger())
	require.NoError(t, err)

	require.NotEmpty(t, catalog)
	assert.Equal(t, core.CategorySocial, catalog[0].ID)
	assert.ElementsMatch(t, []string{"facebook.com", "x.com"}, catalog[0].Domains)
	assert.True(t, catalog[0].Loaded)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), testLogger())
	assert.ErrorIs(t, err, core.ErrPolicyLoad)

	catalog := LoadOrBuiltin(context.Background(), filepath.Join(t.TempDir(), "nope"), testLogger())
	assert.Equal(t, Builtin(), catalog)
	assert.Equal(t, Builtin(), LoadOrBuiltin(context.Background(), "", nil))
}

func TestLoadDir_Cancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "social.json", `{"domains": ["facebook.com"]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := LoadDir(ctx, dir, testLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuiltinBlocksReferenceSites(t *testing.T) {
	store := core.NewPolicyStore(Builtin(), core.DefaultSettings())

	for _, url := range []string{"https://x.com/home", "https://www.youtube.com/watch", "https://nytimes.com/"} {
		v, err := core.Evaluate(url, store)
		require.NoError(t, err)
		assert.True(t, v.Blocked, url)
	}
}

func TestLoadSettingsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	writeFile(t, dir, "settings.json", `{
		"enabled_categories": {"social": true, "news": false},
		/* user additions */
		"custom_domains": ["Reddit.com", "reddit.com"],
		"custom_keywords": ["Poker"],
	}`)

	settings, err := LoadSettingsFile(path)
	require.NoError(t, err)

	want := core.Settings{
		EnabledCategories: map[string]bool{"social": true, "news": false},
		CustomDomains:     []string{"reddit.com"},
		CustomKeywords:    []string{"poker"},
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}

	_, err = LoadSettingsFile(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	writeFile(t, dir, "broken.json", `{"custom_domains": 5}`)
	_, err = LoadSettingsFile(filepath.Join(dir, "broken.json"))
	assert.ErrorIs(t, err, core.ErrPolicyLoad)
}
