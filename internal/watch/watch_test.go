package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"focusroom/internal/core"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTarget struct {
	mu       sync.Mutex
	catalogs []core.Catalog
	settings []core.Settings
}

func (f *fakeTarget) ReplaceCatalog(_ context.Context, c core.Catalog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalogs = append(f.catalogs, c)
	return nil
}

func (f *fakeTarget) UpdateSettings(_ context.Context, s core.Settings) (core.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, s)
	return s, nil
}

func (f *fakeTarget) lastCatalog() core.Catalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.catalogs) == 0 {
		return nil
	}
	return f.catalogs[len(f.catalogs)-1]
}

func (f *fakeTarget) lastSettings() *core.Settings {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.settings) == 0 {
		return nil
	}
	s := f.settings[len(f.settings)-1]
	return &s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, cfg Config) (*Watcher, *fakeTarget) {
	t.Helper()
	target := &fakeTarget{}
	cfg.Debounce = 20 * time.Millisecond
	w, err := New(target, cfg, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-errc)
	})

	// give the watcher a moment to register its directories
	time.Sleep(50 * time.Millisecond)
	return w, target
}

func TestWatcher_ReloadsCatalog(t *testing.T) {
	dir := t.TempDir()
	_, target := startWatcher(t, Config{CatalogDir: dir})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "social.json"), []byte(`{"domains": ["facebook.com"]}`), 0o644))

	require.Eventually(t, func() bool {
		c := target.lastCatalog()
		return len(c) > 0 && c[0].ID == core.CategorySocial && len(c[0].Domains) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatcher_ReloadsSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	w, target := startWatcher(t, Config{SettingsPath: path})

	require.NoError(t, os.WriteFile(path, []byte(`{"custom_keywords": ["Poker"]}`), 0o644))

	require.Eventually(t, func() bool {
		s := target.lastSettings()
		return s != nil && len(s.CustomKeywords) == 1 && s.CustomKeywords[0] == "poker"
	}, 3*time.Second, 10*time.Millisecond)
	assert.GreaterOrEqual(t, w.Reloads(), 1)
}

func TestWatcher_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	w, target := startWatcher(t, Config{CatalogDir: dir})

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	time.Sleep(150 * time.Millisecond)

	assert.Nil(t, target.lastCatalog())
	assert.Equal(t, 0, w.Reloads())
}

func TestWatcher_Relevant(t *testing.T) {
	w, err := New(&fakeTarget{}, Config{CatalogDir: "/etc/focus/rules/", SettingsPath: "/etc/focus/settings.json"}, nil)
	require.NoError(t, err)
	defer w.watcher.Close()

	assert.True(t, w.relevant("/etc/focus/settings.json"))
	assert.True(t, w.relevant("/etc/focus/rules/news.yaml"))
	assert.False(t, w.relevant("/etc/focus/rules/readme.md"))
	assert.False(t, w.relevant("/etc/focus/other/news.yaml"))
}
