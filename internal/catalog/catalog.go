// Package catalog loads the static block rules: one file per category, JSON (comments
// allowed) or YAML, with a built-in fallback.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"focusroom/internal/core"
)

// aliases maps legacy file names to category ids
var aliases = map[string]string{
	"porn":        core.CategoryAdult,
	"socialmedia": core.CategorySocial,
}

// ruleFile is the on-disk shape of a category file
type ruleFile struct {
	Domains  []string `json:"domains" yaml:"domains"`
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// LoadDir reads every category file in dir in parallel. A file that cannot be read or parsed
// yields an empty category marked not loaded; a well-known category with no file at all is
// reported the same way. Only an unreadable directory is an error.
func LoadDir(ctx context.Context, dir string, logger *slog.Logger) (core.Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "catalog")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrPolicyLoad, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || CategoryID(e.Name()) == "" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	loaded := make([]core.Category, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			cat, err := LoadFile(path)
			if err != nil {
				logger.Warn("category file unavailable, rules degraded to empty",
					"path", path,
					"error", err)
				cat = core.Category{ID: CategoryID(filepath.Base(path))}
			}
			loaded[i] = cat
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog := merge(loaded)
	for _, id := range core.CatalogOrder {
		if !catalog.has(id) {
			logger.Warn("category file missing, rules degraded to empty", "category", id)
			catalog = append(catalog, core.Category{ID: id})
		}
	}

	result := core.Catalog(catalog).Sorted()
	for _, cat := range result {
		logger.Info("category loaded",
			"category", cat.ID,
			"domains", len(cat.Domains),
			"keywords", len(cat.Keywords),
			"loaded", cat.Loaded)
	}
	return result, nil
}

// LoadFile parses one category file
func LoadFile(path string) (core.Category, error) {
	id := CategoryID(filepath.Base(path))
	if id == "" {
		return core.Category{}, fmt.Errorf("%w: unrecognised category file %q", core.ErrPolicyLoad, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return core.Category{}, fmt.Errorf("%w: %v", core.ErrPolicyLoad, err)
	}

	var rules ruleFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &rules)
	default:
		err = json.Unmarshal(jsonc.ToJSON(data), &rules)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("%w: parsing %s: %v", core.ErrPolicyLoad, path, err)
	}

	return core.Category{
		ID:       id,
		Domains:  rules.Domains,
		Keywords: rules.Keywords,
		Loaded:   true,
	}, nil
}

// CategoryID derives the category id from a file name, or "" for files that are not
// category files. social.json, social.yaml and social_blocklist.json all map to "social".
func CategoryID(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return ""
	}
	base := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
	base = strings.TrimSuffix(base, "_blocklist")
	if base == "" || strings.HasPrefix(base, ".") || base == "settings" {
		return ""
	}
	if alias, ok := aliases[base]; ok {
		return alias
	}
	return base
}

// LoadOrBuiltin loads dir and falls back to the built-in rules when dir is empty or unreadable
func LoadOrBuiltin(ctx context.Context, dir string, logger *slog.Logger) core.Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		return Builtin()
	}
	catalog, err := LoadDir(ctx, dir, logger)
	if err != nil {
		logger.Warn("catalog directory unavailable, using built-in rules", "dir", dir, "error", err)
		return Builtin()
	}
	return catalog
}

// LoadSettingsFile reads user settings from a JSON file (comments allowed). A missing file
// returns fs.ErrNotExist.
func LoadSettingsFile(path string) (core.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.Settings{}, err
		}
		return core.Settings{}, fmt.Errorf("%w: %v", core.ErrPolicyLoad, err)
	}

	var settings core.Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
		return core.Settings{}, fmt.Errorf("%w: parsing %s: %v", core.ErrPolicyLoad, path, err)
	}
	return settings.Normalized(), nil
}

type categories []core.Category

func (c categories) has(id string) bool {
	for _, cat := range c {
		if cat.ID == id {
			return true
		}
	}
	return false
}

// merge folds files of the same category together. The result is loaded only if every
// contributing file loaded.
func merge(in []core.Category) categories {
	var out categories
	index := make(map[string]int, len(in))
	for _, cat := range in {
		i, ok := index[cat.ID]
		if !ok {
			index[cat.ID] = len(out)
			out = append(out, cat)
			continue
		}
		out[i].Domains = append(out[i].Domains, cat.Domains...)
		out[i].Keywords = append(out[i].Keywords, cat.Keywords...)
		out[i].Loaded = out[i].Loaded && cat.Loaded
	}
	return out
}
