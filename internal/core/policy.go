package core

import (
	"net/url"
	"sort"
	"strings"
)

// Catalog category identifiers
const (
	CategorySocial        = "social"
	CategoryShopping      = "shopping"
	CategoryNews          = "news"
	CategoryEntertainment = "entertainment"
	CategoryAdult         = "adult"
	CategoryCustom        = "custom"
)

// CatalogOrder is the deterministic evaluation order of the static catalog.
// Unknown categories are evaluated after these, alphabetically.
var CatalogOrder = []string{
	CategorySocial,
	CategoryShopping,
	CategoryNews,
	CategoryEntertainment,
	CategoryAdult,
}

// Category is a named group of block rules
type Category struct {
	ID       string
	Domains  []string
	Keywords []string
	Loaded   bool // false when the source was unavailable and the rules degraded to empty
}

// Catalog is the ordered set of static categories
type Catalog []Category

// Settings are the user's choices layered on top of the catalog
type Settings struct {
	// EnabledCategories maps category id to enabled. A nil map enables every category;
	// otherwise a category missing from the map is disabled.
	EnabledCategories map[string]bool `json:"enabled_categories"`
	CustomDomains     []string        `json:"custom_domains"`
	CustomKeywords    []string        `json:"custom_keywords"`
}

// CategoryStats summarises one category for reporting
type CategoryStats struct {
	Category string `json:"category"`
	Domains  int    `json:"domains"`
	Keywords int    `json:"keywords"`
	Loaded   bool   `json:"loaded"`
	Enabled  bool   `json:"enabled"`
}

// DefaultSettings enables every catalog category and has no custom entries
func DefaultSettings() Settings {
	enabled := make(map[string]bool, len(CatalogOrder))
	for _, id := range CatalogOrder {
		enabled[id] = true
	}
	return Settings{
		EnabledCategories: enabled,
		CustomDomains:     []string{},
		CustomKeywords:    []string{},
	}
}

// Clone returns a deep copy of the settings
func (s Settings) Clone() Settings {
	c := Settings{
		CustomDomains:  append([]string{}, s.CustomDomains...),
		CustomKeywords: append([]string{}, s.CustomKeywords...),
	}
	if s.EnabledCategories != nil {
		c.EnabledCategories = make(map[string]bool, len(s.EnabledCategories))
		for k, v := range s.EnabledCategories {
			c.EnabledCategories[k] = v
		}
	}
	return c
}

// Normalized returns a copy with lower-cased, trimmed and de-duplicated custom entries
func (s Settings) Normalized() Settings {
	c := s.Clone()
	c.CustomDomains = normalizeDomains(c.CustomDomains)
	c.CustomKeywords = normalizeKeywords(c.CustomKeywords)
	return c
}

// Sorted returns the catalog ordered by CatalogOrder, then alphabetically
func (c Catalog) Sorted() Catalog {
	rank := make(map[string]int, len(CatalogOrder))
	for i, id := range CatalogOrder {
		rank[id] = i
	}
	out := append(Catalog(nil), c...)
	sort.SliceStable(out, func(i, j int) bool {
		ri, iok := rank[out[i].ID]
		rj, jok := rank[out[j].ID]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return out[i].ID < out[j].ID
		}
	})
	return out
}

// PolicyStore is an immutable snapshot of the block rules and the user's settings.
// It is replaced wholesale on every catalog or settings update.
type PolicyStore struct {
	categories     []Category
	settings       Settings
	customDomains  []string
	customKeywords []string
}

// NewPolicyStore builds a store from a catalog and settings. Rules are normalised once here
// so evaluation is a plain comparison.
func NewPolicyStore(catalog Catalog, settings Settings) *PolicyStore {
	sorted := catalog.Sorted()
	categories := make([]Category, 0, len(sorted))
	for _, cat := range sorted {
		if cat.ID == CategoryCustom {
			continue
		}
		categories = append(categories, Category{
			ID:       cat.ID,
			Domains:  normalizeDomains(cat.Domains),
			Keywords: normalizeKeywords(cat.Keywords),
			Loaded:   cat.Loaded,
		})
	}
	normalized := settings.Normalized()
	return &PolicyStore{
		categories:     categories,
		settings:       normalized,
		customDomains:  normalized.CustomDomains,
		customKeywords: normalized.CustomKeywords,
	}
}

// Enabled reports whether a category participates in evaluation
func (p *PolicyStore) Enabled(category string) bool {
	if category == CategoryCustom {
		return true
	}
	if p.settings.EnabledCategories == nil {
		return true
	}
	return p.settings.EnabledCategories[category]
}

// Settings returns a copy of the settings the store was built from
func (p *PolicyStore) Settings() Settings {
	return p.settings.Clone()
}

// Catalog returns a copy of the normalised catalog
func (p *PolicyStore) Catalog() Catalog {
	out := make(Catalog, 0, len(p.categories))
	for _, cat := range p.categories {
		out = append(out, Category{
			ID:       cat.ID,
			Domains:  append([]string(nil), cat.Domains...),
			Keywords: append([]string(nil), cat.Keywords...),
			Loaded:   cat.Loaded,
		})
	}
	return out
}

// Stats reports rule counts per category, custom last
func (p *PolicyStore) Stats() []CategoryStats {
	stats := make([]CategoryStats, 0, len(p.categories)+1)
	for _, cat := range p.categories {
		stats = append(stats, CategoryStats{
			Category: cat.ID,
			Domains:  len(cat.Domains),
			Keywords: len(cat.Keywords),
			Loaded:   cat.Loaded,
			Enabled:  p.Enabled(cat.ID),
		})
	}
	stats = append(stats, CategoryStats{
		Category: CategoryCustom,
		Domains:  len(p.customDomains),
		Keywords: len(p.customKeywords),
		Loaded:   true,
		Enabled:  true,
	})
	return stats
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		d := normalizeDomain(raw)
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// normalizeDomain accepts bare domains as well as pasted URLs
func normalizeDomain(raw string) string {
	d := strings.TrimSpace(raw)
	if strings.Contains(d, "://") {
		if u, err := url.Parse(d); err == nil {
			d = u.Hostname()
		}
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	d = strings.TrimPrefix(d, "*.")
	return NormalizeHost(d)
}

func normalizeKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, raw := range in {
		k := strings.ToLower(strings.TrimSpace(raw))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
