package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantHost  string
		wantProbe string
		wantErr   bool
	}{
		{name: "plain", raw: "https://facebook.com/", wantHost: "facebook.com", wantProbe: "facebook.com/"},
		{name: "upper case", raw: "HTTPS://WWW.FaceBook.COM/Profile?ID=Me", wantHost: "www.facebook.com", wantProbe: "www.facebook.com/profile?id=me"},
		{name: "port dropped", raw: "http://localhost:8080/x", wantHost: "localhost", wantProbe: "localhost/x"},
		{name: "trailing dot", raw: "https://cnn.com./world", wantHost: "cnn.com", wantProbe: "cnn.com/world"},
		{name: "idn", raw: "https://bücher.example/", wantHost: "xn--bcher-kva.example", wantProbe: "xn--bcher-kva.example/"},
		{name: "no scheme", raw: "facebook.com", wantErr: true},
		{name: "no host", raw: "file:///etc/passwd", wantErr: true},
		{name: "garbage", raw: "::::", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseURL(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, got.Host)
			assert.Equal(t, tt.wantProbe, got.Probe)
		})
	}
}

func TestHostMatches(t *testing.T) {
	assert.True(t, HostMatches("facebook.com", "facebook.com"))
	assert.True(t, HostMatches("sub.facebook.com", "facebook.com"))
	assert.True(t, HostMatches("a.b.facebook.com", "facebook.com"))
	assert.False(t, HostMatches("notfacebook.com", "facebook.com"))
	assert.False(t, HostMatches("evilfacebook.com", "facebook.com"))
	assert.False(t, HostMatches("facebook.com.evil.io", "facebook.com"))
	assert.False(t, HostMatches("facebook.com", ""))
}

func TestEvaluate(t *testing.T) {
	store := NewPolicyStore(testCatalog(), DefaultSettings())

	tests := []struct {
		name      string
		url       string
		blocked   bool
		category  string
		matchType MatchType
		value     string
	}{
		{name: "domain", url: "https://facebook.com/", blocked: true, category: CategorySocial, matchType: MatchDomain, value: "facebook.com"},
		{name: "subdomain", url: "https://sub.facebook.com/feed", blocked: true, category: CategorySocial, matchType: MatchDomain, value: "facebook.com"},
		{name: "look-alike prefix", url: "https://notfacebook.com/", matchType: MatchNone},
		{name: "look-alike glued", url: "https://evilfacebook.com/", matchType: MatchNone},
		{name: "keyword in host", url: "https://www.instagram.com/", blocked: true, category: CategorySocial, matchType: MatchKeyword, value: "instagram"},
		{name: "keyword in path", url: "https://example.org/daily-NEWS/today", blocked: true, category: CategoryNews, matchType: MatchKeyword, value: "news"},
		{name: "keyword in query", url: "https://example.org/search?q=Shop", blocked: true, category: CategoryShopping, matchType: MatchKeyword, value: "shop"},
		{name: "unrelated", url: "https://golang.org/doc", matchType: MatchNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.url, store)
			require.NoError(t, err)
			assert.Equal(t, tt.blocked, v.Blocked)
			assert.Equal(t, tt.matchType, v.MatchType)
			assert.Equal(t, tt.category, v.Category)
			assert.Equal(t, tt.value, v.MatchValue)
		})
	}
}

func TestEvaluate_FirstMatchWins(t *testing.T) {
	// shopping precedes news, and within a category domains precede keywords
	store := NewPolicyStore(testCatalog(), DefaultSettings())

	v, err := Evaluate("https://amazon.com/news", store)
	require.NoError(t, err)
	assert.Equal(t, CategoryShopping, v.Category)
	assert.Equal(t, MatchDomain, v.MatchType)

	v, err = Evaluate("https://cnn.com/shop", store)
	require.NoError(t, err)
	assert.Equal(t, CategoryShopping, v.Category)
	assert.Equal(t, MatchKeyword, v.MatchType)
}

func TestEvaluate_DisabledCategoryAndCustomRules(t *testing.T) {
	settings := Settings{
		EnabledCategories: map[string]bool{CategorySocial: false, CategoryNews: true},
		CustomDomains:     []string{"https://Twitter.com/home", "*.reddit.com"},
		CustomKeywords:    []string{"  Poker "},
	}
	store := NewPolicyStore(testCatalog(), settings)

	v, err := Evaluate("https://facebook.com/", store)
	require.NoError(t, err)
	assert.False(t, v.Blocked, "disabled category must not block")

	// shopping is missing from a non-nil map, so it is disabled
	v, err = Evaluate("https://amazon.com/", store)
	require.NoError(t, err)
	assert.False(t, v.Blocked)

	v, err = Evaluate("https://twitter.com/", store)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
	assert.Equal(t, CategoryCustom, v.Category)
	assert.Equal(t, "twitter.com", v.MatchValue)

	v, err = Evaluate("https://old.reddit.com/r/golang", store)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
	assert.Equal(t, "reddit.com", v.MatchValue)

	v, err = Evaluate("https://example.org/poker", store)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
	assert.Equal(t, MatchKeyword, v.MatchType)
	assert.Equal(t, "poker", v.MatchValue)

	v, err = Evaluate("https://cnn.com/", store)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
	assert.Equal(t, CategoryNews, v.Category)
}

func TestEvaluate_NilEnabledMapEnablesAll(t *testing.T) {
	store := NewPolicyStore(testCatalog(), Settings{})

	v, err := Evaluate("https://amazon.com/", store)
	require.NoError(t, err)
	assert.True(t, v.Blocked)
}

func TestEvaluate_MalformedURLAllows(t *testing.T) {
	store := NewPolicyStore(testCatalog(), DefaultSettings())

	v, err := Evaluate("not a url", store)
	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.False(t, v.Blocked)
	assert.Equal(t, "malformed_url", v.Reason)
}

func TestPolicyStore_Stats(t *testing.T) {
	catalog := append(testCatalog(), Category{ID: CategoryAdult, Loaded: false})
	settings := Settings{
		EnabledCategories: map[string]bool{CategorySocial: true},
		CustomDomains:     []string{"a.com", "A.com", "b.com"},
	}
	stats := NewPolicyStore(catalog, settings).Stats()

	require.Len(t, stats, 5)
	assert.Equal(t, CategoryStats{Category: CategorySocial, Domains: 2, Keywords: 1, Loaded: true, Enabled: true}, stats[0])
	assert.Equal(t, CategoryStats{Category: CategoryShopping, Domains: 1, Keywords: 1, Loaded: true}, stats[1])
	assert.Equal(t, CategoryStats{Category: CategoryAdult}, stats[3])
	assert.Equal(t, CategoryStats{Category: CategoryCustom, Domains: 2, Loaded: true, Enabled: true}, stats[4])
}

func TestCatalog_Sorted(t *testing.T) {
	c := Catalog{{ID: "zzz"}, {ID: CategoryAdult}, {ID: "gaming"}, {ID: CategorySocial}}
	ids := make([]string, 0, len(c))
	for _, cat := range c.Sorted() {
		ids = append(ids, cat.ID)
	}
	assert.Equal(t, []string{CategorySocial, CategoryAdult, "gaming", "zzz"}, ids)
}
