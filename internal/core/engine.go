package core

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// ParsedURL holds the normalised parts of a navigation target
type ParsedURL struct {
	Host  string
	Probe string // host + path + query, lower-cased; keywords match anywhere in it
}

// ParseURL normalises an absolute URL for rule matching
func ParseURL(raw string) (ParsedURL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ParsedURL{}, ErrInvalidURL
	}
	host := NormalizeHost(u.Hostname())
	if host == "" {
		return ParsedURL{}, ErrInvalidURL
	}
	probe := host + strings.ToLower(u.EscapedPath())
	if u.RawQuery != "" {
		probe += "?" + strings.ToLower(u.RawQuery)
	}
	return ParsedURL{Host: host, Probe: probe}, nil
}

// NormalizeHost lower-cases a hostname and converts internationalised names to ASCII
func NormalizeHost(host string) string {
	host = strings.TrimSuffix(strings.TrimSpace(host), ".")
	if host == "" {
		return ""
	}
	if ascii, err := idna.Lookup.ToASCII(host); err == nil && ascii != "" {
		return strings.ToLower(ascii)
	}
	return strings.ToLower(host)
}

// HostMatches reports whether host is domain or one of its subdomains.
// evilfacebook.com does not match facebook.com.
func HostMatches(host, domain string) bool {
	if domain == "" {
		return false
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Evaluate classifies a URL against the policy store. First match wins: each enabled
// catalog category is checked domains first, then keywords, in catalog order; custom
// domains and keywords are checked last and always apply.
//
// A malformed URL is never blocked; ErrInvalidURL is returned next to the allow verdict
// so the caller can log it as a warning.
func Evaluate(rawURL string, store *PolicyStore) (Verdict, error) {
	parsed, err := ParseURL(rawURL)
	if err != nil {
		return Allow("malformed_url"), err
	}
	if store == nil {
		return Allow("no_match"), nil
	}

	for _, cat := range store.categories {
		if !store.Enabled(cat.ID) {
			continue
		}
		for _, domain := range cat.Domains {
			if HostMatches(parsed.Host, domain) {
				return blockVerdict(cat.ID, MatchDomain, domain), nil
			}
		}
		for _, keyword := range cat.Keywords {
			if strings.Contains(parsed.Probe, keyword) {
				return blockVerdict(cat.ID, MatchKeyword, keyword), nil
			}
		}
	}

	for _, domain := range store.customDomains {
		if HostMatches(parsed.Host, domain) {
			return blockVerdict(CategoryCustom, MatchDomain, domain), nil
		}
	}
	for _, keyword := range store.customKeywords {
		if strings.Contains(parsed.Probe, keyword) {
			return blockVerdict(CategoryCustom, MatchKeyword, keyword), nil
		}
	}

	return Allow("no_match"), nil
}

func blockVerdict(category string, matchType MatchType, value string) Verdict {
	return Verdict{
		Blocked:    true,
		Category:   category,
		MatchType:  matchType,
		MatchValue: value,
		Reason:     "policy",
	}
}
