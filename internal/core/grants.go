package core

import (
	"strings"
	"time"
)

// GrantCheck is the outcome of consulting the grant store for one URL
type GrantCheck int

const (
	GrantAbsent GrantCheck = iota
	GrantValid
	GrantNoMatch
	GrantExpired
	GrantSessionMismatch
)

func (c GrantCheck) String() string {
	switch c {
	case GrantValid:
		return "valid"
	case GrantNoMatch:
		return "no_match"
	case GrantExpired:
		return "expired"
	case GrantSessionMismatch:
		return "session_mismatch"
	default:
		return "absent"
	}
}

// Err maps the invalidating outcomes to their internal reason
func (c GrantCheck) Err() error {
	switch c {
	case GrantExpired:
		return ErrGrantExpired
	case GrantSessionMismatch:
		return ErrGrantSessionMismatch
	default:
		return nil
	}
}

// GrantRequest describes a temporary access grant to create
type GrantRequest struct {
	URL       string
	Domain    string
	Keyword   string
	SessionID string
	Minutes   int
}

// AccessGrantStore holds at most one outstanding temporary access grant
type AccessGrantStore struct {
	grant *AccessGrant
}

// NewAccessGrantStore creates an empty grant store
func NewAccessGrantStore() *AccessGrantStore {
	return &AccessGrantStore{}
}

// Grant replaces any prior grant with a new one ending minutes from now
func (s *AccessGrantStore) Grant(req GrantRequest, now time.Time) (*AccessGrant, error) {
	if req.URL == "" || req.Domain == "" || req.SessionID == "" {
		return nil, ErrEmptyField
	}
	if req.Minutes <= 0 {
		return nil, ErrInvalidMinutes
	}

	s.grant = &AccessGrant{
		URL:       req.URL,
		Domain:    NormalizeHost(req.Domain),
		Keyword:   strings.ToLower(strings.TrimSpace(req.Keyword)),
		SessionID: req.SessionID,
		Minutes:   req.Minutes,
		GrantedAt: now,
		EndTime:   now.Add(time.Duration(req.Minutes) * time.Minute),
	}
	return s.grant.Clone(), nil
}

// Check evaluates the grant for a URL. An expired grant or one owned by another session
// (or by no session) is discarded as part of the check.
func (s *AccessGrantStore) Check(rawURL, currentSessionID string, now time.Time) GrantCheck {
	g := s.grant
	if g == nil {
		return GrantAbsent
	}
	if currentSessionID == "" || g.SessionID != currentSessionID {
		s.grant = nil
		return GrantSessionMismatch
	}
	if g.IsExpired(now) {
		s.grant = nil
		return GrantExpired
	}

	if rawURL == g.URL {
		return GrantValid
	}
	if parsed, err := ParseURL(rawURL); err == nil {
		host := parsed.Host
		if HostMatches(host, g.Domain) {
			return GrantValid
		}
		// a grant for m.example.com also covers example.com
		if strings.Contains(host, ".") && HostMatches(g.Domain, host) {
			return GrantValid
		}
	}
	if g.Keyword != "" && strings.Contains(strings.ToLower(rawURL), g.Keyword) {
		return GrantValid
	}
	return GrantNoMatch
}

// IsValidFor reports whether the held grant covers the URL for the current session
func (s *AccessGrantStore) IsValidFor(rawURL, currentSessionID string, now time.Time) bool {
	return s.Check(rawURL, currentSessionID, now) == GrantValid
}

// Current returns a copy of the held grant, or nil
func (s *AccessGrantStore) Current() *AccessGrant {
	return s.grant.Clone()
}

// Restore installs a grant reloaded from persistence. It is validated lazily on the next check.
func (s *AccessGrantStore) Restore(g *AccessGrant) {
	s.grant = g.Clone()
}

// Clear removes the grant unconditionally
func (s *AccessGrantStore) Clear() {
	s.grant = nil
}
