package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// NavigationGate combines the grant store, the session state and the policy engine into
// one verdict per navigation attempt
type NavigationGate struct {
	sessions        *SessionManager
	grants          *AccessGrantStore
	policy          *PolicyStore
	sink            EventSink
	maxGrantMinutes int
	lastBlocked     *BlockingReason
	logger          *slog.Logger
}

// GateConfig holds the collaborators of a NavigationGate
type GateConfig struct {
	Sessions        *SessionManager
	Grants          *AccessGrantStore
	Policy          *PolicyStore
	Sink            EventSink
	MaxGrantMinutes int // 0 means no upper bound
	Logger          *slog.Logger
}

// NewNavigationGate creates a navigation gate
func NewNavigationGate(cfg GateConfig) *NavigationGate {
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Policy == nil {
		cfg.Policy = NewPolicyStore(nil, DefaultSettings())
	}
	return &NavigationGate{
		sessions:        cfg.Sessions,
		grants:          cfg.Grants,
		policy:          cfg.Policy,
		sink:            cfg.Sink,
		maxGrantMinutes: cfg.MaxGrantMinutes,
		logger:          cfg.Logger.With("component", "navigation_gate"),
	}
}

// SetPolicy swaps the policy store used for subsequent decisions
func (g *NavigationGate) SetPolicy(store *PolicyStore) {
	if store != nil {
		g.policy = store
	}
}

// Policy returns the policy store in use
func (g *NavigationGate) Policy() *PolicyStore {
	return g.policy
}

// Decide returns the verdict for one navigation attempt. It never fails: malformed input
// or an internal fault yields an allow verdict. Counters and events change only when the
// navigation is blocked.
func (g *NavigationGate) Decide(ctx context.Context, rawURL string, now time.Time) (verdict Verdict) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("navigation decision panicked, allowing", "url", rawURL, "panic", r)
			verdict = Allow("internal_error", fmt.Sprint(r))
		}
	}()

	session := g.sessions.Current()
	if session == nil || !session.IsActive {
		return Allow("no_active_session")
	}

	var trace []string
	switch check := g.grants.Check(rawURL, session.ID, now); check {
	case GrantValid:
		return Allow("temporary_access", "grant valid")
	case GrantExpired, GrantSessionMismatch:
		trace = append(trace, "grant invalid: "+check.Err().Error())
		g.logger.Debug("temporary access discarded",
			"session_id", session.ID,
			"reason", check.String())
	case GrantNoMatch:
		trace = append(trace, "grant does not cover url")
	}

	verdict, err := Evaluate(rawURL, g.policy)
	if err != nil {
		g.logger.Warn("cannot classify url, allowing", "url", rawURL, "error", err)
		verdict.Trace = append(trace, err.Error())
		return verdict
	}
	verdict.Trace = trace
	if !verdict.Blocked {
		return verdict
	}

	if err := g.sessions.RecordBlockedAttempt(); err != nil {
		g.logger.Error("blocked attempt not recorded, allowing", "url", rawURL, "error", err)
		return Allow("internal_error", err.Error())
	}
	g.lastBlocked = &BlockingReason{
		URL:        rawURL,
		Category:   verdict.Category,
		MatchType:  verdict.MatchType,
		MatchValue: verdict.MatchValue,
		At:         now,
	}

	if err := g.sink.Emit(ctx, Event{
		Type:      EventBlockedAttempt,
		SessionID: session.ID,
		At:        now,
		Data: BlockedAttemptData{
			URL:        rawURL,
			Category:   verdict.Category,
			MatchType:  verdict.MatchType,
			MatchValue: verdict.MatchValue,
		},
	}); err != nil {
		g.logger.Warn("event delivery failed", "event", EventBlockedAttempt, "error", err)
	}

	return verdict
}

// Grant issues a temporary access grant for the current session after the friction
// flow succeeded. The grant replaces any previous one.
func (g *NavigationGate) Grant(ctx context.Context, rawURL string, minutes int, now time.Time) (*AccessGrant, error) {
	if minutes <= 0 || (g.maxGrantMinutes > 0 && minutes > g.maxGrantMinutes) {
		return nil, ErrInvalidMinutes
	}
	parsed, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	session := g.sessions.Current()
	if session == nil || !session.IsActive {
		return nil, ErrNoActiveSession
	}

	req := GrantRequest{
		URL:       rawURL,
		Domain:    parsed.Host,
		SessionID: session.ID,
		Minutes:   minutes,
	}
	if lb := g.lastBlocked; lb != nil && lb.URL == rawURL && lb.MatchType == MatchKeyword {
		req.Keyword = lb.MatchValue
	}

	grant, err := g.grants.Grant(req, now)
	if err != nil {
		return nil, err
	}
	if err := g.sessions.RecordOverride(); err != nil && !errors.Is(err, ErrNoActiveSession) {
		return nil, err
	}

	if err := g.sink.Emit(ctx, Event{
		Type:      EventOverride,
		SessionID: session.ID,
		At:        now,
		Data:      OverrideData{URL: rawURL, Minutes: minutes},
	}); err != nil {
		g.logger.Warn("event delivery failed", "event", EventOverride, "error", err)
	}
	return grant, nil
}

// LastBlocked returns the most recent blocking reason of the current session
func (g *NavigationGate) LastBlocked() *BlockingReason {
	session := g.sessions.Current()
	if g.lastBlocked == nil || session == nil {
		return nil
	}
	lb := *g.lastBlocked
	return &lb
}

// ResetLastBlocked forgets the last blocking reason, on session boundaries
func (g *NavigationGate) ResetLastBlocked() {
	g.lastBlocked = nil
}
