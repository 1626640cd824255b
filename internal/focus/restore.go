package focus

import (
	"context"
)

func (s *Service) restoreSettings(ctx context.Context) {
	if s.store == nil {
		return
	}
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		s.logger.Warn("cannot load persisted settings, using defaults", "error", err)
		return
	}
	if settings != nil {
		s.settings = settings.Normalized()
	}
}

// restoreSession reinstalls the persisted session and grant. A session whose deadline
// passed while the process was down completes right away.
func (s *Service) restoreSession(ctx context.Context) {
	if s.store == nil {
		return
	}

	session, err := s.store.LoadCurrentSession(ctx)
	if err != nil {
		s.logger.Warn("cannot load persisted session", "error", err)
		return
	}
	if err := s.sessions.Restore(session); err != nil {
		s.logger.Warn("discarding invalid persisted session", "error", err)
		s.store.DeleteCurrentSession()
		s.store.DeleteAccessGrant()
		return
	}
	if s.sessions.Current() == nil {
		if session != nil {
			s.store.DeleteCurrentSession()
			s.store.DeleteAccessGrant()
		}
		return
	}

	grant, err := s.store.LoadAccessGrant(ctx)
	if err != nil {
		s.logger.Warn("cannot load persisted grant", "error", err)
	} else if grant != nil {
		s.grants.Restore(grant)
	}

	current := s.sessions.Current()
	s.logger.Info("session restored",
		"session_id", current.ID,
		"state", current.State(),
		"end_time", current.EndTime)

	s.completeIfDue(ctx, s.clock.Now())
}

func (s *Service) restoreHistory(ctx context.Context) {
	if s.store == nil {
		return
	}
	history, err := s.store.ListSessionHistory(ctx, s.historyLimit)
	if err != nil {
		s.logger.Warn("cannot load session history", "error", err)
		return
	}
	s.history = history
}
