package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"focusroom/internal/core"
	"focusroom/internal/storage"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStorage implements storage.Storage using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// New creates a new SQLite storage instance
func New(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps singleton rows and history order consistent
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db}

	if err := storage.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return storage, nil
}

// migrate creates the database schema
func (s *SQLiteStorage) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS current_session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			` + sessionColumnsDDL + `,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS session_history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			` + sessionColumnsDDL + `,
			UNIQUE (session_id)
		);

		CREATE TABLE IF NOT EXISTS access_grant (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			url TEXT NOT NULL,
			domain TEXT NOT NULL,
			keyword TEXT NOT NULL DEFAULT '',
			session_id TEXT NOT NULL,
			minutes INTEGER NOT NULL,
			granted_at INTEGER NOT NULL,
			end_time INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

const sessionColumnsDDL = `
			session_id TEXT NOT NULL,
			goal TEXT NOT NULL DEFAULT '',
			start_time INTEGER NOT NULL,
			planned_duration_ms INTEGER NOT NULL,
			end_time INTEGER NOT NULL,
			is_active BOOLEAN NOT NULL,
			is_paused BOOLEAN NOT NULL,
			pause_start_time INTEGER,
			paused_accumulated_ms INTEGER NOT NULL DEFAULT 0,
			was_paused BOOLEAN NOT NULL DEFAULT 0,
			blocked_attempts INTEGER NOT NULL DEFAULT 0,
			had_blocked_attempts BOOLEAN NOT NULL DEFAULT 0,
			had_overrides BOOLEAN NOT NULL DEFAULT 0,
			override_count INTEGER NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT 0,
			stopped_early BOOLEAN NOT NULL DEFAULT 0,
			milestones TEXT`

const sessionColumns = `session_id, goal, start_time, planned_duration_ms, end_time,
	is_active, is_paused, pause_start_time, paused_accumulated_ms, was_paused,
	blocked_attempts, had_blocked_attempts, had_overrides, override_count,
	completed, stopped_early, milestones`

const sessionPlaceholders = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`

// SaveCurrentSession upserts the single current session row
func (s *SQLiteStorage) SaveCurrentSession(ctx context.Context, session *core.Session) error {
	if session == nil {
		return s.DeleteCurrentSession(ctx)
	}
	args, err := sessionArgs(session)
	if err != nil {
		return err
	}
	args = append([]any{1}, args...)
	args = append(args, time.Now().UnixMilli())

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO current_session (id, `+sessionColumns+`, updated_at)
		VALUES (?, `+sessionPlaceholders+`, ?)
	`, args...)
	return err
}

// LoadCurrentSession returns the stored session, or nil
func (s *SQLiteStorage) LoadCurrentSession(ctx context.Context) (*core.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM current_session WHERE id = 1`)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

// DeleteCurrentSession removes the current session row
func (s *SQLiteStorage) DeleteCurrentSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM current_session WHERE id = 1`)
	return err
}

// AppendSessionHistory stores a finished session as the newest history entry. An entry with
// the same session id is replaced, and the history is trimmed to limit entries.
func (s *SQLiteStorage) AppendSessionHistory(ctx context.Context, session *core.Session, limit int) error {
	if session == nil {
		return nil
	}
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	args, err := sessionArgs(session)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO session_history (`+sessionColumns+`)
		VALUES (`+sessionPlaceholders+`)
	`, args...); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM session_history WHERE seq NOT IN (
			SELECT seq FROM session_history ORDER BY seq DESC LIMIT ?
		)
	`, limit); err != nil {
		return err
	}

	return tx.Commit()
}

// ListSessionHistory returns up to limit sessions, newest first. A limit <= 0 returns all.
func (s *SQLiteStorage) ListSessionHistory(ctx context.Context, limit int) ([]*core.Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM session_history ORDER BY seq DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*core.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, rows.Err()
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func sessionArgs(session *core.Session) ([]any, error) {
	var pauseStart sql.NullInt64
	if session.PauseStartTime != nil {
		pauseStart = sql.NullInt64{Int64: session.PauseStartTime.UnixMilli(), Valid: true}
	}

	var milestones sql.NullString
	if len(session.AchievedMilestones) > 0 {
		data, err := json.Marshal(session.AchievedMilestones)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal milestones: %w", err)
		}
		milestones = sql.NullString{String: string(data), Valid: true}
	}

	return []any{
		session.ID,
		session.Goal,
		session.StartTime.UnixMilli(),
		session.PlannedDuration.Milliseconds(),
		session.EndTime.UnixMilli(),
		session.IsActive,
		session.IsPaused,
		pauseStart,
		session.PausedAccumulated.Milliseconds(),
		session.WasPaused,
		session.BlockedAttempts,
		session.HadBlockedAttempts,
		session.HadOverrides,
		session.OverrideCount,
		session.Completed,
		session.StoppedEarly,
		milestones,
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*core.Session, error) {
	var (
		session                             core.Session
		startMs, plannedMs, endMs, pausedMs int64
		pauseStart                          sql.NullInt64
		milestones                          sql.NullString
	)

	err := row.Scan(
		&session.ID,
		&session.Goal,
		&startMs,
		&plannedMs,
		&endMs,
		&session.IsActive,
		&session.IsPaused,
		&pauseStart,
		&pausedMs,
		&session.WasPaused,
		&session.BlockedAttempts,
		&session.HadBlockedAttempts,
		&session.HadOverrides,
		&session.OverrideCount,
		&session.Completed,
		&session.StoppedEarly,
		&milestones,
	)
	if err != nil {
		return nil, err
	}

	session.StartTime = fromMillis(startMs)
	session.PlannedDuration = time.Duration(plannedMs) * time.Millisecond
	session.EndTime = fromMillis(endMs)
	session.PausedAccumulated = time.Duration(pausedMs) * time.Millisecond
	if pauseStart.Valid {
		t := fromMillis(pauseStart.Int64)
		session.PauseStartTime = &t
	}
	if milestones.Valid {
		if err := json.Unmarshal([]byte(milestones.String), &session.AchievedMilestones); err != nil {
			return nil, fmt.Errorf("failed to unmarshal milestones: %w", err)
		}
	}

	return &session, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// Ensure SQLiteStorage satisfies the interface
var _ storage.Storage = (*SQLiteStorage)(nil)
