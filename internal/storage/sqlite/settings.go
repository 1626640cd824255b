package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"focusroom/internal/core"
)

// SaveAccessGrant upserts the single grant row
func (s *SQLiteStorage) SaveAccessGrant(ctx context.Context, grant *core.AccessGrant) error {
	if grant == nil {
		return s.DeleteAccessGrant(ctx)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO access_grant (id, url, domain, keyword, session_id, minutes, granted_at, end_time)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
	`, grant.URL, grant.Domain, grant.Keyword, grant.SessionID, grant.Minutes,
		grant.GrantedAt.UnixMilli(), grant.EndTime.UnixMilli())
	return err
}

// LoadAccessGrant returns the stored grant, or nil
func (s *SQLiteStorage) LoadAccessGrant(ctx context.Context) (*core.AccessGrant, error) {
	var grant core.AccessGrant
	var grantedMs, endMs int64

	err := s.db.QueryRowContext(ctx, `
		SELECT url, domain, keyword, session_id, minutes, granted_at, end_time
		FROM access_grant WHERE id = 1
	`).Scan(&grant.URL, &grant.Domain, &grant.Keyword, &grant.SessionID, &grant.Minutes, &grantedMs, &endMs)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	grant.GrantedAt = fromMillis(grantedMs)
	grant.EndTime = fromMillis(endMs)
	return &grant, nil
}

// DeleteAccessGrant removes the grant row
func (s *SQLiteStorage) DeleteAccessGrant(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM access_grant WHERE id = 1`)
	return err
}

// SaveSettings stores the settings snapshot as JSON
func (s *SQLiteStorage) SaveSettings(ctx context.Context, settings core.Settings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (id, data, updated_at) VALUES (1, ?, ?)
	`, string(data), time.Now().UnixMilli())
	return err
}

// LoadSettings returns the stored settings, or nil
func (s *SQLiteStorage) LoadSettings(ctx context.Context) (*core.Settings, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM settings WHERE id = 1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var settings core.Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	return &settings, nil
}
