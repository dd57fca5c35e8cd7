package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LoadLeaderboard returns the stored leaderboard document, or nil if none
// has been saved yet.
func (d *DB) LoadLeaderboard(ctx context.Context) ([]byte, error) {
	var body []byte
	err := d.conn.QueryRowContext(ctx, `
		SELECT body FROM leaderboard_document WHERE id = 1
	`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading leaderboard: %w", err)
	}
	return body, nil
}

// SaveLeaderboard replaces the stored document in a single statement.
func (d *DB) SaveLeaderboard(ctx context.Context, body []byte) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO leaderboard_document (id, body, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET body = EXCLUDED.body, updated_at = now()
	`, string(body))
	if err != nil {
		return fmt.Errorf("saving leaderboard: %w", err)
	}
	return nil
}
