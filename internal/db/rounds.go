package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type RoundRecord struct {
	ID            int64     `json:"id"`
	RoomCode      string    `json:"room"`
	PlayerOne     string    `json:"playerOne"`
	PlayerTwo     string    `json:"playerTwo"`
	ReactionOneMs int64     `json:"reactionOneMs"`
	ReactionTwoMs int64     `json:"reactionTwoMs"`
	Winner        string    `json:"winner,omitempty"`
	ResolvedAt    time.Time `json:"resolvedAt"`
}

func (d *DB) RecordRound(ctx context.Context, r RoundRecord) error {
	var winner sql.NullString
	if r.Winner != "" {
		winner = sql.NullString{String: r.Winner, Valid: true}
	}
	resolved := r.ResolvedAt
	if resolved.IsZero() {
		resolved = time.Now()
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO rounds (room_code, player_one, player_two, reaction_one_ms, reaction_two_ms, winner, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.RoomCode, r.PlayerOne, r.PlayerTwo, r.ReactionOneMs, r.ReactionTwoMs, winner, resolved)
	if err != nil {
		return fmt.Errorf("recording round: %w", err)
	}
	return nil
}

// RecentRounds returns up to limit rounds, newest first.
func (d *DB) RecentRounds(ctx context.Context, limit int) ([]RoundRecord, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, room_code, player_one, player_two, reaction_one_ms, reaction_two_ms, winner, resolved_at
		FROM rounds
		ORDER BY resolved_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		var winner sql.NullString
		if err := rows.Scan(&r.ID, &r.RoomCode, &r.PlayerOne, &r.PlayerTwo, &r.ReactionOneMs, &r.ReactionTwoMs, &winner, &r.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scanning round: %w", err)
		}
		r.Winner = winner.String
		out = append(out, r)
	}
	return out, rows.Err()
}
