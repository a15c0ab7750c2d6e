package worldstore

import (
	"context"
	"fmt"
	"time"
)

// RoundRecord is one finished round.
type RoundRecord struct {
	ID          string    `json:"id"`
	ArenaID     string    `json:"arenaId"`
	FinalStage  string    `json:"finalStage"`
	Challengers int       `json:"challengers"`
	Natural     bool      `json:"natural"`
	EndedAt     time.Time `json:"endedAt"`
}

func (s *Store) RecordRound(ctx context.Context, r RoundRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO round_history (id, arena_id, final_stage, challengers, natural)
		VALUES (?, ?, ?, ?, ?)
	`, r.ID, r.ArenaID, r.FinalStage, r.Challengers, r.Natural)
	if err != nil {
		return fmt.Errorf("recording round %s: %w", r.ID, err)
	}
	return nil
}

// RoundHistory returns the most recent rounds of an arena, newest first.
func (s *Store) RoundHistory(ctx context.Context, arenaID string, limit int) ([]RoundRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, arena_id, final_stage, challengers, natural, ended_at
		FROM round_history
		WHERE arena_id = ?
		ORDER BY ended_at DESC
		LIMIT ?
	`, arenaID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundRecord
	for rows.Next() {
		var r RoundRecord
		var endedAt string
		if err := rows.Scan(&r.ID, &r.ArenaID, &r.FinalStage, &r.Challengers, &r.Natural, &endedAt); err != nil {
			return nil, fmt.Errorf("scanning round: %w", err)
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, endedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}
