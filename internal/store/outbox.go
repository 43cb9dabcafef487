package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/liftoff/internal/broadcast"
)

// StoredEvent is an outbox row. Data is the raw JSON payload.
type StoredEvent struct {
	Seq  int64               `json:"seq"`
	Type broadcast.EventType `json:"type"`
	At   string              `json:"at"`
	Data json.RawMessage     `json:"data"`
}

// Send appends an event to the outbox. It implements broadcast.Transport.
// Re-sending a sequence number already stored is a no-op.
func (s *Store) Send(ctx context.Context, e broadcast.Event) error {
	data, err := marshalJSON(e.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO broadcast_outbox (seq, type, at, data) VALUES (?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, e.Seq, string(e.Type), formatTime(e.At), data)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// EventsSince returns up to limit events with a sequence number greater
// than seq, oldest first. A non-positive limit returns all of them.
func (s *Store) EventsSince(ctx context.Context, seq int64, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, at, data FROM broadcast_outbox
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, seq, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	out := []StoredEvent{}
	for rows.Next() {
		var (
			e    StoredEvent
			typ  string
			data string
		)
		if err := rows.Scan(&e.Seq, &typ, &e.At, &data); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Type = broadcast.EventType(typ)
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}

// LastSeq returns the highest stored sequence number, or 0.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM broadcast_outbox`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq, nil
}
