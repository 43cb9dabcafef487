package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/protest"
)

const protestColumns = `id, competition_id, athlete_id, attempt_id, type, reason, filed_at, deadline, status, jury_notes, resolved_at`

// CreateProtest inserts a filed protest. An empty ID is generated.
func (s *Store) CreateProtest(ctx context.Context, p meet.Protest) (meet.Protest, error) {
	if p.ID == "" {
		p.ID = s.ids.Generate()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO protests (`+protestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.CompetitionID, p.AthleteID, p.AttemptID, string(p.Type), p.Reason,
		formatTime(p.FiledAt), formatTime(p.Deadline), string(p.Status), p.JuryNotes,
		formatTimePtr(p.ResolvedAt))
	if err != nil {
		return meet.Protest{}, fmt.Errorf("insert protest: %w", err)
	}
	return s.GetProtest(ctx, p.ID)
}

// GetProtest returns one protest, or protest.ErrNotFound.
func (s *Store) GetProtest(ctx context.Context, id string) (meet.Protest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+protestColumns+` FROM protests WHERE id = ?`, id)
	p, err := scanProtest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return meet.Protest{}, fmt.Errorf("protest %s: %w", id, protest.ErrNotFound)
	}
	return p, err
}

// UpdateProtest stores a jury decision.
func (s *Store) UpdateProtest(ctx context.Context, p meet.Protest) (meet.Protest, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE protests SET status = ?, jury_notes = ?, resolved_at = ?
		WHERE id = ?
	`, string(p.Status), p.JuryNotes, formatTimePtr(p.ResolvedAt), p.ID)
	if err != nil {
		return meet.Protest{}, fmt.Errorf("update protest: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return meet.Protest{}, fmt.Errorf("update protest: %w", err)
	}
	if n == 0 {
		return meet.Protest{}, fmt.Errorf("protest %s: %w", p.ID, protest.ErrNotFound)
	}
	return s.GetProtest(ctx, p.ID)
}

// ListProtests returns a competition's protests in filing order.
func (s *Store) ListProtests(ctx context.Context, competitionID string) ([]meet.Protest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+protestColumns+`
		FROM protests
		WHERE competition_id = ?
		ORDER BY filed_at ASC, id COLLATE BINARY ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query protests: %w", err)
	}
	defer rows.Close()

	out := []meet.Protest{}
	for rows.Next() {
		p, err := scanProtest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate protests: %w", err)
	}
	return out, nil
}

func scanProtest(row rowScanner) (meet.Protest, error) {
	var (
		p          meet.Protest
		typ        string
		status     string
		filedAt    string
		deadline   string
		resolvedAt sql.NullString
	)
	if err := row.Scan(&p.ID, &p.CompetitionID, &p.AthleteID, &p.AttemptID, &typ, &p.Reason,
		&filedAt, &deadline, &status, &p.JuryNotes, &resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return meet.Protest{}, err
		}
		return meet.Protest{}, fmt.Errorf("scan protest: %w", err)
	}
	p.Type = meet.ProtestType(typ)
	p.Status = meet.ProtestStatus(status)
	var err error
	if p.FiledAt, err = parseTime(filedAt); err != nil {
		return meet.Protest{}, err
	}
	if p.Deadline, err = parseTime(deadline); err != nil {
		return meet.Protest{}, err
	}
	if p.ResolvedAt, err = parseTimePtr(resolvedAt); err != nil {
		return meet.Protest{}, err
	}
	return p, nil
}
