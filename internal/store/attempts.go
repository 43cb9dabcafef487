package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
)

const attemptColumns = `id, competition_id, athlete_id, lift, number, weight_kg, result, votes, judged_at`

// ListAttempts returns a competition's attempts ordered by athlete, lift,
// number, then id.
func (s *Store) ListAttempts(ctx context.Context, competitionID string) ([]meet.Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attemptColumns+`
		FROM attempts
		WHERE competition_id = ?
		ORDER BY athlete_id COLLATE BINARY ASC,
			CASE lift WHEN 'squat' THEN 0 WHEN 'bench' THEN 1 ELSE 2 END ASC,
			number ASC,
			id COLLATE BINARY ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	out := []meet.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// GetAttempt returns one attempt by ID.
func (s *Store) GetAttempt(ctx context.Context, id string) (meet.Attempt, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM attempts WHERE id = ?`, id)
	a, err := scanAttempt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return meet.Attempt{}, fmt.Errorf("attempt %s: %w", id, ErrNotFound)
	}
	return a, err
}

// CreateAttempt inserts a new attempt record with a generated ID.
// A second record for the same (athlete, lift, number) is rejected by the
// slot index.
func (s *Store) CreateAttempt(ctx context.Context, in meet.AttemptInput) (meet.Attempt, error) {
	votes, err := marshalJSON(votesOrEmpty(in.Votes))
	if err != nil {
		return meet.Attempt{}, fmt.Errorf("marshal votes: %w", err)
	}
	result := in.Result
	if result == "" {
		result = meet.ResultPending
	}
	id := s.ids.Generate()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (`+attemptColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.CompetitionID, in.AthleteID, string(in.Lift), in.Number, in.WeightKg,
		string(result), votes, formatTimePtr(in.JudgedAt))
	if err != nil {
		return meet.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return s.GetAttempt(ctx, id)
}

// UpdateAttempt records a judgment on a pending attempt and returns the
// stored record. A result is written once; judging a judged attempt fails
// with ErrAlreadyJudged.
func (s *Store) UpdateAttempt(ctx context.Context, in meet.AttemptUpdate) (meet.Attempt, error) {
	votes, err := marshalJSON(votesOrEmpty(in.Votes))
	if err != nil {
		return meet.Attempt{}, fmt.Errorf("marshal votes: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE attempts
		SET weight_kg = ?, result = ?, votes = ?, judged_at = ?
		WHERE id = ? AND result = ?
	`, in.WeightKg, string(in.Result), votes, formatTimePtr(in.JudgedAt), in.ID, string(meet.ResultPending))
	if err != nil {
		return meet.Attempt{}, fmt.Errorf("update attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return meet.Attempt{}, fmt.Errorf("update attempt: %w", err)
	}
	if n == 0 {
		if _, err := s.GetAttempt(ctx, in.ID); err != nil {
			return meet.Attempt{}, err
		}
		return meet.Attempt{}, fmt.Errorf("attempt %s: %w", in.ID, ErrAlreadyJudged)
	}
	return s.GetAttempt(ctx, in.ID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (meet.Attempt, error) {
	var (
		a        meet.Attempt
		lift     string
		result   string
		votes    string
		judgedAt sql.NullString
	)
	if err := row.Scan(&a.ID, &a.CompetitionID, &a.AthleteID, &lift, &a.Number, &a.WeightKg, &result, &votes, &judgedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return meet.Attempt{}, err
		}
		return meet.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Lift = meet.Lift(lift)
	a.Result = meet.Result(result)
	if err := unmarshalJSON(votes, &a.Votes); err != nil {
		return meet.Attempt{}, err
	}
	if len(a.Votes) == 0 {
		a.Votes = nil
	}
	t, err := parseTimePtr(judgedAt)
	if err != nil {
		return meet.Attempt{}, err
	}
	a.JudgedAt = t
	return a, nil
}

func votesOrEmpty(v []meet.Vote) []meet.Vote {
	if v == nil {
		return []meet.Vote{}
	}
	return v
}
