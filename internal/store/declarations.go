package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
)

// LoadDeclarations returns the persisted declarations of a competition.
func (s *Store) LoadDeclarations(ctx context.Context, competitionID string) ([]meet.Declaration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT athlete_id, lift, attempt_number, weight_kg, declared_at
		FROM declarations
		WHERE competition_id = ?
		ORDER BY athlete_id COLLATE BINARY ASC, lift ASC, attempt_number ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query declarations: %w", err)
	}
	defer rows.Close()

	out := []meet.Declaration{}
	for rows.Next() {
		var (
			d          meet.Declaration
			lift       string
			declaredAt string
		)
		if err := rows.Scan(&d.AthleteID, &lift, &d.AttemptNumber, &d.WeightKg, &declaredAt); err != nil {
			return nil, fmt.Errorf("scan declaration: %w", err)
		}
		d.Lift = meet.Lift(lift)
		if d.DeclaredAt, err = parseTime(declaredAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate declarations: %w", err)
	}
	return out, nil
}

// SaveDeclarations replaces the persisted set for a competition.
func (s *Store) SaveDeclarations(ctx context.Context, competitionID string, decls []meet.Declaration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM declarations WHERE competition_id = ?`, competitionID); err != nil {
			return fmt.Errorf("clear declarations: %w", err)
		}
		for _, d := range decls {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO declarations
				(competition_id, athlete_id, lift, attempt_number, weight_kg, declared_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, competitionID, d.AthleteID, string(d.Lift), d.AttemptNumber, d.WeightKg, formatTime(d.DeclaredAt))
			if err != nil {
				return fmt.Errorf("insert declaration %s/%s/%d: %w", d.AthleteID, d.Lift, d.AttemptNumber, err)
			}
		}
		return nil
	})
}
