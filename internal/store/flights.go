package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
)

// ListFlights returns a competition's flights in creation order.
func (s *Store) ListFlights(ctx context.Context, competitionID string) ([]meet.Flight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, competition_id, name, lift, athlete_ids, status
		FROM flights
		WHERE competition_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	out := []meet.Flight{}
	for rows.Next() {
		var (
			f       meet.Flight
			lift    string
			members string
			status  string
		)
		if err := rows.Scan(&f.ID, &f.CompetitionID, &f.Name, &lift, &members, &status); err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		f.Lift = meet.Lift(lift)
		f.Status = meet.FlightStatus(status)
		f.AthleteIDs = []string{}
		if err := unmarshalJSON(members, &f.AthleteIDs); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flights: %w", err)
	}
	return out, nil
}

// CreateFlight appends a flight. An empty ID is generated.
func (s *Store) CreateFlight(ctx context.Context, f meet.Flight) (meet.Flight, error) {
	if f.ID == "" {
		f.ID = s.ids.Generate()
	}
	if f.Status == "" {
		f.Status = meet.FlightPending
	}
	if f.AthleteIDs == nil {
		f.AthleteIDs = []string{}
	}
	members, err := marshalJSON(f.AthleteIDs)
	if err != nil {
		return meet.Flight{}, fmt.Errorf("marshal flight members: %w", err)
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var position int
		if err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(position) + 1, 0) FROM flights WHERE competition_id = ?
		`, f.CompetitionID).Scan(&position); err != nil {
			return fmt.Errorf("next flight position: %w", err)
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO flights (id, competition_id, name, lift, athlete_ids, status, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, f.ID, f.CompetitionID, f.Name, string(f.Lift), members, string(f.Status), position)
		if err != nil {
			return fmt.Errorf("insert flight: %w", err)
		}
		return nil
	})
	if err != nil {
		return meet.Flight{}, err
	}
	return f, nil
}

// DeleteFlightsByCompetition removes every flight of a competition.
func (s *Store) DeleteFlightsByCompetition(ctx context.Context, competitionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM flights WHERE competition_id = ?`, competitionID); err != nil {
		return fmt.Errorf("delete flights: %w", err)
	}
	return nil
}
