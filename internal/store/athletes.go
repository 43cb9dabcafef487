package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
)

// ErrNotFound is returned for unknown competitions, attempts and flights.
var ErrNotFound = errors.New("not found")

// ErrAlreadyJudged is returned when an attempt's result has already been set.
var ErrAlreadyJudged = errors.New("attempt already judged")

// GetCompetition returns one competition.
func (s *Store) GetCompetition(ctx context.Context, id string) (meet.Competition, error) {
	var c meet.Competition
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, date FROM competitions WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return meet.Competition{}, fmt.Errorf("competition %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return meet.Competition{}, fmt.Errorf("get competition: %w", err)
	}
	return c, nil
}

// ListCompetitions returns every competition ordered by date, then id.
func (s *Store) ListCompetitions(ctx context.Context) ([]meet.Competition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date FROM competitions
		ORDER BY date ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query competitions: %w", err)
	}
	defer rows.Close()

	out := []meet.Competition{}
	for rows.Next() {
		var c meet.Competition
		if err := rows.Scan(&c.ID, &c.Name, &c.Date); err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitions: %w", err)
	}
	return out, nil
}

// ListAthletes returns a competition's athletes in roster order.
func (s *Store) ListAthletes(ctx context.Context, competitionID string) ([]meet.Athlete, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, competition_id, first_name, last_name, gender, weight_class, lot, division
		FROM athletes
		WHERE competition_id = ?
		ORDER BY position ASC, id COLLATE BINARY ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query athletes: %w", err)
	}
	defer rows.Close()

	out := []meet.Athlete{}
	for rows.Next() {
		var (
			a      meet.Athlete
			gender string
			lot    sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &a.CompetitionID, &a.FirstName, &a.LastName, &gender, &a.WeightClass, &lot, &a.Division); err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		a.Gender = meet.Gender(gender)
		if lot.Valid {
			n := int(lot.Int64)
			a.Lot = &n
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate athletes: %w", err)
	}
	return out, nil
}

// ListWeighIns returns the weigh-ins of a competition's athletes in roster
// order.
func (s *Store) ListWeighIns(ctx context.Context, competitionID string) ([]meet.WeighIn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.athlete_id, w.bodyweight_kg, w.openers, w.rack_heights
		FROM weigh_ins w
		JOIN athletes a ON a.id = w.athlete_id
		WHERE a.competition_id = ?
		ORDER BY a.position ASC, a.id COLLATE BINARY ASC
	`, competitionID)
	if err != nil {
		return nil, fmt.Errorf("query weigh-ins: %w", err)
	}
	defer rows.Close()

	out := []meet.WeighIn{}
	for rows.Next() {
		var (
			w       meet.WeighIn
			openers string
			racks   string
		)
		if err := rows.Scan(&w.AthleteID, &w.BodyweightKg, &openers, &racks); err != nil {
			return nil, fmt.Errorf("scan weigh-in: %w", err)
		}
		w.Openers = map[meet.Lift]float64{}
		w.RackHeights = map[meet.Lift]string{}
		if err := unmarshalJSON(openers, &w.Openers); err != nil {
			return nil, err
		}
		if err := unmarshalJSON(racks, &w.RackHeights); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weigh-ins: %w", err)
	}
	return out, nil
}
