package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/liftoff/internal/meet"
)

// Roster is the import format for a competition and its weighed-in athletes.
//
//	competition: {id: nats-2026, name: Nationals}
//	athletes:
//	  - id: a1
//	    first_name: Ada
//	    last_name: Lovelace
//	    gender: F
//	    weight_class: "63"
//	    lot: 4
//	    bodyweight_kg: 62.4
//	    openers: {squat: 140, bench: 80, deadlift: 170}
//	    rack_heights: {squat: "12"}
//
// An entry without bodyweight_kg registers the athlete without a weigh-in.
type Roster struct {
	Competition meet.Competition `yaml:"competition"`
	Athletes    []RosterEntry    `yaml:"athletes"`
}

// RosterEntry is one athlete with an optional weigh-in.
type RosterEntry struct {
	meet.Athlete `yaml:",inline"`
	BodyweightKg float64               `yaml:"bodyweight_kg,omitempty"`
	Openers      map[meet.Lift]float64 `yaml:"openers,omitempty"`
	RackHeights  map[meet.Lift]string  `yaml:"rack_heights,omitempty"`
}

// WeighIn returns the entry's weigh-in, or false when it has none.
func (e RosterEntry) WeighIn() (meet.WeighIn, bool) {
	if e.BodyweightKg <= 0 {
		return meet.WeighIn{}, false
	}
	return meet.WeighIn{
		AthleteID:    e.ID,
		BodyweightKg: e.BodyweightKg,
		Openers:      e.Openers,
		RackHeights:  e.RackHeights,
	}, true
}

// LoadRoster reads a roster file.
func LoadRoster(path string) (Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return Roster{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return DecodeRoster(f)
}

// DecodeRoster parses and validates a YAML roster. Unknown fields are errors.
func DecodeRoster(r io.Reader) (Roster, error) {
	var roster Roster
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&roster); err != nil {
		return Roster{}, fmt.Errorf("parse roster: %w", err)
	}
	if err := roster.Validate(); err != nil {
		return Roster{}, err
	}
	return roster, nil
}

// Validate checks identities and enumerations.
func (r Roster) Validate() error {
	if r.Competition.ID == "" {
		return errors.New("roster: competition.id is required")
	}
	seen := make(map[string]bool, len(r.Athletes))
	for i, a := range r.Athletes {
		if a.ID == "" {
			return fmt.Errorf("roster: athletes[%d]: id is required", i)
		}
		if seen[a.ID] {
			return fmt.Errorf("roster: athletes[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if a.Gender != meet.GenderMale && a.Gender != meet.GenderFemale {
			return fmt.Errorf("roster: athlete %s: gender must be M or F, got %q", a.ID, a.Gender)
		}
		if a.WeightClass == "" {
			return fmt.Errorf("roster: athlete %s: weight_class is required", a.ID)
		}
		for l := range a.Openers {
			if !l.Valid() {
				return fmt.Errorf("roster: athlete %s: unknown lift %q in openers", a.ID, l)
			}
		}
		for l := range a.RackHeights {
			if !l.Valid() {
				return fmt.Errorf("roster: athlete %s: unknown lift %q in rack_heights", a.ID, l)
			}
		}
	}
	return nil
}

// ImportRoster upserts the competition, its athletes and their weigh-ins
// in one transaction. Roster order becomes the athletes' stored order.
func (s *Store) ImportRoster(ctx context.Context, r Roster) error {
	if err := r.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO competitions (id, name, date) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, date = excluded.date
		`, r.Competition.ID, r.Competition.Name, r.Competition.Date)
		if err != nil {
			return fmt.Errorf("import competition: %w", err)
		}

		for i, a := range r.Athletes {
			var lot sql.NullInt64
			if a.Lot != nil {
				lot = sql.NullInt64{Int64: int64(*a.Lot), Valid: true}
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO athletes
				(id, competition_id, position, first_name, last_name, gender, weight_class, lot, division)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET
					competition_id = excluded.competition_id,
					position = excluded.position,
					first_name = excluded.first_name,
					last_name = excluded.last_name,
					gender = excluded.gender,
					weight_class = excluded.weight_class,
					lot = excluded.lot,
					division = excluded.division
			`, a.ID, r.Competition.ID, i, a.FirstName, a.LastName, string(a.Gender), a.WeightClass, lot, a.Division)
			if err != nil {
				return fmt.Errorf("import athlete %s: %w", a.ID, err)
			}

			w, ok := a.WeighIn()
			if !ok {
				if _, err := tx.ExecContext(ctx, `DELETE FROM weigh_ins WHERE athlete_id = ?`, a.ID); err != nil {
					return fmt.Errorf("clear weigh-in %s: %w", a.ID, err)
				}
				continue
			}
			if err := upsertWeighIn(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertWeighIn(ctx context.Context, tx *sql.Tx, w meet.WeighIn) error {
	openers, err := marshalJSON(orEmpty(w.Openers))
	if err != nil {
		return fmt.Errorf("marshal openers: %w", err)
	}
	racks, err := marshalJSON(orEmpty(w.RackHeights))
	if err != nil {
		return fmt.Errorf("marshal rack heights: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO weigh_ins (athlete_id, bodyweight_kg, openers, rack_heights)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(athlete_id) DO UPDATE SET
			bodyweight_kg = excluded.bodyweight_kg,
			openers = excluded.openers,
			rack_heights = excluded.rack_heights
	`, w.AthleteID, w.BodyweightKg, openers, racks)
	if err != nil {
		return fmt.Errorf("import weigh-in %s: %w", w.AthleteID, err)
	}
	return nil
}

func orEmpty[V any](m map[meet.Lift]V) map[meet.Lift]V {
	if m == nil {
		return map[meet.Lift]V{}
	}
	return m
}
