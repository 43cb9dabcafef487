// Package declare holds operator weight declarations for the live session.
//
// A declaration overrides the algorithmic weight for one not-yet-attempted
// (athlete, lift, attempt#) slot. Writes are visible immediately and fully
// replace any prior value for the key. The table is loaded from and saved
// to a Repository only at session boundaries.
package declare

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/liftoff/internal/meet"
)

// Key identifies one declarable slot.
type Key struct {
	AthleteID     string
	Lift          meet.Lift
	AttemptNumber int
}

// Repository persists the declaration table for a competition.
type Repository interface {
	LoadDeclarations(ctx context.Context, competitionID string) ([]meet.Declaration, error)
	// SaveDeclarations replaces the persisted set for the competition.
	SaveDeclarations(ctx context.Context, competitionID string, decls []meet.Declaration) error
}

// Store is the in-memory declaration table.
//
// Store is owned by the session's single thread of control and is not safe
// for concurrent use.
type Store struct {
	entries map[Key]meet.Declaration
}

// NewStore creates an empty table.
func NewStore() *Store {
	return &Store{entries: make(map[Key]meet.Declaration)}
}

// Set records a declaration, replacing any prior value for its key.
func (s *Store) Set(d meet.Declaration) {
	s.entries[keyOf(d)] = d
}

// Get returns the declaration for a key.
func (s *Store) Get(k Key) (meet.Declaration, bool) {
	d, ok := s.entries[k]
	return d, ok
}

// Lookup implements ordering.Declarations.
func (s *Store) Lookup(athleteID string, lift meet.Lift, attemptNumber int) (float64, bool) {
	d, ok := s.entries[Key{athleteID, lift, attemptNumber}]
	if !ok {
		return 0, false
	}
	return d.WeightKg, true
}

// Clear removes the declaration for a key. Returns true if one existed.
func (s *Store) Clear(k Key) bool {
	_, ok := s.entries[k]
	delete(s.entries, k)
	return ok
}

// Reset empties the table.
func (s *Store) Reset() {
	s.entries = make(map[Key]meet.Declaration)
}

// Len returns the number of active declarations.
func (s *Store) Len() int {
	return len(s.entries)
}

// All returns every declaration ordered by athlete, lift, attempt.
func (s *Store) All() []meet.Declaration {
	out := make([]meet.Declaration, 0, len(s.entries))
	for _, d := range s.entries {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.AthleteID != b.AthleteID {
			return a.AthleteID < b.AthleteID
		}
		if a.Lift != b.Lift {
			return liftIndex(a.Lift) < liftIndex(b.Lift)
		}
		return a.AttemptNumber < b.AttemptNumber
	})
	return out
}

// Load replaces the table with the persisted declarations.
func (s *Store) Load(ctx context.Context, repo Repository, competitionID string) error {
	decls, err := repo.LoadDeclarations(ctx, competitionID)
	if err != nil {
		return fmt.Errorf("load declarations: %w", err)
	}
	s.Reset()
	for _, d := range decls {
		s.Set(d)
	}
	return nil
}

// Save persists the table, replacing what was stored.
func (s *Store) Save(ctx context.Context, repo Repository, competitionID string) error {
	if err := repo.SaveDeclarations(ctx, competitionID, s.All()); err != nil {
		return fmt.Errorf("save declarations: %w", err)
	}
	return nil
}

// New builds a declaration stamped with the given time.
func New(athleteID string, lift meet.Lift, attemptNumber int, weightKg float64, at time.Time) meet.Declaration {
	return meet.Declaration{
		AthleteID:     athleteID,
		Lift:          lift,
		AttemptNumber: attemptNumber,
		WeightKg:      weightKg,
		DeclaredAt:    at,
	}
}

func keyOf(d meet.Declaration) Key {
	return Key{AthleteID: d.AthleteID, Lift: d.Lift, AttemptNumber: d.AttemptNumber}
}

func liftIndex(l meet.Lift) int {
	for i, x := range meet.Lifts {
		if x == l {
			return i
		}
	}
	return len(meet.Lifts)
}
