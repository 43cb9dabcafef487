package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/testutil"
)

// createTestStore opens a fresh database in the test's temp dir with
// sequential IDs ("id-1", "id-2", ...).
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDs(testutil.NewSequentialIDs("id")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

// testRoster is a three-athlete competition; c3 has not weighed in.
func testRoster() Roster {
	return Roster{
		Competition: meet.Competition{ID: "comp-1", Name: "Spring Open", Date: "2026-03-14"},
		Athletes: []RosterEntry{
			{
				Athlete: meet.Athlete{
					ID: "c2", FirstName: "Bea", LastName: "Brown",
					Gender: meet.GenderFemale, WeightClass: "63", Lot: intPtr(7),
				},
				BodyweightKg: 62.1,
				Openers:      map[meet.Lift]float64{meet.LiftSquat: 120, meet.LiftBench: 65, meet.LiftDeadlift: 150},
				RackHeights:  map[meet.Lift]string{meet.LiftSquat: "11"},
			},
			{
				Athlete: meet.Athlete{
					ID: "c1", FirstName: "Ada", LastName: "Adams",
					Gender: meet.GenderMale, WeightClass: "83", Division: "open",
				},
				BodyweightKg: 82.4,
				Openers:      map[meet.Lift]float64{meet.LiftSquat: 200},
			},
			{
				Athlete: meet.Athlete{
					ID: "c3", FirstName: "Cy", LastName: "Cole",
					Gender: meet.GenderMale, WeightClass: "120+",
				},
			},
		},
	}
}

func importTestRoster(t *testing.T, s *Store) {
	t.Helper()
	if err := s.ImportRoster(context.Background(), testRoster()); err != nil {
		t.Fatalf("ImportRoster() failed: %v", err)
	}
}
