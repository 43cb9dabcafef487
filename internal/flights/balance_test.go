package flights

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftoff/internal/meet"
)

func roster(n int, gender meet.Gender, class string) ([]meet.Athlete, []meet.WeighIn) {
	athletes := make([]meet.Athlete, 0, n)
	weighIns := make([]meet.WeighIn, 0, n)
	for i := 0; i < n; i++ {
		lot := n - i
		id := fmt.Sprintf("%s%s-%02d", gender, class, i)
		athletes = append(athletes, meet.Athlete{
			ID:          id,
			FirstName:   "A",
			LastName:    id,
			Gender:      gender,
			WeightClass: class,
			Lot:         &lot,
		})
		weighIns = append(weighIns, meet.WeighIn{AthleteID: id, BodyweightKg: 80})
	}
	return athletes, weighIns
}

func TestBalance_TwentyAthletesYieldSixFlights(t *testing.T) {
	athletes, weighIns := roster(20, meet.GenderMale, "83")

	flights := Balance("comp-1", athletes, weighIns, DefaultOptions())

	require.Len(t, flights, 6)
	for _, f := range flights {
		assert.LessOrEqual(t, len(f.AthleteIDs), DefaultMaxSize)
		assert.Len(t, f.AthleteIDs, 10)
		assert.Equal(t, "comp-1", f.CompetitionID)
		assert.Equal(t, meet.FlightPending, f.Status)
	}
	assert.Equal(t, []meet.Lift{
		meet.LiftSquat, meet.LiftSquat,
		meet.LiftBench, meet.LiftBench,
		meet.LiftDeadlift, meet.LiftDeadlift,
	}, []meet.Lift{flights[0].Lift, flights[1].Lift, flights[2].Lift, flights[3].Lift, flights[4].Lift, flights[5].Lift})
	assert.Equal(t, "A", flights[0].Name)
	assert.Equal(t, "B", flights[1].Name)
	assert.Equal(t, flights[0].AthleteIDs, flights[2].AthleteIDs, "same athlete set across lifts")
	assert.True(t, Validate(flights, DefaultOptions()).Valid)
}

func TestBalance_LotOrderWithinChunks(t *testing.T) {
	athletes, weighIns := roster(4, meet.GenderFemale, "63")

	flights := Balance("c", athletes, weighIns, DefaultOptions())

	require.Len(t, flights, 3)
	// roster assigns descending lots, so the last athlete has lot 1
	assert.Equal(t, []string{"F63-03", "F63-02", "F63-01", "F63-00"}, flights[0].AthleteIDs)
}

func TestBalance_SkipsAthletesWithoutWeighIn(t *testing.T) {
	athletes, weighIns := roster(3, meet.GenderMale, "93")
	weighIns = weighIns[:1]

	flights := Balance("c", athletes, weighIns, DefaultOptions())

	require.Len(t, flights, 3)
	assert.Equal(t, []string{"M93-00"}, flights[0].AthleteIDs)
}

func TestBalance_NoEligibleAthletes(t *testing.T) {
	athletes, _ := roster(5, meet.GenderMale, "93")

	flights := Balance("c", athletes, nil, DefaultOptions())

	assert.Empty(t, flights)
}

func TestBalance_GroupOrder(t *testing.T) {
	m120, w1 := roster(2, meet.GenderMale, "120+")
	m59, w2 := roster(2, meet.GenderMale, "59")
	f47, w3 := roster(2, meet.GenderFemale, "47")
	athletes := append(append(m120, m59...), f47...)
	weighIns := append(append(w1, w2...), w3...)

	flights := Balance("c", athletes, weighIns, DefaultOptions())

	require.Len(t, flights, 9)
	assert.Equal(t, "A", flights[0].Name)
	assert.Contains(t, flights[0].AthleteIDs, "F47-00")
	assert.Equal(t, "B", flights[1].Name)
	assert.Contains(t, flights[1].AthleteIDs, "M59-00")
	assert.Equal(t, "C", flights[2].Name)
	assert.Contains(t, flights[2].AthleteIDs, "M120+-00")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n     int
		sizes []int
	}{
		{n: 1, sizes: []int{1}},
		{n: 14, sizes: []int{14}},
		{n: 15, sizes: []int{8, 7}},
		{n: 20, sizes: []int{10, 10}},
		{n: 29, sizes: []int{10, 10, 9}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.n), func(t *testing.T) {
			var sizes []int
			for _, s := range split(tt.n, DefaultMaxSize) {
				sizes = append(sizes, s.size)
			}
			assert.Equal(t, tt.sizes, sizes)
		})
	}
	assert.Empty(t, split(0, DefaultMaxSize))
}

func TestName(t *testing.T) {
	assert.Equal(t, "A", Name(0))
	assert.Equal(t, "Z", Name(25))
	assert.Equal(t, "AA", Name(26))
	assert.Equal(t, "AB", Name(27))
}

func TestValidate(t *testing.T) {
	ids := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprint(i)
		}
		return out
	}

	t.Run("two athletes warns but stays valid", func(t *testing.T) {
		r := Validate([]meet.Flight{{Name: "A", Lift: meet.LiftSquat, AthleteIDs: ids(2)}}, DefaultOptions())
		assert.True(t, r.Valid)
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
		assert.Contains(t, r.Warnings[0].Message, "merging")
	})

	t.Run("fifteen athletes is invalid", func(t *testing.T) {
		r := Validate([]meet.Flight{{Name: "A", Lift: meet.LiftSquat, AthleteIDs: ids(15)}}, DefaultOptions())
		assert.False(t, r.Valid)
		require.Len(t, r.Warnings, 1)
		assert.Equal(t, SeverityError, r.Warnings[0].Severity)
	})

	t.Run("in bounds has no warnings", func(t *testing.T) {
		r := Validate([]meet.Flight{{Name: "A", Lift: meet.LiftSquat, AthleteIDs: ids(14)}}, DefaultOptions())
		assert.True(t, r.Valid)
		assert.Empty(t, r.Warnings)
	})
}

type memFlights struct {
	flights   []meet.Flight
	deleted   []string
	failAfter int
	next      int
}

func (m *memFlights) ListFlights(_ context.Context, competitionID string) ([]meet.Flight, error) {
	var out []meet.Flight
	for _, f := range m.flights {
		if f.CompetitionID == competitionID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memFlights) CreateFlight(_ context.Context, f meet.Flight) (meet.Flight, error) {
	if m.failAfter > 0 && m.next >= m.failAfter {
		return meet.Flight{}, errors.New("disk full")
	}
	m.next++
	f.ID = fmt.Sprintf("flt-%d", m.next)
	m.flights = append(m.flights, f)
	return f, nil
}

func (m *memFlights) DeleteFlightsByCompetition(_ context.Context, competitionID string) error {
	m.deleted = append(m.deleted, competitionID)
	kept := m.flights[:0]
	for _, f := range m.flights {
		if f.CompetitionID != competitionID {
			kept = append(kept, f)
		}
	}
	m.flights = kept
	return nil
}

func TestRegenerate_ReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	repo := &memFlights{flights: []meet.Flight{
		{ID: "old", CompetitionID: "c", Name: "Z"},
		{ID: "other", CompetitionID: "other-comp", Name: "A"},
	}}
	athletes, weighIns := roster(5, meet.GenderMale, "74")

	created, report, err := Regenerate(ctx, repo, "c", meet.Snapshot{Athletes: athletes, WeighIns: weighIns}, DefaultOptions())
	require.NoError(t, err)
	assert.True(t, report.Valid)
	require.Len(t, created, 3)
	assert.Equal(t, "flt-1", created[0].ID)

	stored, err := repo.ListFlights(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, stored, 3)
	for _, f := range stored {
		assert.NotEqual(t, "old", f.ID)
	}
	other, err := repo.ListFlights(ctx, "other-comp")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

func TestRegenerate_CreateFailure(t *testing.T) {
	repo := &memFlights{failAfter: 1}
	athletes, weighIns := roster(5, meet.GenderMale, "74")

	created, _, err := Regenerate(context.Background(), repo, "c", meet.Snapshot{Athletes: athletes, WeighIns: weighIns}, DefaultOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, created, 1)
}
