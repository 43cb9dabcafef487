package protest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/testutil"
)

type memRepo struct {
	protests map[string]meet.Protest
	err      error
}

func newMemRepo() *memRepo {
	return &memRepo{protests: make(map[string]meet.Protest)}
}

func (m *memRepo) CreateProtest(_ context.Context, p meet.Protest) (meet.Protest, error) {
	if m.err != nil {
		return meet.Protest{}, m.err
	}
	m.protests[p.ID] = p
	return p, nil
}

func (m *memRepo) GetProtest(_ context.Context, id string) (meet.Protest, error) {
	p, ok := m.protests[id]
	if !ok {
		return meet.Protest{}, ErrNotFound
	}
	return p, nil
}

func (m *memRepo) UpdateProtest(_ context.Context, p meet.Protest) (meet.Protest, error) {
	if m.err != nil {
		return meet.Protest{}, m.err
	}
	m.protests[p.ID] = p
	return p, nil
}

func (m *memRepo) ListProtests(_ context.Context, competitionID string) ([]meet.Protest, error) {
	out := []meet.Protest{}
	for _, p := range m.protests {
		if p.CompetitionID == competitionID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b meet.Protest) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

var judged = meet.Attempt{
	ID:            "att-1",
	CompetitionID: "comp-1",
	AthleteID:     "ath-1",
	Lift:          meet.LiftSquat,
	Number:        1,
	WeightKg:      180,
	Result:        meet.ResultFailure,
}

func newTestWorkflow(t *testing.T) (*Workflow, *memRepo, *testutil.FakeClock) {
	t.Helper()
	repo := newMemRepo()
	clock := testutil.NewFakeClock(testutil.Epoch)
	w := New(repo, WithClock(clock), WithIDs(testutil.NewSequentialIDs("prt")))
	return w, repo, clock
}

func validInput() FileInput {
	return FileInput{
		AttemptID: judged.ID,
		Type:      meet.ProtestRefereeDecision,
		Reason:    "depth was clearly below parallel",
	}
}

func TestOpenWindow_Deadline(t *testing.T) {
	w, _, clock := newTestWorkflow(t)

	win := w.OpenWindow(judged, clock.Now())

	assert.Equal(t, clock.Now().Add(60*time.Second), win.Deadline)
	assert.Equal(t, "ath-1", win.AthleteID)
	assert.Equal(t, 60*time.Second, w.Remaining(judged.ID, clock.Now()))
	assert.Equal(t, 15*time.Second, w.Remaining(judged.ID, clock.Now().Add(45*time.Second)))
	assert.Zero(t, w.Remaining(judged.ID, clock.Now().Add(2*time.Minute)))
	assert.Zero(t, w.Remaining("unknown", clock.Now()))
}

func TestFile_AtSecond59Accepted(t *testing.T) {
	w, repo, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	clock.Advance(59 * time.Second)

	p, err := w.File(context.Background(), validInput())

	require.NoError(t, err)
	assert.Equal(t, "prt-1", p.ID)
	assert.Equal(t, meet.ProtestPending, p.Status)
	assert.Equal(t, "comp-1", p.CompetitionID)
	assert.Equal(t, "ath-1", p.AthleteID)
	assert.Equal(t, testutil.Epoch.Add(60*time.Second), p.Deadline)
	assert.Equal(t, clock.Now(), p.FiledAt)
	assert.Len(t, repo.protests, 1)
}

func TestFile_AtSecond60Rejected(t *testing.T) {
	w, repo, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	clock.Advance(60 * time.Second)

	_, err := w.File(context.Background(), validInput())

	require.Error(t, err)
	assert.Equal(t, CodeWindowClosed, CodeOf(err))
	assert.Empty(t, repo.protests)
}

func TestFile_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FileInput)
		code   Code
	}{
		{
			name:   "unknown type",
			mutate: func(in *FileInput) { in.Type = "weather" },
			code:   CodeInvalidType,
		},
		{
			name:   "reason too short",
			mutate: func(in *FileInput) { in.Reason = "   bad    " },
			code:   CodeReasonTooShort,
		},
		{
			name:   "no window",
			mutate: func(in *FileInput) { in.AttemptID = "att-9" },
			code:   CodeNoWindow,
		},
		{
			name:   "other athlete",
			mutate: func(in *FileInput) { in.AthleteID = "ath-2" },
			code:   CodeAthleteMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, repo, clock := newTestWorkflow(t)
			w.OpenWindow(judged, clock.Now())
			in := validInput()
			tt.mutate(&in)

			_, err := w.File(context.Background(), in)

			require.Error(t, err)
			assert.True(t, IsError(err))
			assert.Equal(t, tt.code, CodeOf(err))
			assert.Empty(t, repo.protests)
		})
	}
}

func TestFile_ReasonExactlyMinimum(t *testing.T) {
	w, _, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	in := validInput()
	in.Reason = "\u00e9l\u00e9vation!"

	_, err := w.File(context.Background(), in)

	require.NoError(t, err)
}

func TestFile_RepositoryFailure(t *testing.T) {
	w, repo, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	repo.err = errors.New("database is locked")

	_, err := w.File(context.Background(), validInput())

	require.Error(t, err)
	assert.False(t, IsError(err))
	assert.Contains(t, err.Error(), "database is locked")
}

func TestResolve_PendingAfterDeadline(t *testing.T) {
	w, _, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	clock.Advance(30 * time.Second)
	filed, err := w.File(context.Background(), validInput())
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	p, changed, err := w.Resolve(context.Background(), filed.ID, meet.ProtestAccepted, "  video review  ")

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, meet.ProtestAccepted, p.Status)
	assert.Equal(t, "video review", p.JuryNotes)
	require.NotNil(t, p.ResolvedAt)
	assert.Equal(t, clock.Now(), *p.ResolvedAt)
}

func TestResolve_AlreadyResolvedIsNoop(t *testing.T) {
	w, repo, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	filed, err := w.File(context.Background(), validInput())
	require.NoError(t, err)
	first, _, err := w.Resolve(context.Background(), filed.ID, meet.ProtestRejected, "lights stand")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	second, changed, err := w.Resolve(context.Background(), filed.ID, meet.ProtestAccepted, "changed our mind")

	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first, second)
	assert.Equal(t, meet.ProtestRejected, repo.protests[filed.ID].Status)
}

func TestResolve_Errors(t *testing.T) {
	w, _, _ := newTestWorkflow(t)

	_, _, err := w.Resolve(context.Background(), "prt-404", meet.ProtestAccepted, "")
	assert.Equal(t, CodeNotFound, CodeOf(err))

	_, _, err = w.Resolve(context.Background(), "prt-404", meet.ProtestPending, "")
	assert.Equal(t, CodeInvalidDecision, CodeOf(err))
}

func TestPending(t *testing.T) {
	w, _, clock := newTestWorkflow(t)
	w.OpenWindow(judged, clock.Now())
	a, err := w.File(context.Background(), validInput())
	require.NoError(t, err)
	b, err := w.File(context.Background(), validInput())
	require.NoError(t, err)
	_, _, err = w.Resolve(context.Background(), a.ID, meet.ProtestRejected, "")
	require.NoError(t, err)

	pending, err := w.Pending(context.Background(), "comp-1")

	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)
}

func TestActiveAndReset(t *testing.T) {
	w, _, clock := newTestWorkflow(t)
	start := clock.Now()
	w.OpenWindow(judged, start)
	second := judged
	second.ID = "att-2"
	w.OpenWindow(second, start.Add(20*time.Second))

	active := w.Active(start.Add(70 * time.Second))
	require.Len(t, active, 1)
	assert.Equal(t, "att-2", active[0].AttemptID)

	assert.Len(t, w.Active(start), 2)
	assert.Equal(t, "att-1", w.Active(start)[0].AttemptID)

	w.Reset()
	assert.Empty(t, w.Active(start))
	_, ok := w.Window("att-1")
	assert.False(t, ok)
}
