package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/protest"
	"github.com/roach88/liftoff/internal/testutil"
)

const compID = "comp-1"

// memRepo is an in-memory meet.Repository.
type memRepo struct {
	mu         sync.Mutex
	athletes   []meet.Athlete
	weighIns   []meet.WeighIn
	attempts   []meet.Attempt
	next       int
	writeErr   error
	readErr    error
	writeCalls int
}

func (m *memRepo) ListAthletes(_ context.Context, competitionID string) ([]meet.Athlete, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return slices.Clone(m.athletes), nil
}

func (m *memRepo) ListWeighIns(_ context.Context, competitionID string) ([]meet.WeighIn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return slices.Clone(m.weighIns), nil
}

func (m *memRepo) ListAttempts(_ context.Context, competitionID string) ([]meet.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	return slices.Clone(m.attempts), nil
}

func (m *memRepo) CreateAttempt(_ context.Context, in meet.AttemptInput) (meet.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	if m.writeErr != nil {
		return meet.Attempt{}, m.writeErr
	}
	m.next++
	a := meet.Attempt{
		ID:            fmt.Sprintf("att-%d", m.next),
		CompetitionID: in.CompetitionID,
		AthleteID:     in.AthleteID,
		Lift:          in.Lift,
		Number:        in.Number,
		WeightKg:      in.WeightKg,
		Result:        in.Result,
		Votes:         in.Votes,
		JudgedAt:      in.JudgedAt,
	}
	m.attempts = append(m.attempts, a)
	return a, nil
}

func (m *memRepo) UpdateAttempt(_ context.Context, in meet.AttemptUpdate) (meet.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeCalls++
	if m.writeErr != nil {
		return meet.Attempt{}, m.writeErr
	}
	for i := range m.attempts {
		if m.attempts[i].ID == in.ID {
			m.attempts[i].WeightKg = in.WeightKg
			m.attempts[i].Result = in.Result
			m.attempts[i].Votes = in.Votes
			m.attempts[i].JudgedAt = in.JudgedAt
			return m.attempts[i], nil
		}
	}
	return meet.Attempt{}, fmt.Errorf("attempt %s not found", in.ID)
}

func (m *memRepo) add(id, first, last string, lot int, squatOpener float64) {
	l := lot
	m.athletes = append(m.athletes, meet.Athlete{
		ID:            id,
		CompetitionID: compID,
		FirstName:     first,
		LastName:      last,
		Gender:        meet.GenderMale,
		WeightClass:   "83",
		Lot:           &l,
	})
	m.weighIns = append(m.weighIns, meet.WeighIn{
		AthleteID:    id,
		BodyweightKg: 82,
		Openers: map[meet.Lift]float64{
			meet.LiftSquat: squatOpener,
			meet.LiftBench: squatOpener - 30,
		},
		RackHeights: map[meet.Lift]string{meet.LiftSquat: "12"},
	})
}

// fiveAthletes orders squat attempt 1 as a3(90), a1(100), a2(100), a4(110), a5(120).
func fiveAthletes() *memRepo {
	m := &memRepo{}
	m.add("a1", "Ada", "Lovelace", 1, 100)
	m.add("a2", "Bea", "Smith", 2, 100)
	m.add("a3", "Cy", "Jones", 3, 90)
	m.add("a4", "Di", "Brown", 4, 110)
	m.add("a5", "Ed", "White", 5, 120)
	return m
}

type memDecls struct {
	saved map[string][]meet.Declaration
	saves int
}

func (m *memDecls) LoadDeclarations(_ context.Context, competitionID string) ([]meet.Declaration, error) {
	return slices.Clone(m.saved[competitionID]), nil
}

func (m *memDecls) SaveDeclarations(_ context.Context, competitionID string, decls []meet.Declaration) error {
	if m.saved == nil {
		m.saved = make(map[string][]meet.Declaration)
	}
	m.saves++
	m.saved[competitionID] = slices.Clone(decls)
	return nil
}

type memProtests struct {
	protests []meet.Protest
}

func (m *memProtests) CreateProtest(_ context.Context, p meet.Protest) (meet.Protest, error) {
	m.protests = append(m.protests, p)
	return p, nil
}

func (m *memProtests) GetProtest(_ context.Context, id string) (meet.Protest, error) {
	for _, p := range m.protests {
		if p.ID == id {
			return p, nil
		}
	}
	return meet.Protest{}, protest.ErrNotFound
}

func (m *memProtests) UpdateProtest(_ context.Context, p meet.Protest) (meet.Protest, error) {
	for i := range m.protests {
		if m.protests[i].ID == p.ID {
			m.protests[i] = p
		}
	}
	return p, nil
}

func (m *memProtests) ListProtests(_ context.Context, competitionID string) ([]meet.Protest, error) {
	return slices.Clone(m.protests), nil
}

type fixture struct {
	s     *Session
	repo  *memRepo
	bus   *broadcast.Bus
	clock *testutil.FakeClock
	decls *memDecls
	seen  int64
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, repo *memRepo) *fixture {
	t.Helper()
	clock := testutil.NewFakeClock(testutil.Epoch)
	bus := broadcast.NewBus()
	decls := &memDecls{}
	workflow := protest.New(&memProtests{},
		protest.WithClock(clock),
		protest.WithIDs(testutil.NewSequentialIDs("prt")),
	)
	s := New(repo, bus,
		WithWallClock(clock),
		WithLogger(quietLogger()),
		WithDeclarationRepository(decls),
		WithProtests(workflow),
	)
	return &fixture{s: s, repo: repo, bus: bus, clock: clock, decls: decls}
}

// opened returns a fixture with the competition open and history cleared.
func opened(t *testing.T, repo *memRepo) *fixture {
	t.Helper()
	f := newFixture(t, repo)
	if err := f.s.Open(context.Background(), compID); err != nil {
		t.Fatalf("open: %v", err)
	}
	f.mark()
	return f
}

// started returns a running fixture with history cleared.
func started(t *testing.T, repo *memRepo) *fixture {
	t.Helper()
	f := opened(t, repo)
	if err := f.s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	f.mark()
	return f
}

// mark hides every event published so far from events() and types().
func (f *fixture) mark() {
	h := f.bus.History()
	if len(h) > 0 {
		f.seen = h[len(h)-1].Seq
	}
}

// events returns the events published since the last mark.
func (f *fixture) events() []broadcast.Event {
	var out []broadcast.Event
	for _, e := range f.bus.History() {
		if e.Seq > f.seen {
			out = append(out, e)
		}
	}
	return out
}

// types returns the event types published since the last mark.
func (f *fixture) types() []broadcast.EventType {
	var out []broadcast.EventType
	for _, e := range f.events() {
		out = append(out, e.Type)
	}
	return out
}

// order renders the live queue as "athlete/attempt" pairs.
func (f *fixture) order() string {
	var parts []string
	for _, e := range f.s.Queue() {
		parts = append(parts, fmt.Sprintf("%s/%d", e.AthleteID, e.AttemptNumber))
	}
	return strings.Join(parts, ",")
}
