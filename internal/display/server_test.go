package display

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/protest"
	"github.com/roach88/liftoff/internal/store"
	"github.com/roach88/liftoff/internal/testutil"
)

type fixture struct {
	srv   *Server
	db    *store.Store
	bus   *broadcast.Bus
	clock *testutil.FakeClock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func intPtr(n int) *int { return &n }

func roster() store.Roster {
	entry := func(id, last string, lot int, squat float64) store.RosterEntry {
		return store.RosterEntry{
			Athlete: meet.Athlete{
				ID: id, FirstName: "Test", LastName: last,
				Gender: meet.GenderMale, WeightClass: "93", Lot: intPtr(lot),
			},
			BodyweightKg: 92,
			Openers:      map[meet.Lift]float64{meet.LiftSquat: squat, meet.LiftBench: squat - 40, meet.LiftDeadlift: squat + 20},
		}
	}
	return store.Roster{
		Competition: meet.Competition{ID: "comp-1", Name: "Club Meet"},
		Athletes: []store.RosterEntry{
			entry("a1", "Able", 3, 150),
			entry("a2", "Baker", 1, 140),
			entry("a3", "Cole", 2, 160),
		},
	}
}

// newFixture opens comp-1 on a running session backed by a temp database.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(filepath.Join(t.TempDir(), "meet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ImportRoster(ctx, roster()))

	clock := testutil.NewFakeClock(testutil.Epoch)
	bus := broadcast.NewBus()
	workflow := protest.New(db, protest.WithClock(clock))
	sess := engine.New(db, bus,
		engine.WithWallClock(clock),
		engine.WithLogger(quietLogger()),
		engine.WithDeclarationRepository(db),
		engine.WithProtests(workflow),
	)
	runner := engine.NewRunner(sess, engine.WithTickInterval(0))
	runCtx, cancel := context.WithCancel(ctx)
	go runner.Run(runCtx)
	t.Cleanup(cancel)

	srv := New(runner, bus, WithOutbox(db), WithLogger(quietLogger()))
	f := &fixture{srv: srv, db: db, bus: bus, clock: clock}

	rec := f.post(t, "/session/open", map[string]string{"competition_id": "comp-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return f
}

func (f *fixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestState_AfterOpen(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[engine.View](t, rec)
	assert.Equal(t, "comp-1", view.CompetitionID)
	assert.Equal(t, engine.StatePaused, view.State)
	assert.Equal(t, meet.LiftSquat, view.Lift)
	require.NotNil(t, view.Current)
	assert.Equal(t, "a2", view.Current.AthleteID)
	assert.Len(t, view.Queue, 3)
}

func TestQueue_LightestFirst(t *testing.T) {
	f := newFixture(t)

	q := decode[QueueView](t, f.get(t, "/queue"))
	require.Len(t, q.Entries, 3)
	assert.Equal(t, "a2", q.Entries[0].AthleteID)
	assert.Equal(t, "a1", q.Entries[1].AthleteID)
	assert.Equal(t, "a3", q.Entries[2].AthleteID)
	assert.Equal(t, 0, q.CurrentIndex)
}

func TestSession_StartJudgeAdvances(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/session/start", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, engine.StateActive, decode[QueueView](t, rec).State)

	rec = f.post(t, "/session/judge", engine.JudgeInput{
		AthleteID: "a2",
		Votes:     []meet.Vote{meet.VoteGood, meet.VoteNoLift, meet.VoteGood},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	attempt := decode[meet.Attempt](t, rec)
	assert.Equal(t, meet.ResultSuccess, attempt.Result)
	assert.Equal(t, 140.0, attempt.WeightKg)
	assert.NotEmpty(t, attempt.ID)

	q := decode[QueueView](t, f.get(t, "/queue"))
	require.NotEmpty(t, q.Entries)
	assert.Equal(t, "a1", q.Entries[q.CurrentIndex].AthleteID)
}

func TestSession_IllegalTransitionIsConflict(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/session/pause", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, engine.CodeInvalidTransition, decode[ErrorBody](t, rec).Code)
}

func TestSession_UnknownLiftIsBadRequest(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/session/lift", map[string]string{"lift": "clean"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeBadRequest, decode[ErrorBody](t, rec).Code)
}

func TestSession_ChangeLift(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/session/lift", map[string]string{"lift": "bench"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	q := decode[QueueView](t, rec)
	assert.Equal(t, meet.LiftBench, q.Lift)
	assert.Equal(t, 100.0, q.Entries[0].WeightKg)
}

func TestSession_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/session/judge", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeclarations_ValidationIsUnprocessable(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/declarations", map[string]any{
		"athlete_id": "a1", "lift": "bench", "attempt_number": 4, "weight_kg": 120,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_ATTEMPT_NUMBER", decode[ErrorBody](t, rec).Code)
}

func TestDeclarations_Accepted(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/declarations", map[string]any{
		"athlete_id": "a3", "lift": "deadlift", "attempt_number": 1, "weight_kg": 185,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decode[meet.Declaration](t, rec)
	assert.Equal(t, 185.0, d.WeightKg)
	assert.True(t, testutil.Epoch.Equal(d.DeclaredAt))
}

func TestProtests_FileAndResolve(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/protests", protest.FileInput{
		AthleteID: "a2", AttemptID: "nope", Type: meet.ProtestProcedure, Reason: "wrong plates loaded",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(protest.CodeNoWindow), decode[ErrorBody](t, rec).Code)

	require.Equal(t, http.StatusOK, f.post(t, "/session/start", nil).Code)
	attempt := decode[meet.Attempt](t, f.post(t, "/session/judge", engine.JudgeInput{Result: meet.ResultFailure}))

	f.clock.Advance(30 * time.Second)
	rec = f.post(t, "/protests", protest.FileInput{
		AthleteID: "a2", AttemptID: attempt.ID, Type: meet.ProtestRefereeDecision, Reason: "depth was below parallel",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decode[meet.Protest](t, rec)
	assert.Equal(t, meet.ProtestPending, p.Status)

	rec = f.post(t, "/protests/"+p.ID+"/resolve", map[string]string{"decision": "accepted", "notes": "video review"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, meet.ProtestAccepted, decode[meet.Protest](t, rec).Status)

	rec = f.post(t, "/protests/missing/resolve", map[string]string{"decision": "rejected"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProtests_WindowClosed(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.post(t, "/session/start", nil).Code)
	attempt := decode[meet.Attempt](t, f.post(t, "/session/judge", engine.JudgeInput{Result: meet.ResultFailure}))

	f.clock.Advance(protest.DefaultWindow)
	rec := f.post(t, "/protests", protest.FileInput{
		AthleteID: "a2", AttemptID: attempt.ID, Type: meet.ProtestRefereeDecision, Reason: "depth was below parallel",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, string(protest.CodeWindowClosed), decode[ErrorBody](t, rec).Code)
}

func TestJudge_PersistenceFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.post(t, "/session/start", nil).Code)
	require.NoError(t, f.db.Close())

	rec := f.post(t, "/session/judge", engine.JudgeInput{Result: meet.ResultSuccess})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, engine.CodePersistence, body.Code)
	assert.True(t, body.Retryable)
}

func TestLastEvents(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/events/last/athlete_up")
	require.Equal(t, http.StatusOK, rec.Code)
	events := decode[[]broadcast.Event](t, rec)
	require.Len(t, events, 1)
	assert.Equal(t, broadcast.AthleteUp, events[0].Type)

	rec = f.get(t, "/events/last/competition_ended")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))

	assert.Equal(t, http.StatusNotFound, f.get(t, "/events/last/bogus").Code)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/events/last/athlete_up?n=0").Code)
}

func TestEventsSince_ReadsOutbox(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, e := range f.bus.History() {
		require.NoError(t, f.db.Send(ctx, e))
	}

	rec := f.get(t, "/events/since/0")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	events := decode[[]store.StoredEvent](t, rec)
	require.Len(t, events, len(f.bus.History()))
	assert.Equal(t, broadcast.AthleteUp, events[0].Type)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/events/since/x").Code)
}

type brokenOutbox struct{}

func (brokenOutbox) EventsSince(context.Context, int64, int) ([]store.StoredEvent, error) {
	return nil, errors.New("database is locked")
}

func TestEventsSince_OutboxFailure(t *testing.T) {
	srv := New(nil, broadcast.NewBus(), WithOutbox(brokenOutbox{}), WithLogger(quietLogger()))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events/since/3", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, engine.CodePersistence, body.Code)
	assert.True(t, body.Retryable)
	assert.Contains(t, body.Error, "database is locked")
}

func TestStream_SnapshotThenLive(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string, 64)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "event:") {
				lines <- strings.TrimPrefix(sc.Text(), "event:")
			}
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return ""
		}
	}

	assert.Equal(t, "athlete_up", next())
	assert.Equal(t, "attempt_order_update", next())

	require.Eventually(t, func() bool { return f.bus.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusOK, f.post(t, "/session/start", nil).Code)
	assert.Equal(t, "competition_started", next())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no competition", engine.ErrNoCompetition, http.StatusConflict, engine.CodeNoCompetition},
		{"ended", engine.ErrEnded, http.StatusConflict, engine.CodeEnded},
		{"empty queue", engine.ErrEmptyQueue, http.StatusConflict, engine.CodeEmptyQueue},
		{"protests disabled", engine.ErrProtestsDisabled, http.StatusConflict, engine.CodeProtestsDisabled},
		{"stopped", engine.ErrStopped, http.StatusServiceUnavailable, CodeUnavailable},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, CodeUnavailable},
		{"transition", &engine.TransitionError{From: engine.StateEnded, Command: "start"}, http.StatusConflict, engine.CodeInvalidTransition},
		{"persistence", &engine.PersistenceError{Op: "judge", Err: io.ErrUnexpectedEOF}, http.StatusServiceUnavailable, engine.CodePersistence},
		{"plain", io.EOF, http.StatusBadRequest, CodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}
