package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/declare"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
	"github.com/roach88/liftoff/internal/protest"
)

// Session is the live state machine for one competition.
//
// CRITICAL: Session is not safe for concurrent use. All commands and
// queries run on a single thread of control, normally the Runner loop.
//
// Every mutating command either applies completely and emits its events,
// or returns an error and leaves the session untouched.
type Session struct {
	repo     meet.Repository
	declRepo declare.Repository
	protests *protest.Workflow
	bus      *broadcast.Bus
	pub      broadcast.Publisher
	seq      *Clock
	wall     WallClock
	logger   *slog.Logger

	attemptClock time.Duration

	competitionID string
	lift          meet.Lift
	index         int
	state         State
	queue         []ordering.Entry
	snap          meet.Snapshot
	decls         *declare.Store
	clock         countdown
}

// Option configures a Session.
type Option func(*Session)

// WithDeclarationRepository persists declarations at session boundaries.
func WithDeclarationRepository(r declare.Repository) Option {
	return func(s *Session) { s.declRepo = r }
}

// WithProtests enables protest windows and filing.
func WithProtests(w *protest.Workflow) Option {
	return func(s *Session) { s.protests = w }
}

// WithPublishers adds publishers that receive every event after the bus,
// typically a broadcast.Remote for satellites.
func WithPublishers(p ...broadcast.Publisher) Option {
	return func(s *Session) {
		s.pub = broadcast.Tee(append([]broadcast.Publisher{s.pub}, p...)...)
	}
}

// WithWallClock sets the wall clock.
func WithWallClock(c WallClock) Option {
	return func(s *Session) { s.wall = c }
}

// WithSequence sets the event sequence clock.
func WithSequence(c *Clock) Option {
	return func(s *Session) { s.seq = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithAttemptClock sets the attempt clock duration.
func WithAttemptClock(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.attemptClock = d
		}
	}
}

// New creates an idle session with no competition open.
func New(repo meet.Repository, bus *broadcast.Bus, opts ...Option) *Session {
	s := &Session{
		repo:         repo,
		bus:          bus,
		pub:          bus,
		seq:          NewClock(),
		wall:         SystemClock{},
		logger:       slog.Default(),
		attemptClock: DefaultAttemptClock,
		lift:         meet.LiftSquat,
		state:        StateIdle,
		queue:        []ordering.Entry{},
		decls:        declare.NewStore(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- queries ---

// CompetitionID returns the open competition, or "".
func (s *Session) CompetitionID() string { return s.competitionID }

// State returns the current phase.
func (s *Session) State() State { return s.state }

// Lift returns the current lift.
func (s *Session) Lift() meet.Lift { return s.lift }

// Index returns the current queue position.
func (s *Session) Index() int { return s.index }

// Queue returns a copy of the live attempt order.
func (s *Session) Queue() []ordering.Entry {
	return slices.Clone(s.queue)
}

// Current returns the entry at the current index.
func (s *Session) Current() (ordering.Entry, bool) {
	if s.index < 0 || s.index >= len(s.queue) {
		return ordering.Entry{}, false
	}
	return s.queue[s.index], true
}

// Declarations returns every active declaration.
func (s *Session) Declarations() []meet.Declaration {
	return s.decls.All()
}

// LastEvents returns up to n of the most recent events of type t,
// oldest first. An empty t matches every type.
func (s *Session) LastEvents(t broadcast.EventType, n int) []broadcast.Event {
	return s.bus.Recent(t, n)
}

// View is a point-in-time snapshot of the session for displays.
type View struct {
	CompetitionID  string           `json:"competition_id"`
	Lift           meet.Lift        `json:"lift"`
	State          State            `json:"state"`
	Index          int              `json:"index"`
	Current        *ordering.Entry  `json:"current,omitempty"`
	Queue          []ordering.Entry `json:"queue"`
	Timer          *broadcast.Timer `json:"timer,omitempty"`
	ProtestWindows []protest.Window `json:"protest_windows"`
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() View {
	now := s.wall.Now()
	v := View{
		CompetitionID:  s.competitionID,
		Lift:           s.lift,
		State:          s.state,
		Index:          s.index,
		Queue:          s.Queue(),
		ProtestWindows: []protest.Window{},
	}
	if e, ok := s.Current(); ok {
		v.Current = &e
	}
	if s.clock.running {
		t := s.timer(now)
		v.Timer = &t
	}
	if s.protests != nil {
		v.ProtestWindows = s.protests.Active(now)
	}
	return v
}

// --- commands ---

// Open makes competitionID the live competition.
//
// Switching competitions saves the previous competition's declarations,
// loads the new one's, resets the index and pauses. Reopening the current
// competition saves and keeps the in-memory declarations. The resulting
// state is Paused, or Idle when nobody owes an attempt on the first lift.
// An Active session announces competition_paused before the new queue.
// Open is rejected once the session has ended.
func (s *Session) Open(ctx context.Context, competitionID string) error {
	if competitionID == "" {
		return ErrNoCompetition
	}
	if s.state == StateEnded {
		return ErrEnded
	}

	if err := s.saveDeclarations(ctx); err != nil {
		return err
	}

	switching := s.competitionID != competitionID
	decls := s.decls
	if switching {
		decls = declare.NewStore()
		if s.declRepo != nil {
			if err := decls.Load(ctx, s.declRepo, competitionID); err != nil {
				return persistence("load declarations", err)
			}
		}
	}
	snap, err := meet.Load(ctx, s.repo, competitionID)
	if err != nil {
		return persistence("load competition", err)
	}

	if s.state == StateActive {
		s.logger.Info("competition paused", "competition_id", s.competitionID, "lift", s.lift)
		s.emit(broadcast.CompetitionPaused, broadcast.Session{CompetitionID: s.competitionID, Lift: s.lift})
	}
	if switching && s.protests != nil {
		s.protests.Reset()
	}
	s.competitionID = competitionID
	s.decls = decls
	s.snap = snap
	s.lift = meet.LiftSquat
	s.index = 0
	s.clock.stop()
	s.rebuild()
	s.state = s.restingState()

	s.logger.Info("competition opened",
		"competition_id", competitionID,
		"queue_length", len(s.queue),
		"declarations", decls.Len(),
	)

	s.announce(false)
	return nil
}

// Start runs the session from Idle or Paused. The queue must not be empty.
func (s *Session) Start(ctx context.Context) error {
	if err := s.check("start", StateIdle, StatePaused); err != nil {
		return err
	}
	snap, err := meet.Load(ctx, s.repo, s.competitionID)
	if err != nil {
		return persistence("load competition", err)
	}
	queue := s.orderFor(s.lift, snap)
	if len(queue) == 0 {
		return ErrEmptyQueue
	}

	s.snap = snap
	s.queue = queue
	if s.index >= len(s.queue) {
		s.index = 0
	}
	s.state = StateActive

	s.logger.Info("competition started", "competition_id", s.competitionID, "lift", s.lift)
	s.emit(broadcast.CompetitionStarted, broadcast.Session{CompetitionID: s.competitionID, Lift: s.lift})
	s.announce(true)
	return nil
}

// Pause freezes the queue and stops the attempt clock.
func (s *Session) Pause(ctx context.Context) error {
	if err := s.check("pause", StateActive); err != nil {
		return err
	}
	s.state = StatePaused
	s.clock.stop()

	s.logger.Info("competition paused", "competition_id", s.competitionID, "lift", s.lift)
	s.emit(broadcast.CompetitionPaused, broadcast.Session{CompetitionID: s.competitionID, Lift: s.lift})
	return nil
}

// Advance moves to the next queue entry without judging the current one.
// Moving past the last entry completes the lift.
func (s *Session) Advance(ctx context.Context) error {
	if err := s.check("advance", StateActive); err != nil {
		return err
	}
	s.index++
	if s.index >= len(s.queue) {
		s.completeLift()
		return nil
	}
	s.announce(true)
	return nil
}

// ChangeLift switches to another lift, resets the index and pauses.
func (s *Session) ChangeLift(ctx context.Context, lift meet.Lift) error {
	if _, err := meet.ParseLift(string(lift)); err != nil {
		return fmt.Errorf("change lift: %w", err)
	}
	if err := s.check("change lift", StateIdle, StateActive, StatePaused, StateLiftCompleted); err != nil {
		return err
	}
	snap, err := meet.Load(ctx, s.repo, s.competitionID)
	if err != nil {
		return persistence("load competition", err)
	}

	previous := s.lift
	s.snap = snap
	s.lift = lift
	s.index = 0
	s.clock.stop()
	s.rebuild()
	s.state = s.restingState()

	s.logger.Info("lift changed",
		"competition_id", s.competitionID,
		"lift", lift,
		"previous", previous,
		"queue_length", len(s.queue),
	)
	s.emit(broadcast.LiftChanged, broadcast.LiftChange{
		CompetitionID: s.competitionID,
		Lift:          lift,
		Previous:      previous,
		QueueLength:   len(s.queue),
	})
	s.announce(false)
	return nil
}

// End finishes the competition. Ended is terminal.
func (s *Session) End(ctx context.Context) error {
	if err := s.check("end", StateActive, StatePaused, StateLiftCompleted); err != nil {
		return err
	}
	if err := s.saveDeclarations(ctx); err != nil {
		return err
	}
	s.state = StateEnded
	s.clock.stop()

	s.logger.Info("competition ended", "competition_id", s.competitionID)
	s.emit(broadcast.CompetitionEnded, broadcast.Session{CompetitionID: s.competitionID, Lift: s.lift})
	return nil
}

// Close saves declarations for the open competition. The session stays
// usable; Close is meant for process shutdown.
func (s *Session) Close(ctx context.Context) error {
	if s.competitionID == "" {
		return nil
	}
	return s.saveDeclarations(ctx)
}

// JudgeInput records the referee decision for the athlete currently up.
//
// Votes, when present, decide the result by majority; otherwise Result
// must be success or failure. AthleteID, when set, must match the athlete
// up, so a stale operator screen cannot judge the wrong lifter.
type JudgeInput struct {
	AthleteID string      `json:"athlete_id,omitempty"`
	Result    meet.Result `json:"result,omitempty"`
	Votes     []meet.Vote `json:"votes,omitempty"`
}

// Judge persists the result of the current entry's attempt.
//
// Nothing changes locally until the repository confirms the write. On
// success the slot's declaration is cleared, a protest window opens,
// attempt_result is emitted and the queue is recomputed from the
// repository. The judged entry leaves the queue, so the entry now at the
// current index is the next athlete up. An exhausted queue completes the
// lift.
func (s *Session) Judge(ctx context.Context, in JudgeInput) (meet.Attempt, error) {
	if err := s.check("judge", StateActive, StatePaused); err != nil {
		return meet.Attempt{}, err
	}
	entry, ok := s.Current()
	if !ok {
		return meet.Attempt{}, ErrEmptyQueue
	}
	if in.AthleteID != "" && in.AthleteID != entry.AthleteID {
		return meet.Attempt{}, ordering.NewValidationError(ordering.ErrCodeNotInOrder,
			"athlete %s is not up; %s is", in.AthleteID, entry.AthleteName)
	}
	result, err := decide(in)
	if err != nil {
		return meet.Attempt{}, err
	}

	now := s.wall.Now()
	var stored meet.Attempt
	if pending, ok := s.pendingAttempt(entry.AthleteID, s.lift, entry.AttemptNumber); ok {
		stored, err = s.repo.UpdateAttempt(ctx, meet.AttemptUpdate{
			ID:       pending.ID,
			WeightKg: entry.WeightKg,
			Result:   result,
			Votes:    in.Votes,
			JudgedAt: &now,
		})
		if err != nil {
			return meet.Attempt{}, persistence("update attempt", err)
		}
	} else {
		stored, err = s.repo.CreateAttempt(ctx, meet.AttemptInput{
			CompetitionID: s.competitionID,
			AthleteID:     entry.AthleteID,
			Lift:          s.lift,
			Number:        entry.AttemptNumber,
			WeightKg:      entry.WeightKg,
			Result:        result,
			Votes:         in.Votes,
			JudgedAt:      &now,
		})
		if err != nil {
			return meet.Attempt{}, persistence("create attempt", err)
		}
	}

	// The write is authoritative from here on; a failed reload below must
	// not hide it, so apply it to the cached snapshot first.
	s.applyAttempt(stored)
	s.decls.Clear(declare.Key{AthleteID: entry.AthleteID, Lift: s.lift, AttemptNumber: entry.AttemptNumber})

	var deadline time.Time
	if s.protests != nil {
		deadline = s.protests.OpenWindow(stored, now).Deadline
	}

	s.logger.Info("attempt judged",
		"attempt_id", stored.ID,
		"athlete_id", stored.AthleteID,
		"lift", stored.Lift,
		"attempt", stored.Number,
		"weight_kg", stored.WeightKg,
		"result", stored.Result,
	)
	s.emit(broadcast.AttemptResult, broadcast.Judgment{
		AttemptID:       stored.ID,
		AthleteID:       stored.AthleteID,
		AthleteName:     entry.AthleteName,
		Lift:            stored.Lift,
		AttemptNumber:   stored.Number,
		WeightKg:        stored.WeightKg,
		Result:          stored.Result,
		Votes:           stored.Votes,
		ProtestDeadline: deadline,
	})

	if snap, err := meet.Load(ctx, s.repo, s.competitionID); err == nil {
		s.snap = snap
	} else {
		s.logger.Warn("reload after judgment failed; using cached records",
			"competition_id", s.competitionID,
			"error", err,
		)
	}
	s.rebuild()
	s.settle(true)
	return stored, nil
}

// SetDeclaration records the weight an athlete will attempt for a slot.
//
// The weight is validated against the previous attempt. While the lift is
// live, the athlete must be more than three slots from the bar.
func (s *Session) SetDeclaration(ctx context.Context, athleteID string, lift meet.Lift, attemptNumber int, weightKg float64) (meet.Declaration, error) {
	if s.competitionID == "" {
		return meet.Declaration{}, ErrNoCompetition
	}
	if s.state == StateEnded {
		return meet.Declaration{}, ErrEnded
	}
	if !lift.Valid() {
		return meet.Declaration{}, fmt.Errorf("set declaration: unknown lift %q", lift)
	}
	if attemptNumber < 1 || attemptNumber > meet.MaxAttempts {
		return meet.Declaration{}, ordering.NewValidationError(ordering.ErrCodeInvalidAttempt,
			"attempt number must be between 1 and %d, got %d", meet.MaxAttempts, attemptNumber)
	}
	if _, ok := s.snap.AthletesByID()[athleteID]; !ok {
		return meet.Declaration{}, ordering.NewValidationError(ordering.ErrCodeNotInOrder,
			"athlete %s is not registered in this competition", athleteID)
	}
	if a, ok := s.judgedAttempt(athleteID, lift, attemptNumber); ok {
		return meet.Declaration{}, ordering.NewValidationError(ordering.ErrCodeAlreadyJudged,
			"attempt %d on %s was already judged %s", a.Number, lift, a.Result)
	}

	var previous *float64
	if attemptNumber > 1 {
		if a, ok := s.judgedAttempt(athleteID, lift, attemptNumber-1); ok {
			w := a.WeightKg
			previous = &w
		}
	}
	if err := ordering.ValidateAttemptWeight(weightKg, previous, attemptNumber); err != nil {
		return meet.Declaration{}, err
	}
	if lift == s.lift && s.state.in(StateActive, StatePaused) {
		if err := ordering.CanChangeAttempt(athleteID, s.queue, s.index); err != nil {
			return meet.Declaration{}, err
		}
	}

	d := declare.New(athleteID, lift, attemptNumber, weightKg, s.wall.Now())
	s.decls.Set(d)

	s.logger.Info("declaration set",
		"athlete_id", athleteID,
		"lift", lift,
		"attempt", attemptNumber,
		"weight_kg", weightKg,
	)

	if lift == s.lift {
		before, _ := s.Current()
		s.rebuild()
		after, _ := s.Current()
		if after != before {
			s.announce(false)
		} else {
			s.emitOrder()
		}
	}
	return d, nil
}

// Recompute reloads records from the repository and re-derives the queue.
// Recomputing twice with the same records yields the same queue.
func (s *Session) Recompute(ctx context.Context) error {
	if s.competitionID == "" {
		return ErrNoCompetition
	}
	if s.state == StateEnded {
		return ErrEnded
	}
	snap, err := meet.Load(ctx, s.repo, s.competitionID)
	if err != nil {
		return persistence("load competition", err)
	}
	s.snap = snap
	s.rebuild()
	s.settle(false)
	return nil
}

// FileProtest files a protest against a judged attempt.
//
// A window is reconstructed from the attempt's judgment time when the
// session has none, for example after a restart.
func (s *Session) FileProtest(ctx context.Context, in protest.FileInput) (meet.Protest, error) {
	if s.protests == nil {
		return meet.Protest{}, ErrProtestsDisabled
	}
	if s.competitionID == "" {
		return meet.Protest{}, ErrNoCompetition
	}
	if in.CompetitionID == "" {
		in.CompetitionID = s.competitionID
	}
	if _, ok := s.protests.Window(in.AttemptID); !ok {
		for _, a := range s.snap.Attempts {
			if a.ID == in.AttemptID && a.JudgedAt != nil {
				s.protests.OpenWindow(a, *a.JudgedAt)
				break
			}
		}
	}

	p, err := s.protests.File(ctx, in)
	if err != nil {
		if protest.IsError(err) {
			return meet.Protest{}, err
		}
		return meet.Protest{}, persistence("file protest", err)
	}

	s.logger.Info("protest filed",
		"protest_id", p.ID,
		"attempt_id", p.AttemptID,
		"athlete_id", p.AthleteID,
		"type", p.Type,
	)
	s.emit(broadcast.ProtestFiled, broadcast.ProtestNotice{Protest: p})
	return p, nil
}

// ResolveProtest records a jury decision. Resolving a protest that is no
// longer pending returns it unchanged and emits nothing.
func (s *Session) ResolveProtest(ctx context.Context, id string, decision meet.ProtestStatus, notes string) (meet.Protest, error) {
	if s.protests == nil {
		return meet.Protest{}, ErrProtestsDisabled
	}
	p, changed, err := s.protests.Resolve(ctx, id, decision, notes)
	if err != nil {
		if protest.IsError(err) {
			return meet.Protest{}, err
		}
		return meet.Protest{}, persistence("resolve protest", err)
	}
	if !changed {
		s.logger.Debug("protest already resolved", "protest_id", id, "status", p.Status)
		return p, nil
	}

	s.logger.Info("protest resolved", "protest_id", p.ID, "status", p.Status)
	s.emit(broadcast.ProtestResolved, broadcast.ProtestNotice{Protest: p})
	return p, nil
}

// Tick advances the attempt clock to now and emits timer_update while it
// runs. The clock stops after emitting zero.
func (s *Session) Tick(now time.Time) {
	if s.state != StateActive || !s.clock.running {
		return
	}
	t := s.timer(now)
	s.emit(broadcast.TimerUpdate, t)
	if t.RemainingSeconds == 0 {
		s.logger.Info("attempt clock expired", "athlete_id", t.AthleteID)
		s.clock.stop()
	}
}

// --- internals ---

// check validates the preconditions shared by state-changing commands.
func (s *Session) check(cmd string, allowed ...State) error {
	if s.competitionID == "" {
		return ErrNoCompetition
	}
	if s.state == StateEnded {
		return ErrEnded
	}
	if !s.state.in(allowed...) {
		return &TransitionError{From: s.state, Command: cmd}
	}
	return nil
}

func (s *Session) orderFor(lift meet.Lift, snap meet.Snapshot) []ordering.Entry {
	requests := ordering.BuildRequests(lift, snap, s.decls)
	return ordering.CalculateAttemptOrder(requests, snap.Athletes)
}

// rebuild re-derives the queue from the cached snapshot and declarations.
// The whole list is replaced; an index past the end resets to 0.
func (s *Session) rebuild() {
	s.queue = s.orderFor(s.lift, s.snap)
	if s.index >= len(s.queue) {
		s.index = 0
	}
}

// restingState is the state implied by the queue when not running.
func (s *Session) restingState() State {
	if len(s.queue) == 0 {
		return StateIdle
	}
	return StatePaused
}

// settle reconciles the state with a recomputed queue and announces it.
func (s *Session) settle(restartClock bool) {
	switch s.state {
	case StateActive:
		if len(s.queue) == 0 {
			s.emitOrder()
			s.completeLift()
			return
		}
	case StateIdle, StatePaused:
		s.state = s.restingState()
		restartClock = false
	case StateLiftCompleted:
		s.emitOrder()
		return
	}
	s.announce(restartClock)
}

func (s *Session) completeLift() {
	s.state = StateLiftCompleted
	s.clock.stop()
	s.logger.Info("lift completed", "competition_id", s.competitionID, "lift", s.lift)
	s.emit(broadcast.LiftCompleted, broadcast.Completion{CompetitionID: s.competitionID, Lift: s.lift})
}

// announce emits athlete_up for the current entry followed by
// attempt_order_update. While Active the attempt clock starts for the
// athlete up when restartClock is set or a different athlete is up.
func (s *Session) announce(restartClock bool) {
	if e, ok := s.Current(); ok {
		if s.state == StateActive && (restartClock || !s.clock.running || s.clock.athleteID != e.AthleteID) {
			s.clock.start(e.AthleteID, s.wall.Now(), s.attemptClock)
		}
		s.logger.Info("athlete up",
			"athlete_id", e.AthleteID,
			"lift", s.lift,
			"attempt", e.AttemptNumber,
			"weight_kg", e.WeightKg,
			"index", s.index,
		)
		s.emit(broadcast.AthleteUp, broadcast.Up{Lift: s.lift, Index: s.index, Entry: e})
	}
	s.emitOrder()
}

func (s *Session) emitOrder() {
	s.emit(broadcast.AttemptOrderUpdate, broadcast.Order{
		Lift:         s.lift,
		CurrentIndex: s.index,
		Entries:      s.Queue(),
	})
}

func (s *Session) emit(t broadcast.EventType, data any) {
	s.pub.Publish(broadcast.Event{
		Seq:  s.seq.Next(),
		Type: t,
		At:   s.wall.Now(),
		Data: data,
	})
}

func (s *Session) timer(now time.Time) broadcast.Timer {
	return broadcast.Timer{
		AthleteID:        s.clock.athleteID,
		RemainingSeconds: s.clock.remaining(now),
		Deadline:         s.clock.deadline,
	}
}

func (s *Session) saveDeclarations(ctx context.Context) error {
	if s.declRepo == nil || s.competitionID == "" {
		return nil
	}
	if err := s.decls.Save(ctx, s.declRepo, s.competitionID); err != nil {
		return persistence("save declarations", err)
	}
	return nil
}

func (s *Session) pendingAttempt(athleteID string, lift meet.Lift, n int) (meet.Attempt, bool) {
	for _, a := range s.snap.Attempts {
		if a.AthleteID == athleteID && a.Lift == lift && a.Number == n && !a.Result.Judged() {
			return a, true
		}
	}
	return meet.Attempt{}, false
}

func (s *Session) judgedAttempt(athleteID string, lift meet.Lift, n int) (meet.Attempt, bool) {
	for _, a := range s.snap.Attempts {
		if a.AthleteID == athleteID && a.Lift == lift && a.Number == n && a.Result.Judged() {
			return a, true
		}
	}
	return meet.Attempt{}, false
}

// applyAttempt replaces or appends a stored attempt in the cached snapshot.
func (s *Session) applyAttempt(a meet.Attempt) {
	attempts := slices.Clone(s.snap.Attempts)
	for i := range attempts {
		if attempts[i].ID == a.ID {
			attempts[i] = a
			s.snap.Attempts = attempts
			return
		}
	}
	s.snap.Attempts = append(attempts, a)
}

func decide(in JudgeInput) (meet.Result, error) {
	if len(in.Votes) > 0 {
		r, err := meet.DecideFromVotes(in.Votes)
		if err != nil {
			return "", fmt.Errorf("judge: %w", err)
		}
		return r, nil
	}
	if !in.Result.Judged() {
		return "", fmt.Errorf("judge: result must be success or failure, got %q", in.Result)
	}
	return in.Result, nil
}
