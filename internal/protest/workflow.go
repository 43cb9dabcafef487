// Package protest runs the time-boxed dispute lifecycle layered on top of
// judged attempts.
//
// Judging an attempt opens a window that closes a fixed duration after the
// judgment. Filing is accepted strictly before the deadline. A filed
// protest stays pending until a jury accepts or rejects it; resolution has
// no deadline.
package protest

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/liftoff/internal/ids"
	"github.com/roach88/liftoff/internal/meet"
)

// Defaults for the protest window.
const (
	DefaultWindow    = 60 * time.Second
	DefaultMinReason = 10
)

// Clock supplies wall time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Repository persists protests.
type Repository interface {
	CreateProtest(ctx context.Context, p meet.Protest) (meet.Protest, error)
	// GetProtest returns ErrNotFound for unknown IDs.
	GetProtest(ctx context.Context, id string) (meet.Protest, error)
	UpdateProtest(ctx context.Context, p meet.Protest) (meet.Protest, error)
	ListProtests(ctx context.Context, competitionID string) ([]meet.Protest, error)
}

// Window is the filing period for one judged attempt.
type Window struct {
	CompetitionID string    `json:"competition_id"`
	AttemptID     string    `json:"attempt_id"`
	AthleteID     string    `json:"athlete_id"`
	JudgedAt      time.Time `json:"judged_at"`
	Deadline      time.Time `json:"deadline"`
}

// Remaining returns the time left at now, never negative.
func (w Window) Remaining(now time.Time) time.Duration {
	if d := w.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Open reports whether filing is still accepted at now.
func (w Window) Open(now time.Time) bool {
	return now.Before(w.Deadline)
}

// FileInput is a protest submission.
type FileInput struct {
	CompetitionID string           `json:"competition_id"`
	AthleteID     string           `json:"athlete_id"`
	AttemptID     string           `json:"attempt_id"`
	Type          meet.ProtestType `json:"type"`
	Reason        string           `json:"reason"`
}

// Workflow tracks open windows and routes filings and resolutions to the
// repository.
//
// Thread-safety: Workflow is not safe for concurrent use. The engine owns
// it from its single-writer loop.
type Workflow struct {
	repo      Repository
	clock     Clock
	ids       ids.Generator
	window    time.Duration
	minReason int
	windows   map[string]Window
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock sets the wall clock.
func WithClock(c Clock) Option {
	return func(w *Workflow) { w.clock = c }
}

// WithIDs sets the protest ID generator.
func WithIDs(g ids.Generator) Option {
	return func(w *Workflow) { w.ids = g }
}

// WithWindow sets the filing window length.
func WithWindow(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.window = d
		}
	}
}

// WithMinReason sets the minimum reason length in characters.
func WithMinReason(n int) Option {
	return func(w *Workflow) {
		if n > 0 {
			w.minReason = n
		}
	}
}

// New creates a Workflow backed by repo.
func New(repo Repository, opts ...Option) *Workflow {
	w := &Workflow{
		repo:      repo,
		clock:     systemClock{},
		ids:       ids.UUIDv7{},
		window:    DefaultWindow,
		minReason: DefaultMinReason,
		windows:   make(map[string]Window),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WindowLength returns the configured filing window.
func (w *Workflow) WindowLength() time.Duration {
	return w.window
}

// OpenWindow starts the filing period for a judged attempt.
// Reopening a window for the same attempt replaces it.
func (w *Workflow) OpenWindow(a meet.Attempt, judgedAt time.Time) Window {
	win := Window{
		CompetitionID: a.CompetitionID,
		AttemptID:     a.ID,
		AthleteID:     a.AthleteID,
		JudgedAt:      judgedAt,
		Deadline:      judgedAt.Add(w.window),
	}
	w.windows[a.ID] = win
	return win
}

// Window returns the window for an attempt.
func (w *Workflow) Window(attemptID string) (Window, bool) {
	win, ok := w.windows[attemptID]
	return win, ok
}

// Remaining returns the filing time left for an attempt at now.
// It is zero when the window has closed or was never opened.
func (w *Workflow) Remaining(attemptID string, now time.Time) time.Duration {
	win, ok := w.windows[attemptID]
	if !ok {
		return 0
	}
	return win.Remaining(now)
}

// Active returns the windows still open at now, earliest deadline first.
func (w *Workflow) Active(now time.Time) []Window {
	out := []Window{}
	for _, win := range w.windows {
		if win.Open(now) {
			out = append(out, win)
		}
	}
	slices.SortFunc(out, func(a, b Window) int {
		if c := a.Deadline.Compare(b.Deadline); c != 0 {
			return c
		}
		return strings.Compare(a.AttemptID, b.AttemptID)
	})
	return out
}

// Reset forgets every window. Called when the session switches competition.
func (w *Workflow) Reset() {
	clear(w.windows)
}

// File validates and persists a pending protest.
//
// A filing at or after the deadline is rejected with CodeWindowClosed.
// AthleteID and CompetitionID default to the window's values when empty.
func (w *Workflow) File(ctx context.Context, in FileInput) (meet.Protest, error) {
	if !in.Type.Valid() {
		return meet.Protest{}, newError(CodeInvalidType,
			"protest type %q must be one of referee_decision, equipment, procedure", in.Type)
	}
	reason := strings.TrimSpace(in.Reason)
	if utf8.RuneCountInString(reason) < w.minReason {
		return meet.Protest{}, newError(CodeReasonTooShort,
			"reason must be at least %d characters", w.minReason)
	}

	win, ok := w.windows[in.AttemptID]
	if !ok {
		return meet.Protest{}, newError(CodeNoWindow,
			"no protest window is open for attempt %s", in.AttemptID)
	}
	if in.AthleteID == "" {
		in.AthleteID = win.AthleteID
	}
	if in.AthleteID != win.AthleteID {
		return meet.Protest{}, newError(CodeAthleteMismatch,
			"attempt %s belongs to a different athlete", in.AttemptID)
	}
	if in.CompetitionID == "" {
		in.CompetitionID = win.CompetitionID
	}

	now := w.clock.Now()
	if !win.Open(now) {
		return meet.Protest{}, newError(CodeWindowClosed,
			"protest window for attempt %s closed at %s", in.AttemptID, win.Deadline.UTC().Format(time.RFC3339))
	}

	p := meet.Protest{
		ID:            w.ids.Generate(),
		CompetitionID: in.CompetitionID,
		AthleteID:     in.AthleteID,
		AttemptID:     in.AttemptID,
		Type:          in.Type,
		Reason:        reason,
		FiledAt:       now,
		Deadline:      win.Deadline,
		Status:        meet.ProtestPending,
	}
	stored, err := w.repo.CreateProtest(ctx, p)
	if err != nil {
		return meet.Protest{}, fmt.Errorf("create protest: %w", err)
	}
	return stored, nil
}

// Resolve records the jury decision on a protest.
//
// Resolving a protest that is no longer pending changes nothing and
// returns the stored protest with changed=false. Pending protests remain
// resolvable after their deadline.
func (w *Workflow) Resolve(ctx context.Context, id string, decision meet.ProtestStatus, notes string) (p meet.Protest, changed bool, err error) {
	if decision != meet.ProtestAccepted && decision != meet.ProtestRejected {
		return meet.Protest{}, false, newError(CodeInvalidDecision,
			"decision %q must be accepted or rejected", decision)
	}

	p, err = w.repo.GetProtest(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return meet.Protest{}, false, newError(CodeNotFound, "protest %s not found", id)
	}
	if err != nil {
		return meet.Protest{}, false, fmt.Errorf("get protest: %w", err)
	}
	if p.Status != meet.ProtestPending {
		return p, false, nil
	}

	now := w.clock.Now()
	p.Status = decision
	p.JuryNotes = strings.TrimSpace(notes)
	p.ResolvedAt = &now

	stored, err := w.repo.UpdateProtest(ctx, p)
	if err != nil {
		return meet.Protest{}, false, fmt.Errorf("update protest: %w", err)
	}
	return stored, true, nil
}

// Pending lists unresolved protests of a competition.
func (w *Workflow) Pending(ctx context.Context, competitionID string) ([]meet.Protest, error) {
	all, err := w.repo.ListProtests(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list protests: %w", err)
	}
	out := []meet.Protest{}
	for _, p := range all {
		if p.Status == meet.ProtestPending {
			out = append(out, p)
		}
	}
	return out, nil
}
