package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/engine"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/protest"
	"github.com/roach88/liftoff/internal/store"
	"github.com/roach88/liftoff/internal/testutil"
)

const (
	cmdOpen      = "open"
	cmdStart     = "start"
	cmdPause     = "pause"
	cmdAdvance   = "advance"
	cmdEnd       = "end"
	cmdRecompute = "recompute"
	cmdLift      = "lift"
	cmdJudge     = "judge"
	cmdDeclare   = "declare"
	cmdProtest   = "protest"
	cmdResolve   = "resolve"
	cmdWait      = "wait"
	cmdTick      = "tick"
)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	session  *engine.Session
	clock    *testutil.FakeClock
	pending  []TraceEvent
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. Step
// failures and assertion failures are reported in the Result; the returned
// error is reserved for setup problems.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:", store.WithIDs(testutil.NewSequentialIDs("att")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.ImportRoster(ctx, scenario.Roster); err != nil {
		return nil, fmt.Errorf("failed to import roster: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		store:    st,
		clock:    testutil.NewFakeClock(testutil.Epoch),
	}

	bus := broadcast.NewBus()
	unsubscribe := bus.Subscribe(func(e broadcast.Event) {
		h.pending = append(h.pending, TraceEvent{Seq: e.Seq, Type: string(e.Type), Summary: Describe(e)})
	})
	defer unsubscribe()

	opts := []engine.Option{
		engine.WithWallClock(h.clock),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithDeclarationRepository(st),
		engine.WithProtests(protest.New(st,
			protest.WithClock(h.clock),
			protest.WithIDs(testutil.NewSequentialIDs("prt")),
		)),
	}
	if scenario.AttemptClockSeconds > 0 {
		opts = append(opts, engine.WithAttemptClock(time.Duration(scenario.AttemptClockSeconds)*time.Second))
	}
	h.session = engine.New(st, bus, opts...)

	result := NewResult()
	for i, step := range scenario.Steps {
		h.pending = nil
		err := h.execute(ctx, step)

		trace := StepTrace{Index: i + 1, Command: step.Command, Events: h.pending}
		if trace.Events == nil {
			trace.Events = []TraceEvent{}
		}
		if err != nil {
			trace.Code = codeOf(err)
		}
		result.Steps = append(result.Steps, trace)

		switch {
		case err != nil && step.ExpectError == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Command, err))
		case err == nil && step.ExpectError != "":
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got success", i, step.Command, step.ExpectError))
		case err != nil && trace.Code != step.ExpectError:
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s (%v)", i, step.Command, step.ExpectError, trace.Code, err))
		}
	}

	result.Final = h.final()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) execute(ctx context.Context, step Step) error {
	s := h.session
	switch step.Command {
	case cmdOpen:
		var args struct {
			CompetitionID string `yaml:"competition_id"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		if args.CompetitionID == "" {
			args.CompetitionID = h.scenario.Roster.Competition.ID
		}
		return s.Open(ctx, args.CompetitionID)
	case cmdStart:
		return s.Start(ctx)
	case cmdPause:
		return s.Pause(ctx)
	case cmdAdvance:
		return s.Advance(ctx)
	case cmdEnd:
		return s.End(ctx)
	case cmdRecompute:
		return s.Recompute(ctx)
	case cmdLift:
		var args struct {
			Lift meet.Lift `yaml:"lift"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		return s.ChangeLift(ctx, args.Lift)
	case cmdJudge:
		var args struct {
			AthleteID string      `yaml:"athlete_id"`
			Result    meet.Result `yaml:"result"`
			Votes     []meet.Vote `yaml:"votes"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		_, err := s.Judge(ctx, engine.JudgeInput{AthleteID: args.AthleteID, Result: args.Result, Votes: args.Votes})
		return err
	case cmdDeclare:
		var args struct {
			AthleteID     string    `yaml:"athlete_id"`
			Lift          meet.Lift `yaml:"lift"`
			AttemptNumber int       `yaml:"attempt_number"`
			WeightKg      float64   `yaml:"weight_kg"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		_, err := s.SetDeclaration(ctx, args.AthleteID, args.Lift, args.AttemptNumber, args.WeightKg)
		return err
	case cmdProtest:
		var args struct {
			AthleteID string           `yaml:"athlete_id"`
			AttemptID string           `yaml:"attempt_id"`
			Type      meet.ProtestType `yaml:"type"`
			Reason    string           `yaml:"reason"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		_, err := s.FileProtest(ctx, protest.FileInput{
			AthleteID: args.AthleteID,
			AttemptID: args.AttemptID,
			Type:      args.Type,
			Reason:    args.Reason,
		})
		return err
	case cmdResolve:
		var args struct {
			ProtestID string             `yaml:"protest_id"`
			Decision  meet.ProtestStatus `yaml:"decision"`
			Notes     string             `yaml:"notes"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		_, err := s.ResolveProtest(ctx, args.ProtestID, args.Decision, args.Notes)
		return err
	case cmdWait:
		var args struct {
			Seconds float64 `yaml:"seconds"`
		}
		if err := decodeArgs(step.Args, &args); err != nil {
			return err
		}
		if args.Seconds <= 0 {
			return fmt.Errorf("wait: seconds must be positive")
		}
		h.clock.Advance(time.Duration(args.Seconds * float64(time.Second)))
		return nil
	case cmdTick:
		s.Tick(h.clock.Now())
		return nil
	}
	return fmt.Errorf("unknown command %q", step.Command)
}

func (h *Harness) final() Final {
	f := Final{
		State: h.session.State(),
		Lift:  h.session.Lift(),
		Index: h.session.Index(),
		Queue: h.session.Queue(),
	}
	if e, ok := h.session.Current(); ok {
		f.Current = &e
	}
	return f
}

// decodeArgs converts a step's loosely typed args into v, rejecting
// unknown keys.
func decodeArgs(args map[string]any, v any) error {
	if len(args) == 0 {
		return nil
	}
	data, err := yaml.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode args: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("args: %w", err)
	}
	return nil
}

// codeOf names a step failure for expect_error matching and transcripts.
func codeOf(err error) string {
	if code := engine.CodeOf(err); code != "" {
		return code
	}
	return "ERROR"
}
