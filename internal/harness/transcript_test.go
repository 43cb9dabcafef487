package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
)

func TestDescribe(t *testing.T) {
	entries := []ordering.Entry{
		{AthleteID: "a2", AttemptNumber: 1, WeightKg: 140},
		{AthleteID: "a1", AttemptNumber: 1, WeightKg: 152.5},
	}
	prt := meet.Protest{ID: "prt-1", AthleteID: "a1", AttemptID: "att-2", Type: meet.ProtestEquipment, Status: meet.ProtestAccepted}

	tests := []struct {
		name  string
		event broadcast.Event
		want  string
	}{
		{"session", broadcast.Event{Type: broadcast.CompetitionStarted, Data: broadcast.Session{Lift: meet.LiftBench}}, "bench"},
		{"lift change", broadcast.Event{Type: broadcast.LiftChanged, Data: broadcast.LiftChange{Previous: meet.LiftSquat, Lift: meet.LiftBench, QueueLength: 4}}, "squat -> bench (4 queued)"},
		{"up", broadcast.Event{Type: broadcast.AthleteUp, Data: broadcast.Up{Lift: meet.LiftSquat, Index: 1, Entry: entries[1]}}, "a1 squat/1 152.5kg @1"},
		{"order", broadcast.Event{Type: broadcast.AttemptOrderUpdate, Data: broadcast.Order{Lift: meet.LiftSquat, Entries: entries}}, "squat @0 [a2/1@140 a1/1@152.5]"},
		{"result", broadcast.Event{Type: broadcast.AttemptResult, Data: broadcast.Judgment{AttemptID: "att-1", AthleteID: "a2", Lift: meet.LiftSquat, AttemptNumber: 1, WeightKg: 140, Result: meet.ResultSuccess}}, "att-1 a2 squat/1 140kg success"},
		{"timer", broadcast.Event{Type: broadcast.TimerUpdate, Data: broadcast.Timer{AthleteID: "a1", RemainingSeconds: 12, Deadline: time.Unix(0, 0)}}, "a1 12s"},
		{"completed", broadcast.Event{Type: broadcast.LiftCompleted, Data: broadcast.Completion{Lift: meet.LiftDeadlift}}, "deadlift"},
		{"filed", broadcast.Event{Type: broadcast.ProtestFiled, Data: broadcast.ProtestNotice{Protest: prt}}, "prt-1 a1 att-2 equipment accepted"},
		{"resolved", broadcast.Event{Type: broadcast.ProtestResolved, Data: broadcast.ProtestNotice{Protest: prt}}, "prt-1 accepted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.event))
		})
	}
}

func TestTranscript(t *testing.T) {
	r := NewResult()
	r.Steps = []StepTrace{
		{Index: 1, Command: "open", Events: []TraceEvent{{Seq: 1, Type: "athlete_up", Summary: "a1 squat/1 40kg @0"}}},
		{Index: 2, Command: "advance", Code: "INVALID_TRANSITION", Events: []TraceEvent{}},
	}
	r.Final = Final{State: "paused", Lift: meet.LiftSquat, Current: &ordering.Entry{AthleteID: "a1", AttemptNumber: 1, WeightKg: 40}}

	want := "scenario: demo\n" +
		"[1] open\n" +
		"  1 athlete_up a1 squat/1 40kg @0\n" +
		"[2] advance -> INVALID_TRANSITION\n" +
		"final: paused squat a1/1@40\n"
	assert.Equal(t, want, string(Transcript("demo", r)))
}
