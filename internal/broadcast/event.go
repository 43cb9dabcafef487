package broadcast

import (
	"time"

	"github.com/roach88/liftoff/internal/meet"
	"github.com/roach88/liftoff/internal/ordering"
)

// EventType names a broadcast event.
type EventType string

const (
	CompetitionStarted EventType = "competition_started"
	CompetitionPaused  EventType = "competition_paused"
	CompetitionEnded   EventType = "competition_ended"
	LiftChanged        EventType = "lift_changed"
	AthleteUp          EventType = "athlete_up"
	AttemptOrderUpdate EventType = "attempt_order_update"
	AttemptResult      EventType = "attempt_result"
	TimerUpdate        EventType = "timer_update"
	LiftCompleted      EventType = "lift_completed"
	ProtestFiled       EventType = "protest_filed"
	ProtestResolved    EventType = "protest_resolved"
)

// EventTypes lists every known event type.
var EventTypes = []EventType{
	CompetitionStarted, CompetitionPaused, CompetitionEnded, LiftChanged,
	AthleteUp, AttemptOrderUpdate, AttemptResult, TimerUpdate,
	LiftCompleted, ProtestFiled, ProtestResolved,
}

// ParseEventType validates an event type name.
func ParseEventType(s string) (EventType, bool) {
	for _, t := range EventTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Event is one published occurrence.
type Event struct {
	Seq  int64     `json:"seq"`
	Type EventType `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

// Wire is the transport-agnostic shape sent to satellites.
type Wire struct {
	Type EventType `json:"type"`
	Seq  int64     `json:"seq"`
	Data any       `json:"data"`
}

// ToWire strips the event down to its wire shape.
func (e Event) ToWire() Wire {
	return Wire{Type: e.Type, Seq: e.Seq, Data: e.Data}
}

// Session is the payload of competition_started, competition_paused and
// competition_ended.
type Session struct {
	CompetitionID string    `json:"competition_id"`
	Lift          meet.Lift `json:"lift"`
}

// LiftChange is the payload of lift_changed.
type LiftChange struct {
	CompetitionID string    `json:"competition_id"`
	Lift          meet.Lift `json:"lift"`
	Previous      meet.Lift `json:"previous,omitempty"`
	QueueLength   int       `json:"queue_length"`
}

// Up is the payload of athlete_up.
type Up struct {
	Lift  meet.Lift      `json:"lift"`
	Index int            `json:"index"`
	Entry ordering.Entry `json:"entry"`
}

// Order is the payload of attempt_order_update.
type Order struct {
	Lift         meet.Lift        `json:"lift"`
	CurrentIndex int              `json:"current_index"`
	Entries      []ordering.Entry `json:"entries"`
}

// Judgment is the payload of attempt_result.
type Judgment struct {
	AttemptID       string      `json:"attempt_id"`
	AthleteID       string      `json:"athlete_id"`
	AthleteName     string      `json:"athlete_name"`
	Lift            meet.Lift   `json:"lift"`
	AttemptNumber   int         `json:"attempt_number"`
	WeightKg        float64     `json:"weight_kg"`
	Result          meet.Result `json:"result"`
	Votes           []meet.Vote `json:"votes,omitempty"`
	ProtestDeadline time.Time   `json:"protest_deadline"`
}

// Timer is the payload of timer_update.
type Timer struct {
	AthleteID        string    `json:"athlete_id"`
	RemainingSeconds int       `json:"remaining_seconds"`
	Deadline         time.Time `json:"deadline"`
}

// Completion is the payload of lift_completed.
type Completion struct {
	CompetitionID string    `json:"competition_id"`
	Lift          meet.Lift `json:"lift"`
}

// ProtestNotice is the payload of protest_filed and protest_resolved.
type ProtestNotice struct {
	Protest meet.Protest `json:"protest"`
}
