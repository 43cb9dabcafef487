package meet

import (
	"fmt"
	"time"
)

// Lift identifies one of the three powerlifting disciplines.
type Lift string

const (
	LiftSquat    Lift = "squat"
	LiftBench    Lift = "bench"
	LiftDeadlift Lift = "deadlift"
)

// Lifts lists the disciplines in competition order.
var Lifts = []Lift{LiftSquat, LiftBench, LiftDeadlift}

// ParseLift converts a string into a Lift.
func ParseLift(s string) (Lift, error) {
	switch Lift(s) {
	case LiftSquat, LiftBench, LiftDeadlift:
		return Lift(s), nil
	}
	return "", fmt.Errorf("unknown lift %q: must be one of squat, bench, deadlift", s)
}

// Valid reports whether l is a known lift.
func (l Lift) Valid() bool {
	_, err := ParseLift(string(l))
	return err == nil
}

// Result is the judged outcome of an attempt.
type Result string

const (
	ResultPending Result = "pending"
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// Judged reports whether the result is final.
func (r Result) Judged() bool {
	return r == ResultSuccess || r == ResultFailure
}

// Gender selects the coefficient tables used by the scoring formulas.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// DefaultLot is the sort key used for athletes without a lot number.
const DefaultLot = 999

// MaxAttempts is the number of attempts per athlete per lift.
const MaxAttempts = 3

// Competition identifies one meet.
type Competition struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Date string `json:"date,omitempty" yaml:"date,omitempty"`
}

// Athlete is a registered competitor.
// Immutable during a session except bodyweight and lot corrections.
type Athlete struct {
	ID            string `json:"id" yaml:"id"`
	CompetitionID string `json:"competition_id" yaml:"-"`
	FirstName     string `json:"first_name" yaml:"first_name"`
	LastName      string `json:"last_name" yaml:"last_name"`
	Gender        Gender `json:"gender" yaml:"gender"`
	WeightClass   string `json:"weight_class" yaml:"weight_class"`
	Lot           *int   `json:"lot,omitempty" yaml:"lot,omitempty"`
	Division      string `json:"division,omitempty" yaml:"division,omitempty"`
}

// LotOrDefault returns the lot number, or DefaultLot when unassigned.
func (a Athlete) LotOrDefault() int {
	if a.Lot == nil {
		return DefaultLot
	}
	return *a.Lot
}

// WeighIn holds the pre-session measurements for one athlete.
type WeighIn struct {
	AthleteID    string           `json:"athlete_id"`
	BodyweightKg float64          `json:"bodyweight_kg"`
	Openers      map[Lift]float64 `json:"openers,omitempty"`
	RackHeights  map[Lift]string  `json:"rack_heights,omitempty"`
}

// Opener returns the declared opening weight for a lift.
func (w WeighIn) Opener(l Lift) (float64, bool) {
	v, ok := w.Openers[l]
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// Vote is a single referee light.
type Vote string

const (
	VoteGood   Vote = "good"
	VoteNoLift Vote = "no_lift"
)

// DecideFromVotes returns the majority result of three referee votes.
// Two or more good lights is a success.
func DecideFromVotes(votes []Vote) (Result, error) {
	if len(votes) != 3 {
		return "", fmt.Errorf("expected 3 referee votes, got %d", len(votes))
	}
	good := 0
	for _, v := range votes {
		switch v {
		case VoteGood:
			good++
		case VoteNoLift:
		default:
			return "", fmt.Errorf("unknown vote %q", v)
		}
	}
	if good >= 2 {
		return ResultSuccess, nil
	}
	return ResultFailure, nil
}

// Attempt is one lift attempt by one athlete.
type Attempt struct {
	ID            string     `json:"id"`
	CompetitionID string     `json:"competition_id"`
	AthleteID     string     `json:"athlete_id"`
	Lift          Lift       `json:"lift"`
	Number        int        `json:"number"`
	WeightKg      float64    `json:"weight_kg"`
	Result        Result     `json:"result"`
	Votes         []Vote     `json:"votes,omitempty"`
	JudgedAt      *time.Time `json:"judged_at,omitempty"`
}

// AttemptInput creates a new attempt record.
type AttemptInput struct {
	CompetitionID string
	AthleteID     string
	Lift          Lift
	Number        int
	WeightKg      float64
	Result        Result
	Votes         []Vote
	JudgedAt      *time.Time
}

// AttemptUpdate records the judgment of an existing attempt.
type AttemptUpdate struct {
	ID       string
	WeightKg float64
	Result   Result
	Votes    []Vote
	JudgedAt *time.Time
}

// Declaration overrides the algorithmic weight for one not-yet-attempted slot.
type Declaration struct {
	AthleteID     string    `json:"athlete_id"`
	Lift          Lift      `json:"lift"`
	AttemptNumber int       `json:"attempt_number"`
	WeightKg      float64   `json:"weight_kg"`
	DeclaredAt    time.Time `json:"declared_at"`
}

// FlightStatus tracks a flight through the session.
type FlightStatus string

const (
	FlightPending   FlightStatus = "pending"
	FlightActive    FlightStatus = "active"
	FlightCompleted FlightStatus = "completed"
)

// Flight is a bounded subgroup of one category lifting together.
type Flight struct {
	ID            string       `json:"id"`
	CompetitionID string       `json:"competition_id"`
	Name          string       `json:"name"`
	Lift          Lift         `json:"lift"`
	AthleteIDs    []string     `json:"athlete_ids"`
	Status        FlightStatus `json:"status"`
}

// ProtestType enumerates what a protest may dispute.
type ProtestType string

const (
	ProtestRefereeDecision ProtestType = "referee_decision"
	ProtestEquipment       ProtestType = "equipment"
	ProtestProcedure       ProtestType = "procedure"
)

// Valid reports whether t is an accepted protest type.
func (t ProtestType) Valid() bool {
	switch t {
	case ProtestRefereeDecision, ProtestEquipment, ProtestProcedure:
		return true
	}
	return false
}

// ProtestStatus is pending until a jury decides.
type ProtestStatus string

const (
	ProtestPending  ProtestStatus = "pending"
	ProtestAccepted ProtestStatus = "accepted"
	ProtestRejected ProtestStatus = "rejected"
)

// Protest is a dispute filed against a judged attempt.
type Protest struct {
	ID            string        `json:"id"`
	CompetitionID string        `json:"competition_id"`
	AthleteID     string        `json:"athlete_id"`
	AttemptID     string        `json:"attempt_id"`
	Type          ProtestType   `json:"type"`
	Reason        string        `json:"reason"`
	FiledAt       time.Time     `json:"filed_at"`
	Deadline      time.Time     `json:"deadline"`
	Status        ProtestStatus `json:"status"`
	JuryNotes     string        `json:"jury_notes,omitempty"`
	ResolvedAt    *time.Time    `json:"resolved_at,omitempty"`
}
