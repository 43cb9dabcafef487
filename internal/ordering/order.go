package ordering

import (
	"sort"

	"github.com/roach88/liftoff/internal/meet"
)

// Request is one athlete's next expected attempt on the current lift.
type Request struct {
	AthleteID     string
	AttemptNumber int
	WeightKg      float64
	RackHeight    string
}

// Entry is one position in the live queue.
type Entry struct {
	AthleteID     string  `json:"athlete_id"`
	AthleteName   string  `json:"athlete_name"`
	AttemptNumber int     `json:"attempt_number"`
	WeightKg      float64 `json:"weight_kg"`
	LotNumber     int     `json:"lot_number"`
	RackHeight    string  `json:"rack_height,omitempty"`
}

// CalculateAttemptOrder sorts requests into the live queue.
//
// Requests referencing an athlete not present in athletes are dropped.
// Athletes without a lot number sort with lot meet.DefaultLot.
func CalculateAttemptOrder(requests []Request, athletes []meet.Athlete) []Entry {
	byID := make(map[string]meet.Athlete, len(athletes))
	for _, a := range athletes {
		byID[a.ID] = a
	}

	entries := make([]Entry, 0, len(requests))
	for _, r := range requests {
		a, ok := byID[r.AthleteID]
		if !ok {
			continue
		}
		entries = append(entries, Entry{
			AthleteID:     r.AthleteID,
			AthleteName:   a.DisplayName(),
			AttemptNumber: r.AttemptNumber,
			WeightKg:      r.WeightKg,
			LotNumber:     a.LotOrDefault(),
			RackHeight:    r.RackHeight,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return Less(entries[i], entries[j])
	})
	return entries
}

// Less reports whether a lifts before b.
func Less(a, b Entry) bool {
	if a.AttemptNumber != b.AttemptNumber {
		return a.AttemptNumber < b.AttemptNumber
	}
	if a.WeightKg != b.WeightKg {
		return a.WeightKg < b.WeightKg
	}
	return a.LotNumber < b.LotNumber
}

// IndexOf returns the queue position of an athlete, or -1.
func IndexOf(order []Entry, athleteID string) int {
	for i, e := range order {
		if e.AthleteID == athleteID {
			return i
		}
	}
	return -1
}
