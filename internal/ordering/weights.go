package ordering

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/liftoff/internal/meet"
)

// DefaultOpenerKg is used when a weigh-in carries no opener for the lift.
const DefaultOpenerKg = 40.0

// MinOpenerKg is the lightest legal first attempt.
const MinOpenerKg = 20.0

// IncrementKg is the minimum increase after a good lift, and the
// automatic progression applied when nothing was declared.
var IncrementKg = decimal.NewFromFloat(2.5)

// Declarations looks up the active declared weight for a slot.
// Implemented by declare.Store.
type Declarations interface {
	Lookup(athleteID string, lift meet.Lift, attemptNumber int) (float64, bool)
}

// ResolveWeight picks the expected weight for an athlete's next attempt.
//
// Priority:
//  1. An active declaration for the slot.
//  2. The weight of a pending attempt record already created for the slot.
//  3. For attempt 1, the weigh-in opener (DefaultOpenerKg if absent).
//  4. After a good lift, the previous weight plus IncrementKg.
//  5. Otherwise the previous weight unchanged.
func ResolveWeight(
	lift meet.Lift,
	athleteID string,
	attemptNumber int,
	weighIn meet.WeighIn,
	previous *meet.Attempt,
	pending *meet.Attempt,
	decls Declarations,
) float64 {
	if decls != nil {
		if w, ok := decls.Lookup(athleteID, lift, attemptNumber); ok {
			return w
		}
	}
	if pending != nil && pending.WeightKg > 0 {
		return pending.WeightKg
	}
	if attemptNumber == 1 || previous == nil {
		if w, ok := weighIn.Opener(lift); ok {
			return w
		}
		return DefaultOpenerKg
	}
	if previous.Result == meet.ResultSuccess {
		next, _ := decimal.NewFromFloat(previous.WeightKg).Add(IncrementKg).Float64()
		return next
	}
	return previous.WeightKg
}

// BuildRequests derives one request per athlete still owing an attempt on
// the lift. Athletes without a weigh-in, and athletes with all three
// attempts judged, are skipped.
func BuildRequests(lift meet.Lift, snap meet.Snapshot, decls Declarations) []Request {
	weighIns := snap.WeighInsByAthlete()

	type slots struct {
		judged  map[int]*meet.Attempt
		pending map[int]*meet.Attempt
		last    int
	}
	byAthlete := make(map[string]*slots)
	for i := range snap.Attempts {
		a := &snap.Attempts[i]
		if a.Lift != lift {
			continue
		}
		s, ok := byAthlete[a.AthleteID]
		if !ok {
			s = &slots{judged: map[int]*meet.Attempt{}, pending: map[int]*meet.Attempt{}}
			byAthlete[a.AthleteID] = s
		}
		if a.Result.Judged() {
			s.judged[a.Number] = a
			if a.Number > s.last {
				s.last = a.Number
			}
		} else {
			s.pending[a.Number] = a
		}
	}

	var requests []Request
	for _, athlete := range snap.Athletes {
		w, ok := weighIns[athlete.ID]
		if !ok {
			continue
		}
		next := 1
		var previous, pending *meet.Attempt
		if s, ok := byAthlete[athlete.ID]; ok {
			next = s.last + 1
			previous = s.judged[s.last]
			pending = s.pending[next]
		}
		if next > meet.MaxAttempts {
			continue
		}
		requests = append(requests, Request{
			AthleteID:     athlete.ID,
			AttemptNumber: next,
			WeightKg:      ResolveWeight(lift, athlete.ID, next, w, previous, pending, decls),
			RackHeight:    w.RackHeights[lift],
		})
	}
	return requests
}
