// Package harness runs scripted competition scenarios against a real
// session and checks the events it publishes.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: squat_round
//	description: "Two athletes, one round of squats"
//	roster:
//	  competition: {id: comp-1, name: Club Meet}
//	  athletes:
//	    - {id: a1, first_name: Al, last_name: Able, gender: M, weight_class: "93",
//	       lot: 2, bodyweight_kg: 92, openers: {squat: 150}}
//	steps:
//	  - command: open
//	  - command: start
//	  - command: judge
//	    args: {result: success}
//	  - command: advance
//	    expect_error: INVALID_TRANSITION
//	assertions:
//	  - type: event_order
//	    events: [competition_started, attempt_result]
//	  - type: current
//	    athlete_id: a1
//
// # Commands
//
//   - open, start, pause, advance, end, recompute: session commands;
//     open takes an optional competition_id (default: the roster's)
//   - lift {lift}: change lift
//   - judge {athlete_id, result, votes}
//   - declare {athlete_id, lift, attempt_number, weight_kg}
//   - protest {athlete_id, attempt_id, type, reason}
//   - resolve {protest_id, decision, notes}
//   - wait {seconds}: advance the fake wall clock
//   - tick: run one attempt clock tick at the current fake time
//
// A step whose command fails must name the expected code in expect_error;
// any other failure marks the scenario as failed.
//
// # Assertion Types
//
//   - event_order: the listed event types appear in this relative order
//   - event_count: an event type was published exactly count times
//   - current: the athlete up (and optionally attempt and weight)
//   - state: final session state, lift and queue length
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory SQLite store, a fake wall clock starting
// at testutil.Epoch, and sequential IDs (att-1, att-2 for attempts; prt-1
// for protests), so transcripts are byte-for-byte reproducible and can be
// compared with golden files.
package harness
