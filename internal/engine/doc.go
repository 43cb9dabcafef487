// Package engine implements the live session state machine.
//
// ARCHITECTURE:
//
// Single Thread of Control:
// A Session owns the current competition, lift, queue position and run
// state. It is not safe for concurrent use; the Runner serializes every
// command and the 1-second attempt clock tick on one goroutine. There is
// no locking inside Session because nothing mutates it concurrently.
//
// Command Flow:
//  1. An operator command arrives (HTTP handler, CLI, harness step)
//  2. Runner.Do() enqueues it and waits
//  3. The Run loop executes it against the Session
//  4. Repository writes complete before any local state changes
//  5. The queue is recomputed from the authoritative records
//  6. Events are published in a fixed order
//
// States:
//
//	Idle ──start──▶ Active ◀──start── Paused
//	                  │ ──pause──────────▶ │
//	                  ▼ queue exhausted
//	            LiftCompleted ──change lift──▶ Paused | Idle
//	Active | Paused | LiftCompleted ──end──▶ Ended
//
// CRITICAL PATTERNS:
//
// Event Ordering:
// Each transition emits its state event first, then athlete_up, then
// attempt_order_update, so satellites learn who is up before what comes
// next. Events carry a strictly increasing seq from Clock.
//
// No Optimistic Updates:
// A failed repository call returns a PersistenceError and leaves queue and
// index untouched, so the operator may retry the same command.
//
// Deadline Countdown:
// The attempt clock stores its wall deadline. Each tick recomputes the
// remaining time, so delayed ticks never accumulate drift.
package engine
