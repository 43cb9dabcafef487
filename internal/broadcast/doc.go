// Package broadcast fans out live session events to display surfaces.
//
// The engine depends only on the Publisher interface. Two implementations
// exist:
//
//   - Bus delivers synchronously to in-process subscribers and retains the
//     most recent events (100 by default) for introspection.
//   - Remote delivers asynchronously and best-effort to an out-of-process
//     Transport. Failures are logged and dropped; nothing is retried.
//
// Tee combines them so the engine publishes once.
//
// # Late joiners
//
// A satellite that connects mid-session does not need history. It rebuilds
// its view from Bus.Snapshot, the latest athlete_up and
// attempt_order_update events.
//
// # Ordering
//
// Events for one transition are published in a fixed sequence: the state
// event, then athlete_up, then attempt_order_update. Seq is assigned by the
// engine's logical clock and is strictly increasing.
package broadcast
