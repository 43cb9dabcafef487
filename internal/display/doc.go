// Package display is the HTTP surface of a live session.
//
// Satellites (scoreboards, warm-up room screens, the platform clock)
// connect to GET /events and receive a Server-Sent-Events stream. A new
// connection first gets the latest athlete_up and attempt_order_update so
// it can render immediately, then every event as it is published. Slow
// readers lose events rather than stall the session.
//
// Operator commands are POSTs. Each one is queued on the engine Runner, so
// HTTP handlers never touch session state directly and commands from
// several operator screens are applied one at a time.
//
// Error responses carry a machine code:
//
//	422  validation rejections (weight rules, protest rules)
//	409  commands illegal in the current session state
//	503  persistence failures; the command may be retried unchanged
//	400  malformed requests
package display
