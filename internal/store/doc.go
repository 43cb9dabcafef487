// Package store provides SQLite-backed storage for competitions and live
// session data.
//
// Store implements every persistence collaborator of the live engine:
//   - meet.Repository: athletes, weigh-ins, attempts
//   - meet.FlightRepository: generated flights, replaced wholesale
//   - declare.Repository: the declaration table, saved at session boundaries
//   - protest.Repository: filed protests and jury decisions
//   - broadcast.Transport: an append-only outbox of broadcast events
//
// # Critical Patterns
//
// Deterministic Query Results
//   - Every list query has an ORDER BY on a stable key
//   - Empty results are empty slices, never nil
//
// Atomic Writes
//   - Each repository call is one statement or one transaction
//   - A failed call applies nothing
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Times are stored as RFC 3339 TEXT in UTC with nanosecond precision.
package store
