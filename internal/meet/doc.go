// Package meet defines the competition data model shared by every engine
// component: athletes, weigh-ins, attempts, declarations, flights and
// protests, plus the narrow collaborator interfaces through which the
// engine reaches persistent storage.
//
// # Ownership
//
// Athletes, weigh-ins and attempts are owned by the persistence
// collaborator. The engine never patches them locally; after every write it
// re-reads the authoritative records and re-derives dependent state.
//
// # Attempt numbering
//
// Attempt numbers are strictly 1..3 per (athlete, lift). A record's result
// is mutated exactly once, from pending to success or failure.
package meet
