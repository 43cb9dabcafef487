// Package ordering implements the attempt ordering engine.
//
// Given one in-flight request per athlete still owing an attempt on the
// current lift, CalculateAttemptOrder produces the live queue sorted by
// (attempt number, weight, lot number). This is IPF round-robin order:
// every first attempt resolves before any second attempt, lighter bars go
// first within a round, and the lot number breaks exact ties.
//
// The queue is derived, never mutated in place. Callers replace the whole
// list atomically on every recomputation, and identical inputs always yield
// identical output.
package ordering
