package harness

import (
	"fmt"
	"strconv"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %d %s %s\n", event.Seq, event.Type, event.Summary)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	trace := result.Trace()
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEventOrder:
			err = assertEventOrder(trace, a)
		case AssertEventCount:
			err = assertEventCount(trace, a)
		case AssertCurrent:
			err = assertCurrent(result.Final, a)
		case AssertState:
			err = assertState(result.Final, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertEventOrder checks that the listed types occur as a subsequence of
// the trace. Intervening events are allowed.
func assertEventOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, e := range trace {
		if next < len(a.Events) && e.Type == a.Events[next] {
			next++
		}
	}
	if next == len(a.Events) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Events),
		Actual:   fmt.Sprintf("no %s after %v", a.Events[next], a.Events[:next]),
		Trace:    trace,
	}
}

// assertEventCount checks if the event type appears exactly count times.
func assertEventCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, e := range trace {
		if e.Type == a.Event {
			count++
		}
	}
	if count == *a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%s published %d times", a.Event, *a.Count),
		Actual:   fmt.Sprintf("published %d times", count),
		Trace:    trace,
	}
}

func assertCurrent(f Final, a Assertion) error {
	if f.Current == nil {
		return &AssertionError{
			Type:     AssertCurrent,
			Expected: "athlete " + a.AthleteID + " up",
			Actual:   "queue is empty",
		}
	}
	c := f.Current
	var mismatches []string
	if c.AthleteID != a.AthleteID {
		mismatches = append(mismatches, "athlete "+c.AthleteID)
	}
	if a.AttemptNumber != 0 && c.AttemptNumber != a.AttemptNumber {
		mismatches = append(mismatches, fmt.Sprintf("attempt %d", c.AttemptNumber))
	}
	if a.WeightKg != nil && c.WeightKg != *a.WeightKg {
		mismatches = append(mismatches, kg(c.WeightKg)+"kg")
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertCurrent,
		Expected: describeExpectedCurrent(a),
		Actual:   strings.Join(mismatches, ", "),
	}
}

func describeExpectedCurrent(a Assertion) string {
	parts := []string{"athlete " + a.AthleteID}
	if a.AttemptNumber != 0 {
		parts = append(parts, "attempt "+strconv.Itoa(a.AttemptNumber))
	}
	if a.WeightKg != nil {
		parts = append(parts, kg(*a.WeightKg)+"kg")
	}
	return strings.Join(parts, ", ")
}

func assertState(f Final, a Assertion) error {
	var mismatches []string
	if a.State != "" && string(f.State) != a.State {
		mismatches = append(mismatches, fmt.Sprintf("state %s, want %s", f.State, a.State))
	}
	if a.Lift != "" && string(f.Lift) != a.Lift {
		mismatches = append(mismatches, fmt.Sprintf("lift %s, want %s", f.Lift, a.Lift))
	}
	if a.QueueLength != nil && len(f.Queue) != *a.QueueLength {
		mismatches = append(mismatches, fmt.Sprintf("queue length %d, want %d", len(f.Queue), *a.QueueLength))
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: "final session matches",
		Actual:   strings.Join(mismatches, "; "),
	}
}
