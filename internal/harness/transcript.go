package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/liftoff/internal/broadcast"
	"github.com/roach88/liftoff/internal/ordering"
)

// Describe renders an event payload as one stable line. Timestamps are
// omitted; the remaining countdown stands in for timer_update.
func Describe(e broadcast.Event) string {
	switch d := e.Data.(type) {
	case broadcast.Session:
		return string(d.Lift)
	case broadcast.LiftChange:
		return fmt.Sprintf("%s -> %s (%d queued)", d.Previous, d.Lift, d.QueueLength)
	case broadcast.Up:
		return fmt.Sprintf("%s %s/%d %skg @%d", d.Entry.AthleteID, d.Lift, d.Entry.AttemptNumber, kg(d.Entry.WeightKg), d.Index)
	case broadcast.Order:
		return fmt.Sprintf("%s @%d [%s]", d.Lift, d.CurrentIndex, entries(d.Entries))
	case broadcast.Judgment:
		return fmt.Sprintf("%s %s %s/%d %skg %s", d.AttemptID, d.AthleteID, d.Lift, d.AttemptNumber, kg(d.WeightKg), d.Result)
	case broadcast.Timer:
		return fmt.Sprintf("%s %ds", d.AthleteID, d.RemainingSeconds)
	case broadcast.Completion:
		return string(d.Lift)
	case broadcast.ProtestNotice:
		p := d.Protest
		if e.Type == broadcast.ProtestResolved {
			return fmt.Sprintf("%s %s", p.ID, p.Status)
		}
		return fmt.Sprintf("%s %s %s %s %s", p.ID, p.AthleteID, p.AttemptID, p.Type, p.Status)
	}
	return fmt.Sprintf("%v", e.Data)
}

func entries(es []ordering.Entry) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = fmt.Sprintf("%s/%d@%s", e.AthleteID, e.AttemptNumber, kg(e.WeightKg))
	}
	return strings.Join(parts, " ")
}

func kg(w float64) string {
	return strconv.FormatFloat(w, 'f', -1, 64)
}

// Transcript renders a result as text, one line per step followed by the
// events it published:
//
//	scenario: squat_round
//	[1] open
//	  1 athlete_up a2 squat/1 140kg @0
//	[2] advance -> INVALID_TRANSITION
func Transcript(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	for _, s := range r.Steps {
		if s.Code != "" {
			fmt.Fprintf(&b, "[%d] %s -> %s\n", s.Index, s.Command, s.Code)
		} else {
			fmt.Fprintf(&b, "[%d] %s\n", s.Index, s.Command)
		}
		for _, e := range s.Events {
			fmt.Fprintf(&b, "  %d %s %s\n", e.Seq, e.Type, e.Summary)
		}
	}
	fmt.Fprintf(&b, "final: %s %s", r.Final.State, r.Final.Lift)
	if r.Final.Current != nil {
		fmt.Fprintf(&b, " %s/%d@%s", r.Final.Current.AthleteID, r.Final.Current.AttemptNumber, kg(r.Final.Current.WeightKg))
	}
	b.WriteString("\n")
	return []byte(b.String())
}
