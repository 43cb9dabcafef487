package flights

import (
	"context"
	"fmt"

	"github.com/roach88/liftoff/internal/meet"
)

// Severity distinguishes hard violations from merge suggestions.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue describes one flight that falls outside the size bounds.
type Issue struct {
	Severity Severity  `json:"severity"`
	Flight   string    `json:"flight"`
	Lift     meet.Lift `json:"lift"`
	Size     int       `json:"size"`
	Message  string    `json:"message"`
}

// Report is the outcome of Validate.
// Valid is false only when an oversize flight exists; undersize flights
// appear in Warnings but leave the report valid.
type Report struct {
	Valid    bool    `json:"valid"`
	Warnings []Issue `json:"warnings"`
}

// Validate checks every flight against the size bounds.
func Validate(flights []meet.Flight, opts Options) Report {
	opts = opts.normalized()
	r := Report{Valid: true, Warnings: []Issue{}}
	for _, f := range flights {
		n := len(f.AthleteIDs)
		switch {
		case n > opts.MaxSize:
			r.Valid = false
			r.Warnings = append(r.Warnings, Issue{
				Severity: SeverityError,
				Flight:   f.Name,
				Lift:     f.Lift,
				Size:     n,
				Message:  fmt.Sprintf("flight %s (%s) has %d athletes, maximum is %d", f.Name, f.Lift, n, opts.MaxSize),
			})
		case n < opts.MinSize:
			r.Warnings = append(r.Warnings, Issue{
				Severity: SeverityWarning,
				Flight:   f.Name,
				Lift:     f.Lift,
				Size:     n,
				Message:  fmt.Sprintf("flight %s (%s) has %d athletes, consider merging (minimum %d)", f.Name, f.Lift, n, opts.MinSize),
			})
		}
	}
	return r
}

// Regenerate replaces every stored flight of a competition with a freshly
// balanced set. The returned flights carry repository-assigned IDs.
//
// A failure after the delete leaves the competition with a partial set;
// callers rerun Regenerate to converge.
func Regenerate(ctx context.Context, repo meet.FlightRepository, competitionID string, snap meet.Snapshot, opts Options) ([]meet.Flight, Report, error) {
	balanced := Balance(competitionID, snap.Athletes, snap.WeighIns, opts)
	report := Validate(balanced, opts)

	if err := repo.DeleteFlightsByCompetition(ctx, competitionID); err != nil {
		return nil, report, fmt.Errorf("delete flights: %w", err)
	}

	created := make([]meet.Flight, 0, len(balanced))
	for _, f := range balanced {
		stored, err := repo.CreateFlight(ctx, f)
		if err != nil {
			return created, report, fmt.Errorf("create flight %s/%s: %w", f.Name, f.Lift, err)
		}
		created = append(created, stored)
	}
	return created, report, nil
}
