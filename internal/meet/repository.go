package meet

import "context"

// Repository is the persistence collaborator for live session data.
//
// Each call is one request/response round trip and is treated as
// atomic-or-failed. Implementations must return records in a stable order.
type Repository interface {
	ListAthletes(ctx context.Context, competitionID string) ([]Athlete, error)
	ListWeighIns(ctx context.Context, competitionID string) ([]WeighIn, error)
	ListAttempts(ctx context.Context, competitionID string) ([]Attempt, error)
	CreateAttempt(ctx context.Context, in AttemptInput) (Attempt, error)
	UpdateAttempt(ctx context.Context, in AttemptUpdate) (Attempt, error)
}

// FlightRepository persists generated flights.
// Flights are replaced wholesale on recalculation.
type FlightRepository interface {
	ListFlights(ctx context.Context, competitionID string) ([]Flight, error)
	CreateFlight(ctx context.Context, f Flight) (Flight, error)
	DeleteFlightsByCompetition(ctx context.Context, competitionID string) error
}

// Snapshot is one consistent read of everything the ordering and scoring
// engines need for a competition.
type Snapshot struct {
	Athletes []Athlete
	WeighIns []WeighIn
	Attempts []Attempt
}

// Load reads a Snapshot through the repository.
func Load(ctx context.Context, repo Repository, competitionID string) (Snapshot, error) {
	athletes, err := repo.ListAthletes(ctx, competitionID)
	if err != nil {
		return Snapshot{}, err
	}
	weighIns, err := repo.ListWeighIns(ctx, competitionID)
	if err != nil {
		return Snapshot{}, err
	}
	attempts, err := repo.ListAttempts(ctx, competitionID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Athletes: athletes, WeighIns: weighIns, Attempts: attempts}, nil
}

// WeighInsByAthlete indexes weigh-ins by athlete ID.
func (s Snapshot) WeighInsByAthlete() map[string]WeighIn {
	out := make(map[string]WeighIn, len(s.WeighIns))
	for _, w := range s.WeighIns {
		out[w.AthleteID] = w
	}
	return out
}

// AthletesByID indexes athletes by ID.
func (s Snapshot) AthletesByID() map[string]Athlete {
	out := make(map[string]Athlete, len(s.Athletes))
	for _, a := range s.Athletes {
		out[a.ID] = a
	}
	return out
}
