package scoring

import (
	"sort"

	"github.com/roach88/liftoff/internal/meet"
)

// Line is one athlete's scored competition result.
type Line struct {
	AthleteID    string      `json:"athlete_id"`
	Name         string      `json:"name"`
	Gender       meet.Gender `json:"gender"`
	WeightClass  string      `json:"weight_class"`
	Division     string      `json:"division,omitempty"`
	BodyweightKg float64     `json:"bodyweight_kg"`
	BestSquat    float64     `json:"best_squat"`
	BestBench    float64     `json:"best_bench"`
	BestDeadlift float64     `json:"best_deadlift"`
	Total        float64     `json:"total"`
	IPFGL        float64     `json:"ipf_gl"`
	DOTS         float64     `json:"dots"`
	Wilks        float64     `json:"wilks"`
}

// Ranked is a Line with its placing. Rank 0 means unranked.
type Ranked struct {
	Line
	Rank int `json:"rank"`
}

// Category is the ranked result table for one (gender, weight class).
type Category struct {
	Gender      meet.Gender `json:"gender"`
	WeightClass string      `json:"weight_class"`
	Entries     []Ranked    `json:"entries"`
}

// BestLift returns the heaviest successful attempt of a lift for an
// athlete, or 0 when none succeeded.
func BestLift(attempts []meet.Attempt, athleteID string, lift meet.Lift) float64 {
	best := 0.0
	for _, a := range attempts {
		if a.AthleteID != athleteID || a.Lift != lift || a.Result != meet.ResultSuccess {
			continue
		}
		if a.WeightKg > best {
			best = a.WeightKg
		}
	}
	return best
}

// Total sums the three best lifts. A missing lift voids the total.
func Total(squat, bench, deadlift float64) float64 {
	if squat <= 0 || bench <= 0 || deadlift <= 0 {
		return 0
	}
	return squat + bench + deadlift
}

// Summarize scores every athlete in the snapshot, in roster order.
// Athletes without a weigh-in are scored with bodyweight 0, so their
// coefficient points are 0.
func Summarize(snap meet.Snapshot) []Line {
	weighIns := snap.WeighInsByAthlete()
	lines := make([]Line, 0, len(snap.Athletes))
	for _, a := range snap.Athletes {
		bw := weighIns[a.ID].BodyweightKg
		l := Line{
			AthleteID:    a.ID,
			Name:         a.DisplayName(),
			Gender:       a.Gender,
			WeightClass:  a.WeightClass,
			Division:     a.Division,
			BodyweightKg: bw,
			BestSquat:    BestLift(snap.Attempts, a.ID, meet.LiftSquat),
			BestBench:    BestLift(snap.Attempts, a.ID, meet.LiftBench),
			BestDeadlift: BestLift(snap.Attempts, a.ID, meet.LiftDeadlift),
		}
		l.Total = Total(l.BestSquat, l.BestBench, l.BestDeadlift)
		l.IPFGL = IPFGLPoints(l.Total, bw, a.Gender)
		l.DOTS = DOTS(l.Total, bw, a.Gender)
		l.Wilks = Wilks(l.Total, bw, a.Gender)
		lines = append(lines, l)
	}
	return lines
}

type categoryKey struct {
	gender meet.Gender
	class  string
}

// CategoryRanking groups lines by (gender, weight class) and ranks each
// group by total, descending. Athletes with a zero total are listed after
// the ranked athletes of their category with Rank 0.
//
// Categories are ordered by gender, then by weight class limit.
func CategoryRanking(lines []Line) []Category {
	groups := make(map[categoryKey][]Line)
	var keys []categoryKey
	for _, l := range lines {
		k := categoryKey{l.Gender, l.WeightClass}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], l)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].gender != keys[j].gender {
			return keys[i].gender < keys[j].gender
		}
		return meet.CompareWeightClass(keys[i].class, keys[j].class) < 0
	})

	out := make([]Category, 0, len(keys))
	for _, k := range keys {
		out = append(out, Category{
			Gender:      k.gender,
			WeightClass: k.class,
			Entries:     rankByTotal(groups[k]),
		})
	}
	return out
}

func rankByTotal(lines []Line) []Ranked {
	var ranked, unranked []Line
	for _, l := range lines {
		if l.Total > 0 {
			ranked = append(ranked, l)
		} else {
			unranked = append(unranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total > ranked[j].Total
	})

	out := make([]Ranked, 0, len(lines))
	for i, l := range ranked {
		out = append(out, Ranked{Line: l, Rank: i + 1})
	}
	for _, l := range unranked {
		out = append(out, Ranked{Line: l})
	}
	return out
}

// AbsoluteRanking ranks every athlete with a positive total by IPF GL
// points, descending, across all categories.
func AbsoluteRanking(lines []Line) []Ranked {
	var eligible []Line
	for _, l := range lines {
		if l.Total > 0 {
			eligible = append(eligible, l)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].IPFGL > eligible[j].IPFGL
	})

	out := make([]Ranked, len(eligible))
	for i, l := range eligible {
		out[i] = Ranked{Line: l, Rank: i + 1}
	}
	return out
}
