package flights

import (
	"cmp"
	"slices"

	"github.com/roach88/liftoff/internal/meet"
)

// Defaults follow the IPF flight-size convention.
const (
	DefaultMaxSize = 14
	DefaultMinSize = 3
)

// Options bounds flight sizes.
type Options struct {
	MaxSize int
	MinSize int
}

// DefaultOptions returns the IPF bounds.
func DefaultOptions() Options {
	return Options{MaxSize: DefaultMaxSize, MinSize: DefaultMinSize}
}

func (o Options) normalized() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	return o
}

type groupKey struct {
	gender meet.Gender
	class  string
}

// Balance builds the flights for a competition.
//
// Output order is deterministic: lifts in competition order, then groups
// by gender and weight class, then chunks in lot order. Flight names are
// assigned per chunk ("A", "B", ...) and shared across the three lifts.
// Returned flights have no ID; the repository assigns one on create.
func Balance(competitionID string, athletes []meet.Athlete, weighIns []meet.WeighIn, opts Options) []meet.Flight {
	opts = opts.normalized()

	weighed := make(map[string]bool, len(weighIns))
	for _, w := range weighIns {
		weighed[w.AthleteID] = true
	}

	groups := make(map[groupKey][]meet.Athlete)
	var keys []groupKey
	for _, a := range athletes {
		if !weighed[a.ID] {
			continue
		}
		k := groupKey{gender: a.Gender, class: a.WeightClass}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], a)
	}

	slices.SortFunc(keys, func(a, b groupKey) int {
		if c := cmp.Compare(a.gender, b.gender); c != 0 {
			return c
		}
		return meet.CompareWeightClass(a.class, b.class)
	})

	var chunks [][]string
	for _, k := range keys {
		members := groups[k]
		slices.SortStableFunc(members, func(a, b meet.Athlete) int {
			if c := cmp.Compare(a.LotOrDefault(), b.LotOrDefault()); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		for _, part := range split(len(members), opts.MaxSize) {
			ids := make([]string, 0, part.size)
			for _, a := range members[part.start : part.start+part.size] {
				ids = append(ids, a.ID)
			}
			chunks = append(chunks, ids)
		}
	}

	flights := make([]meet.Flight, 0, len(chunks)*len(meet.Lifts))
	for _, lift := range meet.Lifts {
		for i, ids := range chunks {
			flights = append(flights, meet.Flight{
				CompetitionID: competitionID,
				Name:          Name(i),
				Lift:          lift,
				AthleteIDs:    slices.Clone(ids),
				Status:        meet.FlightPending,
			})
		}
	}
	return flights
}

type span struct{ start, size int }

// split divides n items into ceil(n/limit) chunks whose sizes differ by at
// most one. Larger chunks come first.
func split(n, limit int) []span {
	if n == 0 {
		return nil
	}
	k := (n + limit - 1) / limit
	base, extra := n/k, n%k
	out := make([]span, 0, k)
	start := 0
	for i := 0; i < k; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, span{start: start, size: size})
		start += size
	}
	return out
}

// Name returns the flight name for a zero-based chunk index:
// A..Z, then AA, AB, ...
func Name(i int) string {
	var b []byte
	for i >= 0 {
		b = append([]byte{byte('A' + i%26)}, b...)
		i = i/26 - 1
	}
	return string(b)
}
