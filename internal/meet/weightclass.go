package meet

import (
	"strconv"
	"strings"
)

// CompareWeightClass orders weight classes by their numeric limit, with
// open-ended "+" classes after the bounded class of the same limit.
// Classes that do not parse as numbers sort after all numeric classes,
// lexically among themselves.
func CompareWeightClass(a, b string) int {
	av, aplus, aok := parseWeightClass(a)
	bv, bplus, bok := parseWeightClass(b)
	switch {
	case aok && !bok:
		return -1
	case !aok && bok:
		return 1
	case !aok && !bok:
		return strings.Compare(a, b)
	}
	switch {
	case av < bv:
		return -1
	case av > bv:
		return 1
	case aplus == bplus:
		return 0
	case bplus:
		return -1
	}
	return 1
}

func parseWeightClass(s string) (limit float64, plus bool, ok bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "kg"))
	if strings.HasSuffix(s, "+") {
		plus = true
		s = strings.TrimSuffix(s, "+")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, false
	}
	return v, plus, true
}
