package scoring

import (
	"math"

	"github.com/roach88/liftoff/internal/meet"
)

// IPF GL coefficients for classic (unequipped) powerlifting.
var ipfGL = map[meet.Gender][3]float64{
	meet.GenderMale:   {1199.72839, 1025.18162, 0.00921},
	meet.GenderFemale: {610.32796, 1045.59282, 0.03048},
}

// DOTS polynomial coefficients, constant term first.
var dots = map[meet.Gender][5]float64{
	meet.GenderMale:   {-307.75076, 24.0900756, -0.1918759221, 0.0007391293, -0.000001093},
	meet.GenderFemale: {-57.96288, 13.6175032, -0.1126655495, 0.0005158568, -0.0000010706},
}

// Bodyweight ranges the DOTS polynomial is defined over.
var dotsRange = map[meet.Gender][2]float64{
	meet.GenderMale:   {40, 210},
	meet.GenderFemale: {40, 150},
}

// Wilks polynomial coefficients, constant term first.
var wilks = map[meet.Gender][6]float64{
	meet.GenderMale:   {-216.0475144, 16.2606339, -0.002388645, -0.00113732, 7.01863e-06, -1.291e-08},
	meet.GenderFemale: {594.31747775582, -27.23842536447, 0.82112226871, -0.00930733913, 4.731582e-05, -9.054e-08},
}

var wilksRange = map[meet.Gender][2]float64{
	meet.GenderMale:   {40, 201.9},
	meet.GenderFemale: {26.51, 154.53},
}

// IPFGLPoints returns IPF Good Lift points for a total.
// Returns 0 when total or bodyweight is not positive, or gender is unknown.
func IPFGLPoints(total, bodyweight float64, gender meet.Gender) float64 {
	if total <= 0 || bodyweight <= 0 {
		return 0
	}
	c, ok := ipfGL[gender]
	if !ok {
		return 0
	}
	denom := c[0] - c[1]*math.Exp(-c[2]*bodyweight)
	if denom <= 0 {
		return 0
	}
	return total * 100 / denom
}

// DOTS returns DOTS points for a total.
func DOTS(total, bodyweight float64, gender meet.Gender) float64 {
	if total <= 0 || bodyweight <= 0 {
		return 0
	}
	c, ok := dots[gender]
	if !ok {
		return 0
	}
	x := clamp(bodyweight, dotsRange[gender])
	denom := polynomial(c[:], x)
	if denom <= 0 {
		return 0
	}
	return total * 500 / denom
}

// Wilks returns Wilks points for a total.
func Wilks(total, bodyweight float64, gender meet.Gender) float64 {
	if total <= 0 || bodyweight <= 0 {
		return 0
	}
	c, ok := wilks[gender]
	if !ok {
		return 0
	}
	x := clamp(bodyweight, wilksRange[gender])
	denom := polynomial(c[:], x)
	if denom <= 0 {
		return 0
	}
	return total * 500 / denom
}

// polynomial evaluates sum(c[i] * x^i) using Horner's scheme.
func polynomial(c []float64, x float64) float64 {
	v := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		v = v*x + c[i]
	}
	return v
}

func clamp(x float64, r [2]float64) float64 {
	return math.Min(math.Max(x, r[0]), r[1])
}
