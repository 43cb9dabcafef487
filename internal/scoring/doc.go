// Package scoring implements the ranking engine: best-lift extraction,
// totals, the bodyweight-normalized IPF-GL, DOTS and Wilks formulas, and
// category and absolute rankings.
//
// Every function is pure. Rankings are stable: ties keep the order in which
// lines were supplied, with no secondary key.
package scoring
