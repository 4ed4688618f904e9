// Package limit extracts credible limits and intervals from a posterior
// density sampled on a grid.
//
// The density is integrated with the trapezoidal rule from the lowest grid
// value upward and normalized by the total. Inside the interval that
// brackets a target probability the trapezoid density is linear, so its
// cumulative mass is quadratic and is inverted exactly; limits are accurate
// below the grid spacing.
//
// Upper and Lower return one-sided limits. MinWidthInterval and HPD return
// two-sided intervals. All functions are pure and safe for concurrent use.
package limit
