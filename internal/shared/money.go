package shared

import "math"

// AmountTolerance absorbs float rounding noise when comparing monetary
// totals. It is a fixed absolute epsilon regardless of magnitude.
const AmountTolerance = 0.01

// AmountsEqual reports whether two monetary amounts match within tolerance.
func AmountsEqual(a, b float64) bool {
	return math.Abs(a-b) <= AmountTolerance
}

// AmountDiff returns the absolute difference between two monetary amounts.
func AmountDiff(a, b float64) float64 {
	return math.Abs(a - b)
}
