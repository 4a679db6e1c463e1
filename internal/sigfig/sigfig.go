// Package sigfig rounds numbers to a fixed count of significant digits.
package sigfig

import (
	"math"
	"strconv"
)

// Digits is the precision every reported number is rounded to.
const Digits = 4

// Round rounds v to n significant digits. Zero, NaN and infinities are
// returned unchanged.
func Round(v float64, n int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'e', n-1, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// Format rounds v to n significant digits and prints it without an
// exponent or trailing zeros.
func Format(v float64, n int) string {
	return strconv.FormatFloat(Round(v, n), 'f', -1, 64)
}
