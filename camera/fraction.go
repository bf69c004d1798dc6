package camera

import (
	"math"
	"strconv"
)

const (
	fractionTolerance = 1.0e-6
	// every step moves either the numerator or the denominator by one, so
	// values between 0 and a few seconds converge long before this
	maxFractionSteps = 1 << 23
)

// Fraction walks towards x from 1/1, bumping the numerator while the
// approximation is too small and the denominator otherwise, until it is
// within 1e-6 of x. This greedy walk is not a best rational approximation
// and must not be replaced by one: displayed values have to stay identical.
//
// ok is false when x is not a positive finite number or when maxSteps
// adjustments did not reach the tolerance.
func Fraction(x float64, maxSteps int) (num, den int, ok bool) {
	if !(x > 0) || math.IsInf(x, 1) {
		return 0, 0, false
	}
	num, den = 1, 1
	err := math.Abs(x - float64(num)/float64(den))
	for steps := 0; err > fractionTolerance; steps++ {
		if steps >= maxSteps {
			return num, den, false
		}
		if x > float64(num)/float64(den) {
			num++
		} else {
			den++
		}
		err = math.Abs(x - float64(num)/float64(den))
	}
	return num, den, true
}

// FormatAsFraction renders an exposure time in seconds as "<num>/<den>s",
// for example 0.004 as "1/250s". Zero, negative and non finite values render
// as the empty string. Values the greedy walk cannot settle within its step
// budget fall back to decimal seconds.
func FormatAsFraction(x float64) string {
	num, den, ok := Fraction(x, maxFractionSteps)
	if ok {
		return strconv.Itoa(num) + "/" + strconv.Itoa(den) + "s"
	}
	if !(x > 0) || math.IsInf(x, 1) {
		return ""
	}
	return FormatNumber(x) + "s"
}
