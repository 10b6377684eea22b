package utils

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// AngleWrap wraps an angle in degrees into the half open interval (-180, 180].
func AngleWrap(angle float64) float64 {
	angle = math.Mod(angle+180, 360)
	angle = math.Mod(angle-360, 360)
	return angle + 180
}

// ToleranceEquals reports whether a and b differ by no more than tolerance.
func ToleranceEquals(a, b, tolerance float64) bool {
	return scalar.EqualWithinAbs(a, b, tolerance)
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Min(math.Max(value, lo), hi)
}

// Interpolate linearly maps input from [minInput, maxInput] onto [minOutput, maxOutput].
// The input is clamped to its range first.
func Interpolate(input, minInput, maxInput, minOutput, maxOutput float64) float64 {
	t := (Clamp(input, minInput, maxInput) - minInput) / (maxInput - minInput)
	return minOutput + (maxOutput-minOutput)*t
}

// Sign returns -1, 0 or 1 according to the sign of x. Zero (of either sign) maps to 0.
func Sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}

// Square returns n*n.
func Square(n float64) float64 {
	return n * n
}
