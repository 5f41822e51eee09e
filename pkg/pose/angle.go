package pose

import (
	"fmt"
	"math"
)

// AngleAt returns the interior angle at vertex, in degrees, formed by the rays
// vertex→a and vertex→b. The result is in [0, 180].
//
// The angle comes from the law of cosines on the triangle (a, vertex, b):
//
//	angle = acos((p² + q² − c²) / (2·p·q))
//
// with p = |vertex−b|, q = |a−vertex| and c = |a−b|. If vertex coincides with
// a or b the angle is undefined and ErrDegenerateGeometry is returned.
func AngleAt(a, vertex, b Point2D) (float64, error) {
	if !a.Finite() || !vertex.Finite() || !b.Finite() {
		return math.NaN(), fmt.Errorf("%w: non-finite coordinate", ErrDegenerateGeometry)
	}

	p := vertex.Distance(b)
	q := a.Distance(vertex)
	if p == 0 || q == 0 {
		return math.NaN(), fmt.Errorf("%w: vertex coincides with an endpoint", ErrDegenerateGeometry)
	}
	c := a.Distance(b)

	cos := (p*p + q*q - c*c) / (2 * p * q)
	// Rounding can push the ratio just past ±1 for collinear points.
	cos = clamp(cos, -1, 1)

	return Degrees(math.Acos(cos)), nil
}

// Degrees converts radians to degrees.
func Degrees(radians float64) float64 {
	return radians * 180.0 / math.Pi
}

// Radians converts degrees to radians.
func Radians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
