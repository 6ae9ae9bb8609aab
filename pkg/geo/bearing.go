package geo

import "math"

// BearingTo returns the initial bearing in degrees [0, 360) from point one
// to point two, measured clockwise from north.
func BearingTo(latOne, lonOne, latTwo, lonTwo float64) float64 {
	phi1 := degreeToRadians(latOne)
	phi2 := degreeToRadians(latTwo)
	deltaLambda := degreeToRadians(lonTwo - lonOne)

	y := math.Sin(deltaLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(deltaLambda)
	theta := math.Atan2(y, x)

	return math.Mod(theta*(180.0/math.Pi)+360.0, 360.0)
}

// ReverseBearing flips a bearing by 180 degrees.
func ReverseBearing(bearing float64) float64 {
	return math.Mod(bearing+180.0, 360.0)
}

// AngularDeviation is the absolute difference of two bearings folded into
// [0, 180].
func AngularDeviation(a, b float64) float64 {
	d := math.Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// AngleBetween returns the turn angle at an intersection, measured
// counter-clockwise from the reversed in-bearing to the out-bearing: 180
// is straight, <180 turns right, >180 turns left, 0 is the u-turn.
func AngleBetween(inBearing, outBearing float64) float64 {
	angle := inBearing + 180.0 - outBearing
	for angle < 0 {
		angle += 360.0
	}
	for angle >= 360 {
		angle -= 360.0
	}
	return angle
}

// BearingInRange reports whether bearing lies within wanted +- range.
func BearingInRange(bearing, wanted, rang float64) bool {
	return AngularDeviation(bearing, wanted) <= rang
}

// BearingsAreReversed reports whether two bearings point in roughly
// opposite directions (within 35 degrees of 180 apart).
func BearingsAreReversed(first, second float64) bool {
	return AngularDeviation(ReverseBearing(first), second) < 35.0
}
