package domain

import "math"

// PositionEpsilon is the floating tolerance applied to distance comparisons.
// A completion radius of zero therefore still matches positions within
// PositionEpsilon of the target, which keeps boundary checks from flapping.
const PositionEpsilon = 1e-4

// Vec3 is a position in world space.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// DistanceTo returns the Euclidean distance between two positions.
func (v Vec3) DistanceTo(other Vec3) float64 {
	dx := v.X - other.X
	dy := v.Y - other.Y
	dz := v.Z - other.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
