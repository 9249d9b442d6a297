package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Pose is a planar rigid transform: a position and a heading in radians.
// The heading is not required to be pre-wrapped.
type Pose struct {
	X     float64
	Y     float64
	Theta float64
}

// Vec returns the pose as a (x, y, theta) vector.
func (p Pose) Vec() mat.Vector {
	return mat.NewVecDense(3, []float64{p.X, p.Y, p.Theta})
}

// PoseFromVec creates a pose from a (x, y, theta) vector and returns it.
// It returns error if v is not a 3 vector.
func PoseFromVec(v mat.Vector) (Pose, error) {
	if v == nil || v.Len() != 3 {
		return Pose{}, fmt.Errorf("invalid pose vector")
	}
	return Pose{X: v.AtVec(0), Y: v.AtVec(1), Theta: v.AtVec(2)}, nil
}

// Compose places the transform t, expressed in p's frame, in the frame p
// itself is expressed in. Composing a robot pose with a fixed sensor
// extrinsic yields the sensor frame in the world frame. The heading is the
// plain sum of both headings and is not wrapped.
func (p Pose) Compose(t Pose) Pose {
	sin, cos := math.Sincos(p.Theta)
	return Pose{
		X:     p.X + cos*t.X - sin*t.Y,
		Y:     p.Y + sin*t.X + cos*t.Y,
		Theta: p.Theta + t.Theta,
	}
}

// WrapAngle wraps a into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}

// AngleDiff returns the signed shortest angular difference between a and b.
// Both angles are reduced into [0, 2pi) before subtraction and the result
// lies in (-pi, pi]. Away from the pi boundary AngleDiff(a, b) == -AngleDiff(b, a).
func AngleDiff(a, b float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	b = math.Mod(b, 2*math.Pi)
	if b < 0 {
		b += 2 * math.Pi
	}
	d := a - b
	switch {
	case d > math.Pi:
		d -= 2 * math.Pi
	case d <= -math.Pi:
		d += 2 * math.Pi
	}
	return d
}
