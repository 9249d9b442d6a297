package estimate

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/geom"
)

// Base is a basic pose estimate.
type Base struct {
	// val is the estimated pose vector
	val *mat.VecDense
}

// NewBase creates a pose estimate from the given vector and returns it.
// It returns error if the vector is not a pose vector.
func NewBase(v mat.Vector) (*Base, error) {
	if v == nil || v.Len() != 3 {
		return nil, fmt.Errorf("invalid pose vector size: %d", vecLen(v))
	}
	val := mat.NewVecDense(3, nil)
	val.CloneFromVec(v)
	return &Base{val: val}, nil
}

// NewBasePose creates a pose estimate from the given pose and returns it.
func NewBasePose(p geom.Pose) *Base {
	val := mat.NewVecDense(3, []float64{p.X, p.Y, p.Theta})
	return &Base{val: val}
}

// Val returns a copy of the estimated pose vector.
func (b *Base) Val() mat.Vector {
	val := mat.NewVecDense(3, nil)
	val.CloneFromVec(b.val)
	return val
}

// Pose returns the estimated pose.
func (b *Base) Pose() geom.Pose {
	return geom.Pose{X: b.val.AtVec(0), Y: b.val.AtVec(1), Theta: b.val.AtVec(2)}
}

func vecLen(v mat.Vector) int {
	if v == nil {
		return 0
	}
	return v.Len()
}
