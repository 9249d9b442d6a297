package motion

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the angular rate threshold below which the unicycle
// integrates with the near straight approximation instead of the exact arc.
const DefaultEpsilon = 1e-3

// Unicycle is a planar unicycle motion model. Its state is the pose vector
// (x, y, theta) and its control is the vector (v, omega) of linear and
// angular velocity.
type Unicycle struct {
	// epsilon is the angular rate threshold
	epsilon float64
}

// NewUnicycle creates a unicycle model with the given angular rate threshold
// and returns it. A zero threshold selects DefaultEpsilon. It returns error
// if the threshold is negative.
func NewUnicycle(epsilon float64) (*Unicycle, error) {
	if epsilon < 0 {
		return nil, fmt.Errorf("invalid angular rate threshold: %v", epsilon)
	}
	if epsilon == 0 {
		epsilon = DefaultEpsilon
	}
	return &Unicycle{epsilon: epsilon}, nil
}

// Epsilon returns the angular rate threshold.
func (m *Unicycle) Epsilon() float64 {
	return m.epsilon
}

// step integrates one pose over dt. Headings accumulate without wrapping.
func (m *Unicycle) step(x, y, th, v, om, dt float64) (float64, float64, float64) {
	thNext := th + om*dt
	if math.Abs(om) < m.epsilon {
		x += v * dt * (math.Cos(th) + math.Cos(thNext)) / 2
		y += v * dt * (math.Sin(th) + math.Sin(thNext)) / 2
	} else {
		x += v / om * (math.Sin(thNext) - math.Sin(th))
		y -= v / om * (math.Cos(thNext) - math.Cos(th))
	}
	return x, y, thNext
}

// Propagate integrates the pose vector x under the control vector u over dt
// and returns the resulting pose vector.
func (m *Unicycle) Propagate(x, u mat.Vector, dt float64) (mat.Vector, error) {
	if x.Len() != 3 {
		return nil, fmt.Errorf("invalid state size: %d", x.Len())
	}
	if u.Len() != 2 {
		return nil, fmt.Errorf("invalid control size: %d", u.Len())
	}
	if dt < 0 {
		return nil, fmt.Errorf("invalid time step: %v", dt)
	}

	nx, ny, nth := m.step(x.AtVec(0), x.AtVec(1), x.AtVec(2), u.AtVec(0), u.AtVec(1), dt)
	return mat.NewVecDense(3, []float64{nx, ny, nth}), nil
}

// PropagateAll integrates every pose row of x under the matching control row
// of u over dt and returns the resulting pose matrix.
func (m *Unicycle) PropagateAll(x, u *mat.Dense, dt float64) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != 3 {
		return nil, fmt.Errorf("invalid pose matrix dimensions: [%d x %d]", rows, cols)
	}
	ur, uc := u.Dims()
	if ur != rows || uc != 2 {
		return nil, fmt.Errorf("invalid control matrix dimensions: [%d x %d]", ur, uc)
	}
	if dt < 0 {
		return nil, fmt.Errorf("invalid time step: %v", dt)
	}

	out := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		nx, ny, nth := m.step(x.At(i, 0), x.At(i, 1), x.At(i, 2), u.At(i, 0), u.At(i, 1), dt)
		out.SetRow(i, []float64{nx, ny, nth})
	}

	return out, nil
}
