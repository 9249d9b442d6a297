package localize

import (
	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/feature"
	"github.com/marco-hrlic/go-localize/geom"
)

// Filter is a recursive pose estimation filter.
type Filter interface {
	// Predict propagates the belief state under control u applied for dt seconds
	Predict(u mat.Vector, dt float64) (Estimate, error)
	// Update corrects the belief state using the observation z
	Update(z *feature.Observation) (Estimate, error)
	// Estimate returns the current pose estimate
	Estimate() (Estimate, error)
}

// Motion propagates robot poses to the next time step.
type Motion interface {
	// Propagate propagates a single pose x under control u applied for dt seconds
	Propagate(x, u mat.Vector, dt float64) (mat.Vector, error)
	// PropagateAll propagates every pose row of x under the matching control row of u
	PropagateAll(x, u *mat.Dense, dt float64) (*mat.Dense, error)
}

// Associator matches observed features against map features for every pose hypothesis.
type Associator interface {
	// Associate returns one innovation row per pose row of x together with the
	// joint measurement covariance of z
	Associate(x *mat.Dense, z *feature.Observation) (*mat.Dense, *mat.SymDense, error)
}

// Resampler redraws a particle population according to its weights.
type Resampler interface {
	// Resample returns the resampled poses and the weights carried over for them
	Resample(x *mat.Dense, w []float64) (*mat.Dense, []float64, error)
}

// Noise is additive system noise.
type Noise interface {
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Cov returns noise covariance matrix
	Cov() mat.Symmetric
	// Reset resets noise
	Reset() error
}

// InitCond is initial state condition of the filter.
type InitCond interface {
	// State returns initial state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is a filter pose estimate.
type Estimate interface {
	// Val returns the estimate as a (x, y, theta) vector
	Val() mat.Vector
	// Pose returns the estimate as a pose
	Pose() geom.Pose
}
