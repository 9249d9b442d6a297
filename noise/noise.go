package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is additive noise drawn from a multivariate normal distribution.
type Gaussian struct {
	// mean is the noise mean
	mean []float64
	// cov is the noise covariance
	cov *mat.SymDense
	// dist is the underlying normal distribution
	dist *distmv.Normal
	// src is the random number source
	src rand.Source
}

// NewGaussian creates new Gaussian noise with the given mean and covariance
// and returns it. If src is nil a time seeded source is used. It returns
// error if the distribution cannot be created from the covariance.
func NewGaussian(mean []float64, cov *mat.SymDense, src rand.Source) (*Gaussian, error) {
	if len(mean) == 0 || cov == nil || cov.SymmetricDim() != len(mean) {
		return nil, fmt.Errorf("invalid noise dimensions: %d mean, %v covariance", len(mean), cov)
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	mu := make([]float64, len(mean))
	copy(mu, mean)
	sigma := mat.NewSymDense(cov.SymmetricDim(), nil)
	sigma.CopySym(cov)

	dist, ok := distmv.NewNormal(mu, sigma, src)
	if !ok {
		return nil, fmt.Errorf("singular noise covariance")
	}

	return &Gaussian{mean: mu, cov: sigma, dist: dist, src: src}, nil
}

// Sample draws one noise vector.
func (g *Gaussian) Sample() mat.Vector {
	return mat.NewVecDense(len(g.mean), g.dist.Rand(nil))
}

// Cov returns a copy of the noise covariance.
func (g *Gaussian) Cov() mat.Symmetric {
	cov := mat.NewSymDense(g.cov.SymmetricDim(), nil)
	cov.CopySym(g.cov)
	return cov
}

// Reset recreates the underlying distribution.
func (g *Gaussian) Reset() error {
	dist, ok := distmv.NewNormal(g.mean, g.cov, g.src)
	if !ok {
		return fmt.Errorf("failed to reset noise distribution")
	}
	g.dist = dist
	return nil
}

// Zero is the absence of noise: every sample is the zero vector.
type Zero struct {
	// dim is the noise dimension
	dim int
}

// NewZero creates new zero noise of the given dimension and returns it.
// It returns error if dim is not positive.
func NewZero(dim int) (*Zero, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid noise dimension: %d", dim)
	}
	return &Zero{dim: dim}, nil
}

// Sample returns the zero vector.
func (z *Zero) Sample() mat.Vector {
	return mat.NewVecDense(z.dim, nil)
}

// Cov returns the zero covariance.
func (z *Zero) Cov() mat.Symmetric {
	return mat.NewSymDense(z.dim, nil)
}

// Reset is a no-op.
func (z *Zero) Reset() error {
	return nil
}
