package particle

import (
	"gonum.org/v1/gonum/mat"

	localize "github.com/marco-hrlic/go-localize"
)

// Particle is Particle Filter
type Particle interface {
	// localize.Filter is pose estimation filter
	localize.Filter
	// Particles returns filter particles
	Particles() mat.Matrix
	// Weights returns particle weights
	Weights() []float64
}
