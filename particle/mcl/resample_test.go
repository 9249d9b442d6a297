package mcl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	localize "github.com/marco-hrlic/go-localize"
)

var (
	_ localize.Resampler = (*Systematic)(nil)
	_ localize.Resampler = (*Multinomial)(nil)
)

// zeroSource pins the resampling offset to zero.
type zeroSource struct{}

func (zeroSource) Uint64() uint64 { return 0 }
func (zeroSource) Seed(uint64)    {}

func testParticles() *mat.Dense {
	return mat.NewDense(5, 3, []float64{
		1, 1, 0.1,
		2, 2, 0.2,
		3, 3, 0.3,
		4, 4, 0.4,
		5, 5, 0.5,
	})
}

func TestSystematicSingleSurvivor(t *testing.T) {
	t.Parallel()

	x := testParticles()
	w := []float64{0, 0, 1, 0, 0}

	s := NewSystematic(zeroSource{})
	out, outW, err := s.Resample(x, w)
	require.NoError(t, err)

	// every pointer lands in the only weighted segment
	for m := 0; m < 5; m++ {
		assert.Equal(t, 3.0, out.At(m, 0))
		assert.Equal(t, 3.0, out.At(m, 1))
		assert.Equal(t, 0.3, out.At(m, 2))
		assert.Equal(t, 1.0, outW[m])
	}
}

func TestSystematicEqualWeightsKeepAll(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(2, 3, []float64{
		1, 0, 0,
		2, 0, 0,
	})
	w := []float64{0.5, 0.5}

	for _, seed := range []uint64{1, 2, 42, 1234} {
		s := NewSystematic(rand.NewSource(seed))
		out, outW, err := s.Resample(x, w)
		require.NoError(t, err)

		assert.Equal(t, 1.0, out.At(0, 0))
		assert.Equal(t, 2.0, out.At(1, 0))
		assert.Equal(t, []float64{0.5, 0.5}, outW)
	}
}

func TestSystematicProportions(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(4, 3, []float64{
		1, 0, 0,
		2, 0, 0,
		3, 0, 0,
		4, 0, 0,
	})
	// unnormalized weights with shares 25% and 75%
	w := []float64{1, 3, 0, 0}

	s := NewSystematic(rand.NewSource(7))
	out, outW, err := s.Resample(x, w)
	require.NoError(t, err)

	var first, second int
	for m := 0; m < 4; m++ {
		switch out.At(m, 0) {
		case 1.0:
			first++
			assert.Equal(t, 1.0, outW[m])
		case 2.0:
			second++
			assert.Equal(t, 3.0, outW[m])
		default:
			t.Fatalf("unexpected particle: %v", out.At(m, 0))
		}
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 3, second)
}

func TestSystematicDegenerateWeights(t *testing.T) {
	t.Parallel()

	x := testParticles()

	for _, w := range [][]float64{
		{0, 0, 0, 0, 0},
		{0.2, 0.2, math.NaN(), 0.2, 0.2},
		{0.2, 0.2, math.Inf(1), 0.2, 0.2},
	} {
		s := NewSystematic(zeroSource{})
		out, outW, err := s.Resample(x, w)
		require.NoError(t, err)

		// uniform fallback with zero offset keeps every particle once
		assert.True(t, mat.Equal(x, out))
		for _, v := range outW {
			assert.Equal(t, 0.2, v)
		}
	}
}

func TestSystematicInvalidInput(t *testing.T) {
	t.Parallel()

	s := NewSystematic(zeroSource{})

	_, _, err := s.Resample(&mat.Dense{}, nil)
	assert.Error(t, err)

	_, _, err = s.Resample(testParticles(), []float64{1, 2})
	assert.Error(t, err)
}

func TestMultinomialSingleSurvivor(t *testing.T) {
	t.Parallel()

	x := testParticles()
	w := []float64{0, 0, 1, 0, 0}

	mr := NewMultinomial(rand.NewSource(3))
	out, outW, err := mr.Resample(x, w)
	require.NoError(t, err)

	for m := 0; m < 5; m++ {
		assert.Equal(t, 3.0, out.At(m, 0))
		assert.Equal(t, 1.0, outW[m])
	}
}

func TestMultinomialDegenerateWeights(t *testing.T) {
	t.Parallel()

	x := testParticles()

	mr := NewMultinomial(rand.NewSource(3))
	out, outW, err := mr.Resample(x, []float64{0, 0, 0, 0, 0})
	require.NoError(t, err)

	rows, _ := out.Dims()
	assert.Equal(t, 5, rows)
	for _, v := range outW {
		assert.Equal(t, 0.2, v)
	}
}

func TestMultinomialInvalidInput(t *testing.T) {
	t.Parallel()

	mr := NewMultinomial(rand.NewSource(3))

	_, _, err := mr.Resample(&mat.Dense{}, nil)
	assert.Error(t, err)

	_, _, err = mr.Resample(testParticles(), []float64{1})
	assert.Error(t, err)
}
