package mcl

import (
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/rnd"
)

// Systematic is a low variance resampler. It draws one uniform offset and
// sweeps the cumulative weights with evenly spaced pointers, so a particle
// with weight share p is selected floor(p*M) or ceil(p*M) times.
type Systematic struct {
	// rnd is the offset source
	rnd *rand.Rand
}

// NewSystematic creates a systematic resampler and returns it. If src is nil
// a time seeded source is used.
func NewSystematic(src rand.Source) *Systematic {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return &Systematic{rnd: rand.New(src)}
}

// Resample redraws the particle rows of x in proportion to the weights w and
// returns the new particles together with the weights they carried before
// resampling. Zero weight particles are never selected. If the weights are
// degenerate the particles are redrawn uniformly.
func (s *Systematic) Resample(x *mat.Dense, w []float64) (*mat.Dense, []float64, error) {
	rows, cols := x.Dims()
	if rows < 1 {
		return nil, nil, fmt.Errorf("invalid particle count: %d", rows)
	}
	if len(w) != rows {
		return nil, nil, fmt.Errorf("invalid weight count: %d", len(w))
	}

	ws := sanitize(w, rows)

	cdf := make([]float64, rows)
	floats.CumSum(cdf, ws)
	sum := cdf[rows-1]

	r := s.rnd.Float64() / float64(rows)

	out := mat.NewDense(rows, cols, nil)
	outW := make([]float64, rows)
	for m := 0; m < rows; m++ {
		u := sum * (r + float64(m)/float64(rows))
		k := sort.Search(rows, func(i int) bool { return cdf[i] > u })
		if k == rows {
			k = rows - 1
		}
		out.SetRow(m, x.RawRowView(k))
		outW[m] = ws[k]
	}

	return out, outW, nil
}

// Multinomial resamples particles with independent roulette draws.
type Multinomial struct {
	// src is the random number source
	src rand.Source
}

// NewMultinomial creates a multinomial resampler and returns it. If src is
// nil a time seeded source is used.
func NewMultinomial(src rand.Source) *Multinomial {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	return &Multinomial{src: src}
}

// Resample redraws the particle rows of x in proportion to the weights w and
// returns the new particles together with the weights they carried before
// resampling. If the weights are degenerate the particles are redrawn
// uniformly.
func (mr *Multinomial) Resample(x *mat.Dense, w []float64) (*mat.Dense, []float64, error) {
	rows, cols := x.Dims()
	if rows < 1 {
		return nil, nil, fmt.Errorf("invalid particle count: %d", rows)
	}
	if len(w) != rows {
		return nil, nil, fmt.Errorf("invalid weight count: %d", len(w))
	}

	ws := sanitize(w, rows)

	idx, err := rnd.RouletteDrawN(ws, rows, mr.src)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sample filter particles: %v", err)
	}

	out := mat.NewDense(rows, cols, nil)
	outW := make([]float64, rows)
	for m, k := range idx {
		out.SetRow(m, x.RawRowView(k))
		outW[m] = ws[k]
	}

	return out, outW, nil
}

// sanitize returns w unless the weights are degenerate, in which case it
// returns uniform weights.
func sanitize(w []float64, rows int) []float64 {
	sum := floats.Sum(w)
	if sum > 0 && !math.IsInf(sum, 0) && !math.IsNaN(sum) {
		return w
	}
	ws := make([]float64, rows)
	for i := range ws {
		ws[i] = 1 / float64(rows)
	}
	return ws
}
