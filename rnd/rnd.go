package rnd

import (
	"fmt"
	"sort"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// WithCovN draws n zero mean random vectors with covariance cov and returns
// them as the rows of an n x dim matrix. If src is nil a time seeded source
// is used. It returns error if the draws cannot be generated.
func WithCovN(cov mat.Symmetric, n int, src rand.Source) (*mat.Dense, error) {
	if cov == nil || cov.SymmetricDim() == 0 {
		return nil, fmt.Errorf("invalid covariance matrix")
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", n)
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	dim := cov.SymmetricDim()
	dist, ok := distmv.NewNormal(make([]float64, dim), cov, src)
	if !ok {
		return nil, fmt.Errorf("singular covariance matrix")
	}

	out := mat.NewDense(n, dim, nil)
	for i := 0; i < n; i++ {
		dist.Rand(out.RawRowView(i))
	}

	return out, nil
}

// RouletteDrawN draws n indices from the probability weights p, each index
// selected with probability proportional to its weight, and returns them.
// Zero weight indices are never selected. If src is nil a time seeded source
// is used. It returns error if the weights do not sum to a positive number.
func RouletteDrawN(p []float64, n int, src rand.Source) ([]int, error) {
	if len(p) == 0 {
		return nil, fmt.Errorf("invalid probability weights: %d", len(p))
	}
	if n <= 0 {
		return nil, fmt.Errorf("invalid sample count: %d", n)
	}
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	cdf := make([]float64, len(p))
	floats.CumSum(cdf, p)
	sum := cdf[len(cdf)-1]
	if sum <= 0 {
		return nil, fmt.Errorf("invalid probability weights sum: %v", sum)
	}

	u := distuv.Uniform{Min: 0, Max: sum, Src: src}
	idx := make([]int, n)
	for i := range idx {
		v := u.Rand()
		idx[i] = sort.Search(len(cdf), func(j int) bool { return cdf[j] > v })
	}

	return idx, nil
}
