package mcl

import (
	"fmt"
	"math"
	"time"

	"github.com/milosgajdos/matrix"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	localize "github.com/marco-hrlic/go-localize"
	"github.com/marco-hrlic/go-localize/estimate"
	"github.com/marco-hrlic/go-localize/feature"
	"github.com/marco-hrlic/go-localize/geom"
	"github.com/marco-hrlic/go-localize/motion"
	"github.com/marco-hrlic/go-localize/noise"
	"github.com/marco-hrlic/go-localize/rnd"
)

// Config holds the Monte Carlo localization filter configuration.
type Config struct {
	// InitialPoses seeds the particle set, one pose per row
	InitialPoses *mat.Dense
	// ControlNoise perturbs the control of every particle.
	// Nil means noiseless controls.
	ControlNoise localize.Noise
	// Map is the world frame feature map
	Map *feature.Map
	// Extrinsic locates the sensor in the robot base frame
	Extrinsic geom.Pose
	// Gate is the association acceptance distance
	Gate float64
	// Motion is the particle motion model.
	// Nil means a unicycle with the default threshold.
	Motion localize.Motion
	// Associator matches observed features against the map.
	// Nil means nearest neighbour association on Map.
	Associator localize.Associator
	// Resampler redraws the particle set after each update.
	// Nil means systematic resampling.
	Resampler localize.Resampler
	// Workers caps the association goroutines
	Workers int
	// Src is the random number source.
	// Nil means a time seeded source.
	Src rand.Source
}

// MCL is a Monte Carlo localization filter. It tracks the robot pose with a
// set of weighted pose particles which it propagates through a noisy motion
// model and reweights against map features extracted from sensor scans.
type MCL struct {
	// x is the particle pose matrix, one particle per row
	x *mat.Dense
	// w are the particle weights
	w []float64
	// q is the control noise
	q localize.Noise
	// motion is the particle motion model
	motion localize.Motion
	// assoc matches observed features against the map
	assoc localize.Associator
	// resampler redraws the particle set
	resampler localize.Resampler
	// src is the random number source
	src rand.Source
}

// New creates a Monte Carlo localization filter from the given configuration
// and returns it. It returns error if the configuration is invalid.
func New(c *Config) (*MCL, error) {
	if c == nil || c.InitialPoses == nil {
		return nil, fmt.Errorf("invalid particle count: %d", 0)
	}
	rows, cols := c.InitialPoses.Dims()
	if rows < 1 {
		return nil, fmt.Errorf("invalid particle count: %d", rows)
	}
	if cols != 3 {
		return nil, fmt.Errorf("invalid pose matrix dimensions: [%d x %d]", rows, cols)
	}

	src := c.Src
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	q := c.ControlNoise
	if q == nil {
		zero, err := noise.NewZero(2)
		if err != nil {
			return nil, err
		}
		q = zero
	}
	if q.Cov().SymmetricDim() != 2 {
		return nil, fmt.Errorf("invalid control noise dimension: %d", q.Cov().SymmetricDim())
	}

	mdl := c.Motion
	if mdl == nil {
		uni, err := motion.NewUnicycle(0)
		if err != nil {
			return nil, err
		}
		mdl = uni
	}

	assoc := c.Associator
	if assoc == nil {
		nn, err := feature.NewNearestNeighbour(c.Map, c.Extrinsic, c.Gate, c.Workers)
		if err != nil {
			return nil, err
		}
		assoc = nn
	}

	res := c.Resampler
	if res == nil {
		res = NewSystematic(src)
	}

	x := &mat.Dense{}
	x.CloneFrom(c.InitialPoses)

	w := make([]float64, rows)
	for i := range w {
		w[i] = 1 / float64(rows)
	}

	return &MCL{
		x:         x,
		w:         w,
		q:         q,
		motion:    mdl,
		assoc:     assoc,
		resampler: res,
		src:       src,
	}, nil
}

// NewFromPrior creates a Monte Carlo localization filter with m particles
// drawn from the given initial condition and returns it. It returns error if
// the particles cannot be generated.
func NewFromPrior(ic localize.InitCond, m int, c *Config) (*MCL, error) {
	if ic == nil {
		return nil, fmt.Errorf("missing initial condition")
	}
	if m < 1 {
		return nil, fmt.Errorf("invalid particle count: %d", m)
	}
	state := ic.State()
	if state == nil || state.Len() != 3 {
		return nil, fmt.Errorf("invalid state size: %d", vecLen(state))
	}
	cov := ic.Cov()
	if cov == nil || cov.SymmetricDim() != 3 {
		return nil, fmt.Errorf("invalid covariance matrix")
	}

	var cfg Config
	if c != nil {
		cfg = *c
	}
	if cfg.Src == nil {
		cfg.Src = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	draws, err := rnd.WithCovN(cov, m, cfg.Src)
	if err != nil {
		return nil, fmt.Errorf("failed to generate filter particles: %v", err)
	}
	for i := 0; i < m; i++ {
		row := draws.RawRowView(i)
		row[0] += state.AtVec(0)
		row[1] += state.AtVec(1)
		row[2] += state.AtVec(2)
	}
	cfg.InitialPoses = draws

	return New(&cfg)
}

// Predict propagates every particle under the control vector u over dt.
// Each particle integrates its own noisy copy of the control. It returns the
// propagated pose estimate.
func (f *MCL) Predict(u mat.Vector, dt float64) (localize.Estimate, error) {
	if u == nil || u.Len() != 2 {
		return nil, fmt.Errorf("invalid control size: %d", vecLen(u))
	}
	if dt < 0 {
		return nil, fmt.Errorf("invalid time step: %v", dt)
	}

	rows, _ := f.x.Dims()
	us := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		s := f.q.Sample()
		us.Set(i, 0, u.AtVec(0)+s.AtVec(0))
		us.Set(i, 1, u.AtVec(1)+s.AtVec(1))
	}

	x, err := f.motion.PropagateAll(f.x, us, dt)
	if err != nil {
		return nil, fmt.Errorf("particle state propagation failed: %v", err)
	}
	f.x = x

	return f.Estimate()
}

// Update reweights every particle against the observation z, resamples the
// particle set and returns the updated pose estimate. Each particle is
// weighted by the joint density of its associated innovations.
func (f *MCL) Update(z *feature.Observation) (localize.Estimate, error) {
	if z == nil {
		return nil, fmt.Errorf("invalid observation size: %d", 0)
	}
	if err := z.Validate(); err != nil {
		return nil, err
	}

	vs, q, err := f.assoc.Associate(f.x, z)
	if err != nil {
		return nil, fmt.Errorf("feature association failed: %v", err)
	}

	rows, _ := f.x.Dims()
	vr, vc := vs.Dims()
	if vr != rows || vc != 2*z.Size() || q.SymmetricDim() != vc {
		return nil, fmt.Errorf("invalid measurement size: %d", vc)
	}

	pdf, ok := distmv.NewNormal(make([]float64, vc), q, nil)
	if !ok {
		return nil, fmt.Errorf("singular joint measurement covariance")
	}

	for i := 0; i < rows; i++ {
		f.w[i] = math.Exp(pdf.LogProb(vs.RawRowView(i)))
	}

	x, w, err := f.resampler.Resample(f.x, f.w)
	if err != nil {
		return nil, fmt.Errorf("failed to sample filter particles: %v", err)
	}
	f.x, f.w = x, w

	return f.Estimate()
}

// Run runs one filter iteration: it predicts on the control u over dt and,
// if z is not nil, updates on the observation. It returns the pose estimate.
func (f *MCL) Run(u mat.Vector, z *feature.Observation, dt float64) (localize.Estimate, error) {
	est, err := f.Predict(u, dt)
	if err != nil {
		return nil, err
	}
	if z == nil {
		return est, nil
	}
	return f.Update(z)
}

// Estimate returns the pose estimate of the highest weight particles: the
// mean position of the maximum weight set and the circular mean of its
// headings.
func (f *MCL) Estimate() (localize.Estimate, error) {
	wmax := floats.Max(f.w)

	var xs, ys, ths []float64
	for i, w := range f.w {
		if w != wmax {
			continue
		}
		xs = append(xs, f.x.At(i, 0))
		ys = append(ys, f.x.At(i, 1))
		ths = append(ths, f.x.At(i, 2))
	}
	if len(xs) == 0 {
		return nil, fmt.Errorf("invalid particle weights")
	}

	pose := geom.Pose{
		X:     stat.Mean(xs, nil),
		Y:     stat.Mean(ys, nil),
		Theta: stat.CircularMean(ths, nil),
	}

	return estimate.NewBasePose(pose), nil
}

// Roughen spreads the particles with zero mean perturbations scaled by the
// roughening coefficient alpha and resets the weights to uniform. If alpha
// is not positive the Gaussian kernel coefficient is used. It returns error
// if the perturbations cannot be generated.
func (f *MCL) Roughen(alpha float64) error {
	rows, cols := f.x.Dims()

	cov, err := matrix.Cov(f.x, "rows")
	if err != nil {
		return fmt.Errorf("failed to calculate covariance matrix: %v", err)
	}

	if alpha <= 0 {
		alpha = AlphaGauss(float64(cols), float64(rows))
	}

	draws, err := rnd.WithCovN(cov, rows, f.src)
	if err != nil {
		return fmt.Errorf("failed to generate roughening perturbations: %v", err)
	}
	draws.Scale(alpha, draws)
	f.x.Add(f.x, draws)

	for i := range f.w {
		f.w[i] = 1 / float64(rows)
	}

	return nil
}

// Particles returns a copy of the filter particles.
func (f *MCL) Particles() mat.Matrix {
	x := &mat.Dense{}
	x.CloneFrom(f.x)
	return x
}

// Weights returns a copy of the particle weights.
func (f *MCL) Weights() []float64 {
	w := make([]float64, len(f.w))
	copy(w, f.w)
	return w
}

// AlphaGauss computes the roughening coefficient of a Gaussian kernel for r
// state dimensions and c particles.
func AlphaGauss(r, c float64) float64 {
	return math.Pow(4/(c*(r+2)), 1/(r+4))
}

func vecLen(v mat.Vector) int {
	if v == nil {
		return 0
	}
	return v.Len()
}
