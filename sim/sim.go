package sim

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/feature"
	"github.com/marco-hrlic/go-localize/geom"
	"github.com/marco-hrlic/go-localize/motion"
	"github.com/marco-hrlic/go-localize/noise"
)

// InitCond is an initial filter condition: a state with its covariance.
type InitCond struct {
	// state is the initial state
	state *mat.VecDense
	// cov is the initial state covariance
	cov *mat.SymDense
}

// NewInitCond creates an initial condition from the given state and
// covariance and returns it.
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := mat.NewVecDense(state.Len(), nil)
	s.CloneFromVec(state)
	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)
	return &InitCond{state: s, cov: c}
}

// State returns a copy of the initial state.
func (c *InitCond) State() mat.Vector {
	s := mat.NewVecDense(c.state.Len(), nil)
	s.CloneFromVec(c.state)
	return s
}

// Cov returns a copy of the initial state covariance.
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)
	return cov
}

// Robot is a simulated unicycle robot.
type Robot struct {
	// pose is the robot pose in the world frame
	pose geom.Pose
	// model integrates the robot motion
	model *motion.Unicycle
}

// NewRobot creates a robot at the given pose and returns it. If model is nil
// a unicycle with the default threshold is used.
func NewRobot(pose geom.Pose, model *motion.Unicycle) (*Robot, error) {
	if model == nil {
		uni, err := motion.NewUnicycle(0)
		if err != nil {
			return nil, err
		}
		model = uni
	}
	return &Robot{pose: pose, model: model}, nil
}

// Pose returns the robot pose.
func (r *Robot) Pose() geom.Pose {
	return r.pose
}

// Step drives the robot with the control vector u over dt and returns the
// new pose.
func (r *Robot) Step(u mat.Vector, dt float64) (geom.Pose, error) {
	x, err := r.model.Propagate(r.pose.Vec(), u, dt)
	if err != nil {
		return geom.Pose{}, err
	}
	pose, err := geom.PoseFromVec(x)
	if err != nil {
		return geom.Pose{}, err
	}
	r.pose = pose
	return pose, nil
}

// Scanner is a simulated line feature sensor. Every scan observes all map
// lines perturbed by Gaussian measurement noise.
type Scanner struct {
	// m is the scanned feature map
	m *feature.Map
	// extrinsic is the sensor pose in the robot base frame
	extrinsic geom.Pose
	// cov is the per line measurement covariance
	cov *mat.SymDense
	// noise perturbs the line measurements
	noise *noise.Gaussian
}

// NewScanner creates a scanner over the given map and returns it. The
// extrinsic locates the sensor in the robot base frame and cov is the
// measurement covariance of a single line. If src is nil a time seeded
// source is used.
func NewScanner(m *feature.Map, extrinsic geom.Pose, cov *mat.SymDense, src rand.Source) (*Scanner, error) {
	if m == nil || m.Size() == 0 {
		return nil, fmt.Errorf("missing map")
	}
	if cov == nil || cov.SymmetricDim() != 2 {
		return nil, fmt.Errorf("invalid measurement covariance")
	}

	n, err := noise.NewGaussian([]float64{0, 0}, cov, src)
	if err != nil {
		return nil, fmt.Errorf("failed to create measurement noise: %v", err)
	}

	c := mat.NewSymDense(2, nil)
	c.CopySym(cov)

	return &Scanner{m: m, extrinsic: extrinsic, cov: c, noise: n}, nil
}

// Scan observes every map line from the given robot pose and returns the
// noisy observation.
func (s *Scanner) Scan(pose geom.Pose) (*feature.Observation, error) {
	lines := feature.Project(pose, s.m, s.extrinsic)
	covs := make([]*mat.SymDense, len(lines))
	for i := range lines {
		d := s.noise.Sample()
		lines[i] = feature.Line{
			Alpha: lines[i].Alpha + d.AtVec(0),
			R:     lines[i].R + d.AtVec(1),
		}.Canon()
		c := mat.NewSymDense(2, nil)
		c.CopySym(s.cov)
		covs[i] = c
	}
	return feature.NewObservation(lines, covs)
}

// Corridor builds a rectangular corridor map with walls at +-halfX along x
// and +-halfY along y.
func Corridor(halfX, halfY float64) (*feature.Map, error) {
	if halfX <= 0 || halfY <= 0 {
		return nil, fmt.Errorf("invalid corridor dimensions: %v x %v", halfX, halfY)
	}
	return feature.NewMap([]feature.Line{
		{Alpha: 0, R: halfX},
		{Alpha: math.Pi / 2, R: halfY},
		{Alpha: math.Pi, R: halfX},
		{Alpha: -math.Pi / 2, R: halfY},
	})
}
