package feature

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/geom"
)

// Line is a line feature parametrized by the angle of its normal and its
// normal distance from the frame origin.
type Line struct {
	// Alpha is the angle of the line normal in radians
	Alpha float64
	// R is the normal distance of the line from the frame origin
	R float64
}

// Canon returns the canonical form of l: a non-negative range and an angle
// wrapped into (-pi, pi]. A negative range flips to the antipodal normal.
func (l Line) Canon() Line {
	if l.R < 0 {
		l.Alpha += math.Pi
		l.R = -l.R
	}
	l.Alpha = geom.WrapAngle(l.Alpha)
	return l
}

// Map is a static collection of line features in the world frame.
type Map struct {
	lines []Line
}

// NewMap creates a map from the given world frame lines and returns it.
// The lines are copied. It returns error if no lines are given.
func NewMap(lines []Line) (*Map, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("invalid map size: %d", len(lines))
	}
	m := make([]Line, len(lines))
	copy(m, lines)
	return &Map{lines: m}, nil
}

// Size returns the number of map lines.
func (m *Map) Size() int {
	return len(m.lines)
}

// Line returns the i-th map line.
func (m *Map) Line(i int) Line {
	return m.lines[i]
}

// Lines returns a copy of all map lines.
func (m *Map) Lines() []Line {
	lines := make([]Line, len(m.lines))
	copy(lines, m.lines)
	return lines
}

// Observation is a set of line features extracted from one sensor scan,
// expressed in the sensor frame, together with one 2x2 covariance per line.
type Observation struct {
	// Lines are the observed line features
	Lines []Line
	// Covs are the measurement covariances, one per observed line
	Covs []*mat.SymDense
}

// NewObservation bundles observed lines with their covariances and returns it.
// It returns error if the observation shape is invalid.
func NewObservation(lines []Line, covs []*mat.SymDense) (*Observation, error) {
	z := &Observation{Lines: lines, Covs: covs}
	if err := z.Validate(); err != nil {
		return nil, err
	}
	return z, nil
}

// Validate checks that the observation holds at least one line and exactly
// one 2x2 covariance per line.
func (z *Observation) Validate() error {
	if len(z.Lines) == 0 {
		return fmt.Errorf("invalid observation size: %d", len(z.Lines))
	}
	if len(z.Covs) != len(z.Lines) {
		return fmt.Errorf("observation covariance count mismatch: %d lines, %d covariances", len(z.Lines), len(z.Covs))
	}
	for i, c := range z.Covs {
		if c == nil || c.SymmetricDim() != 2 {
			return fmt.Errorf("invalid observation covariance %d", i)
		}
	}
	return nil
}

// Size returns the number of observed lines.
func (z *Observation) Size() int {
	return len(z.Lines)
}

// JointCov assembles the block diagonal joint covariance of all observed
// lines. Cross terms between distinct lines are zero.
func (z *Observation) JointCov() *mat.SymDense {
	q := mat.NewSymDense(2*len(z.Covs), nil)
	for i, c := range z.Covs {
		q.SetSym(2*i, 2*i, c.At(0, 0))
		q.SetSym(2*i, 2*i+1, c.At(0, 1))
		q.SetSym(2*i+1, 2*i+1, c.At(1, 1))
	}
	return q
}

// measureInto writes the canonical (alpha, r) parameters of every map line,
// expressed in the sensor frame anchored at the extrinsic on pose, into dst.
// dst must hold 2*m.Size() values laid out line by line.
func measureInto(pose geom.Pose, m *Map, extrinsic geom.Pose, dst []float64) {
	sensor := pose.Compose(extrinsic)
	beta := math.Atan2(sensor.Y, sensor.X)
	rho := math.Hypot(sensor.X, sensor.Y)
	for j := 0; j < m.Size(); j++ {
		l := m.Line(j)
		h := Line{
			Alpha: l.Alpha - sensor.Theta,
			R:     l.R - rho*math.Cos(l.Alpha-beta),
		}.Canon()
		dst[2*j] = h.Alpha
		dst[2*j+1] = h.R
	}
}

// Project expresses every map line in the sensor frame anchored at the
// extrinsic on the given base pose and returns the canonical line parameters
// in map order.
func Project(pose geom.Pose, m *Map, extrinsic geom.Pose) []Line {
	buf := make([]float64, 2*m.Size())
	measureInto(pose, m, extrinsic, buf)
	lines := make([]Line, m.Size())
	for j := range lines {
		lines[j] = Line{Alpha: buf[2*j], R: buf[2*j+1]}
	}
	return lines
}

// PredictedMeasurements expresses every map line in the sensor frame of every
// pose row of x. Row i of the result holds the map lines as seen from pose i,
// laid out as consecutive (alpha, r) pairs in map order.
func PredictedMeasurements(x *mat.Dense, m *Map, extrinsic geom.Pose) (*mat.Dense, error) {
	if m == nil || m.Size() == 0 {
		return nil, fmt.Errorf("missing map")
	}
	rows, cols := x.Dims()
	if cols != 3 {
		return nil, fmt.Errorf("invalid pose matrix dimensions: [%d x %d]", rows, cols)
	}
	hs := mat.NewDense(rows, 2*m.Size(), nil)
	for i := 0; i < rows; i++ {
		pose := geom.Pose{X: x.At(i, 0), Y: x.At(i, 1), Theta: x.At(i, 2)}
		measureInto(pose, m, extrinsic, hs.RawRowView(i))
	}
	return hs, nil
}
