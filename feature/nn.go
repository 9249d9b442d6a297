package feature

import (
	"fmt"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/marco-hrlic/go-localize/geom"
)

// MinDeterminantThreshold is the smallest determinant a measurement
// covariance may have before its closed form inverse is rejected.
const MinDeterminantThreshold = 1e-12

// NearestNeighbour associates observed line features with map lines by
// minimal Mahalanobis distance in the sensor frame.
type NearestNeighbour struct {
	// m is the world frame feature map
	m *Map
	// extrinsic is the sensor pose in the robot base frame
	extrinsic geom.Pose
	// gate is the association acceptance distance
	gate float64
	// workers is the number of association goroutines
	workers int
}

// NewNearestNeighbour creates a nearest neighbour associator against the
// given map and returns it. The extrinsic locates the sensor in the robot
// base frame. If workers is not positive the associator uses one worker per
// available CPU. It returns error if the map is missing or empty.
func NewNearestNeighbour(m *Map, extrinsic geom.Pose, gate float64, workers int) (*NearestNeighbour, error) {
	if m == nil || m.Size() == 0 {
		return nil, fmt.Errorf("missing map")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &NearestNeighbour{m: m, extrinsic: extrinsic, gate: gate, workers: workers}, nil
}

// Gate returns the association acceptance distance. The distance is advisory:
// each observed line is always matched to its nearest candidate, and callers
// that wish to reject weak matches compare their distances against the gate.
func (nn *NearestNeighbour) Gate() float64 {
	return nn.gate
}

// Associate matches every observed line of z to its nearest map line for
// every pose row of x and returns the stacked innovations together with the
// joint measurement covariance. Row i of the innovation matrix holds the
// (angle, range) innovations of pose i laid out in observation order.
// Distances are measured per observed line with its own covariance, so the
// same map line may serve several observed lines.
func (nn *NearestNeighbour) Associate(x *mat.Dense, z *Observation) (*mat.Dense, *mat.SymDense, error) {
	if err := z.Validate(); err != nil {
		return nil, nil, err
	}
	rows, cols := x.Dims()
	if cols != 3 {
		return nil, nil, fmt.Errorf("invalid pose matrix dimensions: [%d x %d]", rows, cols)
	}

	// closed form 2x2 inverses, shared by all workers
	inv := make([][4]float64, z.Size())
	for i, c := range z.Covs {
		det := c.At(0, 0)*c.At(1, 1) - c.At(0, 1)*c.At(1, 0)
		if det < MinDeterminantThreshold {
			return nil, nil, fmt.Errorf("singular observation covariance %d", i)
		}
		inv[i] = [4]float64{
			c.At(1, 1) / det, -c.At(0, 1) / det,
			-c.At(1, 0) / det, c.At(0, 0) / det,
		}
	}

	vs := mat.NewDense(rows, 2*z.Size(), nil)

	var wg sync.WaitGroup
	wg.Add(nn.workers)
	for w := 0; w < nn.workers; w++ {
		go func(w int) {
			defer wg.Done()
			hs := make([]float64, 2*nn.m.Size())
			for i := w; i < rows; i += nn.workers {
				pose := geom.Pose{X: x.At(i, 0), Y: x.At(i, 1), Theta: x.At(i, 2)}
				measureInto(pose, nn.m, nn.extrinsic, hs)
				out := vs.RawRowView(i)
				for k, obs := range z.Lines {
					ic := inv[k]
					best := 0.0
					bestA, bestR := 0.0, 0.0
					for j := 0; j < nn.m.Size(); j++ {
						va := geom.AngleDiff(obs.Alpha, hs[2*j])
						vr := obs.R - hs[2*j+1]
						d := va*(ic[0]*va+ic[1]*vr) + vr*(ic[2]*va+ic[3]*vr)
						if j == 0 || d < best {
							best = d
							bestA, bestR = va, vr
						}
					}
					out[2*k] = bestA
					out[2*k+1] = bestR
				}
			}
		}(w)
	}
	wg.Wait()

	return vs, z.JointCov(), nil
}
