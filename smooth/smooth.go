package smooth

import (
	"fmt"
	"math"

	"github.com/marco-hrlic/go-localize/geom"
)

// Path smooths a pose trajectory with a centered moving average of the given
// window size and returns the smoothed trajectory. Positions average
// arithmetically and headings average on the circle. The window must be odd
// and shrinks symmetrically near the trajectory ends, so the first and last
// pose pass through unchanged.
func Path(poses []geom.Pose, window int) ([]geom.Pose, error) {
	if len(poses) == 0 {
		return nil, fmt.Errorf("invalid trajectory size: %d", len(poses))
	}
	if window < 1 || window%2 == 0 {
		return nil, fmt.Errorf("invalid smoothing window: %d", window)
	}

	half := window / 2
	out := make([]geom.Pose, len(poses))
	for i := range poses {
		r := half
		if i < r {
			r = i
		}
		if n := len(poses) - 1 - i; n < r {
			r = n
		}

		var sx, sy, ss, sc float64
		for j := i - r; j <= i+r; j++ {
			sx += poses[j].X
			sy += poses[j].Y
			ss += math.Sin(poses[j].Theta)
			sc += math.Cos(poses[j].Theta)
		}

		n := float64(2*r + 1)
		out[i] = geom.Pose{
			X:     sx / n,
			Y:     sy / n,
			Theta: math.Atan2(ss/n, sc/n),
		}
	}

	return out, nil
}
