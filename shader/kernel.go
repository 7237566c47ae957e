// kernel.go implements the windowed-sinc kernel of the downsampling filter.

package shader

import (
	"math"
)

// LanczosRadius is the kernel radius; the filter reads a
// (2*LanczosRadius+1)^2 neighborhood per output texel.
const LanczosRadius = 3

// LanczosWeight is the Lanczos kernel of the given radius:
// 1 at zero, 0 outside (-radius, radius) and at every other integer,
// radius*sin(pi*x)*sin(pi*x/radius)/(pi*x)^2 elsewhere.
func LanczosWeight(x float64, radius float64) float64 {
	if x == 0 {
		return 1
	}
	if math.Abs(x) >= radius {
		return 0
	}
	if x == math.Trunc(x) {
		// sin(pi*n) is not exactly zero in floating point.
		return 0
	}
	piX := math.Pi * x
	return radius * math.Sin(piX) * math.Sin(piX/radius) / (piX * piX)
}
