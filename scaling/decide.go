// decide.go computes the per-frame scaling decision.

// Package scaling decides how a decoded frame is mapped onto the viewport
// and keeps the spatial scaler instance consistent with that decision.
package scaling

import (
	"fmt"
	"math"

	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"
)

// Path is the render path a frame takes. The set is closed.
type Path int

const (
	// PathPassthrough samples the input texture bilinearly.
	PathPassthrough = Path(iota)

	// PathSpatialUpscale runs the spatial scaler and samples its output.
	PathSpatialUpscale

	// PathDownsample samples the input texture through the Lanczos filter.
	PathDownsample
)

func (p Path) String() string {
	switch p {
	case PathPassthrough:
		return "passthrough"
	case PathSpatialUpscale:
		return "spatial_upscale"
	case PathDownsample:
		return "downsample"
	}
	return fmt.Sprintf("unknown_path_%d", int(p))
}

// Program returns the fragment program drawing this path.
func (p Path) Program() shader.Program {
	if p == PathDownsample {
		return shader.ProgramLanczosDownsample
	}
	return shader.ProgramPassthrough
}

// Decision is the outcome of Decide for one frame.
type Decision struct {
	Mode     types.ScalingMode
	Input    types.Resolution
	Viewport types.Resolution
	Target   types.Resolution
	Path     Path

	// Scale is the vertex-stage scale of the full-screen quad.
	Scale shader.Scale
}

func (d Decision) String() string {
	return fmt.Sprintf("%s: %s -> %s in %s via %s (scale %s)", d.Mode, d.Input, d.Target, d.Viewport, d.Path, d.Scale)
}

// Description is the human readable name of the active path.
func (d Decision) Description() string {
	switch {
	case d.Mode == types.ScalingModeOff:
		return "No Scaling"
	case d.Path == PathSpatialUpscale:
		return "Upscaling: Spatial"
	case d.Path == PathDownsample:
		return "Downscaling: Lanczos"
	}
	return "Passthrough"
}

// TargetSize returns the size the input is displayed at:
//   - Off: the input size;
//   - Fit: the largest aspect-preserving size within the viewport;
//   - Fill: the viewport height, with the width following the aspect ratio.
func TargetSize(
	input types.Resolution,
	viewport types.Resolution,
	mode types.ScalingMode,
) types.Resolution {
	if input.IsZero() || viewport.IsZero() {
		return input
	}
	switch mode {
	case types.ScalingModeFit:
		// comparing cross products avoids float error on exact matches
		if uint64(input.Width)*uint64(viewport.Height) >= uint64(input.Height)*uint64(viewport.Width) {
			return types.Resolution{
				Width:  viewport.Width,
				Height: roundDim(float64(viewport.Width) * float64(input.Height) / float64(input.Width)),
			}
		}
		return types.Resolution{
			Width:  roundDim(float64(viewport.Height) * input.Aspect()),
			Height: viewport.Height,
		}
	case types.ScalingModeFill:
		return types.Resolution{
			Width:  roundDim(float64(viewport.Height) * input.Aspect()),
			Height: viewport.Height,
		}
	default:
		return input
	}
}

func roundDim(v float64) uint32 {
	return uint32(max(1, math.Round(v)))
}

// Decide selects the render path for a frame. The spatial scaler path is
// chosen only when the target exceeds the input in some dimension and the
// device supports it; true minification takes the downsample filter;
// everything else is passed through.
func Decide(
	input types.Resolution,
	viewport types.Resolution,
	mode types.ScalingMode,
	scalerSupported bool,
) Decision {
	d := Decision{
		Mode:     mode,
		Input:    input,
		Viewport: viewport,
		Target:   TargetSize(input, viewport, mode),
		Path:     PathPassthrough,
	}

	if mode == types.ScalingModeOff {
		d.Scale = ratio(input, viewport)
		return d
	}
	d.Scale = ratio(d.Target, viewport)
	switch {
	case d.Target.ExceedsIn(input) && scalerSupported:
		d.Path = PathSpatialUpscale
	case d.Target.SmallerIn(input) && !d.Target.ExceedsIn(input):
		d.Path = PathDownsample
	}
	return d
}

func ratio(r, viewport types.Resolution) shader.Scale {
	if viewport.IsZero() {
		return shader.Scale{X: 1, Y: 1}
	}
	return shader.Scale{
		X: float32(float64(r.Width) / float64(viewport.Width)),
		Y: float32(float64(r.Height) / float64(viewport.Height)),
	}
}
