// sampler.go implements clamp-to-edge texture sampling for the fragment programs.

package shader

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Texel is an RGBA color with components in shader units.
type Texel [4]float32

func (t Texel) Add(o Texel) Texel {
	return Texel{t[0] + o[0], t[1] + o[1], t[2] + o[2], t[3] + o[3]}
}

func (t Texel) Mul(k float32) Texel {
	return Texel{t[0] * k, t[1] * k, t[2] * k, t[3] * k}
}

// Sampler gives fragment programs read access to a texture.
type Sampler interface {
	Width() int
	Height() int
	Texel(x, y int) Texel
}

func clamp[T constraints.Integer | constraints.Float](v, lo, hi T) T {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

func texelClamped(s Sampler, x, y int) Texel {
	return s.Texel(clamp(x, 0, s.Width()-1), clamp(y, 0, s.Height()-1))
}

// SampleNearest samples at normalized coordinates with nearest filtering.
func SampleNearest(s Sampler, u, v float32) Texel {
	x := int(math.Floor(float64(u) * float64(s.Width())))
	y := int(math.Floor(float64(v) * float64(s.Height())))
	return texelClamped(s, x, y)
}

// SampleBilinear samples at normalized coordinates with linear filtering.
func SampleBilinear(s Sampler, u, v float32) Texel {
	x := float64(u)*float64(s.Width()) - 0.5
	y := float64(v)*float64(s.Height()) - 0.5
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := float32(x-x0), float32(y-y0)
	ix, iy := int(x0), int(y0)

	top := texelClamped(s, ix, iy).Mul(1 - fx).Add(texelClamped(s, ix+1, iy).Mul(fx))
	bottom := texelClamped(s, ix, iy+1).Mul(1 - fx).Add(texelClamped(s, ix+1, iy+1).Mul(fx))
	return top.Mul(1 - fy).Add(bottom.Mul(fy))
}
