// fragment.go implements the two fragment programs of the resampling stage.

package shader

import (
	"math"
)

// FragmentFunc computes the color of one fragment from the bound texture and
// the interpolated texture coordinate.
type FragmentFunc func(tex Sampler, texCoord [2]float32) Texel

// Passthrough is a bilinear copy of the bound texture.
func Passthrough(tex Sampler, texCoord [2]float32) Texel {
	return SampleBilinear(tex, texCoord[0], texCoord[1])
}

// LanczosDownsample filters the (2r+1)^2 input neighborhood around the
// fragment with a separable Lanczos kernel, normalized by the signed sum of
// the weights.
func LanczosDownsample(tex Sampler, texCoord [2]float32) Texel {
	const r = LanczosRadius
	w, h := float64(tex.Width()), float64(tex.Height())
	posX := float64(texCoord[0]) * w
	posY := float64(texCoord[1]) * h
	baseX, baseY := math.Floor(posX), math.Floor(posY)

	var wx, wy [2*r + 1]float64
	for i := -r; i <= r; i++ {
		wx[i+r] = LanczosWeight(posX-(baseX+float64(i)+0.5), r)
		wy[i+r] = LanczosWeight(posY-(baseY+float64(i)+0.5), r)
	}

	var acc [4]float64
	var total float64
	for j := -r; j <= r; j++ {
		for i := -r; i <= r; i++ {
			weight := wx[i+r] * wy[j+r]
			if weight == 0 {
				continue
			}
			t := texelClamped(tex, int(baseX)+i, int(baseY)+j)
			for c := range acc {
				acc[c] += float64(t[c]) * weight
			}
			total += weight
		}
	}
	if total == 0 {
		return texelClamped(tex, int(baseX), int(baseY))
	}
	return Texel{
		float32(acc[0] / total),
		float32(acc[1] / total),
		float32(acc[2] / total),
		float32(acc[3] / total),
	}
}
