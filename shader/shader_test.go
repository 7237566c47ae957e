package shader

import (
	"math"
	"strings"
	"testing"

	assertT "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type constSampler struct {
	w, h int
	c    Texel
}

func (s constSampler) Width() int           { return s.w }
func (s constSampler) Height() int          { return s.h }
func (s constSampler) Texel(x, y int) Texel { return s.c }

type gradientSampler struct{ w, h int }

func (s gradientSampler) Width() int  { return s.w }
func (s gradientSampler) Height() int { return s.h }
func (s gradientSampler) Texel(x, y int) Texel {
	return Texel{float32(x), float32(y), 0, 1}
}

func TestLanczosWeight(t *testing.T) {
	require.Equal(t, 1.0, LanczosWeight(0, LanczosRadius))
	require.Equal(t, 0.0, LanczosWeight(3, LanczosRadius))
	require.Equal(t, 0.0, LanczosWeight(-3, LanczosRadius))
	require.Equal(t, 0.0, LanczosWeight(4.5, LanczosRadius))
	require.Equal(t, 0.0, LanczosWeight(1, LanczosRadius))
	require.Equal(t, 0.0, LanczosWeight(-2, LanczosRadius))

	for x := -3.5; x <= 3.5; x += 0.0625 {
		assertT.Equal(t, LanczosWeight(x, LanczosRadius), LanczosWeight(-x, LanczosRadius), "x=%v", x)
	}

	// negative lobe
	require.Less(t, LanczosWeight(1.5, LanczosRadius), 0.0)

	x := 0.5
	expected := 3 * math.Sin(math.Pi*x) * math.Sin(math.Pi*x/3) / (math.Pi * x * math.Pi * x)
	require.InDelta(t, expected, LanczosWeight(x, LanczosRadius), 1e-12)
}

func TestLanczosDownsamplePreservesConstant(t *testing.T) {
	s := constSampler{w: 16, h: 9, c: Texel{0.25, 0.5, 0.75, 1}}
	for _, uv := range [][2]float32{{0, 0}, {0.5, 0.5}, {0.13, 0.91}, {1, 1}} {
		got := LanczosDownsample(s, uv)
		for c := range got {
			require.InDelta(t, s.c[c], got[c], 1e-5, "uv=%v", uv)
		}
	}
}

func TestLanczosDownsampleOnTexelCenter(t *testing.T) {
	s := gradientSampler{w: 10, h: 10}
	// at a texel center every other tap sits on a kernel zero
	got := LanczosDownsample(s, [2]float32{0.45, 0.25})
	require.InDelta(t, 4, got[0], 1e-5)
	require.InDelta(t, 2, got[1], 1e-5)
}

func TestPassthroughBilinear(t *testing.T) {
	s := gradientSampler{w: 4, h: 4}
	got := Passthrough(s, [2]float32{0.5, 0.5})
	require.InDelta(t, 1.5, got[0], 1e-6)
	require.InDelta(t, 1.5, got[1], 1e-6)

	corner := Passthrough(s, [2]float32{0, 0})
	require.InDelta(t, 0, corner[0], 1e-6)
}

func TestUniformRoundTrip(t *testing.T) {
	buf := make([]byte, UniformSize)
	in := Scale{X: 0.75, Y: 1}
	require.NoError(t, in.Put(buf))
	out, err := ScaleFromBytes(buf)
	require.NoError(t, err)
	require.Equal(t, in, out)
	require.Error(t, in.Put(make([]byte, 4)))
}

func TestQuadVertex(t *testing.T) {
	v := QuadVertex(0, Scale{X: 0.5, Y: 0.25})
	require.Equal(t, [4]float32{-0.5, -0.25, 0, 1}, v.Position)
	require.Equal(t, [2]float32{0, 1}, v.TexCoord)
}

func TestSourceDeclaresAllFunctions(t *testing.T) {
	require.True(t, strings.Contains(Source, " "+VertexFunctionName+"("))
	for _, p := range Programs() {
		name := p.FragmentFunctionName()
		require.True(t, strings.Contains(Source, " "+name+"("), name)
		_, ok := FragmentFuncByName(name)
		require.True(t, ok, name)
	}
}
