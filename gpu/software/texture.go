package software

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/x448/float16"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"
	"go.uber.org/atomic"
)

// Texture stores texels in the layout of its pixel format. Imported
// textures alias the decoder's memory instead of owning a copy.
type Texture struct {
	id       types.ObjectID
	desc     gpu.TextureDescriptor
	stride   int
	pix      []byte
	source   *frame.Video
	drawable *Drawable
	released atomic.Bool
}

var (
	_ gpu.FrameTexture = (*Texture)(nil)
	_ shader.Sampler   = (*Texture)(nil)
	_ image.Image      = (*Texture)(nil)
)

func newTexture(desc gpu.TextureDescriptor) (*Texture, error) {
	bpp := desc.PixelFormat.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("unsupported pixel format %s", desc.PixelFormat)
	}
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("invalid texture size %dx%d", desc.Width, desc.Height)
	}
	return &Texture{
		id:     types.NewObjectID(),
		desc:   desc,
		stride: desc.Width * bpp,
		pix:    make([]byte, desc.Width*bpp*desc.Height),
	}, nil
}

func newTextureFromFrame(f *frame.Video, pixFmt types.PixelFormat) (*Texture, error) {
	if f.PixelFormat != pixFmt {
		return nil, fmt.Errorf("cannot alias %s memory as %s without a conversion", f.PixelFormat, pixFmt)
	}
	return &Texture{
		id: types.NewObjectID(),
		desc: gpu.TextureDescriptor{
			Label:       f.MemoryID.String(),
			PixelFormat: pixFmt,
			Width:       int(f.Resolution.Width),
			Height:      int(f.Resolution.Height),
			Usage:       gpu.TextureUsageShaderRead,
		},
		stride: f.Stride,
		pix:    f.Pix,
		source: f,
	}, nil
}

// Rebind implements gpu.FrameTexture.
func (t *Texture) Rebind(f *frame.Video) error {
	switch {
	case t.source == nil:
		return fmt.Errorf("%s does not alias a frame", t)
	case t.released.Load():
		return fmt.Errorf("%s: %w", t, gpu.ErrReleased)
	case f.IsReleased():
		return fmt.Errorf("%s: %w", f, gpu.ErrReleased)
	case f.PixelFormat != t.desc.PixelFormat || f.Stride != t.stride ||
		int(f.Resolution.Width) != t.desc.Width || int(f.Resolution.Height) != t.desc.Height:
		return fmt.Errorf("%s has a different layout than %s", f, t)
	case len(f.Pix) != len(t.pix) || len(f.Pix) == 0 || &f.Pix[0] != &t.pix[0]:
		return fmt.Errorf("%s is backed by other memory than %s", f, t)
	}
	t.source = f
	t.pix = f.Pix
	return nil
}

func (t *Texture) String() string {
	return fmt.Sprintf("Texture(%s %dx%d:%s)", t.id, t.desc.Width, t.desc.Height, t.desc.PixelFormat)
}

func (t *Texture) AllocationID() types.ObjectID { return t.id }

func (t *Texture) AllocatedSize() uint64 {
	if t.source != nil {
		return 0
	}
	return uint64(len(t.pix))
}

func (t *Texture) Width() int                     { return t.desc.Width }
func (t *Texture) Height() int                    { return t.desc.Height }
func (t *Texture) PixelFormat() types.PixelFormat { return t.desc.PixelFormat }
func (t *Texture) Usage() gpu.TextureUsage        { return t.desc.Usage }

func (t *Texture) Release() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	if t.source == nil {
		t.pix = nil
	}
}

// usable reports an error if the memory behind t is gone.
func (t *Texture) usable() error {
	if t.released.Load() {
		return fmt.Errorf("%s: %w", t, gpu.ErrReleased)
	}
	if t.source != nil && t.source.IsReleased() {
		return fmt.Errorf("%s: backing frame %s: %w", t, t.source, gpu.ErrReleased)
	}
	return nil
}

// Texel implements shader.Sampler.
func (t *Texture) Texel(x, y int) shader.Texel {
	off := y*t.stride + x*t.desc.PixelFormat.BytesPerPixel()
	p := t.pix[off:]
	switch t.desc.PixelFormat {
	case types.PixelFormatBGRA8Unorm:
		return shader.Texel{
			float32(p[2]) / 255,
			float32(p[1]) / 255,
			float32(p[0]) / 255,
			float32(p[3]) / 255,
		}
	case types.PixelFormatRGBA16Float:
		var c shader.Texel
		for i := range c {
			c[i] = float16.Frombits(uint16(p[2*i]) | uint16(p[2*i+1])<<8).Float32()
		}
		return c
	}
	return shader.Texel{}
}

func (t *Texture) setTexel(x, y int, c shader.Texel) {
	off := y*t.stride + x*t.desc.PixelFormat.BytesPerPixel()
	p := t.pix[off:]
	switch t.desc.PixelFormat {
	case types.PixelFormatBGRA8Unorm:
		p[0] = unorm8(c[2])
		p[1] = unorm8(c[1])
		p[2] = unorm8(c[0])
		p[3] = unorm8(c[3])
	case types.PixelFormatRGBA16Float:
		for i := range c {
			bits := float16.Fromfloat32(c[i]).Bits()
			p[2*i] = byte(bits)
			p[2*i+1] = byte(bits >> 8)
		}
	}
}

func (t *Texture) fill(c shader.Texel) {
	for y := 0; y < t.desc.Height; y++ {
		for x := 0; x < t.desc.Width; x++ {
			t.setTexel(x, y, c)
		}
	}
}

func unorm8(v float32) byte {
	return byte(math.Round(float64(clamp01(v)) * 255))
}

func unorm16(v float32) uint16 {
	return uint16(math.Round(float64(clamp01(v)) * 0xffff))
}

func clamp01(v float32) float32 {
	switch {
	case v < 0 || v != v:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// ColorModel implements image.Image.
func (t *Texture) ColorModel() color.Model {
	return color.NRGBA64Model
}

// Bounds implements image.Image.
func (t *Texture) Bounds() image.Rectangle {
	return image.Rect(0, 0, t.desc.Width, t.desc.Height)
}

// At implements image.Image; extended-range values are clipped to [0, 1].
func (t *Texture) At(x, y int) color.Color {
	if !(image.Point{X: x, Y: y}.In(t.Bounds())) {
		return color.NRGBA64{}
	}
	c := t.Texel(x, y)
	return color.NRGBA64{R: unorm16(c[0]), G: unorm16(c[1]), B: unorm16(c[2]), A: unorm16(c[3])}
}

// Image returns a copy of the texture contents.
func (t *Texture) Image() *image.NRGBA64 {
	img := image.NewNRGBA64(t.Bounds())
	for y := 0; y < t.desc.Height; y++ {
		for x := 0; x < t.desc.Width; x++ {
			img.Set(x, y, t.At(x, y))
		}
	}
	return img
}
