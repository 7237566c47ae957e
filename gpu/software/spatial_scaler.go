package software

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/transform"
	"github.com/xaionaro-go/vidframe/gpu"
)

// SpatialScaler upsamples with a Lanczos resampler. It works on the stored
// (perceptually encoded) values, which is what the perceptual color
// processing mode asks for.
type SpatialScaler struct {
	desc     gpu.SpatialScalerDescriptor
	fence    *Fence
	color    *Texture
	output   *Texture
	contentW int
	contentH int
}

var _ gpu.SpatialScaler = (*SpatialScaler)(nil)

func (s *SpatialScaler) Descriptor() gpu.SpatialScalerDescriptor { return s.desc }

func (s *SpatialScaler) OutputTextureUsage() gpu.TextureUsage {
	return gpu.TextureUsageShaderRead | gpu.TextureUsageShaderWrite | gpu.TextureUsageRenderTarget
}

func (s *SpatialScaler) SetFence(f gpu.Fence) {
	s.fence, _ = f.(*Fence)
}

func (s *SpatialScaler) SetColorTexture(t gpu.Texture) {
	s.color, _ = t.(*Texture)
}

func (s *SpatialScaler) SetOutputTexture(t gpu.Texture) {
	s.output, _ = t.(*Texture)
}

func (s *SpatialScaler) SetInputContentSize(width, height int) {
	s.contentW, s.contentH = width, height
}

func (s *SpatialScaler) Encode(cb gpu.CommandBuffer) error {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("foreign command buffer %T", cb)
	}
	switch {
	case s.color == nil:
		return fmt.Errorf("color texture is not set: %w", gpu.ErrInvalidState)
	case s.output == nil:
		return fmt.Errorf("output texture is not set: %w", gpu.ErrInvalidState)
	case s.color.Width() != s.desc.InputWidth || s.color.Height() != s.desc.InputHeight:
		return fmt.Errorf("color texture is %dx%d, the scaler was made for %dx%d",
			s.color.Width(), s.color.Height(), s.desc.InputWidth, s.desc.InputHeight)
	case s.output.Width() != s.desc.OutputWidth || s.output.Height() != s.desc.OutputHeight:
		return fmt.Errorf("output texture is %dx%d, the scaler was made for %dx%d",
			s.output.Width(), s.output.Height(), s.desc.OutputWidth, s.desc.OutputHeight)
	case s.contentW <= 0 || s.contentH <= 0 || s.contentW > s.color.Width() || s.contentH > s.color.Height():
		return fmt.Errorf("invalid input content size %dx%d", s.contentW, s.contentH)
	}
	return c.record(&scalerOp{
		fence:    s.fence,
		color:    s.color,
		output:   s.output,
		contentW: s.contentW,
		contentH: s.contentH,
	})
}

type scalerOp struct {
	fence    *Fence
	color    *Texture
	output   *Texture
	contentW int
	contentH int
}

func (o *scalerOp) execute(x *execution) error {
	for _, t := range []*Texture{o.color, o.output} {
		if err := t.usable(); err != nil {
			return err
		}
		if err := x.requireResident(t); err != nil {
			return err
		}
	}

	var src image.Image = o.color
	if o.contentW != o.color.Width() || o.contentH != o.color.Height() {
		src = transform.Crop(o.color, image.Rect(0, 0, o.contentW, o.contentH))
	}
	resized := transform.Resize(src, o.output.Width(), o.output.Height(), transform.Lanczos)
	for y := 0; y < o.output.Height(); y++ {
		for x := 0; x < o.output.Width(); x++ {
			c := color.NRGBAModel.Convert(resized.RGBAAt(x, y)).(color.NRGBA)
			o.output.setTexel(x, y, [4]float32{
				float32(c.R) / 255,
				float32(c.G) / 255,
				float32(c.B) / 255,
				float32(c.A) / 255,
			})
		}
	}
	x.pendingWrites[o.output.id] = o.fence
	return nil
}
