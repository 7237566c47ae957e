// scaler.go defines the Scaler Stage: a spatial upscaler paired with its dedicated output texture.

// Package scaler owns a device spatial scaler instance together with the
// texture it writes into, and encodes its work into a command buffer.
package scaler

import (
	"context"
	"errors"
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/helpers/closuresignaler"
	"github.com/xaionaro-go/vidframe/internal"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
)

var ErrUnsupported = errors.New("the device does not support spatial scaling")

// Spatial is a configured spatial scaler. Its dimensions are fixed at
// construction; a different input or output size requires a new Spatial.
type Spatial struct {
	*closuresignaler.ClosureSignaler
	scaler      gpu.SpatialScaler
	output      gpu.Texture
	fence       gpu.Fence
	input       types.Resolution
	outputRes   types.Resolution
	pixelFormat types.PixelFormat
}

// NewSpatial configures a scaler from input to output. The fence is
// updated by the scaler once the output texture is written; the render
// pass that samples OutputTexture must wait on it.
func NewSpatial(
	ctx context.Context,
	dev gpu.Device,
	fence gpu.Fence,
	input types.Resolution,
	output types.Resolution,
	pixFmt types.PixelFormat,
) (_ret *Spatial, _err error) {
	logger.Tracef(ctx, "NewSpatial(%s -> %s, %s)", input, output, pixFmt)
	defer func() { logger.Tracef(ctx, "/NewSpatial(%s -> %s, %s): %v", input, output, pixFmt, _err) }()

	if !dev.SupportsSpatialScaler() {
		return nil, ErrUnsupported
	}
	if input.IsZero() || output.IsZero() {
		return nil, fmt.Errorf("invalid scaler dimensions %s -> %s", input, output)
	}

	sc, err := dev.MakeSpatialScaler(gpu.SpatialScalerDescriptor{
		InputWidth:          int(input.Width),
		InputHeight:         int(input.Height),
		OutputWidth:         int(output.Width),
		OutputHeight:        int(output.Height),
		ColorTextureFormat:  pixFmt,
		OutputTextureFormat: pixFmt,
		ColorProcessingMode: gpu.ColorProcessingModePerceptual,
	})
	switch {
	case errors.Is(err, gpu.ErrUnsupported):
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	case err != nil:
		return nil, fmt.Errorf("unable to create a spatial scaler %s -> %s: %w", input, output, err)
	}

	out, err := dev.MakeTexture(gpu.TextureDescriptor{
		Label:       "scaler-output",
		PixelFormat: pixFmt,
		Width:       int(output.Width),
		Height:      int(output.Height),
		Usage:       sc.OutputTextureUsage() | gpu.TextureUsageShaderRead,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create the scaler output texture %s: %w", output, err)
	}

	sc.SetFence(fence)
	sc.SetOutputTexture(out)
	sc.SetInputContentSize(int(input.Width), int(input.Height))

	return &Spatial{
		ClosureSignaler: closuresignaler.New(),
		scaler:          sc,
		output:          out,
		fence:           fence,
		input:           input,
		outputRes:       output,
		pixelFormat:     pixFmt,
	}, nil
}

func (s *Spatial) String() string {
	return fmt.Sprintf("SpatialScaler(%s -> %s:%s)", s.input, s.outputRes, s.pixelFormat)
}

// Encode records the scaling of input into the output texture. input must
// match the configured input size and format.
func (s *Spatial) Encode(
	ctx context.Context,
	cmd gpu.CommandBuffer,
	input gpu.Texture,
) (_err error) {
	logger.Tracef(ctx, "Encode")
	defer func() { logger.Tracef(ctx, "/Encode: %v", _err) }()

	if err := s.Err(); err != nil {
		return fmt.Errorf("%s: %w", s, err)
	}
	internal.Assert(ctx, gpu.TextureResolution(input) == s.input, gpu.TextureResolution(input), s.input)
	internal.Assert(ctx, input.PixelFormat() == s.pixelFormat, input.PixelFormat(), s.pixelFormat)

	s.scaler.SetColorTexture(input)
	if err := s.scaler.Encode(cmd); err != nil {
		return fmt.Errorf("unable to encode %s: %w", s, err)
	}
	return nil
}

func (s *Spatial) OutputTexture() gpu.Texture {
	return s.output
}

func (s *Spatial) Fence() gpu.Fence {
	return s.fence
}

func (s *Spatial) InputResolution() types.Resolution {
	return s.input
}

func (s *Spatial) OutputResolution() types.Resolution {
	return s.outputRes
}

// MemorySize is the GPU memory held by the output texture.
func (s *Spatial) MemorySize() uint64 {
	return s.output.AllocatedSize()
}

// Close releases the output texture right away.
func (s *Spatial) Close(ctx context.Context) error {
	logger.Debugf(ctx, "closing %s", s)
	if !s.ClosureSignaler.Close(ctx) {
		return nil
	}
	s.output.Release()
	return nil
}
