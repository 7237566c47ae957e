// converter.go converts decoded libav frames into pooled frames of the render pixel format.

package libav

import (
	"context"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/x448/float16"
	"github.com/xaionaro-go/vidframe/avconv"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/helpers/closuresignaler"
	"github.com/xaionaro-go/vidframe/internal"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
)

type converter struct {
	*astiav.SoftwareScaleContext
	*closuresignaler.ClosureSignaler
	pixelFormat types.PixelFormat
	dst         *astiav.Frame
}

func newConverter(
	ctx context.Context,
	src types.Resolution,
	srcPixFmt astiav.PixelFormat,
	pixFmt types.PixelFormat,
) (*converter, error) {
	dstPixFmt, err := avconv.ConversionPixelFormat(pixFmt)
	if err != nil {
		return nil, err
	}
	swsCtx, err := astiav.CreateSoftwareScaleContext(
		int(src.Width),
		int(src.Height),
		srcPixFmt,
		int(src.Width),
		int(src.Height),
		dstPixFmt,
		astiav.NewSoftwareScaleContextFlags(astiav.SoftwareScaleContextFlagBilinear),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create a software scale context: %w", err)
	}
	internal.SetFinalizerFree(ctx, swsCtx)
	dst := astiav.AllocFrame()
	internal.SetFinalizerFree(ctx, dst)
	return &converter{
		SoftwareScaleContext: swsCtx,
		ClosureSignaler:      closuresignaler.New(),
		pixelFormat:          pixFmt,
		dst:                  dst,
	}, nil
}

func (c *converter) String() string {
	return fmt.Sprintf(
		"Converter(%dx%d:%s -> %s)",
		c.SoftwareScaleContext.SourceWidth(),
		c.SoftwareScaleContext.SourceHeight(),
		c.SoftwareScaleContext.SourcePixelFormat(),
		c.pixelFormat,
	)
}

// Matches reports whether src can be converted without recreating c.
func (c *converter) Matches(src *astiav.Frame) bool {
	return src.Width() == c.SoftwareScaleContext.SourceWidth() &&
		src.Height() == c.SoftwareScaleContext.SourceHeight() &&
		src.PixelFormat() == c.SoftwareScaleContext.SourcePixelFormat()
}

func (c *converter) Close(ctx context.Context) error {
	logger.Tracef(ctx, "Close")
	defer logger.Tracef(ctx, "/Close")
	c.ClosureSignaler.Close(ctx)
	return nil
}

// Convert returns src as a pooled frame with presentation time pts.
func (c *converter) Convert(
	ctx context.Context,
	src *astiav.Frame,
	pts time.Duration,
) (_ret *frame.Video, _err error) {
	logger.Tracef(ctx, "Convert")
	defer func() { logger.Tracef(ctx, "/Convert: %v", _err) }()
	if err := c.Err(); err != nil {
		return nil, fmt.Errorf("converter: %w", err)
	}

	c.dst.Unref()
	c.dst.SetWidth(c.SoftwareScaleContext.DestinationWidth())
	c.dst.SetHeight(c.SoftwareScaleContext.DestinationHeight())
	c.dst.SetPixelFormat(c.SoftwareScaleContext.DestinationPixelFormat())
	if err := c.SoftwareScaleContext.ScaleFrame(src, c.dst); err != nil {
		return nil, fmt.Errorf("unable to convert a frame: %w", err)
	}

	size, err := c.dst.ImageBufferSize(1)
	if err != nil {
		return nil, fmt.Errorf("unable to get the image size: %w", err)
	}
	s := frame.GetStorage(size)
	if _, err := c.dst.ImageCopyToBuffer(s.Bytes, 1); err != nil {
		frame.StoragePool.Put(s)
		return nil, fmt.Errorf("unable to copy the image: %w", err)
	}
	if c.pixelFormat == types.PixelFormatRGBA16Float {
		unorm16ToHalfFloat(s.Bytes)
	}

	res := types.Resolution{Width: uint32(c.dst.Width()), Height: uint32(c.dst.Height())}
	f, err := frame.NewPooledVideo(s, res, c.pixelFormat, int(res.Width)*c.pixelFormat.BytesPerPixel(), pts)
	if err != nil {
		frame.StoragePool.Put(s)
		return nil, err
	}
	return f, nil
}

// unorm16ToHalfFloat rewrites little-endian 16-bit unorm lanes as half floats in place.
func unorm16ToHalfFloat(b []byte) {
	for i := 0; i+1 < len(b); i += 2 {
		v := uint16(b[i]) | uint16(b[i+1])<<8
		bits := float16.Fromfloat32(float32(v) / 65535).Bits()
		b[i] = byte(bits)
		b[i+1] = byte(bits >> 8)
	}
}
