// frame.go defines Video, a decoded image borrowed from a decoder.

// Package frame provides the decoded-image types handed from a decoder to
// the render pipeline.
package frame

import (
	"fmt"
	"time"

	"github.com/xaionaro-go/vidframe/types"
	"go.uber.org/atomic"
)

// Video is a decoded image at a presentation timestamp. It is owned by the
// decoder that produced it; the pipeline borrows it until Release is
// called, after which Pix must not be touched.
type Video struct {
	// MemoryID identifies the memory region behind Pix. Two Video values
	// with equal MemoryID alias the same bytes, which lets importers reuse
	// whatever they derived from that region.
	MemoryID types.ObjectID

	Resolution  types.Resolution
	PixelFormat types.PixelFormat
	Stride      int
	Pix         []byte
	PTS         time.Duration

	released  atomic.Bool
	releaseFn func()
}

// NewVideo wraps pix without copying. releaseFn may be nil.
func NewVideo(
	memoryID types.ObjectID,
	res types.Resolution,
	pixFmt types.PixelFormat,
	stride int,
	pix []byte,
	pts time.Duration,
	releaseFn func(),
) (*Video, error) {
	if res.IsZero() {
		return nil, fmt.Errorf("invalid resolution %s", res)
	}
	if !pixFmt.IsValid() {
		return nil, fmt.Errorf("invalid pixel format %s", pixFmt)
	}
	minStride := int(res.Width) * pixFmt.BytesPerPixel()
	if stride < minStride {
		return nil, fmt.Errorf("stride %d is less than %d required by %s@%s", stride, minStride, pixFmt, res)
	}
	if len(pix) < stride*int(res.Height) {
		return nil, fmt.Errorf("buffer of %d bytes is too small for %d rows of stride %d", len(pix), res.Height, stride)
	}
	return &Video{
		MemoryID:    memoryID,
		Resolution:  res,
		PixelFormat: pixFmt,
		Stride:      stride,
		Pix:         pix,
		PTS:         pts,
		releaseFn:   releaseFn,
	}, nil
}

func (f *Video) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Video(%s:%s@%v, mem:%s)", f.Resolution, f.PixelFormat, f.PTS, f.MemoryID)
}

// Release returns the memory to the decoder. Safe to call more than once.
func (f *Video) Release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	if f.releaseFn != nil {
		f.releaseFn()
	}
}

func (f *Video) IsReleased() bool {
	return f.released.Load()
}
