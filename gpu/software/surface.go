package software

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

const drawableCount = 3

// Surface is a headless presentable surface with a ring of drawables.
type Surface struct {
	locker        xsync.Mutex
	resolution    types.Resolution
	format        types.PixelFormat
	edr           bool
	unavailable   bool
	ring          [drawableCount]*Texture
	next          int
	presented     uint64
	lastPresented *Texture
}

var _ gpu.Surface = (*Surface)(nil)

func NewSurface(res types.Resolution) *Surface {
	return &Surface{
		resolution: res,
		format:     types.PixelFormatBGRA8Unorm,
	}
}

func (s *Surface) ColorPixelFormat() types.PixelFormat {
	return xsync.DoR1(ctxNoLog, &s.locker, func() types.PixelFormat {
		return s.format
	})
}

func (s *Surface) SetExtendedDynamicRange(enabled bool) error {
	s.locker.Do(ctxNoLog, func() {
		s.edr = enabled
		if enabled {
			s.format = types.PixelFormatRGBA16Float
		} else {
			s.format = types.PixelFormatBGRA8Unorm
		}
	})
	return nil
}

func (s *Surface) IsExtendedDynamicRange() bool {
	return xsync.DoR1(ctxNoLog, &s.locker, func() bool {
		return s.edr
	})
}

// Resize changes the size of drawables handed out from now on.
func (s *Surface) Resize(res types.Resolution) {
	s.locker.Do(ctxNoLog, func() {
		s.resolution = res
	})
}

func (s *Surface) Resolution() types.Resolution {
	return xsync.DoR1(ctxNoLog, &s.locker, func() types.Resolution {
		return s.resolution
	})
}

// SetDrawableAvailable(false) makes CurrentDrawable return nil, as a
// compositor does when the window is occluded.
func (s *Surface) SetDrawableAvailable(available bool) {
	s.locker.Do(ctxNoLog, func() {
		s.unavailable = !available
	})
}

func (s *Surface) CurrentDrawable(ctx context.Context) (gpu.Drawable, error) {
	var (
		d   *Drawable
		err error
	)
	s.locker.Do(ctxNoLog, func() {
		if s.unavailable {
			return
		}
		idx := s.next
		s.next = (s.next + 1) % drawableCount
		tex := s.ring[idx]
		if tex == nil || tex.Width() != int(s.resolution.Width) || tex.Height() != int(s.resolution.Height) || tex.PixelFormat() != s.format {
			tex, err = newTexture(gpu.TextureDescriptor{
				Label:       fmt.Sprintf("drawable#%d", idx),
				PixelFormat: s.format,
				Width:       int(s.resolution.Width),
				Height:      int(s.resolution.Height),
				Usage:       gpu.TextureUsageRenderTarget,
			})
			if err != nil {
				return
			}
			s.ring[idx] = tex
		}
		d = &Drawable{surface: s, texture: tex}
		tex.drawable = d
	})
	if err != nil {
		return nil, fmt.Errorf("unable to allocate a drawable: %w", err)
	}
	if d == nil {
		logger.Tracef(ctx, "no drawable available")
		return nil, nil
	}
	return d, nil
}

func (s *Surface) onPresent(d *Drawable) {
	snapshot := &Texture{
		id:     types.NewObjectID(),
		desc:   d.texture.desc,
		stride: d.texture.stride,
		pix:    append([]byte(nil), d.texture.pix...),
	}
	s.locker.Do(ctxNoLog, func() {
		s.presented++
		s.lastPresented = snapshot
	})
}

// PresentedCount returns how many drawables were presented.
func (s *Surface) PresentedCount() uint64 {
	return xsync.DoR1(ctxNoLog, &s.locker, func() uint64 {
		return s.presented
	})
}

// LastPresented returns a copy of the most recently presented image, or nil.
func (s *Surface) LastPresented() *Texture {
	return xsync.DoR1(ctxNoLog, &s.locker, func() *Texture {
		return s.lastPresented
	})
}

type Drawable struct {
	surface   *Surface
	texture   *Texture
	signaled  atomic.Bool
	rendered  atomic.Bool
	presented atomic.Bool
}

var _ gpu.Drawable = (*Drawable)(nil)

func (d *Drawable) String() string {
	return fmt.Sprintf("Drawable(%s)", d.texture)
}

func (d *Drawable) Texture() gpu.Texture {
	return d.texture
}

func (d *Drawable) Present() error {
	if !d.signaled.Load() {
		return fmt.Errorf("present before the queue signaled the drawable: %w", gpu.ErrDrawableNotReady)
	}
	if !d.presented.CompareAndSwap(false, true) {
		return fmt.Errorf("drawable was already presented: %w", gpu.ErrDrawableNotReady)
	}
	d.surface.onPresent(d)
	return nil
}
