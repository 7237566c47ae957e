// testpattern.go implements a synthetic decoder drawing a moving gradient.

// Package testpattern provides a deterministic decoder that needs neither
// a media file nor libav.
package testpattern

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/x448/float16"
	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
)

type Config struct {
	Resolution       types.Resolution
	FrameRate        float64
	Duration         time.Duration
	TransferFunction types.TransferFunction
}

func DefaultConfig() Config {
	return Config{
		Resolution: types.Resolution{Width: 640, Height: 360},
		FrameRate:  30,
		Duration:   10 * time.Second,
	}
}

type Decoder struct {
	config      Config
	pixelFormat types.PixelFormat

	locker     xsync.Mutex
	lastCopied int64
	closed     bool
}

func New(cfg Config) (*Decoder, error) {
	if cfg.Resolution.IsZero() {
		return nil, fmt.Errorf("invalid resolution %s", cfg.Resolution)
	}
	if !(cfg.FrameRate > 0) {
		return nil, fmt.Errorf("invalid frame rate %v", cfg.FrameRate)
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("invalid duration %v", cfg.Duration)
	}
	return &Decoder{
		config:      cfg,
		pixelFormat: cfg.TransferFunction.PixelFormat(),
		lastCopied:  -1,
	}, nil
}

func (d *Decoder) String() string {
	return fmt.Sprintf("TestPattern(%s@%vfps, %v, %s)", d.config.Resolution, d.config.FrameRate, d.config.Duration, d.config.TransferFunction)
}

func (d *Decoder) frameIndex(t time.Duration) int64 {
	if t < 0 {
		return -1
	}
	if t > d.config.Duration {
		t = d.config.Duration
	}
	idx := int64(math.Floor(t.Seconds() * d.config.FrameRate))
	if last := d.frameCount() - 1; idx > last {
		idx = last
	}
	return idx
}

func (d *Decoder) frameCount() int64 {
	return int64(math.Ceil(d.config.Duration.Seconds() * d.config.FrameRate))
}

// FramePTS returns the presentation time of frame idx.
func (d *Decoder) FramePTS(idx int64) time.Duration {
	return time.Duration(float64(idx) / d.config.FrameRate * float64(time.Second))
}

func (d *Decoder) HasNewFrame(t time.Duration) bool {
	idx := d.frameIndex(t)
	return xsync.DoR1(xsync.WithNoLogging(context.Background(), true), &d.locker, func() bool {
		return !d.closed && idx >= 0 && idx != d.lastCopied
	})
}

func (d *Decoder) CopyFrame(
	ctx context.Context,
	t time.Duration,
) (_ret *frame.Video, _err error) {
	logger.Tracef(ctx, "CopyFrame(%v)", t)
	defer func() { logger.Tracef(ctx, "/CopyFrame(%v): %s %v", t, _ret, _err) }()

	idx := d.frameIndex(t)
	if idx < 0 {
		return nil, nil
	}
	closed := xsync.DoR1(ctx, &d.locker, func() bool {
		if d.closed {
			return true
		}
		d.lastCopied = idx
		return false
	})
	if closed {
		return nil, fmt.Errorf("%s is closed", d)
	}

	res := d.config.Resolution
	stride := int(res.Width) * d.pixelFormat.BytesPerPixel()
	s := frame.GetStorage(stride * int(res.Height))
	d.paint(s.Bytes, stride, idx)
	f, err := frame.NewPooledVideo(s, res, d.pixelFormat, stride, d.FramePTS(idx))
	if err != nil {
		frame.StoragePool.Put(s)
		return nil, err
	}
	return f, nil
}

// Color returns the color of pixel (x, y) of frame idx as normalized RGBA.
func (d *Decoder) Color(x, y int, idx int64) [4]float32 {
	res := d.config.Resolution
	return [4]float32{
		float32(idx%64) / 63,
		float32(y) / float32(max(1, res.Height-1)),
		float32(x) / float32(max(1, res.Width-1)),
		1,
	}
}

func (d *Decoder) paint(pix []byte, stride int, idx int64) {
	res := d.config.Resolution
	for y := 0; y < int(res.Height); y++ {
		row := pix[y*stride:]
		for x := 0; x < int(res.Width); x++ {
			c := d.Color(x, y, idx)
			switch d.pixelFormat {
			case types.PixelFormatBGRA8Unorm:
				p := row[x*4:]
				p[0] = byte(math.Round(float64(c[2]) * 255))
				p[1] = byte(math.Round(float64(c[1]) * 255))
				p[2] = byte(math.Round(float64(c[0]) * 255))
				p[3] = byte(math.Round(float64(c[3]) * 255))
			case types.PixelFormatRGBA16Float:
				p := row[x*8:]
				for i, v := range c {
					bits := float16.Fromfloat32(v).Bits()
					p[2*i] = byte(bits)
					p[2*i+1] = byte(bits >> 8)
				}
			}
		}
	}
}

func (d *Decoder) Duration() typing.Optional[time.Duration] {
	return typing.Opt(d.config.Duration)
}

func (d *Decoder) TransferFunction() types.TransferFunction {
	return d.config.TransferFunction
}

func (d *Decoder) Resolution() types.Resolution {
	return d.config.Resolution
}

// Seek makes the frame at t available again.
func (d *Decoder) Seek(ctx context.Context, t time.Duration) error {
	logger.Debugf(ctx, "Seek(%v)", t)
	d.locker.Do(ctx, func() {
		d.lastCopied = -1
	})
	return nil
}

func (d *Decoder) Close(ctx context.Context) error {
	d.locker.Do(ctx, func() {
		d.closed = true
	})
	return nil
}
