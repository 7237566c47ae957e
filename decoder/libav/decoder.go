// decoder.go implements a decoder of local media files backed by libav.

// Package libav decodes the video track of a media file ahead of playback
// into a short ring of converted frames.
package libav

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/asticode/go-astikit"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/vidframe/avconv"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/helpers/closuresignaler"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xcontext"
	"github.com/xaionaro-go/xsync"
)

const DefaultRingSize = 4

type Config struct {
	// RingSize is how many frames are decoded ahead.
	RingSize int
}

type Decoder struct {
	*closuresignaler.ClosureSignaler
	URL string

	closer        *astikit.Closer
	formatContext *astiav.FormatContext
	stream        *astiav.Stream
	codec         *astiav.Codec
	codecContext  *astiav.CodecContext
	packet        *astiav.Packet
	decoded       *astiav.Frame
	converter     *converter

	transferFunction types.TransferFunction
	pixelFormat      types.PixelFormat
	resolution       types.Resolution
	duration         typing.Optional[time.Duration]
	ringSize         int

	locker      xsync.Mutex
	ring        []*frame.Video
	lastCopied  typing.Optional[time.Duration]
	seekRequest typing.Optional[time.Duration]
	eof         bool
	wakeup      chan struct{}
	loopDone    chan struct{}
}

// New opens url, selects its first video track and starts decoding in the
// background.
func New(
	ctx context.Context,
	url string,
	cfg Config,
) (_ret *Decoder, _err error) {
	logger.Debugf(ctx, "New(ctx, '%s')", url)
	defer func() { logger.Debugf(ctx, "/New(ctx, '%s'): %v", url, _err) }()

	if url == "" {
		return nil, fmt.Errorf("the provided URL is empty")
	}
	if cfg.RingSize <= 0 {
		cfg.RingSize = DefaultRingSize
	}

	d := &Decoder{
		ClosureSignaler: closuresignaler.New(),
		URL:             url,
		closer:          astikit.NewCloser(),
		ringSize:        cfg.RingSize,
		wakeup:          make(chan struct{}, 1),
		loopDone:        make(chan struct{}),
	}
	defer func() {
		if _err != nil {
			_ = d.closer.Close()
		}
	}()

	d.formatContext = astiav.AllocFormatContext()
	if d.formatContext == nil {
		return nil, fmt.Errorf("unable to allocate a format context")
	}
	d.closer.Add(d.formatContext.Free)

	if err := d.formatContext.OpenInput(url, nil, nil); err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", url, err)
	}
	d.closer.Add(d.formatContext.CloseInput)

	if err := d.formatContext.FindStreamInfo(nil); err != nil {
		return nil, fmt.Errorf("unable to get stream info of '%s': %w", url, err)
	}

	d.stream = avconv.FindVideoStream(d.formatContext)
	if d.stream == nil {
		return nil, fmt.Errorf("'%s' has no video track", url)
	}
	cp := d.stream.CodecParameters()
	d.codec = astiav.FindDecoder(cp.CodecID())
	if d.codec == nil {
		return nil, fmt.Errorf("no decoder for %s", cp.CodecID())
	}
	if err := d.openCodecContext(); err != nil {
		return nil, err
	}

	d.packet = astiav.AllocPacket()
	d.closer.Add(d.packet.Free)
	d.decoded = astiav.AllocFrame()
	d.closer.Add(d.decoded.Free)

	d.transferFunction = avconv.TransferFunction(cp.ColorTransferCharacteristic())
	d.pixelFormat = d.transferFunction.PixelFormat()
	d.resolution = types.Resolution{Width: uint32(cp.Width()), Height: uint32(cp.Height())}
	d.duration = avconv.ContainerDuration(d.formatContext)
	logger.Debugf(ctx, "opened %s: %s %s, %s, duration: %v", url, cp.CodecID(), d.resolution, d.transferFunction, d.duration)

	ctx = xcontext.DetachDone(ctx)
	observability.Go(ctx, func(ctx context.Context) {
		defer close(d.loopDone)
		d.loop(ctx)
	})
	return d, nil
}

func (d *Decoder) String() string {
	return fmt.Sprintf("LibavDecoder(%s)", d.URL)
}

// openCodecContext (re)creates the codec context; also used to drop the
// decoder state after a seek.
func (d *Decoder) openCodecContext() error {
	if d.codecContext != nil {
		d.codecContext.Free()
		d.codecContext = nil
	}
	cc := astiav.AllocCodecContext(d.codec)
	if cc == nil {
		return fmt.Errorf("unable to allocate a codec context for %s", d.codec.Name())
	}
	if err := d.stream.CodecParameters().ToCodecContext(cc); err != nil {
		cc.Free()
		return fmt.Errorf("codecParameters.ToCodecContext(...) returned error: %w", err)
	}
	if err := cc.Open(d.codec, nil); err != nil {
		cc.Free()
		return fmt.Errorf("unable to open the codec %s: %w", d.codec.Name(), err)
	}
	d.codecContext = cc
	return nil
}

func (d *Decoder) notify() {
	select {
	case d.wakeup <- struct{}{}:
	default:
	}
}

func (d *Decoder) loop(ctx context.Context) {
	logger.Debugf(ctx, "loop")
	defer func() { logger.Debugf(ctx, "/loop") }()
	for {
		if d.IsClosed() {
			return
		}

		seekTo, wantMore := xsync.DoR2(ctx, &d.locker, func() (typing.Optional[time.Duration], bool) {
			seekTo := d.seekRequest
			d.seekRequest.Unset()
			return seekTo, !d.eof && len(d.ring) < d.ringSize
		})
		if seekTo.IsSet() {
			if err := d.seek(ctx, seekTo.Get()); err != nil {
				logger.Errorf(ctx, "unable to seek to %v: %v", seekTo.Get(), err)
			}
			continue
		}
		if !wantMore {
			select {
			case <-d.CloseChan():
				return
			case <-d.wakeup:
			}
			continue
		}

		f, err := d.decodeNext(ctx)
		switch {
		case errors.Is(err, astiav.ErrEof):
			logger.Debugf(ctx, "reached the end of '%s'", d.URL)
			d.locker.Do(ctx, func() {
				d.eof = true
			})
		case err != nil:
			logger.Errorf(ctx, "unable to decode '%s': %v", d.URL, err)
			d.locker.Do(ctx, func() {
				d.eof = true
			})
		case f != nil:
			d.locker.Do(ctx, func() {
				if d.seekRequest.IsSet() {
					f.Release()
					return
				}
				d.ring = append(d.ring, f)
			})
		}
	}
}

// decodeNext reads packets until the codec outputs a frame.
func (d *Decoder) decodeNext(ctx context.Context) (*frame.Video, error) {
	for {
		err := d.codecContext.ReceiveFrame(d.decoded)
		switch {
		case err == nil:
			f, err := d.convert(ctx, d.decoded)
			d.decoded.Unref()
			return f, err
		case errors.Is(err, astiav.ErrEof):
			return nil, err
		case !errors.Is(err, astiav.ErrEagain):
			return nil, fmt.Errorf("unable to receive a frame: %w", err)
		}

		err = d.formatContext.ReadFrame(d.packet)
		switch {
		case errors.Is(err, astiav.ErrEof):
			if err := d.codecContext.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
				return nil, fmt.Errorf("unable to drain the decoder: %w", err)
			}
			continue
		case err != nil:
			return nil, fmt.Errorf("unable to read a packet: %w", err)
		}
		if d.packet.StreamIndex() != d.stream.Index() {
			d.packet.Unref()
			continue
		}
		err = d.codecContext.SendPacket(d.packet)
		d.packet.Unref()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			return nil, fmt.Errorf("unable to send a packet: %w", err)
		}
	}
}

func (d *Decoder) convert(ctx context.Context, src *astiav.Frame) (*frame.Video, error) {
	pts := avconv.Duration(src.Pts(), d.stream.TimeBase())
	if !pts.IsSet() {
		logger.Debugf(ctx, "dropping a frame without a timestamp")
		return nil, nil
	}
	if d.converter == nil || !d.converter.Matches(src) {
		if d.converter != nil {
			_ = d.converter.Close(ctx)
		}
		c, err := newConverter(ctx, types.Resolution{Width: uint32(src.Width()), Height: uint32(src.Height())}, src.PixelFormat(), d.pixelFormat)
		if err != nil {
			return nil, err
		}
		d.converter = c
		logger.Debugf(ctx, "using %s", c)
	}
	return d.converter.Convert(ctx, src, pts.Get())
}

func (d *Decoder) seek(ctx context.Context, t time.Duration) error {
	logger.Debugf(ctx, "seek(%v)", t)
	ts := avconv.FromDuration(t, d.stream.TimeBase())
	if err := d.formatContext.SeekFrame(d.stream.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return fmt.Errorf("unable to seek: %w", err)
	}
	if err := d.openCodecContext(); err != nil {
		return err
	}
	d.locker.Do(ctx, func() {
		d.eof = false
	})
	return nil
}

// dueIndexLocked returns the index of the latest ring frame due at t, or -1.
func (d *Decoder) dueIndexLocked(t time.Duration) int {
	idx := -1
	for i, f := range d.ring {
		if f.PTS > t {
			break
		}
		idx = i
	}
	return idx
}

func (d *Decoder) HasNewFrame(t time.Duration) bool {
	return xsync.DoR1(xsync.WithNoLogging(context.Background(), true), &d.locker, func() bool {
		idx := d.dueIndexLocked(t)
		if idx < 0 {
			return false
		}
		return !d.lastCopied.IsSet() || d.ring[idx].PTS != d.lastCopied.Get()
	})
}

// CopyFrame hands out the latest decoded frame due at t; earlier frames
// are dropped.
func (d *Decoder) CopyFrame(
	ctx context.Context,
	t time.Duration,
) (_ret *frame.Video, _err error) {
	logger.Tracef(ctx, "CopyFrame(%v)", t)
	defer func() { logger.Tracef(ctx, "/CopyFrame(%v): %s %v", t, _ret, _err) }()
	if d.IsClosed() {
		return nil, fmt.Errorf("%s is closed", d)
	}

	f := xsync.DoR1(ctx, &d.locker, func() *frame.Video {
		idx := d.dueIndexLocked(t)
		if idx < 0 {
			return nil
		}
		for _, stale := range d.ring[:idx] {
			stale.Release()
		}
		f := d.ring[idx]
		d.ring = append(d.ring[:0], d.ring[idx+1:]...)
		d.lastCopied = typing.Opt(f.PTS)
		return f
	})
	d.notify()
	return f, nil
}

func (d *Decoder) Duration() typing.Optional[time.Duration] {
	return d.duration
}

func (d *Decoder) TransferFunction() types.TransferFunction {
	return d.transferFunction
}

func (d *Decoder) Resolution() types.Resolution {
	return d.resolution
}

// Seek drops the decoded frames and restarts decoding from the key frame
// at or before t.
func (d *Decoder) Seek(ctx context.Context, t time.Duration) error {
	logger.Debugf(ctx, "Seek(%v)", t)
	d.locker.Do(ctx, func() {
		d.releaseRingLocked()
		d.lastCopied.Unset()
		d.seekRequest = typing.Opt(t)
	})
	d.notify()
	return nil
}

func (d *Decoder) releaseRingLocked() {
	for _, f := range d.ring {
		f.Release()
	}
	d.ring = d.ring[:0]
}

func (d *Decoder) Close(ctx context.Context) (_err error) {
	logger.Debugf(ctx, "Close")
	defer func() { logger.Debugf(ctx, "/Close: %v", _err) }()
	if !d.ClosureSignaler.Close(ctx) {
		return nil
	}
	<-d.loopDone

	d.locker.Do(ctx, d.releaseRingLocked)
	if d.converter != nil {
		_ = d.converter.Close(ctx)
	}
	if d.codecContext != nil {
		d.codecContext.Free()
		d.codecContext = nil
	}
	return d.closer.Close()
}
