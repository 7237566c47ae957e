// source.go implements the non-blocking frame acquisition of the render loop.

// Package framesource wraps a decoder into the per-tick frame acquisition
// the renderer needs: it never waits for a decode and never serves the same
// frame twice.
package framesource

import (
	"context"
	"fmt"
	"time"

	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/logger"
	"go.uber.org/atomic"
)

type Source struct {
	decoder    Decoder
	lastServed typing.Optional[time.Duration]
	failures   atomic.Uint64
}

func New(decoder Decoder) *Source {
	return &Source{decoder: decoder}
}

func (s *Source) String() string {
	return fmt.Sprintf("FrameSource(%T)", s.decoder)
}

func (s *Source) Decoder() Decoder {
	return s.decoder
}

func (s *Source) HasNewFrame(t time.Duration) bool {
	return s.decoder.HasNewFrame(t)
}

// Acquire returns a frame due at t that was not served before. On false
// the caller keeps showing what it has.
func (s *Source) Acquire(
	ctx context.Context,
	t time.Duration,
) (_ret *frame.Video, _ok bool) {
	logger.Tracef(ctx, "Acquire(%v)", t)
	defer func() { logger.Tracef(ctx, "/Acquire(%v): %s %t", t, _ret, _ok) }()

	if !s.decoder.HasNewFrame(t) {
		return nil, false
	}
	f, err := s.decoder.CopyFrame(ctx, t)
	if err != nil {
		s.failures.Inc()
		logger.Debugf(ctx, "unable to copy a frame at %v: %v", t, err)
		return nil, false
	}
	if f == nil {
		return nil, false
	}
	if s.lastServed.IsSet() && s.lastServed.Get() == f.PTS {
		f.Release()
		return nil, false
	}
	s.lastServed = typing.Opt(f.PTS)
	return f, true
}

// LastServed is the timestamp of the last frame returned by Acquire.
func (s *Source) LastServed() typing.Optional[time.Duration] {
	return s.lastServed
}

// Reset forgets the last served frame; used after a seek.
func (s *Source) Reset() {
	s.lastServed.Unset()
}

// Failures counts frames the decoder failed to hand out.
func (s *Source) Failures() uint64 {
	return s.failures.Load()
}
