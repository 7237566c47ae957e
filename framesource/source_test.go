package framesource

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/types"
)

type fakeDecoder struct {
	t      *testing.T
	pts    time.Duration
	hasNew bool
	err    error
	nilOut bool
}

func (d *fakeDecoder) HasNewFrame(time.Duration) bool { return d.hasNew }

func (d *fakeDecoder) CopyFrame(ctx context.Context, t time.Duration) (*frame.Video, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.nilOut {
		return nil, nil
	}
	f, err := frame.NewVideo(types.NewObjectID(), types.Resolution{Width: 1, Height: 1}, types.PixelFormatBGRA8Unorm, 4, make([]byte, 4), d.pts, nil)
	require.NoError(d.t, err)
	return f, nil
}

func (d *fakeDecoder) Duration() typing.Optional[time.Duration] { return typing.Optional[time.Duration]{} }
func (d *fakeDecoder) TransferFunction() types.TransferFunction { return types.TransferFunctionSDR }
func (d *fakeDecoder) Resolution() types.Resolution             { return types.Resolution{Width: 1, Height: 1} }
func (d *fakeDecoder) Close(context.Context) error              { return nil }

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	dec := &fakeDecoder{t: t, hasNew: true, pts: time.Second}
	s := New(dec)

	f, ok := s.Acquire(ctx, time.Second)
	require.True(t, ok)
	require.Equal(t, time.Second, f.PTS)
	require.Equal(t, typing.Opt(time.Second), s.LastServed())

	// the same timestamp is not served twice
	f, ok = s.Acquire(ctx, time.Second)
	require.False(t, ok)
	require.Nil(t, f)

	dec.pts = 2 * time.Second
	f, ok = s.Acquire(ctx, 2*time.Second)
	require.True(t, ok)
	require.Equal(t, 2*time.Second, f.PTS)
}

func TestAcquireNothingNew(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeDecoder{t: t})
	require.False(t, s.HasNewFrame(0))
	_, ok := s.Acquire(ctx, 0)
	require.False(t, ok)
	require.False(t, s.LastServed().IsSet())
}

func TestAcquireDecodeFailure(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeDecoder{t: t, hasNew: true, err: fmt.Errorf("corrupt")})
	_, ok := s.Acquire(ctx, 0)
	require.False(t, ok)
	require.Equal(t, uint64(1), s.Failures())

	s = New(&fakeDecoder{t: t, hasNew: true, nilOut: true})
	_, ok = s.Acquire(ctx, 0)
	require.False(t, ok)
}

func TestResetAllowsSameTimestamp(t *testing.T) {
	ctx := context.Background()
	s := New(&fakeDecoder{t: t, hasNew: true})
	_, ok := s.Acquire(ctx, 0)
	require.True(t, ok)
	s.Reset()
	_, ok = s.Acquire(ctx, 0)
	require.True(t, ok)
}
