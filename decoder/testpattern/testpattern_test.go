package testpattern

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/types"
)

func TestFramesFollowTime(t *testing.T) {
	ctx := context.Background()
	d, err := New(Config{
		Resolution: types.Resolution{Width: 8, Height: 4},
		FrameRate:  10,
		Duration:   time.Second,
	})
	require.NoError(t, err)
	defer d.Close(ctx)

	require.True(t, d.HasNewFrame(0))
	f, err := d.CopyFrame(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, time.Duration(0), f.PTS)
	require.Equal(t, types.PixelFormatBGRA8Unorm, f.PixelFormat)
	require.Equal(t, byte(255), f.Pix[3])
	f.Release()

	require.False(t, d.HasNewFrame(90*time.Millisecond))
	require.True(t, d.HasNewFrame(100*time.Millisecond))

	f, err = d.CopyFrame(ctx, 250*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 200*time.Millisecond, f.PTS)
	f.Release()

	// past the end the last frame is held
	f, err = d.CopyFrame(ctx, 5*time.Second)
	require.NoError(t, err)
	require.Equal(t, 900*time.Millisecond, f.PTS)
	f.Release()
	require.False(t, d.HasNewFrame(6*time.Second))

	require.NoError(t, d.Seek(ctx, 0))
	require.True(t, d.HasNewFrame(6*time.Second))
}

func TestHalfFloatFrames(t *testing.T) {
	ctx := context.Background()
	d, err := New(Config{
		Resolution:       types.Resolution{Width: 2, Height: 2},
		FrameRate:        1,
		Duration:         time.Second,
		TransferFunction: types.TransferFunctionPQ,
	})
	require.NoError(t, err)

	f, err := d.CopyFrame(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, types.PixelFormatRGBA16Float, f.PixelFormat)
	require.Len(t, f.Pix, 2*2*8)
}

func TestInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
