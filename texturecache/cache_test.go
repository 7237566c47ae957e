package texturecache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/gpu/software"
	"github.com/xaionaro-go/vidframe/types"
)

type region struct {
	id  types.ObjectID
	pix []byte
}

func newRegion() *region {
	return &region{id: types.NewObjectID(), pix: make([]byte, 4*4*4)}
}

func (r *region) frame(t *testing.T, pts time.Duration) *frame.Video {
	f, err := frame.NewVideo(r.id, types.Resolution{Width: 4, Height: 4}, types.PixelFormatBGRA8Unorm, 16, r.pix, pts, nil)
	require.NoError(t, err)
	return f
}

func TestImportReusesRegionTexture(t *testing.T) {
	ctx := context.Background()
	c, err := New(software.NewDevice(), types.PixelFormatBGRA8Unorm, 4)
	require.NoError(t, err)

	a, b := newRegion(), newRegion()
	f0 := a.frame(t, 0)
	imp0, err := c.Import(ctx, f0)
	require.NoError(t, err)
	require.Equal(t, f0, imp0.Frame)

	// importing the same frame again is a no-op
	again, err := c.Import(ctx, f0)
	require.NoError(t, err)
	require.Equal(t, imp0, again)

	f1 := b.frame(t, time.Millisecond)
	imp1, err := c.Import(ctx, f1)
	require.NoError(t, err)
	require.True(t, f0.IsReleased())
	require.NotEqual(t, imp0.Texture.AllocationID(), imp1.Texture.AllocationID())

	f2 := a.frame(t, 2*time.Millisecond)
	imp2, err := c.Import(ctx, f2)
	require.NoError(t, err)
	require.True(t, f1.IsReleased())
	require.Equal(t, imp0.Texture.AllocationID(), imp2.Texture.AllocationID())
	require.Equal(t, imp2, c.Current())

	st := c.Stats()
	require.Equal(t, 2, st.Entries)
	require.Equal(t, uint64(1), st.Hits)
	require.Equal(t, uint64(2), st.Misses)
}

func TestImportEvictsStaleRegions(t *testing.T) {
	ctx := context.Background()
	c, err := New(software.NewDevice(), types.PixelFormatBGRA8Unorm, 2)
	require.NoError(t, err)

	first := newRegion()
	imp, err := c.Import(ctx, first.frame(t, 0))
	require.NoError(t, err)
	stale := imp.Texture

	for i := 1; i <= 3; i++ {
		_, err := c.Import(ctx, newRegion().frame(t, time.Duration(i)))
		require.NoError(t, err)
	}
	require.LessOrEqual(t, c.Stats().Entries, 2)

	imp, err = c.Import(ctx, first.frame(t, 10))
	require.NoError(t, err)
	require.NotEqual(t, stale.AllocationID(), imp.Texture.AllocationID())
}

func TestImportRejectsOtherFormat(t *testing.T) {
	ctx := context.Background()
	c, err := New(software.NewDevice(), types.PixelFormatRGBA16Float, 0)
	require.NoError(t, err)

	_, err = c.Import(ctx, newRegion().frame(t, 0))
	require.Error(t, err)
	require.Nil(t, c.Current())
}

func TestFlush(t *testing.T) {
	ctx := context.Background()
	c, err := New(software.NewDevice(), types.PixelFormatBGRA8Unorm, 0)
	require.NoError(t, err)

	f := newRegion().frame(t, 0)
	_, err = c.Import(ctx, f)
	require.NoError(t, err)

	c.Flush(ctx)
	require.True(t, f.IsReleased())
	require.Nil(t, c.Current())
	require.Zero(t, c.Stats().Entries)
}
