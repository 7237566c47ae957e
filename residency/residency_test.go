package residency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/gpu/software"
	"github.com/xaionaro-go/vidframe/types"
)

func ids(allocs []gpu.Allocation) []types.ObjectID {
	var r []types.ObjectID
	for _, a := range allocs {
		r = append(r, a.AllocationID())
	}
	return r
}

func TestRebuildReplacesTheSet(t *testing.T) {
	ctx := context.Background()
	dev := software.NewDevice()
	set, err := dev.MakeResidencySet()
	require.NoError(t, err)
	m := New(set)

	buf, err := dev.MakeBuffer(8)
	require.NoError(t, err)
	texA, err := dev.MakeTexture(gpu.TextureDescriptor{PixelFormat: types.PixelFormatBGRA8Unorm, Width: 2, Height: 2})
	require.NoError(t, err)
	texB, err := dev.MakeTexture(gpu.TextureDescriptor{PixelFormat: types.PixelFormatBGRA8Unorm, Width: 2, Height: 2})
	require.NoError(t, err)

	require.NoError(t, m.Rebuild(ctx, texA, buf, texB))
	require.ElementsMatch(t, []types.ObjectID{texA.AllocationID(), buf.AllocationID(), texB.AllocationID()}, ids(m.Committed()))

	require.NoError(t, m.Rebuild(ctx, texB, buf))
	require.ElementsMatch(t, []types.ObjectID{texB.AllocationID(), buf.AllocationID()}, ids(m.Committed()))

	// the same membership is committed again
	require.NoError(t, m.Rebuild(ctx, texB, buf))
	require.Equal(t, 3, set.(*software.ResidencySet).CommitCount())
}

func TestRebuildRejectsNil(t *testing.T) {
	ctx := context.Background()
	dev := software.NewDevice()
	set, err := dev.MakeResidencySet()
	require.NoError(t, err)
	m := New(set)

	buf, err := dev.MakeBuffer(8)
	require.NoError(t, err)
	require.NoError(t, m.Rebuild(ctx, buf))
	require.Error(t, m.Rebuild(ctx, buf, nil))
	require.Len(t, m.Committed(), 1)
}
