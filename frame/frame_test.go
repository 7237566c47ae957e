package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/types"
)

func TestNewVideoValidates(t *testing.T) {
	res := types.Resolution{Width: 4, Height: 2}
	_, err := NewVideo(1, res, types.PixelFormatBGRA8Unorm, 8, make([]byte, 64), 0, nil)
	require.Error(t, err, "stride too small")

	_, err = NewVideo(1, res, types.PixelFormatBGRA8Unorm, 16, make([]byte, 16), 0, nil)
	require.Error(t, err, "buffer too small")

	_, err = NewVideo(1, res, types.PixelFormatUndefined, 16, make([]byte, 32), 0, nil)
	require.Error(t, err)

	f, err := NewVideo(1, res, types.PixelFormatBGRA8Unorm, 16, make([]byte, 32), 0, nil)
	require.NoError(t, err)
	require.Equal(t, res, f.Resolution)
}

func TestVideoReleaseOnce(t *testing.T) {
	calls := 0
	f, err := NewVideo(1, types.Resolution{Width: 1, Height: 1}, types.PixelFormatBGRA8Unorm, 4, make([]byte, 4), 0, func() { calls++ })
	require.NoError(t, err)
	f.Release()
	f.Release()
	require.Equal(t, 1, calls)
	require.True(t, f.IsReleased())
}

func TestGetStorageKeepsIdentityWhileLargeEnough(t *testing.T) {
	s := GetStorage(64)
	require.Len(t, s.Bytes, 64)
	id := s.ID
	require.NotZero(t, id)

	s.Bytes = s.Bytes[:cap(s.Bytes)]
	StoragePool.Put(s)

	grown := GetStorage(1 << 20)
	require.Len(t, grown.Bytes, 1<<20)
	if grown == s {
		require.NotEqual(t, id, grown.ID, "a reallocated region must get a new identity")
	}
}
