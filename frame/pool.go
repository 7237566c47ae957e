// pool.go implements recycling of pixel storage between decoded frames.

package frame

import (
	"time"

	"github.com/xaionaro-go/vidframe/pool"
	"github.com/xaionaro-go/vidframe/types"
)

// Storage is a reusable memory region for pixel data. Its ID is stable for
// as long as Bytes keeps the same backing array.
type Storage struct {
	ID    types.ObjectID
	Bytes []byte
}

var StoragePool = pool.NewPool(
	func() *Storage { return &Storage{} },
	func(s *Storage) {},
	func(s *Storage) { s.Bytes = nil },
)

// GetStorage returns a region of exactly size bytes, reusing a pooled
// backing array when it is large enough.
func GetStorage(size int) *Storage {
	s := StoragePool.Get()
	if cap(s.Bytes) < size {
		s.Bytes = make([]byte, size)
		s.ID = types.NewObjectID()
	}
	s.Bytes = s.Bytes[:size]
	return s
}

// NewPooledVideo wraps s into a Video that returns s to StoragePool on release.
func NewPooledVideo(
	s *Storage,
	res types.Resolution,
	pixFmt types.PixelFormat,
	stride int,
	pts time.Duration,
) (*Video, error) {
	return NewVideo(s.ID, res, pixFmt, stride, s.Bytes, pts, func() {
		StoragePool.Put(s)
	})
}
