package software

import (
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/types"
	"go.uber.org/atomic"
)

type Buffer struct {
	id       types.ObjectID
	contents []byte
	released atomic.Bool
}

var _ gpu.Buffer = (*Buffer)(nil)

func (b *Buffer) AllocationID() types.ObjectID { return b.id }
func (b *Buffer) AllocatedSize() uint64        { return uint64(len(b.contents)) }
func (b *Buffer) Contents() []byte             { return b.contents }
func (b *Buffer) Release()                     { b.released.Store(true) }

type Fence struct {
	id types.ObjectID
}

var _ gpu.Fence = (*Fence)(nil)

func (f *Fence) FenceID() types.ObjectID { return f.id }
