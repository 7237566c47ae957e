package software

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
)

// CommandQueue executes committed command buffers synchronously, in order.
type CommandQueue struct {
	device *Device

	locker          xsync.Mutex
	waitedDrawables map[*Drawable]struct{}
	commits         uint64
}

var _ gpu.CommandQueue = (*CommandQueue)(nil)

func (q *CommandQueue) WaitForDrawable(d gpu.Drawable) {
	drawable, ok := d.(*Drawable)
	if !ok {
		return
	}
	q.locker.Do(ctxNoLog, func() {
		q.waitedDrawables[drawable] = struct{}{}
	})
}

func (q *CommandQueue) SignalDrawable(d gpu.Drawable) {
	drawable, ok := d.(*Drawable)
	if !ok {
		return
	}
	q.locker.Do(ctxNoLog, func() {
		if _, ok := q.waitedDrawables[drawable]; !ok {
			return
		}
		delete(q.waitedDrawables, drawable)
		drawable.signaled.Store(true)
	})
}

func (q *CommandQueue) Commit(
	ctx context.Context,
	buffers ...gpu.CommandBuffer,
) (_err error) {
	logger.Tracef(ctx, "Commit(%d)", len(buffers))
	defer func() { logger.Tracef(ctx, "/Commit(%d): %v", len(buffers), _err) }()

	return xsync.DoR1(ctxNoLog, &q.locker, func() error {
		err := q.commitLocked(buffers)
		if err != nil {
			// the failed work will never signal the drawables it waited for
			clear(q.waitedDrawables)
		}
		return err
	})
}

func (q *CommandQueue) commitLocked(buffers []gpu.CommandBuffer) error {
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("foreign command buffer %T", b)
		}
		if cb.state != commandBufferStateEnded {
			return fmt.Errorf("commit while %s: %w", cb.state, gpu.ErrInvalidState)
		}
		x := &execution{
			resident:        map[types.ObjectID]struct{}{},
			pendingWrites:   map[types.ObjectID]*Fence{},
			waitedDrawables: q.waitedDrawables,
			workers:         q.device.workers,
		}
		for _, set := range cb.residencySets {
			for id := range set.committedIDs() {
				x.resident[id] = struct{}{}
			}
		}
		cb.state = commandBufferStateIdle
		for idx, o := range cb.ops {
			if err := o.execute(x); err != nil {
				return fmt.Errorf("command #%d (%T): %w", idx, o, err)
			}
		}
		q.commits++
	}
	return nil
}

// CommitCount returns the number of command buffers executed successfully.
func (q *CommandQueue) CommitCount() uint64 {
	return xsync.DoR1(ctxNoLog, &q.locker, func() uint64 {
		return q.commits
	})
}

// PendingDrawableWaits returns how many drawables are waited for and not
// signaled yet.
func (q *CommandQueue) PendingDrawableWaits() int {
	return xsync.DoR1(ctxNoLog, &q.locker, func() int {
		return len(q.waitedDrawables)
	})
}
