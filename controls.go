// controls.go implements the queue through which UI events reach the draw routine.

package vidframe

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
	"go.uber.org/atomic"
)

// Command is a state change requested from outside the draw routine. It is
// applied at the start of the next draw.
type Command interface {
	fmt.Stringer
	apply(ctx context.Context, r *Renderer)
}

type CommandSetScalingMode struct {
	Mode types.ScalingMode
}

func (c CommandSetScalingMode) String() string {
	return fmt.Sprintf("SetScalingMode(%s)", c.Mode)
}

func (c CommandSetScalingMode) apply(ctx context.Context, r *Renderer) {
	r.setScalingMode(ctx, c.Mode)
}

// CommandToggleScaling switches between Off and the last other mode.
type CommandToggleScaling struct{}

func (CommandToggleScaling) String() string {
	return "ToggleScaling"
}

func (CommandToggleScaling) apply(ctx context.Context, r *Renderer) {
	if r.mode == types.ScalingModeOff {
		r.setScalingMode(ctx, r.lastScalingMode)
		return
	}
	r.setScalingMode(ctx, types.ScalingModeOff)
}

type CommandResize struct {
	Viewport types.Resolution
}

func (c CommandResize) String() string {
	return fmt.Sprintf("Resize(%s)", c.Viewport)
}

func (c CommandResize) apply(ctx context.Context, r *Renderer) {
	if c.Viewport.IsZero() {
		logger.Warnf(ctx, "ignoring a resize to %s", c.Viewport)
		return
	}
	r.viewport = c.Viewport
	r.scaling.Invalidate(ctx)
}

// commandResetSource makes the frame source accept a timestamp it
// already served, which is needed after a seek.
type commandResetSource struct{}

func (commandResetSource) String() string {
	return "ResetSource"
}

func (commandResetSource) apply(ctx context.Context, r *Renderer) {
	r.source.Reset()
}

type controlQueue struct {
	locker      xsync.Mutex
	pending     []Command
	invalidated atomic.Bool
}

func (q *controlQueue) enqueue(ctx context.Context, cmd Command) {
	logger.Debugf(ctx, "enqueue %s", cmd)
	q.locker.Do(ctx, func() {
		q.pending = append(q.pending, cmd)
	})
	q.invalidated.Store(true)
}

// drain takes the pending commands; it does not lock when there are none.
func (q *controlQueue) drain(ctx context.Context) []Command {
	if !q.invalidated.Swap(false) {
		return nil
	}
	return xsync.DoR1(ctx, &q.locker, func() []Command {
		cmds := q.pending
		q.pending = nil
		return cmds
	})
}
