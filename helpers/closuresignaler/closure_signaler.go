// closure_signaler.go signals that a GPU stage or a decoder has been closed.

// Package closuresignaler lets a resource announce its closure once to any
// number of waiters.
package closuresignaler

import (
	"context"
	"errors"

	"go.uber.org/atomic"

	"github.com/xaionaro-go/vidframe/logger"
)

var ErrClosed = errors.New("closed")

type ClosureSignaler struct {
	closed atomic.Bool
	c      chan struct{}
}

func New() *ClosureSignaler {
	return &ClosureSignaler{
		c: make(chan struct{}),
	}
}

func (c *ClosureSignaler) CloseChan() <-chan struct{} {
	return c.c
}

// Close reports true only to the caller that actually closed it, so that
// caller alone releases the resources behind it.
func (c *ClosureSignaler) Close(ctx context.Context) bool {
	logger.Tracef(ctx, "Close")
	if !c.closed.CompareAndSwap(false, true) {
		logger.Tracef(ctx, "/Close: already closed")
		return false
	}
	close(c.c)
	logger.Tracef(ctx, "/Close")
	return true
}

func (c *ClosureSignaler) IsClosed() bool {
	return c.closed.Load()
}

// Err returns ErrClosed once closed, nil before.
func (c *ClosureSignaler) Err() error {
	if c.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Wait blocks until closed or ctx is done.
func (c *ClosureSignaler) Wait(ctx context.Context) error {
	select {
	case <-c.c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
