// state.go keeps the scaler instance consistent with the latest decision.

package scaling

import (
	"context"
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/scaler"
	"github.com/xaionaro-go/vidframe/types"
)

// Scaler is either NoScaler or ActiveScaler.
type Scaler interface {
	fmt.Stringer
	isScaler()
}

type NoScaler struct{}

func (NoScaler) isScaler()      {}
func (NoScaler) String() string { return "NoScaler" }

// ActiveScaler is a configured scaler stage; the stage owns its output
// texture, so a handle without a texture cannot be expressed.
type ActiveScaler struct {
	Stage *scaler.Spatial
}

func (ActiveScaler) isScaler() {}
func (s ActiveScaler) String() string {
	return fmt.Sprintf("ActiveScaler(%s)", s.Stage)
}

// BuildFunc creates a scaler stage for the given dimensions.
type BuildFunc func(ctx context.Context, input, output types.Resolution) (*scaler.Spatial, error)

// State persists across draws. It must only be used from the draw routine.
type State struct {
	decision   Decision
	configured bool
	scaler     Scaler
	rebuilds   uint64

	// set when the device refused the scaler for the current decision
	refused bool
}

func NewState() *State {
	return &State{scaler: NoScaler{}}
}

func (s *State) Decision() Decision {
	return s.decision
}

func (s *State) Scaler() Scaler {
	return s.scaler
}

// Rebuilds returns how many scaler stages were built so far.
func (s *State) Rebuilds() uint64 {
	return s.rebuilds
}

// MemorySize is the GPU memory held by the current scaler stage.
func (s *State) MemorySize() uint64 {
	if a, ok := s.scaler.(ActiveScaler); ok {
		return a.Stage.MemorySize()
	}
	return 0
}

// Invalidate tears the scaler down; the next Reconcile rebuilds it if the
// decision still asks for one.
func (s *State) Invalidate(ctx context.Context) {
	logger.Debugf(ctx, "Invalidate")
	s.configured = false
	s.refused = false
	s.teardown(ctx)
}

func (s *State) teardown(ctx context.Context) {
	a, ok := s.scaler.(ActiveScaler)
	if !ok {
		return
	}
	if err := a.Stage.Close(ctx); err != nil {
		logger.Errorf(ctx, "unable to close %s: %v", a.Stage, err)
	}
	s.scaler = NoScaler{}
}

// Reconcile brings the scaler in line with d and returns the decision that
// is actually rendered: if the scaler turns out to be unsupported the path
// falls back to passthrough or downsampling.
//
// Any change of mode, viewport, input or target tears the scaler down.
func (s *State) Reconcile(
	ctx context.Context,
	d Decision,
	build BuildFunc,
) (_ret Decision, _err error) {
	logger.Tracef(ctx, "Reconcile")
	defer func() { logger.Tracef(ctx, "/Reconcile: %s, %v", _ret, _err) }()

	if s.configured {
		prev := s.decision
		if prev.Mode != d.Mode || prev.Viewport != d.Viewport || prev.Input != d.Input || prev.Target != d.Target {
			logger.Debugf(ctx, "scaling changed from %s to %s", prev, d)
			s.refused = false
			s.teardown(ctx)
		}
	}
	s.decision = d
	s.configured = true

	if d.Path != PathSpatialUpscale {
		s.teardown(ctx)
		return d, nil
	}
	if _, ok := s.scaler.(ActiveScaler); ok {
		return d, nil
	}
	if s.refused {
		d = fallback(d)
		s.decision = d
		return d, nil
	}

	stage, err := build(ctx, d.Input, d.Target)
	switch {
	case errors.Is(err, scaler.ErrUnsupported):
		logger.Warnf(ctx, "spatial scaler is unsupported, falling back: %v", err)
		s.refused = true
		d = fallback(d)
		s.decision = d
		return d, nil
	case err != nil:
		return d, fmt.Errorf("unable to build a scaler for %s: %w", d, err)
	}
	s.scaler = ActiveScaler{Stage: stage}
	s.rebuilds++
	logger.Debugf(ctx, "built a scaler stage: %s", spew.Sdump(d))
	return d, nil
}

func fallback(d Decision) Decision {
	d.Path = PathPassthrough
	if d.Target.SmallerIn(d.Input) {
		d.Path = PathDownsample
	}
	return d
}

// Close releases the scaler stage.
func (s *State) Close(ctx context.Context) error {
	s.Invalidate(ctx)
	return nil
}
