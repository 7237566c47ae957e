package software

import (
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/types"
)

// execution is the state of one CommandQueue.Commit.
type execution struct {
	resident map[types.ObjectID]struct{}

	// pendingWrites maps a texture written by a scaler to the fence the
	// scaler updates once the write is complete.
	pendingWrites map[types.ObjectID]*Fence

	waitedDrawables map[*Drawable]struct{}
	workers         int
}

func (x *execution) requireResident(a gpu.Allocation) error {
	if _, ok := x.resident[a.AllocationID()]; !ok {
		return fmt.Errorf("%v: %w", a, gpu.ErrNotResident)
	}
	return nil
}

type fenceWait struct {
	fence  *Fence
	before gpu.Stage
}

type renderPassOp struct {
	target     *Texture
	loadAction gpu.LoadAction
	clearColor gpu.ClearColor
	waits      []fenceWait
	draws      []drawCall
}

func (p *renderPassOp) fragmentWaits(f *Fence) bool {
	for _, w := range p.waits {
		if w.fence == f && w.before&(gpu.StageVertex|gpu.StageFragment) != 0 {
			return true
		}
	}
	return false
}

func (p *renderPassOp) execute(x *execution) error {
	if err := p.target.usable(); err != nil {
		return err
	}
	if d := p.target.drawable; d != nil {
		if _, ok := x.waitedDrawables[d]; !ok {
			return fmt.Errorf("render pass targets %s which the queue did not wait for: %w", d, gpu.ErrDrawableNotReady)
		}
	} else if err := x.requireResident(p.target); err != nil {
		return err
	}

	for _, dc := range p.draws {
		if err := p.validate(x, dc); err != nil {
			return err
		}
	}

	if p.loadAction == gpu.LoadActionClear {
		c := p.clearColor
		p.target.fill([4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)})
	}
	for _, dc := range p.draws {
		if err := rasterizeQuad(p.target, dc, x.workers); err != nil {
			return err
		}
	}
	if d := p.target.drawable; d != nil {
		d.rendered.Store(true)
	}
	return nil
}

func (p *renderPassOp) validate(x *execution, dc drawCall) error {
	if dc.pipeline.colorFormat != p.target.PixelFormat() {
		return fmt.Errorf("pipeline %s renders %s into a %s target", dc.pipeline, dc.pipeline.colorFormat, p.target.PixelFormat())
	}
	if dc.texture == nil || dc.buffer == nil {
		return fmt.Errorf("draw with unbound texture or buffer: %w", gpu.ErrInvalidState)
	}
	if err := dc.texture.usable(); err != nil {
		return err
	}
	if dc.buffer.released.Load() {
		return fmt.Errorf("uniform buffer: %w", gpu.ErrReleased)
	}
	if err := x.requireResident(dc.texture); err != nil {
		return err
	}
	if err := x.requireResident(dc.buffer); err != nil {
		return err
	}
	if f, ok := x.pendingWrites[dc.texture.id]; ok {
		if f == nil || !p.fragmentWaits(f) {
			return fmt.Errorf("%s: %w", dc.texture, gpu.ErrFenceHazard)
		}
	}
	return nil
}
