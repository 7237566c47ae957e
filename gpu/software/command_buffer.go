package software

import (
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"go.uber.org/atomic"
)

type CommandAllocator struct {
	inUse  atomic.Bool
	resets atomic.Uint64
}

var _ gpu.CommandAllocator = (*CommandAllocator)(nil)

func (a *CommandAllocator) Reset() {
	a.inUse.Store(false)
	a.resets.Inc()
}

// ResetCount returns how many times Reset was called.
func (a *CommandAllocator) ResetCount() uint64 {
	return a.resets.Load()
}

type commandBufferState int

const (
	commandBufferStateIdle = commandBufferState(iota)
	commandBufferStateRecording
	commandBufferStateEnded
)

func (s commandBufferState) String() string {
	switch s {
	case commandBufferStateIdle:
		return "idle"
	case commandBufferStateRecording:
		return "recording"
	case commandBufferStateEnded:
		return "ended"
	}
	return fmt.Sprintf("unknown_state_%d", int(s))
}

// op is a recorded command, executed when the command buffer is committed.
type op interface {
	execute(*execution) error
}

type CommandBuffer struct {
	state         commandBufferState
	allocator     *CommandAllocator
	residencySets []*ResidencySet
	ops           []op
	openEncoder   *RenderCommandEncoder
}

var _ gpu.CommandBuffer = (*CommandBuffer)(nil)

func (cb *CommandBuffer) Begin(allocator gpu.CommandAllocator) error {
	if cb.state == commandBufferStateRecording {
		return fmt.Errorf("begin while %s: %w", cb.state, gpu.ErrInvalidState)
	}
	a, ok := allocator.(*CommandAllocator)
	if !ok {
		return fmt.Errorf("foreign allocator %T", allocator)
	}
	if !a.inUse.CompareAndSwap(false, true) {
		return gpu.ErrAllocatorInUse
	}
	cb.state = commandBufferStateRecording
	cb.allocator = a
	cb.residencySets = cb.residencySets[:0]
	cb.ops = cb.ops[:0]
	cb.openEncoder = nil
	return nil
}

func (cb *CommandBuffer) UseResidencySet(set gpu.ResidencySet) {
	s, ok := set.(*ResidencySet)
	if !ok || cb.state != commandBufferStateRecording {
		return
	}
	cb.residencySets = append(cb.residencySets, s)
}

func (cb *CommandBuffer) record(o op) error {
	if cb.state != commandBufferStateRecording {
		return fmt.Errorf("record while %s: %w", cb.state, gpu.ErrInvalidState)
	}
	if cb.openEncoder != nil {
		return fmt.Errorf("a render encoder is still open: %w", gpu.ErrInvalidState)
	}
	cb.ops = append(cb.ops, o)
	return nil
}

func (cb *CommandBuffer) MakeRenderCommandEncoder(desc gpu.RenderPassDescriptor) (gpu.RenderCommandEncoder, error) {
	if cb.state != commandBufferStateRecording {
		return nil, fmt.Errorf("encoder while %s: %w", cb.state, gpu.ErrInvalidState)
	}
	if cb.openEncoder != nil {
		return nil, fmt.Errorf("a render encoder is already open: %w", gpu.ErrInvalidState)
	}
	target, ok := desc.ColorTexture.(*Texture)
	if !ok || target == nil {
		return nil, fmt.Errorf("render pass needs a software color texture, got %T", desc.ColorTexture)
	}
	enc := &RenderCommandEncoder{
		buffer: cb,
		pass: &renderPassOp{
			target:     target,
			loadAction: desc.LoadAction,
			clearColor: desc.ClearColor,
		},
	}
	cb.openEncoder = enc
	return enc, nil
}

func (cb *CommandBuffer) End() error {
	if cb.state != commandBufferStateRecording {
		return fmt.Errorf("end while %s: %w", cb.state, gpu.ErrInvalidState)
	}
	if cb.openEncoder != nil {
		return fmt.Errorf("a render encoder is still open: %w", gpu.ErrInvalidState)
	}
	cb.state = commandBufferStateEnded
	return nil
}

type ArgumentTable struct {
	desc     gpu.ArgumentTableDescriptor
	textures []*Texture
	buffers  []*Buffer
}

var _ gpu.ArgumentTable = (*ArgumentTable)(nil)

func (t *ArgumentTable) SetTexture(index int, tex gpu.Texture) {
	if index < 0 || index >= len(t.textures) {
		panic(fmt.Sprintf("texture slot %d is out of [0, %d)", index, len(t.textures)))
	}
	t.textures[index], _ = tex.(*Texture)
}

func (t *ArgumentTable) SetBuffer(index int, buf gpu.Buffer) {
	if index < 0 || index >= len(t.buffers) {
		panic(fmt.Sprintf("buffer slot %d is out of [0, %d)", index, len(t.buffers)))
	}
	t.buffers[index], _ = buf.(*Buffer)
}

type drawCall struct {
	pipeline    *RenderPipelineState
	texture     *Texture
	buffer      *Buffer
	vertexStart int
	vertexCount int
}

type RenderCommandEncoder struct {
	buffer   *CommandBuffer
	pass     *renderPassOp
	pipeline *RenderPipelineState
	table    *ArgumentTable
	err      error
}

var _ gpu.RenderCommandEncoder = (*RenderCommandEncoder)(nil)

func (e *RenderCommandEncoder) WaitForFence(fence gpu.Fence, before gpu.Stage) {
	f, ok := fence.(*Fence)
	if !ok {
		e.setErr(fmt.Errorf("foreign fence %T", fence))
		return
	}
	e.pass.waits = append(e.pass.waits, fenceWait{fence: f, before: before})
}

func (e *RenderCommandEncoder) SetRenderPipelineState(state gpu.RenderPipelineState) {
	p, ok := state.(*RenderPipelineState)
	if !ok {
		e.setErr(fmt.Errorf("foreign pipeline state %T", state))
		return
	}
	e.pipeline = p
}

func (e *RenderCommandEncoder) SetArgumentTable(table gpu.ArgumentTable, stages gpu.Stage) {
	t, ok := table.(*ArgumentTable)
	if !ok {
		e.setErr(fmt.Errorf("foreign argument table %T", table))
		return
	}
	e.table = t
}

func (e *RenderCommandEncoder) DrawPrimitives(primitive gpu.PrimitiveType, vertexStart, vertexCount int) {
	switch {
	case primitive != gpu.PrimitiveTypeTriangle:
		e.setErr(fmt.Errorf("unsupported primitive type %d", primitive))
		return
	case e.pipeline == nil:
		e.setErr(fmt.Errorf("draw without a pipeline state: %w", gpu.ErrInvalidState))
		return
	case e.table == nil:
		e.setErr(fmt.Errorf("draw without an argument table: %w", gpu.ErrInvalidState))
		return
	}
	dc := drawCall{
		pipeline:    e.pipeline,
		vertexStart: vertexStart,
		vertexCount: vertexCount,
	}
	if len(e.table.textures) > 0 {
		dc.texture = e.table.textures[0]
	}
	if len(e.table.buffers) > 0 {
		dc.buffer = e.table.buffers[0]
	}
	e.pass.draws = append(e.pass.draws, dc)
}

func (e *RenderCommandEncoder) setErr(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *RenderCommandEncoder) EndEncoding() error {
	if e.buffer.openEncoder != e {
		return fmt.Errorf("encoder is not open: %w", gpu.ErrInvalidState)
	}
	e.buffer.openEncoder = nil
	if e.err != nil {
		return e.err
	}
	return e.buffer.record(e.pass)
}
