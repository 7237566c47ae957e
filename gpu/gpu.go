// gpu.go defines the device abstraction the render pipeline is written against.

// Package gpu describes an explicit, command-buffer based GPU API: device
// objects are created once, per-frame work is recorded into a command
// buffer begun on an allocator, executed by a command queue and shown
// through a drawable. Implementations live in subpackages.
package gpu

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/types"
)

// Allocation is a GPU memory object that can be made resident.
type Allocation interface {
	AllocationID() types.ObjectID
	AllocatedSize() uint64
}

type TextureUsage uint32

const (
	TextureUsageShaderRead TextureUsage = 1 << iota
	TextureUsageShaderWrite
	TextureUsageRenderTarget
)

func (u TextureUsage) Has(flag TextureUsage) bool {
	return u&flag == flag
}

type TextureDescriptor struct {
	Label       string
	PixelFormat types.PixelFormat
	Width       int
	Height      int
	Usage       TextureUsage
}

func (d TextureDescriptor) Resolution() types.Resolution {
	return types.Resolution{Width: uint32(d.Width), Height: uint32(d.Height)}
}

type Texture interface {
	Allocation
	fmt.Stringer
	Width() int
	Height() int
	PixelFormat() types.PixelFormat
	Usage() TextureUsage

	// Releaser frees the texture memory immediately.
	types.Releaser
}

// TextureResolution is a shorthand for the texture size as a Resolution.
func TextureResolution(t Texture) types.Resolution {
	return types.Resolution{Width: uint32(t.Width()), Height: uint32(t.Height())}
}

// FrameTexture is a texture aliasing frame memory. Rebind points it at
// another frame backed by the same memory region, which is cheaper than
// importing that frame again.
type FrameTexture interface {
	Texture
	Rebind(f *frame.Video) error
}

type Buffer interface {
	Allocation
	// Contents is the CPU-visible view of the buffer; its length never changes.
	Contents() []byte
	types.Releaser
}

type Fence interface {
	FenceID() types.ObjectID
}

// ResidencySet is the set of allocations guaranteed accessible to command
// buffers that use it. Changes become visible to the GPU only on Commit.
type ResidencySet interface {
	RemoveAllAllocations()
	AddAllocation(Allocation)
	Commit()
	CommittedAllocations() []Allocation
}

type CommandAllocator interface {
	// Reset returns the allocator's memory to the pool; it may then back
	// a new command buffer.
	Reset()
}

type Stage uint32

const (
	StageVertex Stage = 1 << iota
	StageFragment
)

type PrimitiveType int

const (
	PrimitiveTypeTriangle = PrimitiveType(iota)
)

type LoadAction int

const (
	LoadActionClear = LoadAction(iota)
	LoadActionLoad
)

type ClearColor struct {
	R, G, B, A float64
}

type RenderPassDescriptor struct {
	ColorTexture Texture
	LoadAction   LoadAction
	ClearColor   ClearColor
}

// ArgumentTable binds resources to shader slots.
type ArgumentTable interface {
	SetTexture(index int, tex Texture)
	SetBuffer(index int, buf Buffer)
}

type ArgumentTableDescriptor struct {
	MaxTextureBindCount int
	MaxBufferBindCount  int
}

type RenderPipelineState interface {
	fmt.Stringer
	ColorPixelFormat() types.PixelFormat
}

type RenderCommandEncoder interface {
	WaitForFence(fence Fence, before Stage)
	SetRenderPipelineState(RenderPipelineState)
	SetArgumentTable(table ArgumentTable, stages Stage)
	DrawPrimitives(primitive PrimitiveType, vertexStart, vertexCount int)
	EndEncoding() error
}

type CommandBuffer interface {
	Begin(CommandAllocator) error
	UseResidencySet(ResidencySet)
	MakeRenderCommandEncoder(RenderPassDescriptor) (RenderCommandEncoder, error)
	End() error
}

type CommandQueue interface {
	// WaitForDrawable makes the next committed work wait until the
	// drawable's texture is no longer used by the display.
	WaitForDrawable(Drawable)
	Commit(ctx context.Context, buffers ...CommandBuffer) error
	// SignalDrawable marks the drawable as ready once previously committed
	// work completes.
	SignalDrawable(Drawable)
}

type Drawable interface {
	Texture() Texture
	Present() error
}

type Surface interface {
	// CurrentDrawable returns nil without an error when no drawable is
	// available for this tick.
	CurrentDrawable(ctx context.Context) (Drawable, error)
	ColorPixelFormat() types.PixelFormat
	SetExtendedDynamicRange(enabled bool) error
}

type Function interface {
	Name() string
}

type Library interface {
	Function(name string) (Function, error)
}

type RenderPipelineDescriptor struct {
	Label            string
	VertexFunction   Function
	FragmentFunction Function
	ColorPixelFormat types.PixelFormat
}

type Compiler interface {
	MakeLibrary(ctx context.Context, source string) (Library, error)
	MakeRenderPipelineState(ctx context.Context, desc RenderPipelineDescriptor) (RenderPipelineState, error)
}

type ColorProcessingMode int

const (
	ColorProcessingModePerceptual = ColorProcessingMode(iota)
	ColorProcessingModeLinear
)

type SpatialScalerDescriptor struct {
	InputWidth          int
	InputHeight         int
	OutputWidth         int
	OutputHeight        int
	ColorTextureFormat  types.PixelFormat
	OutputTextureFormat types.PixelFormat
	ColorProcessingMode ColorProcessingMode
}

// SpatialScaler upsamples a color texture into an output texture. It signals
// its fence once the output texture is fully written.
type SpatialScaler interface {
	Descriptor() SpatialScalerDescriptor
	OutputTextureUsage() TextureUsage
	SetFence(Fence)
	SetColorTexture(Texture)
	SetOutputTexture(Texture)
	SetInputContentSize(width, height int)
	Encode(CommandBuffer) error
}

type Device interface {
	fmt.Stringer
	MakeCommandQueue() (CommandQueue, error)
	MakeCompiler() (Compiler, error)
	MakeCommandAllocator() (CommandAllocator, error)
	MakeCommandBuffer() (CommandBuffer, error)
	MakeArgumentTable(ArgumentTableDescriptor) (ArgumentTable, error)
	MakeResidencySet() (ResidencySet, error)
	MakeBuffer(length int) (Buffer, error)
	MakeTexture(TextureDescriptor) (Texture, error)
	MakeFence() (Fence, error)

	// MakeTextureFromFrame creates a texture aliasing the frame memory. The
	// texture is valid until the frame is released.
	MakeTextureFromFrame(f *frame.Video, pixFmt types.PixelFormat) (Texture, error)

	SupportsSpatialScaler() bool
	MakeSpatialScaler(SpatialScalerDescriptor) (SpatialScaler, error)
}
