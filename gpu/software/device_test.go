package software

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"
)

type fixture struct {
	t         *testing.T
	ctx       context.Context
	dev       *Device
	queue     gpu.CommandQueue
	allocator gpu.CommandAllocator
	cmd       gpu.CommandBuffer
	table     gpu.ArgumentTable
	residency gpu.ResidencySet
	uniform   gpu.Buffer
	fence     gpu.Fence
	pipeline  gpu.RenderPipelineState
	surface   *Surface
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	ctx := context.Background()
	f := &fixture{t: t, ctx: ctx, dev: NewDevice(append(Options{OptionWorkers{Count: 2}}, opts...)...)}
	var err error
	f.queue, err = f.dev.MakeCommandQueue()
	require.NoError(t, err)
	f.allocator, err = f.dev.MakeCommandAllocator()
	require.NoError(t, err)
	f.cmd, err = f.dev.MakeCommandBuffer()
	require.NoError(t, err)
	f.table, err = f.dev.MakeArgumentTable(gpu.ArgumentTableDescriptor{MaxTextureBindCount: 1, MaxBufferBindCount: 1})
	require.NoError(t, err)
	f.residency, err = f.dev.MakeResidencySet()
	require.NoError(t, err)
	f.uniform, err = f.dev.MakeBuffer(shader.UniformSize)
	require.NoError(t, err)
	require.NoError(t, shader.Scale{X: 1, Y: 1}.Put(f.uniform.Contents()))
	f.fence, err = f.dev.MakeFence()
	require.NoError(t, err)
	f.surface = NewSurface(types.Resolution{Width: 8, Height: 8})

	compiler, err := f.dev.MakeCompiler()
	require.NoError(t, err)
	lib, err := compiler.MakeLibrary(ctx, shader.Source)
	require.NoError(t, err)
	vfn, err := lib.Function(shader.VertexFunctionName)
	require.NoError(t, err)
	ffn, err := lib.Function(shader.ProgramPassthrough.FragmentFunctionName())
	require.NoError(t, err)
	f.pipeline, err = compiler.MakeRenderPipelineState(ctx, gpu.RenderPipelineDescriptor{
		Label:            "test",
		VertexFunction:   vfn,
		FragmentFunction: ffn,
		ColorPixelFormat: f.surface.ColorPixelFormat(),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) solidFrame(w, h uint32, b, g, r byte) *frame.Video {
	res := types.Resolution{Width: w, Height: h}
	pix := make([]byte, int(w*h)*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = b, g, r, 255
	}
	v, err := frame.NewVideo(types.NewObjectID(), res, types.PixelFormatBGRA8Unorm, int(w)*4, pix, 0, nil)
	require.NoError(f.t, err)
	return v
}

// draw records and submits one frame sampling tex; waitFence controls the
// fragment-stage fence wait.
func (f *fixture) draw(tex gpu.Texture, scaler gpu.SpatialScaler, waitFence bool) (gpu.Drawable, error) {
	d, err := f.surface.CurrentDrawable(f.ctx)
	require.NoError(f.t, err)
	require.NotNil(f.t, d)

	if err := f.cmd.Begin(f.allocator); err != nil {
		return d, err
	}
	f.cmd.UseResidencySet(f.residency)
	if scaler != nil {
		require.NoError(f.t, scaler.Encode(f.cmd))
	}
	enc, err := f.cmd.MakeRenderCommandEncoder(gpu.RenderPassDescriptor{ColorTexture: d.Texture(), LoadAction: gpu.LoadActionClear})
	require.NoError(f.t, err)
	if waitFence {
		enc.WaitForFence(f.fence, gpu.StageFragment)
	}
	f.table.SetTexture(0, tex)
	f.table.SetBuffer(0, f.uniform)
	enc.SetRenderPipelineState(f.pipeline)
	enc.SetArgumentTable(f.table, gpu.StageVertex|gpu.StageFragment)
	enc.DrawPrimitives(gpu.PrimitiveTypeTriangle, 0, shader.QuadVertexCount)
	require.NoError(f.t, enc.EndEncoding())
	require.NoError(f.t, f.cmd.End())

	f.queue.WaitForDrawable(d)
	err = f.queue.Commit(f.ctx, f.cmd)
	f.queue.SignalDrawable(d)
	f.allocator.Reset()
	return d, err
}

func (f *fixture) makeResident(allocs ...gpu.Allocation) {
	f.residency.RemoveAllAllocations()
	for _, a := range allocs {
		f.residency.AddAllocation(a)
	}
	f.residency.Commit()
}

func TestPassthroughDrawAndPresent(t *testing.T) {
	f := newFixture(t)
	src := f.solidFrame(4, 4, 0, 0, 255)
	tex, err := f.dev.MakeTextureFromFrame(src, types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	f.makeResident(tex, f.uniform)

	d, err := f.draw(tex, nil, false)
	require.NoError(t, err)
	require.NoError(t, d.Present())
	require.Equal(t, uint64(1), f.surface.PresentedCount())

	img := f.surface.LastPresented()
	require.NotNil(t, img)
	c := img.Texel(3, 5)
	require.InDelta(t, 1, c[0], 1e-6)
	require.InDelta(t, 0, c[1], 1e-6)
}

func TestScaleUniformLeavesBordersCleared(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, shader.Scale{X: 0.5, Y: 0.5}.Put(f.uniform.Contents()))
	tex, err := f.dev.MakeTextureFromFrame(f.solidFrame(2, 2, 255, 255, 255), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	f.makeResident(tex, f.uniform)

	d, err := f.draw(tex, nil, false)
	require.NoError(t, err)
	require.NoError(t, d.Present())
	img := f.surface.LastPresented()
	require.Equal(t, float32(0), img.Texel(0, 0)[0])
	require.Equal(t, float32(1), img.Texel(4, 4)[0])
	require.Equal(t, float32(0), img.Texel(7, 7)[0])
}

func TestNonResidentTextureIsRejected(t *testing.T) {
	f := newFixture(t)
	tex, err := f.dev.MakeTextureFromFrame(f.solidFrame(4, 4, 1, 2, 3), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	f.makeResident(f.uniform)

	_, err = f.draw(tex, nil, false)
	require.ErrorIs(t, err, gpu.ErrNotResident)
}

func TestStagedResidencyIsNotVisibleBeforeCommit(t *testing.T) {
	f := newFixture(t)
	tex, err := f.dev.MakeTextureFromFrame(f.solidFrame(4, 4, 1, 2, 3), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	f.residency.AddAllocation(tex)
	f.residency.AddAllocation(f.uniform)

	_, err = f.draw(tex, nil, false)
	require.ErrorIs(t, err, gpu.ErrNotResident)
}

func TestAllocatorMustBeReset(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cmd.Begin(f.allocator))
	require.NoError(t, f.cmd.End())

	other, err := f.dev.MakeCommandBuffer()
	require.NoError(t, err)
	require.ErrorIs(t, other.Begin(f.allocator), gpu.ErrAllocatorInUse)
	f.allocator.Reset()
	require.NoError(t, other.Begin(f.allocator))
}

func (f *fixture) scaler(src gpu.Texture, out types.Resolution) (gpu.SpatialScaler, gpu.Texture) {
	sc, err := f.dev.MakeSpatialScaler(gpu.SpatialScalerDescriptor{
		InputWidth:          src.Width(),
		InputHeight:         src.Height(),
		OutputWidth:         int(out.Width),
		OutputHeight:        int(out.Height),
		ColorTextureFormat:  src.PixelFormat(),
		OutputTextureFormat: src.PixelFormat(),
	})
	require.NoError(f.t, err)
	outTex, err := f.dev.MakeTexture(gpu.TextureDescriptor{
		PixelFormat: src.PixelFormat(),
		Width:       int(out.Width),
		Height:      int(out.Height),
		Usage:       sc.OutputTextureUsage(),
	})
	require.NoError(f.t, err)
	sc.SetFence(f.fence)
	sc.SetColorTexture(src)
	sc.SetOutputTexture(outTex)
	sc.SetInputContentSize(src.Width(), src.Height())
	return sc, outTex
}

func TestScalerOutputNeedsFenceWait(t *testing.T) {
	f := newFixture(t)
	src, err := f.dev.MakeTextureFromFrame(f.solidFrame(2, 2, 0, 255, 0), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	sc, out := f.scaler(src, types.Resolution{Width: 8, Height: 8})
	f.makeResident(src, f.uniform, out)

	_, err = f.draw(out, sc, false)
	require.ErrorIs(t, err, gpu.ErrFenceHazard)

	d, err := f.draw(out, sc, true)
	require.NoError(t, err)
	require.NoError(t, d.Present())
	c := f.surface.LastPresented().Texel(4, 4)
	require.InDelta(t, 1, c[1], 1.0/255)
}

func TestScalerOutputMustBeResident(t *testing.T) {
	f := newFixture(t)
	src, err := f.dev.MakeTextureFromFrame(f.solidFrame(2, 2, 0, 255, 0), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	sc, out := f.scaler(src, types.Resolution{Width: 8, Height: 8})
	f.makeResident(src, f.uniform)

	_, err = f.draw(out, sc, true)
	require.ErrorIs(t, err, gpu.ErrNotResident)
}

func TestPresentRequiresSignal(t *testing.T) {
	f := newFixture(t)
	d, err := f.surface.CurrentDrawable(f.ctx)
	require.NoError(t, err)
	require.ErrorIs(t, d.Present(), gpu.ErrDrawableNotReady)
}

func TestReleasedFrameIsNotSampled(t *testing.T) {
	f := newFixture(t)
	src := f.solidFrame(4, 4, 1, 2, 3)
	tex, err := f.dev.MakeTextureFromFrame(src, types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)
	f.makeResident(tex, f.uniform)
	src.Release()

	_, err = f.draw(tex, nil, false)
	require.ErrorIs(t, err, gpu.ErrReleased)
}

func TestHalfFloatTexelRoundTrip(t *testing.T) {
	f := newFixture(t)
	tex, err := f.dev.MakeTexture(gpu.TextureDescriptor{PixelFormat: types.PixelFormatRGBA16Float, Width: 2, Height: 1})
	require.NoError(t, err)
	st := tex.(*Texture)
	st.setTexel(1, 0, shader.Texel{0.5, 1.5, 0.25, 1})
	require.Equal(t, shader.Texel{0.5, 1.5, 0.25, 1}, st.Texel(1, 0))
}

func TestSpatialScalerUnsupported(t *testing.T) {
	f := newFixture(t, OptionSpatialScalerSupport{Supported: false})
	require.False(t, f.dev.SupportsSpatialScaler())
	_, err := f.dev.MakeSpatialScaler(gpu.SpatialScalerDescriptor{InputWidth: 1, InputHeight: 1, OutputWidth: 2, OutputHeight: 2})
	require.ErrorIs(t, err, gpu.ErrUnsupported)
}

func TestDrawableUnavailable(t *testing.T) {
	f := newFixture(t)
	f.surface.SetDrawableAvailable(false)
	d, err := f.surface.CurrentDrawable(f.ctx)
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestFailedCommitDropsDrawableWaits(t *testing.T) {
	f := newFixture(t)
	queue := f.queue.(*CommandQueue)
	tex, err := f.dev.MakeTextureFromFrame(f.solidFrame(4, 4, 1, 2, 3), types.PixelFormatBGRA8Unorm)
	require.NoError(t, err)

	f.makeResident(f.uniform)
	for i := 0; i < 3; i++ {
		d, err := f.draw(tex, nil, false)
		require.ErrorIs(t, err, gpu.ErrNotResident)
		require.Zero(t, queue.PendingDrawableWaits())
		require.ErrorIs(t, d.Present(), gpu.ErrDrawableNotReady)
	}

	f.makeResident(tex, f.uniform)
	d, err := f.draw(tex, nil, false)
	require.NoError(t, err)
	require.Zero(t, queue.PendingDrawableWaits())
	require.NoError(t, d.Present())
	require.Equal(t, uint64(1), f.surface.PresentedCount())
}
