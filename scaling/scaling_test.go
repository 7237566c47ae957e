package scaling

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/vidframe/gpu/software"
	"github.com/xaionaro-go/vidframe/scaler"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"

	assertT "github.com/stretchr/testify/assert"
)

func res(w, h uint32) types.Resolution {
	return types.Resolution{Width: w, Height: h}
}

func TestTargetSizeProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		input := res(1+uint32(rng.Intn(4096)), 1+uint32(rng.Intn(4096)))
		viewport := res(1+uint32(rng.Intn(4096)), 1+uint32(rng.Intn(4096)))

		require.Equal(t, input, TargetSize(input, viewport, types.ScalingModeOff))

		fit := TargetSize(input, viewport, types.ScalingModeFit)
		require.LessOrEqual(t, fit.Width, viewport.Width, "%s in %s", input, viewport)
		require.LessOrEqual(t, fit.Height, viewport.Height, "%s in %s", input, viewport)
		require.True(t, fit.Width == viewport.Width || fit.Height == viewport.Height, "%s in %s -> %s", input, viewport, fit)
		if fit.Width > 1 && fit.Height > 1 {
			// rounding one side to a whole pixel bounds the aspect error
			maxErr := input.Aspect() * (1/float64(fit.Height) + 1/float64(fit.Width))
			require.InDelta(t, input.Aspect(), fit.Aspect(), maxErr, "%s in %s -> %s", input, viewport, fit)
		}

		fill := TargetSize(input, viewport, types.ScalingModeFill)
		require.Equal(t, viewport.Height, fill.Height)
	}
}

func TestDecideScalerIffExceedsAndSupported(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 2000; i++ {
		input := res(1+uint32(rng.Intn(4096)), 1+uint32(rng.Intn(4096)))
		viewport := res(1+uint32(rng.Intn(4096)), 1+uint32(rng.Intn(4096)))
		mode := types.ScalingMode(rng.Intn(int(types.EndOfScalingMode)))
		supported := rng.Intn(2) == 0

		d := Decide(input, viewport, mode, supported)
		want := d.Target.ExceedsIn(input) && supported
		require.Equal(t, want, d.Path == PathSpatialUpscale, "%s", d)
		if mode == types.ScalingModeOff {
			require.Equal(t, PathPassthrough, d.Path)
		}
	}
}

func TestDecideScenarioUpscale(t *testing.T) {
	d := Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, true)
	require.Equal(t, res(1920, 1080), d.Target)
	require.Equal(t, PathSpatialUpscale, d.Path)
	require.Equal(t, shader.ProgramPassthrough, d.Path.Program())
	require.Equal(t, shader.Scale{X: 1, Y: 1}, d.Scale)
	require.Equal(t, "Upscaling: Spatial", d.Description())
}

func TestDecideScenarioDownscale(t *testing.T) {
	d := Decide(res(3840, 2160), res(1280, 720), types.ScalingModeFit, true)
	require.Equal(t, res(1280, 720), d.Target)
	require.Equal(t, PathDownsample, d.Path)
	require.Equal(t, shader.ProgramLanczosDownsample, d.Path.Program())
	require.Equal(t, "Downscaling: Lanczos", d.Description())
}

func TestDecideOff(t *testing.T) {
	d := Decide(res(640, 360), res(1280, 720), types.ScalingModeOff, true)
	require.Equal(t, res(640, 360), d.Target)
	require.Equal(t, PathPassthrough, d.Path)
	require.Equal(t, shader.Scale{X: 0.5, Y: 0.5}, d.Scale)
	require.Equal(t, "No Scaling", d.Description())
}

func TestDecideUnsupportedUpscaleIsPassthrough(t *testing.T) {
	d := Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, false)
	require.Equal(t, PathPassthrough, d.Path)
	require.Equal(t, "Passthrough", d.Description())
}

func TestDecideFillOverflowsWidth(t *testing.T) {
	d := Decide(res(1920, 800), res(1000, 1000), types.ScalingModeFill, true)
	require.Equal(t, res(2400, 1000), d.Target)
	require.Equal(t, PathSpatialUpscale, d.Path)
	assertT.InDelta(t, 2.4, d.Scale.X, 1e-6)
	assertT.InDelta(t, 1, d.Scale.Y, 1e-6)
}

type buildRecorder struct {
	t     *testing.T
	calls int
	err   error
}

func (b *buildRecorder) build(ctx context.Context, input, output types.Resolution) (*scaler.Spatial, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	dev := software.NewDevice()
	fence, err := dev.MakeFence()
	require.NoError(b.t, err)
	return scaler.NewSpatial(ctx, dev, fence, input, output, types.PixelFormatBGRA8Unorm)
}

func TestReconcileLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	b := &buildRecorder{t: t}

	up := Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, true)
	d, err := s.Reconcile(ctx, up, b.build)
	require.NoError(t, err)
	require.Equal(t, PathSpatialUpscale, d.Path)
	active, ok := s.Scaler().(ActiveScaler)
	require.True(t, ok)
	require.Equal(t, res(1920, 1080), active.Stage.OutputResolution())
	require.Equal(t, 1, b.calls)

	// unchanged decision reuses the stage
	_, err = s.Reconcile(ctx, up, b.build)
	require.NoError(t, err)
	require.Equal(t, 1, b.calls)
	require.Equal(t, uint64(1), s.Rebuilds())

	// resize rebuilds with the new dimensions
	resized := Decide(res(640, 360), res(1280, 720), types.ScalingModeFit, true)
	_, err = s.Reconcile(ctx, resized, b.build)
	require.NoError(t, err)
	require.True(t, active.Stage.IsClosed())
	active2 := s.Scaler().(ActiveScaler)
	require.Equal(t, res(1280, 720), active2.Stage.OutputResolution())
	require.Equal(t, 2, b.calls)

	// mode off releases the stage
	off := Decide(res(640, 360), res(1280, 720), types.ScalingModeOff, true)
	d, err = s.Reconcile(ctx, off, b.build)
	require.NoError(t, err)
	require.Equal(t, res(640, 360), d.Target)
	require.Equal(t, shader.Scale{X: 0.5, Y: 0.5}, d.Scale)
	require.True(t, active2.Stage.IsClosed())
	require.Equal(t, NoScaler{}, s.Scaler())
	require.Zero(t, s.MemorySize())
}

func TestReconcileInvalidate(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	b := &buildRecorder{t: t}

	up := Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, true)
	_, err := s.Reconcile(ctx, up, b.build)
	require.NoError(t, err)
	stage := s.Scaler().(ActiveScaler).Stage

	s.Invalidate(ctx)
	require.True(t, stage.IsClosed())
	require.Equal(t, NoScaler{}, s.Scaler())

	_, err = s.Reconcile(ctx, up, b.build)
	require.NoError(t, err)
	require.Equal(t, 2, b.calls)
}

func TestReconcileUnsupportedFallsBack(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	b := &buildRecorder{t: t, err: scaler.ErrUnsupported}

	d, err := s.Reconcile(ctx, Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, true), b.build)
	require.NoError(t, err)
	require.Equal(t, PathPassthrough, d.Path)
	require.Equal(t, NoScaler{}, s.Scaler())
}

func TestReconcileRemembersRefusal(t *testing.T) {
	ctx := context.Background()
	s := NewState()
	b := &buildRecorder{t: t, err: scaler.ErrUnsupported}

	up := Decide(res(640, 360), res(1920, 1080), types.ScalingModeFit, true)
	for i := 0; i < 5; i++ {
		d, err := s.Reconcile(ctx, up, b.build)
		require.NoError(t, err)
		require.Equal(t, PathPassthrough, d.Path)
	}
	require.Equal(t, 1, b.calls)

	// a new viewport asks the device again
	resized := Decide(res(640, 360), res(1280, 720), types.ScalingModeFit, true)
	_, err := s.Reconcile(ctx, resized, b.build)
	require.NoError(t, err)
	require.Equal(t, 2, b.calls)

	// and so does an explicit invalidation, which now succeeds
	b.err = nil
	s.Invalidate(ctx)
	d, err := s.Reconcile(ctx, resized, b.build)
	require.NoError(t, err)
	require.Equal(t, 3, b.calls)
	require.Equal(t, PathSpatialUpscale, d.Path)
	_, ok := s.Scaler().(ActiveScaler)
	require.True(t, ok)
	require.NoError(t, s.Close(ctx))
}
