// renderer.go implements the per-frame render pipeline.

// Package vidframe renders decoded video frames onto a presentable
// surface, upscaling them with the device spatial scaler or downscaling
// them with a Lanczos filter on the way.
package vidframe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ng/xatomic"
	"github.com/google/uuid"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/vidframe/framesource"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/residency"
	"github.com/xaionaro-go/vidframe/scaler"
	"github.com/xaionaro-go/vidframe/scaling"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/texturecache"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xcontext"
	"go.uber.org/atomic"
)

// Renderer draws one frame per Draw call. Draw must not be called
// concurrently; every other method may be called from any goroutine.
type Renderer struct {
	config    Config
	sessionID uuid.UUID
	device    gpu.Device
	surface   gpu.Surface
	decoder   framesource.Decoder
	source    *framesource.Source
	clock     *playbackClock

	queue         gpu.CommandQueue
	allocator     gpu.CommandAllocator
	commandBuffer gpu.CommandBuffer
	argumentTable gpu.ArgumentTable
	residency     *residency.Manager
	uniform       gpu.Buffer
	fence         gpu.Fence
	textures      *texturecache.Cache

	pipelines *pipelineSet
	setupErr  atomic.Error
	ready     chan struct{}

	controls controlQueue

	// owned by Draw
	scaling         *scaling.State
	mode            types.ScalingMode
	lastScalingMode types.ScalingMode
	viewport        types.Resolution
	cycle           commandCycle

	modeView    atomic.Int64
	info        atomic.String
	infoVisible atomic.Bool
	stats       commonsDrawStatistics
}

type Option interface {
	rendererOption()
}

type OptionCommons struct{}

func (OptionCommons) rendererOption() {}

// OptionNow replaces the wall clock of playback.
type OptionNow struct {
	OptionCommons
	Now func() time.Time
}

// NewRenderer creates the device objects and starts compiling the render
// pipelines in the background; Draw skips until they are ready. The
// decoder stays owned by the caller.
func NewRenderer(
	ctx context.Context,
	dev gpu.Device,
	surface gpu.Surface,
	viewport types.Resolution,
	decoder framesource.Decoder,
	cfg Config,
	opts ...Option,
) (_ret *Renderer, _err error) {
	logger.Debugf(ctx, "NewRenderer(%s, %s, %s)", dev, viewport, cfg.ScalingMode)
	defer func() { logger.Debugf(ctx, "/NewRenderer(%s, %s, %s): %v", dev, viewport, cfg.ScalingMode, _err) }()

	if viewport.IsZero() {
		return nil, fmt.Errorf("invalid viewport %s", viewport)
	}
	var now func() time.Time
	for _, opt := range opts {
		if o, ok := opt.(OptionNow); ok {
			now = o.Now
		}
	}

	r := &Renderer{
		config:          cfg,
		sessionID:       uuid.New(),
		device:          dev,
		surface:         surface,
		decoder:         decoder,
		source:          framesource.New(decoder),
		clock:           newPlaybackClock(now, decoder.Duration()),
		ready:           make(chan struct{}),
		scaling:         scaling.NewState(),
		mode:            cfg.ScalingMode,
		lastScalingMode: types.ScalingModeFit,
		viewport:        viewport,
	}
	if cfg.ScalingMode != types.ScalingModeOff {
		r.lastScalingMode = cfg.ScalingMode
	}
	r.modeView.Store(int64(r.mode))
	ctx = logger.CtxWithField(ctx, "session_id", r.sessionID.String())

	transfer := decoder.TransferFunction()
	if err := surface.SetExtendedDynamicRange(transfer.IsExtendedDynamicRange()); err != nil {
		return nil, fmt.Errorf("unable to configure the surface for %s: %w", transfer, err)
	}

	var err error
	if r.queue, err = dev.MakeCommandQueue(); err != nil {
		return nil, fmt.Errorf("unable to create a command queue: %w", err)
	}
	compiler, err := dev.MakeCompiler()
	if err != nil {
		return nil, fmt.Errorf("unable to create a compiler: %w", err)
	}
	if r.allocator, err = dev.MakeCommandAllocator(); err != nil {
		return nil, fmt.Errorf("unable to create a command allocator: %w", err)
	}
	if r.commandBuffer, err = dev.MakeCommandBuffer(); err != nil {
		return nil, fmt.Errorf("unable to create a command buffer: %w", err)
	}
	if r.argumentTable, err = dev.MakeArgumentTable(gpu.ArgumentTableDescriptor{
		MaxTextureBindCount: 1,
		MaxBufferBindCount:  1,
	}); err != nil {
		return nil, fmt.Errorf("unable to create an argument table: %w", err)
	}
	residencySet, err := dev.MakeResidencySet()
	if err != nil {
		return nil, fmt.Errorf("unable to create a residency set: %w", err)
	}
	r.residency = residency.New(residencySet)
	if r.uniform, err = dev.MakeBuffer(shader.UniformSize); err != nil {
		return nil, fmt.Errorf("unable to create the uniform buffer: %w", err)
	}
	if r.fence, err = dev.MakeFence(); err != nil {
		return nil, fmt.Errorf("unable to create a fence: %w", err)
	}
	if r.textures, err = texturecache.New(dev, transfer.PixelFormat(), cfg.TextureCacheMaxEntries); err != nil {
		return nil, fmt.Errorf("unable to create the texture cache: %w", err)
	}
	r.updateInfo(scaling.Decide(decoder.Resolution(), viewport, r.mode, dev.SupportsSpatialScaler()))

	colorFormat := surface.ColorPixelFormat()
	observability.Go(xcontext.DetachDone(ctx), func(ctx context.Context) {
		r.compile(ctx, compiler, colorFormat)
	})
	return r, nil
}

func (r *Renderer) compile(ctx context.Context, compiler gpu.Compiler, colorFormat types.PixelFormat) {
	defer close(r.ready)
	set, err := compilePipelines(ctx, compiler, colorFormat)
	if err != nil {
		logger.Errorf(ctx, "unable to compile the render pipelines: %v", err)
		r.setupErr.Store(err)
		return
	}
	xatomic.StorePointer(&r.pipelines, set)
	if !r.config.StartPaused {
		r.clock.Play(ctx)
	}
	logger.Infof(ctx, "render pipelines are ready")
}

func (r *Renderer) String() string {
	return fmt.Sprintf("Renderer(%s, session:%s)", r.device, r.sessionID)
}

func (r *Renderer) SessionID() uuid.UUID {
	return r.sessionID
}

// Ready is closed once compiling the pipelines finished, successfully or not.
func (r *Renderer) Ready() <-chan struct{} {
	return r.ready
}

// SetupError returns why compiling the pipelines failed.
func (r *Renderer) SetupError() error {
	return r.setupErr.Load()
}

// WaitReady blocks until the pipelines are compiled.
func (r *Renderer) WaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ready:
		return r.SetupError()
	}
}

func (r *Renderer) isReady() bool {
	return xatomic.LoadPointer(&r.pipelines) != nil
}

func (r *Renderer) buildScaler(ctx context.Context, input, output types.Resolution) (*scaler.Spatial, error) {
	return scaler.NewSpatial(ctx, r.device, r.fence, input, output, r.textures.PixelFormat())
}

func (r *Renderer) setScalingMode(ctx context.Context, mode types.ScalingMode) {
	if mode != types.ScalingModeOff {
		r.lastScalingMode = mode
	}
	r.mode = mode
	r.modeView.Store(int64(mode))
	r.scaling.Invalidate(ctx)
}

// Draw renders the frame due at the current playback position. A draw
// that cannot be done this tick (pipelines not compiled, no frame yet,
// no drawable) is skipped without an error.
func (r *Renderer) Draw(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "Draw")
	defer func() { logger.Tracef(ctx, "/Draw: %v", _err) }()

	for _, cmd := range r.controls.drain(ctx) {
		logger.Debugf(ctx, "applying %s", cmd)
		cmd.apply(ctx, r)
	}

	pipelines := xatomic.LoadPointer(&r.pipelines)
	if pipelines == nil {
		select {
		case <-r.ready:
			if err := r.SetupError(); err != nil {
				r.stats.Failed.Inc()
				return fmt.Errorf("render pipelines failed to compile: %w", err)
			}
		default:
		}
		r.stats.SkippedNotReady.Inc()
		return nil
	}

	t := r.clock.Position(ctx)
	if r.source.HasNewFrame(t) {
		if f, ok := r.source.Acquire(ctx, t); ok {
			if _, err := r.textures.Import(ctx, f); err != nil {
				logger.Errorf(ctx, "unable to import %s: %v", f, err)
				f.Release()
			} else {
				r.stats.FramesImported.Inc()
			}
		}
	}
	current := r.textures.Current()
	if current == nil {
		r.stats.SkippedNoFrame.Inc()
		return nil
	}

	drawable, err := r.surface.CurrentDrawable(ctx)
	if err != nil {
		r.stats.Failed.Inc()
		return fmt.Errorf("unable to get a drawable: %w", err)
	}
	if drawable == nil {
		r.stats.SkippedNoDrawable.Inc()
		return nil
	}

	input := gpu.TextureResolution(current.Texture)
	decision := scaling.Decide(input, r.viewport, r.mode, r.device.SupportsSpatialScaler())
	decision, err = r.scaling.Reconcile(ctx, decision, r.buildScaler)
	r.stats.ScalerRebuilds.Store(r.scaling.Rebuilds())
	r.stats.ScalerMemory.Store(r.scaling.MemorySize())
	if err != nil {
		r.stats.Failed.Inc()
		return fmt.Errorf("unable to reconcile the scaler: %w", err)
	}
	r.updateInfo(decision)

	if err := decision.Scale.Put(r.uniform.Contents()); err != nil {
		r.stats.Failed.Inc()
		return fmt.Errorf("unable to write the uniform: %w", err)
	}

	var stage *scaler.Spatial
	if active, ok := r.scaling.Scaler().(scaling.ActiveScaler); ok {
		stage = active.Stage
	}
	resources := []gpu.Allocation{current.Texture, r.uniform}
	if stage != nil {
		resources = append(resources, stage.OutputTexture())
	}
	if err := r.residency.Rebuild(ctx, resources...); err != nil {
		r.stats.Failed.Inc()
		return fmt.Errorf("unable to update the residency set: %w", err)
	}

	if err := r.submit(ctx, drawable, pipelines.get(decision.Path.Program()), current.Texture, stage); err != nil {
		r.stats.Failed.Inc()
		r.recoverCycle(ctx)
		return err
	}
	r.stats.Drawn.Inc()
	return nil
}

// submit runs one command cycle: begin, encode, submit, present, reset.
func (r *Renderer) submit(
	ctx context.Context,
	drawable gpu.Drawable,
	pipeline gpu.RenderPipelineState,
	input gpu.Texture,
	stage *scaler.Spatial,
) (_err error) {
	logger.Tracef(ctx, "submit")
	defer func() { logger.Tracef(ctx, "/submit: %v", _err) }()

	if err := r.commandBuffer.Begin(r.allocator); err != nil {
		return fmt.Errorf("unable to begin a command buffer: %w", err)
	}
	if err := r.cycle.transition(CycleStateBegun); err != nil {
		return err
	}
	r.commandBuffer.UseResidencySet(r.residency.Set())

	sampled := input
	if stage != nil {
		if err := stage.Encode(ctx, r.commandBuffer, input); err != nil {
			return fmt.Errorf("unable to encode the scaler: %w", err)
		}
		sampled = stage.OutputTexture()
	}

	encoder, err := r.commandBuffer.MakeRenderCommandEncoder(gpu.RenderPassDescriptor{
		ColorTexture: drawable.Texture(),
		LoadAction:   gpu.LoadActionClear,
		ClearColor:   r.config.ClearColor,
	})
	if err != nil {
		return fmt.Errorf("unable to make a render encoder: %w", err)
	}
	if stage != nil {
		encoder.WaitForFence(stage.Fence(), gpu.StageFragment)
	}
	r.argumentTable.SetTexture(0, sampled)
	r.argumentTable.SetBuffer(0, r.uniform)
	encoder.SetRenderPipelineState(pipeline)
	encoder.SetArgumentTable(r.argumentTable, gpu.StageVertex|gpu.StageFragment)
	encoder.DrawPrimitives(gpu.PrimitiveTypeTriangle, 0, shader.QuadVertexCount)
	if err := encoder.EndEncoding(); err != nil {
		return fmt.Errorf("unable to encode the render pass: %w", err)
	}
	if err := r.commandBuffer.End(); err != nil {
		return fmt.Errorf("unable to end the command buffer: %w", err)
	}
	if err := r.cycle.transition(CycleStateEncoded); err != nil {
		return err
	}

	r.queue.WaitForDrawable(drawable)
	if err := r.queue.Commit(ctx, r.commandBuffer); err != nil {
		return fmt.Errorf("unable to commit: %w", err)
	}
	r.queue.SignalDrawable(drawable)
	if err := r.cycle.transition(CycleStateSubmitted); err != nil {
		return err
	}

	if err := drawable.Present(); err != nil {
		return fmt.Errorf("unable to present: %w", err)
	}
	if err := r.cycle.transition(CycleStatePresented); err != nil {
		return err
	}

	r.allocator.Reset()
	return r.cycle.transition(CycleStateIdle)
}

// recoverCycle discards a half-built command buffer so the next draw
// starts clean.
func (r *Renderer) recoverCycle(ctx context.Context) {
	logger.Debugf(ctx, "recovering from a failed command cycle in state %s", r.cycle.State())
	r.cycle.abort()
	r.allocator.Reset()
	cmd, err := r.device.MakeCommandBuffer()
	if err != nil {
		logger.Errorf(ctx, "unable to recreate the command buffer: %v", err)
		return
	}
	r.commandBuffer = cmd
}

// Enqueue schedules cmd for the next draw.
func (r *Renderer) Enqueue(ctx context.Context, cmd Command) {
	r.controls.enqueue(ctx, cmd)
}

func (r *Renderer) SetScalingMode(ctx context.Context, mode types.ScalingMode) {
	r.Enqueue(ctx, CommandSetScalingMode{Mode: mode})
}

func (r *Renderer) ToggleScaling(ctx context.Context) {
	r.Enqueue(ctx, CommandToggleScaling{})
}

// NotifyResize tells the renderer the viewport changed; the scaler is
// rebuilt on the next draw.
func (r *Renderer) NotifyResize(ctx context.Context, viewport types.Resolution) {
	r.Enqueue(ctx, CommandResize{Viewport: viewport})
}

// ScalingMode is the mode used by the latest draw.
func (r *Renderer) ScalingMode() types.ScalingMode {
	return types.ScalingMode(r.modeView.Load())
}

func (r *Renderer) updateInfo(d scaling.Decision) {
	r.info.Store(fmt.Sprintf("Input: %s\nOutput: %s\n%s", d.Input, d.Target, d.Description()))
}

// Info describes the input, output and active scaling path.
func (r *Renderer) Info() string {
	return r.info.Load()
}

func (r *Renderer) ToggleInfo() {
	r.infoVisible.Toggle()
}

func (r *Renderer) InfoVisible() bool {
	return r.infoVisible.Load()
}

func (r *Renderer) Stats() *Stats {
	return ptr(r.stats.Convert())
}

// Play starts the playback clock; it fails until the pipelines are compiled.
func (r *Renderer) Play(ctx context.Context) error {
	if !r.isReady() {
		return ErrNotReady
	}
	r.clock.Play(ctx)
	return nil
}

func (r *Renderer) Pause(ctx context.Context) {
	r.clock.Pause(ctx)
}

func (r *Renderer) TogglePlay(ctx context.Context) error {
	if r.clock.IsPlaying(ctx) {
		r.Pause(ctx)
		return nil
	}
	return r.Play(ctx)
}

func (r *Renderer) IsPlaying(ctx context.Context) bool {
	return r.clock.IsPlaying(ctx)
}

// Position is the current playback position.
func (r *Renderer) Position(ctx context.Context) time.Duration {
	return r.clock.Position(ctx)
}

// Seek moves playback to t, clamped to the media duration.
func (r *Renderer) Seek(ctx context.Context, t time.Duration) error {
	return r.seek(ctx, r.clock.Seek(ctx, t))
}

// SeekRelative moves playback by delta, clamped to the media duration.
func (r *Renderer) SeekRelative(ctx context.Context, delta time.Duration) error {
	return r.seek(ctx, r.clock.SeekRelative(ctx, delta))
}

func (r *Renderer) seek(ctx context.Context, pos time.Duration) error {
	logger.Debugf(ctx, "seek to %v", pos)
	if seeker, ok := r.decoder.(framesource.Seeker); ok {
		if err := seeker.Seek(ctx, pos); err != nil {
			return fmt.Errorf("unable to seek the decoder to %v: %w", pos, err)
		}
	}
	r.Enqueue(ctx, commandResetSource{})
	return nil
}

// Close releases the GPU objects owned by the renderer. It must not race
// with Draw.
func (r *Renderer) Close(ctx context.Context) error {
	logger.Debugf(ctx, "Close")
	if err := r.scaling.Close(ctx); err != nil {
		return err
	}
	r.textures.Flush(ctx)
	r.uniform.Release()
	return nil
}
