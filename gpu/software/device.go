// device.go implements gpu.Device on the CPU.

// Package software is a CPU implementation of the gpu package. It executes
// recorded commands at commit time and rejects the submissions a real GPU
// would silently mis-execute: non-resident allocations, fragment reads that
// race a scaler write, reuse of an allocator that was not reset, and
// drawables presented out of order.
package software

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/types"
	"github.com/xaionaro-go/xsync"
)

var ctxNoLog = xsync.WithNoLogging(context.Background(), true)

type OptionCommons struct{}

func (OptionCommons) deviceOption() {}

type Option interface {
	deviceOption()
}

type Options []Option

func OptionLatest[T Option](s Options) (ret T, ok bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i].(T); ok {
			return v, true
		}
	}
	return
}

// OptionSpatialScalerSupport controls SupportsSpatialScaler (default: true).
type OptionSpatialScalerSupport struct {
	OptionCommons
	Supported bool
}

// OptionCompileLatency delays every compiler call.
type OptionCompileLatency struct {
	OptionCommons
	Latency time.Duration
}

// OptionWorkers sets how many goroutines rasterize a render pass.
type OptionWorkers struct {
	OptionCommons
	Count int
}

type Device struct {
	name           string
	spatialScaler  bool
	compileLatency time.Duration
	workers        int
}

var _ gpu.Device = (*Device)(nil)

func NewDevice(opts ...Option) *Device {
	d := &Device{
		name:          "software",
		spatialScaler: true,
		workers:       runtime.NumCPU(),
	}
	if opt, ok := OptionLatest[OptionSpatialScalerSupport](opts); ok {
		d.spatialScaler = opt.Supported
	}
	if opt, ok := OptionLatest[OptionCompileLatency](opts); ok {
		d.compileLatency = opt.Latency
	}
	if opt, ok := OptionLatest[OptionWorkers](opts); ok && opt.Count > 0 {
		d.workers = opt.Count
	}
	return d
}

func (d *Device) String() string {
	return fmt.Sprintf("SoftwareDevice(workers:%d, spatial_scaler:%t)", d.workers, d.spatialScaler)
}

func (d *Device) MakeCommandQueue() (gpu.CommandQueue, error) {
	return &CommandQueue{
		device:          d,
		waitedDrawables: map[*Drawable]struct{}{},
	}, nil
}

func (d *Device) MakeCompiler() (gpu.Compiler, error) {
	return &Compiler{latency: d.compileLatency}, nil
}

func (d *Device) MakeCommandAllocator() (gpu.CommandAllocator, error) {
	return &CommandAllocator{}, nil
}

func (d *Device) MakeCommandBuffer() (gpu.CommandBuffer, error) {
	return &CommandBuffer{}, nil
}

func (d *Device) MakeArgumentTable(desc gpu.ArgumentTableDescriptor) (gpu.ArgumentTable, error) {
	if desc.MaxTextureBindCount < 0 || desc.MaxBufferBindCount < 0 {
		return nil, fmt.Errorf("invalid argument table descriptor %+v", desc)
	}
	return &ArgumentTable{
		desc:     desc,
		textures: make([]*Texture, desc.MaxTextureBindCount),
		buffers:  make([]*Buffer, desc.MaxBufferBindCount),
	}, nil
}

func (d *Device) MakeResidencySet() (gpu.ResidencySet, error) {
	return &ResidencySet{}, nil
}

func (d *Device) MakeBuffer(length int) (gpu.Buffer, error) {
	if length <= 0 {
		return nil, fmt.Errorf("invalid buffer length %d", length)
	}
	return &Buffer{id: types.NewObjectID(), contents: make([]byte, length)}, nil
}

func (d *Device) MakeTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	t, err := newTexture(desc)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Device) MakeFence() (gpu.Fence, error) {
	return &Fence{id: types.NewObjectID()}, nil
}

func (d *Device) MakeTextureFromFrame(f *frame.Video, pixFmt types.PixelFormat) (gpu.Texture, error) {
	if f == nil {
		return nil, fmt.Errorf("nil frame")
	}
	if f.IsReleased() {
		return nil, fmt.Errorf("%s: %w", f, gpu.ErrReleased)
	}
	t, err := newTextureFromFrame(f, pixFmt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (d *Device) SupportsSpatialScaler() bool {
	return d.spatialScaler
}

func (d *Device) MakeSpatialScaler(desc gpu.SpatialScalerDescriptor) (gpu.SpatialScaler, error) {
	if !d.spatialScaler {
		return nil, gpu.ErrUnsupported
	}
	if desc.InputWidth <= 0 || desc.InputHeight <= 0 || desc.OutputWidth <= 0 || desc.OutputHeight <= 0 {
		return nil, fmt.Errorf("invalid spatial scaler size %dx%d -> %dx%d",
			desc.InputWidth, desc.InputHeight, desc.OutputWidth, desc.OutputHeight)
	}
	if desc.ColorTextureFormat.BytesPerPixel() == 0 || desc.OutputTextureFormat.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("unsupported spatial scaler formats %s -> %s", desc.ColorTextureFormat, desc.OutputTextureFormat)
	}
	return &SpatialScaler{desc: desc}, nil
}
