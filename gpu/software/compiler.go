package software

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"
)

// Compiler "compiles" shader source by checking that every requested
// function is declared in it and binding the Go implementation from the
// shader package.
type Compiler struct {
	latency time.Duration
}

var _ gpu.Compiler = (*Compiler)(nil)

type Library struct {
	source string
}

var _ gpu.Library = (*Library)(nil)

type Function struct {
	name string
}

var _ gpu.Function = (*Function)(nil)

func (f *Function) Name() string { return f.name }

func (c *Compiler) wait(ctx context.Context) error {
	if c.latency <= 0 {
		return nil
	}
	t := time.NewTimer(c.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Compiler) MakeLibrary(ctx context.Context, source string) (gpu.Library, error) {
	logger.Tracef(ctx, "MakeLibrary")
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("empty shader source")
	}
	return &Library{source: source}, nil
}

func (l *Library) Function(name string) (gpu.Function, error) {
	if !strings.Contains(l.source, " "+name+"(") {
		return nil, fmt.Errorf("function '%s' is not declared in the library", name)
	}
	return &Function{name: name}, nil
}

type RenderPipelineState struct {
	label        string
	fragmentName string
	fragment     shader.FragmentFunc
	colorFormat  types.PixelFormat
}

var _ gpu.RenderPipelineState = (*RenderPipelineState)(nil)

func (p *RenderPipelineState) String() string {
	return fmt.Sprintf("RenderPipeline(%s:%s->%s)", p.label, p.fragmentName, p.colorFormat)
}

func (p *RenderPipelineState) ColorPixelFormat() types.PixelFormat {
	return p.colorFormat
}

func (c *Compiler) MakeRenderPipelineState(
	ctx context.Context,
	desc gpu.RenderPipelineDescriptor,
) (_ret gpu.RenderPipelineState, _err error) {
	logger.Tracef(ctx, "MakeRenderPipelineState(%s)", desc.Label)
	defer func() { logger.Tracef(ctx, "/MakeRenderPipelineState(%s): %v", desc.Label, _err) }()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if desc.VertexFunction == nil || desc.FragmentFunction == nil {
		return nil, fmt.Errorf("pipeline '%s' misses a vertex or a fragment function", desc.Label)
	}
	if desc.VertexFunction.Name() != shader.VertexFunctionName {
		return nil, fmt.Errorf("unknown vertex function '%s'", desc.VertexFunction.Name())
	}
	fragment, ok := shader.FragmentFuncByName(desc.FragmentFunction.Name())
	if !ok {
		return nil, fmt.Errorf("unknown fragment function '%s'", desc.FragmentFunction.Name())
	}
	if !desc.ColorPixelFormat.IsValid() {
		return nil, fmt.Errorf("invalid color pixel format %s", desc.ColorPixelFormat)
	}
	return &RenderPipelineState{
		label:        desc.Label,
		fragmentName: desc.FragmentFunction.Name(),
		fragment:     fragment,
		colorFormat:  desc.ColorPixelFormat,
	}, nil
}
