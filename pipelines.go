// pipelines.go compiles the render pipeline of every fragment program.

package vidframe

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/logger"
	"github.com/xaionaro-go/vidframe/shader"
	"github.com/xaionaro-go/vidframe/types"
)

type pipelineSet [shader.EndOfProgram]gpu.RenderPipelineState

func (s *pipelineSet) get(p shader.Program) gpu.RenderPipelineState {
	return s[p]
}

func compilePipelines(
	ctx context.Context,
	compiler gpu.Compiler,
	colorFormat types.PixelFormat,
) (_ret *pipelineSet, _err error) {
	logger.Debugf(ctx, "compilePipelines(%s)", colorFormat)
	defer func() { logger.Debugf(ctx, "/compilePipelines(%s): %v", colorFormat, _err) }()

	lib, err := compiler.MakeLibrary(ctx, shader.Source)
	if err != nil {
		return nil, fmt.Errorf("unable to compile the shader library: %w", err)
	}
	vertex, err := lib.Function(shader.VertexFunctionName)
	if err != nil {
		return nil, fmt.Errorf("unable to get the vertex function: %w", err)
	}

	var set pipelineSet
	for _, p := range shader.Programs() {
		fragment, err := lib.Function(p.FragmentFunctionName())
		if err != nil {
			return nil, fmt.Errorf("unable to get the fragment function of %s: %w", p, err)
		}
		state, err := compiler.MakeRenderPipelineState(ctx, gpu.RenderPipelineDescriptor{
			Label:            p.String(),
			VertexFunction:   vertex,
			FragmentFunction: fragment,
			ColorPixelFormat: colorFormat,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to make the %s pipeline: %w", p, err)
		}
		set[p] = state
	}
	return &set, nil
}
