// program.go enumerates the render programs and binds them to shader functions.

// Package shader is the resampling stage: a fixed full-screen quad vertex
// stage and two interchangeable fragment programs (bilinear passthrough and
// Lanczos downsampling), both as shader source for GPU backends and as Go
// functions for the software device.
package shader

import (
	_ "embed"
	"fmt"
)

//go:embed resample.metal
var Source string

const VertexFunctionName = "quadVertex"

// Program is a closed set of fragment programs, selected once per frame.
type Program int

const (
	ProgramPassthrough = Program(iota)
	ProgramLanczosDownsample
	EndOfProgram
)

func Programs() []Program {
	return []Program{ProgramPassthrough, ProgramLanczosDownsample}
}

func (p Program) String() string {
	switch p {
	case ProgramPassthrough:
		return "passthrough"
	case ProgramLanczosDownsample:
		return "lanczos_downsample"
	}
	return fmt.Sprintf("unknown_program_%d", int(p))
}

func (p Program) FragmentFunctionName() string {
	switch p {
	case ProgramPassthrough:
		return "passthroughFragment"
	case ProgramLanczosDownsample:
		return "lanczosDownsampleFragment"
	}
	return ""
}

// FragmentFuncByName returns the Go implementation of a fragment function
// declared in Source.
func FragmentFuncByName(name string) (FragmentFunc, bool) {
	switch name {
	case ProgramPassthrough.FragmentFunctionName():
		return Passthrough, true
	case ProgramLanczosDownsample.FragmentFunctionName():
		return LanczosDownsample, true
	}
	return nil, false
}
