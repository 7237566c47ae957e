package gpu

import (
	"errors"
)

var (
	ErrNotResident      = errors.New("allocation is referenced by a command but is not resident")
	ErrFenceHazard      = errors.New("texture is read before the fence guarding its write was waited on")
	ErrAllocatorInUse   = errors.New("command allocator was not reset since its last use")
	ErrDrawableNotReady = errors.New("drawable was not prepared for this operation")
	ErrInvalidState     = errors.New("invalid command buffer state")
	ErrUnsupported      = errors.New("operation is not supported by the device")
	ErrReleased         = errors.New("object was already released")
)
