// pixel_format.go defines the texel layouts understood by the render pipeline.

package types

import (
	"fmt"
	"strings"
)

type PixelFormat int

const (
	PixelFormatUndefined = PixelFormat(iota)

	// PixelFormatBGRA8Unorm is 8-bit-per-channel BGRA, used for SDR content.
	PixelFormatBGRA8Unorm

	// PixelFormatRGBA16Float is half-float RGBA, used for EDR content.
	PixelFormatRGBA16Float

	EndOfPixelFormat
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatUndefined:
		return "undefined"
	case PixelFormatBGRA8Unorm:
		return "bgra8unorm"
	case PixelFormatRGBA16Float:
		return "rgba16float"
	}
	return fmt.Sprintf("unknown_pixel_format_%d", int(f))
}

// BytesPerPixel returns zero for unknown formats.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatBGRA8Unorm:
		return 4
	case PixelFormatRGBA16Float:
		return 8
	}
	return 0
}

func (f PixelFormat) IsValid() bool {
	return f > PixelFormatUndefined && f < EndOfPixelFormat
}

func PixelFormatFromString(s string) (PixelFormat, error) {
	s = strings.Trim(strings.ToLower(s), " \"\n\t\r")
	for f := PixelFormatUndefined + 1; f < EndOfPixelFormat; f++ {
		if f.String() == s {
			return f, nil
		}
	}
	return PixelFormatUndefined, fmt.Errorf("unknown pixel format: '%s'", s)
}
