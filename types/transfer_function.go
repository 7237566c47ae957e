// transfer_function.go defines the transfer function tag reported by a decoder.

package types

import (
	"fmt"
)

type TransferFunction int

const (
	TransferFunctionSDR = TransferFunction(iota)
	TransferFunctionPQ
	TransferFunctionHLG
)

func (t TransferFunction) String() string {
	switch t {
	case TransferFunctionSDR:
		return "SDR"
	case TransferFunctionPQ:
		return "PQ"
	case TransferFunctionHLG:
		return "HLG"
	}
	return fmt.Sprintf("TransferFunction(%d)", int(t))
}

// IsExtendedDynamicRange reports whether the content needs an EDR surface.
func (t TransferFunction) IsExtendedDynamicRange() bool {
	return t == TransferFunctionPQ || t == TransferFunctionHLG
}

// PixelFormat returns the texel layout used to import frames tagged with t.
func (t TransferFunction) PixelFormat() PixelFormat {
	if t.IsExtendedDynamicRange() {
		return PixelFormatRGBA16Float
	}
	return PixelFormatBGRA8Unorm
}
