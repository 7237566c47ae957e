// color.go maps libav color and pixel format values onto the module types.

package avconv

import (
	"fmt"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/vidframe/types"
)

// TransferFunction reduces a libav transfer characteristic to the tag the
// renderer cares about.
func TransferFunction(trc astiav.ColorTransferCharacteristic) types.TransferFunction {
	switch trc {
	case astiav.ColorTransferCharacteristicSmpte2084:
		return types.TransferFunctionPQ
	case astiav.ColorTransferCharacteristicAribStdB67:
		return types.TransferFunctionHLG
	default:
		return types.TransferFunctionSDR
	}
}

// ConversionPixelFormat is the libav format frames are converted to before
// they are handed out as pixFmt. RGBA16Float is produced from 16-bit
// integer RGBA, which has the same layout size.
func ConversionPixelFormat(pixFmt types.PixelFormat) (astiav.PixelFormat, error) {
	switch pixFmt {
	case types.PixelFormatBGRA8Unorm:
		return astiav.PixelFormatBgra, nil
	case types.PixelFormatRGBA16Float:
		return astiav.PixelFormatRgba64Le, nil
	}
	return astiav.PixelFormatNone, fmt.Errorf("no libav conversion for %s", pixFmt)
}

// FindVideoStream returns the first video stream of fmtCtx, or nil.
func FindVideoStream(fmtCtx *astiav.FormatContext) *astiav.Stream {
	for _, stream := range fmtCtx.Streams() {
		if stream.CodecParameters().MediaType() == astiav.MediaTypeVideo {
			return stream
		}
	}
	return nil
}
