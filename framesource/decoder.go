// decoder.go defines the contract of the decoder collaborator.

package framesource

import (
	"context"
	"time"

	"github.com/xaionaro-go/typing"
	"github.com/xaionaro-go/vidframe/frame"
	"github.com/xaionaro-go/vidframe/types"
)

// Decoder hands out decoded frames by playback time. Implementations must
// not block in HasNewFrame or CopyFrame.
type Decoder interface {
	// HasNewFrame reports whether a frame not yet copied is due at t.
	HasNewFrame(t time.Duration) bool

	// CopyFrame returns the latest frame due at t, or nil if there is none.
	// The caller owns the returned frame and must Release it.
	CopyFrame(ctx context.Context, t time.Duration) (*frame.Video, error)

	// Duration is unset while unknown.
	Duration() typing.Optional[time.Duration]

	TransferFunction() types.TransferFunction
	Resolution() types.Resolution

	types.Closer
}

// Seeker is implemented by decoders that can jump to another position.
type Seeker interface {
	Seek(ctx context.Context, t time.Duration) error
}
