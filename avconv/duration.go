// duration.go converts between libav timestamps and time.Duration.

// Package avconv converts libav values into the types of this module.
package avconv

import (
	"math"
	"time"

	"github.com/asticode/go-astiav"
	"github.com/xaionaro-go/typing"
)

// Duration converts a timestamp in timeBase units. A missing timestamp
// yields an unset value.
func Duration(ts int64, timeBase astiav.Rational) typing.Optional[time.Duration] {
	if ts == astiav.NoPtsValue || timeBase.Den() == 0 {
		return typing.Optional[time.Duration]{}
	}
	return typing.Opt(time.Duration(float64(ts) * timeBase.Float64() * float64(time.Second)))
}

// FromDuration converts d into timeBase units, rounding down.
func FromDuration(d time.Duration, timeBase astiav.Rational) int64 {
	if timeBase.Num() == 0 {
		return astiav.NoPtsValue
	}
	return int64(math.Floor(d.Seconds() / timeBase.Float64()))
}

// ContainerDuration is the duration declared by the container, if any.
func ContainerDuration(fmtCtx *astiav.FormatContext) typing.Optional[time.Duration] {
	d := fmtCtx.Duration()
	if d <= 0 || d == astiav.NoPtsValue {
		return typing.Optional[time.Duration]{}
	}
	return typing.Opt(time.Duration(float64(d) / float64(astiav.TimeBase) * float64(time.Second)))
}
