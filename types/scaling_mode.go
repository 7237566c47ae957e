// scaling_mode.go defines ScalingMode, the user-selected scaling policy.

package types

import (
	"fmt"
	"strings"
)

type ScalingMode int

const (
	// ScalingModeOff displays the input 1:1, without resampling.
	ScalingModeOff = ScalingMode(iota)

	// ScalingModeFit scales to the largest size within the viewport that
	// preserves the input aspect ratio.
	ScalingModeFit

	// ScalingModeFill scales to the viewport height; the width follows the
	// aspect ratio and may exceed the viewport.
	ScalingModeFill

	EndOfScalingMode
)

func (m ScalingMode) String() string {
	switch m {
	case ScalingModeOff:
		return "off"
	case ScalingModeFit:
		return "fit"
	case ScalingModeFill:
		return "fill"
	}
	return fmt.Sprintf("unknown_scaling_mode_%d", int(m))
}

func ScalingModeFromString(s string) (ScalingMode, error) {
	s = strings.Trim(strings.ToLower(s), " \"\n\t\r")
	for m := ScalingModeOff; m < EndOfScalingMode; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return ScalingModeOff, fmt.Errorf("unknown scaling mode: '%s'", s)
}

// Set implements pflag.Value.
func (m *ScalingMode) Set(s string) error {
	v, err := ScalingModeFromString(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Type implements pflag.Value.
func (m *ScalingMode) Type() string {
	return "scaling-mode"
}

func (m *ScalingMode) UnmarshalText(b []byte) error {
	return m.Set(string(b))
}

func (m ScalingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
