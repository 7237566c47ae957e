// resolution.go defines Resolution, a size in pixels.

package types

import (
	"fmt"
)

type Resolution struct {
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r *Resolution) Parse(s string) error {
	_, err := fmt.Sscanf(s, "%dx%d", &r.Width, &r.Height)
	if err != nil {
		return fmt.Errorf("unable to parse resolution '%s': %w", s, err)
	}
	return nil
}

// Set implements pflag.Value.
func (r *Resolution) Set(s string) error {
	return r.Parse(s)
}

// Type implements pflag.Value.
func (r *Resolution) Type() string {
	return "resolution"
}

func (r Resolution) IsZero() bool {
	return r.Width == 0 || r.Height == 0
}

// Aspect returns width/height, or zero for a degenerate resolution.
func (r Resolution) Aspect() float64 {
	if r.Height == 0 {
		return 0
	}
	return float64(r.Width) / float64(r.Height)
}

// ExceedsIn reports whether r is strictly larger than other in at least
// one dimension.
func (r Resolution) ExceedsIn(other Resolution) bool {
	return r.Width > other.Width || r.Height > other.Height
}

// SmallerIn reports whether r is strictly smaller than other in at least
// one dimension.
func (r Resolution) SmallerIn(other Resolution) bool {
	return r.Width < other.Width || r.Height < other.Height
}

func (r Resolution) Pixels() uint64 {
	return uint64(r.Width) * uint64(r.Height)
}
