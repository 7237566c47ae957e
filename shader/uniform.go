// uniform.go defines the per-frame uniform consumed by the vertex stage.

package shader

import (
	"encoding/binary"
	"fmt"
	"math"
)

// UniformSize is the size in bytes of the frame uniform buffer.
const UniformSize = 8

// Scale holds the two factors the quad is multiplied by: the displayed
// image size relative to the viewport.
type Scale struct {
	X float32
	Y float32
}

func (s Scale) String() string {
	return fmt.Sprintf("%.4fx%.4f", s.X, s.Y)
}

// Put writes s into dst as two little-endian float32.
func (s Scale) Put(dst []byte) error {
	if len(dst) < UniformSize {
		return fmt.Errorf("uniform buffer is %d bytes, need %d", len(dst), UniformSize)
	}
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(s.X))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(s.Y))
	return nil
}

// ScaleFromBytes is the inverse of Scale.Put.
func ScaleFromBytes(b []byte) (Scale, error) {
	if len(b) < UniformSize {
		return Scale{}, fmt.Errorf("uniform buffer is %d bytes, need %d", len(b), UniformSize)
	}
	return Scale{
		X: math.Float32frombits(binary.LittleEndian.Uint32(b[0:4])),
		Y: math.Float32frombits(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}
