// quad.go implements the vertex stage: a fixed full-screen quad scaled by a
// per-frame uniform.

package shader

// QuadVertexCount is the number of vertices drawn per frame (two triangles).
const QuadVertexCount = 6

var quadPositions = [QuadVertexCount][2]float32{
	{-1, -1}, {1, -1}, {-1, 1},
	{-1, 1}, {1, -1}, {1, 1},
}

var quadTexCoords = [QuadVertexCount][2]float32{
	{0, 1}, {1, 1}, {0, 0},
	{0, 0}, {1, 1}, {1, 0},
}

// VertexOut is the vertex stage output in clip space.
type VertexOut struct {
	Position [4]float32
	TexCoord [2]float32
}

// QuadVertex computes vertex vid of the quad scaled by scale.
func QuadVertex(vid int, scale Scale) VertexOut {
	p := quadPositions[vid%QuadVertexCount]
	return VertexOut{
		Position: [4]float32{p[0] * scale.X, p[1] * scale.Y, 0, 1},
		TexCoord: quadTexCoords[vid%QuadVertexCount],
	}
}
