package software

import (
	"fmt"
	"math"
	"sync"

	"github.com/xaionaro-go/vidframe/shader"
)

type screenVertex struct {
	x, y float64
	uv   [2]float32
}

// rasterizeQuad runs the quad vertex stage and fills the covered pixels of
// target with the pipeline's fragment function, splitting rows across
// workers.
func rasterizeQuad(target *Texture, dc drawCall, workers int) error {
	scale, err := shader.ScaleFromBytes(dc.buffer.contents)
	if err != nil {
		return err
	}
	if dc.vertexCount%3 != 0 {
		return fmt.Errorf("vertex count %d is not a multiple of 3", dc.vertexCount)
	}

	w, h := float64(target.Width()), float64(target.Height())
	var tris [][3]screenVertex
	for v := dc.vertexStart; v < dc.vertexStart+dc.vertexCount; v += 3 {
		var tri [3]screenVertex
		for i := range tri {
			out := shader.QuadVertex(v+i, scale)
			tri[i] = screenVertex{
				x:  (float64(out.Position[0]) + 1) / 2 * w,
				y:  (1 - float64(out.Position[1])) / 2 * h,
				uv: out.TexCoord,
			}
		}
		tris = append(tris, tri)
	}

	if workers < 1 {
		workers = 1
	}
	rows := target.Height()
	band := (rows + workers - 1) / workers
	var wg sync.WaitGroup
	for y0 := 0; y0 < rows; y0 += band {
		y1 := min(y0+band, rows)
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			rasterizeRows(target, dc, tris, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
	return nil
}

func edge(a, b screenVertex, px, py float64) float64 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

func rasterizeRows(target *Texture, dc drawCall, tris [][3]screenVertex, y0, y1 int) {
	width := target.Width()
	covered := make([]bool, width)
	for y := y0; y < y1; y++ {
		clear(covered)
		py := float64(y) + 0.5
		for _, tri := range tris {
			area := edge(tri[0], tri[1], tri[2].x, tri[2].y)
			if area == 0 {
				continue
			}
			minX := max(0, int(math.Floor(math.Min(tri[0].x, math.Min(tri[1].x, tri[2].x)))))
			maxX := min(width-1, int(math.Ceil(math.Max(tri[0].x, math.Max(tri[1].x, tri[2].x)))))
			for x := minX; x <= maxX; x++ {
				if covered[x] {
					continue
				}
				px := float64(x) + 0.5
				w0 := edge(tri[1], tri[2], px, py) / area
				w1 := edge(tri[2], tri[0], px, py) / area
				w2 := edge(tri[0], tri[1], px, py) / area
				if w0 < 0 || w1 < 0 || w2 < 0 {
					continue
				}
				covered[x] = true
				uv := [2]float32{
					float32(w0*float64(tri[0].uv[0]) + w1*float64(tri[1].uv[0]) + w2*float64(tri[2].uv[0])),
					float32(w0*float64(tri[0].uv[1]) + w1*float64(tri[1].uv[1]) + w2*float64(tri[2].uv[1])),
				}
				target.setTexel(x, y, dc.pipeline.fragment(dc.texture, uv))
			}
		}
	}
}
