package imaging

import "math"

// Grid is a dense float64 raster, row-major. It is the working
// representation for depth maps and intermediate filter results.
type Grid struct {
	W, H int
	Data []float64
}

// NewGrid allocates a zeroed W×H grid.
func NewGrid(w, h int) *Grid {
	return &Grid{W: w, H: h, Data: make([]float64, w*h)}
}

// At returns the value at (x, y). Coordinates are clamped to the grid
// bounds so filters can sample past the border.
func (g *Grid) At(x, y int) float64 {
	if x < 0 {
		x = 0
	} else if x >= g.W {
		x = g.W - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.H {
		y = g.H - 1
	}
	return g.Data[y*g.W+x]
}

// Set writes the value at (x, y). Out-of-bounds writes are ignored.
func (g *Grid) Set(x, y int, v float64) {
	if x < 0 || x >= g.W || y < 0 || y >= g.H {
		return
	}
	g.Data[y*g.W+x] = v
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.W, g.H)
	copy(out.Data, g.Data)
	return out
}

// MinMax returns the smallest and largest values in the grid.
func (g *Grid) MinMax() (min, max float64) {
	if len(g.Data) == 0 {
		return 0, 0
	}
	min, max = g.Data[0], g.Data[0]
	for _, v := range g.Data[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Normalize rescales the grid in place to [0,1]. A constant grid
// becomes all zeros.
func (g *Grid) Normalize() {
	min, max := g.MinMax()
	span := max - min
	if span == 0 {
		for i := range g.Data {
			g.Data[i] = 0
		}
		return
	}
	for i, v := range g.Data {
		g.Data[i] = (v - min) / span
	}
}

// Clip bounds every value to [lo, hi] in place.
func (g *Grid) Clip(lo, hi float64) {
	for i, v := range g.Data {
		if v < lo {
			g.Data[i] = lo
		} else if v > hi {
			g.Data[i] = hi
		}
	}
}

// Mean returns the arithmetic mean of all values.
func (g *Grid) Mean() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range g.Data {
		sum += v
	}
	return sum / float64(len(g.Data))
}

// Variance returns the population variance of all values.
func (g *Grid) Variance() float64 {
	if len(g.Data) == 0 {
		return 0
	}
	mean := g.Mean()
	sum := 0.0
	for _, v := range g.Data {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(g.Data))
}

// Resize returns a bilinearly resampled copy at w×h.
func (g *Grid) Resize(w, h int) *Grid {
	out := NewGrid(w, h)
	if w == g.W && h == g.H {
		copy(out.Data, g.Data)
		return out
	}
	sx := float64(g.W) / float64(w)
	sy := float64(g.H) / float64(h)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0 := int(math.Floor(fy))
		ty := fy - float64(y0)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0 := int(math.Floor(fx))
			tx := fx - float64(x0)

			v00 := g.At(x0, y0)
			v10 := g.At(x0+1, y0)
			v01 := g.At(x0, y0+1)
			v11 := g.At(x0+1, y0+1)

			top := v00 + (v10-v00)*tx
			bot := v01 + (v11-v01)*tx
			out.Data[y*w+x] = top + (bot-top)*ty
		}
	}
	return out
}
