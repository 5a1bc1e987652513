package imaging

// Binary is a boolean raster, row-major, same addressing as Grid.
type Binary struct {
	W, H int
	Data []bool
}

// NewBinary allocates a cleared W×H mask.
func NewBinary(w, h int) *Binary {
	return &Binary{W: w, H: h, Data: make([]bool, w*h)}
}

// At returns the mask value at (x, y), false outside the bounds.
func (b *Binary) At(x, y int) bool {
	if x < 0 || x >= b.W || y < 0 || y >= b.H {
		return false
	}
	return b.Data[y*b.W+x]
}

// Count returns the number of set cells.
func (b *Binary) Count() int {
	n := 0
	for _, v := range b.Data {
		if v {
			n++
		}
	}
	return n
}

// Density returns the fraction of set cells.
func (b *Binary) Density() float64 {
	if len(b.Data) == 0 {
		return 0
	}
	return float64(b.Count()) / float64(len(b.Data))
}

// EdgeMap thresholds the gradient magnitude of g into an edge mask.
// The threshold is relative to the gradient's own maximum, so the mask
// is stable across differently scaled inputs.
func EdgeMap(g *Grid, relThreshold float64) *Binary {
	mag := GradientMagnitude(SobelX(g), SobelY(g))
	_, max := mag.MinMax()
	out := NewBinary(g.W, g.H)
	if max == 0 {
		return out
	}
	abs := relThreshold * max
	for i, v := range mag.Data {
		out.Data[i] = v >= abs
	}
	return out
}

// Dilate grows the mask by one cell in all eight directions.
func Dilate(b *Binary) *Binary {
	out := NewBinary(b.W, b.H)
	for y := 0; y < b.H; y++ {
		for x := 0; x < b.W; x++ {
			set := false
			for dy := -1; dy <= 1 && !set; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if b.At(x+dx, y+dy) {
						set = true
						break
					}
				}
			}
			out.Data[y*b.W+x] = set
		}
	}
	return out
}

// Or returns the cellwise union of two same-sized masks.
func Or(a, b *Binary) *Binary {
	out := NewBinary(a.W, a.H)
	for i := range out.Data {
		out.Data[i] = a.Data[i] || b.Data[i]
	}
	return out
}

// IoU returns the intersection-over-union of two same-sized masks.
// Empty union yields 0.
func IoU(a, b *Binary) float64 {
	inter, union := 0, 0
	for i := range a.Data {
		if a.Data[i] && b.Data[i] {
			inter++
		}
		if a.Data[i] || b.Data[i] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
