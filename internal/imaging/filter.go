package imaging

import "math"

// SharpenKernel is the 3×3 sharpening kernel used for mineral boundary
// and crystal face enhancement.
var SharpenKernel = [9]float64{
	-1, -1, -1,
	-1, 9, -1,
	-1, -1, -1,
}

// Convolve3x3 applies a 3×3 kernel with clamped border sampling.
func Convolve3x3(g *Grid, kernel [9]float64) *Grid {
	out := NewGrid(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			sum := 0.0
			k := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					sum += g.At(x+dx, y+dy) * kernel[k]
					k++
				}
			}
			out.Data[y*g.W+x] = sum
		}
	}
	return out
}

// gaussianTaps returns binomial approximations of a Gaussian kernel for
// odd sizes 3, 5 and 7.
func gaussianTaps(size int) []float64 {
	switch {
	case size <= 3:
		return []float64{1.0 / 4, 2.0 / 4, 1.0 / 4}
	case size <= 5:
		return []float64{1.0 / 16, 4.0 / 16, 6.0 / 16, 4.0 / 16, 1.0 / 16}
	default:
		return []float64{1.0 / 64, 6.0 / 64, 15.0 / 64, 20.0 / 64, 15.0 / 64, 6.0 / 64, 1.0 / 64}
	}
}

// GaussianBlur applies a separable Gaussian approximation of the given
// odd kernel size (3, 5 or 7).
func GaussianBlur(g *Grid, size int) *Grid {
	taps := gaussianTaps(size)
	r := len(taps) / 2

	horiz := NewGrid(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			sum := 0.0
			for i, t := range taps {
				sum += g.At(x+i-r, y) * t
			}
			horiz.Data[y*g.W+x] = sum
		}
	}

	out := NewGrid(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			sum := 0.0
			for i, t := range taps {
				sum += horiz.At(x, y+i-r) * t
			}
			out.Data[y*g.W+x] = sum
		}
	}
	return out
}

// SobelX computes the horizontal Sobel derivative.
func SobelX(g *Grid) *Grid {
	return Convolve3x3(g, [9]float64{
		-1, 0, 1,
		-2, 0, 2,
		-1, 0, 1,
	})
}

// SobelY computes the vertical Sobel derivative.
func SobelY(g *Grid) *Grid {
	return Convolve3x3(g, [9]float64{
		-1, -2, -1,
		0, 0, 0,
		1, 2, 1,
	})
}

// GradientMagnitude returns sqrt(gx² + gy²) per cell.
func GradientMagnitude(gx, gy *Grid) *Grid {
	out := NewGrid(gx.W, gx.H)
	for i := range out.Data {
		out.Data[i] = math.Hypot(gx.Data[i], gy.Data[i])
	}
	return out
}

// Laplacian computes the 4-connected Laplacian.
func Laplacian(g *Grid) *Grid {
	return Convolve3x3(g, [9]float64{
		0, 1, 0,
		1, -4, 1,
		0, 1, 0,
	})
}

// MinFilter replaces each cell with the minimum in a k×k window
// (grayscale erosion).
func MinFilter(g *Grid, k int) *Grid {
	r := k / 2
	out := NewGrid(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			min := g.At(x, y)
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if v := g.At(x+dx, y+dy); v < min {
						min = v
					}
				}
			}
			out.Data[y*g.W+x] = min
		}
	}
	return out
}

// MaxFilter replaces each cell with the maximum in a k×k window
// (grayscale dilation).
func MaxFilter(g *Grid, k int) *Grid {
	r := k / 2
	out := NewGrid(g.W, g.H)
	for y := 0; y < g.H; y++ {
		for x := 0; x < g.W; x++ {
			max := g.At(x, y)
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if v := g.At(x+dx, y+dy); v > max {
						max = v
					}
				}
			}
			out.Data[y*g.W+x] = max
		}
	}
	return out
}

// Open performs grayscale morphological opening (erode then dilate) with
// a k×k window. Subtracting the opening from the source isolates small
// bright structures.
func Open(g *Grid, k int) *Grid {
	return MaxFilter(MinFilter(g, k), k)
}
