package depth

import (
	"image"

	"github.com/rockly/rockly/internal/imaging"
)

// edgeThreshold is the relative gradient threshold used wherever the
// pipeline needs a boundary mask.
const edgeThreshold = 0.25

// PreprocessRockImage enhances a sample photo for depth estimation:
// contrast stretch for mineral detail, sharpening for crystal faces and
// mineral boundaries, brightening along detected edges, and a final
// smoothing pass that keeps the enhanced structure.
func PreprocessRockImage(img *image.RGBA) *image.RGBA {
	r, g, b := imaging.Channels(img)

	// Contrast stretch each channel to full range.
	r.Normalize()
	g.Normalize()
	b.Normalize()

	// Sharpen mineral boundaries.
	r = imaging.Convolve3x3(r, imaging.SharpenKernel)
	g = imaging.Convolve3x3(g, imaging.SharpenKernel)
	b = imaging.Convolve3x3(b, imaging.SharpenKernel)
	r.Clip(0, 1)
	g.Clip(0, 1)
	b.Clip(0, 1)

	// Brighten along dilated edges so boundaries survive the later blur.
	lum := imaging.Luminance(imaging.Compose(r, g, b))
	edges := imaging.Dilate(imaging.EdgeMap(lum, edgeThreshold))
	boost := func(c *imaging.Grid) {
		for i, on := range edges.Data {
			if on {
				v := c.Data[i] * 1.2
				if v > 1 {
					v = 1
				}
				c.Data[i] = v
			}
		}
	}
	boost(r)
	boost(g)
	boost(b)

	// Mild denoise.
	r = imaging.GaussianBlur(r, 3)
	g = imaging.GaussianBlur(g, 3)
	b = imaging.GaussianBlur(b, 3)

	return imaging.Compose(r, g, b)
}
