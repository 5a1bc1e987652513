package depth

import (
	"image"

	"github.com/rockly/rockly/internal/imaging"
)

// EnhanceGeologicalFeatures amplifies depth where the photo shows
// structure: mineral boundaries get a 1.3× depth boost, flat bright
// regions read as crystal faces and get 1.1×, and everything away from
// an edge is smoothed to suppress estimator noise.
func EnhanceGeologicalFeatures(depthMap *imaging.Grid, img *image.RGBA) *imaging.Grid {
	lum := imaging.Luminance(img)

	// Mineral boundaries show up as edges in the photo, in the depth
	// field, or both; boost along the union.
	edges := imaging.Dilate(imaging.Or(
		imaging.EdgeMap(lum, edgeThreshold),
		imaging.EdgeMap(depthMap, edgeThreshold),
	))

	out := depthMap.Clone()
	for i, on := range edges.Data {
		if on {
			out.Data[i] *= 1.3
		}
	}

	// Crystal faces: small bright structures left over after a
	// morphological opening.
	opened := imaging.Open(lum, 5)
	for i := range out.Data {
		if lum.Data[i]-opened.Data[i] > 0.04 {
			out.Data[i] *= 1.1
		}
	}

	// Smooth non-edge areas only, preserving the boosted boundaries.
	smoothed := imaging.GaussianBlur(out, 5)
	for i, on := range edges.Data {
		if !on {
			out.Data[i] = smoothed.Data[i]
		}
	}

	return out
}

// PostProcessDepth applies geological plausibility constraints: rocks do
// not have sharp vertical drops, so extreme gradients are flattened,
// natural texture is re-added from the gradient field, and the result is
// clipped back to [0,1].
func PostProcessDepth(depthMap *imaging.Grid) *imaging.Grid {
	smoothed := imaging.GaussianBlur(depthMap, 5)

	gx := imaging.SobelX(smoothed)
	gy := imaging.SobelY(smoothed)
	mag := imaging.GradientMagnitude(gx, gy)

	// Flatten unrealistic transitions.
	heavy := imaging.GaussianBlur(smoothed, 7)
	out := smoothed.Clone()
	for i, m := range mag.Data {
		if m > 0.3 {
			out.Data[i] = heavy.Data[i]
		}
	}

	// Re-add fine texture from the gradient field.
	for i := range out.Data {
		d := gx.Data[i] + gy.Data[i]
		if d < 0 {
			d = -d
		}
		out.Data[i] += 0.05 * d
	}

	out.Clip(0, 1)
	return imaging.GaussianBlur(out, 3)
}
