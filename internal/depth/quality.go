package depth

import (
	"image"

	"github.com/rockly/rockly/internal/imaging"
	"github.com/rockly/rockly/internal/models"
)

// AssessQuality scores the depth reconstruction against the photo.
// Every component lies in [0,1]; the overall score is a fixed weighted
// blend (edges 0.3, smoothness 0.25, definition 0.25, range 0.2).
func AssessQuality(depthMap *imaging.Grid, img *image.RGBA) models.QualityMetrics {
	lum := imaging.Luminance(img)

	// Edge consistency: depth discontinuities should line up with image
	// edges.
	imageEdges := imaging.EdgeMap(lum, edgeThreshold)
	depthEdges := imaging.EdgeMap(depthMap, edgeThreshold)
	edgeConsistency := imaging.IoU(imageEdges, depthEdges)

	// Surface smoothness: geological surfaces change gradually.
	mag := imaging.GradientMagnitude(imaging.SobelX(depthMap), imaging.SobelY(depthMap))
	surfaceSmoothness := clamp01(1.0 - mag.Mean())

	// Mineral definition: local variance measures retained detail.
	local := imaging.GaussianBlur(depthMap, 5)
	sq := depthMap.Clone()
	for i, v := range sq.Data {
		sq.Data[i] = v * v
	}
	localSq := imaging.GaussianBlur(sq, 5)
	varSum := 0.0
	for i := range local.Data {
		v := localSq.Data[i] - local.Data[i]*local.Data[i]
		if v > 0 {
			varSum += v
		}
	}
	// Scaled so a well-textured map lands mid-range.
	mineralDefinition := clamp01(varSum / float64(len(local.Data)) * 100)

	// Range utilization: a good depth map uses its full [0,1] range.
	min, max := depthMap.MinMax()
	rangeUtilization := clamp01(max - min)

	overall := edgeConsistency*0.3 +
		surfaceSmoothness*0.25 +
		mineralDefinition*0.25 +
		rangeUtilization*0.2

	return models.QualityMetrics{
		EdgeConsistency:   edgeConsistency,
		SurfaceSmoothness: surfaceSmoothness,
		MineralDefinition: mineralDefinition,
		RangeUtilization:  rangeUtilization,
		OverallScore:      clamp01(overall),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
