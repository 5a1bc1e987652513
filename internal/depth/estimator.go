package depth

import (
	"context"
	"image"
	"math"

	"github.com/rockly/rockly/internal/imaging"
)

// Estimator produces a relative depth map for a single image. The neural
// depth models the API reports in processing_info are external
// collaborators; everything downstream of this interface only depends on
// the returned grid being normalizable to [0,1].
type Estimator interface {
	// Name identifies the model for processing provenance.
	Name() string
	// Device reports the compute device the model ran on.
	Device() string
	// EstimateDepth returns a per-pixel relative depth grid for img.
	EstimateDepth(ctx context.Context, img *image.RGBA) (*imaging.Grid, error)
}

// PhotometricEstimator is the built-in estimator: a deterministic
// shape-from-shading proxy that treats brighter, more central pixels as
// closer to the camera. It keeps the service self-contained when no
// neural model is deployed, and gives the rest of the pipeline a real
// depth field to enhance.
type PhotometricEstimator struct{}

// NewPhotometricEstimator returns the built-in estimator.
func NewPhotometricEstimator() *PhotometricEstimator {
	return &PhotometricEstimator{}
}

// Name implements Estimator.
func (e *PhotometricEstimator) Name() string { return "rockly/photometric-shading-v1" }

// Device implements Estimator.
func (e *PhotometricEstimator) Device() string { return "cpu" }

// EstimateDepth implements Estimator. The proxy blends smoothed
// luminance with a radial dome centered on the frame, so an isolated
// sample photographed against a flat background produces a convex
// height field rather than a plane.
func (e *PhotometricEstimator) EstimateDepth(ctx context.Context, img *image.RGBA) (*imaging.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lum := imaging.Luminance(img)
	smoothed := imaging.GaussianBlur(lum, 5)

	w, h := smoothed.W, smoothed.H
	out := imaging.NewGrid(w, h)
	cx := float64(w-1) / 2
	cy := float64(h-1) / 2
	maxR := math.Hypot(cx, cy)
	if maxR == 0 {
		maxR = 1
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := math.Hypot(float64(x)-cx, float64(y)-cy) / maxR
			dome := math.Sqrt(math.Max(0, 1-r*r))
			out.Data[y*w+x] = 0.6*smoothed.Data[y*w+x] + 0.4*dome
		}
	}

	out.Normalize()
	return out, nil
}
