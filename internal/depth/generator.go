package depth

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/rockly/rockly/internal/imaging"
	"github.com/rockly/rockly/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("rockly-depth")

// Multi-scale estimation runs the estimator at these scales and blends
// the normalized results with the matching weights.
var (
	estimationScales  = []float64{1.0, 0.75, 0.5}
	estimationWeights = []float64{0.5, 0.3, 0.2}
)

// Generator runs the full photo → 3D model pipeline: preprocessing,
// multi-scale depth estimation, geological enhancement, post-processing,
// adaptive mesh generation and quality assessment.
type Generator struct {
	estimator   Estimator
	scaleFactor float64
}

// NewGenerator creates a generator around the given estimator. The
// scale factor controls how much relief the depth field contributes to
// the mesh's Z axis.
func NewGenerator(estimator Estimator, scaleFactor float64) *Generator {
	return &Generator{
		estimator:   estimator,
		scaleFactor: scaleFactor,
	}
}

// GenerateModel produces a geometry payload plus provenance and quality
// metrics for a decoded photo. The result is deterministic for a given
// image and estimator.
func (g *Generator) GenerateModel(ctx context.Context, src image.Image) (*models.GeometryPayload, models.ProcessingInfo, models.QualityMetrics, error) {
	ctx, span := tracer.Start(ctx, "depth.generate_model",
		trace.WithAttributes(
			attribute.String("estimator", g.estimator.Name()),
		),
	)
	defer span.End()

	img := imaging.ToRGBA(src)
	span.SetAttributes(
		attribute.Int("image_width", img.Rect.Dx()),
		attribute.Int("image_height", img.Rect.Dy()),
	)

	log.Printf("Generating 3D model: %dx%d image", img.Rect.Dx(), img.Rect.Dy())

	preprocessed := g.preprocess(ctx, img)

	raw, err := g.estimateMultiScale(ctx, preprocessed)
	if err != nil {
		span.RecordError(err)
		return nil, models.ProcessingInfo{}, models.QualityMetrics{}, fmt.Errorf("depth estimation failed: %w", err)
	}

	enhanced := g.enhance(ctx, raw, preprocessed)
	final := g.postProcess(ctx, enhanced)

	payload := g.buildMesh(ctx, img, final)
	metrics := g.assess(ctx, final, preprocessed)

	if !payload.Renderable() {
		err := fmt.Errorf("generated mesh is empty (%d vertices, %d faces)",
			len(payload.Vertices), len(payload.Faces))
		span.RecordError(err)
		return nil, models.ProcessingInfo{}, models.QualityMetrics{}, err
	}

	info := models.ProcessingInfo{
		DepthEstimation: g.estimator.Name(),
		DeviceUsed:      g.estimator.Device(),
		MeshGeneration:  "adaptive_geological",
		Preprocessing:   "rock_enhanced",
		QualityScore:    metrics.OverallScore,
	}

	span.SetAttributes(
		attribute.Int("vertex_count", len(payload.Vertices)),
		attribute.Int("face_count", len(payload.Faces)),
		attribute.Float64("quality_score", metrics.OverallScore),
	)

	log.Printf("3D model generated: %d vertices, %d faces, quality %.3f",
		len(payload.Vertices), len(payload.Faces), metrics.OverallScore)

	return payload, info, metrics, nil
}

func (g *Generator) preprocess(ctx context.Context, img *image.RGBA) *image.RGBA {
	_, span := tracer.Start(ctx, "depth.preprocess")
	defer span.End()

	return PreprocessRockImage(img)
}

// estimateMultiScale runs the estimator at several scales and blends
// the normalized depth maps, capturing both coarse shape and fine
// surface detail.
func (g *Generator) estimateMultiScale(ctx context.Context, img *image.RGBA) (*imaging.Grid, error) {
	ctx, span := tracer.Start(ctx, "depth.estimate_multiscale")
	defer span.End()

	width := img.Rect.Dx()
	height := img.Rect.Dy()

	combined := imaging.NewGrid(width, height)
	for i, scale := range estimationScales {
		scaled := img
		if scale != 1.0 {
			scaled = imaging.Scale(img, int(float64(width)*scale), int(float64(height)*scale))
		}

		depthMap, err := g.estimator.EstimateDepth(ctx, scaled)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("estimation at scale %.2f: %w", scale, err)
		}

		if depthMap.W != width || depthMap.H != height {
			depthMap = depthMap.Resize(width, height)
		}
		depthMap.Normalize()

		weight := estimationWeights[i]
		for j, v := range depthMap.Data {
			combined.Data[j] += v * weight
		}
	}

	return combined, nil
}

func (g *Generator) enhance(ctx context.Context, depthMap *imaging.Grid, img *image.RGBA) *imaging.Grid {
	_, span := tracer.Start(ctx, "depth.enhance_features")
	defer span.End()

	return EnhanceGeologicalFeatures(depthMap, img)
}

func (g *Generator) postProcess(ctx context.Context, depthMap *imaging.Grid) *imaging.Grid {
	_, span := tracer.Start(ctx, "depth.post_process")
	defer span.End()

	return PostProcessDepth(depthMap)
}

func (g *Generator) buildMesh(ctx context.Context, img *image.RGBA, depthMap *imaging.Grid) *models.GeometryPayload {
	_, span := tracer.Start(ctx, "depth.build_mesh")
	defer span.End()

	step := AdaptiveStep(depthMap, img)
	payload := BuildGridMesh(img, depthMap, step, g.scaleFactor)

	span.SetAttributes(
		attribute.Int("adaptive_step", step),
		attribute.Int("vertex_count", len(payload.Vertices)),
	)
	return payload
}

func (g *Generator) assess(ctx context.Context, depthMap *imaging.Grid, img *image.RGBA) models.QualityMetrics {
	_, span := tracer.Start(ctx, "depth.assess_quality")
	defer span.End()

	return AssessQuality(depthMap, img)
}
