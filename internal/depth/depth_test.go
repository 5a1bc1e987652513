package depth

import (
	"context"
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/rockly/rockly/internal/imaging"
)

// testImage builds a deterministic pseudo-random photo so the pipeline
// has edges and texture to work with.
func testImage(w, h int) *image.RGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			base := uint8(64 + (x*128)/w)
			img.SetRGBA(x, y, color.RGBA{
				R: base + uint8(rng.Intn(64)),
				G: base/2 + uint8(rng.Intn(64)),
				B: uint8(rng.Intn(96)),
				A: 255,
			})
		}
	}
	return img
}

func TestPhotometricEstimator_NormalizedOutput(t *testing.T) {
	img := testImage(32, 24)
	est := NewPhotometricEstimator()

	depthMap, err := est.EstimateDepth(context.Background(), img)
	if err != nil {
		t.Fatalf("EstimateDepth: %v", err)
	}

	if depthMap.W != 32 || depthMap.H != 24 {
		t.Fatalf("depth map is %dx%d, want 32x24", depthMap.W, depthMap.H)
	}
	min, max := depthMap.MinMax()
	if min < 0 || max > 1 {
		t.Errorf("depth range [%v, %v], want within [0, 1]", min, max)
	}
	if max == min {
		t.Error("depth map is constant, want relief")
	}
}

func TestPhotometricEstimator_Deterministic(t *testing.T) {
	img := testImage(16, 16)
	est := NewPhotometricEstimator()

	a, err := est.EstimateDepth(context.Background(), img)
	if err != nil {
		t.Fatalf("EstimateDepth: %v", err)
	}
	b, err := est.EstimateDepth(context.Background(), img)
	if err != nil {
		t.Fatalf("EstimateDepth: %v", err)
	}

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("Data[%d] differs between runs: %v vs %v", i, a.Data[i], b.Data[i])
		}
	}
}

func TestAdaptiveStep_Bounds(t *testing.T) {
	img := testImage(32, 32)
	flat := imaging.NewGrid(32, 32)

	step := AdaptiveStep(flat, img)
	if step < 2 || step > 4 {
		t.Errorf("AdaptiveStep = %d, want within [2, 4]", step)
	}
}

func TestBuildGridMesh_CountsAndIndices(t *testing.T) {
	img := testImage(16, 12)
	depthMap := imaging.NewGrid(16, 12)
	for i := range depthMap.Data {
		depthMap.Data[i] = float64(i%7) / 7.0
	}

	for _, step := range []int{2, 3, 4} {
		payload := BuildGridMesh(img, depthMap, step, 0.15)

		cols := (16 + step - 1) / step
		rows := (12 + step - 1) / step
		wantVertices := cols * rows
		wantFaces := 2 * (cols - 1) * (rows - 1)

		if len(payload.Vertices) != wantVertices {
			t.Errorf("step %d: vertex count = %d, want %d", step, len(payload.Vertices), wantVertices)
		}
		if len(payload.Faces) != wantFaces {
			t.Errorf("step %d: face count = %d, want %d", step, len(payload.Faces), wantFaces)
		}
		if len(payload.TextureCoords) != wantVertices || len(payload.Colors) != wantVertices {
			t.Errorf("step %d: attribute cardinality mismatch", step)
		}

		// Every face index must reference a real vertex.
		for i, f := range payload.Faces {
			for _, idx := range f {
				if idx < 0 || idx >= wantVertices {
					t.Fatalf("step %d: face %d references vertex %d of %d", step, i, idx, wantVertices)
				}
			}
		}

		if payload.Metadata.VertexCount != wantVertices || payload.Metadata.FaceCount != wantFaces {
			t.Errorf("step %d: metadata counts disagree with payload", step)
		}
		if payload.Metadata.OriginalDimensions != [2]int{16, 12} {
			t.Errorf("step %d: original dimensions = %v", step, payload.Metadata.OriginalDimensions)
		}
	}
}

func TestBuildGridMesh_CoordinateRanges(t *testing.T) {
	img := testImage(8, 8)
	depthMap := imaging.NewGrid(8, 8)
	for i := range depthMap.Data {
		depthMap.Data[i] = 1.0
	}

	payload := BuildGridMesh(img, depthMap, 2, 0.15)

	for i, v := range payload.Vertices {
		if v[0] < -1 || v[0] > 1 || v[1] < -1 || v[1] > 1 {
			t.Fatalf("vertex %d position %v outside [-1, 1] in X/Y", i, v)
		}
		if v[2] != 0.15 {
			t.Fatalf("vertex %d Z = %v, want depth * scale factor = 0.15", i, v[2])
		}
	}
	for i, uv := range payload.TextureCoords {
		if uv[0] < 0 || uv[0] > 1 || uv[1] < 0 || uv[1] > 1 {
			t.Fatalf("texture coord %d = %v outside [0, 1]", i, uv)
		}
	}
	for i, c := range payload.Colors {
		for _, ch := range c {
			if ch < 0 || ch > 1 {
				t.Fatalf("color %d = %v outside [0, 1]", i, c)
			}
		}
	}
}

func TestEnhance_BoostsDepthEdgesInFlatPhoto(t *testing.T) {
	// Uniform photo: no luminance edges, so any boundary boost must come
	// from the depth field's own edges.
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 128, 128, 128, 255
	}

	depthMap := imaging.NewGrid(16, 16)
	for y := 0; y < 16; y++ {
		for x := 8; x < 16; x++ {
			depthMap.Set(x, y, 1)
		}
	}

	out := EnhanceGeologicalFeatures(depthMap, img)

	if _, max := out.MinMax(); max <= 1 {
		t.Errorf("enhanced max = %v, want > 1 from the boundary boost along the depth step", max)
	}
}

func TestAssessQuality_MetricsInRange(t *testing.T) {
	img := testImage(24, 24)
	depthMap := imaging.NewGrid(24, 24)
	for i := range depthMap.Data {
		depthMap.Data[i] = float64(i) / float64(len(depthMap.Data))
	}

	metrics := AssessQuality(depthMap, img)

	check := func(name string, v float64) {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, want within [0, 1]", name, v)
		}
	}
	check("EdgeConsistency", metrics.EdgeConsistency)
	check("SurfaceSmoothness", metrics.SurfaceSmoothness)
	check("MineralDefinition", metrics.MineralDefinition)
	check("RangeUtilization", metrics.RangeUtilization)
	check("OverallScore", metrics.OverallScore)
}

func TestGenerator_EndToEnd(t *testing.T) {
	img := testImage(32, 32)
	gen := NewGenerator(NewPhotometricEstimator(), 0.15)

	payload, info, metrics, err := gen.GenerateModel(context.Background(), img)
	if err != nil {
		t.Fatalf("GenerateModel: %v", err)
	}

	if !payload.Renderable() {
		t.Fatal("generated payload is not renderable")
	}
	if len(payload.Colors) != len(payload.Vertices) {
		t.Errorf("colors cardinality %d != vertex count %d", len(payload.Colors), len(payload.Vertices))
	}
	if len(payload.TextureCoords) != len(payload.Vertices) {
		t.Errorf("texture coords cardinality %d != vertex count %d", len(payload.TextureCoords), len(payload.Vertices))
	}

	if info.DepthEstimation == "" || info.DeviceUsed == "" {
		t.Errorf("incomplete processing info: %+v", info)
	}
	if info.MeshGeneration != "adaptive_geological" {
		t.Errorf("mesh generation method = %q, want adaptive_geological", info.MeshGeneration)
	}
	if info.QualityScore != metrics.OverallScore {
		t.Errorf("info quality score %v != metrics overall %v", info.QualityScore, metrics.OverallScore)
	}

	step := payload.Metadata.AdaptiveStep
	if step < 2 || step > 4 {
		t.Errorf("adaptive step = %d, want within [2, 4]", step)
	}
}

func TestGenerator_Deterministic(t *testing.T) {
	img := testImage(16, 16)
	gen := NewGenerator(NewPhotometricEstimator(), 0.15)

	a, _, _, err := gen.GenerateModel(context.Background(), img)
	if err != nil {
		t.Fatalf("GenerateModel: %v", err)
	}
	b, _, _, err := gen.GenerateModel(context.Background(), img)
	if err != nil {
		t.Fatalf("GenerateModel: %v", err)
	}

	if len(a.Vertices) != len(b.Vertices) || len(a.Faces) != len(b.Faces) {
		t.Fatalf("payload sizes differ between runs")
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			t.Fatalf("vertex %d differs between runs", i)
		}
	}
}

func TestGenerator_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(NewPhotometricEstimator(), 0.15)
	if _, _, _, err := gen.GenerateModel(ctx, testImage(8, 8)); err == nil {
		t.Error("GenerateModel succeeded with cancelled context, want error")
	}
}
