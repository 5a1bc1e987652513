package depth

import (
	"image"

	"github.com/rockly/rockly/internal/imaging"
	"github.com/rockly/rockly/internal/models"
)

// AdaptiveStep picks the mesh sampling stride from surface complexity:
// high Laplacian variance or dense edges mean more detail is worth
// keeping, so the stride shrinks.
func AdaptiveStep(depthMap *imaging.Grid, img *image.RGBA) int {
	variance := imaging.Laplacian(depthMap).Variance()

	lum := imaging.Luminance(img)
	edgeDensity := imaging.EdgeMap(lum, edgeThreshold).Density()

	switch {
	case variance > 0.1 && edgeDensity > 0.05:
		return 2
	case variance > 0.05 || edgeDensity > 0.03:
		return 3
	default:
		return 4
	}
}

// BuildGridMesh samples the depth map every step pixels and emits a
// height-field mesh. X and Y are normalized to [-1,1] with Y flipped so
// the model is upright, Z is depth scaled by scaleFactor. Each vertex
// carries a texture coordinate and the source pixel's color; each grid
// quad becomes two triangles. The vertex grid and the face grid share
// the same dimensions, so every face index is valid by construction.
func BuildGridMesh(img *image.RGBA, depthMap *imaging.Grid, step int, scaleFactor float64) *models.GeometryPayload {
	width := img.Rect.Dx()
	height := img.Rect.Dy()

	resized := depthMap
	if depthMap.W != width || depthMap.H != height {
		resized = depthMap.Resize(width, height)
	}

	var vertices [][3]float64
	var texCoords [][2]float64
	var colors [][3]float64

	cols := 0
	rows := 0
	for y := 0; y < height; y += step {
		rowCols := 0
		for x := 0; x < width; x += step {
			xn := (float64(x)/float64(width))*2 - 1
			yn := (float64(y)/float64(height))*2 - 1
			zn := resized.At(x, y) * scaleFactor

			vertices = append(vertices, [3]float64{xn, -yn, zn})
			texCoords = append(texCoords, [2]float64{
				float64(x) / float64(width),
				1 - float64(y)/float64(height),
			})
			colors = append(colors, imaging.ColorAt(img, x, y))
			rowCols++
		}
		cols = rowCols
		rows++
	}

	var faces [][3]int
	for row := 0; row < rows-1; row++ {
		for col := 0; col < cols-1; col++ {
			v0 := row*cols + col
			v1 := row*cols + col + 1
			v2 := (row+1)*cols + col
			v3 := (row+1)*cols + col + 1

			faces = append(faces, [3]int{v0, v1, v2})
			faces = append(faces, [3]int{v1, v3, v2})
		}
	}

	return &models.GeometryPayload{
		Vertices:      vertices,
		Faces:         faces,
		TextureCoords: texCoords,
		Colors:        colors,
		Metadata: models.GeometryMetadata{
			VertexCount:        len(vertices),
			FaceCount:          len(faces),
			OriginalDimensions: [2]int{width, height},
			ScaleFactor:        scaleFactor,
			AdaptiveStep:       step,
			MeshQuality:        "adaptive_high_detail",
		},
	}
}
