// Package mesh converts geometry payloads into renderable flat-buffer
// triangle meshes with computed lighting normals.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/rockly/rockly/internal/models"
)

// ErrEmptyGeometry is returned when a payload has no vertices or no
// faces. This is a validation failure, never a silent empty render.
var ErrEmptyGeometry = errors.New("geometry payload has empty vertices or faces")

// FallbackColor is the neutral rock-brown applied when the payload
// carries no per-vertex colors.
var FallbackColor = [3]float32{0.545, 0.451, 0.333}

// Material carries the fixed surface constants. The payload cannot
// configure them.
type Material struct {
	DoubleSided bool
	Roughness   float32
	Metalness   float32
}

// DefaultMaterial is applied to every assembled mesh.
var DefaultMaterial = Material{
	DoubleSided: true,
	Roughness:   0.8,
	Metalness:   0.1,
}

// Mesh is a drawable triangle mesh. All buffers are flat: Positions and
// Normals hold 3 floats per vertex, UVs 2 floats per vertex, Indices 3
// uint32s per triangle. When VertexColors is false Colors is nil and
// FallbackColor applies.
type Mesh struct {
	Positions    []float32
	Indices      []uint32
	Normals      []float32
	Colors       []float32
	UVs          []float32
	VertexColors bool
	Material     Material
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Positions) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Assemble converts a geometry payload into a drawable mesh. It is a
// pure function of its input: the same payload always yields buffers
// with identical order and values. Vertex order and triangle winding
// are preserved exactly as supplied; no winding correction happens
// here. Per-vertex normals are computed by area-weighted accumulation
// because the payload never supplies them.
func Assemble(p *models.GeometryPayload) (*Mesh, error) {
	if !p.Renderable() {
		return nil, ErrEmptyGeometry
	}

	vertexCount := len(p.Vertices)

	positions := make([]float32, 0, vertexCount*3)
	for _, v := range p.Vertices {
		positions = append(positions, float32(v[0]), float32(v[1]), float32(v[2]))
	}

	indices := make([]uint32, 0, len(p.Faces)*3)
	for i, f := range p.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= vertexCount {
				return nil, fmt.Errorf("face %d references vertex %d, payload has %d vertices", i, idx, vertexCount)
			}
			indices = append(indices, uint32(idx))
		}
	}

	m := &Mesh{
		Positions: positions,
		Indices:   indices,
		Material:  DefaultMaterial,
	}

	if len(p.Colors) > 0 {
		if len(p.Colors) != vertexCount {
			return nil, fmt.Errorf("color count %d does not match vertex count %d", len(p.Colors), vertexCount)
		}
		colors := make([]float32, 0, vertexCount*3)
		for _, c := range p.Colors {
			colors = append(colors, float32(c[0]), float32(c[1]), float32(c[2]))
		}
		m.Colors = colors
		m.VertexColors = true
	}

	if len(p.TextureCoords) > 0 {
		if len(p.TextureCoords) != vertexCount {
			return nil, fmt.Errorf("texture coord count %d does not match vertex count %d", len(p.TextureCoords), vertexCount)
		}
		uvs := make([]float32, 0, vertexCount*2)
		for _, t := range p.TextureCoords {
			uvs = append(uvs, float32(t[0]), float32(t[1]))
		}
		m.UVs = uvs
	}

	m.Normals = computeNormals(positions, indices)
	return m, nil
}

// computeNormals accumulates unnormalized face normals per vertex (the
// cross product's magnitude weights by triangle area) and normalizes
// the sums.
func computeNormals(positions []float32, indices []uint32) []float32 {
	normals := make([]float32, len(positions))

	for i := 0; i+2 < len(indices); i += 3 {
		i0 := indices[i] * 3
		i1 := indices[i+1] * 3
		i2 := indices[i+2] * 3

		ax := positions[i1] - positions[i0]
		ay := positions[i1+1] - positions[i0+1]
		az := positions[i1+2] - positions[i0+2]
		bx := positions[i2] - positions[i0]
		by := positions[i2+1] - positions[i0+1]
		bz := positions[i2+2] - positions[i0+2]

		nx := ay*bz - az*by
		ny := az*bx - ax*bz
		nz := ax*by - ay*bx

		for _, base := range []uint32{i0, i1, i2} {
			normals[base] += nx
			normals[base+1] += ny
			normals[base+2] += nz
		}
	}

	for i := 0; i+2 < len(normals); i += 3 {
		length := float32(math.Sqrt(float64(
			normals[i]*normals[i] +
				normals[i+1]*normals[i+1] +
				normals[i+2]*normals[i+2])))
		if length > 0 {
			normals[i] /= length
			normals[i+1] /= length
			normals[i+2] /= length
		} else {
			// Degenerate or unreferenced vertex: point up.
			normals[i+2] = 1
		}
	}

	return normals
}
