package models

import "time"

// Upload represents uploaded-image metadata stored in MySQL.
type Upload struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ObjectKey   string    `json:"object_key"`
	SHA256      string    `json:"sha256"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResult is the response body of POST /upload-image.
type UploadResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	UploadTime  string `json:"upload_time"`
}

// GeometryPayload is the raw mesh description produced by 3D generation.
// Vertices and Faces must both be non-empty for the payload to be
// renderable; TextureCoords and Colors are optional but, when present,
// have the same cardinality as Vertices.
type GeometryPayload struct {
	Vertices      [][3]float64     `json:"vertices"`
	Faces         [][3]int         `json:"faces"`
	TextureCoords [][2]float64     `json:"texture_coords,omitempty"`
	Colors        [][3]float64     `json:"colors,omitempty"`
	Metadata      GeometryMetadata `json:"metadata"`
}

// GeometryMetadata describes how the payload was reconstructed.
type GeometryMetadata struct {
	VertexCount        int     `json:"vertex_count"`
	FaceCount          int     `json:"face_count"`
	OriginalDimensions [2]int  `json:"original_dimensions"`
	ScaleFactor        float64 `json:"scale_factor"`
	AdaptiveStep       int     `json:"adaptive_step"`
	MeshQuality        string  `json:"mesh_quality"`
}

// ProcessingInfo records provenance of a generation run.
type ProcessingInfo struct {
	DepthEstimation string  `json:"depth_estimation"`
	DeviceUsed      string  `json:"device_used"`
	MeshGeneration  string  `json:"mesh_generation"`
	Preprocessing   string  `json:"preprocessing"`
	QualityScore    float64 `json:"quality_score"`
}

// QualityMetrics scores the depth reconstruction, each in [0,1].
type QualityMetrics struct {
	EdgeConsistency   float64 `json:"edge_consistency"`
	SurfaceSmoothness float64 `json:"surface_smoothness"`
	MineralDefinition float64 `json:"mineral_definition"`
	RangeUtilization  float64 `json:"range_utilization"`
	OverallScore      float64 `json:"overall_score"`
}

// ModelSummary is a display-safe digest of a GeometryPayload.
type ModelSummary struct {
	VertexCount  int        `json:"vertex_count"`
	FaceCount    int        `json:"face_count"`
	HasTexture   bool       `json:"has_texture"`
	HasColors    bool       `json:"has_colors"`
	BBoxMin      [3]float64 `json:"bbox_min"`
	BBoxMax      [3]float64 `json:"bbox_max"`
	AdaptiveStep int        `json:"adaptive_step"`
	MeshQuality  string     `json:"mesh_quality"`
}

// GenerationResult is the response body of POST /generate-3d/{file_id}.
// It references exactly one prior upload via FileID.
type GenerationResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	FileID         string          `json:"file_id"`
	ModelData      GeometryPayload `json:"model_data"`
	ProcessingInfo ProcessingInfo  `json:"processing_info"`
	GenerationTime string          `json:"generation_time"`
	Summary        ModelSummary    `json:"summary"`
	QualityMetrics QualityMetrics  `json:"quality_metrics"`
}

// FileInfoResponse is the response body of GET /uploads/{file_id}.
type FileInfoResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Created  string `json:"created"`
	Exists   bool   `json:"exists"`
}

// ErrorResponse mirrors the error body shape of every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Renderable reports whether the payload carries enough structure to
// build a mesh from. Empty vertices or faces is a validation failure,
// never a silent empty render.
func (p *GeometryPayload) Renderable() bool {
	return len(p.Vertices) > 0 && len(p.Faces) > 0
}

// BoundingBox returns the axis-aligned min/max corners of the vertex set.
// Both are zero when the payload has no vertices.
func (p *GeometryPayload) BoundingBox() (min, max [3]float64) {
	if len(p.Vertices) == 0 {
		return min, max
	}
	min = p.Vertices[0]
	max = p.Vertices[0]
	for _, v := range p.Vertices[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < min[i] {
				min[i] = v[i]
			}
			if v[i] > max[i] {
				max[i] = v[i]
			}
		}
	}
	return min, max
}

// Summarize builds the display-safe digest the API returns alongside the
// full payload.
func (p *GeometryPayload) Summarize() ModelSummary {
	min, max := p.BoundingBox()
	return ModelSummary{
		VertexCount:  len(p.Vertices),
		FaceCount:    len(p.Faces),
		HasTexture:   len(p.TextureCoords) > 0,
		HasColors:    len(p.Colors) > 0,
		BBoxMin:      min,
		BBoxMax:      max,
		AdaptiveStep: p.Metadata.AdaptiveStep,
		MeshQuality:  p.Metadata.MeshQuality,
	}
}
