package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rockly/rockly/internal/depth"
	"github.com/rockly/rockly/internal/imaging"
	"github.com/rockly/rockly/internal/models"
	"github.com/rockly/rockly/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerateHandler handles 3D model generation requests
type GenerateHandler struct {
	objects   ObjectStore
	metadata  MetadataStore
	cache     MetadataCache
	generator *depth.Generator
}

// NewGenerateHandler creates a new generation handler
func NewGenerateHandler(objects ObjectStore, metadata MetadataStore, cache MetadataCache, generator *depth.Generator) *GenerateHandler {
	return &GenerateHandler{
		objects:   objects,
		metadata:  metadata,
		cache:     cache,
		generator: generator,
	}
}

// ServeHTTP handles POST /generate-3d/{file_id}
func (gh *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "generate_3d",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	fileID := mux.Vars(r)["file_id"]
	if fileID == "" {
		writeDetail(w, http.StatusBadRequest, "missing file_id in path")
		return
	}
	span.SetAttributes(attribute.String("file_id", fileID))

	upload, err := gh.getUploadMetadata(ctx, fileID)
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			writeDetail(w, http.StatusNotFound, "File not found")
			return
		}
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error generating 3D model: %v", err))
		return
	}

	log.Printf("Generating 3D model for: %s (ID: %s)", upload.Filename, fileID)

	data, err := gh.objects.GetImage(ctx, upload.ObjectKey, upload.SHA256)
	if err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error generating 3D model: %v", err))
		return
	}

	img, format, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Error generating 3D model: %v", err))
		return
	}
	span.SetAttributes(attribute.String("image_format", format))

	payload, info, metrics, err := gh.generator.GenerateModel(ctx, img)
	if err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("3D generation failed: %v", err))
		return
	}

	span.SetAttributes(
		attribute.Int("vertex_count", len(payload.Vertices)),
		attribute.Int("face_count", len(payload.Faces)),
		attribute.Float64("quality_score", metrics.OverallScore),
	)

	writeJSON(w, http.StatusOK, models.GenerationResult{
		Success:        true,
		Message:        "Enhanced 3D model generated successfully",
		FileID:         fileID,
		ModelData:      *payload,
		ProcessingInfo: info,
		GenerationTime: time.Now().Format(time.RFC3339),
		Summary:        payload.Summarize(),
		QualityMetrics: metrics,
	})

	log.Printf("3D generation completed for %s: %d vertices, %d faces",
		fileID, len(payload.Vertices), len(payload.Faces))
}

// getUploadMetadata tries the cache first and falls back to the
// registry, repopulating the cache on a miss.
func (gh *GenerateHandler) getUploadMetadata(ctx context.Context, fileID string) (*models.Upload, error) {
	ctx, cacheSpan := tracer.Start(ctx, "cache_lookup")
	upload, err := gh.cache.GetUploadMetadata(ctx, fileID)
	cacheSpan.End()

	if err != nil {
		return nil, err
	}

	if upload != nil {
		log.Printf("Cache HIT for upload: %s", fileID)
		return upload, nil
	}

	log.Printf("Cache MISS for upload: %s", fileID)
	ctx, dbSpan := tracer.Start(ctx, "db_lookup")
	defer dbSpan.End()

	upload, err = gh.metadata.GetUpload(ctx, fileID)
	if err != nil {
		return nil, err
	}

	if err := gh.cache.SetUploadMetadata(ctx, fileID, upload); err != nil {
		log.Printf("Warning: failed to update cache: %v", err)
	}

	return upload, nil
}
