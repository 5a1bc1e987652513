package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rockly/rockly/internal/models"
	"github.com/rockly/rockly/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InfoHandler reports metadata for a previously uploaded file
type InfoHandler struct {
	metadata MetadataStore
	cache    MetadataCache
}

// NewInfoHandler creates a new info handler
func NewInfoHandler(metadata MetadataStore, cache MetadataCache) *InfoHandler {
	return &InfoHandler{
		metadata: metadata,
		cache:    cache,
	}
}

// ServeHTTP handles GET /uploads/{file_id}
func (ih *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "upload_info",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	fileID := mux.Vars(r)["file_id"]
	if fileID == "" {
		writeDetail(w, http.StatusBadRequest, "missing file_id in path")
		return
	}
	span.SetAttributes(attribute.String("file_id", fileID))

	upload, err := ih.cache.GetUploadMetadata(ctx, fileID)
	if err == nil && upload == nil {
		upload, err = ih.metadata.GetUpload(ctx, fileID)
	}
	if err != nil {
		if errors.Is(err, storage.ErrUploadNotFound) {
			writeDetail(w, http.StatusNotFound, "File not found")
			return
		}
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("failed to get file info: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, models.FileInfoResponse{
		FileID:   upload.ID,
		Filename: upload.Filename,
		Size:     upload.Size,
		Created:  upload.CreatedAt.Format(time.RFC3339),
		Exists:   true,
	})
}
