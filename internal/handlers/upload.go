package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rockly/rockly/internal/imaging"
	"github.com/rockly/rockly/internal/models"
	"github.com/rockly/rockly/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// allowedExtensions lists the accepted image file extensions.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".webp": true,
}

// decodeCheckedExtensions are the extensions we can verify with a
// registered Go decoder. HEIC is accepted but passes through unchecked.
var decodeCheckedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UploadHandler handles rock image uploads
type UploadHandler struct {
	objects  ObjectStore
	metadata MetadataStore
	cache    MetadataCache
	maxSize  int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(objects ObjectStore, metadata MetadataStore, cache MetadataCache, maxSize int64) *UploadHandler {
	return &UploadHandler{
		objects:  objects,
		metadata: metadata,
		cache:    cache,
		maxSize:  maxSize,
	}
}

// ServeHTTP handles POST /upload-image with multipart form field "file"
func (uh *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ctx, span := tracer.Start(ctx, "upload_image",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	defer span.End()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing 'file' form field")
		return
	}
	defer file.Close()

	filename := header.Filename
	span.SetAttributes(attribute.String("filename", filename))

	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("File type not supported. Allowed types: %s", allowedExtensionList()))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeDetail(w, http.StatusBadRequest, "File must be an image")
		return
	}

	// Read one byte past the limit to distinguish at-limit from over.
	data, err := io.ReadAll(io.LimitReader(file, uh.maxSize+1))
	if err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to read file: %v", err))
		return
	}
	if int64(len(data)) > uh.maxSize {
		writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("File too large. Maximum size: %dMB", uh.maxSize/(1024*1024)))
		return
	}

	span.SetAttributes(attribute.Int("size_bytes", len(data)))

	if decodeCheckedExtensions[ext] {
		if _, _, err := imaging.DecodeConfig(bytes.NewReader(data)); err != nil {
			writeDetail(w, http.StatusBadRequest, "Invalid image file")
			return
		}
	}

	fileID := uuid.New().String()
	objectKey := fmt.Sprintf("uploads/%s%s", fileID, ext)
	span.SetAttributes(attribute.String("file_id", fileID))

	log.Printf("Storing upload: %s (ID: %s, %d bytes)", filename, fileID, len(data))

	if err := uh.objects.PutImage(ctx, objectKey, contentType, data); err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save file: %v", err))
		return
	}

	upload := &models.Upload{
		ID:          fileID,
		Filename:    filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		ObjectKey:   objectKey,
		SHA256:      storage.ComputeHash(data),
		CreatedAt:   time.Now(),
	}

	if err := uh.metadata.CreateUpload(ctx, upload); err != nil {
		span.RecordError(err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save file: %v", err))
		return
	}

	if err := uh.cache.SetUploadMetadata(ctx, fileID, upload); err != nil {
		// Cache population is best effort.
		log.Printf("Warning: failed to cache upload metadata: %v", err)
	}

	writeJSON(w, http.StatusOK, models.UploadResult{
		Success:     true,
		Message:     "Image uploaded successfully",
		FileID:      fileID,
		Filename:    filename,
		Size:        int64(len(data)),
		ContentType: contentType,
		UploadTime:  upload.CreatedAt.Format(time.RFC3339),
	})

	log.Printf("Upload completed: %s (ID: %s)", filename, fileID)
}

func allowedExtensionList() string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ", ")
}
