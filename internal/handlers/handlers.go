// Package handlers implements the Rockly HTTP API: image upload, 3D
// generation, upload info and health endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rockly/rockly/internal/models"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("rockly-handlers")

// ObjectStore stores and retrieves uploaded image bytes.
type ObjectStore interface {
	PutImage(ctx context.Context, objectKey, contentType string, data []byte) error
	GetImage(ctx context.Context, objectKey, expectedHash string) ([]byte, error)
}

// MetadataStore is the upload-metadata registry.
type MetadataStore interface {
	CreateUpload(ctx context.Context, upload *models.Upload) error
	GetUpload(ctx context.Context, fileID string) (*models.Upload, error)
}

// MetadataCache fronts the registry. A nil *models.Upload with a nil
// error is a cache miss.
type MetadataCache interface {
	GetUploadMetadata(ctx context.Context, fileID string) (*models.Upload, error)
	SetUploadMetadata(ctx context.Context, fileID string, upload *models.Upload) error
}

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes the API's error body shape: {"detail": "..."}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, models.ErrorResponse{Detail: detail})
}

// CORS returns middleware that allows the configured frontend origin
// and answers preflight requests.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "*")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RootHandler handles GET /: a service banner confirming the API is up.
func RootHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Welcome to Enhanced Rockly API",
		"status":  "active",
		"version": "2.0.0",
		"features": []string{
			"Rock-specific preprocessing",
			"Multi-scale depth estimation",
			"Geological feature enhancement",
			"Adaptive mesh generation",
			"Quality assessment metrics",
		},
	})
}

// HealthHandler handles GET /health.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
