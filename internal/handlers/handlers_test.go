package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/rockly/rockly/internal/depth"
	"github.com/rockly/rockly/internal/models"
	"github.com/rockly/rockly/internal/storage"
)

type fakeObjects struct {
	data   map[string][]byte
	putErr error
	getErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{data: map[string][]byte{}}
}

func (f *fakeObjects) PutImage(ctx context.Context, objectKey, contentType string, data []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.data[objectKey] = data
	return nil
}

func (f *fakeObjects) GetImage(ctx context.Context, objectKey, expectedHash string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.data[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	if got := storage.ComputeHash(data); got != expectedHash {
		return nil, fmt.Errorf("hash mismatch for %s", objectKey)
	}
	return data, nil
}

type fakeRegistry struct {
	uploads map[string]*models.Upload
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{uploads: map[string]*models.Upload{}}
}

func (f *fakeRegistry) CreateUpload(ctx context.Context, upload *models.Upload) error {
	f.uploads[upload.ID] = upload
	return nil
}

func (f *fakeRegistry) GetUpload(ctx context.Context, fileID string) (*models.Upload, error) {
	upload, ok := f.uploads[fileID]
	if !ok {
		return nil, storage.ErrUploadNotFound
	}
	return upload, nil
}

type fakeCache struct {
	uploads map[string]*models.Upload
}

func newFakeCache() *fakeCache {
	return &fakeCache{uploads: map[string]*models.Upload{}}
}

func (f *fakeCache) GetUploadMetadata(ctx context.Context, fileID string) (*models.Upload, error) {
	return f.uploads[fileID], nil
}

func (f *fakeCache) SetUploadMetadata(ctx context.Context, fileID string, upload *models.Upload) error {
	f.uploads[fileID] = upload
	return nil
}

type env struct {
	objects  *fakeObjects
	registry *fakeRegistry
	cache    *fakeCache
	router   *mux.Router
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		objects:  newFakeObjects(),
		registry: newFakeRegistry(),
		cache:    newFakeCache(),
	}

	generator := depth.NewGenerator(depth.NewPhotometricEstimator(), 0.15)

	e.router = mux.NewRouter()
	e.router.Handle("/upload-image",
		NewUploadHandler(e.objects, e.registry, e.cache, 10*1024*1024)).Methods("POST")
	e.router.Handle("/generate-3d/{file_id}",
		NewGenerateHandler(e.objects, e.registry, e.cache, generator)).Methods("POST")
	e.router.Handle("/uploads/{file_id}",
		NewInfoHandler(e.registry, e.cache)).Methods("GET")
	return e
}

func (e *env) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// pngBytes encodes a small gradient PNG that the pipeline can decode.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 16),
				G: uint8(y * 16),
				B: uint8((x + y) * 8),
				A: 255,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/upload-image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("decoding error body %q: %v", rec.Body.String(), err)
	}
	return e.Detail
}

func uploadPNG(t *testing.T, e *env) models.UploadResult {
	t.Helper()
	rec := e.do(t, multipartUpload(t, "rock.png", "image/png", pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var result models.UploadResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding upload result: %v", err)
	}
	return result
}

func TestUpload_Success(t *testing.T) {
	e := newEnv(t)
	data := pngBytes(t)

	result := uploadPNG(t, e)

	if !result.Success {
		t.Error("Success = false")
	}
	if result.FileID == "" {
		t.Fatal("FileID is empty")
	}
	if result.Filename != "rock.png" {
		t.Errorf("Filename = %q, want rock.png", result.Filename)
	}
	if result.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", result.Size, len(data))
	}

	upload, ok := e.registry.uploads[result.FileID]
	if !ok {
		t.Fatal("upload not recorded in registry")
	}
	if _, ok := e.objects.data[upload.ObjectKey]; !ok {
		t.Errorf("object %s not stored", upload.ObjectKey)
	}
	if e.cache.uploads[result.FileID] == nil {
		t.Error("upload metadata not cached")
	}
	if upload.SHA256 != storage.ComputeHash(data) {
		t.Error("stored hash does not match uploaded bytes")
	}
}

func TestUpload_RejectsUnsupportedExtension(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, multipartUpload(t, "rock.gif", "image/gif", pngBytes(t)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	detail := decodeDetail(t, rec)
	if !strings.HasPrefix(detail, "File type not supported") {
		t.Errorf("detail = %q", detail)
	}
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".heic", ".webp"} {
		if !strings.Contains(detail, ext) {
			t.Errorf("detail %q does not list %s", detail, ext)
		}
	}
}

func TestUpload_RejectsNonImageContentType(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, multipartUpload(t, "rock.png", "application/octet-stream", pngBytes(t)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "File must be an image" {
		t.Errorf("detail = %q", detail)
	}
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	e := &env{
		objects:  newFakeObjects(),
		registry: newFakeRegistry(),
		cache:    newFakeCache(),
	}
	e.router = mux.NewRouter()
	e.router.Handle("/upload-image",
		NewUploadHandler(e.objects, e.registry, e.cache, 1024)).Methods("POST")

	big := make([]byte, 2048)
	rec := e.do(t, multipartUpload(t, "rock.png", "image/png", big))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if detail := decodeDetail(t, rec); !strings.HasPrefix(detail, "File too large") {
		t.Errorf("detail = %q", detail)
	}
}

func TestUpload_RejectsCorruptImage(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, multipartUpload(t, "rock.png", "image/png", []byte("not an image")))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "Invalid image file" {
		t.Errorf("detail = %q", detail)
	}
}

func TestUpload_HEICSkipsDecodeCheck(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, multipartUpload(t, "rock.heic", "image/heic", []byte{0x00, 0x00, 0x00, 0x18}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	e := newEnv(t)
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	w.Close()

	req := httptest.NewRequest("POST", "/upload-image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := e.do(t, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerate_UnknownFileReturns404(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, httptest.NewRequest("POST", "/generate-3d/does-not-exist", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "File not found" {
		t.Errorf("detail = %q, want File not found", detail)
	}
}

func TestGenerate_FullFlow(t *testing.T) {
	e := newEnv(t)
	uploaded := uploadPNG(t, e)

	rec := e.do(t, httptest.NewRequest("POST", "/generate-3d/"+uploaded.FileID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result models.GenerationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}

	if !result.Success {
		t.Error("Success = false")
	}
	if result.FileID != uploaded.FileID {
		t.Errorf("FileID = %q, want %q", result.FileID, uploaded.FileID)
	}
	if !result.ModelData.Renderable() {
		t.Fatal("model data is not renderable")
	}
	if result.Summary.VertexCount != len(result.ModelData.Vertices) {
		t.Errorf("summary vertex count %d != payload %d",
			result.Summary.VertexCount, len(result.ModelData.Vertices))
	}
	if result.ProcessingInfo.MeshGeneration != "adaptive_geological" {
		t.Errorf("mesh generation = %q", result.ProcessingInfo.MeshGeneration)
	}
	if result.QualityMetrics.OverallScore < 0 || result.QualityMetrics.OverallScore > 1 {
		t.Errorf("overall score = %v, want within [0, 1]", result.QualityMetrics.OverallScore)
	}
}

func TestGenerate_RepopulatesCacheOnMiss(t *testing.T) {
	e := newEnv(t)
	uploaded := uploadPNG(t, e)

	// Drop the cache entry so the handler has to fall back to the registry.
	delete(e.cache.uploads, uploaded.FileID)

	rec := e.do(t, httptest.NewRequest("POST", "/generate-3d/"+uploaded.FileID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if e.cache.uploads[uploaded.FileID] == nil {
		t.Error("cache not repopulated after registry fallback")
	}
}

func TestGenerate_CorruptStoredObject(t *testing.T) {
	e := newEnv(t)
	uploaded := uploadPNG(t, e)

	// Flip the stored bytes so the integrity check fails.
	upload := e.registry.uploads[uploaded.FileID]
	e.objects.data[upload.ObjectKey] = []byte("tampered")

	rec := e.do(t, httptest.NewRequest("POST", "/generate-3d/"+uploaded.FileID, nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if detail := decodeDetail(t, rec); !strings.HasPrefix(detail, "Error generating 3D model") {
		t.Errorf("detail = %q", detail)
	}
}

func TestInfo_ReturnsMetadata(t *testing.T) {
	e := newEnv(t)
	uploaded := uploadPNG(t, e)

	rec := e.do(t, httptest.NewRequest("GET", "/uploads/"+uploaded.FileID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var info models.FileInfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decoding info: %v", err)
	}
	if info.FileID != uploaded.FileID || info.Filename != "rock.png" || !info.Exists {
		t.Errorf("info = %+v", info)
	}
}

func TestInfo_UnknownFileReturns404(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, httptest.NewRequest("GET", "/uploads/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if detail := decodeDetail(t, rec); detail != "File not found" {
		t.Errorf("detail = %q, want File not found", detail)
	}
}

func TestCORS_PreflightAndHeaders(t *testing.T) {
	handler := CORS("http://localhost:3000")(http.HandlerFunc(HealthHandler))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("OPTIONS", "/health", nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("allow-origin = %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRootHandler_Banner(t *testing.T) {
	rec := httptest.NewRecorder()
	RootHandler(rec, httptest.NewRequest("GET", "/", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding banner: %v", err)
	}
	if body["status"] != "active" || body["version"] != "2.0.0" {
		t.Errorf("banner = %v", body)
	}
}
