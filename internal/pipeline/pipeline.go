// Package pipeline drives the upload → generate → render flow: two
// sequential network calls, a small set of UI-visible states, and a
// debounced structural check of the returned geometry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rockly/rockly/internal/models"
)

// State is a UI-visible pipeline state.
type State string

const (
	StateIdle            State = "idle"
	StateUploading       State = "uploading"
	StateUploaded        State = "uploaded"
	StateGenerating      State = "generating"
	StateValidating      State = "validating_geometry"
	StateReady           State = "ready"
	StateUploadError     State = "upload_error"
	StateGenerationError State = "generation_error"
)

const (
	// DefaultValidationDelay is the pause between receiving a
	// generation result and structurally validating it, long enough
	// for a view transition to render first.
	DefaultValidationDelay = 100 * time.Millisecond

	// invalidGeometryMessage is the fixed diagnostic for payloads with
	// empty vertices or faces. It is rendered in the viewport area,
	// distinct from network errors.
	invalidGeometryMessage = "Invalid model data structure"

	uploadFallbackMessage     = "Upload failed. Please try again."
	generationFallbackMessage = "3D generation failed. Please try again."
)

// ErrNoFileSelected is returned by Upload when called with no files.
var ErrNoFileSelected = errors.New("no file selected")

// ErrNoUpload is returned by Generate before a successful upload.
var ErrNoUpload = errors.New("no uploaded file to generate from")

// File is a selected file: a name plus its content.
type File struct {
	Name    string
	Content io.Reader
}

// Snapshot is an immutable view of the pipeline for rendering.
type Snapshot struct {
	State      State
	Upload     *models.UploadResult
	Generation *models.GenerationResult
	Err        string
	// Validated is true once the generation result passed the delayed
	// structural check.
	Validated bool
}

// Pipeline is the upload/generation client state machine. All state
// transitions go through the mutex; network calls run outside it. Every
// request carries a sequence number taken at initiation, and a
// completion is applied only while its sequence is still the latest
// issued, so a stale slow response can never overwrite state set by a
// newer one.
type Pipeline struct {
	api *APIClient

	// ValidationDelay overrides DefaultValidationDelay when positive.
	ValidationDelay time.Duration

	mu         sync.Mutex
	state      State
	upload     *models.UploadResult
	generation *models.GenerationResult
	errMsg     string
	validated  bool

	uploadSeq   uint64
	generateSeq uint64

	validationTimer *time.Timer
	closed          bool

	onChange func(Snapshot)
}

// NewPipeline creates an idle pipeline around the given API client.
func NewPipeline(api *APIClient) *Pipeline {
	return &Pipeline{
		api:             api,
		state:           StateIdle,
		ValidationDelay: DefaultValidationDelay,
	}
}

// OnChange registers a callback invoked after every state transition
// with a snapshot of the new state. It is called without the pipeline
// lock held.
func (p *Pipeline) OnChange(fn func(Snapshot)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Snapshot returns the current state.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pipeline) snapshotLocked() Snapshot {
	return Snapshot{
		State:      p.state,
		Upload:     p.upload,
		Generation: p.generation,
		Err:        p.errMsg,
		Validated:  p.validated,
	}
}

// notify delivers snap to the registered callback, if any.
func (p *Pipeline) notify(snap Snapshot) {
	p.mu.Lock()
	fn := p.onChange
	p.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Upload starts a new upload from a file selection. Multi-file
// selections use only the first file. Starting a new upload clears any
// stored results and supersedes in-flight requests of both kinds.
func (p *Pipeline) Upload(ctx context.Context, files ...File) error {
	if len(files) == 0 {
		return ErrNoFileSelected
	}
	file := files[0]

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("pipeline is closed")
	}
	p.uploadSeq++
	seq := p.uploadSeq
	p.generateSeq++ // supersede any in-flight generation
	p.cancelValidationLocked()
	p.upload = nil
	p.generation = nil
	p.errMsg = ""
	p.validated = false
	p.state = StateUploading
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)

	result, err := p.api.UploadImage(ctx, file.Name, file.Content)

	p.mu.Lock()
	if p.closed || seq != p.uploadSeq {
		// A newer upload or a reset superseded this request.
		p.mu.Unlock()
		return err
	}
	if err != nil {
		p.errMsg = uploadErrorMessage(err)
		p.state = StateUploadError
	} else {
		p.upload = result
		p.state = StateUploaded
	}
	snap = p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)

	return err
}

// Generate requests 3D generation for the stored upload. On success the
// pipeline reaches ready and schedules the delayed geometry validation.
func (p *Pipeline) Generate(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errors.New("pipeline is closed")
	}
	if p.upload == nil || p.upload.FileID == "" {
		p.mu.Unlock()
		return ErrNoUpload
	}
	fileID := p.upload.FileID
	p.generateSeq++
	seq := p.generateSeq
	p.cancelValidationLocked()
	p.generation = nil
	p.errMsg = ""
	p.validated = false
	p.state = StateGenerating
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)

	result, err := p.api.Generate3D(ctx, fileID)

	p.mu.Lock()
	if p.closed || seq != p.generateSeq {
		p.mu.Unlock()
		return err
	}
	if err != nil {
		p.errMsg = generationErrorMessage(err)
		p.state = StateGenerationError
		snap = p.snapshotLocked()
		p.mu.Unlock()
		p.notify(snap)
		return err
	}

	p.generation = result
	p.state = StateReady
	p.scheduleValidationLocked(seq)
	snap = p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)

	return nil
}

// scheduleValidationLocked arms the debounced structural check for the
// generation result identified by seq. A superseding result cancels the
// prior timer before this is called, so a stale timer can never flip
// state after a newer result rendered.
func (p *Pipeline) scheduleValidationLocked(seq uint64) {
	delay := p.ValidationDelay
	if delay <= 0 {
		delay = DefaultValidationDelay
	}
	p.validationTimer = time.AfterFunc(delay, func() {
		p.validate(seq)
	})
}

// validate performs both validation transitions in one critical section
// so a concurrent reset either supersedes the whole check or sees it
// complete; the intermediate validating snapshot can never be published
// after a reset's.
func (p *Pipeline) validate(seq uint64) {
	p.mu.Lock()
	if p.closed || seq != p.generateSeq || p.generation == nil {
		p.mu.Unlock()
		return
	}
	p.state = StateValidating
	validating := p.snapshotLocked()

	if p.generation.ModelData.Renderable() {
		p.validated = true
		p.state = StateReady
	} else {
		p.errMsg = invalidGeometryMessage
		p.state = StateGenerationError
	}
	final := p.snapshotLocked()
	p.mu.Unlock()

	p.notify(validating)
	p.notify(final)
}

func (p *Pipeline) cancelValidationLocked() {
	if p.validationTimer != nil {
		p.validationTimer.Stop()
		p.validationTimer = nil
	}
}

// Reset clears all stored results and errors from any state and returns
// to idle. In-flight requests are superseded; their responses are
// discarded when they land.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.uploadSeq++
	p.generateSeq++
	p.cancelValidationLocked()
	p.upload = nil
	p.generation = nil
	p.errMsg = ""
	p.validated = false
	p.state = StateIdle
	snap := p.snapshotLocked()
	p.mu.Unlock()
	p.notify(snap)
}

// Close tears the pipeline down, cancelling the pending validation
// timer. A closed pipeline ignores late responses.
func (p *Pipeline) Close() {
	p.mu.Lock()
	p.closed = true
	p.cancelValidationLocked()
	p.mu.Unlock()
}

// uploadErrorMessage applies the error-extraction policy for uploads:
// the server's detail field when present, else a generic message with
// the status code, else the transport error's message, else a fixed
// fallback.
func uploadErrorMessage(err error) string {
	return errorMessage(err, "Upload failed", uploadFallbackMessage)
}

func generationErrorMessage(err error) string {
	return errorMessage(err, "Generation failed", generationFallbackMessage)
}

func errorMessage(err error, opPrefix, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return fmt.Sprintf("%s: %d", opPrefix, apiErr.StatusCode)
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}
