// Package viewer owns the model viewport: camera, lighting rig,
// backdrop, and the choice between loading, error and model views.
package viewer

import (
	"errors"

	"github.com/rockly/rockly/internal/mesh"
)

// ErrExportNotImplemented is returned by ExportModel; model export is a
// placeholder in this version.
var ErrExportNotImplemented = errors.New("model export is not implemented yet")

// View identifies which of the three mutually exclusive viewport views
// is visible.
type View int

const (
	ViewLoading View = iota
	ViewError
	ViewModel
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewError:
		return "error"
	case ViewModel:
		return "model"
	default:
		return "unknown"
	}
}

// BackgroundColor is the viewport backdrop.
var BackgroundColor = [3]float64{0.08, 0.08, 0.1}

// SelectView picks exactly one view from the three inputs. An error
// message wins over everything; otherwise a present mesh wins over the
// loading placeholder. This is a pure function so the shell's chrome
// never leaks presentation logic into the state machine.
func SelectView(loading bool, errMsg string, m *mesh.Mesh) View {
	if errMsg != "" {
		return ViewError
	}
	if !loading && m != nil {
		return ViewModel
	}
	return ViewLoading
}

// Shell wraps the assembled mesh in a camera, lighting rig and backdrop
// and tracks which view is visible.
type Shell struct {
	Camera *OrbitCamera
	Lights []Light

	view   View
	errMsg string
	mesh   *mesh.Mesh
}

// NewShell creates a shell showing the loading placeholder.
func NewShell() *Shell {
	return &Shell{
		Camera: NewOrbitCamera(),
		Lights: DefaultRig(),
		view:   ViewLoading,
	}
}

// Update recomputes the visible view from the three inputs.
func (s *Shell) Update(loading bool, errMsg string, m *mesh.Mesh) {
	s.errMsg = errMsg
	s.mesh = m
	s.view = SelectView(loading, errMsg, m)
}

// View returns the currently visible view.
func (s *Shell) View() View { return s.view }

// ErrorMessage returns the message shown by the error view, empty
// otherwise.
func (s *Shell) ErrorMessage() string {
	if s.view != ViewError {
		return ""
	}
	return s.errMsg
}

// Mesh returns the mesh shown by the model view, nil otherwise.
func (s *Shell) Mesh() *mesh.Mesh {
	if s.view != ViewModel {
		return nil
	}
	return s.mesh
}

// ExportModel is the download placeholder. It reports not-implemented
// rather than performing work.
func (s *Shell) ExportModel() error {
	return ErrExportNotImplemented
}
