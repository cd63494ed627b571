package vision

import (
	"errors"
	"fmt"

	"github.com/Veraticus/focus-tracker/pkg/gaze"
	"github.com/Veraticus/focus-tracker/pkg/interfaces"
	"gocv.io/x/gocv"
)

// ErrUnsupportedFrame is returned when a frame did not come from this package.
var ErrUnsupportedFrame = errors.New("unsupported frame type")

// Frame wraps a gocv.Mat so it can travel through the monitor.
type Frame struct {
	Mat gocv.Mat
}

// Close releases the underlying Mat.
func (f *Frame) Close() error {
	return f.Mat.Close()
}

// CameraSource adapts a Camera to interfaces.FrameSource.
type CameraSource struct {
	Camera *Camera
}

var _ interfaces.FrameSource = (*CameraSource)(nil)

// Read returns the next mirrored frame.
func (s *CameraSource) Read() (interfaces.Frame, error) {
	mat, err := s.Camera.Read()
	if err != nil {
		_ = mat.Close()
		return nil, err
	}
	return &Frame{Mat: mat}, nil
}

// Close releases the camera.
func (s *CameraSource) Close() error {
	return s.Camera.Close()
}

var _ interfaces.FrameAnalyzer = (*Detector)(nil)

// Analyze implements interfaces.FrameAnalyzer.
func (d *Detector) Analyze(frame interfaces.Frame) (interfaces.Frame, gaze.Estimate, error) {
	f, ok := frame.(*Frame)
	if !ok {
		return nil, gaze.Estimate{}, fmt.Errorf("%w: %T", ErrUnsupportedFrame, frame)
	}
	if f.Mat.Empty() {
		return nil, gaze.Estimate{}, ErrNoFrame
	}
	out, est := d.ProcessFrame(f.Mat)
	return &Frame{Mat: out}, est, nil
}

// Preview shows annotated frames in an OpenCV window.
type Preview struct {
	window *gocv.Window
}

var _ interfaces.FrameSink = (*Preview)(nil)

// NewPreview opens a preview window.
func NewPreview(title string) *Preview {
	return &Preview{window: gocv.NewWindow(title)}
}

// Show draws frame and reports false once a key was pressed.
func (p *Preview) Show(frame interfaces.Frame) bool {
	f, ok := frame.(*Frame)
	if !ok || f.Mat.Empty() {
		return true
	}
	p.window.IMShow(f.Mat)
	return p.window.WaitKey(1) < 0
}

// Close closes the window.
func (p *Preview) Close() error {
	return p.window.Close()
}
