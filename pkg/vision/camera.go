package vision

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraUnavailable is returned when the webcam cannot be opened.
	ErrCameraUnavailable = errors.New("webcam could not be opened")
	// ErrNoFrame is returned when the device produced no frame.
	ErrNoFrame = errors.New("no frame read from webcam")
)

// Camera reads mirrored frames from a webcam.
type Camera struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	raw     gocv.Mat
	device  int
}

// OpenCamera opens device and requests the given resolution.
func OpenCamera(device, width, height int) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCameraUnavailable, device, err)
	}
	if !capture.IsOpened() {
		_ = capture.Close()
		return nil, fmt.Errorf("%w: device %d", ErrCameraUnavailable, device)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(width))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(height))

	return &Camera{
		capture: capture,
		raw:     gocv.NewMat(),
		device:  device,
	}, nil
}

// Read returns the next frame flipped horizontally so the preview behaves
// like a mirror. The caller owns the returned Mat.
func (c *Camera) Read() (gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return gocv.NewMat(), ErrCameraUnavailable
	}
	if ok := c.capture.Read(&c.raw); !ok || c.raw.Empty() {
		return gocv.NewMat(), ErrNoFrame
	}

	mirrored := gocv.NewMat()
	gocv.Flip(c.raw, &mirrored, 1)
	return mirrored, nil
}

// Device returns the device index.
func (c *Camera) Device() int {
	return c.device
}

// Close releases the device. It is safe to call more than once.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	err := c.capture.Close()
	c.capture = nil
	_ = c.raw.Close()
	return err
}
