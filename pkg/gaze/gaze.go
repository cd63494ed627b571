// Package gaze classifies horizontal gaze direction from pupil measurements.
package gaze

import "sync"

// Direction is the horizontal gaze direction of a processed frame.
type Direction string

const (
	DirectionCenter Direction = "center"
	DirectionLeft   Direction = "left"
	DirectionRight  Direction = "right"
)

// Status describes how far the pipeline got on a frame.
type Status string

const (
	StatusTracked Status = "tracked"
	StatusNoFace  Status = "no_face"
	StatusNoEyes  Status = "no_eyes"
)

// DefaultSensitivity is the width of the center band.
const DefaultSensitivity = 0.25

// Estimate is the per-frame gaze measurement.
type Estimate struct {
	Direction    Direction
	Looking      bool
	FaceDetected bool
	Eyes         int
	Pupils       int
	Ratio        float64
	Status       Status
}

// Bounds returns the inclusive center band for a sensitivity.
func Bounds(sensitivity float64) (low, high float64) {
	return 0.5 - sensitivity/2, 0.5 + sensitivity/2
}

// Classify maps a gaze ratio to a direction. The user is looking at the
// screen only when the ratio falls inside the center band.
func Classify(ratio, sensitivity float64) (Direction, bool) {
	low, high := Bounds(sensitivity)
	switch {
	case ratio < low:
		return DirectionLeft, false
	case ratio > high:
		return DirectionRight, false
	default:
		return DirectionCenter, true
	}
}

// Ratio normalises a pupil x coordinate by the eye width.
func Ratio(pupilX, eyeWidth int) float64 {
	if eyeWidth <= 0 {
		return 0
	}
	return float64(pupilX) / float64(eyeWidth)
}

// AverageRatio returns the mean of ratios, or false if there are none.
func AverageRatio(ratios []float64) (float64, bool) {
	if len(ratios) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, r := range ratios {
		sum += r
	}
	return sum / float64(len(ratios)), true
}

// AcceptPupil reports whether a candidate circle is plausible for an eye
// region of the given height.
func AcceptPupil(radius float64, eyeHeight int) bool {
	return radius > 2 && radius < float64(eyeHeight)*0.4
}

// ClampSensitivity keeps a sensitivity inside [0, 1].
func ClampSensitivity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Estimator turns detection results into estimates. It remembers the last
// direction so frames without a usable pupil keep the previous label.
type Estimator struct {
	mu          sync.Mutex
	sensitivity float64
	direction   Direction
	looking     bool
	face        bool
}

// NewEstimator creates an estimator. The initial state is looking at center.
func NewEstimator(sensitivity float64) *Estimator {
	return &Estimator{
		sensitivity: ClampSensitivity(sensitivity),
		direction:   DirectionCenter,
		looking:     true,
	}
}

// Sensitivity returns the current sensitivity.
func (e *Estimator) Sensitivity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sensitivity
}

// SetSensitivity changes the center band width.
func (e *Estimator) SetSensitivity(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sensitivity = ClampSensitivity(v)
}

// NoFace records a frame in which no face was found.
func (e *Estimator) NoFace() Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.face = false
	e.looking = false
	return Estimate{
		Direction: e.direction,
		Status:    StatusNoFace,
	}
}

// Observe records a frame with a face, the number of detected eyes and the
// ratios of the pupils that were found.
func (e *Estimator) Observe(eyes int, ratios []float64) Estimate {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.face = true
	est := Estimate{
		FaceDetected: true,
		Eyes:         eyes,
		Pupils:       len(ratios),
	}

	avg, ok := AverageRatio(ratios)
	if !ok {
		e.looking = false
		est.Direction = e.direction
		est.Status = StatusNoEyes
		return est
	}

	e.direction, e.looking = Classify(avg, e.sensitivity)
	est.Direction = e.direction
	est.Looking = e.looking
	est.Ratio = avg
	est.Status = StatusTracked
	return est
}

// IsLooking returns the result of the last observation.
func (e *Estimator) IsLooking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.looking
}

// FaceDetected returns whether the last observation contained a face.
func (e *Estimator) FaceDetected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.face
}

// Direction returns the last classified direction.
func (e *Estimator) Direction() Direction {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.direction
}
