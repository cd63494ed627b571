// Package interfaces defines the core interfaces used throughout the application.
package interfaces

import (
	"time"

	"github.com/Veraticus/focus-tracker/pkg/gaze"
)

// IdleDetector detects user activity/inactivity.
type IdleDetector interface {
	IsUserIdle(threshold time.Duration) (bool, error)
	LastActivity() time.Time
}

// ActivityRecorder records that the user was seen.
type ActivityRecorder interface {
	UpdateActivity()
}

// RateLimiter limits notification frequency.
type RateLimiter interface {
	Allow() bool
	Reset()
}

// StatusReporter reports push notification delivery state.
type StatusReporter interface {
	ReportSending()
	ReportSuccess()
	ReportFailure()
}

// Frame is a captured video frame. Frames must be closed by their owner.
type Frame interface {
	Close() error
}

// FrameSource produces frames.
type FrameSource interface {
	Read() (Frame, error)
	Close() error
}

// FrameAnalyzer estimates gaze for a frame and returns an annotated copy.
type FrameAnalyzer interface {
	Analyze(frame Frame) (Frame, gaze.Estimate, error)
}

// FrameSink displays frames. Show returns false when the viewer asked to stop.
type FrameSink interface {
	Show(frame Frame) bool
	Close() error
}

// Alerter raises and clears the distraction alert.
type Alerter interface {
	Trigger()
	Stop() bool
	ShouldShowWarning() bool
}
