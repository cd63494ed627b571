package monitor

import (
	"errors"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/notification"
	"github.com/Veraticus/focus-tracker/pkg/session"
)

// ErrPreviewClosed is returned by Run when the preview window asked to stop.
var ErrPreviewClosed = errors.New("preview closed")

// Clock provides the countdown state included in snapshots.
type Clock interface {
	Remaining() int
	State() session.State
}

// Escalator holds back a focus-lost notification until the user has been
// away long enough.
type Escalator interface {
	Arm(build func(away time.Duration) notification.Notification)
	Disarm() bool
}

// Options tune the capture loop.
type Options struct {
	// FrameInterval is the pause between reads.
	FrameInterval time.Duration
	// FrameSkip processes every n-th frame.
	FrameSkip int
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration
	// MaxReadFailures ends Run after that many consecutive failed reads.
	// Zero retries forever.
	MaxReadFailures int
	// SessionID and Label are copied into snapshots.
	SessionID string
	Label     string
}

// Stats counts frames seen by a monitor.
type Stats struct {
	Read         int
	Processed    int
	Failed       int
	ReadFailures int
	Alerts       int
}
