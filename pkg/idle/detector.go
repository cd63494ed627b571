// Package idle decides whether the user has been away from the screen.
package idle

import (
	"time"

	"github.com/Veraticus/focus-tracker/pkg/interfaces"
)

// Detector combines gaze activity with the operating system's input idle
// time. The user counts as idle only when neither source has seen them
// within the threshold.
type Detector struct {
	gaze   *GazeActivityDetector
	system interfaces.IdleDetector
}

var (
	_ interfaces.IdleDetector     = (*Detector)(nil)
	_ interfaces.ActivityRecorder = (*Detector)(nil)
)

// NewDetector creates a detector. system may be nil.
func NewDetector(gaze *GazeActivityDetector, system interfaces.IdleDetector) *Detector {
	if gaze == nil {
		gaze = NewGazeActivityDetector()
	}
	return &Detector{gaze: gaze, system: system}
}

// IsUserIdle implements interfaces.IdleDetector. System errors fall back to
// gaze activity alone.
func (d *Detector) IsUserIdle(threshold time.Duration) (bool, error) {
	idle, _ := d.gaze.IsUserIdle(threshold)
	if !idle || d.system == nil {
		return idle, nil
	}

	systemIdle, err := d.system.IsUserIdle(threshold)
	if err != nil {
		return idle, nil
	}
	return systemIdle, nil
}

// LastActivity returns the most recent activity from either source.
func (d *Detector) LastActivity() time.Time {
	last := d.gaze.LastActivity()
	if d.system == nil {
		return last
	}
	if sys := d.system.LastActivity(); sys.After(last) && !sys.After(time.Now()) {
		return sys
	}
	return last
}

// UpdateActivity records that the user was seen looking.
func (d *Detector) UpdateActivity() {
	d.gaze.UpdateActivity()
}

// Gaze returns the gaze activity source.
func (d *Detector) Gaze() *GazeActivityDetector {
	return d.gaze
}

// NewSystemDetector returns the platform input idle detector, or nil when
// the platform has none or its tool is not installed.
func NewSystemDetector() interfaces.IdleDetector {
	return newPlatformDetector()
}
