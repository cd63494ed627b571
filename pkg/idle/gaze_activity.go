package idle

import (
	"sync"
	"time"
)

// GazeActivityDetector tracks the last time the user was seen looking at
// the screen.
type GazeActivityDetector struct {
	mu           sync.RWMutex
	lastActivity time.Time
}

// NewGazeActivityDetector creates a detector that counts the user as present now.
func NewGazeActivityDetector() *GazeActivityDetector {
	return &GazeActivityDetector{
		lastActivity: time.Now(),
	}
}

// IsUserIdle returns true if the user has not been seen within threshold.
func (d *GazeActivityDetector) IsUserIdle(threshold time.Duration) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return time.Since(d.lastActivity) >= threshold, nil
}

// LastActivity returns the last time the user was seen.
func (d *GazeActivityDetector) LastActivity() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.lastActivity
}

// Away returns how long the user has not been seen.
func (d *GazeActivityDetector) Away() time.Duration {
	return time.Since(d.LastActivity())
}

// UpdateActivity records that the user is looking at the screen.
func (d *GazeActivityDetector) UpdateActivity() {
	d.UpdateActivityTime(time.Now())
}

// UpdateActivityTime records activity at t.
func (d *GazeActivityDetector) UpdateActivityTime(t time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastActivity = t
}
