// Package focus implements the distraction debounce that decides when to alert.
package focus

import "sync"

// Transition is the alert change caused by an observation.
type Transition int

const (
	// None means the alert state did not change.
	None Transition = iota
	// AlertRaised means the distraction threshold was just reached.
	AlertRaised
	// AlertCleared means the user looked back while a warning was visible.
	AlertCleared
)

// String returns a short name for logs.
func (t Transition) String() string {
	switch t {
	case AlertRaised:
		return "alert_raised"
	case AlertCleared:
		return "alert_cleared"
	default:
		return "none"
	}
}

// DefaultThreshold is the number of consecutive not-looking frames before an alert.
const DefaultThreshold = 100

// Tracker counts consecutive not-looking frames.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	count     int
	warning   bool
}

// NewTracker creates a tracker. Thresholds below one are raised to one.
func NewTracker(threshold int) *Tracker {
	return &Tracker{threshold: max(threshold, 1)}
}

// Observe records one processed frame.
func (t *Tracker) Observe(looking bool) Transition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if looking {
		t.count = 0
		if t.warning {
			t.warning = false
			return AlertCleared
		}
		return None
	}

	t.count++
	if t.count >= t.threshold && !t.warning {
		t.warning = true
		return AlertRaised
	}
	return None
}

// Count returns the current number of consecutive not-looking frames.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// WarningVisible reports whether an alert is currently raised.
func (t *Tracker) WarningVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.warning
}

// Threshold returns the configured threshold.
func (t *Tracker) Threshold() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threshold
}

// SetThreshold changes the threshold for subsequent observations.
func (t *Tracker) SetThreshold(threshold int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.threshold = max(threshold, 1)
}

// Reset clears the counter and the warning, e.g. at session start.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count = 0
	t.warning = false
}
