// Package session provides the focus session countdown and the state snapshot
// shared with observers.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStopped is returned by Run when the session was stopped before completion.
	ErrStopped = errors.New("session stopped")
	// ErrUnknownPreset is returned when a preset label does not exist.
	ErrUnknownPreset = errors.New("unknown session preset")
)

// Preset is a named session duration.
type Preset struct {
	Label    string
	Duration time.Duration
}

// Presets are the durations offered by default.
var Presets = []Preset{
	{Label: "10 minutes", Duration: 10 * time.Minute},
	{Label: "30 minutes", Duration: 30 * time.Minute},
	{Label: "1 hour", Duration: time.Hour},
	{Label: "2 hours", Duration: 2 * time.Hour},
}

// DefaultPreset is the preset used when none is selected.
var DefaultPreset = Presets[0]

// LookupPreset finds a preset by label, ignoring case and surrounding space.
func LookupPreset(label string) (Preset, error) {
	want := strings.TrimSpace(label)
	for _, p := range Presets {
		if strings.EqualFold(p.Label, want) {
			return p, nil
		}
	}
	return Preset{}, fmt.Errorf("%w: %q", ErrUnknownPreset, label)
}

// FormatRemaining renders whole seconds as H:MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// Snapshot is the state of a running session at one point in time.
type Snapshot struct {
	SessionID        string    `json:"session_id"`
	Label            string    `json:"label"`
	State            State     `json:"state"`
	Remaining        int       `json:"remaining_seconds"`
	RemainingText    string    `json:"remaining"`
	Direction        string    `json:"direction"`
	Looking          bool      `json:"looking"`
	FaceDetected     bool      `json:"face_detected"`
	DistractionCount int       `json:"distraction_count"`
	Threshold        int       `json:"threshold"`
	AlertActive      bool      `json:"alert_active"`
	Time             time.Time `json:"time"`
}

// Observer receives snapshots.
type Observer interface {
	Publish(s Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

// Publish calls f(s).
func (f ObserverFunc) Publish(s Snapshot) {
	f(s)
}
