// Package notification delivers push notifications about focus sessions.
package notification

import (
	"strconv"
	"time"
)

// Kind identifies what a notification is about.
type Kind string

const (
	KindSessionStarted  Kind = "session_started"
	KindSessionComplete Kind = "session_complete"
	KindSessionStopped  Kind = "session_stopped"
	KindFocusLost       Kind = "focus_lost"
	KindBatch           Kind = "batch"
)

// ntfy priorities.
const (
	PriorityDefault = 3
	PriorityHigh    = 4
)

// Notification represents a notification to be sent.
type Notification struct {
	Title    string
	Message  string
	Time     time.Time
	Kind     Kind
	Priority int
	Tags     []string
}

// Notifier sends notifications.
type Notifier interface {
	Send(notification Notification) error
}

// FocusLost builds the notification sent when the user has looked away too long.
func FocusLost(away time.Duration, distractions int) Notification {
	return Notification{
		Title:    "Focus lost",
		Message:  "No eyes on the screen for " + away.Round(time.Second).String() + " (" + strconv.Itoa(distractions) + " frames)",
		Time:     time.Now(),
		Kind:     KindFocusLost,
		Priority: PriorityHigh,
		Tags:     []string{"eyes"},
	}
}

// SessionStarted builds the notification sent when a session begins.
func SessionStarted(label string) Notification {
	return Notification{
		Title:    "Session started",
		Message:  "Focus session of " + label + " started",
		Time:     time.Now(),
		Kind:     KindSessionStarted,
		Priority: PriorityDefault,
		Tags:     []string{"hourglass_flowing_sand"},
	}
}

// SessionComplete builds the notification sent when the countdown reaches zero.
func SessionComplete(label string, distractions int) Notification {
	return Notification{
		Title:    "Session complete",
		Message:  "Focus session of " + label + " complete, " + strconv.Itoa(distractions) + " distraction alerts",
		Time:     time.Now(),
		Kind:     KindSessionComplete,
		Priority: PriorityDefault,
		Tags:     []string{"tada"},
	}
}

// SessionStopped builds the notification sent when a session is ended early.
func SessionStopped(label, remaining string) Notification {
	return Notification{
		Title:    "Session stopped",
		Message:  "Focus session of " + label + " stopped with " + remaining + " remaining",
		Time:     time.Now(),
		Kind:     KindSessionStopped,
		Priority: PriorityDefault,
		Tags:     []string{"stop_sign"},
	}
}
