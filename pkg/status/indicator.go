// Package status draws the session state on the last line of the terminal.
package status

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/session"
)

// Status represents the current push notification status
type Status int

const (
	StatusIdle Status = iota
	StatusSending
	StatusSuccess
	StatusFailed
)

// WarningText is shown while the distraction alert is active.
const WarningText = "! FOCUS ON THE SCREEN !"

const (
	normalInterval = time.Second
	alertInterval  = 250 * time.Millisecond
	successVisible = 30 * time.Second
)

// Indicator manages the status display in the terminal
type Indicator struct {
	mu       sync.Mutex
	status   Status
	lastSent time.Time
	enabled  bool
	writer   io.Writer

	snapshot    session.Snapshot
	hasSnapshot bool
	blink       bool

	refreshChan chan struct{}
}

var _ session.Observer = (*Indicator)(nil)

// NewIndicator creates a new status indicator
func NewIndicator(writer io.Writer, enabled bool) *Indicator {
	return &Indicator{
		status:      StatusIdle,
		writer:      writer,
		enabled:     enabled,
		refreshChan: make(chan struct{}, 1),
	}
}

// SetStatus updates the push notification status
func (i *Indicator) SetStatus(status Status) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.status = status
	if status == StatusSuccess {
		i.lastSent = time.Now()
	}

	// Best effort - don't fail if we can't update the display
	_ = i.draw()
}

// Publish implements session.Observer. The line is redrawn by Run.
func (i *Indicator) Publish(s session.Snapshot) {
	i.mu.Lock()
	i.snapshot = s
	i.hasSnapshot = true
	i.mu.Unlock()

	i.requestRefresh()
}

// Snapshot returns the last published snapshot.
func (i *Indicator) Snapshot() (session.Snapshot, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.snapshot, i.hasSnapshot
}

func (i *Indicator) requestRefresh() {
	if !i.enabled {
		return
	}
	select {
	case i.refreshChan <- struct{}{}:
	default:
		// Channel is full, refresh already pending
	}
}

// draw renders the status line. Callers hold mu.
func (i *Indicator) draw() error {
	if !i.enabled || i.writer == nil {
		return nil
	}

	statusText := i.getStatusText()
	if statusText == "" {
		return nil
	}

	// \0337 saves the cursor, \033[r resets the scroll region, \033[999;1H
	// moves to the last line, \033[2K clears it and \0338 restores.
	sequence := fmt.Sprintf("\0337\033[r\033[999;1H\033[2K%s\0338", statusText)
	_, err := fmt.Fprint(i.writer, sequence)
	return err
}

// getStatusText returns the status line with colors
func (i *Indicator) getStatusText() string {
	var parts []string

	if i.hasSnapshot {
		s := i.snapshot
		switch s.State {
		case session.StateCompleted:
			parts = append(parts, "\033[32m✓\033[0m")
		case session.StateStopped:
			parts = append(parts, "\033[90m■\033[0m")
		default:
			parts = append(parts, "\033[32m▶\033[0m")
		}
		parts = append(parts, s.RemainingText)

		switch {
		case !s.FaceDetected:
			parts = append(parts, "\033[90m○ no face\033[0m")
		case s.Looking:
			parts = append(parts, "\033[36m◉ "+s.Direction+"\033[0m")
		default:
			parts = append(parts, "\033[33m◌ "+s.Direction+"\033[0m")
		}

		if s.DistractionCount > 0 {
			parts = append(parts, fmt.Sprintf("%d/%d", s.DistractionCount, s.Threshold))
		}

		if s.AlertActive {
			if i.blink {
				parts = append(parts, "\033[1;97;41m"+WarningText+"\033[0m")
			} else {
				parts = append(parts, "\033[1;31m"+WarningText+"\033[0m")
			}
		}
	}

	switch i.status {
	case StatusSending:
		parts = append(parts, "\033[33m⟳ ntfy\033[0m")
	case StatusSuccess:
		if since := time.Since(i.lastSent); since < successVisible {
			parts = append(parts, fmt.Sprintf("\033[32m✓ ntfy (%ds)\033[0m", int(since.Seconds())))
		}
	case StatusFailed:
		parts = append(parts, "\033[31m✗ ntfy\033[0m")
	}

	return strings.Join(parts, " ")
}

// Clear removes the status indicator
func (i *Indicator) Clear() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.enabled || i.writer == nil {
		return nil
	}

	_, err := fmt.Fprint(i.writer, "\0337\033[999;1H\033[2K\0338")
	return err
}

// Run redraws the line every second, faster while the alert blinks, and
// whenever a snapshot is published. It clears the line when ctx is done.
func (i *Indicator) Run(ctx context.Context) error {
	ticker := time.NewTicker(normalInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			i.mu.Lock()
			alert := i.hasSnapshot && i.snapshot.AlertActive
			if alert {
				i.blink = !i.blink
			}
			_ = i.draw() // Best effort
			i.mu.Unlock()

			if alert {
				ticker.Reset(alertInterval)
			} else {
				ticker.Reset(normalInterval)
			}
		case <-i.refreshChan:
			i.mu.Lock()
			_ = i.draw()
			i.mu.Unlock()
		case <-ctx.Done():
			_ = i.Clear()
			return nil
		}
	}
}
