// Package monitor runs the capture loop that turns camera frames into
// distraction alerts.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/focus"
	"github.com/Veraticus/focus-tracker/pkg/gaze"
	"github.com/Veraticus/focus-tracker/pkg/interfaces"
	"github.com/Veraticus/focus-tracker/pkg/notification"
	"github.com/Veraticus/focus-tracker/pkg/session"
)

// FrameMonitor reads frames, estimates gaze on every FrameSkip-th frame and
// raises or clears the distraction alert.
type FrameMonitor struct {
	source   interfaces.FrameSource
	analyzer interfaces.FrameAnalyzer
	tracker  *focus.Tracker
	alerter  interfaces.Alerter
	logger   *slog.Logger
	opts     Options

	sink      interfaces.FrameSink
	activity  interfaces.ActivityRecorder
	escalator Escalator
	clock     Clock

	mu        sync.Mutex
	observers []session.Observer
	stats     Stats
	last      gaze.Estimate
	lastFrame interfaces.Frame
}

// NewFrameMonitor creates a monitor. alerter may be nil.
func NewFrameMonitor(source interfaces.FrameSource, analyzer interfaces.FrameAnalyzer, tracker *focus.Tracker, alerter interfaces.Alerter, logger *slog.Logger, opts Options) *FrameMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	opts.FrameSkip = max(opts.FrameSkip, 1)
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Millisecond
	}
	return &FrameMonitor{
		source:   source,
		analyzer: analyzer,
		tracker:  tracker,
		alerter:  alerter,
		logger:   logger,
		opts:     opts,
		last: gaze.Estimate{
			Direction:    gaze.DirectionCenter,
			Looking:      true,
			FaceDetected: true,
		},
	}
}

// SetSink shows annotated frames on sink.
func (m *FrameMonitor) SetSink(sink interfaces.FrameSink) { m.sink = sink }

// SetActivityRecorder is told every time the user is seen looking.
func (m *FrameMonitor) SetActivityRecorder(r interfaces.ActivityRecorder) { m.activity = r }

// SetEscalator arms a focus-lost notification when the alert is raised.
func (m *FrameMonitor) SetEscalator(e Escalator) { m.escalator = e }

// SetClock supplies countdown state for snapshots.
func (m *FrameMonitor) SetClock(c Clock) { m.clock = c }

// AddObserver registers an observer for snapshots.
func (m *FrameMonitor) AddObserver(o session.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// Run captures frames until ctx is done. It returns nil on cancellation,
// ErrPreviewClosed when the preview was closed, or the read error after
// too many consecutive failed reads.
func (m *FrameMonitor) Run(ctx context.Context) error {
	defer m.releaseLastFrame()

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := m.source.Read()
		if err != nil {
			failures++
			m.mu.Lock()
			m.stats.ReadFailures++
			m.mu.Unlock()
			if m.opts.MaxReadFailures > 0 && failures >= m.opts.MaxReadFailures {
				return fmt.Errorf("reading frames: %w", err)
			}
			m.logger.Debug("frame read failed", "error", err, "consecutive", failures)
			if !sleep(ctx, m.opts.RetryDelay) {
				return nil
			}
			continue
		}
		failures = 0

		keepGoing := m.handleFrame(frame)
		_ = frame.Close()
		if !keepGoing {
			return ErrPreviewClosed
		}

		if !sleep(ctx, m.opts.FrameInterval) {
			return nil
		}
	}
}

// handleFrame processes or skips one frame and shows the result.
func (m *FrameMonitor) handleFrame(frame interfaces.Frame) bool {
	m.mu.Lock()
	m.stats.Read++
	process := m.stats.Read%m.opts.FrameSkip == 0
	m.mu.Unlock()

	if process {
		m.process(frame)
	}

	if m.sink == nil {
		return true
	}
	m.mu.Lock()
	display := m.lastFrame
	m.mu.Unlock()
	if display == nil {
		display = frame
	}
	return m.sink.Show(display)
}

func (m *FrameMonitor) process(frame interfaces.Frame) {
	out, est, err := m.analyzer.Analyze(frame)
	if err != nil {
		m.mu.Lock()
		m.stats.Failed++
		m.mu.Unlock()
		m.logger.Warn("frame processing failed", "error", err)
		return
	}

	m.mu.Lock()
	if m.lastFrame != nil {
		_ = m.lastFrame.Close()
	}
	m.lastFrame = out
	m.last = est
	m.stats.Processed++
	m.mu.Unlock()

	if est.Looking && m.activity != nil {
		m.activity.UpdateActivity()
	}

	switch m.tracker.Observe(est.Looking) {
	case focus.AlertRaised:
		m.onAlertRaised(est)
	case focus.AlertCleared:
		m.onAlertCleared()
	}

	m.publish()
}

func (m *FrameMonitor) onAlertRaised(est gaze.Estimate) {
	m.mu.Lock()
	m.stats.Alerts++
	m.mu.Unlock()

	m.logger.Info("distraction threshold reached",
		"frames", m.tracker.Count(),
		"direction", est.Direction,
		"status", est.Status)

	if m.alerter != nil {
		m.alerter.Trigger()
	}
	if m.escalator != nil {
		m.escalator.Arm(func(away time.Duration) notification.Notification {
			return notification.FocusLost(away, m.tracker.Count())
		})
	}
}

func (m *FrameMonitor) onAlertCleared() {
	m.logger.Info("focus regained")

	if m.alerter != nil {
		m.alerter.Stop()
	}
	if m.escalator != nil {
		m.escalator.Disarm()
	}
}

// Snapshot returns the current session state.
func (m *FrameMonitor) Snapshot() session.Snapshot {
	m.mu.Lock()
	est := m.last
	m.mu.Unlock()

	s := session.Snapshot{
		SessionID:        m.opts.SessionID,
		Label:            m.opts.Label,
		State:            session.StateRunning,
		Direction:        string(est.Direction),
		Looking:          est.Looking,
		FaceDetected:     est.FaceDetected,
		DistractionCount: m.tracker.Count(),
		Threshold:        m.tracker.Threshold(),
		AlertActive:      m.tracker.WarningVisible(),
		Time:             time.Now(),
	}
	if m.clock != nil {
		s.Remaining = m.clock.Remaining()
		s.State = m.clock.State()
	}
	s.RemainingText = session.FormatRemaining(s.Remaining)
	return s
}

// Publish sends the current snapshot to every observer.
func (m *FrameMonitor) Publish() {
	m.publish()
}

func (m *FrameMonitor) publish() {
	s := m.Snapshot()

	m.mu.Lock()
	observers := make([]session.Observer, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o.Publish(s)
	}
}

// Stats returns frame counters.
func (m *FrameMonitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Last returns the most recent estimate.
func (m *FrameMonitor) Last() gaze.Estimate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *FrameMonitor) releaseLastFrame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastFrame != nil {
		_ = m.lastFrame.Close()
		m.lastFrame = nil
	}
}

// sleep waits for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
