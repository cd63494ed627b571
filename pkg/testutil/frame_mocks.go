package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/gaze"
	"github.com/Veraticus/focus-tracker/pkg/interfaces"
	"github.com/Veraticus/focus-tracker/pkg/notification"
	"github.com/Veraticus/focus-tracker/pkg/session"
)

// ErrSourceExhausted is returned by MockFrameSource after its script ends.
var ErrSourceExhausted = errors.New("mock source exhausted")

// MockFrame is an interfaces.Frame that records whether it was closed.
type MockFrame struct {
	ID int

	mu     sync.Mutex
	closed bool
}

// Close implements interfaces.Frame
func (f *MockFrame) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Closed reports whether Close was called
func (f *MockFrame) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// MockFrameSource yields numbered frames. Reads listed in failAt return an
// error instead of a frame. After limit successful reads it returns
// ErrSourceExhausted; a limit of zero never runs out.
type MockFrameSource struct {
	mu     sync.Mutex
	limit  int
	failAt map[int]bool
	reads  int
	frames []*MockFrame
	closed bool
}

// NewMockFrameSource creates a source that yields limit frames.
func NewMockFrameSource(limit int, failAt ...int) *MockFrameSource {
	fails := make(map[int]bool, len(failAt))
	for _, n := range failAt {
		fails[n] = true
	}
	return &MockFrameSource{limit: limit, failAt: fails}
}

// Read implements interfaces.FrameSource
func (s *MockFrameSource) Read() (interfaces.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if s.failAt[s.reads] {
		return nil, errors.New("mock read failure")
	}
	if s.limit > 0 && len(s.frames) >= s.limit {
		return nil, ErrSourceExhausted
	}
	f := &MockFrame{ID: len(s.frames) + 1}
	s.frames = append(s.frames, f)
	return f, nil
}

// Close implements interfaces.FrameSource
func (s *MockFrameSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Frames returns every frame handed out so far.
func (s *MockFrameSource) Frames() []*MockFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*MockFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Reads returns the number of Read calls.
func (s *MockFrameSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// MockAnalyzer returns scripted estimates in order, repeating the last one
// once the script runs out. Frames with an ID in failIDs fail to analyze.
type MockAnalyzer struct {
	mu        sync.Mutex
	script    []bool
	failIDs   map[int]bool
	analyzed  []int
	outputs   []*MockFrame
	nextOutID int
}

// NewMockAnalyzer creates an analyzer reporting looking values from script.
func NewMockAnalyzer(script ...bool) *MockAnalyzer {
	return &MockAnalyzer{script: script, failIDs: map[int]bool{}, nextOutID: 1000}
}

// FailFrame makes analysis of frame id fail.
func (a *MockAnalyzer) FailFrame(id int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failIDs[id] = true
}

// Analyze implements interfaces.FrameAnalyzer
func (a *MockAnalyzer) Analyze(frame interfaces.Frame) (interfaces.Frame, gaze.Estimate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	id := 0
	if f, ok := frame.(*MockFrame); ok {
		id = f.ID
	}
	if a.failIDs[id] {
		return nil, gaze.Estimate{}, errors.New("mock analysis failure")
	}

	looking := true
	if len(a.script) > 0 {
		idx := min(len(a.analyzed), len(a.script)-1)
		looking = a.script[idx]
	}
	a.analyzed = append(a.analyzed, id)

	est := gaze.Estimate{
		Direction:    gaze.DirectionCenter,
		Looking:      looking,
		FaceDetected: true,
		Status:       gaze.StatusTracked,
	}
	if !looking {
		est.Direction = gaze.DirectionLeft
	}

	a.nextOutID++
	out := &MockFrame{ID: a.nextOutID}
	a.outputs = append(a.outputs, out)
	return out, est, nil
}

// Analyzed returns the IDs of analyzed frames in order.
func (a *MockAnalyzer) Analyzed() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]int, len(a.analyzed))
	copy(out, a.analyzed)
	return out
}

// Outputs returns the annotated frames produced so far.
func (a *MockAnalyzer) Outputs() []*MockFrame {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*MockFrame, len(a.outputs))
	copy(out, a.outputs)
	return out
}

// MockSink records shown frames and stops after stopAfter frames when
// stopAfter is positive.
type MockSink struct {
	mu        sync.Mutex
	shown     []interfaces.Frame
	stopAfter int
}

// NewMockSink creates a sink.
func NewMockSink(stopAfter int) *MockSink {
	return &MockSink{stopAfter: stopAfter}
}

// Show implements interfaces.FrameSink
func (s *MockSink) Show(frame interfaces.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, frame)
	return s.stopAfter <= 0 || len(s.shown) < s.stopAfter
}

// Close implements interfaces.FrameSink
func (s *MockSink) Close() error { return nil }

// Shown returns the frames passed to Show.
func (s *MockSink) Shown() []interfaces.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]interfaces.Frame, len(s.shown))
	copy(out, s.shown)
	return out
}

// MockAlerter records Trigger and Stop calls.
type MockAlerter struct {
	mu       sync.Mutex
	active   bool
	triggers int
	stops    int
}

// Trigger implements interfaces.Alerter
func (a *MockAlerter) Trigger() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.triggers++
	a.active = true
}

// Stop implements interfaces.Alerter
func (a *MockAlerter) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	was := a.active
	a.active = false
	return was
}

// ShouldShowWarning implements interfaces.Alerter
func (a *MockAlerter) ShouldShowWarning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Counts returns the number of Trigger and Stop calls.
func (a *MockAlerter) Counts() (triggers, stops int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.triggers, a.stops
}

// MockEscalator records arming.
type MockEscalator struct {
	mu       sync.Mutex
	armed    bool
	arms     int
	disarms  int
	lastSent notification.Notification
}

// Arm records the call and builds the notification once for inspection.
func (e *MockEscalator) Arm(build func(away time.Duration) notification.Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arms++
	e.armed = true
	e.lastSent = build(time.Second)
}

// Disarm records the call.
func (e *MockEscalator) Disarm() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.disarms++
	was := e.armed
	e.armed = false
	return was
}

// Counts returns the number of Arm and Disarm calls.
func (e *MockEscalator) Counts() (arms, disarms int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arms, e.disarms
}

// Built returns the notification built by the last Arm.
func (e *MockEscalator) Built() notification.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSent
}

// RecordingObserver stores published snapshots.
type RecordingObserver struct {
	mu        sync.Mutex
	snapshots []session.Snapshot
}

// Publish implements session.Observer
func (o *RecordingObserver) Publish(s session.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshots = append(o.snapshots, s)
}

// Snapshots returns everything published so far.
func (o *RecordingObserver) Snapshots() []session.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]session.Snapshot, len(o.snapshots))
	copy(out, o.snapshots)
	return out
}

// Closed reports whether the source was closed.
func (s *MockFrameSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
