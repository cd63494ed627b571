package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/focus"
	"github.com/Veraticus/focus-tracker/pkg/notification"
	"github.com/Veraticus/focus-tracker/pkg/session"
	"github.com/Veraticus/focus-tracker/pkg/testutil"
)

type countingRecorder struct {
	mu    sync.Mutex
	count int
}

func (r *countingRecorder) UpdateActivity() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
}

func (r *countingRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

type fixedClock struct {
	remaining int
	state     session.State
}

func (c fixedClock) Remaining() int       { return c.remaining }
func (c fixedClock) State() session.State { return c.state }

func runToEnd(t *testing.T, m *FrameMonitor) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Run(ctx)
}

func TestFrameMonitor_FrameSkip(t *testing.T) {
	src := testutil.NewMockFrameSource(6)
	analyzer := testutil.NewMockAnalyzer(true)
	m := NewFrameMonitor(src, analyzer, focus.NewTracker(10), nil, nil, Options{
		FrameSkip:       2,
		MaxReadFailures: 1,
	})

	err := runToEnd(t, m)
	if !errors.Is(err, testutil.ErrSourceExhausted) {
		t.Fatalf("expected exhausted source error, got %v", err)
	}

	stats := m.Stats()
	if stats.Read != 6 || stats.Processed != 3 {
		t.Errorf("expected 6 read and 3 processed, got %+v", stats)
	}

	got := analyzer.Analyzed()
	want := []int{2, 4, 6}
	if len(got) != len(want) {
		t.Fatalf("expected analyzed frames %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("analyzed[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	for _, f := range src.Frames() {
		if !f.Closed() {
			t.Errorf("frame %d was not closed", f.ID)
		}
	}
	for _, f := range analyzer.Outputs() {
		if !f.Closed() {
			t.Errorf("annotated frame %d was not closed", f.ID)
		}
	}
}

func TestFrameMonitor_AlertLifecycle(t *testing.T) {
	src := testutil.NewMockFrameSource(4)
	analyzer := testutil.NewMockAnalyzer(false, false, false, true)
	alerter := &testutil.MockAlerter{}
	escalator := &testutil.MockEscalator{}
	recorder := &countingRecorder{}

	m := NewFrameMonitor(src, analyzer, focus.NewTracker(2), alerter, nil, Options{MaxReadFailures: 1})
	m.SetEscalator(escalator)
	m.SetActivityRecorder(recorder)

	_ = runToEnd(t, m)

	if triggers, stops := alerter.Counts(); triggers != 1 || stops != 1 {
		t.Errorf("expected 1 trigger and 1 stop, got %d and %d", triggers, stops)
	}
	if arms, disarms := escalator.Counts(); arms != 1 || disarms != 1 {
		t.Errorf("expected 1 arm and 1 disarm, got %d and %d", arms, disarms)
	}
	if n := escalator.Built(); n.Kind != notification.KindFocusLost {
		t.Errorf("expected focus lost notification, got %+v", n)
	}
	if m.Stats().Alerts != 1 {
		t.Errorf("expected 1 alert, got %d", m.Stats().Alerts)
	}
	if recorder.Count() != 1 {
		t.Errorf("expected 1 activity update, got %d", recorder.Count())
	}
	if !m.Last().Looking {
		t.Error("last estimate should be looking")
	}
}

func TestFrameMonitor_ReadFailures(t *testing.T) {
	src := testutil.NewMockFrameSource(2, 2, 3)
	m := NewFrameMonitor(src, testutil.NewMockAnalyzer(), focus.NewTracker(10), nil, nil, Options{
		MaxReadFailures: 3,
		RetryDelay:      time.Millisecond,
	})

	err := runToEnd(t, m)
	if !errors.Is(err, testutil.ErrSourceExhausted) {
		t.Fatalf("expected exhausted source error, got %v", err)
	}

	stats := m.Stats()
	if stats.Read != 2 {
		t.Errorf("expected reading to recover after two failures, got %d frames", stats.Read)
	}
	if stats.ReadFailures != 5 {
		t.Errorf("expected 5 read failures, got %d", stats.ReadFailures)
	}
}

func TestFrameMonitor_AnalyzeErrorKeepsPreviousFrame(t *testing.T) {
	src := testutil.NewMockFrameSource(3)
	analyzer := testutil.NewMockAnalyzer(true)
	analyzer.FailFrame(2)
	sink := testutil.NewMockSink(0)

	m := NewFrameMonitor(src, analyzer, focus.NewTracker(10), nil, nil, Options{MaxReadFailures: 1})
	m.SetSink(sink)
	_ = runToEnd(t, m)

	stats := m.Stats()
	if stats.Failed != 1 || stats.Processed != 2 {
		t.Errorf("expected 1 failed and 2 processed, got %+v", stats)
	}

	shown := sink.Shown()
	if len(shown) != 3 {
		t.Fatalf("expected 3 shown frames, got %d", len(shown))
	}
	if shown[0] != shown[1] {
		t.Error("failed frame should show the previous annotated frame")
	}
	if shown[1] == shown[2] {
		t.Error("next processed frame should replace the display")
	}
}

func TestFrameMonitor_SkippedFrameShownRawBeforeFirstResult(t *testing.T) {
	src := testutil.NewMockFrameSource(2)
	sink := testutil.NewMockSink(0)

	m := NewFrameMonitor(src, testutil.NewMockAnalyzer(), focus.NewTracker(10), nil, nil, Options{
		FrameSkip:       2,
		MaxReadFailures: 1,
	})
	m.SetSink(sink)
	_ = runToEnd(t, m)

	shown := sink.Shown()
	if len(shown) != 2 {
		t.Fatalf("expected 2 shown frames, got %d", len(shown))
	}
	if f, ok := shown[0].(*testutil.MockFrame); !ok || f.ID != 1 {
		t.Errorf("expected raw frame 1 first, got %#v", shown[0])
	}
}

func TestFrameMonitor_PreviewClosed(t *testing.T) {
	m := NewFrameMonitor(testutil.NewMockFrameSource(0), testutil.NewMockAnalyzer(), focus.NewTracker(10), nil, nil, Options{})
	m.SetSink(testutil.NewMockSink(2))

	if err := runToEnd(t, m); !errors.Is(err, ErrPreviewClosed) {
		t.Errorf("expected ErrPreviewClosed, got %v", err)
	}
	if m.Stats().Read != 2 {
		t.Errorf("expected 2 frames read, got %d", m.Stats().Read)
	}
}

func TestFrameMonitor_Cancel(t *testing.T) {
	m := NewFrameMonitor(testutil.NewMockFrameSource(0), testutil.NewMockAnalyzer(), focus.NewTracker(10), nil, nil, Options{
		FrameInterval: time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := m.Run(ctx); err != nil {
		t.Errorf("expected nil on cancellation, got %v", err)
	}
	if m.Stats().Read == 0 {
		t.Error("expected some frames to be read")
	}
}

func TestFrameMonitor_Snapshots(t *testing.T) {
	observer := &testutil.RecordingObserver{}
	m := NewFrameMonitor(testutil.NewMockFrameSource(3), testutil.NewMockAnalyzer(false), focus.NewTracker(5), nil, nil, Options{
		MaxReadFailures: 1,
		SessionID:       "abc",
		Label:           "10 minutes",
	})
	m.SetClock(fixedClock{remaining: 90, state: session.StateRunning})
	m.AddObserver(observer)

	_ = runToEnd(t, m)

	snaps := observer.Snapshots()
	if len(snaps) != 3 {
		t.Fatalf("expected a snapshot per processed frame, got %d", len(snaps))
	}
	last := snaps[2]
	if last.SessionID != "abc" || last.Label != "10 minutes" {
		t.Errorf("unexpected identity %+v", last)
	}
	if last.RemainingText != "0:01:30" || last.State != session.StateRunning {
		t.Errorf("unexpected clock state %+v", last)
	}
	if last.DistractionCount != 3 || last.Threshold != 5 || last.Looking {
		t.Errorf("unexpected focus state %+v", last)
	}
	if last.AlertActive {
		t.Error("alert should not be active below the threshold")
	}
}

func TestFrameMonitor_SnapshotWithoutClock(t *testing.T) {
	m := NewFrameMonitor(testutil.NewMockFrameSource(1), testutil.NewMockAnalyzer(), focus.NewTracker(3), nil, nil, Options{})

	s := m.Snapshot()
	if s.State != session.StateRunning || s.RemainingText != "0:00:00" {
		t.Errorf("unexpected snapshot %+v", s)
	}
	if !s.Looking || !s.FaceDetected || s.Direction != "center" {
		t.Errorf("initial estimate should be centered and looking, got %+v", s)
	}
}
