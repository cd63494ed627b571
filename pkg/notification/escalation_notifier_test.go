package notification

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeIdle struct {
	mu   sync.Mutex
	last time.Time
	err  error
}

func (f *fakeIdle) IsUserIdle(threshold time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return time.Since(f.last) >= threshold, nil
}

func (f *fakeIdle) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeIdle) seen() {
	f.mu.Lock()
	f.last = time.Now()
	f.mu.Unlock()
}

func focusLostAfter(away time.Duration) Notification {
	return FocusLost(away, 10)
}

func TestEscalationNotifier_SendsAfterTimeout(t *testing.T) {
	mock := NewMockNotifier()
	en := NewEscalationNotifier(mock, 40*time.Millisecond, nil)
	defer func() { _ = en.Close() }()

	en.Arm(focusLostAfter)
	en.Arm(focusLostAfter)
	if !en.Armed() {
		t.Fatal("expected notifier to be armed")
	}

	time.Sleep(20 * time.Millisecond)
	if len(mock.GetNotifications()) != 0 {
		t.Fatal("sent before timeout")
	}

	time.Sleep(60 * time.Millisecond)
	notifications := mock.GetNotifications()
	if len(notifications) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(notifications))
	}
	if notifications[0].Kind != KindFocusLost {
		t.Errorf("unexpected kind %s", notifications[0].Kind)
	}
	if en.Armed() {
		t.Error("should not report armed after sending")
	}
}

func TestEscalationNotifier_DisarmCancels(t *testing.T) {
	mock := NewMockNotifier()
	en := NewEscalationNotifier(mock, 30*time.Millisecond, nil)
	defer func() { _ = en.Close() }()

	en.Arm(focusLostAfter)
	time.Sleep(10 * time.Millisecond)
	if !en.Disarm() {
		t.Error("Disarm should report an armed notification")
	}
	if en.Disarm() {
		t.Error("second Disarm should report nothing armed")
	}

	time.Sleep(60 * time.Millisecond)
	if len(mock.GetNotifications()) != 0 {
		t.Error("disarmed notification was sent")
	}
}

func TestEscalationNotifier_RearmAfterSend(t *testing.T) {
	mock := NewMockNotifier()
	en := NewEscalationNotifier(mock, 20*time.Millisecond, nil)
	defer func() { _ = en.Close() }()

	en.Arm(focusLostAfter)
	time.Sleep(50 * time.Millisecond)
	en.Disarm()
	en.Arm(focusLostAfter)
	time.Sleep(50 * time.Millisecond)

	if got := len(mock.GetNotifications()); got != 2 {
		t.Errorf("expected 2 notifications, got %d", got)
	}
}

func TestEscalationNotifier_WaitsForIdle(t *testing.T) {
	mock := NewMockNotifier()
	idle := &fakeIdle{}
	idle.seen()
	en := NewEscalationNotifier(mock, 60*time.Millisecond, idle)
	defer func() { _ = en.Close() }()

	en.Arm(focusLostAfter)
	time.Sleep(30 * time.Millisecond)
	// Seen again halfway, so the first expiry must not send.
	idle.seen()

	time.Sleep(45 * time.Millisecond)
	if len(mock.GetNotifications()) != 0 {
		t.Fatal("sent while the user was recently seen")
	}

	time.Sleep(80 * time.Millisecond)
	notifications := mock.GetNotifications()
	if len(notifications) != 1 {
		t.Fatalf("expected 1 notification once idle, got %d", len(notifications))
	}
}

func TestEscalationNotifier_IdleErrorRetries(t *testing.T) {
	mock := NewMockNotifier()
	idle := &fakeIdle{err: errors.New("unavailable")}
	en := NewEscalationNotifier(mock, 20*time.Millisecond, idle)
	defer func() { _ = en.Close() }()

	en.Arm(focusLostAfter)
	time.Sleep(50 * time.Millisecond)
	if len(mock.GetNotifications()) != 0 {
		t.Error("should not send while idle state is unknown")
	}
}

func TestEscalationNotifier_SendPassesThrough(t *testing.T) {
	mock := NewMockNotifier()
	en := NewEscalationNotifier(mock, time.Hour, nil)
	defer func() { _ = en.Close() }()

	if err := en.Send(SessionStarted("10 minutes")); err != nil {
		t.Fatal(err)
	}
	if len(mock.GetNotifications()) != 1 {
		t.Error("Send should forward immediately")
	}
}
