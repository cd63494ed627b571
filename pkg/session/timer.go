package session

import (
	"context"
	"sync"
	"time"
)

// State is the lifecycle state of a timer.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateStopped   State = "stopped"
)

// Timer counts a session down one second at a time.
type Timer struct {
	mu        sync.Mutex
	total     int
	remaining int
	interval  time.Duration
	state     State
	cancel    context.CancelFunc
}

// NewTimer creates a timer for d, truncated to whole seconds.
func NewTimer(d time.Duration) *Timer {
	secs := int(d / time.Second)
	return &Timer{
		total:     secs,
		remaining: secs,
		interval:  time.Second,
		state:     StateIdle,
	}
}

// SetInterval changes the length of one tick. Intended for tests.
func (t *Timer) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if d > 0 {
		t.interval = d
	}
}

// Run counts down until zero, ctx is cancelled or Stop is called. tick is
// called with the remaining seconds before each wait. Run returns nil when
// the countdown completes and ErrStopped otherwise.
func (t *Timer) Run(ctx context.Context, tick func(remaining int)) error {
	t.mu.Lock()
	if t.state == StateStopped {
		t.mu.Unlock()
		return ErrStopped
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	t.cancel = cancel
	t.state = StateRunning
	interval := t.interval
	t.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		remaining := t.Remaining()
		if remaining <= 0 {
			break
		}
		if tick != nil {
			tick(remaining)
		}

		select {
		case <-ctx.Done():
			t.finish(StateStopped)
			return ErrStopped
		case <-ticker.C:
		}

		t.mu.Lock()
		t.remaining--
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateRunning {
		return ErrStopped
	}
	t.state = StateCompleted
	return nil
}

func (t *Timer) finish(s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateRunning || t.state == StateIdle {
		t.state = s
	}
}

// Stop ends the countdown early.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateCompleted {
		return
	}
	t.state = StateStopped
	if t.cancel != nil {
		t.cancel()
	}
}

// Remaining returns the remaining whole seconds.
func (t *Timer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// Total returns the session length in seconds.
func (t *Timer) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}
