package notification

import (
	"sync"
	"time"
)

// Batcher groups notifications arriving within a time window.
type Batcher struct {
	window   time.Duration
	callback func([]Notification)

	mu      sync.Mutex
	pending []Notification
	timer   *time.Timer
}

// NewBatcher creates a batcher that hands each window's notifications to callback.
func NewBatcher(window time.Duration, callback func([]Notification)) *Batcher {
	return &Batcher{
		window:   window,
		callback: callback,
	}
}

// Add queues n. The first notification of a window starts its timer.
func (b *Batcher) Add(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, n)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.flush)
	}
}

// Pending returns the number of queued notifications.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush sends pending notifications immediately.
func (b *Batcher) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	b.flush()
}

func (b *Batcher) flush() {
	b.mu.Lock()
	toSend := b.pending
	b.pending = nil
	b.timer = nil
	b.mu.Unlock()

	if len(toSend) > 0 {
		b.callback(toSend)
	}
}
