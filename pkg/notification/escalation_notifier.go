package notification

import (
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/interfaces"
)

// EscalationNotifier holds back an armed notification until the user has
// stayed away for the full timeout. Disarming before then cancels it. At
// most one notification is sent per arming.
type EscalationNotifier struct {
	underlying Notifier
	timeout    time.Duration
	idle       interfaces.IdleDetector
	build      func(away time.Duration) Notification

	mu    sync.Mutex
	timer *time.Timer
	armed bool
	sent  bool
	gen   uint64
}

// NewEscalationNotifier creates an escalation notifier. idle may be nil, in
// which case the timeout alone decides.
func NewEscalationNotifier(underlying Notifier, timeout time.Duration, idle interfaces.IdleDetector) *EscalationNotifier {
	return &EscalationNotifier{
		underlying: underlying,
		timeout:    timeout,
		idle:       idle,
	}
}

// Send forwards directly to the underlying notifier.
func (en *EscalationNotifier) Send(n Notification) error {
	return en.underlying.Send(n)
}

// Arm schedules the notification built by build. Arming while already armed
// is a no-op.
func (en *EscalationNotifier) Arm(build func(away time.Duration) Notification) {
	en.mu.Lock()
	defer en.mu.Unlock()

	if en.armed {
		return
	}
	en.armed = true
	en.sent = false
	en.build = build
	en.gen++
	gen := en.gen
	en.timer = time.AfterFunc(en.timeout, func() { en.fire(gen) })
}

// Disarm cancels a pending notification and reports whether one was armed.
func (en *EscalationNotifier) Disarm() bool {
	en.mu.Lock()
	defer en.mu.Unlock()

	if !en.armed {
		return false
	}
	en.armed = false
	en.gen++
	if en.timer != nil {
		en.timer.Stop()
		en.timer = nil
	}
	return true
}

// Armed reports whether a notification is pending.
func (en *EscalationNotifier) Armed() bool {
	en.mu.Lock()
	defer en.mu.Unlock()
	return en.armed && !en.sent
}

func (en *EscalationNotifier) fire(gen uint64) {
	en.mu.Lock()
	if !en.armed || en.sent || gen != en.gen {
		en.mu.Unlock()
		return
	}

	away := en.timeout
	if en.idle != nil {
		idle, err := en.idle.IsUserIdle(en.timeout)
		if err != nil || !idle {
			// Seen again but not yet disarmed; wait for the remainder.
			wait := en.timeout - time.Since(en.idle.LastActivity())
			if err != nil || wait <= 0 {
				wait = en.timeout
			}
			en.timer = time.AfterFunc(wait, func() { en.fire(gen) })
			en.mu.Unlock()
			return
		}
		away = time.Since(en.idle.LastActivity())
	}

	en.sent = true
	build := en.build
	en.mu.Unlock()

	_ = en.underlying.Send(build(away))
}

// Close stops any pending timer.
func (en *EscalationNotifier) Close() error {
	en.Disarm()
	return nil
}
