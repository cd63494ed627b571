package notification

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/config"
	"github.com/Veraticus/focus-tracker/pkg/interfaces"
)

// Manager orchestrates notification sending with batching and rate limiting.
type Manager struct {
	config      *config.Config
	notifier    Notifier
	rateLimiter interfaces.RateLimiter
	batcher     *Batcher
	reporter    interfaces.StatusReporter
	logger      *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewManager creates a new notification manager. rateLimiter may be nil.
func NewManager(cfg *config.Config, notifier Notifier, rateLimiter interfaces.RateLimiter) *Manager {
	m := &Manager{
		config:      cfg,
		notifier:    notifier,
		rateLimiter: rateLimiter,
		logger:      slog.Default(),
	}

	if cfg.BatchWindow > 0 {
		m.batcher = NewBatcher(cfg.BatchWindow, m.sendBatch)
	}

	return m
}

// SetLogger replaces the logger used for delivery failures.
func (m *Manager) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if logger != nil {
		m.logger = logger
	}
}

// SetReporter attaches a delivery status reporter.
func (m *Manager) SetReporter(r interfaces.StatusReporter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reporter = r
}

// Send sends or batches a notification. Rate limited notifications are
// dropped silently.
func (m *Manager) Send(notification Notification) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	if m.rateLimiter != nil && !m.rateLimiter.Allow() {
		logger := m.logger
		m.mu.Unlock()
		logger.Debug("notification rate limited", "kind", notification.Kind)
		return nil
	}
	if m.batcher != nil {
		m.batcher.Add(notification)
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	return m.deliver(notification)
}

func (m *Manager) deliver(n Notification) error {
	m.mu.Lock()
	reporter, logger := m.reporter, m.logger
	m.mu.Unlock()

	if reporter != nil {
		reporter.ReportSending()
	}
	err := m.notifier.Send(n)
	if err != nil {
		logger.Warn("notification failed", "kind", n.Kind, "error", err)
		if reporter != nil {
			reporter.ReportFailure()
		}
		return err
	}
	if reporter != nil {
		reporter.ReportSuccess()
	}
	return nil
}

// sendBatch combines a batch into one notification. A batch of one is sent as is.
func (m *Manager) sendBatch(notifications []Notification) {
	switch len(notifications) {
	case 0:
		return
	case 1:
		_ = m.deliver(notifications[0])
		return
	}

	priority := PriorityDefault
	for _, n := range notifications {
		priority = max(priority, n.Priority)
	}

	_ = m.deliver(Notification{
		Title:    "Multiple notifications",
		Message:  formatBatchMessage(notifications),
		Time:     time.Now(),
		Kind:     KindBatch,
		Priority: priority,
	})
}

// Close flushes pending batches. Further sends are ignored.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	batcher := m.batcher
	m.mu.Unlock()

	if batcher != nil {
		batcher.Flush()
	}
	return nil
}

func formatBatchMessage(notifications []Notification) string {
	var b strings.Builder
	for i, n := range notifications {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		if n.Title != "" {
			b.WriteString(n.Title)
			b.WriteString(": ")
		}
		b.WriteString(n.Message)
	}
	return b.String()
}
