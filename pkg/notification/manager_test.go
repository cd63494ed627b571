package notification

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/config"
)

// MockNotifier for testing
type MockNotifier struct {
	mu            sync.Mutex
	notifications []Notification
	attempts      []Notification // Track all send attempts
	sendErr       error
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{
		notifications: []Notification{},
		attempts:      []Notification{},
	}
}

func (m *MockNotifier) Send(n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Always track the attempt
	m.attempts = append(m.attempts, n)

	if m.sendErr != nil {
		return m.sendErr
	}

	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MockNotifier) GetNotifications() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Notification, len(m.notifications))
	copy(result, m.notifications)
	return result
}

func (m *MockNotifier) GetAttempts() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Notification, len(m.attempts))
	copy(result, m.attempts)
	return result
}

func (m *MockNotifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// MockRateLimiter for testing
type MockRateLimiter struct {
	mu          sync.Mutex
	allowResult bool
	callCount   int
	resetCount  int
}

func NewMockRateLimiter(allowResult bool) *MockRateLimiter {
	return &MockRateLimiter{
		allowResult: allowResult,
	}
}

func (m *MockRateLimiter) Allow() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	return m.allowResult
}

func (m *MockRateLimiter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetCount++
}

func (m *MockRateLimiter) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

func (m *MockRateLimiter) GetResetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCount
}

type recordingReporter struct {
	mu                        sync.Mutex
	sending, success, failure int
}

func (r *recordingReporter) ReportSending() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sending++
}

func (r *recordingReporter) ReportSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success++
}

func (r *recordingReporter) ReportFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure++
}


func (r *recordingReporter) counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sending, r.success, r.failure
}

func TestManager_Send(t *testing.T) {
	tests := []struct {
		name              string
		rateLimiterAllows bool
		notifierError     error
		wantErr           bool
		wantSent          int
		wantAttempts      int
		wantReports       [3]int
	}{
		{
			name:              "successful send without batching",
			rateLimiterAllows: true,
			wantSent:          1,
			wantAttempts:      1,
			wantReports:       [3]int{1, 1, 0},
		},
		{
			name:              "rate limited",
			rateLimiterAllows: false,
			wantReports:       [3]int{0, 0, 0},
		},
		{
			name:              "notifier error",
			rateLimiterAllows: true,
			notifierError:     errors.New("send failed"),
			wantErr:           true,
			wantAttempts:      1,
			wantReports:       [3]int{1, 0, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockNotifier := NewMockNotifier()
			mockNotifier.SetError(tt.notifierError)
			mockRateLimiter := NewMockRateLimiter(tt.rateLimiterAllows)
			reporter := &recordingReporter{}

			manager := NewManager(&config.Config{}, mockNotifier, mockRateLimiter)
			manager.SetReporter(reporter)
			defer func() { _ = manager.Close() }()

			err := manager.Send(FocusLost(15*time.Second, 120))
			if (err != nil) != tt.wantErr {
				t.Errorf("Send() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := len(mockNotifier.GetNotifications()); got != tt.wantSent {
				t.Errorf("sent %d, want %d", got, tt.wantSent)
			}
			if got := len(mockNotifier.GetAttempts()); got != tt.wantAttempts {
				t.Errorf("attempted %d, want %d", got, tt.wantAttempts)
			}
			if mockRateLimiter.GetCallCount() != 1 {
				t.Errorf("expected rate limiter to be consulted once, got %d", mockRateLimiter.GetCallCount())
			}
			sending, success, failure := reporter.counts()
			if [3]int{sending, success, failure} != tt.wantReports {
				t.Errorf("reports = %v, want %v", [3]int{sending, success, failure}, tt.wantReports)
			}
		})
	}
}

func TestManager_NilRateLimiter(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{}, mockNotifier, nil)
	defer func() { _ = manager.Close() }()

	for i := 0; i < 3; i++ {
		_ = manager.Send(Notification{Title: "t"})
	}
	if got := len(mockNotifier.GetNotifications()); got != 3 {
		t.Errorf("expected 3 notifications, got %d", got)
	}
}

func TestManager_SendWithBatching(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{BatchWindow: 100 * time.Millisecond}, mockNotifier, NewMockRateLimiter(true))
	defer func() { _ = manager.Close() }()

	_ = manager.Send(Notification{Title: "1", Message: "a", Priority: PriorityDefault})
	_ = manager.Send(Notification{Title: "2", Message: "b", Priority: PriorityHigh})
	_ = manager.Send(Notification{Title: "3", Message: "c"})

	time.Sleep(50 * time.Millisecond)
	if len(mockNotifier.GetNotifications()) != 0 {
		t.Error("notifications sent before batch window")
	}

	time.Sleep(100 * time.Millisecond)

	notifications := mockNotifier.GetNotifications()
	if len(notifications) != 1 {
		t.Fatalf("expected 1 batched notification, got %d", len(notifications))
	}
	batch := notifications[0]
	if batch.Title != "Multiple notifications" || batch.Kind != KindBatch {
		t.Errorf("unexpected batch %+v", batch)
	}
	if batch.Priority != PriorityHigh {
		t.Errorf("expected highest priority %d, got %d", PriorityHigh, batch.Priority)
	}
	if batch.Message != "1: a\n---\n2: b\n---\n3: c" {
		t.Errorf("unexpected batch message %q", batch.Message)
	}
}

func TestManager_BatchOfOneSentAsIs(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{BatchWindow: time.Hour}, mockNotifier, nil)

	_ = manager.Send(SessionStarted("30 minutes"))
	_ = manager.Close()

	notifications := mockNotifier.GetNotifications()
	if len(notifications) != 1 || notifications[0].Kind != KindSessionStarted {
		t.Errorf("expected the original notification, got %+v", notifications)
	}
}

func TestManager_Close(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{BatchWindow: time.Hour}, mockNotifier, NewMockRateLimiter(true))

	for i := 0; i < 3; i++ {
		_ = manager.Send(Notification{Title: string(rune('A' + i))})
	}
	_ = manager.Close()

	if got := len(mockNotifier.GetNotifications()); got != 1 {
		t.Errorf("expected pending notifications flushed as 1 batch, got %d", got)
	}

	_ = manager.Send(Notification{Title: "late"})
	_ = manager.Close()
	if got := len(mockNotifier.GetAttempts()); got != 1 {
		t.Errorf("send after close should be ignored, got %d attempts", got)
	}
}

func TestManager_ConcurrentSend(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{}, mockNotifier, NewMockRateLimiter(true))
	defer func() { _ = manager.Close() }()

	const goroutines, perGoroutine = 10, 5
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				_ = manager.Send(Notification{Title: string(rune('A' + id))})
			}
		}(i)
	}
	wg.Wait()

	if got := len(mockNotifier.GetNotifications()); got != goroutines*perGoroutine {
		t.Errorf("expected %d notifications, got %d", goroutines*perGoroutine, got)
	}
}

func TestManager_RateLimitingWithBatching(t *testing.T) {
	mockNotifier := NewMockNotifier()
	manager := NewManager(&config.Config{BatchWindow: 50 * time.Millisecond}, mockNotifier, NewTokenBucketRateLimiter(2, time.Hour))
	defer func() { _ = manager.Close() }()

	for i := 0; i < 5; i++ {
		_ = manager.Send(Notification{Title: string(rune('A' + i))})
	}
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_ = manager.Send(Notification{Title: string(rune('X' + i))})
	}
	time.Sleep(100 * time.Millisecond)

	if got := len(mockNotifier.GetNotifications()); got != 1 {
		t.Errorf("expected 1 batch notification due to rate limiting, got %d", got)
	}
}
