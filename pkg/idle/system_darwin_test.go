//go:build darwin

package idle

import (
	"errors"
	"testing"
	"time"
)

func TestParseHIDIdleTime(t *testing.T) {
	tests := []struct {
		name          string
		input         string
		expectedNanos int64
		expectError   bool
	}{
		{
			name: "valid HIDIdleTime",
			input: `    | |   |   +-o IOHIDSystem  <class IOHIDSystem, id 0x1000002d0, registered, matched, active, busy 0 (0 ms), retain 22>
    | |   |     {
    | |   |       "HIDIdleTime" = 3456789012
    | |   |       "IOClass" = "IOHIDSystem"
    | |   |     }`,
			expectedNanos: 3456789012,
		},
		{
			name:          "quoted value",
			input:         `    | |   |       "HIDIdleTime" = "1234567890"`,
			expectedNanos: 1234567890,
		},
		{
			name:        "missing",
			input:       `"IOClass" = "IOHIDSystem"`,
			expectError: true,
		},
		{
			name:        "not a number",
			input:       `"HIDIdleTime" = "soon"`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHIDIdleTime([]byte(tt.input))
			if (err != nil) != tt.expectError {
				t.Fatalf("error = %v, expectError %v", err, tt.expectError)
			}
			if got != tt.expectedNanos {
				t.Errorf("got %d, want %d", got, tt.expectedNanos)
			}
		})
	}
}

func TestDarwinIdleDetector_IsUserIdle(t *testing.T) {
	d := NewDarwinIdleDetector()
	d.cmdExecutor = func(string, ...string) ([]byte, error) {
		return []byte(`"HIDIdleTime" = 20000000000`), nil
	}

	idle, err := d.IsUserIdle(10 * time.Second)
	if err != nil || !idle {
		t.Errorf("expected idle, got %v (%v)", idle, err)
	}

	d.cmdExecutor = func(string, ...string) ([]byte, error) {
		return nil, errors.New("ioreg failed")
	}
	if _, err := d.IsUserIdle(time.Second); err == nil {
		t.Error("expected error when ioreg fails")
	}
	if !d.LastActivity().IsZero() {
		t.Error("expected zero LastActivity when ioreg fails")
	}
}
