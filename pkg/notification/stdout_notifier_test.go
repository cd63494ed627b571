package notification

import (
	"bytes"
	"testing"
	"time"
)

func TestStdoutNotifier_Send(t *testing.T) {
	tests := []struct {
		name         string
		notification Notification
		want         string
	}{
		{
			name: "focus lost",
			notification: Notification{
				Title:   "Focus lost",
				Message: "No eyes on the screen for 12s",
				Time:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
				Kind:    KindFocusLost,
			},
			want: "[NOTIFICATION] Focus lost: No eyes on the screen for 12s (focus_lost)\n",
		},
		{
			name:         "empty fields",
			notification: Notification{},
			want:         "[NOTIFICATION] :  ()\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewStdoutNotifier(&buf).Send(tt.notification); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}
