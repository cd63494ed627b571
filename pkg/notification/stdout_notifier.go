package notification

import (
	"fmt"
	"io"
	"os"
)

// StdoutNotifier prints notifications instead of pushing them. Used when no
// ntfy topic is configured and debug output is on.
type StdoutNotifier struct {
	w io.Writer
}

// NewStdoutNotifier creates a notifier writing to w, or stdout when w is nil.
func NewStdoutNotifier(w io.Writer) *StdoutNotifier {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutNotifier{w: w}
}

// Send prints the notification.
func (n *StdoutNotifier) Send(notification Notification) error {
	_, err := fmt.Fprintf(n.w, "[NOTIFICATION] %s: %s (%s)\n",
		notification.Title,
		notification.Message,
		notification.Kind)
	return err
}
