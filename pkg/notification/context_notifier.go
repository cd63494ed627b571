package notification

import "strings"

// AppName prefixes every notification title.
const AppName = "Focus Tracker"

// ContextNotifier prefixes titles with the application name and the
// label of the running session.
type ContextNotifier struct {
	underlying Notifier
	label      func() string
}

// NewContextNotifier wraps underlying. label may be nil.
func NewContextNotifier(underlying Notifier, label func() string) *ContextNotifier {
	return &ContextNotifier{
		underlying: underlying,
		label:      label,
	}
}

// Send implements the Notifier interface.
func (cn *ContextNotifier) Send(notification Notification) error {
	prefix := AppName
	if cn.label != nil {
		if l := strings.TrimSpace(cn.label()); l != "" {
			prefix += " (" + l + ")"
		}
	}

	if notification.Title == "" {
		notification.Title = prefix
	} else {
		notification.Title = prefix + ": " + notification.Title
	}

	return cn.underlying.Send(notification)
}
