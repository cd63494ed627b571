//go:build !linux && !darwin

package idle

import "github.com/Veraticus/focus-tracker/pkg/interfaces"

func newPlatformDetector() interfaces.IdleDetector {
	return nil
}
