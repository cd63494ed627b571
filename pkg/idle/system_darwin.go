//go:build darwin

package idle

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/interfaces"
)

// DarwinIdleDetector reads keyboard and mouse idle time from ioreg.
type DarwinIdleDetector struct {
	cmdExecutor func(name string, args ...string) ([]byte, error)
}

// NewDarwinIdleDetector creates a new Darwin (macOS) idle detector.
func NewDarwinIdleDetector() *DarwinIdleDetector {
	return &DarwinIdleDetector{
		cmdExecutor: defaultCmdExecutor,
	}
}

func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// IsUserIdle returns true if there was no input within threshold.
func (d *DarwinIdleDetector) IsUserIdle(threshold time.Duration) (bool, error) {
	idleTime, err := d.getSystemIdleTime()
	if err != nil {
		return false, err
	}
	return idleTime >= threshold, nil
}

// LastActivity returns the time of the last input, or the zero time if
// it cannot be determined.
func (d *DarwinIdleDetector) LastActivity() time.Time {
	idleTime, err := d.getSystemIdleTime()
	if err != nil {
		return time.Time{}
	}
	return time.Now().Add(-idleTime)
}

func (d *DarwinIdleDetector) getSystemIdleTime() (time.Duration, error) {
	output, err := d.cmdExecutor("ioreg", "-c", "IOHIDSystem", "-d", "4")
	if err != nil {
		return 0, fmt.Errorf("failed to execute ioreg: %w", err)
	}

	idleNanos, err := parseHIDIdleTime(output)
	if err != nil {
		return 0, fmt.Errorf("failed to parse HIDIdleTime: %w", err)
	}
	return time.Duration(idleNanos), nil
}

// parseHIDIdleTime extracts nanoseconds from a line like
// `"HIDIdleTime" = 123456789`.
func parseHIDIdleTime(output []byte) (int64, error) {
	for _, line := range bytes.Split(output, []byte("\n")) {
		lineStr := string(bytes.TrimSpace(line))
		if !strings.Contains(lineStr, "HIDIdleTime") {
			continue
		}
		parts := strings.Split(lineStr, "=")
		if len(parts) != 2 {
			continue
		}
		valueStr := strings.TrimSpace(strings.Trim(strings.TrimSpace(parts[1]), "\""))
		value, err := strconv.ParseInt(valueStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("failed to parse idle time value: %w", err)
		}
		return value, nil
	}
	return 0, errors.New("HIDIdleTime not found in ioreg output")
}

// IsAvailable checks if ioreg is installed.
func (d *DarwinIdleDetector) IsAvailable() bool {
	_, err := exec.LookPath("ioreg")
	return err == nil
}

func newPlatformDetector() interfaces.IdleDetector {
	d := NewDarwinIdleDetector()
	if !d.IsAvailable() {
		return nil
	}
	return d
}
