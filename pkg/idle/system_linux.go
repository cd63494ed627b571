//go:build linux

package idle

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/focus-tracker/pkg/interfaces"
)

// LinuxIdleDetector reads X11 input idle time with xprintidle.
type LinuxIdleDetector struct {
	cmdExecutor func(name string, args ...string) ([]byte, error)
	lookPath    func(file string) (string, error)
}

// NewLinuxIdleDetector creates a new Linux idle detector.
func NewLinuxIdleDetector() *LinuxIdleDetector {
	return &LinuxIdleDetector{
		cmdExecutor: defaultCmdExecutor,
		lookPath:    exec.LookPath,
	}
}

func defaultCmdExecutor(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// IsUserIdle returns true if there was no input within threshold.
func (d *LinuxIdleDetector) IsUserIdle(threshold time.Duration) (bool, error) {
	idleTime, err := d.getIdleTime()
	if err != nil {
		return false, err
	}
	return idleTime >= threshold, nil
}

// LastActivity returns the time of the last input, or the zero time if
// it cannot be determined.
func (d *LinuxIdleDetector) LastActivity() time.Time {
	idleTime, err := d.getIdleTime()
	if err != nil {
		return time.Time{}
	}
	return time.Now().Add(-idleTime)
}

func (d *LinuxIdleDetector) getIdleTime() (time.Duration, error) {
	output, err := d.cmdExecutor("xprintidle")
	if err != nil {
		return 0, fmt.Errorf("failed to execute xprintidle: %w", err)
	}
	return parseXprintidle(output)
}

// parseXprintidle parses the idle milliseconds printed by xprintidle.
func parseXprintidle(output []byte) (time.Duration, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(string(output)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse xprintidle output: %w", err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative idle time %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// IsAvailable reports whether xprintidle is installed and a display is set.
func (d *LinuxIdleDetector) IsAvailable() bool {
	if os.Getenv("DISPLAY") == "" {
		return false
	}
	_, err := d.lookPath("xprintidle")
	return err == nil
}

func newPlatformDetector() interfaces.IdleDetector {
	d := NewLinuxIdleDetector()
	if !d.IsAvailable() {
		return nil
	}
	return d
}
