package alert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// ErrNoPlayer is returned when no audio player command is installed.
var ErrNoPlayer = errors.New("no audio player available")

const (
	beepFrequency = 1000
	beepDuration  = 500 * time.Millisecond

	darwinBeepSound = "/System/Library/Sounds/Ping.aiff"
	linuxBeepSound  = "/usr/share/sounds/freedesktop/stereo/bell.oga"
)

// Player produces sounds.
type Player interface {
	PlayFile(ctx context.Context, path string) error
	Beep(ctx context.Context) error
	Tones(ctx context.Context, frequencies []int, each time.Duration) error
}

// CommandRunner runs an external command to completion.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// SystemPlayer plays sounds through the platform's command line players.
type SystemPlayer struct {
	goos     string
	run      CommandRunner
	lookPath func(string) (string, error)
	bell     io.Writer
}

// NewSystemPlayer creates a player for the current platform. The terminal
// bell is written to bell when no other beep is possible.
func NewSystemPlayer(bell io.Writer) *SystemPlayer {
	return &SystemPlayer{
		goos:     runtime.GOOS,
		run:      defaultRunner,
		lookPath: exec.LookPath,
		bell:     bell,
	}
}

// defaultRunner executes a command and waits for it.
func defaultRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Run()
}

// PlayFile plays an audio file once and blocks until it finishes or ctx ends.
func (p *SystemPlayer) PlayFile(ctx context.Context, path string) error {
	switch p.goos {
	case "darwin":
		return p.run(ctx, "afplay", path)
	case "windows":
		script := fmt.Sprintf("(New-Object Media.SoundPlayer '%s').PlaySync()", strings.ReplaceAll(path, "'", "''"))
		return p.run(ctx, "powershell", "-NoProfile", "-Command", script)
	}

	for _, c := range p.fileCandidates(path) {
		if _, err := p.lookPath(c[0]); err != nil {
			continue
		}
		return p.run(ctx, c[0], c[1:]...)
	}
	return fmt.Errorf("%w for %s", ErrNoPlayer, filepath.Ext(path))
}

// fileCandidates lists Linux players able to handle the file, best first.
func (p *SystemPlayer) fileCandidates(path string) [][]string {
	ffplay := []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", path}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return [][]string{
			{"mpg123", "-q", path},
			ffplay,
		}
	}
	return [][]string{
		{"paplay", path},
		{"aplay", "-q", path},
		ffplay,
	}
}

// Beep plays the platform's short alert sound.
func (p *SystemPlayer) Beep(ctx context.Context) error {
	switch p.goos {
	case "windows":
		return p.run(ctx, "powershell", "-NoProfile", "-Command", beepScript([]int{beepFrequency}, beepDuration))
	case "darwin":
		return p.run(ctx, "afplay", darwinBeepSound)
	case "linux":
		if _, err := p.lookPath("paplay"); err == nil {
			if err := p.run(ctx, "paplay", linuxBeepSound); err == nil {
				return nil
			}
		}
	}
	return p.terminalBell()
}

// Tones plays a melody on Windows and a single beep elsewhere.
func (p *SystemPlayer) Tones(ctx context.Context, frequencies []int, each time.Duration) error {
	if p.goos == "windows" && len(frequencies) > 0 {
		return p.run(ctx, "powershell", "-NoProfile", "-Command", beepScript(frequencies, each))
	}
	return p.Beep(ctx)
}

func (p *SystemPlayer) terminalBell() error {
	w := p.bell
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprint(w, "\a")
	return err
}

// beepScript builds a PowerShell snippet of console beeps.
func beepScript(frequencies []int, each time.Duration) string {
	parts := make([]string, 0, len(frequencies))
	for _, f := range frequencies {
		parts = append(parts, fmt.Sprintf("[console]::beep(%d,%d)", f, each.Milliseconds()))
	}
	return strings.Join(parts, "; ")
}
