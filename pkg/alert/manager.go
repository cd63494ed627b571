// Package alert manages the audible and visual distraction alert.
package alert

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

const (
	// DefaultCooldown is the pause between repetitions of the alert sound.
	DefaultCooldown = 2 * time.Second
	// MinCooldown is the smallest accepted cooldown.
	MinCooldown = 500 * time.Millisecond

	toneLength = 150 * time.Millisecond
)

var (
	startTones    = []int{500, 700, 900}
	endTones      = []int{900, 700, 500}
	completeTones = []int{523, 659, 784, 1047}
)

// Manager owns the warning flag and the alert sound loop.
type Manager struct {
	player    Player
	soundFile string
	logger    *slog.Logger

	mu          sync.Mutex
	cooldown    time.Duration
	showWarning bool
	playing     bool
	cancel      context.CancelFunc
	lastAlert   time.Time
	wg          sync.WaitGroup
}

// NewManager creates an alert manager. A missing sound file is not an error;
// the system beep is used instead.
func NewManager(player Player, soundFile string, cooldown time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		player:    player,
		soundFile: soundFile,
		logger:    logger,
		cooldown:  max(cooldown, MinCooldown),
	}

	if soundFile != "" {
		if _, err := os.Stat(soundFile); err != nil {
			logger.Warn("alert sound file not found, using system beep", "path", soundFile)
		} else {
			logger.Debug("alert sound loaded", "path", soundFile)
		}
	}
	return m
}

// SoundFile returns the configured alert sound path.
func (m *Manager) SoundFile() string {
	return m.soundFile
}

// Trigger shows the warning and starts the sound loop if it is not already
// running. Repeated calls have no further effect.
func (m *Manager) Trigger() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.showWarning = true
	if m.playing {
		return
	}
	m.playing = true
	m.lastAlert = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop hides the warning and silences the sound loop. It reports whether an
// alert was active.
func (m *Manager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	wasActive := m.showWarning || m.playing
	m.showWarning = false
	m.stopSoundLocked()
	return wasActive
}

func (m *Manager) stopSoundLocked() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.playing = false
}

// ShouldShowWarning reports whether the visual warning is up.
func (m *Manager) ShouldShowWarning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.showWarning
}

// SetWarningState sets the visual warning without touching the sound.
func (m *Manager) SetWarningState(state bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showWarning = state
}

// IsPlaying reports whether the sound loop is running.
func (m *Manager) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

// LastAlert returns when the current or most recent alert started.
func (m *Manager) LastAlert() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAlert
}

// Reset returns the manager to its initial state.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.showWarning = false
	m.lastAlert = time.Time{}
	m.stopSoundLocked()
}

// SetCooldown changes the pause between sound repetitions.
func (m *Manager) SetCooldown(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldown = max(d, MinCooldown)
}

// Cooldown returns the pause between sound repetitions.
func (m *Manager) Cooldown() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cooldown
}

// Close stops any alert and waits for the sound loop to exit.
func (m *Manager) Close() error {
	m.Stop()
	m.wg.Wait()
	return nil
}

// loop repeats the alert sound until ctx is cancelled.
func (m *Manager) loop(ctx context.Context) {
	defer m.wg.Done()

	for {
		m.playOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.Cooldown()):
		}
	}
}

func (m *Manager) playOnce(ctx context.Context) {
	if m.soundFile != "" {
		if _, err := os.Stat(m.soundFile); err == nil {
			err := m.player.PlayFile(ctx, m.soundFile)
			if err == nil || ctx.Err() != nil {
				return
			}
			m.logger.Warn("alert sound failed, falling back to beep", "error", err)
		}
	}
	if err := m.player.Beep(ctx); err != nil && ctx.Err() == nil {
		m.logger.Warn("system beep failed", "error", err)
	}
}

// PlayStart plays the rising session start tones.
func (m *Manager) PlayStart(ctx context.Context) {
	m.tones(ctx, startTones)
}

// PlayEnd plays the falling session stop tones.
func (m *Manager) PlayEnd(ctx context.Context) {
	m.tones(ctx, endTones)
}

// PlayComplete plays the session completion melody.
func (m *Manager) PlayComplete(ctx context.Context) {
	m.tones(ctx, completeTones)
}

func (m *Manager) tones(ctx context.Context, freqs []int) {
	if err := m.player.Tones(ctx, freqs, toneLength); err != nil {
		m.logger.Warn("tone playback failed", "error", err)
	}
}
