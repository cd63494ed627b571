package config

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "focus-tracker"

// Config holds all configuration for focus-tracker
type Config struct {
	// Session settings
	DefaultPreset string `yaml:"default_preset" env:"FOCUS_TRACKER_PRESET"`

	// Gaze detection
	GazeSensitivity      float64 `yaml:"gaze_sensitivity" env:"FOCUS_TRACKER_SENSITIVITY"`
	DistractionThreshold int     `yaml:"distraction_threshold" env:"FOCUS_TRACKER_THRESHOLD"`
	CascadeDir           string  `yaml:"cascade_dir" env:"FOCUS_TRACKER_CASCADE_DIR"`

	// Capture
	Camera CameraConfig `yaml:"camera"`

	// Alerts
	SoundFile     string        `yaml:"sound_file" env:"FOCUS_TRACKER_SOUND_FILE"`
	AlertCooldown time.Duration `yaml:"alert_cooldown" env:"FOCUS_TRACKER_ALERT_COOLDOWN"`
	Mute          bool          `yaml:"mute" env:"FOCUS_TRACKER_MUTE"`

	// Push notification settings
	NtfyTopic   string        `yaml:"ntfy_topic" env:"FOCUS_TRACKER_TOPIC"`
	NtfyServer  string        `yaml:"ntfy_server" env:"FOCUS_TRACKER_SERVER"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"FOCUS_TRACKER_IDLE_TIMEOUT"`
	Quiet       bool          `yaml:"quiet" env:"FOCUS_TRACKER_QUIET"`

	// InputIdle lets recent keyboard or mouse input count as presence
	// before a focus-lost push is sent.
	InputIdle bool `yaml:"input_idle" env:"FOCUS_TRACKER_INPUT_IDLE"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Batching
	BatchWindow time.Duration `yaml:"batch_window"`

	// Outputs
	Preview    bool   `yaml:"preview" env:"FOCUS_TRACKER_PREVIEW"`
	StatusAddr string `yaml:"status_addr" env:"FOCUS_TRACKER_STATUS_ADDR"`
	Debug      bool   `yaml:"debug" env:"FOCUS_TRACKER_DEBUG"`

	Colors Colors `yaml:"colors"`
}

// CameraConfig holds webcam capture settings.
type CameraConfig struct {
	Index     int `yaml:"index" env:"FOCUS_TRACKER_CAMERA"`
	Width     int `yaml:"width" env:"FOCUS_TRACKER_WIDTH"`
	Height    int `yaml:"height" env:"FOCUS_TRACKER_HEIGHT"`
	TargetFPS int `yaml:"target_fps" env:"FOCUS_TRACKER_FPS"`
	FrameSkip int `yaml:"frame_skip" env:"FOCUS_TRACKER_FRAME_SKIP"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxMessages int           `yaml:"max_messages"`
}

// Colors holds overlay colours as #rrggbb strings.
type Colors struct {
	Face  string `yaml:"face"`
	Eye   string `yaml:"eye"`
	Text  string `yaml:"text"`
	Alert string `yaml:"alert"`
	Pupil string `yaml:"pupil"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultPreset:        "10 minutes",
		GazeSensitivity:      0.25,
		DistractionThreshold: 100,
		Camera: CameraConfig{
			Index:     0,
			Width:     640,
			Height:    480,
			TargetFPS: 30,
			FrameSkip: 2,
		},
		SoundFile:     defaultSoundFile(),
		AlertCooldown: 2 * time.Second,
		NtfyServer:    "https://ntfy.sh",
		IdleTimeout:   10 * time.Second,
		InputIdle:     true,
		RateLimit: RateLimitConfig{
			Window:      1 * time.Minute,
			MaxMessages: 5,
		},
		Colors: Colors{
			Face:  "#e5989b",
			Eye:   "#b5838d",
			Text:  "#e5989b",
			Alert: "#b5838d",
			Pupil: "#6d6875",
		},
	}
}

// PushEnabled reports whether push notifications should be sent.
func (c *Config) PushEnabled() bool {
	return !c.Quiet && c.NtfyTopic != ""
}

// FrameInterval is the pause between frame reads.
func (c *Config) FrameInterval() time.Duration {
	if c.Camera.TargetFPS <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Camera.TargetFPS)
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	configPath := getConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// A .env file only fills variables that are not already set
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	// Override with environment variables
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Dir returns the configuration directory
func Dir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", appName)
	}
	return ""
}

func defaultSoundFile() string {
	dir := Dir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "alarm.mp3")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	// Check for explicit config path
	if path := os.Getenv("FOCUS_TRACKER_CONFIG"); path != "" {
		return path
	}

	if dir := Dir(); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	return ""
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(cfg *Config, path string) error {
	// #nosec G304 - The config file path comes from trusted sources (env var or standard locations)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// loadDotEnv loads FOCUS_TRACKER_ENV_FILE or ./.env when present
func loadDotEnv() error {
	path := os.Getenv("FOCUS_TRACKER_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(cfg *Config) error {
	if preset := os.Getenv("FOCUS_TRACKER_PRESET"); preset != "" {
		cfg.DefaultPreset = preset
	}

	if err := envFloat("FOCUS_TRACKER_SENSITIVITY", &cfg.GazeSensitivity); err != nil {
		return err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"FOCUS_TRACKER_THRESHOLD", &cfg.DistractionThreshold},
		{"FOCUS_TRACKER_CAMERA", &cfg.Camera.Index},
		{"FOCUS_TRACKER_WIDTH", &cfg.Camera.Width},
		{"FOCUS_TRACKER_HEIGHT", &cfg.Camera.Height},
		{"FOCUS_TRACKER_FPS", &cfg.Camera.TargetFPS},
		{"FOCUS_TRACKER_FRAME_SKIP", &cfg.Camera.FrameSkip},
	}
	for _, i := range ints {
		if err := envInt(i.key, i.dst); err != nil {
			return err
		}
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"FOCUS_TRACKER_CASCADE_DIR", &cfg.CascadeDir},
		{"FOCUS_TRACKER_SOUND_FILE", &cfg.SoundFile},
		{"FOCUS_TRACKER_TOPIC", &cfg.NtfyTopic},
		{"FOCUS_TRACKER_SERVER", &cfg.NtfyServer},
		{"FOCUS_TRACKER_STATUS_ADDR", &cfg.StatusAddr},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"FOCUS_TRACKER_ALERT_COOLDOWN", &cfg.AlertCooldown},
		{"FOCUS_TRACKER_IDLE_TIMEOUT", &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if v := os.Getenv(d.key); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", d.key, err)
			}
			*d.dst = parsed
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"FOCUS_TRACKER_QUIET", &cfg.Quiet},
		{"FOCUS_TRACKER_MUTE", &cfg.Mute},
		{"FOCUS_TRACKER_PREVIEW", &cfg.Preview},
		{"FOCUS_TRACKER_DEBUG", &cfg.Debug},
		{"FOCUS_TRACKER_INPUT_IDLE", &cfg.InputIdle},
	}
	for _, b := range bools {
		if err := envBool(b.key, b.dst); err != nil {
			return err
		}
	}

	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	switch v {
	case "":
	case "true", "1", "yes":
		*dst = true
	case "false", "0", "no":
		*dst = false
	default:
		return fmt.Errorf("invalid %s value: %q (use true/false)", key, v)
	}
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = f
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.GazeSensitivity < 0 || c.GazeSensitivity > 1 {
		return fmt.Errorf("gaze_sensitivity must be between 0 and 1")
	}

	if c.DistractionThreshold <= 0 {
		return fmt.Errorf("distraction_threshold must be positive")
	}

	if c.Camera.TargetFPS <= 0 || c.Camera.TargetFPS > 120 {
		return fmt.Errorf("camera.target_fps must be between 1 and 120")
	}

	if c.Camera.FrameSkip < 1 {
		return fmt.Errorf("camera.frame_skip must be at least 1")
	}

	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera resolution must be positive")
	}

	if c.Camera.Index < 0 {
		return fmt.Errorf("camera.index must be non-negative")
	}

	if c.AlertCooldown < 0 {
		return fmt.Errorf("alert_cooldown must be non-negative")
	}

	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout must be non-negative")
	}

	if c.RateLimit.MaxMessages < 0 {
		return fmt.Errorf("rate_limit.max_messages must be non-negative")
	}

	if c.RateLimit.Window < 0 {
		return fmt.Errorf("rate_limit.window must be non-negative")
	}

	if c.BatchWindow < 0 {
		return fmt.Errorf("batch_window must be non-negative")
	}

	for name, hex := range map[string]string{
		"face": c.Colors.Face, "eye": c.Colors.Eye, "text": c.Colors.Text,
		"alert": c.Colors.Alert, "pupil": c.Colors.Pupil,
	} {
		if _, err := ParseColor(hex); err != nil {
			return fmt.Errorf("colors.%s: %w", name, err)
		}
	}

	return nil
}

// ParseColor parses a #rrggbb string.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q (use #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
