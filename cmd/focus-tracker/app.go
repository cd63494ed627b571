package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/focus-tracker/pkg/alert"
	"github.com/Veraticus/focus-tracker/pkg/config"
	"github.com/Veraticus/focus-tracker/pkg/focus"
	"github.com/Veraticus/focus-tracker/pkg/gaze"
	"github.com/Veraticus/focus-tracker/pkg/idle"
	"github.com/Veraticus/focus-tracker/pkg/interfaces"
	"github.com/Veraticus/focus-tracker/pkg/monitor"
	"github.com/Veraticus/focus-tracker/pkg/notification"
	"github.com/Veraticus/focus-tracker/pkg/session"
	"github.com/Veraticus/focus-tracker/pkg/status"
	"github.com/Veraticus/focus-tracker/pkg/stream"
	"github.com/Veraticus/focus-tracker/pkg/vision"
)

// maxReadFailures ends a session when the webcam stops delivering frames.
const maxReadFailures = 150

// SessionOptions describe one focus session.
type SessionOptions struct {
	Label    string
	Duration time.Duration
}

// Dependencies holds all the dependencies for a session
type Dependencies struct {
	Config    *config.Config
	Logger    *slog.Logger
	SessionID string
	Label     string

	Source   interfaces.FrameSource
	Analyzer interfaces.FrameAnalyzer
	Preview  interfaces.FrameSink

	Tracker  *focus.Tracker
	Alerts   *alert.Manager
	Timer    *session.Timer
	Activity *idle.Detector

	NotificationManager *notification.Manager
	Escalation          *notification.EscalationNotifier

	StatusIndicator *status.Indicator
	Hub             *stream.Hub
	Monitor         *monitor.FrameMonitor

	closers []func() error
}

// NewDependencies opens the webcam and the cascades and wires every
// component of a session.
func NewDependencies(cfg *config.Config, opts SessionOptions, logger *slog.Logger) (*Dependencies, error) {
	dir, err := vision.FindCascadeDir(append([]string{cfg.CascadeDir}, vision.DefaultCascadeDirs...)...)
	if err != nil {
		return nil, err
	}
	detector, err := vision.NewDetector(dir, gaze.NewEstimator(cfg.GazeSensitivity), paletteFromConfig(cfg.Colors, logger))
	if err != nil {
		return nil, err
	}

	camera, err := vision.OpenCamera(cfg.Camera.Index, cfg.Camera.Width, cfg.Camera.Height)
	if err != nil {
		_ = detector.Close()
		return nil, err
	}
	logger.Debug("webcam opened", "device", camera.Device(), "cascades", dir)

	var preview interfaces.FrameSink
	if cfg.Preview {
		preview = vision.NewPreview(notification.AppName)
	}

	deps := newDependencies(cfg, opts, logger, &vision.CameraSource{Camera: camera}, detector, preview)
	deps.closers = append(deps.closers, detector.Close)
	return deps, nil
}

// newDependencies wires a session around the given frame pipeline.
func newDependencies(cfg *config.Config, opts SessionOptions, logger *slog.Logger, source interfaces.FrameSource, analyzer interfaces.FrameAnalyzer, preview interfaces.FrameSink) *Dependencies {
	deps := &Dependencies{
		Config:    cfg,
		Logger:    logger,
		SessionID: uuid.NewString(),
		Label:     opts.Label,
		Source:    source,
		Analyzer:  analyzer,
		Preview:   preview,
		Tracker:   focus.NewTracker(cfg.DistractionThreshold),
		Timer:     session.NewTimer(opts.Duration),
	}
	deps.closers = append(deps.closers, source.Close)
	if preview != nil {
		deps.closers = append(deps.closers, preview.Close)
	}

	if !cfg.Mute {
		deps.Alerts = alert.NewManager(alert.NewSystemPlayer(os.Stderr), cfg.SoundFile, cfg.AlertCooldown, logger)
	}

	// Status line only makes sense on a terminal
	deps.StatusIndicator = status.NewIndicator(os.Stderr, isatty(os.Stderr.Fd()))

	if cfg.StatusAddr != "" {
		deps.Hub = stream.NewHub(logger, version)
	}

	var system interfaces.IdleDetector
	if cfg.InputIdle {
		if d := idle.NewSystemDetector(); d != nil {
			system = d
		} else {
			logger.Debug("no input idle source available, using gaze only")
		}
	}
	deps.Activity = idle.NewDetector(nil, system)

	if base := baseNotifier(cfg); base != nil {
		var limiter interfaces.RateLimiter
		if rl := notification.NewRateLimiterFromConfig(cfg.RateLimit); rl != nil {
			limiter = rl
		}
		label := deps.Label
		notifier := notification.NewContextNotifier(base, func() string { return label })
		deps.NotificationManager = notification.NewManager(cfg, notifier, limiter)
		deps.NotificationManager.SetLogger(logger)
		deps.NotificationManager.SetReporter(status.NewReporter(deps.StatusIndicator))
		deps.Escalation = notification.NewEscalationNotifier(deps.NotificationManager, cfg.IdleTimeout, deps.Activity)
	}

	var alerter interfaces.Alerter
	if deps.Alerts != nil {
		alerter = deps.Alerts
	}
	deps.Monitor = monitor.NewFrameMonitor(source, analyzer, deps.Tracker, alerter, logger, monitor.Options{
		FrameInterval:   cfg.FrameInterval(),
		FrameSkip:       cfg.Camera.FrameSkip,
		MaxReadFailures: maxReadFailures,
		SessionID:       deps.SessionID,
		Label:           deps.Label,
	})
	deps.Monitor.SetClock(deps.Timer)
	deps.Monitor.SetActivityRecorder(deps.Activity)
	deps.Monitor.AddObserver(deps.StatusIndicator)
	if preview != nil {
		deps.Monitor.SetSink(preview)
	}
	if deps.Escalation != nil {
		deps.Monitor.SetEscalator(deps.Escalation)
	}
	if deps.Hub != nil {
		deps.Monitor.AddObserver(deps.Hub)
	}

	return deps
}

// baseNotifier returns the push transport, a stderr notifier in debug mode
// when push is off, or nil.
func baseNotifier(cfg *config.Config) notification.Notifier {
	switch {
	case cfg.PushEnabled():
		return notification.NewNtfyClient(cfg.NtfyServer, cfg.NtfyTopic)
	case cfg.Debug && !cfg.Quiet:
		return notification.NewStdoutNotifier(os.Stderr)
	default:
		return nil
	}
}

// Close cleans up all dependencies
func (d *Dependencies) Close() {
	if d.Escalation != nil {
		_ = d.Escalation.Close()
	}
	if d.NotificationManager != nil {
		_ = d.NotificationManager.Close()
	}
	if d.Alerts != nil {
		_ = d.Alerts.Close()
	}
	if d.StatusIndicator != nil {
		_ = d.StatusIndicator.Clear() // Best effort
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.Logger.Debug("close failed", "error", err)
		}
	}
	d.closers = nil
}

// Result summarises a finished session.
type Result struct {
	State     session.State
	Remaining int
	Stats     monitor.Stats
}

// Application represents the main application
type Application struct {
	deps *Dependencies
}

// NewApplication creates a new application with the given dependencies
func NewApplication(deps *Dependencies) *Application {
	return &Application{deps: deps}
}

// Run runs the session until the countdown completes, ctx is cancelled or
// the preview is closed. Cancellation is a normal stop, not an error.
func (a *Application) Run(ctx context.Context) (Result, error) {
	d := a.deps
	d.Tracker.Reset()

	d.Logger.Info("focus session started",
		"session", d.SessionID,
		"label", d.Label,
		"remaining", session.FormatRemaining(d.Timer.Total()))
	a.notify(notification.SessionStarted(d.Label))
	if d.Alerts != nil {
		d.Alerts.PlayStart(ctx)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer stop()
		err := d.Monitor.Run(gctx)
		if errors.Is(err, monitor.ErrPreviewClosed) {
			d.Logger.Info("preview closed, stopping session")
			return nil
		}
		return err
	})

	g.Go(func() error {
		defer stop()
		err := d.Timer.Run(gctx, func(int) { d.Monitor.Publish() })
		if errors.Is(err, session.ErrStopped) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return d.StatusIndicator.Run(gctx)
	})

	if d.Hub != nil {
		g.Go(func() error {
			if err := d.Hub.Serve(gctx, d.Config.StatusAddr); err != nil {
				return fmt.Errorf("status stream: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()

	// The timer may still read as running if another goroutine ended the
	// session before it observed the cancellation.
	if d.Timer.State() != session.StateCompleted {
		d.Timer.Stop()
	}
	a.finish(ctx)

	return Result{
		State:     d.Timer.State(),
		Remaining: d.Timer.Remaining(),
		Stats:     d.Monitor.Stats(),
	}, err
}

// finish silences the alert and announces how the session ended.
func (a *Application) finish(ctx context.Context) {
	d := a.deps
	if d.Escalation != nil {
		d.Escalation.Disarm()
	}
	if d.Alerts != nil {
		d.Alerts.Stop()
	}
	d.Monitor.Publish()

	stats := d.Monitor.Stats()
	remaining := session.FormatRemaining(d.Timer.Remaining())
	// Tones are best effort and must not be cut short by the cancelled parent.
	tonesCtx := context.WithoutCancel(ctx)

	if d.Timer.State() == session.StateCompleted {
		d.Logger.Info("focus session complete", "session", d.SessionID, "alerts", stats.Alerts, "frames", stats.Processed)
		a.notify(notification.SessionComplete(d.Label, stats.Alerts))
		if d.Alerts != nil {
			d.Alerts.PlayComplete(tonesCtx)
		}
		return
	}

	d.Logger.Info("focus session stopped", "session", d.SessionID, "remaining", remaining, "alerts", stats.Alerts)
	a.notify(notification.SessionStopped(d.Label, remaining))
	if d.Alerts != nil {
		d.Alerts.PlayEnd(tonesCtx)
	}
}

func (a *Application) notify(n notification.Notification) {
	if a.deps.NotificationManager == nil {
		return
	}
	if err := a.deps.NotificationManager.Send(n); err != nil {
		a.deps.Logger.Debug("notification not sent", "kind", n.Kind, "error", err)
	}
}

// paletteFromConfig parses the configured colours, keeping the default for
// any that fail to parse.
func paletteFromConfig(c config.Colors, logger *slog.Logger) vision.Palette {
	p := vision.DefaultPalette()
	for _, entry := range []struct {
		name  string
		value string
		dst   *color.RGBA
	}{
		{"face", c.Face, &p.Face},
		{"eye", c.Eye, &p.Eye},
		{"text", c.Text, &p.Text},
		{"alert", c.Alert, &p.Alert},
		{"pupil", c.Pupil, &p.Pupil},
	} {
		if entry.value == "" {
			continue
		}
		parsed, err := config.ParseColor(entry.value)
		if err != nil {
			logger.Warn("invalid colour, using default", "name", entry.name, "error", err)
			continue
		}
		*entry.dst = parsed
	}
	return p
}
