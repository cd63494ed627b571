package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	flag "github.com/spf13/pflag"

	"github.com/Veraticus/focus-tracker/pkg/alert"
	"github.com/Veraticus/focus-tracker/pkg/config"
	"github.com/Veraticus/focus-tracker/pkg/session"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// globalOptions are the flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool

	cfg    *config.Config
	logger *slog.Logger
}

// startOptions are the flags of the start command.
type startOptions struct {
	duration   time.Duration
	preset     string
	preview    bool
	quiet      bool
	mute       bool
	statusAddr string
}

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "focus-tracker: %v\n", err)
		os.Exit(1)
	}
}

// newRootCommand builds the command tree writing to out and errOut.
func newRootCommand(out, errOut io.Writer) *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:           "focus-tracker",
		Short:         "Webcam focus sessions with distraction alerts",
		Long:          `Runs a timed focus session, watches your gaze through the webcam and raises an alert when you look away for too long.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load(errOut)
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to config file")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newStartCommand(g),
		newPresetsCommand(),
		newConfigCommand(g),
		newSoundCommand(g),
		newVersionCommand(),
	)
	return root
}

// load reads the configuration and sets up logging.
func (g *globalOptions) load(errOut io.Writer) error {
	if g.configPath != "" {
		if err := os.Setenv("FOCUS_TRACKER_CONFIG", g.configPath); err != nil {
			return fmt.Errorf("setting config path: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if g.debug {
		cfg.Debug = true
	}
	g.cfg = cfg
	g.logger = newLogger(errOut, cfg.Debug)
	return nil
}

// newLogger returns a text logger at info level, or debug level when debug is set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func addStartFlags(fs *flag.FlagSet, o *startOptions) {
	fs.DurationVar(&o.duration, "duration", 0, "Session length, e.g. 25m (overrides --preset)")
	fs.StringVar(&o.preset, "preset", "", `Session preset, e.g. "30 minutes"`)
	fs.BoolVar(&o.preview, "preview", false, "Show the annotated webcam preview")
	fs.BoolVar(&o.quiet, "quiet", false, "Disable push notifications")
	fs.BoolVar(&o.mute, "mute", false, "Disable alert sounds")
	fs.StringVar(&o.statusAddr, "status-addr", "", "Serve the websocket status stream on this address")
}

// applyStartFlags copies explicitly set flags over the configuration.
func applyStartFlags(fs *flag.FlagSet, o *startOptions, cfg *config.Config) {
	if fs.Changed("preview") {
		cfg.Preview = o.preview
	}
	if fs.Changed("quiet") {
		cfg.Quiet = o.quiet
	}
	if fs.Changed("mute") {
		cfg.Mute = o.mute
	}
	if fs.Changed("status-addr") {
		cfg.StatusAddr = o.statusAddr
	}
}

// resolveSession turns --duration or --preset into session options.
func resolveSession(o *startOptions, cfg *config.Config) (SessionOptions, error) {
	if o.duration != 0 {
		if o.duration < time.Second {
			return SessionOptions{}, fmt.Errorf("duration must be at least 1s, got %s", o.duration)
		}
		return SessionOptions{Label: o.duration.String(), Duration: o.duration}, nil
	}

	label := o.preset
	if label == "" {
		label = cfg.DefaultPreset
	}
	if label == "" {
		return SessionOptions{Label: session.DefaultPreset.Label, Duration: session.DefaultPreset.Duration}, nil
	}
	p, err := session.LookupPreset(label)
	if err != nil {
		return SessionOptions{}, err
	}
	return SessionOptions{Label: p.Label, Duration: p.Duration}, nil
}

func newStartCommand(g *globalOptions) *cobra.Command {
	o := &startOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a focus session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyStartFlags(cmd.Flags(), o, g.cfg)
			if err := g.cfg.Validate(); err != nil {
				return err
			}
			opts, err := resolveSession(o, g.cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			deps, err := NewDependencies(g.cfg, opts, g.logger)
			if err != nil {
				return fmt.Errorf("starting session: %w", err)
			}
			defer deps.Close()

			res, err := NewApplication(deps).Run(ctx)
			printResult(cmd.OutOrStdout(), opts.Label, res)
			return err
		},
	}
	addStartFlags(cmd.Flags(), o)
	return cmd
}

func printResult(w io.Writer, label string, res Result) {
	switch res.State {
	case session.StateCompleted:
		fmt.Fprintf(w, "Focus session of %s complete: %d distraction alerts\n", label, res.Stats.Alerts)
	default:
		fmt.Fprintf(w, "Focus session of %s stopped with %s remaining: %d distraction alerts\n",
			label, session.FormatRemaining(res.Remaining), res.Stats.Alerts)
	}
}

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List session presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range session.Presets {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", p.Label, session.FormatRemaining(int(p.Duration/time.Second)))
			}
			return nil
		},
	}
}

func newConfigCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := g.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

var soundNames = []string{"start", "end", "complete", "alert"}

func newSoundCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "sound {" + strings.Join(soundNames, ",") + "}",
		Short:     "Play one of the session sounds",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: soundNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			player := alert.NewSystemPlayer(cmd.ErrOrStderr())
			return playSound(cmd.Context(), args[0], player, g.cfg, g.logger)
		},
	}
}

// playSound plays the named sound once.
func playSound(ctx context.Context, name string, player alert.Player, cfg *config.Config, logger *slog.Logger) error {
	m := alert.NewManager(player, cfg.SoundFile, cfg.AlertCooldown, logger)
	defer m.Close()

	switch name {
	case "start":
		m.PlayStart(ctx)
	case "end":
		m.PlayEnd(ctx)
	case "complete":
		m.PlayComplete(ctx)
	case "alert":
		if err := player.PlayFile(ctx, cfg.SoundFile); err != nil {
			logger.Debug("alert sound failed, using beep", "error", err)
			return player.Beep(ctx)
		}
	default:
		return errors.New("unknown sound " + name)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "focus-tracker %s\n", version)
		},
	}
}
