package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/shahar-caura/lurker/internal/config"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

// app carries what PersistentPreRunE resolved for the subcommands.
type app struct {
	v          *viper.Viper
	cfg        *config.Config
	configPath string
	logger     *slog.Logger
}

// skipConfig marks commands that run without loading config.
const skipConfig = "skip-config"

func main() {
	if err := newRootCmd(os.Stderr).Execute(); err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("lurker failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		logger: slog.New(slog.NewTextHandler(logOut, nil)),
	}

	root := &cobra.Command{
		Use:   "lurker",
		Short: "Capture Path of Exile item tooltips and trade messages from the clipboard",
		Long: `lurker watches for the capture gesture (Ctrl+Shift+left click by default),
copies the hovered item tooltip, parses it, and emits it as an event.
Trade messages copied from chat are detected as well.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := cmd.Annotations[skipConfig]; ok {
				return nil
			}
			return a.load(logOut)
		},
	}

	root.PersistentFlags().String("config", "", "config file (default: "+config.DefaultPath()+")")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().String("log-format", "", "log format: text or json (overrides config)")

	_ = a.v.BindPFlag("config", root.PersistentFlags().Lookup("config"))
	_ = a.v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("log-format", root.PersistentFlags().Lookup("log-format"))
	a.v.SetEnvPrefix("LURKER")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newRunCmd(a),
		newParseCmd(a),
		newSearchCmd(a),
		newConfigCmd(a),
		newCompletionCmd(),
		newVersionCmd(),
	)
	return root
}

// load reads env files, then config, then builds the logger.
func (a *app) load(logOut io.Writer) error {
	config.LoadEnvFiles(config.EnvPaths()...)

	a.configPath = a.resolveConfigPath()

	cfg, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f := a.v.GetString("log-format"); f != "" {
		cfg.Log.Format = f
	}

	logger, err := newLogger(logOut, cfg.Log)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) resolveConfigPath() string {
	if p := a.v.GetString("config"); p != "" {
		return p
	}
	return config.DefaultPath()
}

func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", lc.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch lc.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: must be text or json", lc.Format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: ""},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lurker %s\n", version)
		},
	}
}
