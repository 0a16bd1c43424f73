package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shahar-caura/lurker/internal/provider"
)

// Duration wraps time.Duration with YAML unmarshaling from strings like "20ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Config is the top-level lurker configuration.
type Config struct {
	Capture   CaptureConfig   `yaml:"capture"`
	Gesture   GestureConfig   `yaml:"gesture"`
	Clipboard ClipboardConfig `yaml:"clipboard"`
	Settings  SettingsConfig  `yaml:"settings"`
	Feed      FeedConfig      `yaml:"feed"`
	Log       LogConfig       `yaml:"log"`
}

// CaptureConfig tunes the gesture pipeline.
type CaptureConfig struct {
	Enabled      bool     `yaml:"enabled"` // used while the settings file is missing
	Attempts     int      `yaml:"attempts"`
	SettleDelay  Duration `yaml:"settle_delay"`
	RetryDelay   Duration `yaml:"retry_delay"`
	TriggerRate  float64  `yaml:"trigger_rate"`
	TriggerBurst int      `yaml:"trigger_burst"`
	ClearOnStart bool     `yaml:"clear_on_start"`
}

// GestureConfig names the capture click.
type GestureConfig struct {
	Button    string   `yaml:"button"`
	Modifiers []string `yaml:"modifiers"`
}

type ClipboardConfig struct {
	Attempts int      `yaml:"attempts"`
	Backoff  Duration `yaml:"backoff"`
	Timeout  Duration `yaml:"timeout"`
}

type SettingsConfig struct {
	Path string `yaml:"path"`
}

type FeedConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Addr      string   `yaml:"addr"`
	Retention Duration `yaml:"retention"`
	MaxEvents int      `yaml:"max_events"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultSettleDelay = 20 * time.Millisecond
	defaultRetryDelay  = 50 * time.Millisecond
	defaultBackoff     = 200 * time.Millisecond
	defaultTimeout     = 2 * time.Second
	defaultRetention   = 10 * time.Minute
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Capture: CaptureConfig{
			Enabled:      true,
			Attempts:     2,
			SettleDelay:  Duration{defaultSettleDelay},
			RetryDelay:   Duration{defaultRetryDelay},
			TriggerRate:  0,
			TriggerBurst: 1,
			ClearOnStart: true,
		},
		Gesture: GestureConfig{
			Button:    "left",
			Modifiers: []string{"ctrl", "shift"},
		},
		Clipboard: ClipboardConfig{
			Attempts: 3,
			Backoff:  Duration{defaultBackoff},
			Timeout:  Duration{defaultTimeout},
		},
		Settings: SettingsConfig{
			Path: filepath.Join(configDir(), "settings.yaml"),
		},
		Feed: FeedConfig{
			Addr:      "127.0.0.1:8765",
			Retention: Duration{defaultRetention},
			MaxEvents: 100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/lurker/config.yaml or the platform equivalent.
func DefaultPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// Load reads, expands env vars, parses, and validates a lurker config file.
// Keys missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Settings.Path == "" {
		cfg.Settings.Path = Default().Settings.Path
	}
	cfg.Settings.Path = expandHome(cfg.Settings.Path)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault is Load, falling back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Capture.Attempts < 1 {
		errs = append(errs, errors.New("capture.attempts must be at least 1"))
	}
	if cfg.Capture.SettleDelay.Duration < 0 {
		errs = append(errs, errors.New("capture.settle_delay must not be negative"))
	}
	if cfg.Capture.RetryDelay.Duration < 0 {
		errs = append(errs, errors.New("capture.retry_delay must not be negative"))
	}
	if cfg.Capture.TriggerRate < 0 {
		errs = append(errs, errors.New("capture.trigger_rate must not be negative"))
	}
	if cfg.Capture.TriggerRate > 0 && cfg.Capture.TriggerBurst < 1 {
		errs = append(errs, errors.New("capture.trigger_burst must be at least 1 when trigger_rate is set"))
	}

	if _, err := provider.ParseButton(cfg.Gesture.Button); err != nil {
		errs = append(errs, fmt.Errorf("gesture.button: %w", err))
	}
	if _, err := provider.ParseModifiers(cfg.Gesture.Modifiers); err != nil {
		errs = append(errs, fmt.Errorf("gesture.modifiers: %w", err))
	}

	if cfg.Clipboard.Attempts < 1 {
		errs = append(errs, errors.New("clipboard.attempts must be at least 1"))
	}
	if cfg.Clipboard.Backoff.Duration < 0 {
		errs = append(errs, errors.New("clipboard.backoff must not be negative"))
	}
	if cfg.Clipboard.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("clipboard.timeout must be positive"))
	}

	// Only validate feed fields when enabled.
	if cfg.Feed.Enabled {
		if cfg.Feed.Addr == "" {
			errs = append(errs, errors.New("feed.addr is required when feed.enabled is true"))
		}
		if cfg.Feed.MaxEvents < 1 {
			errs = append(errs, errors.New("feed.max_events must be at least 1 when feed.enabled is true"))
		}
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
		// valid
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", cfg.Log.Format))
	}

	return errors.Join(errs...)
}

func configDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lurker")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "lurker")
}

func expandHome(path string) string {
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return path
}
