// Package config loads slnlint settings from defaults, .slnlint.yaml,
// SLNLINT_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"slnlint/internal/diag"
	"slnlint/internal/rules"
)

// FileName is the settings file looked up in the working directory.
const FileName = ".slnlint.yaml"

const envPrefix = "SLNLINT_"

type Config struct {
	Solution string        `koanf:"solution"`
	Jobs     int           `koanf:"jobs"`
	Format   string        `koanf:"format"`
	UI       string        `koanf:"ui"`
	LogLevel string        `koanf:"log_level"`
	Color    string        `koanf:"color"`
	Cache    CacheConfig   `koanf:"cache"`
	History  HistoryConfig `koanf:"history"`
	Rules    RulesConfig   `koanf:"rules"`

	// File is the settings file that was read, if any.
	File string `koanf:"-"`
}

type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

type HistoryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Database string `koanf:"database"`
}

type RulesConfig struct {
	Enable   []string                  `koanf:"enable"`
	Disable  []string                  `koanf:"disable"`
	Severity map[string]string         `koanf:"severity"`
	Options  map[string]map[string]any `koanf:"options"`
}

// flagKeys maps flag names to config keys. Flags not listed here are
// command switches and never reach the config.
var flagKeys = map[string]string{
	"solution":  "solution",
	"jobs":      "jobs",
	"format":    "format",
	"ui":        "ui",
	"log-level": "log_level",
	"color":     "color",
	"cache":     "cache.enabled",
	"cache-dir": "cache.dir",
	"history":   "history.enabled",
	"database":  "history.database",
	"enable":    "rules.enable",
	"disable":   "rules.disable",
}

func defaults() map[string]any {
	return map[string]any{
		"jobs":             0,
		"format":           "text",
		"ui":               "auto",
		"log_level":        "warn",
		"color":            "auto",
		"cache.enabled":    true,
		"cache.dir":        "",
		"history.enabled":  false,
		"history.database": "",
	}
}

// Load reads the configuration. cfgFile may be empty, in which case
// FileName is used when it exists. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if cfgFile == "" {
		if _, err := os.Stat(FileName); err == nil {
			cfgFile = FileName
		}
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
	}

	// SLNLINT_CACHE__DIR -> cache.dir
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = cfgFile
	cfg.Rules.Enable = splitList(cfg.Rules.Enable)
	cfg.Rules.Disable = splitList(cfg.Rules.Disable)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList accepts comma separated entries, as environment variables
// deliver them.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

var (
	ErrInvalidUI    = errors.New("ui must be auto, on or off")
	ErrInvalidColor = errors.New("color must be auto, always or never")
)

func (c *Config) Validate() error {
	switch c.UI {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidUI, c.UI)
	}
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidColor, c.Color)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative: %d", c.Jobs)
	}
	return nil
}

// Level parses log_level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return l, nil
}

// RuleConfig converts the rules section for the rule engine.
func (c *Config) RuleConfig() (*rules.Config, error) {
	rc := &rules.Config{
		Enable:  c.Rules.Enable,
		Disable: c.Rules.Disable,
		Options: c.Rules.Options,
	}
	if len(c.Rules.Severity) > 0 {
		rc.Severity = make(map[string]diag.Severity, len(c.Rules.Severity))
		for id, s := range c.Rules.Severity {
			sev, err := diag.ParseSeverity(s)
			if err != nil {
				return nil, fmt.Errorf("rules.severity.%s: %w", id, err)
			}
			rc.Severity[id] = sev
		}
	}
	return rc, nil
}

// HistoryPath returns the history database, defaulting to a file under
// the user's state directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Database != "" {
		return c.History.Database, nil
	}
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".local", "state")
	}
	dir := filepath.Join(base, "slnlint")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}
