// Package config loads the program configuration from defaults, a TOML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the config file inside the config directory.
const FileName = "config.toml"

const (
	DefaultShell    = "/bin/sh"
	DefaultPrompt   = "pipeline> "
	DefaultMaxLines = 100000
	DefaultTabWidth = 8
	maxTabWidth     = 32
)

// Config is the complete program configuration.
type Config struct {
	// Shell runs previewed commands as "Shell -c command".
	Shell string `toml:"shell"`

	// Truncate clips long output lines instead of wrapping them.
	Truncate bool `toml:"truncate"`

	// MaxLines caps the logical lines read from a command's output. Zero
	// disables the cap.
	MaxLines int `toml:"max_lines"`

	TabWidth int    `toml:"tab_width"`
	Prompt   string `toml:"prompt"`

	// Timeout bounds one preview, e.g. "30s". Zero waits indefinitely.
	Timeout Duration `toml:"timeout"`

	Log LogSettings `toml:"log"`
}

// LogSettings configures the debug log.
type LogSettings struct {
	// Dir is where pipeline.log is written. Empty disables logging.
	Dir        string `toml:"dir"`
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Duration is a time.Duration written as a Go duration string.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		MaxLines: DefaultMaxLines,
		TabWidth: DefaultTabWidth,
		Prompt:   DefaultPrompt,
		Log: LogSettings{
			Level:  "info",
			Format: "json",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/pipeline/config.toml, or the same under
// ~/.config. It is empty when neither location can be determined.
func DefaultPath(getenv func(string) string) string {
	if dir := strings.TrimSpace(getenv("XDG_CONFIG_HOME")); dir != "" {
		return filepath.Join(dir, "pipeline", FileName)
	}
	if home := strings.TrimSpace(getenv("HOME")); home != "" {
		return filepath.Join(home, ".config", "pipeline", FileName)
	}
	return ""
}

// DefaultLogDir is $XDG_STATE_HOME/pipeline, or the same under ~/.local/state.
func DefaultLogDir(getenv func(string) string) string {
	if dir := strings.TrimSpace(getenv("XDG_STATE_HOME")); dir != "" {
		return filepath.Join(dir, "pipeline")
	}
	if home := strings.TrimSpace(getenv("HOME")); home != "" {
		return filepath.Join(home, ".local", "state", "pipeline")
	}
	return os.TempDir()
}

// Load reads path over the defaults. A missing file yields the defaults.
// Keys the file sets that Config does not know are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return Default(), fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// ApplyEnv lets PIPELINE_SHELL override the file's shell. $SHELL is only
// used when nothing else chose one.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if shell := strings.TrimSpace(getenv("PIPELINE_SHELL")); shell != "" {
		c.Shell = shell
		return
	}
	if c.Shell == "" {
		c.Shell = strings.TrimSpace(getenv("SHELL"))
	}
}

// Validate reports the first invalid value.
func (c Config) Validate() error {
	if c.MaxLines < 0 {
		return fmt.Errorf("max_lines must not be negative, got %d", c.MaxLines)
	}
	if c.TabWidth < 1 || c.TabWidth > maxTabWidth {
		return fmt.Errorf("tab_width must be between 1 and %d, got %d", maxTabWidth, c.TabWidth)
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout.Duration)
	}
	if strings.ContainsAny(c.Prompt, "\n\r") {
		return errors.New("prompt must be a single line")
	}
	switch c.Log.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
