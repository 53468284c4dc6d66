// Package config provides configuration file parsing for watchlogs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/blackwell-systems/watchlogs/internal/tail"
)

// Dir returns the watchlogs config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/watchlogs if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "watchlogs"), nil
}

// Config holds the follow settings read from the config file. Zero values
// are meaningful (a poll interval of 0 disables throttling), so callers
// should start from Default rather than from an empty Config.
type Config struct {
	PollInterval      time.Duration
	BackfillLines     int
	Heartbeat         bool
	HeartbeatInterval time.Duration
	ForcePoll         bool
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		PollInterval:      tail.DefaultPollInterval,
		BackfillLines:     tail.DefaultBackfillLines,
		Heartbeat:         true,
		HeartbeatInterval: tail.DefaultHeartbeatInterval,
	}
}

// Load parses the config file at path, or at {Dir()}/config.toml when path
// is empty. A missing file yields the defaults without an error. A file
// that exists but does not parse, or that carries an invalid duration, is
// an error rather than a silent fallback.
func Load(path string) (Config, error) {
	cfg := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		if strings.TrimSpace(path) == "" {
			// No explicit file requested and no home to look in: the
			// config is optional, run on defaults.
			return cfg, nil
		}
		return Config{}, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	// Pointer fields distinguish "absent" from a zero value, so an
	// explicit heartbeat = false or backfill_lines = 0 is honored.
	var raw struct {
		PollInterval      *string `toml:"poll_interval"`
		BackfillLines     *int    `toml:"backfill_lines"`
		Heartbeat         *bool   `toml:"heartbeat"`
		HeartbeatInterval *string `toml:"heartbeat_interval"`
		ForcePoll         *bool   `toml:"force_poll"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if raw.PollInterval != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.PollInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse poll_interval: %w", err)
		}
		cfg.PollInterval = d
	}
	if raw.BackfillLines != nil {
		cfg.BackfillLines = *raw.BackfillLines
	}
	if raw.Heartbeat != nil {
		cfg.Heartbeat = *raw.Heartbeat
	}
	if raw.HeartbeatInterval != nil {
		d, err := time.ParseDuration(strings.TrimSpace(*raw.HeartbeatInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse heartbeat_interval: %w", err)
		}
		cfg.HeartbeatInterval = d
	}
	if raw.ForcePoll != nil {
		cfg.ForcePoll = *raw.ForcePoll
	}

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "config.toml"), nil
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
