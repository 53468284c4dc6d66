package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_FileNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error for missing file: %v", err)
	}
	if cfg != Default() {
		t.Errorf("missing file config = %+v, want defaults %+v", cfg, Default())
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Default()
	if cfg.PollInterval != time.Second {
		t.Errorf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if cfg.BackfillLines != -1 {
		t.Errorf("BackfillLines = %d, want -1", cfg.BackfillLines)
	}
	if !cfg.Heartbeat {
		t.Error("Heartbeat = false, want true")
	}
	if cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 30s", cfg.HeartbeatInterval)
	}
	if cfg.ForcePoll {
		t.Error("ForcePoll = true, want false")
	}
}

func TestLoad_AllFields(t *testing.T) {
	path := writeConfig(t, `
poll_interval = "250ms"
backfill_lines = 20
heartbeat = false
heartbeat_interval = "2m"
force_poll = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
	if cfg.BackfillLines != 20 {
		t.Errorf("BackfillLines = %d, want 20", cfg.BackfillLines)
	}
	if cfg.Heartbeat {
		t.Error("Heartbeat = true, want false (explicitly disabled)")
	}
	if cfg.HeartbeatInterval != 2*time.Minute {
		t.Errorf("HeartbeatInterval = %v, want 2m", cfg.HeartbeatInterval)
	}
	if !cfg.ForcePoll {
		t.Error("ForcePoll = false, want true")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `backfill_lines = 5`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BackfillLines != 5 {
		t.Errorf("BackfillLines = %d, want 5", cfg.BackfillLines)
	}
	if cfg.PollInterval != Default().PollInterval {
		t.Errorf("PollInterval = %v, want default %v", cfg.PollInterval, Default().PollInterval)
	}
	if !cfg.Heartbeat {
		t.Error("Heartbeat = false, want default true")
	}
}

func TestLoad_ExplicitZeroBackfillHonored(t *testing.T) {
	path := writeConfig(t, `backfill_lines = 0`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BackfillLines != 0 {
		t.Errorf("BackfillLines = %d, want explicit 0 (not default -1)", cfg.BackfillLines)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `poll_interval = "five seconds"`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with invalid poll_interval succeeded, want error")
	} else if !strings.Contains(err.Error(), "poll_interval") {
		t.Errorf("error = %q, want poll_interval mention", err)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, `poll_interval = `)

	if _, err := Load(path); err == nil {
		t.Fatal("Load() with malformed TOML succeeded, want error")
	}
}

func TestDir_RespectsXDGConfigHome(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	want := filepath.Join(base, "watchlogs")
	if dir != want {
		t.Errorf("Dir() = %q, want %q", dir, want)
	}
}
