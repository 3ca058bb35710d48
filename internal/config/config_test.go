package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PRESENCE_TICK_MS", "PRESENCE_STALE_MS", "PRESENCE_MAX_USERS", "MUTATION_GRACE_MS", "REDIS_URL", "SERVER_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PresenceTick != 3*time.Second {
		t.Errorf("expected 3s tick, got %s", cfg.PresenceTick)
	}
	if cfg.PresenceStaleAfter != 30*time.Second {
		t.Errorf("expected 30s staleness, got %s", cfg.PresenceStaleAfter)
	}
	if cfg.PresenceMaxUsers != 3 {
		t.Errorf("expected cap 3, got %d", cfg.PresenceMaxUsers)
	}
	if cfg.MutationGrace != time.Second {
		t.Errorf("expected 1s grace, got %s", cfg.MutationGrace)
	}
	if cfg.RedisURL != "" {
		t.Errorf("expected redis disabled by default, got %q", cfg.RedisURL)
	}
	if cfg.Addr() != "localhost:8080" {
		t.Errorf("unexpected addr %q", cfg.Addr())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PRESENCE_TICK_MS", "500")
	t.Setenv("PRESENCE_MAX_USERS", "5")
	t.Setenv("MUTATION_GRACE_MS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PresenceTick != 500*time.Millisecond {
		t.Errorf("expected 500ms tick, got %s", cfg.PresenceTick)
	}
	if cfg.PresenceMaxUsers != 5 {
		t.Errorf("expected cap 5, got %d", cfg.PresenceMaxUsers)
	}
	if cfg.MutationGrace != time.Second {
		t.Errorf("invalid value should fall back to default, got %s", cfg.MutationGrace)
	}
}

func TestLoadRejectsNonPositiveTick(t *testing.T) {
	t.Setenv("PRESENCE_TICK_MS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero tick interval")
	}
}

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vantage.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	for _, key := range []string{"PRESENCE_TICK_MS", "PRESENCE_MAX_USERS", "MUTATION_GRACE_MS", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	t.Setenv("PRESENCE_STALE_MS", "5000")
	t.Setenv("CONFIG_FILE", writeConfigFile(t, `
log_level = "debug"

[presence]
tick = "750ms"
stale_after = "10s"
max_users = 6

[mutations]
success_grace = "250ms"
`))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PresenceTick != 750*time.Millisecond {
		t.Errorf("expected tick from file, got %s", cfg.PresenceTick)
	}
	if cfg.PresenceStaleAfter != 5*time.Second {
		t.Errorf("env should win over file, got %s", cfg.PresenceStaleAfter)
	}
	if cfg.PresenceMaxUsers != 6 {
		t.Errorf("expected cap 6, got %d", cfg.PresenceMaxUsers)
	}
	if cfg.MutationGrace != 250*time.Millisecond {
		t.Errorf("expected grace from file, got %s", cfg.MutationGrace)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug level, got %q", cfg.LogLevel)
	}
}

func TestLoadConfigFileBadDuration(t *testing.T) {
	t.Setenv("PRESENCE_TICK_MS", "")
	t.Setenv("CONFIG_FILE", writeConfigFile(t, "[presence]\ntick = \"soon\"\n"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	for _, key := range []string{"PRESENCE_STALE_MS", "MUTATION_GRACE_MS", "ACTION_COMPLETE_MS"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv("PRESENCE_TICK_MS", "")
			t.Setenv(key, "-5")
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for negative %s", key)
			}
		})
	}
}
