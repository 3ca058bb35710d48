package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// fileConfig is the optional TOML tuning file named by CONFIG_FILE.
//
//	[presence]
//	tick = "3s"
//	stale_after = "30s"
//	max_users = 3
//
//	[mutations]
//	success_grace = "1s"
//	action_complete = "2s"
type fileConfig struct {
	Presence struct {
		Tick       string `toml:"tick"`
		StaleAfter string `toml:"stale_after"`
		MaxUsers   int    `toml:"max_users"`
	} `toml:"presence"`
	Mutations struct {
		SuccessGrace   string `toml:"success_grace"`
		ActionComplete string `toml:"action_complete"`
	} `toml:"mutations"`
	LogLevel string `toml:"log_level"`
}

// applyFile overlays values from path. Environment variables win over the
// file, so a key is only taken when its variable is unset.
func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config file: %w", err)
	}

	durations := []struct {
		key, env, value string
		dst             *time.Duration
	}{
		{"presence.tick", "PRESENCE_TICK_MS", raw.Presence.Tick, &cfg.PresenceTick},
		{"presence.stale_after", "PRESENCE_STALE_MS", raw.Presence.StaleAfter, &cfg.PresenceStaleAfter},
		{"mutations.success_grace", "MUTATION_GRACE_MS", raw.Mutations.SuccessGrace, &cfg.MutationGrace},
		{"mutations.action_complete", "ACTION_COMPLETE_MS", raw.Mutations.ActionComplete, &cfg.ActionComplete},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) || os.Getenv(d.env) != "" {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(d.value))
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if meta.IsDefined("presence", "max_users") && os.Getenv("PRESENCE_MAX_USERS") == "" {
		cfg.PresenceMaxUsers = raw.Presence.MaxUsers
	}
	if meta.IsDefined("log_level") && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = raw.LogLevel
	}
	return nil
}
