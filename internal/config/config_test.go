package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	content := `
[server]
name = "testmud"

[population]
death_suppression = 45000000000 # nanoseconds
max_respawn_attempts = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Name != "testmud" {
		t.Errorf("Server.Name = %q, want testmud", cfg.Server.Name)
	}
	if cfg.Population.DeathSuppression != 45*time.Second {
		t.Errorf("DeathSuppression = %v, want 45s", cfg.Population.DeathSuppression)
	}
	if cfg.Population.MaxRespawnAttempts != 3 {
		t.Errorf("MaxRespawnAttempts = %d, want 3", cfg.Population.MaxRespawnAttempts)
	}

	// Untouched sections keep their defaults.
	if cfg.Population.RespawnDelay != 60*time.Second {
		t.Errorf("RespawnDelay = %v, want default 60s", cfg.Population.RespawnDelay)
	}
	if cfg.Server.TickRate != 200*time.Millisecond {
		t.Errorf("TickRate = %v, want default 200ms", cfg.Server.TickRate)
	}
	if cfg.World.DataDir != "data/yaml" {
		t.Errorf("DataDir = %q, want default data/yaml", cfg.World.DataDir)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("Load() missing file: error = nil, want non-nil")
	}
}
