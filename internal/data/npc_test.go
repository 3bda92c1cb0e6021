package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefinitionTable(t *testing.T) {
	path := writeYAML(t, "npc_list.yaml", `
npcs:
  - id: market_smith
    name: Smith
    type: shopkeeper
    zone: ashfall
    subzone: market
    default_room: ashfall/market/forge
    required: true
    max_population: 1
    spawn_probability: 1.0
    respawn_delay: 90
    stats:
      hp: 120
  - id: market_rat
    name: Rat
    type: passive_mob
    zone: ashfall
    subzone: market
    max_population: 4
    spawn_probability: 0.4
`)
	tbl, err := LoadDefinitionTable(path)
	if err != nil {
		t.Fatalf("LoadDefinitionTable() error = %v", err)
	}
	if tbl.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", tbl.Count())
	}

	smith := tbl.Get("market_smith")
	if smith == nil {
		t.Fatal("Get(market_smith) = nil")
	}
	if smith.Type != TypeShopkeeper || !smith.Required {
		t.Errorf("smith = type %s required %v, want shopkeeper/true", smith.Type, smith.Required)
	}
	if smith.Stats["hp"] != 120 {
		t.Errorf("smith hp = %d, want 120", smith.Stats["hp"])
	}
	if got := smith.RespawnOverride(); got != 90*time.Second {
		t.Errorf("RespawnOverride() = %v, want 90s", got)
	}
	if got := tbl.Get("market_rat").RespawnOverride(); got != 0 {
		t.Errorf("RespawnOverride() without override = %v, want 0", got)
	}

	if got := tbl.Get("nobody"); got != nil {
		t.Errorf("Get(nobody) = %v, want nil", got)
	}
	if got := len(tbl.ForZone("ashfall/market")); got != 2 {
		t.Errorf("ForZone(ashfall/market) = %d, want 2", got)
	}
	if got := len(tbl.ForZone("mirewood/deep")); got != 0 {
		t.Errorf("ForZone(mirewood/deep) = %d, want 0", got)
	}
}

func TestNewDefinitionTable_Validation(t *testing.T) {
	base := Definition{
		ID: "x", Name: "X", Type: TypePassiveMob,
		Zone: "z", Subzone: "s", MaxPopulation: 1, SpawnProbability: 0.5,
	}

	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"missing id", func(d *Definition) { d.ID = "" }},
		{"unknown type", func(d *Definition) { d.Type = "demigod" }},
		{"zero max population", func(d *Definition) { d.MaxPopulation = 0 }},
		{"probability above one", func(d *Definition) { d.SpawnProbability = 1.5 }},
		{"negative probability", func(d *Definition) { d.SpawnProbability = -0.1 }},
	}
	for _, tt := range tests {
		d := base
		tt.mutate(&d)
		if _, err := NewDefinitionTable([]Definition{d}); err == nil {
			t.Errorf("%s: NewDefinitionTable() error = nil, want non-nil", tt.name)
		}
	}

	if _, err := NewDefinitionTable([]Definition{base, base}); err == nil {
		t.Error("duplicate id: NewDefinitionTable() error = nil, want non-nil")
	}
}

func TestLoadDefinitionTable_Errors(t *testing.T) {
	if _, err := LoadDefinitionTable(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file: error = nil, want non-nil")
	}
	path := writeYAML(t, "npc_list.yaml", "npcs: [broken")
	if _, err := LoadDefinitionTable(path); err == nil {
		t.Error("malformed yaml: error = nil, want non-nil")
	}
}
