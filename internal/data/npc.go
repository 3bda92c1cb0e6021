package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// NPCType is the closed set of NPC kinds. Construction dispatches on it; there
// is no inheritance hierarchy behind these.
type NPCType string

const (
	TypeShopkeeper    NPCType = "shopkeeper"
	TypeQuestGiver    NPCType = "quest_giver"
	TypePassiveMob    NPCType = "passive_mob"
	TypeAggressiveMob NPCType = "aggressive_mob"
)

// Valid reports whether t is one of the four known NPC kinds.
func (t NPCType) Valid() bool {
	switch t {
	case TypeShopkeeper, TypeQuestGiver, TypePassiveMob, TypeAggressiveMob:
		return true
	}
	return false
}

// Definition holds the static template an NPC instance is spawned from.
// Read-only to the population subsystem.
type Definition struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Type             NPCType        `yaml:"type"`
	Zone             string         `yaml:"zone"`
	Subzone          string         `yaml:"subzone"`
	DefaultRoom      string         `yaml:"default_room"`
	Required         bool           `yaml:"required"`
	MaxPopulation    int            `yaml:"max_population"`
	SpawnProbability float64        `yaml:"spawn_probability"`
	RespawnDelay     int            `yaml:"respawn_delay"` // seconds; 0 = global default
	Stats            map[string]int `yaml:"stats"`         // opaque to this subsystem
	Behavior         map[string]any `yaml:"behavior"`      // opaque blob, handed to instance setup
	AIProfile        string         `yaml:"ai_profile"`    // opaque AI config tag
}

// HomeZoneKey returns the "zone/subzone" key the definition belongs to.
func (d *Definition) HomeZoneKey() string {
	return d.Zone + "/" + d.Subzone
}

// RespawnOverride returns the per-template respawn delay, or 0 when the
// global default applies.
func (d *Definition) RespawnOverride() time.Duration {
	if d.RespawnDelay <= 0 {
		return 0
	}
	return time.Duration(d.RespawnDelay) * time.Second
}

// Validate checks the template invariants the loaders enforce.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("definition missing id")
	}
	if !d.Type.Valid() {
		return fmt.Errorf("definition %s: unknown type %q", d.ID, d.Type)
	}
	if d.MaxPopulation < 1 {
		return fmt.Errorf("definition %s: max_population must be >= 1, got %d", d.ID, d.MaxPopulation)
	}
	if d.SpawnProbability < 0 || d.SpawnProbability > 1 {
		return fmt.Errorf("definition %s: spawn_probability must be in [0,1], got %g", d.ID, d.SpawnProbability)
	}
	return nil
}

type npcListFile struct {
	Npcs []Definition `yaml:"npcs"`
}

// DefinitionTable holds all NPC definitions indexed by ID. Declaration order
// is preserved for deterministic iteration.
type DefinitionTable struct {
	byID  map[string]*Definition
	order []*Definition
}

func NewDefinitionTable(defs []Definition) (*DefinitionTable, error) {
	t := &DefinitionTable{
		byID:  make(map[string]*Definition, len(defs)),
		order: make([]*Definition, 0, len(defs)),
	}
	for i := range defs {
		d := &defs[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := t.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate definition id %s", d.ID)
		}
		t.byID[d.ID] = d
		t.order = append(t.order, d)
	}
	return t, nil
}

// LoadDefinitionTable loads NPC definitions from a YAML file.
func LoadDefinitionTable(path string) (*DefinitionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read npc_list: %w", err)
	}
	var f npcListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse npc_list: %w", err)
	}
	return NewDefinitionTable(f.Npcs)
}

// Get returns a definition by ID, or nil if not found.
func (t *DefinitionTable) Get(id string) *Definition {
	return t.byID[id]
}

// All returns definitions in declaration order. The slice is shared; callers
// must not mutate it.
func (t *DefinitionTable) All() []*Definition {
	return t.order
}

// ForZone returns the definitions homed in the given zone-key, in declaration
// order.
func (t *DefinitionTable) ForZone(zoneKey string) []*Definition {
	var out []*Definition
	for _, d := range t.order {
		if d.HomeZoneKey() == zoneKey {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of loaded definitions.
func (t *DefinitionTable) Count() int {
	return len(t.order)
}
