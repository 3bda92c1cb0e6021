package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ZoneConfig carries per-zone (or per-subzone) spawn modifiers. Entries with
// an empty subzone apply to the whole zone and act as the fallback when no
// subzone-specific entry exists.
type ZoneConfig struct {
	Zone        string   `yaml:"zone"`
	Subzone     string   `yaml:"subzone"`
	Environment string   `yaml:"environment"`
	SpawnMod    float64  `yaml:"spawn_probability_modifier"`
	AccessRule  string   `yaml:"access_rule"` // narrative; not interpreted here
	Rooms       []string `yaml:"rooms"`       // room ids belonging to this entry
}

// Key returns "zone/subzone", or just "zone" for zone-wide entries.
func (z *ZoneConfig) Key() string {
	if z.Subzone == "" {
		return z.Zone
	}
	return z.Zone + "/" + z.Subzone
}

// EffectiveProbability applies the zone modifier to a base probability,
// clamped to [0,1].
func (z *ZoneConfig) EffectiveProbability(base float64) float64 {
	p := base * z.SpawnMod
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

type zoneListFile struct {
	Zones []ZoneConfig `yaml:"zones"`
}

// ZoneTable holds zone configurations indexed by key.
type ZoneTable struct {
	byKey map[string]*ZoneConfig
}

func NewZoneTable(zones []ZoneConfig) (*ZoneTable, error) {
	t := &ZoneTable{byKey: make(map[string]*ZoneConfig, len(zones))}
	for i := range zones {
		z := &zones[i]
		if z.Zone == "" {
			return nil, fmt.Errorf("zone config %d missing zone", i)
		}
		if z.SpawnMod == 0 {
			z.SpawnMod = 1.0
		}
		if z.SpawnMod < 0 {
			return nil, fmt.Errorf("zone %s: negative spawn modifier %g", z.Key(), z.SpawnMod)
		}
		if _, dup := t.byKey[z.Key()]; dup {
			return nil, fmt.Errorf("duplicate zone config %s", z.Key())
		}
		t.byKey[z.Key()] = z
	}
	return t, nil
}

// LoadZoneTable loads zone configurations from a YAML file.
func LoadZoneTable(path string) (*ZoneTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone_list: %w", err)
	}
	var f zoneListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse zone_list: %w", err)
	}
	return NewZoneTable(f.Zones)
}

// Lookup resolves "zone/subzone" and falls back to the zone-wide entry when
// no subzone-specific one exists. Returns nil when neither is configured.
func (t *ZoneTable) Lookup(zoneKey string) *ZoneConfig {
	if z, ok := t.byKey[zoneKey]; ok {
		return z
	}
	for i := 0; i < len(zoneKey); i++ {
		if zoneKey[i] == '/' {
			return t.byKey[zoneKey[:i]]
		}
	}
	return nil
}

// All returns every configured entry. The map is shared; callers must not
// mutate it.
func (t *ZoneTable) All() map[string]*ZoneConfig {
	return t.byKey
}

// Count returns the number of loaded zone configurations.
func (t *ZoneTable) Count() int {
	return len(t.byKey)
}
