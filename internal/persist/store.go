package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/embermud/server/internal/data"
)

// Store is the Postgres-backed implementation of the reference-data bulk
// loads. It satisfies the same data.Store interface as the YAML file store;
// a query error propagates so startup can distinguish "empty" from "broken".
type Store struct {
	db *DB
}

var _ data.Store = (*Store)(nil)

func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func (s *Store) LoadDefinitions(ctx context.Context) (*data.DefinitionTable, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, name, type, zone, subzone, default_room, required,
		       max_population, spawn_probability, respawn_delay,
		       stats, behavior, ai_profile
		FROM npc_definitions
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query npc_definitions: %w", err)
	}
	defer rows.Close()

	var defs []data.Definition
	for rows.Next() {
		var d data.Definition
		var typ string
		var statsRaw, behaviorRaw []byte
		if err := rows.Scan(&d.ID, &d.Name, &typ, &d.Zone, &d.Subzone, &d.DefaultRoom,
			&d.Required, &d.MaxPopulation, &d.SpawnProbability, &d.RespawnDelay,
			&statsRaw, &behaviorRaw, &d.AIProfile); err != nil {
			return nil, fmt.Errorf("scan npc_definition: %w", err)
		}
		d.Type = data.NPCType(typ)
		if len(statsRaw) > 0 {
			if err := json.Unmarshal(statsRaw, &d.Stats); err != nil {
				return nil, fmt.Errorf("definition %s: decode stats: %w", d.ID, err)
			}
		}
		if len(behaviorRaw) > 0 {
			if err := json.Unmarshal(behaviorRaw, &d.Behavior); err != nil {
				return nil, fmt.Errorf("definition %s: decode behavior: %w", d.ID, err)
			}
		}
		defs = append(defs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read npc_definitions: %w", err)
	}
	return data.NewDefinitionTable(defs)
}

func (s *Store) LoadSpawnRules(ctx context.Context) (*data.RuleTable, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, definition_id, name, max_population, min_hour, max_hour,
		       weather, probability, priority_bonus
		FROM npc_spawn_rules
		ORDER BY definition_id, position`)
	if err != nil {
		return nil, fmt.Errorf("query npc_spawn_rules: %w", err)
	}
	defer rows.Close()

	var rules []data.SpawnRule
	for rows.Next() {
		var r data.SpawnRule
		if err := rows.Scan(&r.ID, &r.DefinitionID, &r.Name, &r.MaxPopulation,
			&r.MinHour, &r.MaxHour, &r.Weather, &r.Probability, &r.PriorityBonus); err != nil {
			return nil, fmt.Errorf("scan npc_spawn_rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read npc_spawn_rules: %w", err)
	}
	return data.NewRuleTable(rules)
}

func (s *Store) LoadZoneConfigs(ctx context.Context) (*data.ZoneTable, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT zone, subzone, environment, spawn_probability_modifier,
		       access_rule, rooms
		FROM zone_configurations
		ORDER BY zone, subzone`)
	if err != nil {
		return nil, fmt.Errorf("query zone_configurations: %w", err)
	}
	defer rows.Close()

	var zones []data.ZoneConfig
	for rows.Next() {
		var z data.ZoneConfig
		if err := rows.Scan(&z.Zone, &z.Subzone, &z.Environment, &z.SpawnMod,
			&z.AccessRule, &z.Rooms); err != nil {
			return nil, fmt.Errorf("scan zone_configuration: %w", err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read zone_configurations: %w", err)
	}
	return data.NewZoneTable(zones)
}
