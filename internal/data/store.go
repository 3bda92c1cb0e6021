package data

import (
	"context"
	"path/filepath"
)

// Store is the bulk-load interface the population subsystem requires from its
// backing store. Reference data is read-mostly: loaded once at startup, before
// the controller is considered initialized. A returned error is fatal — the
// subsystem must not run with a silently empty configuration set.
type Store interface {
	LoadDefinitions(ctx context.Context) (*DefinitionTable, error)
	LoadSpawnRules(ctx context.Context) (*RuleTable, error)
	LoadZoneConfigs(ctx context.Context) (*ZoneTable, error)
}

// FileStore loads reference data from YAML files in a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) LoadDefinitions(context.Context) (*DefinitionTable, error) {
	return LoadDefinitionTable(filepath.Join(s.dir, "npc_list.yaml"))
}

func (s *FileStore) LoadSpawnRules(context.Context) (*RuleTable, error) {
	return LoadRuleTable(filepath.Join(s.dir, "spawn_rules.yaml"))
}

func (s *FileStore) LoadZoneConfigs(context.Context) (*ZoneTable, error) {
	return LoadZoneTable(filepath.Join(s.dir, "zone_list.yaml"))
}
