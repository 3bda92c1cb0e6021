package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/embermud/server/internal/core/system"
	"github.com/embermud/server/internal/npc"
)

// MaintenanceSystem invokes the lifecycle's periodic maintenance on a fixed
// cadence: respawn queue drain, optional-template probability re-rolls,
// terminal record pruning.
type MaintenanceSystem struct {
	lifecycle *npc.Lifecycle
	every     time.Duration
	acc       time.Duration
	log       *zap.Logger
}

func NewMaintenanceSystem(l *npc.Lifecycle, every time.Duration, log *zap.Logger) *MaintenanceSystem {
	if every <= 0 {
		every = time.Minute
	}
	return &MaintenanceSystem{lifecycle: l, every: every, log: log}
}

func (s *MaintenanceSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *MaintenanceSystem) Update(dt time.Duration) {
	s.acc += dt
	if s.acc < s.every {
		return
	}
	s.acc = 0
	rep := s.lifecycle.PeriodicMaintenance()
	if rep.Respawned > 0 || rep.Spawned > 0 || rep.CleanedRecords > 0 {
		s.log.Info("maintenance pass",
			zap.Int("respawned", rep.Respawned),
			zap.Int("spawned", rep.Spawned),
			zap.Int("spawn_checks", rep.SpawnChecks),
			zap.Int("cleaned_records", rep.CleanedRecords))
	}
}
