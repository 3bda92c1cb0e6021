package system

import (
	"time"

	"go.uber.org/zap"

	coresys "github.com/embermud/server/internal/core/system"
	"github.com/embermud/server/internal/npc"
)

// SpawnBacklogSystem drains the spawner's prioritized backlog each tick.
// Requests are queued by the player-entered admission sweep; draining here
// keeps event handlers short.
type SpawnBacklogSystem struct {
	spawner *npc.Spawner
	log     *zap.Logger
}

func NewSpawnBacklogSystem(spawner *npc.Spawner, log *zap.Logger) *SpawnBacklogSystem {
	return &SpawnBacklogSystem{spawner: spawner, log: log}
}

func (s *SpawnBacklogSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SpawnBacklogSystem) Update(_ time.Duration) {
	if s.spawner.QueueLen() == 0 {
		return
	}
	results := s.spawner.ProcessQueue()
	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	s.log.Debug("spawn backlog drained",
		zap.Int("attempted", len(results)), zap.Int("spawned", ok))
}
