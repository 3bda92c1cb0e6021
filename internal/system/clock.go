package system

import (
	"time"

	coresys "github.com/embermud/server/internal/core/system"
	"github.com/embermud/server/internal/world"
)

// WorldClockSystem advances the in-game clock that spawn-rule time windows
// evaluate against.
type WorldClockSystem struct {
	world *world.State
}

func NewWorldClockSystem(ws *world.State) *WorldClockSystem {
	return &WorldClockSystem{world: ws}
}

func (s *WorldClockSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *WorldClockSystem) Update(dt time.Duration) {
	s.world.AdvanceClock(dt)
}
