package system

import (
	"time"

	"github.com/embermud/server/internal/core/event"
	coresys "github.com/embermud/server/internal/core/system"
)

// EventDispatchSystem rotates the bus buffers and delivers last tick's events.
// Runs first each tick so every other system observes a settled event view.
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *EventDispatchSystem) Update(_ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
