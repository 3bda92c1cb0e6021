package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: external input / bus swap
	PhasePreUpdate               // 1: process last tick's events
	PhaseUpdate                  // 2: spawn backlog, world clock
	PhasePostUpdate              // 3: maintenance cadence
	PhaseCleanup                 // 4: record pruning hooks
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
