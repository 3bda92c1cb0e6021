package npc

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/data"
)

// Instance is the shared capability surface of a live NPC. The concrete
// variants form a closed set keyed by NPC type; there is no hierarchy behind
// this interface, only a construction-time switch.
type Instance interface {
	ID() string
	DefinitionID() string
	Type() data.NPCType
	Room() string
	SetRoom(roomID string)
	Stats() map[string]int
	BehaviorRules() []BehaviorRule
	ExecuteBehavior(ctx map[string]any) bool
}

type baseInstance struct {
	id     string
	def    *data.Definition
	room   string
	stats  map[string]int
	engine *BehaviorEngine
	log    *zap.Logger
}

func (b *baseInstance) ID() string             { return b.id }
func (b *baseInstance) DefinitionID() string   { return b.def.ID }
func (b *baseInstance) Type() data.NPCType     { return b.def.Type }
func (b *baseInstance) Room() string           { return b.room }
func (b *baseInstance) SetRoom(roomID string)  { b.room = roomID }
func (b *baseInstance) BehaviorRules() []BehaviorRule {
	return b.engine.Rules()
}

// Stats returns a copy of the instance's stat block.
func (b *baseInstance) Stats() map[string]int {
	out := make(map[string]int, len(b.stats))
	for k, v := range b.stats {
		out[k] = v
	}
	return out
}

func (b *baseInstance) ExecuteBehavior(ctx map[string]any) bool {
	return b.engine.ExecuteApplicableRules(ctx)
}

func newBase(id string, def *data.Definition, roomID string, extra map[string]ActionHandler, log *zap.Logger) *baseInstance {
	stats := make(map[string]int, len(def.Stats))
	for k, v := range def.Stats {
		stats[k] = v
	}
	eng := NewBehaviorEngine(log)
	registerBuiltinActions(eng, log)
	for name, h := range extra {
		eng.RegisterAction(name, h)
	}
	return &baseInstance{id: id, def: def, room: roomID, stats: stats, engine: eng, log: log}
}

// registerBuiltinActions installs the stock action handlers every variant
// shares. Scripted actions (Lua) may shadow any of these by name.
func registerBuiltinActions(eng *BehaviorEngine, log *zap.Logger) {
	noop := func(name string) ActionHandler {
		return func(ctx map[string]any) bool {
			log.Debug("behavior action", zap.String("action", name))
			return true
		}
	}
	for _, name := range []string{"idle", "wander", "greet", "flee", "attack_nearest", "return_home", "call_for_help"} {
		eng.RegisterAction(name, noop(name))
	}
}

type shopkeeperInstance struct{ *baseInstance }
type questGiverInstance struct{ *baseInstance }
type passiveMobInstance struct{ *baseInstance }
type aggressiveMobInstance struct{ *baseInstance }

// NewInstance constructs the variant for the definition's type. Unrecognized
// types return an error; the caller logs and reports a failed spawn, never a
// panic. extra holds additional action handlers (e.g. scripted ones) merged
// into every variant's engine.
func NewInstance(def *data.Definition, roomID, id string, extra map[string]ActionHandler, log *zap.Logger) (Instance, error) {
	base := newBase(id, def, roomID, extra, log)
	switch def.Type {
	case data.TypeShopkeeper:
		base.engine.AddRule("greet_customer", "player_nearby", "greet", 10)
		base.engine.AddRule("idle", "true", "idle", 0)
		return &shopkeeperInstance{base}, nil
	case data.TypeQuestGiver:
		// Quest-givers currently share passive-mob behavior.
		seedPassiveRules(base.engine)
		return &questGiverInstance{base}, nil
	case data.TypePassiveMob:
		seedPassiveRules(base.engine)
		return &passiveMobInstance{base}, nil
	case data.TypeAggressiveMob:
		base.engine.AddRule("flee_low_hp", "hp < 20", "flee", 20)
		base.engine.AddRule("engage", "enemy_nearby", "attack_nearest", 10)
		base.engine.AddRule("wander", "true", "wander", 0)
		return &aggressiveMobInstance{base}, nil
	default:
		return nil, fmt.Errorf("unrecognized npc type %q for definition %s", def.Type, def.ID)
	}
}

func seedPassiveRules(eng *BehaviorEngine) {
	eng.AddRule("flee_threat", "enemy_nearby", "flee", 10)
	eng.AddRule("wander", "true", "wander", 0)
}
