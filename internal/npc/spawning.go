package npc

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/data"
	"github.com/embermud/server/internal/world"
)

// SpawnRequest is a transient, prioritized spawn intent. It lives only in the
// spawner's in-memory backlog and is never persisted.
type SpawnRequest struct {
	Definition *data.Definition
	RoomID     string
	Rule       *data.SpawnRule // admitting rule; nil for the required fallback
	Priority   int
	Reason     string
	Created    time.Time
	seq        int
}

// SpawnResult records one instantiation attempt from the backlog.
type SpawnResult struct {
	DefinitionID string
	RoomID       string
	InstanceID   string
	Success      bool
	Reason       string
	When         time.Time
}

// SpawnFunc performs a full lifecycle spawn (admission included) and returns
// the new instance id. Bound after construction to break the spawner ↔
// lifecycle cycle.
type SpawnFunc func(def *data.Definition, roomID, reason string) (string, bool)

// Spawner turns admitted spawn intents into runtime instances and keeps a
// bounded, priority-ordered backlog for bulk evaluation (many candidate rooms
// checked after a player moves).
type Spawner struct {
	log   *zap.Logger
	world *world.State
	ctrl  *Controller
	roll  RollFn

	capacity int
	queue    []*SpawnRequest
	nextSeq  int

	history  []SpawnResult
	trimAt   int
	keep     int
	spawnFn  SpawnFunc
	extraAct map[string]ActionHandler
	nowFn    func() time.Time
}

func NewSpawner(ctrl *Controller, ws *world.State, roll RollFn, capacity, historyTrimAt, historyKeep int, log *zap.Logger) *Spawner {
	if capacity <= 0 {
		capacity = 100
	}
	if historyTrimAt <= 0 {
		historyTrimAt = 1000
	}
	if historyKeep <= 0 || historyKeep > historyTrimAt {
		historyKeep = historyTrimAt / 2
	}
	return &Spawner{
		log:      log,
		world:    ws,
		ctrl:     ctrl,
		roll:     roll,
		capacity: capacity,
		trimAt:   historyTrimAt,
		keep:     historyKeep,
		nowFn:    time.Now,
	}
}

// Bind attaches the lifecycle spawn entry point and the extra (scripted)
// behavior actions. Called once during wiring, before the first tick.
func (s *Spawner) Bind(fn SpawnFunc, extraActions map[string]ActionHandler) {
	s.spawnFn = fn
	s.extraAct = extraActions
}

// EvaluateRequirements mirrors the controller's admission walk but returns the
// admitting rule and a computed priority per accepted candidate instead of a
// bare boolean, so bulk candidates can be ranked.
func (s *Spawner) EvaluateRequirements(def *data.Definition, zc *data.ZoneConfig, roomID string) []*SpawnRequest {
	if def == nil || zc == nil {
		return nil
	}
	zoneKey := s.ctrl.ZoneKeyForRoom(roomID)
	count := s.ctrl.countOf(zoneKey, def.ID)
	if count >= def.MaxPopulation {
		return nil
	}

	var out []*SpawnRequest
	for _, rule := range s.ctrl.rules.For(def.ID) {
		if rule.MaxPopulation > 0 && count >= rule.MaxPopulation {
			continue
		}
		if !rule.MatchesTime(s.world.Hour()) || !rule.MatchesWeather(s.world.Weather()) {
			continue
		}
		p := zc.EffectiveProbability(rule.BaseProbability(def))
		if s.roll() <= p {
			out = append(out, &SpawnRequest{
				Definition: def,
				RoomID:     roomID,
				Rule:       rule,
				Priority:   s.CalculatePriority(def, rule, zc),
				Reason:     "rule:" + rule.Name,
				Created:    s.nowFn(),
			})
		}
	}
	if len(out) == 0 && def.Required {
		out = append(out, &SpawnRequest{
			Definition: def,
			RoomID:     roomID,
			Priority:   s.CalculatePriority(def, nil, zc),
			Reason:     "required",
			Created:    s.nowFn(),
		})
	}
	return out
}

// CalculatePriority ranks a candidate: base by NPC type (shopkeepers first,
// then quest-givers, then mobs), +50 for required templates, scaled by the
// zone's spawn modifier, plus a capped bonus per player in the zone.
func (s *Spawner) CalculatePriority(def *data.Definition, rule *data.SpawnRule, zc *data.ZoneConfig) int {
	base := 0
	switch def.Type {
	case data.TypeShopkeeper:
		base = 100
	case data.TypeQuestGiver:
		base = 80
	case data.TypePassiveMob, data.TypeAggressiveMob:
		base = 50
	}
	if def.Required {
		base += 50
	}
	p := int(float64(base) * zc.SpawnMod)

	playerBonus := s.world.PlayersInZone(def.HomeZoneKey()) * 5
	if playerBonus > 25 {
		playerBonus = 25
	}
	p += playerBonus

	if rule != nil {
		p += rule.PriorityBonus
	}
	return p
}

// Queue inserts a request into the backlog, highest priority first, ties in
// insertion order. When capacity would be exceeded, the oldest lowest-priority
// entry is evicted and logged.
func (s *Spawner) Queue(req *SpawnRequest) {
	req.seq = s.nextSeq
	s.nextSeq++
	s.queue = append(s.queue, req)
	sort.SliceStable(s.queue, func(i, j int) bool {
		if s.queue[i].Priority != s.queue[j].Priority {
			return s.queue[i].Priority > s.queue[j].Priority
		}
		return s.queue[i].seq < s.queue[j].seq
	})

	if len(s.queue) <= s.capacity {
		return
	}
	// The tail holds the lowest priority; its first element (stable order) is
	// the oldest of that priority.
	evictAt := len(s.queue) - 1
	lowest := s.queue[evictAt].Priority
	for i := evictAt; i >= 0 && s.queue[i].Priority == lowest; i-- {
		evictAt = i
	}
	evicted := s.queue[evictAt]
	s.queue = append(s.queue[:evictAt], s.queue[evictAt+1:]...)
	s.log.Warn("spawn backlog full, evicting request",
		zap.String("definition", evicted.Definition.ID),
		zap.String("room", evicted.RoomID),
		zap.Int("priority", evicted.Priority))
}

// QueueLen returns the backlog depth.
func (s *Spawner) QueueLen() int {
	return len(s.queue)
}

// ProcessQueue drains the backlog in priority order, attempting a full
// lifecycle spawn for each request. Failures become failed results, never
// errors to the caller.
func (s *Spawner) ProcessQueue() []SpawnResult {
	if len(s.queue) == 0 {
		return nil
	}
	pending := s.queue
	s.queue = nil

	results := make([]SpawnResult, 0, len(pending))
	for _, req := range pending {
		res := SpawnResult{
			DefinitionID: req.Definition.ID,
			RoomID:       req.RoomID,
			When:         s.nowFn(),
			Reason:       req.Reason,
		}
		if s.spawnFn == nil {
			res.Reason = "no spawner bound"
		} else if id, ok := s.spawnFn(req.Definition, req.RoomID, req.Reason); ok {
			res.InstanceID = id
			res.Success = true
		} else {
			res.Reason = "spawn rejected"
		}
		results = append(results, res)
	}
	s.appendHistory(results)
	return results
}

// CreateInstance builds the runtime variant for a definition. An optional id
// may be supplied (respawns reuse none today; administrative tools may).
// Returns nil on an unrecognized type; never panics out of the call.
func (s *Spawner) CreateInstance(def *data.Definition, roomID, optionalID string) Instance {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("instance construction panicked",
				zap.String("definition", def.ID), zap.Any("panic", r))
		}
	}()
	id := optionalID
	if id == "" {
		id = newInstanceID(def, roomID, s.nowFn())
	}
	inst, err := NewInstance(def, roomID, id, s.extraAct, s.log)
	if err != nil {
		s.log.Error("instance construction failed",
			zap.String("definition", def.ID), zap.Error(err))
		return nil
	}
	return inst
}

// History returns a copy of the bounded spawn result history, newest last.
func (s *Spawner) History() []SpawnResult {
	out := make([]SpawnResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Spawner) appendHistory(results []SpawnResult) {
	s.history = append(s.history, results...)
	if len(s.history) > s.trimAt {
		trimmed := make([]SpawnResult, s.keep)
		copy(trimmed, s.history[len(s.history)-s.keep:])
		s.history = trimmed
	}
}
