package npc

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/config"
	"github.com/embermud/server/internal/core/event"
	"github.com/embermud/server/internal/data"
	"github.com/embermud/server/internal/world"
)

// LifecycleState is the per-instance state machine:
// SPAWNING → ACTIVE → DESPAWNING → DESPAWNED → RESPAWNING → (SPAWNING again
// via a fresh record), with ERROR reachable from any step.
type LifecycleState string

const (
	StateSpawning   LifecycleState = "SPAWNING"
	StateActive     LifecycleState = "ACTIVE"
	StateDespawning LifecycleState = "DESPAWNING"
	StateDespawned  LifecycleState = "DESPAWNED"
	StateRespawning LifecycleState = "RESPAWNING"
	StateError      LifecycleState = "ERROR"
)

func (s LifecycleState) terminal() bool {
	return s == StateDespawned || s == StateError
}

// RecordEvent is one entry in a record's append-only event log.
type RecordEvent struct {
	At    time.Time
	State LifecycleState
	Note  string
}

// Record is the lifecycle history of one NPC instance id. Owned exclusively
// by the Lifecycle manager. Retained after death so downstream systems can
// still resolve template data for a dead instance; pruned only once terminal
// and older than the retention threshold.
type Record struct {
	InstanceID   string
	Definition   *data.Definition
	State        LifecycleState
	Created      time.Time
	Updated      time.Time
	Events       []RecordEvent
	SpawnCount   int
	DespawnCount int
	ErrorCount   int
	ActiveTime   time.Duration
	LastRoom     string

	activeSince time.Time
}

func (r *Record) transition(now time.Time, state LifecycleState, note string) {
	r.State = state
	r.Updated = now
	r.Events = append(r.Events, RecordEvent{At: now, State: state, Note: note})
}

type respawnEntry struct {
	InstanceID  string
	Definition  *data.Definition
	RoomID      string
	ScheduledAt time.Time
	Reason      string
	Attempts    int
}

// MaintenanceReport summarizes one periodic maintenance pass.
type MaintenanceReport struct {
	Respawned      int
	Spawned        int
	SpawnChecks    int
	CleanedRecords int
}

// SystemStats is a monitoring snapshot of the lifecycle machinery.
type SystemStats struct {
	Active       int
	Records      int
	ByState      map[LifecycleState]int
	RespawnQueue int
	Suppressed   int
}

// Lifecycle is the authoritative registry of live NPC instances and the state
// machine governing each instance's existence. Its active map is the only
// place other subsystems may ask "is NPC X currently alive".
type Lifecycle struct {
	log     *zap.Logger
	cfg     config.PopulationConfig
	world   *world.State
	ctrl    *Controller
	spawner *Spawner
	defs    *data.DefinitionTable
	bus     *event.Bus

	active   map[string]Instance
	records  map[string]*Record
	deaths   map[string]time.Time // instance id → death timestamp (suppression)
	queue    []*respawnEntry
	lastRoll map[string]time.Time // definition id → last probability check

	nowFn func() time.Time
}

func NewLifecycle(cfg config.PopulationConfig, ws *world.State, ctrl *Controller, spawner *Spawner, defs *data.DefinitionTable, bus *event.Bus, log *zap.Logger) *Lifecycle {
	l := &Lifecycle{
		log:      log,
		cfg:      cfg,
		world:    ws,
		ctrl:     ctrl,
		spawner:  spawner,
		defs:     defs,
		bus:      bus,
		active:   make(map[string]Instance),
		records:  make(map[string]*Record),
		deaths:   make(map[string]time.Time),
		lastRoll: make(map[string]time.Time),
		nowFn:    time.Now,
	}
	return l
}

// Subscribe attaches the lifecycle's event handlers to the bus. Called once
// during wiring; handlers run on the game loop goroutine.
func (l *Lifecycle) Subscribe() {
	event.Subscribe(l.bus, l.handleNpcEntered)
	event.Subscribe(l.bus, l.handleNpcDied)
	event.Subscribe(l.bus, l.handlePlayerEntered)
}

// ── Spawning ──────────────────────────────────────────────────────

// Spawn admits and performs a spawn of the definition into the room. Returns
// the new instance id, or ok=false on admission refusal or failure.
func (l *Lifecycle) Spawn(def *data.Definition, roomID, reason string) (string, bool) {
	if def == nil {
		return "", false
	}
	zc := l.ctrl.ZoneConfig(l.ctrl.ZoneKeyForRoom(roomID))
	if !l.ctrl.ShouldSpawn(def, zc, roomID) {
		return "", false
	}
	return l.doSpawn(def, roomID, reason)
}

// ForceSpawn bypasses admission for administrative callers. Population
// statistics still update through the normal event stream.
func (l *Lifecycle) ForceSpawn(def *data.Definition, roomID, reason string) (string, bool) {
	if def == nil {
		return "", false
	}
	return l.doSpawn(def, roomID, "force:"+reason)
}

func (l *Lifecycle) doSpawn(def *data.Definition, roomID, reason string) (string, bool) {
	room := l.world.GetRoom(roomID)
	if room == nil {
		// No residue: the room lookup precedes record creation.
		l.log.Warn("spawn into unknown room",
			zap.String("definition", def.ID), zap.String("room", roomID))
		return "", false
	}

	now := l.nowFn()
	id := newInstanceID(def, roomID, now)
	rec := &Record{
		InstanceID: id,
		Definition: def,
		Created:    now,
		LastRoom:   roomID,
	}
	rec.transition(now, StateSpawning, reason)
	l.records[id] = rec

	inst := l.spawner.CreateInstance(def, roomID, id)
	if inst == nil {
		rec.ErrorCount++
		rec.transition(now, StateError, "instance construction failed")
		l.log.Error("spawn failed during construction",
			zap.String("instance", id), zap.String("definition", def.ID))
		return "", false
	}

	l.active[id] = inst
	// The room is the single point that decides to publish NPCEnteredRoom;
	// the resulting event flips the record to ACTIVE. Statistics update off
	// the room's own mutation result so they hold exactly once per real
	// spawn even when several spawns land in the same tick.
	if room.NpcEntered(id) {
		l.ctrl.RecordSpawn(def, roomID)
	}
	l.log.Info("npc spawning",
		zap.String("instance", id),
		zap.String("definition", def.ID),
		zap.String("room", roomID),
		zap.String("reason", reason))
	return id, true
}

// Despawn removes a live instance. Unknown ids return false, never an error.
func (l *Lifecycle) Despawn(instanceID, reason string) bool {
	inst, ok := l.active[instanceID]
	if !ok {
		l.log.Debug("despawn of unknown instance", zap.String("instance", instanceID))
		return false
	}
	now := l.nowFn()
	rec := l.records[instanceID]
	rec.transition(now, StateDespawning, reason)

	delete(l.active, instanceID)
	if l.leaveRoom(instanceID, inst.Room()) {
		l.ctrl.RecordDespawn(rec.Definition, inst.Room())
	}

	rec.DespawnCount++
	l.accumulateActive(rec, now)
	rec.transition(now, StateDespawned, reason)
	l.log.Info("npc despawned",
		zap.String("instance", instanceID), zap.String("reason", reason))
	return true
}

// leaveRoom funnels room departure through the room's own mutation API and
// reports whether a real departure happened. When the room lookup is
// unavailable the left event is emitted directly — the documented fallback.
func (l *Lifecycle) leaveRoom(instanceID, roomID string) bool {
	if room := l.world.GetRoom(roomID); room != nil {
		return room.NpcLeft(instanceID)
	}
	l.log.Warn("room missing on departure, emitting directly",
		zap.String("instance", instanceID), zap.String("room", roomID))
	event.Emit(l.bus, event.NPCLeftRoom{NPCID: instanceID, RoomID: roomID})
	return true
}

// ── Death suppression and respawn ─────────────────────────────────

// RecordDeath marks the death-suppression timestamp for an instance id.
// Respawn attempts inside the window are refused.
func (l *Lifecycle) RecordDeath(instanceID string) {
	l.deaths[instanceID] = l.nowFn()
}

// suppressed reports whether the id is inside its death-suppression window.
// At exactly the expiry instant suppression is lifted; expired entries are
// dropped on the way out.
func (l *Lifecycle) suppressed(instanceID string) bool {
	died, ok := l.deaths[instanceID]
	if !ok {
		return false
	}
	if l.nowFn().Before(died.Add(l.cfg.DeathSuppression)) {
		return true
	}
	delete(l.deaths, instanceID)
	return false
}

// Respawn schedules a delayed respawn for a previously despawned instance.
// Refused for unknown ids, while death suppression is active, or when an
// entry for the id is already queued. delay <= 0 selects the per-template
// override, falling back to the global default.
func (l *Lifecycle) Respawn(instanceID string, delay time.Duration, reason string) bool {
	rec, ok := l.records[instanceID]
	if !ok {
		l.log.Warn("respawn of unknown instance", zap.String("instance", instanceID))
		return false
	}
	if l.suppressed(instanceID) {
		l.log.Debug("respawn refused, death suppression active",
			zap.String("instance", instanceID))
		return false
	}
	if l.queuedInstance(instanceID) {
		l.log.Debug("respawn refused, already queued",
			zap.String("instance", instanceID))
		return false
	}
	l.enqueueRespawn(rec, delay, reason)
	return true
}

func (l *Lifecycle) enqueueRespawn(rec *Record, delay time.Duration, reason string) {
	if delay <= 0 {
		delay = l.respawnDelayFor(rec.Definition)
	}
	now := l.nowFn()
	l.queue = append(l.queue, &respawnEntry{
		InstanceID:  rec.InstanceID,
		Definition:  rec.Definition,
		RoomID:      rec.LastRoom,
		ScheduledAt: now.Add(delay),
		Reason:      reason,
	})
	rec.transition(now, StateRespawning, fmt.Sprintf("respawn queued (%s)", reason))
	l.log.Debug("respawn scheduled",
		zap.String("instance", rec.InstanceID),
		zap.String("definition", rec.Definition.ID),
		zap.Duration("delay", delay))
}

func (l *Lifecycle) respawnDelayFor(def *data.Definition) time.Duration {
	if d := def.RespawnOverride(); d > 0 {
		return d
	}
	return l.cfg.RespawnDelay
}

func (l *Lifecycle) queuedInstance(instanceID string) bool {
	for _, e := range l.queue {
		if e.InstanceID == instanceID {
			return true
		}
	}
	return false
}

func (l *Lifecycle) queuedDefinition(definitionID string) bool {
	for _, e := range l.queue {
		if e.Definition.ID == definitionID {
			return true
		}
	}
	return false
}

// ProcessRespawnQueue attempts every queued entry whose scheduled time has
// elapsed, re-validating admission through the same policy as fresh spawns.
// A failed attempt increments the counter; entries at the attempt bound are
// dropped with a warning, never escalated.
func (l *Lifecycle) ProcessRespawnQueue() int {
	now := l.nowFn()
	respawned := 0
	kept := l.queue[:0]
	for _, e := range l.queue {
		if e.ScheduledAt.After(now) {
			kept = append(kept, e)
			continue
		}
		if e.Attempts >= l.cfg.MaxRespawnAttempts {
			l.dropExhausted(e)
			continue
		}
		if newID, ok := l.Spawn(e.Definition, e.RoomID, "respawn:"+e.Reason); ok {
			respawned++
			if rec := l.records[e.InstanceID]; rec != nil {
				rec.transition(now, StateDespawned, "respawned as "+newID)
			}
			continue
		}
		e.Attempts++
		if e.Attempts >= l.cfg.MaxRespawnAttempts {
			l.dropExhausted(e)
			continue
		}
		kept = append(kept, e)
	}
	l.queue = kept
	return respawned
}

func (l *Lifecycle) dropExhausted(e *respawnEntry) {
	l.log.Warn("respawn attempts exhausted, dropping entry",
		zap.String("instance", e.InstanceID),
		zap.String("definition", e.Definition.ID),
		zap.Int("attempts", e.Attempts))
	if rec := l.records[e.InstanceID]; rec != nil {
		rec.transition(l.nowFn(), StateDespawned, "respawn exhausted")
	}
}

// RespawnQueueLen returns the number of pending respawn entries.
func (l *Lifecycle) RespawnQueueLen() int {
	return len(l.queue)
}

// ── Periodic maintenance ──────────────────────────────────────────

// PeriodicMaintenance runs on a fixed external cadence: drain the respawn
// queue, re-roll spawn probability for stale optional templates, then prune
// old terminal records. A failure in the re-roll pass is reported as
// zero-effect and never aborts the queue drain that precedes it.
func (l *Lifecycle) PeriodicMaintenance() MaintenanceReport {
	var rep MaintenanceReport
	rep.Respawned = l.ProcessRespawnQueue()
	rep.Spawned, rep.SpawnChecks = l.rollOptionalTemplates()
	rep.CleanedRecords = l.pruneRecords()
	return rep
}

// rollOptionalTemplates re-rolls spawn probability for optional templates not
// checked within the minimum interval. Templates with a queued respawn are
// skipped so a lucky roll cannot bypass their respawn delay.
func (l *Lifecycle) rollOptionalTemplates() (spawned, checks int) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("probability re-roll pass failed", zap.Any("panic", r))
			spawned, checks = 0, 0
		}
	}()

	now := l.nowFn()
	for _, def := range l.defs.All() {
		if def.Required {
			continue
		}
		if l.queuedDefinition(def.ID) {
			continue
		}
		if last, ok := l.lastRoll[def.ID]; ok && now.Sub(last) < l.cfg.RollMinInterval {
			continue
		}
		l.lastRoll[def.ID] = now
		checks++
		if _, ok := l.Spawn(def, def.DefaultRoom, "maintenance roll"); ok {
			spawned++
		}
	}
	return spawned, checks
}

// pruneRecords drops terminal records older than the retention threshold.
// Records with a live instance or a queued respawn are never pruned.
func (l *Lifecycle) pruneRecords() int {
	now := l.nowFn()
	cleaned := 0
	for id, rec := range l.records {
		if !rec.State.terminal() {
			continue
		}
		if _, alive := l.active[id]; alive {
			continue
		}
		if l.queuedInstance(id) {
			continue
		}
		if now.Sub(rec.Updated) > l.cfg.RecordRetention {
			delete(l.records, id)
			delete(l.deaths, id)
			cleaned++
		}
	}
	return cleaned
}

// ── Event handlers ────────────────────────────────────────────────

func (l *Lifecycle) handleNpcEntered(ev event.NPCEnteredRoom) {
	rec, ok := l.records[ev.NPCID]
	if !ok {
		return
	}
	now := l.nowFn()
	if rec.State == StateSpawning {
		rec.transition(now, StateActive, "entered "+ev.RoomID)
		rec.SpawnCount++
		rec.activeSince = now
	}
	rec.LastRoom = ev.RoomID
}

// handleNpcDied removes the instance, keeps its record, marks death
// suppression, and unconditionally queues a delayed respawn. Required and
// optional templates take the same delay — there is no immediate-respawn
// special case for required templates.
func (l *Lifecycle) handleNpcDied(ev event.NPCDied) {
	rec, ok := l.records[ev.NPCID]
	if !ok {
		l.log.Debug("death event for unknown instance", zap.String("instance", ev.NPCID))
		return
	}
	now := l.nowFn()
	if inst, alive := l.active[ev.NPCID]; alive {
		delete(l.active, ev.NPCID)
		if l.leaveRoom(ev.NPCID, inst.Room()) {
			l.ctrl.RecordDespawn(rec.Definition, inst.Room())
		}
		rec.DespawnCount++
		l.accumulateActive(rec, now)
	}
	rec.transition(now, StateDespawned, "died: "+ev.Cause)
	l.RecordDeath(ev.NPCID)
	if !l.queuedInstance(ev.NPCID) {
		l.enqueueRespawn(rec, 0, "death")
	}
	l.log.Info("npc died",
		zap.String("instance", ev.NPCID),
		zap.String("room", ev.RoomID),
		zap.String("cause", ev.Cause))
}

// handlePlayerEntered runs the bulk admission sweep for templates homed in
// the room's zone, queuing prioritized spawn requests for the backlog drain.
func (l *Lifecycle) handlePlayerEntered(ev event.PlayerEnteredRoom) {
	zoneKey := l.ctrl.ZoneKeyForRoom(ev.RoomID)
	zc := l.ctrl.ZoneConfig(zoneKey)
	if zc == nil {
		return
	}
	for _, def := range l.defs.ForZone(zoneKey) {
		target := def.DefaultRoom
		if target == "" {
			target = ev.RoomID
		}
		for _, req := range l.spawner.EvaluateRequirements(def, zc, target) {
			l.spawner.Queue(req)
		}
	}
}

// ── Queries ───────────────────────────────────────────────────────

// IsAlive reports whether the instance id is currently in the active set.
func (l *Lifecycle) IsAlive(instanceID string) bool {
	_, ok := l.active[instanceID]
	return ok
}

// Instance returns the live instance, or nil.
func (l *Lifecycle) Instance(instanceID string) Instance {
	return l.active[instanceID]
}

// ActiveCount returns the number of live instances.
func (l *Lifecycle) ActiveCount() int {
	return len(l.active)
}

// DefinitionFor resolves the originating definition for an instance id,
// working for dead instances too as long as the record survives. Reward
// calculation depends on this surviving the death→respawn boundary.
func (l *Lifecycle) DefinitionFor(instanceID string) *data.Definition {
	rec, ok := l.records[instanceID]
	if !ok {
		return nil
	}
	return rec.Definition
}

// RecordSnapshot returns a copy of an instance's lifecycle record.
func (l *Lifecycle) RecordSnapshot(instanceID string) (Record, bool) {
	rec, ok := l.records[instanceID]
	if !ok {
		return Record{}, false
	}
	out := *rec
	out.Events = make([]RecordEvent, len(rec.Events))
	copy(out.Events, rec.Events)
	return out, true
}

// ExecuteBehavior runs one rule-evaluation pass for a live instance. Unknown
// or dead instances report failure.
func (l *Lifecycle) ExecuteBehavior(instanceID string, ctx map[string]any) bool {
	inst, ok := l.active[instanceID]
	if !ok {
		return false
	}
	return inst.ExecuteBehavior(ctx)
}

// Stats returns a monitoring snapshot. The maps are fresh copies.
func (l *Lifecycle) Stats() SystemStats {
	st := SystemStats{
		Active:       len(l.active),
		Records:      len(l.records),
		ByState:      make(map[LifecycleState]int),
		RespawnQueue: len(l.queue),
		Suppressed:   len(l.deaths),
	}
	for _, rec := range l.records {
		st.ByState[rec.State]++
	}
	return st
}

func (l *Lifecycle) accumulateActive(rec *Record, now time.Time) {
	if !rec.activeSince.IsZero() {
		rec.ActiveTime += now.Sub(rec.activeSince)
		rec.activeSince = time.Time{}
	}
}

// newInstanceID allocates a collision-resistant (not cryptographically
// secure) instance id: definition + room leaf + timestamp + random suffix.
func newInstanceID(def *data.Definition, roomID string, now time.Time) string {
	leaf := roomID
	if i := strings.LastIndexByte(roomID, '/'); i >= 0 {
		leaf = roomID[i+1:]
	}
	return fmt.Sprintf("%s_%s_%d_%04x", def.ID, leaf, now.UnixMilli(), rand.Intn(0x10000))
}
