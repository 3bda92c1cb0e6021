package npc

import (
	"sort"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/data"
	"github.com/embermud/server/internal/world"
)

// RollFn returns one uniform sample in [0,1). Injected so admission tests can
// pin the probability draw.
type RollFn func() float64

// Stats tracks live NPC counts for one zone-key. Mutated only through add and
// remove, driven by the authoritative NPC entered/left event stream. Counts
// saturate at zero; despawn-before-spawn ordering cannot drive them negative.
type Stats struct {
	Total        int
	ByType       map[data.NPCType]int
	ByDefinition map[string]int
	ByRoom       map[string]int
	Required     int
	Optional     int
}

func newStats() *Stats {
	return &Stats{
		ByType:       make(map[data.NPCType]int),
		ByDefinition: make(map[string]int),
		ByRoom:       make(map[string]int),
	}
}

func (s *Stats) add(def *data.Definition, roomID string) {
	s.Total++
	s.ByType[def.Type]++
	s.ByDefinition[def.ID]++
	s.ByRoom[roomID]++
	if def.Required {
		s.Required++
	} else {
		s.Optional++
	}
}

func (s *Stats) remove(def *data.Definition, roomID string) {
	s.Total = satDec(s.Total)
	s.ByType[def.Type] = satDec(s.ByType[def.Type])
	s.ByDefinition[def.ID] = satDec(s.ByDefinition[def.ID])
	s.ByRoom[roomID] = satDec(s.ByRoom[roomID])
	if def.Required {
		s.Required = satDec(s.Required)
	} else {
		s.Optional = satDec(s.Optional)
	}
}

func satDec(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}

// snapshot returns a deep copy for monitoring callers.
func (s *Stats) snapshot() Stats {
	out := Stats{
		Total:        s.Total,
		Required:     s.Required,
		Optional:     s.Optional,
		ByType:       make(map[data.NPCType]int, len(s.ByType)),
		ByDefinition: make(map[string]int, len(s.ByDefinition)),
		ByRoom:       make(map[string]int, len(s.ByRoom)),
	}
	for k, v := range s.ByType {
		out.ByType[k] = v
	}
	for k, v := range s.ByDefinition {
		out.ByDefinition[k] = v
	}
	for k, v := range s.ByRoom {
		out.ByRoom[k] = v
	}
	return out
}

// Controller answers "may template T spawn into room R right now" and owns the
// per-zone population statistics that make the answer possible. It is the only
// mutator of those statistics.
type Controller struct {
	log   *zap.Logger
	zones *data.ZoneTable
	rules *data.RuleTable
	world *world.State
	roll  RollFn

	stats map[string]*Stats // zone-key → stats, created lazily on first spawn
}

func NewController(zones *data.ZoneTable, rules *data.RuleTable, ws *world.State, roll RollFn, log *zap.Logger) *Controller {
	return &Controller{
		log:   log,
		zones: zones,
		rules: rules,
		world: ws,
		roll:  roll,
		stats: make(map[string]*Stats),
	}
}

// ZoneKeyForRoom parses a room id down to its zone-key; malformed ids map to
// the "unknown/unknown" sentinel.
func (c *Controller) ZoneKeyForRoom(roomID string) string {
	return world.ZoneKeyForRoom(roomID)
}

// ZoneConfig resolves zone configuration for a zone-key, falling back from
// "zone/subzone" to the zone-wide entry. Nil when neither is configured.
func (c *Controller) ZoneConfig(zoneKey string) *data.ZoneConfig {
	return c.zones.Lookup(zoneKey)
}

// ShouldSpawn runs the admission policy for a template targeting a room:
// population ceiling first, then the spawn-rule walk with one probability roll
// per eligible rule, then the unconditional required-template fallback.
// Absent zone configuration rejects every template for that room.
func (c *Controller) ShouldSpawn(def *data.Definition, zc *data.ZoneConfig, roomID string) bool {
	if def == nil {
		return false
	}
	if zc == nil {
		c.log.Debug("no zone configuration, spawn skipped",
			zap.String("definition", def.ID), zap.String("room", roomID))
		return false
	}

	zoneKey := c.ZoneKeyForRoom(roomID)
	count := c.countOf(zoneKey, def.ID)
	if count >= def.MaxPopulation {
		return false
	}

	admitted := false
	for _, rule := range c.rules.For(def.ID) {
		if rule.MaxPopulation > 0 && count >= rule.MaxPopulation {
			continue
		}
		if !rule.MatchesTime(c.world.Hour()) || !rule.MatchesWeather(c.world.Weather()) {
			continue
		}
		p := zc.EffectiveProbability(rule.BaseProbability(def))
		if c.roll() <= p {
			admitted = true
			break
		}
	}
	if admitted {
		return true
	}

	// Required templates self-heal regardless of probability, subject only to
	// the ceiling checked above.
	return def.Required
}

// RecordSpawn updates population statistics for one real spawn. Called exactly
// once per spawn, keyed off the room mutation actually taking effect.
func (c *Controller) RecordSpawn(def *data.Definition, roomID string) {
	zoneKey := c.ZoneKeyForRoom(roomID)
	st, ok := c.stats[zoneKey]
	if !ok {
		st = newStats()
		c.stats[zoneKey] = st
	}
	st.add(def, roomID)
}

// RecordDespawn updates population statistics for one real despawn. A despawn
// for an untracked zone-key is a saturating no-op.
func (c *Controller) RecordDespawn(def *data.Definition, roomID string) {
	zoneKey := c.ZoneKeyForRoom(roomID)
	st, ok := c.stats[zoneKey]
	if !ok {
		return
	}
	st.remove(def, roomID)
}

func (c *Controller) countOf(zoneKey, definitionID string) int {
	st, ok := c.stats[zoneKey]
	if !ok {
		return 0
	}
	return st.ByDefinition[definitionID]
}

// StatsFor returns a defensive copy of a zone-key's statistics. The second
// return is false when no spawn has ever touched the zone-key.
func (c *Controller) StatsFor(zoneKey string) (Stats, bool) {
	st, ok := c.stats[zoneKey]
	if !ok {
		return Stats{}, false
	}
	return st.snapshot(), true
}

// ZoneKeys returns the zone-keys with live statistics, sorted.
func (c *Controller) ZoneKeys() []string {
	keys := make([]string, 0, len(c.stats))
	for k := range c.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
