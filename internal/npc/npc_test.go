package npc

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/embermud/server/internal/config"
	"github.com/embermud/server/internal/core/event"
	"github.com/embermud/server/internal/data"
	"github.com/embermud/server/internal/world"
)

// rollSeq returns a RollFn replaying the given values, repeating the last one.
func rollSeq(vals ...float64) RollFn {
	i := 0
	return func() float64 {
		v := vals[i]
		if i < len(vals)-1 {
			i++
		}
		return v
	}
}

// neverRoll refuses every probability roll.
func neverRoll() float64 { return 1.1 }

// testClock replaces time.Now for deterministic lifecycle tests.
type testClock struct{ now time.Time }

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testPopConfig() config.PopulationConfig {
	return config.PopulationConfig{
		DeathSuppression:   30 * time.Second,
		RespawnDelay:       60 * time.Second,
		MaxRespawnAttempts: 5,
		SpawnQueueCapacity: 10,
		MaintenanceEvery:   time.Minute,
		RollMinInterval:    5 * time.Minute,
		RecordRetention:    time.Hour,
		HistoryTrimAt:      100,
		HistoryKeep:        50,
	}
}

func testDefinitions() []data.Definition {
	return []data.Definition{
		{
			ID: "market_smith", Name: "Smith", Type: data.TypeShopkeeper,
			Zone: "ashfall", Subzone: "market", DefaultRoom: "ashfall/market/forge",
			Required: true, MaxPopulation: 1, SpawnProbability: 1.0,
		},
		{
			ID: "market_rat", Name: "Rat", Type: data.TypePassiveMob,
			Zone: "ashfall", Subzone: "market", DefaultRoom: "ashfall/market/alley",
			MaxPopulation: 3, SpawnProbability: 0.3,
		},
		{
			ID: "bog_lurker", Name: "Lurker", Type: data.TypeAggressiveMob,
			Zone: "mirewood", Subzone: "deep", DefaultRoom: "mirewood/deep/hollow",
			MaxPopulation: 2, SpawnProbability: 0.5, RespawnDelay: 120,
		},
	}
}

func testRules() []data.SpawnRule {
	return []data.SpawnRule{
		{ID: "r1", DefinitionID: "market_rat", Name: "day_scurry", MinHour: -1, MaxHour: -1},
		{ID: "r2", DefinitionID: "bog_lurker", Name: "bog_stalk", MinHour: -1, MaxHour: -1},
	}
}

func testZones() []data.ZoneConfig {
	return []data.ZoneConfig{
		{
			Zone: "ashfall", Subzone: "market", SpawnMod: 1.0,
			Rooms: []string{"ashfall/market/forge", "ashfall/market/alley", "ashfall/market/square"},
		},
		{
			Zone: "mirewood", Subzone: "deep", SpawnMod: 1.0,
			Rooms: []string{"mirewood/deep/hollow"},
		},
	}
}

type fixture struct {
	t       *testing.T
	clock   *testClock
	bus     *event.Bus
	world   *world.State
	defs    *data.DefinitionTable
	ctrl    *Controller
	spawner *Spawner
	life    *Lifecycle
}

func newFixture(t *testing.T, roll RollFn) *fixture {
	t.Helper()
	return newFixtureWith(t, roll, testDefinitions(), testRules(), testZones())
}

func newFixtureWith(t *testing.T, roll RollFn, defList []data.Definition, ruleList []data.SpawnRule, zoneList []data.ZoneConfig) *fixture {
	t.Helper()
	log := zap.NewNop()

	defs, err := data.NewDefinitionTable(defList)
	if err != nil {
		t.Fatalf("NewDefinitionTable() error = %v", err)
	}
	rules, err := data.NewRuleTable(ruleList)
	if err != nil {
		t.Fatalf("NewRuleTable() error = %v", err)
	}
	zones, err := data.NewZoneTable(zoneList)
	if err != nil {
		t.Fatalf("NewZoneTable() error = %v", err)
	}

	bus := event.NewBus()
	ws := world.NewState(bus, config.WorldConfig{DayLength: 24 * time.Hour}, log)
	ws.RegisterRooms(zones)

	clock := newTestClock()
	ctrl := NewController(zones, rules, ws, roll, log)
	spawner := NewSpawner(ctrl, ws, roll, 10, 100, 50, log)
	spawner.nowFn = clock.Now
	life := NewLifecycle(testPopConfig(), ws, ctrl, spawner, defs, bus, log)
	life.nowFn = clock.Now
	spawner.Bind(life.Spawn, nil)
	life.Subscribe()

	return &fixture{
		t: t, clock: clock, bus: bus, world: ws,
		defs: defs, ctrl: ctrl, spawner: spawner, life: life,
	}
}

func (f *fixture) def(id string) *data.Definition {
	f.t.Helper()
	d := f.defs.Get(id)
	if d == nil {
		f.t.Fatalf("definition %s not in fixture", id)
	}
	return d
}

// spawnActive spawns a definition and pumps the bus so the instance reaches
// the active state.
func (f *fixture) spawnActive(defID, roomID string) string {
	f.t.Helper()
	id, ok := f.life.Spawn(f.def(defID), roomID, "test")
	if !ok {
		f.t.Fatalf("Spawn(%s, %s) refused", defID, roomID)
	}
	f.bus.Pump()
	return id
}
