package npc

import (
	"testing"

	"go.uber.org/zap"
)

// recordAction registers an action that appends its name to fired and
// succeeds.
func recordAction(eng *BehaviorEngine, name string, fired *[]string) {
	eng.RegisterAction(name, func(ctx map[string]any) bool {
		*fired = append(*fired, name)
		return true
	})
}

func TestBehaviorEngine_FiresHighestPriorityOnly(t *testing.T) {
	eng := NewBehaviorEngine(zap.NewNop())
	var fired []string
	recordAction(eng, "wander", &fired)
	recordAction(eng, "flee", &fired)

	eng.AddRule("patrol", "true", "wander", 3)
	eng.AddRule("flee_low_hp", "hp < 25", "flee", 8)

	ok := eng.ExecuteApplicableRules(map[string]any{"hp": 20, "enemy_nearby": true})
	if !ok {
		t.Fatal("ExecuteApplicableRules() = false, want true")
	}
	if len(fired) != 1 || fired[0] != "flee" {
		t.Errorf("fired actions = %v, want [flee]", fired)
	}
}

func TestBehaviorEngine_TieBreaksByInsertionOrder(t *testing.T) {
	eng := NewBehaviorEngine(zap.NewNop())
	var fired []string
	recordAction(eng, "first", &fired)
	recordAction(eng, "second", &fired)

	eng.AddRule("a", "true", "first", 5)
	eng.AddRule("b", "true", "second", 5)

	eng.ExecuteApplicableRules(nil)
	if len(fired) != 1 || fired[0] != "first" {
		t.Errorf("fired actions = %v, want [first]", fired)
	}
}

func TestBehaviorEngine_NoApplicableRuleSucceeds(t *testing.T) {
	eng := NewBehaviorEngine(zap.NewNop())
	eng.AddRule("never", "false", "idle", 1)

	if !eng.ExecuteApplicableRules(nil) {
		t.Error("ExecuteApplicableRules() with no applicable rule = false, want true")
	}
}

func TestBehaviorEngine_UnregisteredActionFails(t *testing.T) {
	eng := NewBehaviorEngine(zap.NewNop())
	eng.AddRule("ghost", "true", "does_not_exist", 1)

	if eng.ExecuteApplicableRules(nil) {
		t.Error("ExecuteApplicableRules() with unregistered action = true, want false")
	}
}

func TestBehaviorEngine_AddRuleReplacesInPlace(t *testing.T) {
	eng := NewBehaviorEngine(zap.NewNop())
	var fired []string
	recordAction(eng, "old", &fired)
	recordAction(eng, "new", &fired)
	recordAction(eng, "other", &fired)

	eng.AddRule("a", "true", "old", 5)
	eng.AddRule("b", "true", "other", 5)
	// Replacing rule "a" keeps its original tie-break position ahead of "b".
	eng.AddRule("a", "true", "new", 5)

	eng.ExecuteApplicableRules(nil)
	if len(fired) != 1 || fired[0] != "new" {
		t.Errorf("fired actions = %v, want [new]", fired)
	}
	if got := len(eng.Rules()); got != 2 {
		t.Errorf("len(Rules()) = %d, want 2", got)
	}
}

func TestEvalCondition(t *testing.T) {
	ctx := map[string]any{
		"hp":           20,
		"ratio":        0.5,
		"enemy_nearby": true,
		"calm":         false,
		"mood":         "angry",
	}

	tests := []struct {
		cond string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"", false},
		{"enemy_nearby", true},
		{"calm", false},
		{"missing_var", false},
		{"hp < 25", true},
		{"hp < 20", false},
		{"hp <= 20", true},
		{"hp > 19", true},
		{"hp >= 21", false},
		{"hp == 20", true},
		{"hp != 20", false},
		{"ratio < 0.6", true},
		{"enemy_nearby == true", true},
		{"enemy_nearby != false", true},
		{"mood == angry", true},
		{"mood != angry", false},
		{`mood == "angry"`, true},
		{"hp < abc", false},       // unparseable literal
		{"hp ~ 20", false},        // unknown operator
		{"hp < 20 extra", false},  // wrong arity
		{"mood < angry", false},   // ordering undefined for strings
	}
	for _, tt := range tests {
		if got := evalCondition(tt.cond, ctx); got != tt.want {
			t.Errorf("evalCondition(%q) = %v, want %v", tt.cond, got, tt.want)
		}
	}
}

func TestNewInstance_SeedsTypeRules(t *testing.T) {
	log := zap.NewNop()
	defs := testDefinitions()

	shop, err := NewInstance(&defs[0], "ashfall/market/forge", "smith_1", nil, log)
	if err != nil {
		t.Fatalf("NewInstance(shopkeeper) error = %v", err)
	}
	if got := len(shop.BehaviorRules()); got != 2 {
		t.Errorf("shopkeeper rules = %d, want 2", got)
	}

	mob, err := NewInstance(&defs[2], "mirewood/deep/hollow", "lurker_1", nil, log)
	if err != nil {
		t.Fatalf("NewInstance(aggressive_mob) error = %v", err)
	}
	if got := len(mob.BehaviorRules()); got != 3 {
		t.Errorf("aggressive mob rules = %d, want 3", got)
	}
}

func TestNewInstance_UnknownTypeErrors(t *testing.T) {
	def := testDefinitions()[0]
	def.Type = "demon_lord"
	if _, err := NewInstance(&def, "ashfall/market/forge", "x", nil, zap.NewNop()); err == nil {
		t.Error("NewInstance() with unknown type: error = nil, want non-nil")
	}
}

func TestInstance_StatsAreCopies(t *testing.T) {
	def := testDefinitions()[2]
	def.Stats = map[string]int{"hp": 40}
	inst, err := NewInstance(&def, "mirewood/deep/hollow", "lurker_2", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("NewInstance() error = %v", err)
	}
	inst.Stats()["hp"] = 0
	if got := inst.Stats()["hp"]; got != 40 {
		t.Errorf("Stats()[hp] after caller mutation = %d, want 40", got)
	}
}

func TestInstance_ExtraActionsShadowBuiltins(t *testing.T) {
	def := testDefinitions()[2]
	called := false
	extra := map[string]ActionHandler{
		"wander": func(ctx map[string]any) bool {
			called = true
			return true
		},
	}
	inst, err := NewInstance(&def, "mirewood/deep/hollow", "lurker_3", extra, zap.NewNop())
	if err != nil {
		t.Fatalf("NewInstance() error = %v", err)
	}
	if !inst.ExecuteBehavior(map[string]any{"hp": 100}) {
		t.Fatal("ExecuteBehavior() = false, want true")
	}
	if !called {
		t.Error("extra wander handler not called, builtin fired instead")
	}
}
