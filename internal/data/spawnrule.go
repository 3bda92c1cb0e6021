package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SpawnRule gates when a definition may be probability-spawned. Rules are
// walked in declaration order; the first rule whose ceiling and conditions
// hold gets the probability roll.
type SpawnRule struct {
	ID            string  `yaml:"id"`
	DefinitionID  string  `yaml:"definition_id"`
	Name          string  `yaml:"name"`
	MaxPopulation int     `yaml:"max_population"` // rule's own ceiling; 0 = no extra ceiling
	MinHour       int     `yaml:"min_hour"`       // in-game hour window, inclusive; -1 = any
	MaxHour       int     `yaml:"max_hour"`
	Weather       string  `yaml:"weather"`     // required weather tag; "" = any
	Probability   float64 `yaml:"probability"` // override; 0 = use the definition's
	PriorityBonus int     `yaml:"priority_bonus"`
}

// MatchesTime reports whether the in-game hour falls in the rule's window.
// Windows may wrap midnight (min_hour 22, max_hour 4).
func (r *SpawnRule) MatchesTime(hour int) bool {
	if r.MinHour < 0 || r.MaxHour < 0 {
		return true
	}
	if r.MinHour <= r.MaxHour {
		return hour >= r.MinHour && hour <= r.MaxHour
	}
	return hour >= r.MinHour || hour <= r.MaxHour
}

// MatchesWeather reports whether the current weather satisfies the rule.
func (r *SpawnRule) MatchesWeather(weather string) bool {
	return r.Weather == "" || r.Weather == weather
}

// BaseProbability returns the probability the roll uses: the rule override if
// set, otherwise the definition's own.
func (r *SpawnRule) BaseProbability(def *Definition) float64 {
	if r.Probability > 0 {
		return r.Probability
	}
	return def.SpawnProbability
}

type spawnRuleFile struct {
	Rules []SpawnRule `yaml:"rules"`
}

// RuleTable holds spawn rules grouped by definition ID in declaration order.
type RuleTable struct {
	byDef map[string][]*SpawnRule
	count int
}

func NewRuleTable(rules []SpawnRule) (*RuleTable, error) {
	t := &RuleTable{byDef: make(map[string][]*SpawnRule)}
	for i := range rules {
		r := &rules[i]
		if r.DefinitionID == "" {
			return nil, fmt.Errorf("spawn rule %s missing definition_id", r.ID)
		}
		if r.Probability < 0 || r.Probability > 1 {
			return nil, fmt.Errorf("spawn rule %s: probability must be in [0,1], got %g", r.ID, r.Probability)
		}
		t.byDef[r.DefinitionID] = append(t.byDef[r.DefinitionID], r)
		t.count++
	}
	return t, nil
}

// LoadRuleTable loads spawn rules from a YAML file.
func LoadRuleTable(path string) (*RuleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spawn_rules: %w", err)
	}
	var f spawnRuleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse spawn_rules: %w", err)
	}
	return NewRuleTable(f.Rules)
}

// For returns the rules for a definition in declaration order, or nil.
func (t *RuleTable) For(definitionID string) []*SpawnRule {
	return t.byDef[definitionID]
}

// Count returns the number of loaded rules.
func (t *RuleTable) Count() int {
	return t.count
}
