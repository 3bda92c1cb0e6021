package npc

import (
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// ActionHandler executes a behavior action against the rule context and
// reports whether it succeeded.
type ActionHandler func(ctx map[string]any) bool

// BehaviorRule pairs a condition expression with an action. Conditions are a
// closed grammar: `true`/`false`, a bare boolean variable, or
// `<var> <op> <literal>` with op one of == != < > <= >=.
type BehaviorRule struct {
	Name      string
	Condition string
	Action    string
	Priority  int
	seq       int
}

// BehaviorEngine evaluates a rule set for one NPC instance. Each evaluation
// pass fires at most one action: the highest-priority applicable rule, ties
// broken by first-added. That single-action guarantee is what keeps instance
// behavior deterministic.
type BehaviorEngine struct {
	log     *zap.Logger
	rules   []BehaviorRule
	actions map[string]ActionHandler
	nextSeq int
}

func NewBehaviorEngine(log *zap.Logger) *BehaviorEngine {
	return &BehaviorEngine{
		log:     log,
		actions: make(map[string]ActionHandler),
	}
}

// AddRule adds a rule. Re-adding a rule with the same name replaces the old
// one in place, keeping its original position for tie-breaking.
func (e *BehaviorEngine) AddRule(name, condition, action string, priority int) {
	for i := range e.rules {
		if e.rules[i].Name == name {
			seq := e.rules[i].seq
			e.rules[i] = BehaviorRule{Name: name, Condition: condition, Action: action, Priority: priority, seq: seq}
			return
		}
	}
	e.rules = append(e.rules, BehaviorRule{Name: name, Condition: condition, Action: action, Priority: priority, seq: e.nextSeq})
	e.nextSeq++
}

// RegisterAction binds an action name to its handler.
func (e *BehaviorEngine) RegisterAction(name string, h ActionHandler) {
	e.actions[name] = h
}

// Rules returns a copy of the current rule set.
func (e *BehaviorEngine) Rules() []BehaviorRule {
	out := make([]BehaviorRule, len(e.rules))
	copy(out, e.rules)
	return out
}

// ExecuteApplicableRules evaluates every rule against ctx and fires the single
// highest-priority applicable rule's action. No applicable rule is a trivial
// success. An unregistered action is a failed execution, never a panic.
func (e *BehaviorEngine) ExecuteApplicableRules(ctx map[string]any) bool {
	var applicable []BehaviorRule
	for _, r := range e.rules {
		if evalCondition(r.Condition, ctx) {
			applicable = append(applicable, r)
		}
	}
	if len(applicable) == 0 {
		return true
	}
	sort.SliceStable(applicable, func(i, j int) bool {
		if applicable[i].Priority != applicable[j].Priority {
			return applicable[i].Priority > applicable[j].Priority
		}
		return applicable[i].seq < applicable[j].seq
	})
	top := applicable[0]
	h, ok := e.actions[top.Action]
	if !ok {
		e.log.Warn("behavior rule names unregistered action",
			zap.String("rule", top.Name), zap.String("action", top.Action))
		return false
	}
	return h(ctx)
}

// evalCondition evaluates one condition expression. A condition that fails to
// parse evaluates to false for that rule, not an error.
func evalCondition(cond string, ctx map[string]any) bool {
	cond = strings.TrimSpace(cond)
	switch cond {
	case "", "false":
		return false
	case "true":
		return true
	}

	fields := strings.Fields(cond)
	switch len(fields) {
	case 1:
		// Bare boolean variable lookup.
		v, ok := ctx[fields[0]]
		if !ok {
			return false
		}
		b, ok := v.(bool)
		return ok && b
	case 3:
		return evalComparison(fields[0], fields[1], fields[2], ctx)
	default:
		return false
	}
}

func evalComparison(name, op, lit string, ctx map[string]any) bool {
	v, ok := ctx[name]
	if !ok {
		return false
	}

	if n, isNum := toFloat(v); isNum {
		want, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return false
		}
		switch op {
		case "==":
			return n == want
		case "!=":
			return n != want
		case "<":
			return n < want
		case ">":
			return n > want
		case "<=":
			return n <= want
		case ">=":
			return n >= want
		}
		return false
	}

	if b, isBool := v.(bool); isBool {
		want, err := strconv.ParseBool(lit)
		if err != nil {
			return false
		}
		switch op {
		case "==":
			return b == want
		case "!=":
			return b != want
		}
		return false
	}

	if s, isStr := v.(string); isStr {
		lit = strings.Trim(lit, `"'`)
		switch op {
		case "==":
			return s == lit
		case "!=":
			return s != lit
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
