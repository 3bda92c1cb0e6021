package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/embermud/server/internal/npc"
)

// Engine wraps a single gopher-lua VM holding scripted behavior actions.
// Single-goroutine access only (game loop). Scripts live in
// <scriptsDir>/behavior/*.lua and register handlers into the global
// `actions` table:
//
//	actions.taunt = function(ctx)
//	  return ctx.enemy_nearby == true
//	end
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates the VM and loads every behavior script. A missing scripts
// directory is not an error.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	vm.SetGlobal("actions", vm.NewTable())

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "behavior")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load behavior scripts: %w", err)
	}
	return e, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Actions bridges every scripted action into a behavior handler map. A Lua
// error inside a handler is logged and reported as a failed execution, never
// a panic into the rule engine.
func (e *Engine) Actions() map[string]npc.ActionHandler {
	out := make(map[string]npc.ActionHandler)
	tbl, ok := e.vm.GetGlobal("actions").(*lua.LTable)
	if !ok {
		return out
	}
	tbl.ForEach(func(key, value lua.LValue) {
		name, isStr := key.(lua.LString)
		fn, isFn := value.(*lua.LFunction)
		if !isStr || !isFn {
			return
		}
		out[string(name)] = e.bind(string(name), fn)
	})
	return out
}

func (e *Engine) bind(name string, fn *lua.LFunction) npc.ActionHandler {
	return func(ctx map[string]any) bool {
		e.vm.Push(fn)
		e.vm.Push(e.contextTable(ctx))
		if err := e.vm.PCall(1, 1, nil); err != nil {
			e.log.Warn("lua action failed", zap.String("action", name), zap.Error(err))
			return false
		}
		ret := e.vm.Get(-1)
		e.vm.Pop(1)
		return lua.LVAsBool(ret)
	}
}

func (e *Engine) contextTable(ctx map[string]any) *lua.LTable {
	tbl := e.vm.NewTable()
	for k, v := range ctx {
		switch val := v.(type) {
		case bool:
			tbl.RawSetString(k, lua.LBool(val))
		case int:
			tbl.RawSetString(k, lua.LNumber(val))
		case int64:
			tbl.RawSetString(k, lua.LNumber(val))
		case float64:
			tbl.RawSetString(k, lua.LNumber(val))
		case string:
			tbl.RawSetString(k, lua.LString(val))
		}
	}
	return tbl
}

// Count returns the number of scripted actions currently registered.
func (e *Engine) Count() int {
	tbl, ok := e.vm.GetGlobal("actions").(*lua.LTable)
	if !ok {
		return 0
	}
	n := 0
	tbl.ForEach(func(lua.LValue, lua.LValue) { n++ })
	return n
}

func (e *Engine) Close() {
	e.vm.Close()
}
