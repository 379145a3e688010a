package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/l1jgo/eventbatch/internal/core/ecs"
	"github.com/l1jgo/eventbatch/internal/eventbatch"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a gopher-lua VM whose scripts observe render notifications.
// It implements eventbatch.Observer. The VM is not goroutine-safe, and
// notifications of different categories may arrive concurrently, so every
// call into the VM holds mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	fns [numCallins]*lua.LFunction
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads every .lua file in dir. A
// missing directory loads nothing.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, log: log}

	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	e.resolve()
	return e, nil
}

// LoadString runs src in the VM and re-resolves callins.
func (e *Engine) LoadString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	e.resolve()
	return nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
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

// resolve looks up each callin global once so dispatch avoids string
// lookups.
func (e *Engine) resolve() {
	for i, name := range Names() {
		fn, _ := e.vm.GetGlobal(name).(*lua.LFunction)
		e.fns[i] = fn
	}
}

// Implements reports whether the scripts define callin c.
func (e *Engine) Implements(c Callin) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fns[c] != nil
}

func (e *Engine) call(c Callin, args ...lua.LValue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn := e.fns[c]
	if fn == nil {
		return
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua callin error", zap.Stringer("callin", c), zap.Error(err))
	}
}

// objectArg passes ids as decimal strings. LNumber is a float64 and would
// round ids with a high generation.
func objectArg(id ecs.ObjectID) lua.LValue {
	return lua.LString(strconv.FormatUint(uint64(id), 10))
}

func (e *Engine) Created(c eventbatch.Category, id ecs.ObjectID) {
	created, _, ok := lifecycleCallin(c)
	if !ok {
		return
	}
	if created == CallinProjectileCreated {
		e.call(created, objectArg(id), lua.LBool(c == eventbatch.SyncedProjectile))
		return
	}
	e.call(created, objectArg(id))
}

func (e *Engine) Destroyed(c eventbatch.Category, id ecs.ObjectID) {
	_, destroyed, ok := lifecycleCallin(c)
	if !ok {
		return
	}
	if destroyed == CallinProjectileDestroyed {
		e.call(destroyed, objectArg(id), lua.LBool(c == eventbatch.SyncedProjectile))
		return
	}
	e.call(destroyed, objectArg(id))
}

func (e *Engine) Moved(c eventbatch.Category, id ecs.ObjectID) {
	if c == eventbatch.Feature {
		e.call(CallinFeatureMoved, objectArg(id))
	}
}

func (e *Engine) StateChanged(c eventbatch.Category, kind eventbatch.StateKind, id ecs.ObjectID, data int32) {
	if c != eventbatch.Unit {
		return
	}
	switch kind {
	case eventbatch.Cloak:
		e.call(CallinUnitCloakChanged, objectArg(id), lua.LNumber(data))
	case eventbatch.LOS:
		e.call(CallinUnitLOSChanged, objectArg(id), lua.LNumber(data))
	}
}

// Global returns a script global, for inspection.
func (e *Engine) Global(name string) lua.LValue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.GetGlobal(name)
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
