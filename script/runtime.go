package script

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Shopify/go-lua"
)

// listenersKey names the registry table holding event listener functions.
const listenersKey = "kubescript.listeners"

// Event is a value posted to script listeners.
type Event interface {
	// Fields returns the values exposed on the Lua event table. Values of
	// type lua.Function become callable fields.
	Fields() map[string]any
}

// MutableEvent is an Event whose fields scripts may edit. Update receives the
// event table's contents after every listener has run.
type MutableEvent interface {
	Event
	Update(fields map[string]any) error
}

// Source identifies a loaded script.
type Source struct {
	Type Type
	Name string
}

// Runtime runs scripts in a single Lua state. Every entry point locks the
// runtime, so events may be posted from any goroutine.
type Runtime struct {
	log *slog.Logger

	mu        sync.Mutex
	l         *lua.State
	consoles  [typeCount]*Console
	listeners map[string][]Source
	current   Source
}

// NewRuntime creates a runtime with the standard Lua libraries and the
// onEvent and console globals installed.
func NewRuntime(log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	r := &Runtime{log: log}
	for _, t := range Types() {
		r.consoles[t] = NewConsole(t, log)
	}
	r.reset()
	return r
}

// Console returns the console of scripts of type t.
func (r *Runtime) Console(t Type) *Console {
	return r.consoles[t]
}

// Reset discards every loaded script and listener and clears the consoles.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	for _, c := range r.consoles {
		c.Reset()
	}
}

func (r *Runtime) reset() {
	l := lua.NewState()
	lua.OpenLibraries(l)

	l.NewTable()
	l.SetField(lua.RegistryIndex, listenersKey)

	l.PushGoFunction(r.onEvent)
	l.SetGlobal("onEvent")

	l.NewTable()
	lua.SetFunctions(l, []lua.RegistryFunction{
		{Name: "log", Function: r.consoleFunc(LevelInfo)},
		{Name: "info", Function: r.consoleFunc(LevelInfo)},
		{Name: "warn", Function: r.consoleFunc(LevelWarn)},
		{Name: "error", Function: r.consoleFunc(LevelError)},
	}, 0)
	l.SetGlobal("console")

	r.l = l
	r.listeners = make(map[string][]Source)
	r.current = Source{}
}

// SetGlobal exposes v to scripts under name.
func (r *Runtime) SetGlobal(name string, v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	Push(r.l, v)
	r.l.SetGlobal(name)
}

// Load compiles and runs src as a script named name. Errors are recorded
// in the console of typ and returned; they never stop other scripts from
// loading.
func (r *Runtime) Load(typ Type, name, src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.l.Top()
	defer r.l.SetTop(base)

	prev := r.current
	r.current = Source{Type: typ, Name: name}
	defer func() { r.current = prev }()

	if err := lua.LoadBuffer(r.l, src, name, ""); err != nil {
		err = fmt.Errorf("load %s: %w", name, err)
		r.consoles[typ].Error(name, err)
		return err
	}
	if err := r.l.ProtectedCall(0, 0, 0); err != nil {
		err = fmt.Errorf("run %s: %w", name, err)
		r.consoles[typ].Error(name, err)
		return err
	}
	return nil
}

// HasListeners reports whether any script listens for event name.
func (r *Runtime) HasListeners(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners[name]) > 0
}

// Listeners returns the scripts listening for event name, in registration
// order.
func (r *Runtime) Listeners(name string) []Source {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Source(nil), r.listeners[name]...)
}

// Post calls every listener of event name with a table built from ev's
// fields. A failing listener is recorded in its console and the remaining
// listeners still run. Post reports whether a listener called cancel.
//
// Post must not be called from a Go function invoked by a listener.
func (r *Runtime) Post(name string, ev Event) (cancelled bool, err error) {
	return r.post(name, ev, func(Source) bool { return true })
}

// PostFor is like Post but only calls listeners registered by scripts of
// type t.
func (r *Runtime) PostFor(t Type, name string, ev Event) (cancelled bool, err error) {
	return r.post(name, ev, func(src Source) bool { return src.Type == t })
}

func (r *Runtime) post(name string, ev Event, accept func(Source) bool) (cancelled bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sources := r.listeners[name]
	if !slices.ContainsFunc(sources, accept) {
		return false, nil
	}

	l := r.l
	base := l.Top()
	defer l.SetTop(base)

	Push(l, ev.Fields())
	l.PushGoFunction(func(*lua.State) int {
		cancelled = true
		return 0
	})
	l.SetField(-2, "cancel")
	event := l.Top()

	l.Field(lua.RegistryIndex, listenersKey)
	l.Field(-1, name)
	fns := l.Top()

	prev := r.current
	defer func() { r.current = prev }()
	var errs []error
	for i, src := range sources {
		if !accept(src) {
			continue
		}
		r.current = src
		l.RawGetInt(fns, i+1)
		l.PushValue(event)
		if callErr := l.ProtectedCall(1, 0, 0); callErr != nil {
			callErr = fmt.Errorf("%s listener in %s: %w", name, src.Name, callErr)
			r.consoles[src.Type].Error(src.Name, callErr)
			errs = append(errs, callErr)
		}
		l.SetTop(fns)
	}

	if m, ok := ev.(MutableEvent); ok {
		fields, convErr := tableToMap(l, event)
		if convErr == nil {
			convErr = m.Update(fields)
		}
		if convErr != nil {
			r.log.Error("kubescript: event update rejected", "event", name, "err", convErr)
			errs = append(errs, fmt.Errorf("%s: %w", name, convErr))
		}
	}
	return cancelled, errors.Join(errs...)
}

// Current returns the script currently being loaded or handling an event.
// It is meant for Go functions called from Lua.
func (r *Runtime) Current() Source {
	return r.current
}

// onEvent implements onEvent(name, fn).
func (r *Runtime) onEvent(l *lua.State) int {
	name := lua.CheckString(l, 1)
	lua.CheckType(l, 2, lua.TypeFunction)

	l.Field(lua.RegistryIndex, listenersKey)
	l.Field(-1, name)
	if l.IsNil(-1) {
		l.Pop(1)
		l.NewTable()
		l.PushValue(-1)
		l.SetField(-3, name)
	}
	l.PushValue(2)
	l.RawSetInt(-2, len(r.listeners[name])+1)
	l.Pop(2)

	r.listeners[name] = append(r.listeners[name], r.current)
	if r.current.Name != "" {
		r.log.Debug("kubescript: listener registered", "event", name, "script", r.current.Name)
	}
	return 0
}

func (r *Runtime) consoleFunc(level Level) lua.Function {
	return func(l *lua.State) int {
		msg := joinArgs(l)
		c := r.consoles[r.current.Type]
		switch level {
		case LevelInfo:
			c.Info(r.current.Name, msg)
		case LevelWarn:
			c.Warn(r.current.Name, msg)
		default:
			c.Error(r.current.Name, errors.New(msg))
		}
		return 0
	}
}
