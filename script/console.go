package script

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Level is the severity of a console entry.
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// Entry is a single console line attributed to a script.
type Entry struct {
	Level   Level
	Script  string
	Message string
}

// String formats the entry the way it is shown to players.
func (e Entry) String() string {
	if e.Script == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Script, e.Message)
}

// Console collects the output and errors of one script type. Entries are
// forwarded to the logger as they arrive.
type Console struct {
	typ Type
	log *slog.Logger

	mu      sync.Mutex
	entries []Entry
}

// NewConsole creates a console for scripts of type typ.
func NewConsole(typ Type, log *slog.Logger) *Console {
	if log == nil {
		log = slog.Default()
	}
	return &Console{typ: typ, log: log}
}

// Type returns the script type the console belongs to.
func (c *Console) Type() Type {
	return c.typ
}

// Info records an informational line.
func (c *Console) Info(script, msg string) {
	c.add(Entry{Level: LevelInfo, Script: script, Message: msg})
}

// Warn records a warning.
func (c *Console) Warn(script, msg string) {
	c.add(Entry{Level: LevelWarn, Script: script, Message: msg})
}

// Error records an error.
func (c *Console) Error(script string, err error) {
	c.add(Entry{Level: LevelError, Script: script, Message: err.Error()})
}

// Entries returns every recorded entry in order.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.entries)
}

// Errors returns the recorded errors in order.
func (c *Console) Errors() []Entry {
	return c.filter(LevelError)
}

// Warnings returns the recorded warnings in order.
func (c *Console) Warnings() []Entry {
	return c.filter(LevelWarn)
}

// Reset discards every entry.
func (c *Console) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = nil
}

func (c *Console) filter(level Level) []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Entry
	for _, e := range c.entries {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (c *Console) add(e Entry) {
	c.mu.Lock()
	c.entries = append(c.entries, e)
	c.mu.Unlock()

	attrs := []any{"type", c.typ.String(), "script", e.Script, "message", e.Message}
	switch e.Level {
	case LevelInfo:
		c.log.Info("kubescript: script output", attrs...)
	case LevelWarn:
		c.log.Warn("kubescript: script warning", attrs...)
	default:
		c.log.Error("kubescript: script error", attrs...)
	}
}
