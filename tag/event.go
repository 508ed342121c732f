package tag

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrFilter is returned when a filter cannot be interpreted.
var ErrFilter = errors.New("invalid tag filter")

// Wrapper is a handle to a single tag inside an edit event.
type Wrapper interface {
	// ID returns the qualified tag id.
	ID() string
	// Add adds every object matched by filters.
	Add(filters ...any) error
	// Remove removes every object matched by filters.
	Remove(filters ...any) error
	// RemoveAll empties the tag.
	RemoveAll()
	// ObjectIDs returns the current members of the tag.
	ObjectIDs() []string
}

// Event is a live tag edit event for one object kind, such as "item" or
// "block". Edits are applied to the registry immediately.
type Event struct {
	Kind string
	reg  *Registry
}

// NewEvent creates a live edit event over reg.
func NewEvent(kind string, reg *Registry) *Event {
	return &Event{Kind: kind, reg: reg}
}

// Registry returns the registry the event edits.
func (e *Event) Registry() *Registry {
	return e.reg
}

// Get returns a wrapper for tag.
func (e *Event) Get(tag string) Wrapper {
	return &liveWrapper{e: e, id: qualify(tag)}
}

// Add adds every object matched by filters to tag.
func (e *Event) Add(tag string, filters ...any) error {
	ids, err := e.Resolve(filters...)
	if err != nil {
		return fmt.Errorf("add to %s: %w", qualify(tag), err)
	}
	e.reg.add(tag, ids)
	return nil
}

// Remove removes every object matched by filters from tag.
func (e *Event) Remove(tag string, filters ...any) error {
	ids, err := e.Resolve(filters...)
	if err != nil {
		return fmt.Errorf("remove from %s: %w", qualify(tag), err)
	}
	e.reg.remove(tag, ids)
	return nil
}

// RemoveAll empties tag.
func (e *Event) RemoveAll(tag string) {
	e.reg.removeAll(tag)
}

// Resolve expands filters to object ids. A filter is an object id, a tag
// reference written as "#namespace:path", a regular expression written as
// "/pattern/" or passed as *regexp.Regexp, or a slice of any of these.
func (e *Event) Resolve(filters ...any) ([]string, error) {
	var out []string
	for _, f := range filters {
		ids, err := e.resolve(f)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return dedupe(out), nil
}

func (e *Event) resolve(f any) ([]string, error) {
	switch f := f.(type) {
	case string:
		switch {
		case f == "":
			return nil, fmt.Errorf("%w: empty id", ErrFilter)
		case strings.HasPrefix(f, "#"):
			return e.reg.Get(f[1:]), nil
		case len(f) > 1 && strings.HasPrefix(f, "/") && strings.HasSuffix(f, "/"):
			re, err := regexp.Compile(f[1 : len(f)-1])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFilter, err)
			}
			return e.match(re), nil
		}
		return []string{qualify(f)}, nil
	case *regexp.Regexp:
		return e.match(f), nil
	case []string:
		return e.Resolve(anySlice(f)...)
	case []any:
		return e.Resolve(f...)
	}
	return nil, fmt.Errorf("%w: unsupported filter %T", ErrFilter, f)
}

func (e *Event) match(re *regexp.Regexp) []string {
	var out []string
	for _, id := range e.reg.candidates() {
		if re.MatchString(id) {
			out = append(out, id)
		}
	}
	return out
}

type liveWrapper struct {
	e  *Event
	id string
}

func (w *liveWrapper) ID() string                  { return w.id }
func (w *liveWrapper) Add(filters ...any) error    { return w.e.Add(w.id, filters...) }
func (w *liveWrapper) Remove(filters ...any) error { return w.e.Remove(w.id, filters...) }
func (w *liveWrapper) RemoveAll()                  { w.e.RemoveAll(w.id) }
func (w *liveWrapper) ObjectIDs() []string         { return w.e.reg.Get(w.id) }

func anySlice(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
