package tag

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Action is a recorded tag edit replayed against a live event.
type Action interface {
	Apply(e *Event) error
}

// AddAction adds the objects matched by Filters to Tag.
type AddAction struct {
	Tag     string
	Filters []any
}

// Apply adds the matched ids to the tag.
func (a AddAction) Apply(e *Event) error { return e.Add(a.Tag, a.Filters...) }

// RemoveAction removes the objects matched by Filters from Tag.
type RemoveAction struct {
	Tag     string
	Filters []any
}

// Apply removes the matched ids from the tag.
func (a RemoveAction) Apply(e *Event) error { return e.Remove(a.Tag, a.Filters...) }

// RemoveAllAction empties Tag.
type RemoveAllAction struct {
	Tag string
}

// Apply empties the tag.
func (a RemoveAllAction) Apply(e *Event) error {
	e.RemoveAll(a.Tag)
	return nil
}

// PreEvent records tag edits made before the tag registry exists. Edits are
// replayed in order by Apply once a live event is available.
//
// Reading members through a PreEvent is not possible; doing so marks the
// event invalid so callers can warn that the script depended on live data.
type PreEvent struct {
	Kind string

	mu      sync.Mutex
	actions []Action
	invalid bool
}

// NewPreEvent creates an empty deferred edit event for kind.
func NewPreEvent(kind string) *PreEvent {
	return &PreEvent{Kind: kind}
}

// Get returns a recording wrapper for tag.
func (p *PreEvent) Get(tag string) Wrapper {
	return &PreWrapper{pre: p, id: qualify(tag)}
}

// Add records an AddAction.
func (p *PreEvent) Add(tag string, filters ...any) error {
	p.record(AddAction{Tag: qualify(tag), Filters: slices.Clone(filters)})
	return nil
}

// Remove records a RemoveAction.
func (p *PreEvent) Remove(tag string, filters ...any) error {
	p.record(RemoveAction{Tag: qualify(tag), Filters: slices.Clone(filters)})
	return nil
}

// RemoveAll records a RemoveAllAction.
func (p *PreEvent) RemoveAll(tag string) {
	p.record(RemoveAllAction{Tag: qualify(tag)})
}

// Actions returns the recorded actions in order.
func (p *PreEvent) Actions() []Action {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.actions)
}

// Invalid reports whether a script tried to read tag members.
func (p *PreEvent) Invalid() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalid
}

// Apply replays every recorded action against e. All actions run even if
// some fail; the failures are joined.
func (p *PreEvent) Apply(e *Event) error {
	var errs []error
	for i, a := range p.Actions() {
		if err := a.Apply(e); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (p *PreEvent) record(a Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, a)
}

// PreWrapper records edits to a single tag of a PreEvent.
type PreWrapper struct {
	pre *PreEvent
	id  string
}

func (w *PreWrapper) ID() string                  { return w.id }
func (w *PreWrapper) Add(filters ...any) error    { return w.pre.Add(w.id, filters...) }
func (w *PreWrapper) Remove(filters ...any) error { return w.pre.Remove(w.id, filters...) }
func (w *PreWrapper) RemoveAll()                  { w.pre.RemoveAll(w.id) }

// ObjectIDs always returns nil and marks the event invalid, since members
// are unknown until the registry is loaded.
func (w *PreWrapper) ObjectIDs() []string {
	w.pre.mu.Lock()
	w.pre.invalid = true
	w.pre.mu.Unlock()
	return nil
}
