// Package tag implements tag groupings of objects such as items and blocks,
// along with the live and deferred edit events scripts use to change them.
package tag

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry maps tag ids to ordered, de-duplicated object ids.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tags  map[string][]string
	known []string
}

// NewRegistry creates a registry. known lists every object id that exists,
// which regex filters match against; tag members are always matched too.
func NewRegistry(known ...string) *Registry {
	return &Registry{
		tags:  make(map[string][]string),
		known: qualifyAll(known),
	}
}

// Set replaces the members of tag.
func (r *Registry) Set(tag string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[qualify(tag)] = dedupe(qualifyAll(ids))
}

// Get returns a copy of the members of tag.
func (r *Registry) Get(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tags[qualify(tag)])
}

// First returns the first member of tag.
func (r *Registry) First(tag string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.tags[qualify(tag)]
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// Has reports whether id is a member of tag.
func (r *Registry) Has(tag, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.tags[qualify(tag)], qualify(id))
}

// Tags returns every tag id in sorted order, including empty tags.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.tags))
}

// TagsOf returns the sorted ids of every tag containing id.
func (r *Registry) TagsOf(id string) []string {
	id = qualify(id)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for tag, ids := range r.tags {
		if slices.Contains(ids, id) {
			out = append(out, tag)
		}
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c := &Registry{
		tags:  make(map[string][]string, len(r.tags)),
		known: slices.Clone(r.known),
	}
	for tag, ids := range r.tags {
		c.tags[tag] = slices.Clone(ids)
	}
	return c
}

// candidates returns every object id a regex filter may match.
func (r *Registry) candidates() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Clone(r.known)
	for _, ids := range r.tags {
		out = append(out, ids...)
	}
	return dedupe(out)
}

func (r *Registry) add(tag string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag = qualify(tag)
	r.tags[tag] = dedupe(append(r.tags[tag], ids...))
}

func (r *Registry) remove(tag string, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tag = qualify(tag)
	cur, ok := r.tags[tag]
	if !ok {
		return
	}
	r.tags[tag] = slices.DeleteFunc(cur, func(id string) bool {
		return slices.Contains(ids, id)
	})
}

func (r *Registry) removeAll(tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tags[qualify(tag)] = nil
}

func qualify(id string) string {
	if id == "" || strings.Contains(id, ":") {
		return id
	}
	return "minecraft:" + id
}

func qualifyAll(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = qualify(id)
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
