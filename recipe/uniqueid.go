package recipe

import (
	"strings"
)

// UniqueIDFunc derives a stable id suffix for a recipe that has no explicit
// id. It returns "" when nothing suitable is present.
type UniqueIDFunc func(r *Recipe) string

// NormalizeID strips the minecraft: and kubejs: namespaces from id.
func NormalizeID(id string) string {
	if s, ok := strings.CutPrefix(id, "minecraft:"); ok {
		return s
	}
	if s, ok := strings.CutPrefix(id, "kubejs:"); ok {
		return s
	}
	return id
}

func fileID(id string) string {
	return strings.ReplaceAll(NormalizeID(id), "/", "_")
}

// UniqueID installs fn as the unique id function of the schema.
// It must be called during registration.
func (s *Schema) UniqueID(fn UniqueIDFunc) *Schema {
	s.uniqueID = fn
	return s
}

// UniqueOutputID derives the unique id from the single result held by key.
func (s *Schema) UniqueOutputID(key *Key) *Schema {
	return s.UniqueID(func(r *Recipe) string {
		out, ok := r.Get(key).(OutputItem)
		if !ok || out.Empty() {
			return ""
		}
		return fileID(out.ID())
	})
}

// UniqueOutputArrayID derives the unique id from every non-empty result held
// by key, joined with '_'.
func (s *Schema) UniqueOutputArrayID(key *Key) *Schema {
	return s.UniqueID(func(r *Recipe) string {
		outs, _ := r.Get(key).([]OutputItem)
		var sb strings.Builder
		for _, out := range outs {
			if out.Empty() {
				continue
			}
			if sb.Len() > 0 {
				sb.WriteByte('_')
			}
			sb.WriteString(fileID(out.ID()))
		}
		return sb.String()
	})
}

// UniqueInputID derives the unique id from the first item matched by the
// ingredient held by key.
func (s *Schema) UniqueInputID(key *Key) *Schema {
	return s.UniqueID(func(r *Recipe) string {
		in, ok := r.Get(key).(InputItem)
		if !ok {
			return ""
		}
		it := in.First(r.Tags)
		if it == nil || it.Empty() {
			return ""
		}
		return fileID(it.ID())
	})
}
