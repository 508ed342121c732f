package recipe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/df-mc/dragonfly/server/item"
)

// ItemLike is anything identified by a namespaced item id that may be empty.
type ItemLike interface {
	// ID returns the namespaced id, such as minecraft:stick.
	ID() string
	// Empty reports whether the item represents nothing (air or zero count).
	Empty() bool
}

// OutputItem is a recipe result.
type OutputItem struct {
	Item  string
	Count int
}

// ID implements ItemLike.
func (o OutputItem) ID() string { return o.Item }

// Empty implements ItemLike.
func (o OutputItem) Empty() bool {
	return o.Item == "" || o.Item == "minecraft:air" || o.Count <= 0
}

// String returns the item in script notation.
func (o OutputItem) String() string {
	if o.Count == 1 {
		return o.Item
	}
	return strconv.Itoa(o.Count) + "x " + o.Item
}

// InputItem is a recipe ingredient matching either one item or every item of a tag.
type InputItem struct {
	Item  string
	Tag   string
	Count int
}

// Empty reports whether the ingredient matches nothing.
func (i InputItem) Empty() bool {
	return (i.Item == "" && i.Tag == "") || i.Item == "minecraft:air" || i.Count <= 0
}

// First returns the first item the ingredient matches. Tags are resolved
// through lookup, which may be nil.
func (i InputItem) First(lookup TagLookup) ItemLike {
	if i.Item != "" {
		return OutputItem{Item: i.Item, Count: i.Count}
	}
	if i.Tag == "" || lookup == nil {
		return nil
	}
	id, ok := lookup.First(i.Tag)
	if !ok {
		return nil
	}
	return OutputItem{Item: id, Count: i.Count}
}

// String returns the ingredient in script notation.
func (i InputItem) String() string {
	s := i.Item
	if i.Tag != "" {
		s = "#" + i.Tag
	}
	if i.Count == 1 {
		return s
	}
	return strconv.Itoa(i.Count) + "x " + s
}

// TagLookup resolves the first member of an item tag.
type TagLookup interface {
	First(tag string) (string, bool)
}

type stackItem struct {
	s item.Stack
}

// StackItem adapts a dragonfly item stack to ItemLike.
func StackItem(s item.Stack) ItemLike {
	return stackItem{s: s}
}

func (s stackItem) ID() string {
	if s.s.Empty() {
		return "minecraft:air"
	}
	name, _ := s.s.Item().EncodeItem()
	return name
}

func (s stackItem) Empty() bool { return s.s.Empty() }

// parseItemString parses "minecraft:stick", "3x minecraft:stick" and "#minecraft:planks".
func parseItemString(s string) (id string, tag bool, count int, err error) {
	s = strings.TrimSpace(s)
	count = 1
	if n, rest, ok := strings.Cut(s, "x "); ok {
		c, convErr := strconv.Atoi(n)
		if convErr == nil {
			count = c
			s = strings.TrimSpace(rest)
		}
	}
	if strings.HasPrefix(s, "#") {
		tag = true
		s = s[1:]
	}
	if s == "" {
		return "", false, 0, fmt.Errorf("empty item id")
	}
	if !strings.Contains(s, ":") {
		s = "minecraft:" + s
	}
	return s, tag, count, nil
}

func readCount(v any) (int, error) {
	if v == nil {
		return 1, nil
	}
	return toInt(v)
}

func readOutputItem(v any) (OutputItem, error) {
	switch v := v.(type) {
	case OutputItem:
		return v, nil
	case InputItem:
		if v.Tag != "" {
			return OutputItem{}, fmt.Errorf("tag %q can't be a result", v.Tag)
		}
		return OutputItem{Item: v.Item, Count: v.Count}, nil
	case item.Stack:
		if v.Empty() {
			return OutputItem{Item: "minecraft:air"}, nil
		}
		name, _ := v.Item().EncodeItem()
		return OutputItem{Item: name, Count: v.Count()}, nil
	case string:
		id, tag, count, err := parseItemString(v)
		if err != nil {
			return OutputItem{}, err
		}
		if tag {
			return OutputItem{}, fmt.Errorf("tag %q can't be a result", id)
		}
		return OutputItem{Item: id, Count: count}, nil
	case map[string]any:
		name, ok := v["id"].(string)
		if !ok {
			name, ok = v["item"].(string)
		}
		if !ok {
			return OutputItem{}, fmt.Errorf("result object needs an id or item field")
		}
		id, _, _, err := parseItemString(name)
		if err != nil {
			return OutputItem{}, err
		}
		count, err := readCount(v["count"])
		if err != nil {
			return OutputItem{}, fmt.Errorf("count: %w", err)
		}
		return OutputItem{Item: id, Count: count}, nil
	default:
		return OutputItem{}, fmt.Errorf("can't read result from %T", v)
	}
}

func readInputItem(v any) (InputItem, error) {
	switch v := v.(type) {
	case InputItem:
		return v, nil
	case OutputItem:
		return InputItem{Item: v.Item, Count: v.Count}, nil
	case item.Stack:
		if v.Empty() {
			return InputItem{}, fmt.Errorf("empty stack can't be an ingredient")
		}
		name, _ := v.Item().EncodeItem()
		return InputItem{Item: name, Count: v.Count()}, nil
	case string:
		id, tag, count, err := parseItemString(v)
		if err != nil {
			return InputItem{}, err
		}
		if tag {
			return InputItem{Tag: id, Count: count}, nil
		}
		return InputItem{Item: id, Count: count}, nil
	case map[string]any:
		count, err := readCount(v["count"])
		if err != nil {
			return InputItem{}, fmt.Errorf("count: %w", err)
		}
		if t, ok := v["tag"].(string); ok {
			id, _, _, err := parseItemString(t)
			if err != nil {
				return InputItem{}, err
			}
			return InputItem{Tag: id, Count: count}, nil
		}
		name, ok := v["item"].(string)
		if !ok {
			name, ok = v["id"].(string)
		}
		if !ok {
			return InputItem{}, fmt.Errorf("ingredient object needs an item or tag field")
		}
		id, _, _, err := parseItemString(name)
		if err != nil {
			return InputItem{}, err
		}
		return InputItem{Item: id, Count: count}, nil
	case []any:
		switch len(v) {
		case 0:
			return InputItem{}, fmt.Errorf("empty ingredient list")
		case 1:
			return readInputItem(v[0])
		}
		return InputItem{}, fmt.Errorf("ingredient alternatives are not supported (got %d)", len(v))
	default:
		return InputItem{}, fmt.Errorf("can't read ingredient from %T", v)
	}
}

func writeOutputItem(o OutputItem) map[string]any {
	return map[string]any{"id": o.Item, "count": o.Count}
}

func writeInputItem(i InputItem) map[string]any {
	m := map[string]any{}
	if i.Tag != "" {
		m["tag"] = i.Tag
	} else {
		m["item"] = i.Item
	}
	if i.Count != 1 {
		m["count"] = i.Count
	}
	return m
}
