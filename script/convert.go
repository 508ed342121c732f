package script

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/Shopify/go-lua"
)

// maxDepth bounds the nesting of tables converted to Go.
const maxDepth = 16

// ErrConvert is returned for Lua values that cannot be converted to Go.
var ErrConvert = errors.New("cannot convert lua value")

// ToGo converts the Lua value at index to a Go value. Integral numbers
// become int, other numbers float64. Tables with keys 1..n become []any,
// empty tables an empty []any and other tables map[string]any. Userdata is
// returned as stored; functions and other types become nil. Cyclic tables
// and tables nested deeper than 16 levels are errors.
func ToGo(l *lua.State, index int) (any, error) {
	c := converter{l: l, seen: make(map[uintptr]struct{})}
	return c.value(index, 0)
}

// Args converts every argument of the running Go function, starting at
// index from, to Go values.
func Args(l *lua.State, from int) ([]any, error) {
	top := l.Top()
	if top < from {
		return nil, nil
	}
	out := make([]any, 0, top-from+1)
	for i := from; i <= top; i++ {
		v, err := ToGo(l, i)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Push pushes v onto the Lua stack. Unsupported values are pushed as
// userdata.
func Push(l *lua.State, v any) {
	switch v := v.(type) {
	case nil:
		l.PushNil()
	case bool:
		l.PushBoolean(v)
	case int:
		l.PushInteger(v)
	case int64:
		l.PushNumber(float64(v))
	case float32:
		l.PushNumber(float64(v))
	case float64:
		l.PushNumber(v)
	case string:
		l.PushString(v)
	case lua.Function:
		l.PushGoFunction(v)
	case func(*lua.State) int:
		l.PushGoFunction(v)
	case []string:
		l.CheckStack(2)
		l.CreateTable(len(v), 0)
		for i, s := range v {
			l.PushString(s)
			l.RawSetInt(-2, i+1)
		}
	case []any:
		l.CheckStack(2)
		l.CreateTable(len(v), 0)
		for i, e := range v {
			Push(l, e)
			l.RawSetInt(-2, i+1)
		}
	case map[string]any:
		l.CheckStack(2)
		l.CreateTable(0, len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			Push(l, v[k])
			l.SetField(-2, k)
		}
	default:
		l.PushUserData(v)
	}
}

// Raise raises err as a Lua error from inside a Go function. It does not
// return.
func Raise(l *lua.State, err error) {
	lua.Errorf(l, "%s", err.Error())
}

// converter walks nested tables. seen holds the tables on the current
// path.
type converter struct {
	l    *lua.State
	seen map[uintptr]struct{}
}

func (c converter) value(index, depth int) (any, error) {
	l := c.l
	switch l.TypeOf(index) {
	case lua.TypeString:
		v, _ := l.ToString(index)
		return v, nil
	case lua.TypeNumber:
		v, _ := l.ToNumber(index)
		return normalizeNumber(v), nil
	case lua.TypeBoolean:
		return l.ToBoolean(index), nil
	case lua.TypeTable:
		return c.table(index, depth+1)
	case lua.TypeUserData:
		return l.ToUserData(index), nil
	default:
		return nil, nil
	}
}

// enter marks the table at index as being converted.
func (c converter) enter(index, depth int) (leave func(), err error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("%w: tables nested deeper than %d levels", ErrConvert, maxDepth)
	}
	ptr := c.l.ToPointer(index)
	if _, ok := c.seen[ptr]; ok {
		return nil, fmt.Errorf("%w: table contains itself", ErrConvert)
	}
	if !c.l.CheckStack(3) {
		return nil, fmt.Errorf("%w: lua stack overflow", ErrConvert)
	}
	c.seen[ptr] = struct{}{}
	return func() { delete(c.seen, ptr) }, nil
}

func (c converter) table(index, depth int) (any, error) {
	l := c.l
	index = l.AbsIndex(index)
	leave, err := c.enter(index, depth)
	if err != nil {
		return nil, err
	}
	defer leave()

	isArray := true
	maxIndex := 0
	count := 0
	l.PushNil()
	for l.Next(index) {
		count++
		if isArray {
			if l.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := l.ToInteger(-2); ok && idx > 0 {
				maxIndex = max(maxIndex, idx)
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if count == 0 {
		return []any{}, nil
	}
	if isArray && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(index, i)
			v, err := c.value(-1, depth)
			l.Pop(1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}
	return c.fields(index, depth)
}

// fields converts the string-keyed entries of the table at index.
func (c converter) fields(index, depth int) (map[string]any, error) {
	l := c.l
	out := map[string]any{}
	l.PushNil()
	for l.Next(index) {
		if l.TypeOf(-2) == lua.TypeString {
			k, _ := l.ToString(-2)
			v, err := c.value(-1, depth)
			if err != nil {
				l.Pop(2)
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = v
		}
		l.Pop(1)
	}
	return out, nil
}

// tableToMap converts the string-keyed entries of the table at index.
func tableToMap(l *lua.State, index int) (map[string]any, error) {
	c := converter{l: l, seen: make(map[uintptr]struct{})}
	index = l.AbsIndex(index)
	leave, err := c.enter(index, 1)
	if err != nil {
		return nil, err
	}
	defer leave()
	return c.fields(index, 1)
}

func normalizeNumber(v float64) any {
	if math.Mod(v, 1) == 0 && math.Abs(v) < 1<<53 {
		return int(v)
	}
	return v
}

func joinArgs(l *lua.State) string {
	parts := make([]string, 0, l.Top())
	for i := 1; i <= l.Top(); i++ {
		s, _ := lua.ToStringMeta(l, i)
		l.Pop(1)
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
