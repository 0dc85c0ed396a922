package script

import (
	"fmt"
	"math"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// fromLua converts a Lua value to a Go payload.
func fromLua(lv lua.LValue) (any, error) {
	return fromLuaVisited(lv, make(map[*lua.LTable]bool))
}

func fromLuaVisited(lv lua.LValue, visited map[*lua.LTable]bool) (any, error) {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v), nil
	case lua.LNumber:
		return fromNumber(v), nil
	case lua.LString:
		return string(v), nil
	case *lua.LTable:
		if visited[v] {
			return nil, fmt.Errorf("%w: circular table", ErrUnsupportedValue)
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedValue, lv.Type())
	}
}

// fromNumber returns int64 for integral values in range and float64
// otherwise.
func fromNumber(n lua.LNumber) any {
	f := float64(n)
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return int64(f)
	}
	return f
}

// tableToGo converts a table with keys 1..n to a slice and any other table
// to a map.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) (any, error) {
	if n := t.Len(); n > 0 && countKeys(t) == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			v, err := fromLuaVisited(t.RawGetInt(i), visited)
			if err != nil {
				return nil, err
			}
			arr[i-1] = v
		}
		return arr, nil
	}

	m := make(map[string]any)
	var err error
	t.ForEach(func(k, v lua.LValue) {
		if err != nil {
			return
		}
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = formatNumber(kv)
		default:
			err = fmt.Errorf("%w: %s table key", ErrUnsupportedValue, k.Type())
			return
		}
		var gv any
		if gv, err = fromLuaVisited(v, visited); err == nil {
			m[key] = gv
		}
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func countKeys(t *lua.LTable) int {
	n := 0
	t.ForEach(func(_, _ lua.LValue) { n++ })
	return n
}

func formatNumber(n lua.LNumber) string {
	if i, ok := fromNumber(n).(int64); ok {
		return strconv.FormatInt(i, 10)
	}
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// toLua converts a Go value to a Lua value. Unknown types become their
// string form.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.CreateTable(len(val), 0)
		for _, item := range val {
			t.Append(toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	case lua.LValue:
		return val
	case fmt.Stringer:
		return lua.LString(val.String())
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
