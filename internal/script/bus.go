package script

import (
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
)

// luaSend implements bus.send(target, value).
func (e *Engine) luaSend(L *lua.LState) int {
	target, err := e.resolve(L.CheckAny(1))
	if err == nil {
		var payload any
		if payload, err = fromLua(L.CheckAny(2)); err == nil {
			err = e.send(payload, target)
		}
	}

	if err != nil {
		e.failed.Add(1)
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	e.sent.Add(1)
	L.Push(lua.LTrue)
	return 1
}

// send routes payload under its concrete Go type.
func (e *Engine) send(payload any, target entity.Entity) error {
	switch v := payload.(type) {
	case string:
		return message.Send(e.router, v, target)
	case int64:
		return message.Send(e.router, v, target)
	case float64:
		return message.Send(e.router, v, target)
	case bool:
		return message.Send(e.router, v, target)
	case []any:
		return message.Send(e.router, v, target)
	case map[string]any:
		return message.Send(e.router, v, target)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedValue, payload)
	}
}

// resolve turns a bus target into an entity.
func (e *Engine) resolve(lv lua.LValue) (entity.Entity, error) {
	switch v := lv.(type) {
	case lua.LNumber:
		f := float64(v)
		if f != math.Trunc(f) || f < 1 || f > math.MaxUint32 {
			return 0, fmt.Errorf("%w: %v", ErrUnknownTarget, f)
		}
		return entity.Entity(f), nil
	case lua.LString:
		if e.resolver != nil {
			if ent, ok := e.resolver.Lookup(string(v)); ok {
				return ent, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownTarget, string(v))
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownTarget, lv.Type())
	}
}

// luaPending implements bus.pending().
func (e *Engine) luaPending(L *lua.LState) int {
	L.Push(lua.LNumber(e.router.Len()))
	return 1
}

// luaLog implements bus.log([level,] msg). Unknown levels log at info.
func (e *Engine) luaLog(L *lua.LState) int {
	if L.GetTop() < 2 {
		e.logger.Info("%s", L.CheckString(1))
		return 0
	}
	e.logger.Log(logging.ParseLevel(L.CheckString(1)), "%s", L.CheckString(2))
	return 0
}

// luaPrint replaces print so script output goes to the session log.
func (e *Engine) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, n)
	for i := 1; i <= n; i++ {
		parts[i-1] = L.ToStringMeta(L.Get(i)).String()
	}
	e.logger.Info("%s", strings.Join(parts, "\t"))
	return 0
}
