package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
)

// DefaultCallTimeout bounds a single script call.
const DefaultCallTimeout = time.Second

// Hook names called by the host.
const (
	HookStart = "on_start"
	HookTick  = "on_tick"
	HookKey   = "on_key"
)

// Resolver maps widget names to entities.
type Resolver interface {
	Lookup(name string) (entity.Entity, bool)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by bus.log and print.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithSession sets the value of bus.session.
func WithSession(id string) Option {
	return func(e *Engine) {
		e.session = id
	}
}

// WithCallTimeout bounds every script call. Zero disables the bound.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.timeout = d
		}
	}
}

// Engine is a sandboxed Lua state bound to a message router.
type Engine struct {
	mu sync.Mutex
	L  *lua.LState

	router   *message.Router
	resolver Resolver
	logger   *logging.Logger
	session  string
	timeout  time.Duration

	path   string
	closed bool

	sent   atomic.Uint64
	failed atomic.Uint64
}

// New creates an engine that sends to router and resolves widget names with
// resolver. A nil resolver only accepts entity numbers.
func New(router *message.Router, resolver Resolver, opts ...Option) *Engine {
	e := &Engine{
		router:   router,
		resolver: resolver,
		logger:   logging.Nop(),
		timeout:  DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.L = e.newState()
	return e
}

// newState creates a sandboxed state with the bus module installed.
func (e *Engine) newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "getfenv", "setfenv"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(e.luaPrint))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"send":    e.luaSend,
		"pending": e.luaPending,
		"log":     e.luaLog,
	})
	L.SetField(mod, "session", lua.LString(e.session))
	L.SetGlobal("bus", mod)

	return L
}

// DoFile runs the file at path and remembers it for Reload.
func (e *Engine) DoFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	e.path = path
	return e.run(func() error { return e.L.DoFile(path) })
}

// DoString runs a chunk of Lua code.
func (e *Engine) DoString(code string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	return e.run(func() error { return e.L.DoString(code) })
}

// Reload replaces the state with a fresh one and runs the last file given
// to DoFile again. On failure the previous state is kept.
func (e *Engine) Reload() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.path == "" {
		return ErrNoScript
	}

	old := e.L
	e.L = e.newState()
	if err := e.run(func() error { return e.L.DoFile(e.path) }); err != nil {
		e.L.Close()
		e.L = old
		return err
	}
	old.Close()
	return nil
}

// Path returns the file last given to DoFile.
func (e *Engine) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// HasFunction reports whether a global function with this name exists.
func (e *Engine) HasFunction(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return false
	}
	return e.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls a global Lua function and returns its results as Go values.
// Results without a payload type are returned as nil.
func (e *Engine) Call(fn string, args ...any) ([]any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	return e.call(fn, args)
}

// Hook calls fn if the script defines it. A missing hook is not an error.
func (e *Engine) Hook(fn string, args ...any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if e.L.GetGlobal(fn).Type() != lua.LTFunction {
		return nil
	}
	_, err := e.call(fn, args)
	return err
}

// OnStart calls the on_start hook.
func (e *Engine) OnStart() error {
	return e.Hook(HookStart)
}

// OnTick calls the on_tick hook with the tick number.
func (e *Engine) OnTick(n uint64) error {
	return e.Hook(HookTick, n)
}

// OnKey calls the on_key hook with the key name.
func (e *Engine) OnKey(key string) error {
	return e.Hook(HookKey, key)
}

// Sent returns the number of messages scripts sent successfully.
func (e *Engine) Sent() uint64 {
	return e.sent.Load()
}

// Failed returns the number of bus.send calls that failed.
func (e *Engine) Failed() uint64 {
	return e.failed.Load()
}

// Close releases the Lua state. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.L.Close()
	return nil
}

// call must be called with mu held.
func (e *Engine) call(fn string, args []any) ([]any, error) {
	fnVal := e.L.GetGlobal(fn)
	if fnVal.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %q is %s", ErrNotFunction, fn, fnVal.Type())
	}

	top := e.L.GetTop()
	err := e.run(func() error {
		e.L.Push(fnVal)
		for _, arg := range args {
			e.L.Push(toLua(e.L, arg))
		}
		return e.L.PCall(len(args), lua.MultRet, nil)
	})
	if err != nil {
		e.L.SetTop(top)
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	n := e.L.GetTop() - top
	results := make([]any, n)
	for i := 0; i < n; i++ {
		if v, err := fromLua(e.L.Get(top + i + 1)); err == nil {
			results[i] = v
		}
	}
	e.L.Pop(n)
	return results, nil
}

// run executes fn under the call timeout with panic recovery.
func (e *Engine) run(fn func() error) (err error) {
	if e.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		e.L.SetContext(ctx)
		defer func() {
			e.L.RemoveContext()
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w after %v: %v", ErrTimeout, e.timeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}
