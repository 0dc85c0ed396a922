// Package script runs Lua producers that feed the message router.
//
// An Engine owns one sandboxed gopher-lua state. Only the base, table,
// string and math libraries are opened; file loading and module loading are
// removed. Scripts talk to the session through the global bus table:
//
//	bus.send(target, value)  queue value for target; target is an entity
//	                         number or a widget name. Returns true, or
//	                         false and an error message.
//	bus.pending()            advisory number of queued messages
//	bus.log([level,] msg)    write msg to the session log; level is
//	                         debug, info, warn or error (default info)
//	bus.session              session id string
//
// Lua values become Go payloads with these types:
//
//	string                   string
//	integral number          int64
//	other number             float64
//	boolean                  bool
//	array-like table         []any
//	other table              map[string]any
//
// The host calls optional global hooks when they are defined:
//
//	function on_start() end
//	function on_tick(n) end
//	function on_key(key) end
//
// Example:
//
//	function on_tick(n)
//	    bus.send("counter", 1)
//	    bus.send("log", "tick " .. n)
//	end
//
// gopher-lua states are not goroutine-safe; every Engine method serializes
// on the engine mutex, so hooks may be called from any goroutine.
package script
