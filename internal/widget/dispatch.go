package widget

import (
	"errors"
	"runtime/debug"
	"sync/atomic"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/logging"
	"github.com/dshills/widgetbus/internal/message"
)

// Context is handed to a state while it processes its messages.
type Context struct {
	node   *Node
	router *message.Router
	tree   *Tree
	logger *logging.Logger
}

// Entity returns the entity of the widget being processed.
func (c *Context) Entity() entity.Entity { return c.node.entity }

// Node returns the widget being processed.
func (c *Context) Node() *Node { return c.node }

// Router returns the session router, for sending messages to other widgets.
func (c *Context) Router() *message.Router { return c.router }

// Logger returns a logger tagged with the widget.
func (c *Context) Logger() *logging.Logger { return c.logger }

// Lookup resolves another widget by name.
func (c *Context) Lookup(name string) (entity.Entity, bool) {
	return c.tree.Lookup(name)
}

// Remove deletes a widget from the tree. Messages still queued for it are
// discarded by the next message phase.
func (c *Context) Remove(e entity.Entity) bool {
	return c.tree.Remove(e)
}

// DispatchResult summarizes one message phase.
type DispatchResult struct {
	// Delivered is the number of entities whose reader reached a state.
	Delivered int

	// Discarded is the number of entities whose messages were dropped.
	Discarded int

	// Panicked is the number of states that panicked.
	Panicked int
}

// Total returns the number of entities handled.
func (r DispatchResult) Total() int {
	return r.Delivered + r.Discarded + r.Panicked
}

// DispatcherStats is a snapshot of dispatcher counters.
type DispatcherStats struct {
	Passes    uint64
	Delivered uint64
	Discarded uint64
	Panicked  uint64
}

// Dispatcher runs the message phase of the host loop.
// It must be used from a single goroutine.
type Dispatcher struct {
	router *message.Router
	tree   *Tree
	logger *logging.Logger

	// Stats
	passes    atomic.Uint64
	delivered atomic.Uint64
	discarded atomic.Uint64
	panicked  atomic.Uint64
}

// NewDispatcher creates a dispatcher over router and tree.
func NewDispatcher(router *message.Router, tree *Tree, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		router: router,
		tree:   tree,
		logger: logger.WithComponent("dispatch"),
	}
}

// Dispatch drains every entity with pending messages once.
// Messages that arrive while it runs are left for the next call.
func (d *Dispatcher) Dispatch() DispatchResult {
	var res DispatchResult
	d.passes.Add(1)

	for _, e := range d.router.Entities() {
		node, ok := d.tree.Node(e)
		if !ok || node.state == nil {
			if d.router.Discard(e) {
				res.Discarded++
				d.logger.Debug("discarded messages for %s", e)
			}
			continue
		}

		reader := d.router.Drain(e)
		if d.deliver(node, reader) {
			res.Delivered++
		} else {
			res.Panicked++
		}
	}

	d.delivered.Add(uint64(res.Delivered))
	d.discarded.Add(uint64(res.Discarded))
	d.panicked.Add(uint64(res.Panicked))
	return res
}

// Update runs Update on every node whose state implements Updater.
func (d *Dispatcher) Update() {
	for _, node := range d.tree.Nodes() {
		u, ok := node.state.(Updater)
		if !ok {
			continue
		}
		d.protect(node, func(ctx *Context) { u.Update(ctx) })
	}
}

// Stats returns dispatcher counters.
func (d *Dispatcher) Stats() DispatcherStats {
	return DispatcherStats{
		Passes:    d.passes.Load(),
		Delivered: d.delivered.Load(),
		Discarded: d.discarded.Load(),
		Panicked:  d.panicked.Load(),
	}
}

func (d *Dispatcher) deliver(node *Node, reader *message.Reader) bool {
	return d.protect(node, func(ctx *Context) { node.state.Message(reader, ctx) })
}

// protect runs fn with a fresh context and recovers a panicking state.
// A poisoned router is fatal to the session and its panic is not recovered.
func (d *Dispatcher) protect(node *Node, fn func(ctx *Context)) (ok bool) {
	ctx := &Context{
		node:   node,
		router: d.router,
		tree:   d.tree,
		logger: d.logger.WithFields(map[string]any{"entity": node.entity, "widget": node.name}),
	}

	defer func() {
		if r := recover(); r != nil {
			if err, isErr := r.(error); isErr && errors.Is(err, message.ErrRouterPoisoned) {
				panic(r)
			}
			ctx.logger.Error("state panicked: %v\n%s", r, debug.Stack())
			ok = false
		}
	}()

	fn(ctx)
	return true
}
