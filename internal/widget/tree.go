package widget

import (
	"sync"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/message"
)

// State processes the messages drained for one widget.
type State interface {
	Message(messages *message.Reader, ctx *Context)
}

// Updater is implemented by states that also run once per frame after the
// message phase.
type Updater interface {
	Update(ctx *Context)
}

// StateFunc is a function adapter for State.
type StateFunc func(messages *message.Reader, ctx *Context)

// Message implements the State interface.
func (f StateFunc) Message(messages *message.Reader, ctx *Context) {
	f(messages, ctx)
}

// Node is a retained widget.
// Nodes are mutated from the host loop goroutine only.
type Node struct {
	entity entity.Entity
	name   string
	text   string
	dirty  bool
	state  State
}

// Entity returns the node's entity.
func (n *Node) Entity() entity.Entity { return n.entity }

// Name returns the node's name.
func (n *Node) Name() string { return n.name }

// Text returns the node's display text.
func (n *Node) Text() string { return n.text }

// State returns the node's state, or nil.
func (n *Node) State() State { return n.state }

// SetText changes the display text and marks the node dirty if it changed.
func (n *Node) SetText(text string) {
	if n.text == text {
		return
	}
	n.text = text
	n.dirty = true
}

// Dirty reports whether the node changed since the last ClearDirty.
func (n *Node) Dirty() bool { return n.dirty }

// ClearDirty resets the dirty flag after rendering.
func (n *Node) ClearDirty() { n.dirty = false }

// Tree is the ordered set of retained widgets of a session.
type Tree struct {
	mu     sync.RWMutex
	store  *entity.Store
	nodes  map[entity.Entity]*Node
	byName map[string]entity.Entity
	order  []entity.Entity
}

// NewTree creates an empty tree allocating ids from store.
func NewTree(store *entity.Store) *Tree {
	if store == nil {
		store = entity.NewStore()
	}
	return &Tree{
		store:  store,
		nodes:  make(map[entity.Entity]*Node),
		byName: make(map[string]entity.Entity),
	}
}

// Store returns the entity store backing the tree.
func (t *Tree) Store() *entity.Store {
	return t.store
}

// Add creates a node with a fresh entity. state may be nil for
// display-only widgets. A later node with the same name shadows the
// earlier one in Lookup.
func (t *Tree) Add(name string, state State) *Node {
	n := &Node{
		entity: t.store.Create(),
		name:   name,
		state:  state,
		dirty:  true,
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nodes[n.entity] = n
	t.order = append(t.order, n.entity)
	if name != "" {
		t.byName[name] = n.entity
	}
	return n
}

// Remove deletes the node and kills its entity.
// Returns false if the entity has no node.
func (t *Tree) Remove(e entity.Entity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.nodes[e]
	if !ok {
		return false
	}
	delete(t.nodes, e)
	if t.byName[n.name] == e {
		delete(t.byName, n.name)
	}
	for i, oe := range t.order {
		if oe == e {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.store.Remove(e)
	return true
}

// Node returns the node for e.
func (t *Tree) Node(e entity.Entity) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n, ok := t.nodes[e]
	return n, ok
}

// Lookup resolves a widget name to its entity.
func (t *Tree) Lookup(name string) (entity.Entity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.byName[name]
	return e, ok
}

// Nodes returns the nodes in insertion order.
func (t *Tree) Nodes() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Node, 0, len(t.order))
	for _, e := range t.order {
		out = append(out, t.nodes[e])
	}
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.nodes)
}
