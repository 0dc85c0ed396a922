package message

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dshills/widgetbus/internal/entity"
	"github.com/dshills/widgetbus/internal/shell"
)

// Router is the thread-safe store of in-flight messages for one session.
//
// Send may be called from any goroutine. Entities, Drain and
// Discard are meant for the host loop goroutine, once per cycle.
//
// A Router is shared by pointer; create one per session with NewRouter.
type Router struct {
	mu       sync.Mutex
	messages map[entity.Entity]map[reflect.Type][]*Box
	poisoned bool

	notifier Notifier
	config   routerConfig

	// Stats
	enqueued       atomic.Uint64
	drained        atomic.Uint64
	discarded      atomic.Uint64
	readers        atomic.Uint64
	notifyFailures atomic.Uint64
}

// Stats is a snapshot of router counters.
type Stats struct {
	// Enqueued is the number of messages accepted.
	Enqueued uint64

	// Drained is the number of messages moved into readers.
	Drained uint64

	// Discarded is the number of messages dropped by Discard.
	Discarded uint64

	// Readers is the number of readers produced by Drain.
	Readers uint64

	// NotifyFailures is the number of failed wake notifications.
	NotifyFailures uint64

	// PendingEntities is the advisory number of entities with queued messages.
	PendingEntities int
}

// NewRouter creates an empty router that wakes the host loop through notifier.
// A nil notifier disables wake notifications.
func NewRouter(notifier Notifier, opts ...RouterOption) *Router {
	config := defaultRouterConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	return &Router{
		messages: make(map[entity.Entity]map[reflect.Type][]*Box),
		notifier: notifier,
		config:   config,
	}
}

// Send boxes payload for target, files the box under its target and type
// tag, then wakes the host loop. The store lock is released before the
// notifier is called, so a full notifier may block the caller but never the
// store.
//
// An error wrapping ErrNotifierClosed means the host loop is gone. The
// message stays queued.
func Send[T any](r *Router, payload T, target entity.Entity) error {
	return r.enqueue(NewBox(payload, target))
}

// enqueue takes ownership of b. The box must not be used by anyone else
// afterwards; a box that is consumed or already filed is rejected.
func (r *Router) enqueue(b *Box) error {
	if b == nil {
		return ErrNilBox
	}

	var err error
	r.withLock("enqueue", func() {
		switch {
		case b.consumed:
			err = ErrBoxConsumed
			return
		case b.filed:
			err = ErrBoxFiled
			return
		}
		b.filed = true

		buckets, ok := r.messages[b.target]
		if !ok {
			buckets = make(map[reflect.Type][]*Box)
			r.messages[b.target] = buckets
		}
		bucket, ok := buckets[b.tag]
		if !ok {
			bucket = make([]*Box, 0, r.config.bucketCapacity)
		}
		buckets[b.tag] = append(bucket, b)
	})
	if err != nil {
		return err
	}
	r.count(&r.enqueued, 1)

	if err := r.notifier.Send(shell.RequestRedraw); err != nil {
		r.count(&r.notifyFailures, 1)
		return fmt.Errorf("message for %s: %w: %w", b.target, ErrNotifierClosed, err)
	}
	return nil
}

// Entities returns a sorted snapshot of the entities with queued messages.
// The set may change as soon as the call returns; callers scan it once
// per cycle and pick up later arrivals next cycle.
func (r *Router) Entities() []entity.Entity {
	var out []entity.Entity
	r.withLock("entities", func() {
		out = make([]entity.Entity, 0, len(r.messages))
		for e := range r.messages {
			out = append(out, e)
		}
	})
	entity.Sort(out)
	return out
}

// Drain moves every message queued for e into a new Reader and removes e from
// the router. An entity with nothing queued yields an empty Reader.
func (r *Router) Drain(e entity.Entity) *Reader {
	var buckets map[reflect.Type][]*Box
	r.withLock("drain", func() {
		buckets = r.messages[e]
		delete(r.messages, e)
	})

	if buckets == nil {
		buckets = make(map[reflect.Type][]*Box)
	}
	r.count(&r.readers, 1)
	r.count(&r.drained, countBoxes(buckets))

	return NewReader(buckets, e)
}

// Discard drops every message queued for e without producing a Reader.
// It is used for entities that have no state left to read them.
// Returns false if nothing was queued.
func (r *Router) Discard(e entity.Entity) bool {
	var buckets map[reflect.Type][]*Box
	var found bool
	r.withLock("discard", func() {
		buckets, found = r.messages[e]
		delete(r.messages, e)
	})

	if found {
		r.count(&r.discarded, countBoxes(buckets))
	}
	return found
}

// Len returns the number of entities with queued messages.
// The value is advisory; concurrent senders may change it at any time.
func (r *Router) Len() int {
	var n int
	r.withLock("len", func() {
		n = len(r.messages)
	})
	return n
}

// IsEmpty reports whether no entity has queued messages.
// Like Len, it is a diagnostic and must not drive Drain decisions.
func (r *Router) IsEmpty() bool {
	return r.Len() == 0
}

// Pending returns the advisory total number of queued messages.
func (r *Router) Pending() int {
	var n uint64
	r.withLock("pending", func() {
		for _, buckets := range r.messages {
			n += countBoxes(buckets)
		}
	})
	return int(n)
}

// Stats returns current router statistics.
func (r *Router) Stats() Stats {
	return Stats{
		Enqueued:        r.enqueued.Load(),
		Drained:         r.drained.Load(),
		Discarded:       r.discarded.Load(),
		Readers:         r.readers.Load(),
		NotifyFailures:  r.notifyFailures.Load(),
		PendingEntities: r.Len(),
	}
}

// withLock runs fn with the store locked. A panic escaping fn poisons the
// router; every later call panics with a *PoisonedError.
func (r *Router) withLock(op string, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.poisoned {
		panic(&PoisonedError{Op: op})
	}

	completed := false
	defer func() {
		if !completed {
			r.poisoned = true
		}
	}()
	fn()
	completed = true
}

func (r *Router) count(c *atomic.Uint64, n uint64) {
	if r.config.metricsEnabled && n > 0 {
		c.Add(n)
	}
}

func countBoxes(buckets map[reflect.Type][]*Box) uint64 {
	var n uint64
	for _, bucket := range buckets {
		n += uint64(len(bucket))
	}
	return n
}
