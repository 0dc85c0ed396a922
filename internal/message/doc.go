// Package message provides the entity-addressed, type-routed message bus used
// by widget states.
//
// Any goroutine may send a typed payload to a widget entity. The host loop
// later asks which entities have pending messages, drains each one into a
// Reader and hands it to the widget's state, which pulls out the payload
// types it understands.
//
// # Architecture
//
//	 producers (any goroutine)               host loop (single goroutine)
//	┌──────────────────────────┐           ┌──────────────────────────────┐
//	│ Send[T](router, v, e)    │           │ router.Entities()            │
//	└────────────┬─────────────┘           │ router.Drain(e) -> *Reader   │
//	             │                         │ Read[T](reader) -> Iterator  │
//	             ▼                         └──────────────▲───────────────┘
//	┌──────────────────────────────────────┐              │
//	│                Router                │──────────────┘
//	│  entity -> type tag -> []*Box (FIFO) │
//	│  one mutex for the whole store       │──── shell.RequestRedraw ───► host loop
//	└──────────────────────────────────────┘
//
// # Type tags
//
// Every Box records reflect.TypeFor[T]() for the type parameter it was built
// with. The router files boxes under that tag and Read[T] looks buckets up
// with the same expression, so a bucket only ever holds boxes of one type and
// recovery inside an Iterator cannot mismatch. Recover still checks the tag
// and returns a *TypeMismatchError rather than trusting the caller.
//
// Interface types are tags in their own right: a value sent as Send[any] is
// only visible to Read[any], not to Read[string].
//
// # Ownership
//
// Send builds each box itself, so no caller holds a box the router owns.
// A box lives in the router until Drain moves the entity's whole map into a
// Reader. Read[T] moves one bucket into an Iterator, and Next hands each
// payload to the caller. Nothing is shared between stages, so a Reader
// never sees messages sent after its Drain; those wait for the next cycle.
//
// # Ordering
//
// Messages of one type for one entity are delivered in send order. There is
// no ordering across types or across entities.
//
// # Example
//
//	router := message.NewRouter(shellChannel.Sender())
//
//	// producer
//	_ = message.Send(router, "Hello", label)
//
//	// host loop
//	for _, e := range router.Entities() {
//		reader := router.Drain(e)
//		for text := range message.Read[string](reader).All() {
//			fmt.Println(text)
//		}
//	}
package message
