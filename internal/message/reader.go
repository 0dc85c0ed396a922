package message

import (
	"reflect"
	"slices"
	"strings"

	"github.com/dshills/widgetbus/internal/entity"
)

// Reader gives a widget state access to the messages drained for its entity.
// A Reader belongs to the one caller that drained it and is not safe for
// concurrent use.
type Reader struct {
	messages map[reflect.Type][]*Box
	target   entity.Entity
}

// NewReader creates a reader over messages drained for target.
func NewReader(messages map[reflect.Type][]*Box, target entity.Entity) *Reader {
	if messages == nil {
		messages = make(map[reflect.Type][]*Box)
	}
	return &Reader{messages: messages, target: target}
}

// Entity returns the entity the messages were addressed to.
func (r *Reader) Entity() entity.Entity {
	return r.target
}

// IsEmpty reports whether no type buckets remain.
func (r *Reader) IsEmpty() bool {
	return len(r.messages) == 0
}

// Len returns the number of type buckets remaining.
func (r *Reader) Len() int {
	return len(r.messages)
}

// Types returns the remaining type tags sorted by name.
func (r *Reader) Types() []reflect.Type {
	out := make([]reflect.Type, 0, len(r.messages))
	for t := range r.messages {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b reflect.Type) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Contains reports whether the reader still holds messages of type T.
// It returns false once Read[T] has been called.
func Contains[T any](r *Reader) bool {
	_, ok := r.messages[TagOf[T]()]
	return ok
}

// Read removes every message of type T from the reader and returns them as
// an iterator. A second Read[T] on the same reader yields an empty iterator.
func Read[T any](r *Reader) *Iterator[T] {
	tag := TagOf[T]()
	boxes := r.messages[tag]
	delete(r.messages, tag)
	return newIterator[T](boxes)
}
