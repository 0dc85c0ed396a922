package message

import (
	"reflect"

	"github.com/dshills/widgetbus/internal/entity"
)

// Box holds a single message of erased type together with its type tag and
// target entity.
type Box struct {
	// payload always holds a *T where T is the type behind tag.
	payload  any
	tag      reflect.Type
	target   entity.Entity
	consumed bool
	// filed is set once the box is handed to a router.
	filed bool
}

// NewBox boxes payload for target. The type tag is derived from T.
func NewBox[T any](payload T, target entity.Entity) *Box {
	p := new(T)
	*p = payload
	return &Box{
		payload: p,
		tag:     TagOf[T](),
		target:  target,
	}
}

// TagOf returns the type tag used for payloads of type T.
func TagOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Tag returns the type tag of the boxed payload.
func (b *Box) Tag() reflect.Type {
	return b.tag
}

// Target returns the entity the message is addressed to.
func (b *Box) Target() entity.Entity {
	return b.target
}

// Consumed reports whether the payload has been taken out by Recover.
func (b *Box) Consumed() bool {
	return b.consumed
}

// IsType reports whether the box holds a payload of type T.
func IsType[T any](b *Box) bool {
	return b.tag == TagOf[T]()
}

// Recover takes the payload out of the box as a T.
// The box is consumed on success and cannot be recovered again.
func Recover[T any](b *Box) (T, error) {
	p, err := RecoverRef[T](b)
	if err != nil {
		var zero T
		return zero, err
	}
	v := *p
	b.payload = nil
	b.consumed = true
	return v, nil
}

// RecoverRef returns a pointer to the boxed payload as a T without consuming it.
func RecoverRef[T any](b *Box) (*T, error) {
	if b.consumed {
		return nil, ErrBoxConsumed
	}
	want := TagOf[T]()
	if b.tag != want {
		return nil, &TypeMismatchError{Want: want, Got: b.tag, Target: b.target}
	}
	p, ok := b.payload.(*T)
	if !ok {
		return nil, &TypeMismatchError{Want: want, Got: b.tag, Target: b.target}
	}
	return p, nil
}
