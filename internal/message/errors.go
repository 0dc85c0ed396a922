package message

import (
	"errors"
	"reflect"

	"github.com/dshills/widgetbus/internal/entity"
)

// Sentinel errors for the message bus.
var (
	// ErrTypeMismatch is returned when a box is recovered as a type other than its own.
	ErrTypeMismatch = errors.New("wrong message type")

	// ErrBoxConsumed is returned when recovering a box that was already consumed.
	ErrBoxConsumed = errors.New("message box already consumed")

	// ErrNilBox is returned when a nil box is enqueued.
	ErrNilBox = errors.New("message box cannot be nil")

	// ErrBoxFiled is returned when a box is handed to a router a second time.
	ErrBoxFiled = errors.New("message box already filed")

	// ErrNotifierClosed is returned when the host loop wake channel is gone.
	// The session cannot make progress after this.
	ErrNotifierClosed = errors.New("host loop notifier is closed")

	// ErrRouterPoisoned is the panic cause once a router critical section has failed.
	ErrRouterPoisoned = errors.New("message router is poisoned")
)

// TypeMismatchError describes a failed payload recovery.
type TypeMismatchError struct {
	// Want is the type the caller asked for.
	Want reflect.Type

	// Got is the type the box was built with.
	Got reflect.Type

	// Target is the entity the message was addressed to.
	Target entity.Entity
}

// Error implements the error interface.
func (e *TypeMismatchError) Error() string {
	return "wrong message type for " + e.Target.String() + ": want " + typeName(e.Want) + ", got " + typeName(e.Got)
}

// Is allows errors.Is to match TypeMismatchError with ErrTypeMismatch.
func (e *TypeMismatchError) Is(target error) bool {
	return target == ErrTypeMismatch
}

// PoisonedError is the panic value raised by a poisoned router.
type PoisonedError struct {
	// Op is the router operation that observed the poisoned state.
	Op string
}

// Error implements the error interface.
func (e *PoisonedError) Error() string {
	return "message router poisoned (during " + e.Op + ")"
}

// Unwrap returns ErrRouterPoisoned.
func (e *PoisonedError) Unwrap() error {
	return ErrRouterPoisoned
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
