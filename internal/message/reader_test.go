package message

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dshills/widgetbus/internal/entity"
)

func TestReader_MixedTypes(t *testing.T) {
	r, _ := newTestRouter()

	_ = Send(r, "a", e1)
	_ = Send(r, 42, e1)
	_ = Send(r, "b", e1)

	reader := r.Drain(e1)
	if !Contains[string](reader) || !Contains[int](reader) {
		t.Fatal("reader is missing a type bucket")
	}
	if reader.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reader.Len())
	}

	strs := Read[string](reader)
	for _, want := range []string{"a", "b"} {
		got, ok := strs.Next()
		if !ok || got != want {
			t.Fatalf("Next() = %q, %v; want %q, true", got, ok, want)
		}
	}
	if _, ok := strs.Next(); ok {
		t.Error("string iterator yielded past the end")
	}

	ints := Read[int](reader)
	got, ok := ints.Next()
	if !ok || got != 42 {
		t.Fatalf("Next() = %d, %v; want 42, true", got, ok)
	}
	if _, ok := ints.Next(); ok {
		t.Error("int iterator yielded past the end")
	}

	if !reader.IsEmpty() {
		t.Error("reader not empty after reading every type")
	}
}

func TestReader_ReadTwice(t *testing.T) {
	r, _ := newTestRouter()
	_ = Send(r, 1, e1)
	_ = Send(r, 2, e1)

	reader := r.Drain(e1)
	first := Read[int](reader).Collect()
	if len(first) != 2 {
		t.Fatalf("first Read() got %d messages, want 2", len(first))
	}
	if Contains[int](reader) {
		t.Error("Contains() true after Read()")
	}

	second := Read[int](reader)
	if second.Len() != 0 {
		t.Errorf("second Read() Len() = %d, want 0", second.Len())
	}
	if _, ok := second.Next(); ok {
		t.Error("second Read() yielded a message")
	}
}

func TestReader_ReadAbsentType(t *testing.T) {
	reader := NewReader(nil, e2)

	if !reader.IsEmpty() {
		t.Error("reader over nil map is not empty")
	}
	it := Read[float64](reader)
	if _, ok := it.Next(); ok {
		t.Error("iterator over absent type yielded a message")
	}
	if it.Err() != nil {
		t.Errorf("Err() = %v, want nil", it.Err())
	}
}

func TestReader_ReadLeavesOtherTypes(t *testing.T) {
	r, _ := newTestRouter()
	_ = Send(r, "keep", e1)
	_ = Send(r, 3.5, e1)

	reader := r.Drain(e1)
	Read[float64](reader).Collect()

	if !Contains[string](reader) {
		t.Fatal("Read[float64] removed the string bucket")
	}
	if got := Read[string](reader).Collect(); len(got) != 1 || got[0] != "keep" {
		t.Errorf("strings = %v, want [keep]", got)
	}
}

func TestReader_Types(t *testing.T) {
	r, _ := newTestRouter()
	_ = Send(r, "s", e1)
	_ = Send(r, 1, e1)
	_ = Send(r, true, e1)

	got := r.Drain(e1).Types()
	want := []reflect.Type{reflect.TypeFor[bool](), reflect.TypeFor[int](), reflect.TypeFor[string]()}
	if len(got) != len(want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Types()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIterator_All(t *testing.T) {
	r, _ := newTestRouter()
	for _, s := range []string{"x", "y", "z"} {
		_ = Send(r, s, e1)
	}

	it := Read[string](r.Drain(e1))
	if it.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", it.Len())
	}

	var got []string
	for s := range it.All() {
		got = append(got, s)
		if len(got) == 2 {
			break
		}
	}
	if it.Len() != 1 {
		t.Errorf("Len() after partial range = %d, want 1", it.Len())
	}

	rest := it.Collect()
	if len(rest) != 1 || rest[0] != "z" {
		t.Errorf("Collect() = %v, want [z]", rest)
	}
	if it.Len() != 0 {
		t.Errorf("Len() after exhaustion = %d, want 0", it.Len())
	}
}

func TestIterator_MismatchStops(t *testing.T) {
	// Build a corrupt bucket by hand; Read never produces one.
	tag := TagOf[string]()
	reader := NewReader(map[reflect.Type][]*Box{
		tag: {NewBox("ok", e1), NewBox(5, e1), NewBox("never", e1)},
	}, entity.Entity(e1))

	it := Read[string](reader)
	if v, ok := it.Next(); !ok || v != "ok" {
		t.Fatalf("Next() = %q, %v; want ok, true", v, ok)
	}
	if _, ok := it.Next(); ok {
		t.Fatal("Next() succeeded on mismatched box")
	}
	if !errors.Is(it.Err(), ErrTypeMismatch) {
		t.Errorf("Err() = %v, want ErrTypeMismatch", it.Err())
	}
	if _, ok := it.Next(); ok {
		t.Error("iterator resumed after an error")
	}
}
