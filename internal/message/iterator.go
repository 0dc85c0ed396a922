package message

import "iter"

// Iterator yields the payloads of one type in send order.
// It consumes its boxes as it goes and cannot be restarted.
type Iterator[T any] struct {
	boxes []*Box
	pos   int
	err   error
}

func newIterator[T any](boxes []*Box) *Iterator[T] {
	return &Iterator[T]{boxes: boxes}
}

// Next returns the next payload. It returns false when the iterator is
// exhausted or a box failed to recover; check Err to tell them apart.
func (it *Iterator[T]) Next() (T, bool) {
	var zero T
	if it.err != nil || it.pos >= len(it.boxes) {
		return zero, false
	}

	b := it.boxes[it.pos]
	it.boxes[it.pos] = nil
	it.pos++
	if it.pos == len(it.boxes) {
		it.boxes = nil
		it.pos = 0
	}

	v, err := Recover[T](b)
	if err != nil {
		it.err = err
		it.boxes = nil
		it.pos = 0
		return zero, false
	}
	return v, true
}

// Err returns the recovery error that stopped the iterator, if any.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Len returns the number of payloads not yet yielded.
func (it *Iterator[T]) Len() int {
	return len(it.boxes) - it.pos
}

// All returns a single-use sequence over the remaining payloads.
func (it *Iterator[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Collect drains the iterator into a slice.
func (it *Iterator[T]) Collect() []T {
	out := make([]T, 0, it.Len())
	for v := range it.All() {
		out = append(out, v)
	}
	return out
}
