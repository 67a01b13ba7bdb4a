package atomic

import (
	"sync/atomic"
)

// TypedValue is an atomic.Value that always stores values of type T.
// Unlike atomic.Value, storing different concrete types behind an interface
// T is allowed, and the zero value is ready to use.
type TypedValue[T any] struct {
	value atomic.Value
}

// tValue has the same memory layout as T so simple values do not allocate
// when wrapped.
type tValue[T any] struct {
	value T
}

func (t *TypedValue[T]) Load() T {
	value, _ := t.LoadOk()
	return value
}

func (t *TypedValue[T]) LoadOk() (_ T, ok bool) {
	value := t.value.Load()
	if value == nil {
		var zero T
		return zero, false
	}
	return value.(tValue[T]).value, true
}

func (t *TypedValue[T]) Store(value T) {
	t.value.Store(tValue[T]{value})
}

func (t *TypedValue[T]) Swap(new T) T {
	old := t.value.Swap(tValue[T]{new})
	if old == nil {
		var zero T
		return zero
	}
	return old.(tValue[T]).value
}

func (t *TypedValue[T]) CompareAndSwap(old, new T) bool {
	// The first CAS against an unset Value must compare with nil, the
	// wrapped zero value never equals it.
	var zero T
	if any(old) == any(zero) {
		if _, ok := t.LoadOk(); !ok {
			return t.value.CompareAndSwap(nil, tValue[T]{new})
		}
	}
	return t.value.CompareAndSwap(tValue[T]{old}, tValue[T]{new})
}

func NewTypedValue[T any](value T) (t TypedValue[T]) {
	t.Store(value)
	return
}
