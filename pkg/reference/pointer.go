package reference

import (
	"errors"
	"io"
	"reflect"
	"sync/atomic"
)

var ErrReleased = errors.New("reference: value already released")

func Make[E io.Closer](value E) *Pointer[E] {
	if v := reflect.ValueOf(value); !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
		panic("value is nil")
	}
	return &Pointer[E]{value: value}
}

// Pointer
// counts holders of a shared value and closes it when the last holder releases.
type Pointer[E io.Closer] struct {
	value    E
	count    atomic.Int64
	released atomic.Bool
}

// Acquire
// adds a holder and returns the value.
func (pointer *Pointer[E]) Acquire() (value E, err error) {
	if pointer.released.Load() {
		err = ErrReleased
		return
	}
	pointer.count.Add(1)
	value = pointer.value
	return
}

// Value
// returns the value without adding a holder.
func (pointer *Pointer[E]) Value() E {
	return pointer.value
}

func (pointer *Pointer[E]) Count() int64 {
	return pointer.count.Load()
}

// Release
// drops a holder. The value is closed when no holders remain, and closed
// reports whether that happened.
func (pointer *Pointer[E]) Release() (closed bool, err error) {
	n := pointer.count.Add(-1)
	if n > 0 {
		return
	}
	if n < 0 {
		pointer.count.Store(0)
	}
	if !pointer.released.CompareAndSwap(false, true) {
		err = ErrReleased
		return
	}
	closed = true
	err = pointer.value.Close()
	return
}
