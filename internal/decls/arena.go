// Package decls stores declarations behind stable, typed reference handles.
package decls

import (
	"fmt"

	"fortio.org/safecast"
)

// ID is a 1-based handle into an Arena[T]. The zero ID is never valid.
type ID[T any] uint32

// IsValid reports whether id can refer to a stored value.
func (id ID[T]) IsValid() bool { return id != 0 }

// Arena owns values of type T and hands out stable IDs.
type Arena[T any] struct {
	data []T
}

// NewArena creates an arena with room for capHint values.
func NewArena[T any](capHint uint) *Arena[T] {
	return &Arena[T]{data: make([]T, 0, capHint)}
}

// Insert stores value and returns its handle.
func (a *Arena[T]) Insert(value T) ID[T] {
	a.data = append(a.data, value)
	n, err := safecast.Conv[uint32](len(a.data))
	if err != nil {
		panic(fmt.Errorf("decl arena overflow: %w", err))
	}
	return ID[T](n)
}

// Get returns a pointer to the stored value, or nil for an unknown id.
func (a *Arena[T]) Get(id ID[T]) *T {
	if id == 0 || int(id) > len(a.data) {
		return nil
	}
	return &a.data[id-1]
}

// Replace overwrites the value behind id. It reports false for unknown ids.
func (a *Arena[T]) Replace(id ID[T], value T) bool {
	p := a.Get(id)
	if p == nil {
		return false
	}
	*p = value
	return true
}

// Len reports the number of stored values.
func (a *Arena[T]) Len() int {
	return len(a.data)
}

// All iterates over every stored value with its handle.
func (a *Arena[T]) All(yield func(ID[T], *T) bool) {
	for i := range a.data {
		if !yield(ID[T](i+1), &a.data[i]) {
			return
		}
	}
}
