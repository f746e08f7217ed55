// Package stack holds a simple generic LIFO container.
//
// It backs the symbol table's scope stack and the parser's loop-exit
// label stack - both of which are opened and closed in strict LIFO
// order over the course of one compilation.
package stack

import (
	"sync"

	"github.com/pkg/errors"
)

// Stack holds a stack of values of type T, protected by a mutex.
type Stack[T any] struct {
	lock sync.Mutex
	s    []T
}

// New returns a new, empty stack.
func New[T any]() *Stack[T] {
	return &Stack[T]{s: make([]T, 0)}
}

// Push adds a new item to the top of the stack.
func (s *Stack[T]) Push(v T) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.s = append(s.s, v)
}

// Pop removes and returns the top item of the stack.
func (s *Stack[T]) Pop() (T, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var zero T
	l := len(s.s)
	if l == 0 {
		return zero, errors.New("stack: pop from empty stack")
	}

	res := s.s[l-1]
	s.s = s.s[:l-1]
	return res, nil
}

// Top returns the top item of the stack without removing it.
func (s *Stack[T]) Top() (T, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	var zero T
	l := len(s.s)
	if l == 0 {
		return zero, errors.New("stack: top of empty stack")
	}
	return s.s[l-1], nil
}

// Empty returns true if the stack holds no items.
func (s *Stack[T]) Empty() bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.s) == 0
}

// Len returns the number of items on the stack.
func (s *Stack[T]) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.s)
}

// All returns a copy of the stack's contents, bottom (index 0) to top.
// Used by callers that need to traverse every frame rather than just
// push/pop the top one - the symbol table's innermost-to-outermost
// lookup, in particular.
func (s *Stack[T]) All() []T {
	s.lock.Lock()
	defer s.lock.Unlock()

	out := make([]T, len(s.s))
	copy(out, s.s)
	return out
}
