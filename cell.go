// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"math"
	"strconv"

	"code.hybscloud.com/atomix"
)

// BorrowState is the access mode of a [Cell]: 0 is unborrowed, n > 0 is
// n outstanding read guards, -1 is one outstanding write guard.
type BorrowState int32

const (
	Unborrowed        BorrowState = 0
	ExclusiveBorrowed BorrowState = -1
)

// SharedBorrowed returns the state with n outstanding read guards.
func SharedBorrowed(n int) BorrowState {
	return BorrowState(n)
}

// Readers returns the number of outstanding read guards.
func (s BorrowState) Readers() int {
	if s < 0 {
		return 0
	}
	return int(s)
}

// Exclusive reports whether a write guard is outstanding.
func (s BorrowState) Exclusive() bool {
	return s == ExclusiveBorrowed
}

func (s BorrowState) String() string {
	switch {
	case s == Unborrowed:
		return "unborrowed"
	case s == ExclusiveBorrowed:
		return "exclusive"
	default:
		return "shared(" + strconv.Itoa(int(s)) + ")"
	}
}

// Cell holds a value whose aliasing rules are checked at run time: any
// number of read guards, or exactly one write guard, never both.
//
// Borrow and BorrowMut never wait. A request that would break the rule
// fails with [ErrBorrowConflict] and leaves the cell untouched. Every
// state transition is a single CAS, so a Cell may live in a payload
// shared across goroutines.
//
// A Cell must not be copied after first use.
type Cell[T any] struct {
	state atomix.Int32
	value T
}

// NewCell returns an unborrowed cell holding value.
func NewCell[T any](value T) *Cell[T] {
	return &Cell[T]{value: value}
}

// State returns a snapshot of the borrow state.
func (c *Cell[T]) State() BorrowState {
	return BorrowState(c.state.Load())
}

// Borrow acquires a read guard. It fails with ErrBorrowConflict while a
// write guard is outstanding.
func (c *Cell[T]) Borrow() (*Ref[T], error) {
	for {
		n := c.state.Load()
		if n < 0 {
			return nil, ErrBorrowConflict
		}
		if n == math.MaxInt32 {
			violate("borrow", 0, "too many read guards")
		}
		if c.state.CompareAndSwap(n, n+1) {
			return &Ref[T]{c: c}, nil
		}
	}
}

// BorrowMut acquires the write guard. It fails with ErrBorrowConflict
// while any guard is outstanding.
func (c *Cell[T]) BorrowMut() (*RefMut[T], error) {
	if !c.state.CompareAndSwap(0, -1) {
		return nil, ErrBorrowConflict
	}
	return &RefMut[T]{c: c}, nil
}

// Read calls f with the value under a read guard. The guard is released
// on every exit path of f, panics included.
func (c *Cell[T]) Read(f func(T) error) error {
	r, err := c.Borrow()
	if err != nil {
		return err
	}
	defer r.Release()
	return f(r.Get())
}

// Write calls f with a pointer to the value under the write guard. The
// guard is released on every exit path of f, panics included.
func (c *Cell[T]) Write(f func(*T) error) error {
	w, err := c.BorrowMut()
	if err != nil {
		return err
	}
	defer w.Release()
	return f(w.Get())
}

// Replace stores v and returns the previous value.
func (c *Cell[T]) Replace(v T) (old T, err error) {
	w, err := c.BorrowMut()
	if err != nil {
		return old, err
	}
	defer w.Release()
	old, w.c.value = w.c.value, v
	return old, nil
}

// Ref is a read guard on a [Cell].
type Ref[T any] struct {
	c        *Cell[T]
	released atomix.Uint32
}

// Get returns the guarded value.
func (r *Ref[T]) Get() T {
	if r.released.Load() != 0 {
		violate("ref get", 0, "use of released read guard")
	}
	return r.c.value
}

// Release gives up the read guard. The cell returns to Unborrowed when
// the last read guard is released.
func (r *Ref[T]) Release() {
	if !r.released.CompareAndSwap(0, 1) {
		violate("ref release", 0, "read guard released twice")
	}
	if n := r.c.state.Add(-1); n < 0 {
		violate("ref release", 0, "read count below zero")
	}
}

// RefMut is the write guard on a [Cell].
type RefMut[T any] struct {
	c        *Cell[T]
	released atomix.Uint32
}

// Get returns a pointer to the guarded value, valid until Release.
func (w *RefMut[T]) Get() *T {
	if w.released.Load() != 0 {
		violate("refmut get", 0, "use of released write guard")
	}
	return &w.c.value
}

// Set stores v in the cell.
func (w *RefMut[T]) Set(v T) {
	*w.Get() = v
}

// Release gives up the write guard, returning the cell to Unborrowed.
func (w *RefMut[T]) Release() {
	if !w.released.CompareAndSwap(0, 1) {
		violate("refmut release", 0, "write guard released twice")
	}
	if !w.c.state.CompareAndSwap(-1, 0) {
		violate("refmut release", 0, "cell not exclusively borrowed")
	}
}
