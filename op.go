// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/kont"
)

// accessDispatcher is the structural interface for access operations.
// DispatchAccess is non-blocking: it returns ErrBorrowConflict (an
// iox.ErrWouldBlock) when the cell cannot grant the borrow yet.
type accessDispatcher interface {
	DispatchAccess() (kont.Resumed, error)
}

// Borrow is the effect operation for acquiring a read guard.
// Perform(Borrow[T]{Cell: c}) resumes with a *Ref[T]; the protocol owns
// the guard and must release it.
type Borrow[T any] struct {
	kont.Phantom[*Ref[T]]
	Cell *Cell[T]
}

// DispatchAccess handles Borrow.
// Non-blocking: returns ErrBorrowConflict while a write guard is held.
func (op Borrow[T]) DispatchAccess() (kont.Resumed, error) {
	r, err := op.Cell.Borrow()
	if err != nil {
		return nil, err
	}
	return r, nil
}

// BorrowMut is the effect operation for acquiring the write guard.
// Perform(BorrowMut[T]{Cell: c}) resumes with a *RefMut[T].
type BorrowMut[T any] struct {
	kont.Phantom[*RefMut[T]]
	Cell *Cell[T]
}

// DispatchAccess handles BorrowMut.
// Non-blocking: returns ErrBorrowConflict while any guard is held.
func (op BorrowMut[T]) DispatchAccess() (kont.Resumed, error) {
	w, err := op.Cell.BorrowMut()
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Upgrade is the effect operation for upgrading a weak handle.
// Perform(Upgrade[T]{Weak: w}) resumes with Right(strong handle) when the
// payload is alive and Left when it is gone. Never blocks.
type Upgrade[T any] struct {
	kont.Phantom[kont.Either[struct{}, *Shared[T]]]
	Weak *Weak[T]
}

// DispatchAccess handles Upgrade.
func (op Upgrade[T]) DispatchAccess() (kont.Resumed, error) {
	s, ok := op.Weak.Upgrade()
	if !ok {
		return kont.Left[struct{}, *Shared[T]](struct{}{}), nil
	}
	return kont.Right[struct{}](s), nil
}
