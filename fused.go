// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/kont"
)

// BorrowBind acquires a read guard on c and passes it to f.
// Fuses Perform(Borrow[T]{Cell: c}) + Bind. f owns the guard.
func BorrowBind[T, B any](c *Cell[T], f func(*Ref[T]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(Borrow[T]{Cell: c}), f)
}

// BorrowMutBind acquires the write guard on c and passes it to f.
// Fuses Perform(BorrowMut[T]{Cell: c}) + Bind. f owns the guard.
func BorrowMutBind[T, B any](c *Cell[T], f func(*RefMut[T]) kont.Eff[B]) kont.Eff[B] {
	return kont.Bind(kont.Perform(BorrowMut[T]{Cell: c}), f)
}

// UpgradeBranch upgrades w and calls onLive with the new strong handle,
// or onGone if the payload has been destroyed.
// Fuses Perform(Upgrade[T]{Weak: w}) + Bind + Either branch.
func UpgradeBranch[T, A any](w *Weak[T], onGone func() kont.Eff[A], onLive func(*Shared[T]) kont.Eff[A]) kont.Eff[A] {
	return kont.Bind(kont.Perform(Upgrade[T]{Weak: w}), func(e kont.Either[struct{}, *Shared[T]]) kont.Eff[A] {
		if s, ok := e.GetRight(); ok {
			return onLive(s)
		}
		return onGone()
	})
}

// ReadThen reads c under a scoped read guard, then continues with next(v).
// The guard is released before next runs.
func ReadThen[T, B any](c *Cell[T], next func(T) kont.Eff[B]) kont.Eff[B] {
	return BorrowBind(c, func(r *Ref[T]) kont.Eff[B] {
		v := r.Get()
		r.Release()
		return next(v)
	})
}

// WriteThen applies f to c's value under a scoped write guard, then
// continues with next. The guard is released before next runs.
func WriteThen[T, B any](c *Cell[T], f func(*T), next kont.Eff[B]) kont.Eff[B] {
	return BorrowMutBind(c, func(w *RefMut[T]) kont.Eff[B] {
		func() {
			defer w.Release()
			f(w.Get())
		}()
		return next
	})
}
