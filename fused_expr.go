// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/kont"
)

// identityResume is the identity resume function for EffectFrame construction.
func identityResume(v kont.Erased) kont.Erased { return v }

func borrowBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(*Ref[T]) kont.Expr[B])
	result := f(current.(*Ref[T]))
	return kont.Erased(result.Value), result.Frame
}

// ExprBorrowBind acquires a read guard on c and passes it to f.
// Fuses ExprPerform(Borrow[T]{Cell: c}) + ExprBind.
func ExprBorrowBind[T, B any](c *Cell[T], f func(*Ref[T]) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = borrowBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Borrow[T]{Cell: c}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

func borrowMutBindUnwind[T, B any](data, _, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	f := data.(func(*RefMut[T]) kont.Expr[B])
	result := f(current.(*RefMut[T]))
	return kont.Erased(result.Value), result.Frame
}

// ExprBorrowMutBind acquires the write guard on c and passes it to f.
// Fuses ExprPerform(BorrowMut[T]{Cell: c}) + ExprBind.
func ExprBorrowMutBind[T, B any](c *Cell[T], f func(*RefMut[T]) kont.Expr[B]) kont.Expr[B] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = f
	bf.Unwind = borrowMutBindUnwind[T, B]
	ef := kont.AcquireEffectFrame()
	ef.Operation = BorrowMut[T]{Cell: c}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[B](ef)
}

func upgradeBranchUnwind[T, A any](data, data2, _ kont.Erased, current kont.Erased) (kont.Erased, kont.Frame) {
	onGone := data.(func() kont.Expr[A])
	onLive := data2.(func(*Shared[T]) kont.Expr[A])
	e := current.(kont.Either[struct{}, *Shared[T]])
	var result kont.Expr[A]
	if s, ok := e.GetRight(); ok {
		result = onLive(s)
	} else {
		result = onGone()
	}
	return kont.Erased(result.Value), result.Frame
}

// ExprUpgradeBranch upgrades w and calls onLive with the new strong
// handle, or onGone if the payload has been destroyed.
// Fuses ExprPerform(Upgrade[T]{Weak: w}) + ExprBind + Either branch.
func ExprUpgradeBranch[T, A any](w *Weak[T], onGone func() kont.Expr[A], onLive func(*Shared[T]) kont.Expr[A]) kont.Expr[A] {
	bf := kont.AcquireUnwindFrame()
	bf.Data1 = onGone
	bf.Data2 = onLive
	bf.Unwind = upgradeBranchUnwind[T, A]
	ef := kont.AcquireEffectFrame()
	ef.Operation = Upgrade[T]{Weak: w}
	ef.Resume = identityResume
	ef.Next = bf
	return kont.ExprSuspend[A](ef)
}
