// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// Run runs two Cont-world access protocols to completion on the calling
// goroutine and returns both results. See RunExpr.
func Run[A, B any](a kont.Eff[A], b kont.Eff[B]) (A, B) {
	return RunExpr(kont.Reify(a), kont.Reify(b))
}

// RunExpr runs two Expr-world access protocols to completion on the
// calling goroutine. Each side advances as far as its borrows allow; a side
// blocked on a guard held by the other waits for the other to progress.
// Backs off with iox.Backoff when neither side can move. Does not spawn
// goroutines. If both sides wait on each other, RunExpr never returns.
func RunExpr[A, B any](a kont.Expr[A], b kont.Expr[B]) (A, B) {
	resultA, suspA := Step[A](a)
	resultB, suspB := Step[B](b)
	interleave(
		advancer(&resultA, &suspA, Advance[A]),
		advancer(&resultB, &suspB, Advance[B]),
	)
	return resultA, resultB
}

// advanceFunc dispatches one suspended access op without blocking.
type advanceFunc[R any] func(*kont.Suspension[R]) (R, *kont.Suspension[R], error)

// advancer binds one side of an interleaved run. The returned func tries
// one step and reports whether the side moved and whether it is finished.
// A conflicted step keeps the suspension for the next try.
func advancer[R any](result *R, susp **kont.Suspension[R], advance advanceFunc[R]) func() (moved, done bool) {
	return func() (bool, bool) {
		if *susp == nil {
			return false, true
		}
		r, next, err := advance(*susp)
		if err != nil {
			return false, false
		}
		*result, *susp = r, next
		return true, next == nil
	}
}

// interleave alternates a and b until both are finished.
func interleave(a, b func() (moved, done bool)) {
	var bo iox.Backoff
	var doneA, doneB bool
	for !doneA || !doneB {
		var movedA, movedB bool
		if !doneA {
			movedA, doneA = a()
		}
		if !doneB {
			movedB, doneB = b()
		}
		if movedA || movedB {
			bo.Reset()
		} else if !doneA || !doneB {
			bo.Wait()
		}
	}
}
