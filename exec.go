// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// accessHandler implements kont.Handler for access effects.
// Waits on ErrBorrowConflict, converting non-blocking dispatch into
// blocking evaluation for Exec/ExecExpr.
type accessHandler[R any] struct{}

// Dispatch implements kont.Handler via structural interface assertion.
func (h accessHandler[R]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	aop, ok := op.(accessDispatcher)
	if !ok {
		panic("rc: unhandled effect in accessHandler")
	}
	return dispatchWait(aop), true
}

// dispatchWait blocks until DispatchAccess succeeds, backing off with
// iox.Backoff while the borrow conflicts.
func dispatchWait(aop accessDispatcher) kont.Resumed {
	var bo iox.Backoff
	for {
		v, err := aop.DispatchAccess()
		if err == nil {
			return v
		}
		bo.Wait()
	}
}

// Exec runs a Cont-world access protocol to completion.
// Blocks on ErrBorrowConflict via adaptive backoff until another
// goroutine releases the conflicting guard. A protocol that conflicts
// with a guard held by its own goroutine never completes.
func Exec[R any](protocol kont.Eff[R]) R {
	var h accessHandler[R]
	return kont.Handle(protocol, h)
}

// ExecExpr runs an Expr-world access protocol to completion.
// Blocks on ErrBorrowConflict via adaptive backoff.
func ExecExpr[R any](protocol kont.Expr[R]) R {
	var h accessHandler[R]
	return kont.HandleExpr(protocol, h)
}
