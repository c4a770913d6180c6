// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/kont"
)

// Step evaluates an access protocol until the first effect suspension.
// Returns (result, nil) on completion, or (zero, suspension) if pending.
func Step[R any](protocol kont.Expr[R]) (R, *kont.Suspension[R]) {
	return kont.StepExpr(protocol)
}

// Advance dispatches the suspended access operation.
// DispatchAccess is non-blocking: it returns ErrBorrowConflict when the
// cell cannot grant the borrow yet.
//
// On success (nil error), the suspension is consumed and the protocol
// advances to the next effect or completion.
// On ErrBorrowConflict, the suspension is unconsumed and may be retried
// after the conflicting guard is released.
func Advance[R any](susp *kont.Suspension[R]) (R, *kont.Suspension[R], error) {
	aop, ok := susp.Op().(accessDispatcher)
	if !ok {
		panic("rc: unhandled effect in Advance")
	}
	v, err := aop.DispatchAccess()
	if err != nil {
		var zero R
		return zero, susp, err
	}
	result, next := susp.Resume(v)
	return result, next, nil
}
