// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/kont"
)

// errorDispatcher matches kont's error operations (Throw, Catch).
type errorDispatcher[E any] interface {
	DispatchError(ctx *kont.ErrorContext[E]) (kont.Resumed, bool)
}

// accessErrorHandler serves access ops by waiting out conflicts and
// error ops through a shared ErrorContext. A Throw ends the run with Left.
type accessErrorHandler[E, A any] struct {
	errCtx *kont.ErrorContext[E]
}

func (h accessErrorHandler[E, A]) Dispatch(op kont.Operation) (kont.Resumed, bool) {
	switch op := op.(type) {
	case accessDispatcher:
		return dispatchWait(op), true
	case errorDispatcher[E]:
		v, _ := op.DispatchError(h.errCtx)
		if h.errCtx.HasErr {
			return kont.Left[E, A](h.errCtx.Err), false
		}
		return v, true
	}
	panic("rc: unhandled effect in accessErrorHandler")
}

func rightOf[E, R any](r R) kont.Either[E, R] {
	return kont.Right[E, R](r)
}

// ExecError runs protocol to completion, waiting out borrow conflicts.
// The result is Right with the protocol's value, or Left with the first
// thrown error. Guards a protocol releases before throwing stay
// released; guards it still holds are the protocol's to release.
func ExecError[E, R any](protocol kont.Eff[R]) kont.Either[E, R] {
	wrapped := kont.Map[kont.Resumed, R, kont.Either[E, R]](protocol, rightOf[E, R])
	var errCtx kont.ErrorContext[E]
	return kont.Handle(wrapped, accessErrorHandler[E, R]{errCtx: &errCtx})
}

// ExecErrorExpr is ExecError for Expr-world protocols.
func ExecErrorExpr[E, R any](protocol kont.Expr[R]) kont.Either[E, R] {
	wrapped := kont.ExprMap(protocol, rightOf[E, R])
	var errCtx kont.ErrorContext[E]
	return kont.HandleExpr(wrapped, accessErrorHandler[E, R]{errCtx: &errCtx})
}

// RunError runs two Cont-world protocols with error effects on the
// calling goroutine. See RunErrorExpr.
func RunError[E, A, B any](a kont.Eff[A], b kont.Eff[B]) (kont.Either[E, A], kont.Either[E, B]) {
	return RunErrorExpr[E](kont.Reify(a), kont.Reify(b))
}

// RunErrorExpr interleaves two Expr-world protocols like RunExpr, each
// with its own error scope. A Throw finishes only the side that threw;
// the other side keeps running, so a reader waiting on a writer that
// throws after releasing its guard still completes.
func RunErrorExpr[E, A, B any](a kont.Expr[A], b kont.Expr[B]) (kont.Either[E, A], kont.Either[E, B]) {
	resultA, suspA := StepError[E, A](a)
	resultB, suspB := StepError[E, B](b)
	interleave(
		advancer(&resultA, &suspA, AdvanceError[E, A]),
		advancer(&resultB, &suspB, AdvanceError[E, B]),
	)
	return resultA, resultB
}

// StepError runs protocol up to its first suspension. It returns the
// Either result and a nil suspension once the protocol has finished or
// thrown.
func StepError[E, R any](protocol kont.Expr[R]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]]) {
	return kont.StepExpr(kont.ExprMap(protocol, rightOf[E, R]))
}

// AdvanceError dispatches the op susp is waiting on. A borrow conflict
// returns ErrBorrowConflict with susp untouched so the caller can retry.
// A Throw discards susp and returns Left.
func AdvanceError[E, R any](susp *kont.Suspension[kont.Either[E, R]]) (kont.Either[E, R], *kont.Suspension[kont.Either[E, R]], error) {
	switch op := susp.Op().(type) {
	case accessDispatcher:
		v, err := op.DispatchAccess()
		if err != nil {
			var zero kont.Either[E, R]
			return zero, susp, err
		}
		result, next := susp.Resume(v)
		return result, next, nil
	case errorDispatcher[E]:
		var ctx kont.ErrorContext[E]
		v, _ := op.DispatchError(&ctx)
		if ctx.HasErr {
			susp.Discard()
			return kont.Left[E, R](ctx.Err), nil, nil
		}
		result, next := susp.Resume(v)
		return result, next, nil
	}
	panic("rc: unhandled effect in AdvanceError")
}
