// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc_test

import (
	"testing"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/rc"
)

// mustViolate runs f and fails the test unless f panics with an
// *rc.InvariantViolation. Returns the violation for further checks.
func mustViolate(t *testing.T, f func()) (v *rc.InvariantViolation) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected invariant violation, got none")
		}
		var ok bool
		v, ok = r.(*rc.InvariantViolation)
		if !ok {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	f()
	return nil
}

// execExpr drives a protocol to completion via Step+Advance loop.
// Retries on rc.ErrBorrowConflict (guard held elsewhere).
func execExpr[R any](protocol kont.Expr[R]) R {
	result, susp := rc.Step[R](protocol)
	for susp != nil {
		var err error
		result, susp, err = rc.Advance(susp)
		if err != nil {
			continue
		}
	}
	return result
}

// dropCounter counts payload destructions.
type dropCounter struct {
	n int
}

func (d *dropCounter) option() rc.Option {
	return rc.OnDrop(func() { d.n++ })
}
