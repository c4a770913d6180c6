// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

var (
	// ErrBorrowConflict reports that a requested borrow would break the
	// shared/exclusive rule of a [Cell]. It wraps [iox.ErrWouldBlock]:
	// the conflict clears once the outstanding guard is released, so the
	// caller retries later exactly as it would on backpressure.
	ErrBorrowConflict = fmt.Errorf("rc: borrow conflict: %w", iox.ErrWouldBlock)

	// ErrLocalHandle reports that a Local-mode handle was offered to a
	// cross-goroutine transfer. Local handles are confined to one goroutine.
	ErrLocalHandle = errors.New("rc: local handle cannot cross goroutines")
)

// IsBorrowConflict reports whether err is, or wraps, [ErrBorrowConflict].
func IsBorrowConflict(err error) bool {
	return errors.Is(err, ErrBorrowConflict)
}

// InvariantViolation is the panic value raised when the bookkeeping of a
// control block, handle, or cell is found in a state that correct use of
// this package can never produce: a count going negative, a payload
// destroyed twice, block storage freed with live counts, or a handle used
// after its release.
//
// It is never returned as an error. State observed after a violation is
// untrustworthy, so the panic should be left to terminate the program
// (or the test).
type InvariantViolation struct {
	Op     string
	Serial Serial
	Detail string
}

// Error implements error so the panic value prints usefully.
func (v *InvariantViolation) Error() string {
	if v.Serial == 0 {
		return "rc: invariant violation in " + v.Op + ": " + v.Detail
	}
	return fmt.Sprintf("rc: invariant violation in %s (block #%d): %s", v.Op, v.Serial, v.Detail)
}

// violate panics with an *InvariantViolation.
func violate(op string, serial Serial, detail string) {
	panic(&InvariantViolation{Op: op, Serial: serial, Detail: detail})
}
