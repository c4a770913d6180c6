// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import "code.hybscloud.com/atomix"

// Weak is a non-owning handle to a reference-counted allocation.
//
// A Weak keeps the control block's bookkeeping alive but not the payload.
// [Weak.Upgrade] either yields a new strong handle to a payload confirmed
// alive, or reports that the payload is gone. Each handle must be released
// exactly once.
//
// The empty Weak returned by [NewWeak] refers to no allocation and never
// upgrades. It stands for "nothing yet", e.g. a root node's parent.
type Weak[T any] struct {
	b        *block[T]
	released atomix.Uint32
}

// NewWeak returns an empty weak handle.
func NewWeak[T any]() *Weak[T] {
	return &Weak[T]{}
}

func (w *Weak[T]) check(op string) {
	if w.released.Load() != 0 {
		var serial Serial
		if w.b != nil {
			serial = w.b.serial
		}
		violate(op, serial, "use of released weak handle")
	}
}

// Empty reports whether w refers to no allocation.
func (w *Weak[T]) Empty() bool {
	return w.b == nil
}

// Upgrade returns a new strong handle if the payload is still alive.
// The liveness check and the strong increment are one atomic step in
// Sync mode, so a payload whose destruction has begun is never revived.
// ok == false is an ordinary outcome, not an error.
func (w *Weak[T]) Upgrade() (s *Shared[T], ok bool) {
	w.check("upgrade")
	if w.b == nil || !w.b.tryRetainStrong() {
		return nil, false
	}
	return &Shared[T]{b: w.b}, true
}

// Clone returns a new weak handle to the same allocation.
func (w *Weak[T]) Clone() *Weak[T] {
	w.check("clone weak")
	if w.b == nil {
		return &Weak[T]{}
	}
	w.b.retainWeak()
	return &Weak[T]{b: w.b}
}

// Release gives up this weak reference. The control block is freed when
// neither strong nor weak references remain.
func (w *Weak[T]) Release() {
	if !w.released.CompareAndSwap(0, 1) {
		var serial Serial
		if w.b != nil {
			serial = w.b.serial
		}
		violate("release weak", serial, "weak handle released twice")
	}
	if w.b != nil {
		w.b.releaseWeak()
	}
}

// StrongCount reports the number of live strong handles; 0 for an empty
// or dead allocation.
func (w *Weak[T]) StrongCount() int {
	w.check("strong count")
	if w.b == nil {
		return 0
	}
	return w.b.strongCount()
}

// WeakCount reports the number of live weak handles; 0 for an empty handle.
// While another goroutine is finishing the final strong release of a Sync
// block, the count can read one too high until that release returns.
func (w *Weak[T]) WeakCount() int {
	w.check("weak count")
	if w.b == nil {
		return 0
	}
	return w.b.weakCount()
}

// PtrEq reports whether w and other refer to the same allocation.
// Two empty handles are equal.
func (w *Weak[T]) PtrEq(other *Weak[T]) bool {
	return other != nil && w.b == other.b
}

// Serial returns the serial of the allocation, or 0 for an empty handle.
func (w *Weak[T]) Serial() Serial {
	if w.b == nil {
		return 0
	}
	return w.b.serial
}
