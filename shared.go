// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import "code.hybscloud.com/atomix"

// Shared is an owning handle to a reference-counted allocation.
//
// Every *Shared accounts for exactly one strong reference. Copying the
// pointer does not create a new reference; use [Shared.Clone]. Each handle
// must be released exactly once with [Shared.Release]. The payload is
// destroyed synchronously by the release that brings the strong count to
// zero, never before and never twice.
//
// Shared grants read access only. Mutate through a [Cell] held inside
// the payload.
type Shared[T any] struct {
	b        *block[T]
	released atomix.Uint32
}

// New allocates value under a fresh control block and returns the first
// strong handle. The block is Local unless [WithMode] says otherwise.
//
// Handles of a Local block must not leave the creating goroutine.
// [Handoff.Send] refuses them, but capturing one in a go statement goes
// unnoticed and races on the plain counts; use [NewSync] for anything
// shared across goroutines.
func New[T any](value T, opts ...Option) *Shared[T] {
	return &Shared[T]{b: allocate(value, opts)}
}

// NewSync is New with [Sync] mode: counts are atomic and handles may be
// cloned, released, and upgraded from any goroutine.
func NewSync[T any](value T, opts ...Option) *Shared[T] {
	return New(value, append(opts, WithMode(Sync))...)
}

func (s *Shared[T]) block(op string) *block[T] {
	if s.released.Load() != 0 {
		violate(op, s.b.serial, "use of released shared handle")
	}
	return s.b
}

// Clone returns a new strong handle to the same allocation. O(1); the
// payload is not touched.
func (s *Shared[T]) Clone() *Shared[T] {
	b := s.block("clone")
	b.retainStrong()
	return &Shared[T]{b: b}
}

// Release gives up this handle's strong reference. If it was the last
// one, the payload is destroyed before Release returns. Releasing the same
// handle twice panics with an *[InvariantViolation].
func (s *Shared[T]) Release() {
	if !s.released.CompareAndSwap(0, 1) {
		violate("release", s.b.serial, "shared handle released twice")
	}
	s.b.releaseStrong()
}

// Get returns a pointer to the payload. The pointer is valid while any
// strong handle is live; callers must not write through it.
func (s *Shared[T]) Get() *T {
	return &s.block("get").value
}

// Downgrade returns a new non-owning handle to the same allocation.
func (s *Shared[T]) Downgrade() *Weak[T] {
	b := s.block("downgrade")
	b.retainWeak()
	return &Weak[T]{b: b}
}

// StrongCount reports the number of live strong handles.
func (s *Shared[T]) StrongCount() int {
	return s.block("strong count").strongCount()
}

// WeakCount reports the number of live weak handles. In Sync mode the
// value is a snapshot that may already be stale.
func (s *Shared[T]) WeakCount() int {
	return s.block("weak count").weakCount()
}

// Mode returns the counting mode of the allocation.
func (s *Shared[T]) Mode() Mode {
	return s.b.mode
}

// Serial returns the serial number assigned to the allocation.
func (s *Shared[T]) Serial() Serial {
	return s.b.serial
}

// PtrEq reports whether s and other refer to the same allocation.
func (s *Shared[T]) PtrEq(other *Shared[T]) bool {
	return other != nil && s.b == other.b
}

// TryUnwrap returns the payload if s is the only strong handle, consuming
// s without running the payload destructor. Weak handles observe the
// allocation as gone afterwards. If other strong handles exist, s is left
// untouched and ok is false.
func (s *Shared[T]) TryUnwrap() (value T, ok bool) {
	b := s.block("unwrap")
	if !s.released.CompareAndSwap(0, 1) {
		violate("unwrap", b.serial, "use of released shared handle")
	}
	value, ok = b.take()
	if !ok {
		s.released.Store(0)
	}
	return value, ok
}

// ReleaseAll releases every non-nil handle in hs.
func ReleaseAll[T any](hs ...*Shared[T]) {
	for _, h := range hs {
		if h != nil {
			h.Release()
		}
	}
}
