// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc

import (
	"code.hybscloud.com/atomix"
)

// Mode selects how a control block synchronizes its counts.
// The mode is fixed at allocation and shared by every handle derived
// from that allocation.
type Mode uint8

const (
	// Local blocks keep plain integer counts. Handles of a Local block
	// must stay on the goroutine that created them. Only Handoff checks
	// this; a Local handle captured by a go statement is not detected
	// and races on its counts.
	Local Mode = iota
	// Sync blocks keep atomic counts and may be shared across goroutines.
	Sync
)

// String returns "local" or "sync".
func (m Mode) String() string {
	if m == Sync {
		return "sync"
	}
	return "local"
}

// Dropper is implemented by payloads that own resources of their own.
// The payload T qualifies when T or *T has a Drop method, so both
// New(conn{...}) and New(&conn{...}) run it. Drop runs exactly once, on
// the goroutine whose release brought the strong count to zero, before
// the payload is zeroed.
type Dropper interface {
	Drop()
}

// Option configures an allocation.
type Option func(*options)

type options struct {
	mode   Mode
	onDrop func()
	onFree func()
}

// WithMode selects the counting mode of the allocation.
func WithMode(m Mode) Option {
	return func(o *options) { o.mode = m }
}

// OnDrop registers f to run right after the payload is destroyed.
func OnDrop(f func()) Option {
	return func(o *options) { o.onDrop = f }
}

// OnFree registers f to run when the block itself is released, i.e. once
// both the strong and the weak count have reached zero.
func OnFree(f func()) Option {
	return func(o *options) { o.onFree = f }
}

// counts is the strong/weak bookkeeping of one block.
//
// The weak count includes one implicit reference collectively held by
// all strong handles; it is dropped right after the payload is destroyed.
// That way exactly one release, strong or weak, observes weak == 0.
type counts interface {
	strong() int64
	weak() int64
	addStrong(delta int64) int64
	// retainIfLive increments the strong count unless it is zero.
	retainIfLive() bool
	// claimUnique moves the strong count from one to zero.
	claimUnique() bool
	addWeak(delta int64) int64
}

// localCounts is the Local-mode bookkeeping: plain integers.
type localCounts struct {
	s, w int64
}

func (c *localCounts) strong() int64 { return c.s }
func (c *localCounts) weak() int64   { return c.w }

func (c *localCounts) addStrong(delta int64) int64 {
	c.s += delta
	return c.s
}

func (c *localCounts) retainIfLive() bool {
	if c.s == 0 {
		return false
	}
	c.s++
	return true
}

func (c *localCounts) claimUnique() bool {
	if c.s != 1 {
		return false
	}
	c.s = 0
	return true
}

func (c *localCounts) addWeak(delta int64) int64 {
	c.w += delta
	return c.w
}

// syncCounts is the Sync-mode bookkeeping. Every decision that matters
// (reaching zero, reviving from zero) is made by a single atomic step.
type syncCounts struct {
	s, w atomix.Int64
}

func (c *syncCounts) strong() int64 { return c.s.Load() }
func (c *syncCounts) weak() int64   { return c.w.Load() }

func (c *syncCounts) addStrong(delta int64) int64 {
	return c.s.Add(delta)
}

// retainIfLive is a CAS loop: a zero strong count is final, so an upgrade
// racing with the last release either wins before the decrement or fails.
func (c *syncCounts) retainIfLive() bool {
	for {
		n := c.s.Load()
		if n == 0 {
			return false
		}
		if n < 0 {
			violate("upgrade", 0, "negative strong count")
		}
		if c.s.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (c *syncCounts) claimUnique() bool {
	return c.s.CompareAndSwap(1, 0)
}

func (c *syncCounts) addWeak(delta int64) int64 {
	return c.w.Add(delta)
}

// block is the control block of one allocation: payload, counts, and the
// one-shot flags guarding the two reclamation phases.
type block[T any] struct {
	value     T
	counts    counts
	mode      Mode
	serial    Serial
	destroyed atomix.Uint32
	freed     atomix.Uint32
	onDrop    func()
	onFree    func()
}

// allocate creates a block with strong = 1 and no weak handles.
func allocate[T any](value T, opts []Option) *block[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	b := &block[T]{
		value:  value,
		mode:   o.mode,
		serial: nextSerial(),
		onDrop: o.onDrop,
		onFree: o.onFree,
	}
	if o.mode == Sync {
		b.counts = &syncCounts{}
	} else {
		b.counts = &localCounts{}
	}
	b.counts.addStrong(1)
	b.counts.addWeak(1)
	return b
}

func (b *block[T]) checkLive(op string) {
	if b.freed.Load() != 0 {
		violate(op, b.serial, "block already freed")
	}
}

func (b *block[T]) retainStrong() {
	b.checkLive("clone")
	if n := b.counts.addStrong(1); n <= 1 {
		violate("clone", b.serial, "strong count revived from zero")
	}
}

// releaseStrong drops one strong reference and destroys the payload when
// it was the last one.
func (b *block[T]) releaseStrong() {
	b.checkLive("release")
	n := b.counts.addStrong(-1)
	if n < 0 {
		violate("release", b.serial, "strong count below zero")
	}
	if n > 0 {
		return
	}
	b.destroy()
	b.releaseWeak()
}

// tryRetainStrong is the upgrade step.
func (b *block[T]) tryRetainStrong() bool {
	b.checkLive("upgrade")
	return b.counts.retainIfLive()
}

// take moves the payload out when the caller holds the only strong
// reference. The destructor does not run; weak handles see the payload
// as gone.
func (b *block[T]) take() (T, bool) {
	b.checkLive("unwrap")
	var zero T
	if !b.counts.claimUnique() {
		return zero, false
	}
	if !b.destroyed.CompareAndSwap(0, 1) {
		violate("unwrap", b.serial, "payload already destroyed")
	}
	v := b.value
	b.value = zero
	b.releaseWeak()
	return v, true
}

func (b *block[T]) retainWeak() {
	b.checkLive("downgrade")
	if n := b.counts.addWeak(1); n <= 1 {
		violate("downgrade", b.serial, "weak count revived from zero")
	}
}

// releaseWeak drops one weak reference and frees the block when it was
// the last reference of either kind.
func (b *block[T]) releaseWeak() {
	b.checkLive("release weak")
	n := b.counts.addWeak(-1)
	if n < 0 {
		violate("release weak", b.serial, "weak count below zero")
	}
	if n > 0 {
		return
	}
	if s := b.counts.strong(); s != 0 {
		violate("free", b.serial, "block freed with live strong count")
	}
	if !b.freed.CompareAndSwap(0, 1) {
		violate("free", b.serial, "block freed twice")
	}
	if b.onFree != nil {
		b.onFree()
	}
}

// destroy runs the payload destructor once and zeroes the payload.
func (b *block[T]) destroy() {
	if !b.destroyed.CompareAndSwap(0, 1) {
		violate("destroy", b.serial, "payload destroyed twice")
	}
	if d, ok := any(b.value).(Dropper); ok {
		d.Drop()
	} else if d, ok := any(&b.value).(Dropper); ok {
		d.Drop()
	}
	if b.onDrop != nil {
		b.onDrop()
	}
	var zero T
	b.value = zero
}

func (b *block[T]) strongCount() int {
	return int(b.counts.strong())
}

// weakCount reports explicit weak handles only, hiding the implicit
// reference held by strong handles. In Sync mode a concurrent final
// strong release may still hold the implicit reference after strong has
// reached zero, and the result can then be one too high until that
// release returns.
func (b *block[T]) weakCount() int {
	w := b.counts.weak()
	if b.counts.strong() > 0 {
		w--
	}
	if w < 0 {
		return 0
	}
	return int(w)
}
