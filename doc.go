// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rc provides deterministic shared ownership: reference-counted
// handles, non-owning weak handles, and run-time checked mutable cells.
//
// The garbage collector still owns memory. What rc adds is a point in time:
// the payload's destructor ([Dropper]) runs exactly once, synchronously, on
// the goroutine that releases the last strong handle.
//
// # Architecture
//
//   - Control block: one per allocation; holds the payload, the strong and
//     weak counts, and one-shot flags for the two reclamation phases
//     (payload destruction, then block release).
//   - Ownership: [Shared] is an owning handle. [Shared.Clone] adds a strong
//     reference, [Shared.Release] drops one.
//   - Observation: [Weak] comes from [Shared.Downgrade] and does not keep the
//     payload alive. [Weak.Upgrade] is a single check-and-increment step.
//   - Mutation: [Cell] grants any number of read guards or one write guard,
//     checked at access time. Conflicts return [ErrBorrowConflict].
//   - Modes: [Local] blocks use plain counts and stay on one goroutine.
//     [Sync] blocks use atomic counts from code.hybscloud.com/atomix.
//     Confinement of Local handles is checked only by [Handoff]; a Local
//     handle captured by a go statement is a data race rc cannot see.
//   - Transfer: [Handoff] moves Sync handles between two goroutines over a
//     lock-free SPSC queue from code.hybscloud.com/lfq and rejects Local ones.
//
// # Error Handling
//
//   - [ErrBorrowConflict] wraps code.hybscloud.com/iox.ErrWouldBlock: retry
//     after the conflicting guard is released.
//   - A failed upgrade is (nil, false), an ordinary outcome.
//   - Corrupted bookkeeping (negative counts, double destruction, double
//     release, use after release) panics with *[InvariantViolation].
//
// # Access Effects
//
// Borrowing and upgrading are also available as algebraic effects on
// code.hybscloud.com/kont: [Borrow], [BorrowMut], [Upgrade]. Protocols built
// from [BorrowBind], [BorrowMutBind], [UpgradeBranch] (or the Expr-world
// [ExprBorrowBind], [ExprBorrowMutBind], [ExprUpgradeBranch]) can be stepped
// one effect at a time with [Step] and [Advance], or driven to completion
// with [Exec] and [Run], which back off on conflicts. [ExecError] and
// [RunError] add kont error effects on top.
//
// # Example
//
//	type account struct{ balance *rc.Cell[int] }
//
//	s := rc.New(account{balance: rc.NewCell(0)})
//	w := s.Downgrade()
//	_ = s.Get().balance.Write(func(v *int) error {
//		*v += 10
//		return nil
//	})
//	s.Release() // payload destroyed here
//	if _, ok := w.Upgrade(); !ok {
//		// gone
//	}
//	w.Release() // block released here
package rc
