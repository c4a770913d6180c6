// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc_test

import (
	"testing"
	"time"

	"code.hybscloud.com/kont"
	"code.hybscloud.com/rc"
)

func TestExecReadWrite(t *testing.T) {
	c := rc.NewCell(2)
	protocol := rc.WriteThen(c, func(v *int) { *v *= 10 },
		rc.ReadThen(c, func(v int) kont.Eff[int] {
			return kont.Pure(v + 1)
		}),
	)
	if got := rc.Exec(protocol); got != 21 {
		t.Fatalf("got %d, want 21", got)
	}
	if c.State() != rc.Unborrowed {
		t.Fatalf("state %v, want unborrowed", c.State())
	}
}

func TestExecWaitsForOtherGoroutine(t *testing.T) {
	c := rc.NewCell(0)
	w, _ := c.BorrowMut()

	done := make(chan int)
	go func() {
		done <- rc.Exec(rc.ReadThen(c, func(v int) kont.Eff[int] { return kont.Pure(v) }))
	}()

	time.Sleep(10 * time.Millisecond)
	w.Set(5)
	w.Release()

	if got := <-done; got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestExecExprUpgrade(t *testing.T) {
	s := rc.NewSync("hello")
	w := s.Downgrade()
	defer w.Release()
	defer s.Release()

	got := rc.ExecExpr(rc.ExprUpgradeBranch(w,
		func() kont.Expr[int] { return kont.ExprReturn(0) },
		func(u *rc.Shared[string]) kont.Expr[int] {
			defer u.Release()
			return kont.ExprReturn(len(*u.Get()))
		},
	))
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

// Side A holds the write guard across an upgrade; side B's read waits for
// A to finish and then sees A's write.
func TestRunInterleavesConflicts(t *testing.T) {
	c := rc.NewCell(0)
	s := rc.New("hello")
	w := s.Downgrade()
	defer w.Release()
	defer s.Release()

	a := rc.BorrowMutBind(c, func(g *rc.RefMut[int]) kont.Eff[int] {
		return rc.UpgradeBranch(w,
			func() kont.Eff[int] {
				g.Release()
				return kont.Pure(-1)
			},
			func(u *rc.Shared[string]) kont.Eff[int] {
				*g.Get() += len(*u.Get())
				v := *g.Get()
				u.Release()
				g.Release()
				return kont.Pure(v)
			},
		)
	})
	b := rc.ReadThen(c, func(v int) kont.Eff[int] { return kont.Pure(v) })

	ra, rb := rc.Run[int, int](a, b)
	if ra != 5 {
		t.Fatalf("writer got %d, want 5", ra)
	}
	if rb != 5 {
		t.Fatalf("reader got %d, want 5", rb)
	}
	if c.State() != rc.Unborrowed {
		t.Fatalf("state %v, want unborrowed", c.State())
	}
}

func TestRunExprIndependent(t *testing.T) {
	c1, c2 := rc.NewCell("x"), rc.NewCell("y")
	read := func(c *rc.Cell[string]) kont.Expr[string] {
		return rc.ExprBorrowBind(c, func(r *rc.Ref[string]) kont.Expr[string] {
			defer r.Release()
			return kont.ExprReturn(r.Get())
		})
	}
	a, b := rc.RunExpr[string, string](read(c1), read(c2))
	if a != "x" || b != "y" {
		t.Fatalf("got (%q, %q), want (x, y)", a, b)
	}
}

func TestExecUnhandledPanics(t *testing.T) {
	type bogus struct{ kont.Phantom[int] }

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for unhandled effect")
		}
		msg, ok := r.(string)
		if !ok || msg != "rc: unhandled effect in accessHandler" {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	rc.Exec(kont.Perform(bogus{}))
}
