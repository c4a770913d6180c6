// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/rc"
)

func TestHandoffRejectsLocal(t *testing.T) {
	q := rc.NewHandoff[int](4)
	s := rc.New(1)
	defer s.Release()

	if err := q.Send(s); !errors.Is(err, rc.ErrLocalHandle) {
		t.Fatalf("Send local got %v, want ErrLocalHandle", err)
	}
	if err := q.SendWait(s); !errors.Is(err, rc.ErrLocalHandle) {
		t.Fatalf("SendWait local got %v, want ErrLocalHandle", err)
	}
	if got := s.StrongCount(); got != 1 {
		t.Fatalf("rejected send changed strong count: %d", got)
	}
}

func TestHandoffEmptyAndFull(t *testing.T) {
	q := rc.NewHandoff[int](2)
	if _, err := q.Recv(); !errors.Is(err, iox.ErrWouldBlock) {
		t.Fatalf("Recv on empty got %v, want ErrWouldBlock", err)
	}

	s := rc.NewSync(1)
	sent := 0
	var last error
	for range 1024 {
		c := s.Clone()
		if last = q.Send(c); last != nil {
			c.Release()
			break
		}
		sent++
	}
	if !errors.Is(last, iox.ErrWouldBlock) {
		t.Fatalf("Send on full got %v, want ErrWouldBlock", last)
	}
	if got := s.StrongCount(); got != 1+sent {
		t.Fatalf("strong got %d, want %d", got, 1+sent)
	}
	for range sent {
		h, err := q.Recv()
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if !h.PtrEq(s) {
			t.Fatal("received a different allocation")
		}
		h.Release()
	}
	if got := s.StrongCount(); got != 1 {
		t.Fatalf("strong got %d, want 1", got)
	}
	s.Release()
}

func TestHandoffAcrossGoroutines(t *testing.T) {
	skipRace(t)
	const n = 10000

	var d dropCounter
	s := rc.NewSync(struct{}{}, d.option())
	q := rc.NewHandoff[struct{}](16)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range n {
			q.RecvWait().Release()
		}
	}()
	for range n {
		if err := q.SendWait(s.Clone()); err != nil {
			t.Errorf("SendWait: %v", err)
			break
		}
	}
	<-done

	if got := s.StrongCount(); got != 1 {
		t.Fatalf("strong got %d, want 1", got)
	}
	s.Release()
	if d.n != 1 {
		t.Fatalf("destroyed %d times, want 1", d.n)
	}
}
