// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package rc_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/atomix"
	"go.uber.org/goleak"

	"code.hybscloud.com/rc"
)

// Many goroutines clone, upgrade and release one Sync allocation. The
// final strong count must equal the handles left outstanding, and the
// payload must be destroyed exactly once, by whichever goroutine happens
// to release last.
func TestStressSyncCloneUpgrade(t *testing.T) {
	defer goleak.VerifyNone(t)

	const (
		workers = 8
		rounds  = 5000
		keep    = 3
	)
	for run := 0; run < 5; run++ {
		var drops, frees atomix.Int64
		root := rc.NewSync(run,
			rc.OnDrop(func() { drops.Add(1) }),
			rc.OnFree(func() { frees.Add(1) }))
		weak := root.Downgrade()

		kept := make([][]*rc.Shared[int], workers)
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range rounds {
					c := root.Clone()
					if u, ok := weak.Upgrade(); ok {
						u.Release()
					} else {
						t.Error("upgrade failed while root alive")
					}
					c.Release()
				}
				for range keep {
					kept[i] = append(kept[i], root.Clone())
				}
			}()
		}
		wg.Wait()

		if got, want := root.StrongCount(), 1+workers*keep; got != want {
			t.Fatalf("run %d: strong got %d, want %d", run, got, want)
		}

		// Release the remaining handles concurrently, racing the last drop.
		all := []*rc.Shared[int]{root}
		for _, hs := range kept {
			all = append(all, hs...)
		}
		for _, h := range all {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if u, ok := weak.Upgrade(); ok {
					u.Release()
				}
				h.Release()
			}()
		}
		wg.Wait()

		if drops.Load() != 1 {
			t.Fatalf("run %d: destroyed %d times, want 1", run, drops.Load())
		}
		if _, ok := weak.Upgrade(); ok {
			t.Fatalf("run %d: upgrade after last release", run)
		}
		if frees.Load() != 0 {
			t.Fatalf("run %d: block freed with a live weak handle", run)
		}
		weak.Release()
		if frees.Load() != 1 {
			t.Fatalf("run %d: freed %d times, want 1", run, frees.Load())
		}
	}
}

// Upgrades racing the final release either win a live handle or observe
// the payload gone; none sees a destroyed payload through a live handle.
func TestStressUpgradeRacesLastRelease(t *testing.T) {
	defer goleak.VerifyNone(t)

	type payload struct{ alive bool }
	for run := 0; run < 200; run++ {
		var drops atomix.Int64
		s := rc.NewSync(payload{alive: true}, rc.OnDrop(func() { drops.Add(1) }))
		ws := make([]*rc.Weak[payload], 4)
		for i := range ws {
			ws[i] = s.Downgrade()
		}

		var wg sync.WaitGroup
		for _, w := range ws {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if u, ok := w.Upgrade(); ok {
					if !u.Get().alive {
						t.Error("upgraded into a destroyed payload")
					}
					u.Release()
				}
			}()
		}
		s.Release()
		wg.Wait()

		if drops.Load() != 1 {
			t.Fatalf("run %d: destroyed %d times, want 1", run, drops.Load())
		}
		for _, w := range ws {
			w.Release()
		}
	}
}

// Concurrent readers and writers on one cell never observe a writer
// alongside any other guard.
func TestStressCellExclusion(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := rc.NewCell(0)
	var inside atomix.Int32
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 2000 {
				if i%2 == 0 {
					w, err := c.BorrowMut()
					if err != nil {
						continue
					}
					if inside.Add(1) != 1 {
						t.Error("writer shares the cell")
					}
					*w.Get()++
					inside.Add(-1)
					w.Release()
				} else {
					r, err := c.Borrow()
					if err != nil {
						continue
					}
					_ = r.Get()
					if c.State().Exclusive() {
						t.Error("reader sees exclusive state")
					}
					r.Release()
				}
			}
		}()
	}
	wg.Wait()
	if c.State() != rc.Unborrowed {
		t.Fatalf("state %v, want unborrowed", c.State())
	}
}
