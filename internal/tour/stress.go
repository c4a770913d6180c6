// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tour

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/rc"
)

// ErrUpgradeLost reports that a weak handle failed to upgrade while a
// strong handle was known to be live.
var ErrUpgradeLost = errors.New("upgrade failed while payload alive")

// Report is the outcome of one stress run.
type Report struct {
	// Outstanding is the strong count observed after all workers finished.
	Outstanding int
	// Expected is the number of handles the workers left outstanding,
	// plus the root handle.
	Expected int
	Upgrades int64
	Handoffs int64
	Drops    int64
	Frees    int64
	Elapsed  time.Duration
}

// Stress hammers one Sync allocation from cfg.Goroutines workers that
// clone, upgrade a shared weak handle, and release, while a producer
// moves clones to a consumer through an rc.Handoff. It then checks that
// the strong count equals the handles left outstanding, releases
// everything, and checks the payload was destroyed and the block freed
// exactly once.
func Stress(ctx context.Context, cfg *Config, log *zap.Logger) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var drops, frees, upgrades, handoffs atomix.Int64
	start := time.Now()

	root := rc.NewSync(struct{}{},
		rc.OnDrop(func() { drops.Add(1) }),
		rc.OnFree(func() { frees.Add(1) }))
	weak := root.Downgrade()

	kept := make([][]*rc.Shared[struct{}], cfg.Goroutines)
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Goroutines {
		g.Go(func() error {
			for n := 0; n < cfg.Iterations; n++ {
				if n%1024 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				c := root.Clone()
				s, ok := weak.Upgrade()
				if !ok {
					c.Release()
					return ErrUpgradeLost
				}
				upgrades.Add(1)
				s.Release()
				c.Release()
			}
			for range cfg.Keep {
				kept[i] = append(kept[i], root.Clone())
			}
			return nil
		})
	}

	if cfg.Handoff > 0 {
		q := rc.NewHandoff[struct{}](cfg.QueueCapacity)
		g.Go(func() error {
			for range cfg.Handoff {
				if err := q.SendWait(root.Clone()); err != nil {
					return err
				}
			}
			return nil
		})
		g.Go(func() error {
			for range cfg.Handoff {
				q.RecvWait().Release()
				handoffs.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	r := &Report{
		Outstanding: root.StrongCount(),
		Expected:    1 + cfg.Goroutines*cfg.Keep,
		Upgrades:    upgrades.Load(),
		Handoffs:    handoffs.Load(),
	}
	for _, hs := range kept {
		rc.ReleaseAll(hs...)
	}
	if err != nil {
		root.Release()
		weak.Release()
		return nil, fmt.Errorf("stress workers: %w", err)
	}
	if r.Outstanding != r.Expected {
		root.Release()
		weak.Release()
		return nil, fmt.Errorf("strong count %d, want %d", r.Outstanding, r.Expected)
	}
	log.Debug("workers done",
		zap.Int("outstanding", r.Outstanding),
		zap.Int64("upgrades", r.Upgrades),
		zap.Int64("handoffs", r.Handoffs))

	root.Release()
	if s, ok := weak.Upgrade(); ok {
		s.Release()
		weak.Release()
		return nil, errors.New("upgrade succeeded after last release")
	}
	weak.Release()

	r.Drops, r.Frees = drops.Load(), frees.Load()
	r.Elapsed = time.Since(start)
	if r.Drops != 1 || r.Frees != 1 {
		return r, fmt.Errorf("payload destroyed %d times, block freed %d times", r.Drops, r.Frees)
	}
	log.Info("stress passed",
		zap.Int("goroutines", cfg.Goroutines),
		zap.Int("iterations", cfg.Iterations),
		zap.Int64("upgrades", r.Upgrades),
		zap.Int64("handoffs", r.Handoffs),
		zap.Duration("elapsed", r.Elapsed))
	return r, nil
}
