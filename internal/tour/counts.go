// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tour runs the rc walkthrough and stress scenarios and reports
// what it observes through a zap logger.
package tour

import (
	"fmt"

	"go.uber.org/zap"

	"code.hybscloud.com/rc"
	"code.hybscloud.com/rc/tree"
)

// Snapshot is one observation of a node's counts.
type Snapshot struct {
	Label  string
	Strong int
	Weak   int
}

// Counts walks a leaf through adoption by a short-lived branch and
// records the leaf's and branch's counts at each step:
//
//  1. leaf alone: strong 1, weak 0
//  2. branch adopts leaf: branch strong 1 weak 1, leaf strong 2 weak 0
//  3. branch released: leaf parent gone, leaf strong 1 weak 0
func Counts(log *zap.Logger) ([]Snapshot, error) {
	var out []Snapshot
	record := func(label string, h tree.Handle[int]) {
		s := Snapshot{Label: label, Strong: h.StrongCount(), Weak: h.WeakCount()}
		log.Info("counts",
			zap.String("node", label),
			zap.Int("strong", s.Strong),
			zap.Int("weak", s.Weak))
		out = append(out, s)
	}

	leaf := tree.New(3)
	defer leaf.Release()

	if err := logParent(log, leaf); err != nil {
		return nil, err
	}
	record("leaf", leaf)

	err := func() error {
		branch := tree.New(5)
		defer branch.Release()
		if err := tree.Adopt(branch, leaf); err != nil {
			return fmt.Errorf("adopt leaf: %w", err)
		}
		record("branch", branch)
		record("leaf", leaf)
		return logParent(log, leaf)
	}()
	if err != nil {
		return nil, err
	}

	if err := logParent(log, leaf); err != nil {
		return nil, err
	}
	record("leaf", leaf)
	return out, nil
}

func logParent(log *zap.Logger, h tree.Handle[int]) error {
	p, ok, err := h.Get().Parent()
	if err != nil {
		return err
	}
	if !ok {
		log.Info("leaf parent", zap.Bool("present", false))
		return nil
	}
	defer p.Release()
	log.Info("leaf parent",
		zap.Bool("present", true),
		zap.Int("value", p.Get().Value),
		zap.Uint32("serial", p.Serial()))
	return nil
}

// Shape builds a root → child → grandchild chain and logs its rendering,
// then releases every handle and reports how many nodes were destroyed.
func Shape(log *zap.Logger) (int, error) {
	destroyed := 0
	onDrop := rc.OnDrop(func() { destroyed++ })

	root := tree.New("root", onDrop)
	child := tree.New("child", onDrop)
	grandchild := tree.New("grandchild", onDrop)

	if err := tree.Adopt(root, child); err != nil {
		rc.ReleaseAll(root, child, grandchild)
		return 0, err
	}
	if err := tree.Adopt(child, grandchild); err != nil {
		rc.ReleaseAll(root, child, grandchild)
		return 0, err
	}
	s, err := tree.Format(root)
	if err != nil {
		rc.ReleaseAll(root, child, grandchild)
		return 0, err
	}
	log.Debug("tree", zap.String("rendering", s))

	root.Release()
	log.Info("root released", zap.Int("destroyed", destroyed))
	child.Release()
	grandchild.Release()
	log.Info("all released", zap.Int("destroyed", destroyed))
	return destroyed, nil
}
