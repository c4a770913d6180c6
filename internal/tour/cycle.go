// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tour

import (
	"fmt"

	"go.uber.org/zap"

	"code.hybscloud.com/rc"
	"code.hybscloud.com/rc/tree"
)

// cons is a list cell whose element is a shared mutable value.
type cons struct {
	value *rc.Shared[*rc.Cell[int]]
	next  *rc.Shared[cons]
}

func (c *cons) Drop() {
	c.value.Release()
	if c.next != nil {
		c.next.Release()
	}
}

func listValues(l *rc.Shared[cons]) ([]int, error) {
	var out []int
	for cur := l; cur != nil; cur = cur.Get().next {
		err := (*cur.Get().value.Get()).Read(func(v int) error {
			out = append(out, v)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SharedValue builds list a holding a shared cell with 5, and lists b and
// c that prepend 3 and 4 to a. It adds 10 through the shared cell and
// returns the contents of a, b and c, which all see the update.
func SharedValue(log *zap.Logger) ([][]int, error) {
	value := rc.New(rc.NewCell(5))
	a := rc.New(cons{value: value.Clone()})
	b := rc.New(cons{value: rc.New(rc.NewCell(3)), next: a.Clone()})
	c := rc.New(cons{value: rc.New(rc.NewCell(4)), next: a.Clone()})
	defer rc.ReleaseAll(value, a, b, c)

	if err := (*value.Get()).Write(func(v *int) error {
		*v += 10
		return nil
	}); err != nil {
		return nil, fmt.Errorf("update shared value: %w", err)
	}

	var out [][]int
	for _, l := range []struct {
		name string
		list *rc.Shared[cons]
	}{{"a", a}, {"b", b}, {"c", c}} {
		vs, err := listValues(l.list)
		if err != nil {
			return nil, err
		}
		log.Info("list", zap.String("name", l.name), zap.Ints("values", vs))
		out = append(out, vs)
	}
	log.Info("shared value", zap.Int("strong", value.StrongCount()))
	return out, nil
}

// link is a list cell whose successor can be rewired after construction.
type link struct {
	value int
	next  *rc.Cell[*rc.Shared[link]]
}

func (l *link) Drop() {
	next, err := l.next.Replace(nil)
	if err != nil {
		panic(&rc.InvariantViolation{Op: "link drop", Detail: "next borrowed during destruction"})
	}
	if next != nil {
		next.Release()
	}
}

// CycleReport compares a strong reference cycle with a weak back edge.
type CycleReport struct {
	// StrongA and StrongB are the strong counts while a and b own each
	// other.
	StrongA int
	StrongB int
	// Leaked is the number of cycle nodes still alive after every
	// external handle was released.
	Leaked int
	// WeakDrops is the number of nodes destroyed after the same release
	// when the back edge is a weak parent link.
	WeakDrops int
}

// Cycle makes two links own each other, releases the external handles
// and counts the nodes that were not destroyed. It then breaks that cycle
// by hand, and repeats the release with a parent and child whose back
// edge is weak, where both nodes are destroyed.
func Cycle(log *zap.Logger) (*CycleReport, error) {
	r := &CycleReport{}
	drops := 0
	onDrop := rc.OnDrop(func() { drops++ })

	a := rc.New(link{value: 5, next: rc.NewCell[*rc.Shared[link]](nil)}, onDrop)
	b := rc.New(link{value: 10, next: rc.NewCell(a.Clone())}, onDrop)
	back := b.Clone()
	if _, err := a.Get().next.Replace(back); err != nil {
		rc.ReleaseAll(back, a, b)
		return nil, fmt.Errorf("close cycle: %w", err)
	}
	r.StrongA, r.StrongB = a.StrongCount(), b.StrongCount()
	log.Info("strong cycle",
		zap.Int("a", a.Get().value),
		zap.Int("b", b.Get().value),
		zap.Int("a_strong", r.StrongA),
		zap.Int("b_strong", r.StrongB))

	wa := a.Downgrade()
	defer wa.Release()
	rc.ReleaseAll(a, b)
	r.Leaked = 2 - drops
	log.Info("strong cycle released", zap.Int("leaked", r.Leaked))

	if s, ok := wa.Upgrade(); ok {
		next, err := s.Get().next.Replace(nil)
		if err != nil {
			s.Release()
			return nil, fmt.Errorf("break cycle: %w", err)
		}
		next.Release()
		s.Release()
	}
	log.Debug("cycle broken by hand", zap.Int("destroyed", drops))

	drops = 0
	parent, child := tree.New(5, onDrop), tree.New(10, onDrop)
	if err := tree.Adopt(parent, child); err != nil {
		rc.ReleaseAll(parent, child)
		return nil, fmt.Errorf("adopt child: %w", err)
	}
	rc.ReleaseAll(parent, child)
	r.WeakDrops = drops
	log.Info("weak back edge released", zap.Int("destroyed", r.WeakDrops))
	return r, nil
}
