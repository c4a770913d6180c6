// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package tree is a parent/child object graph built on [rc] handles.
//
// Ownership points down and observation points up: a node owns its
// children through [rc.Shared] handles and knows its parent through an
// [rc.Weak] handle. The graph holds reference cycles (child → parent →
// child) but no ownership cycles, so releasing the last external handle to
// a subtree root destroys the whole subtree that nothing else owns.
package tree

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/rc"
)

var (
	// ErrModeMismatch reports an attempt to link Local and Sync nodes.
	ErrModeMismatch = errors.New("tree: nodes of different modes cannot be linked")
	// ErrCycle reports an adoption that would make a node own an ancestor.
	ErrCycle = errors.New("tree: adoption would create an ownership cycle")
)

// Handle is an owning handle to a node.
type Handle[V any] = *rc.Shared[Node[V]]

// Node is one vertex of the graph. Value is fixed at construction; links
// change through cells so they can be updated behind shared handles.
type Node[V any] struct {
	Value    V
	parent   *rc.Cell[*rc.Weak[Node[V]]]
	children *rc.Cell[[]*rc.Shared[Node[V]]]
}

// New allocates a parentless, childless node.
func New[V any](v V, opts ...rc.Option) Handle[V] {
	return rc.New(Node[V]{
		Value:    v,
		parent:   rc.NewCell(rc.NewWeak[Node[V]]()),
		children: rc.NewCell[[]*rc.Shared[Node[V]]](nil),
	}, opts...)
}

// NewSync is New with rc.Sync counts.
func NewSync[V any](v V, opts ...rc.Option) Handle[V] {
	return New(v, append(opts, rc.WithMode(rc.Sync))...)
}

// Drop releases the node's children and its parent link. It runs when
// the last strong handle to the node is released.
func (n *Node[V]) Drop() {
	kids, err := n.children.Replace(nil)
	if err != nil {
		panic(&rc.InvariantViolation{Op: "tree drop", Detail: "children borrowed during destruction"})
	}
	rc.ReleaseAll(kids...)
	parent, err := n.parent.Replace(nil)
	if err != nil {
		panic(&rc.InvariantViolation{Op: "tree drop", Detail: "parent borrowed during destruction"})
	}
	if parent != nil {
		parent.Release()
	}
}

// Adopt makes child a child of parent: parent gains a strong handle to
// child, child's parent link is replaced by a weak handle to parent.
// A child that already has a live parent is moved from it. The caller
// keeps its own handles.
//
// Adopt changes nothing unless it succeeds. It claims the children of
// parent (and of the previous parent) before touching any link, links
// child, and then checks the ancestry of parent again: of two concurrent
// adoptions that would close a loop, at least one sees it, undoes its
// link and returns ErrCycle.
func Adopt[V any](parent, child Handle[V]) error {
	if parent.Mode() != child.Mode() {
		return ErrModeMismatch
	}
	owns, err := isAncestor(child, parent)
	if err != nil {
		return err
	}
	if owns {
		return ErrCycle
	}

	prev, link, err := child.Get().parentLink()
	if err != nil {
		return err
	}
	if prev != nil {
		defer prev.Release()
	}

	kids, err := parent.Get().children.BorrowMut()
	if err != nil {
		return err
	}
	var prevKids *rc.RefMut[[]Handle[V]]
	if prev != nil && !prev.PtrEq(parent) {
		if prevKids, err = prev.Get().children.BorrowMut(); err != nil {
			kids.Release()
			return err
		}
	}
	unlock := func() {
		if prevKids != nil {
			prevKids.Release()
		}
		kids.Release()
	}

	up := parent.Downgrade()
	old, err := child.Get().parent.Replace(up)
	if err != nil {
		unlock()
		up.Release()
		return err
	}
	if old != link {
		// Moved by a concurrent Adopt or Orphan since parentLink.
		replaceWait(child.Get().parent, old).Release()
		unlock()
		return rc.ErrBorrowConflict
	}
	if owns, err := isAncestor(child, parent); err != nil || owns {
		replaceWait(child.Get().parent, old).Release()
		unlock()
		if err != nil {
			return err
		}
		return ErrCycle
	}

	var moved Handle[V]
	switch {
	case prevKids != nil:
		moved = detach(prevKids.Get(), child)
	case prev != nil:
		moved = detach(kids.Get(), child)
	}
	*kids.Get() = append(*kids.Get(), child.Clone())
	unlock()

	if moved != nil {
		moved.Release()
	}
	old.Release()
	return nil
}

// parentLink returns n's live parent, if any, together with the weak
// handle currently stored as n's parent link.
func (n *Node[V]) parentLink() (p Handle[V], link *rc.Weak[Node[V]], err error) {
	err = n.parent.Read(func(w *rc.Weak[Node[V]]) error {
		link = w
		p, _ = w.Upgrade()
		return nil
	})
	return p, link, err
}

// replaceWait stores v in c, backing off while c is borrowed. Only the
// short Read in Parent and parentLink borrows a parent link, so the wait
// is bounded.
func replaceWait[T any](c *rc.Cell[T], v T) T {
	var bo iox.Backoff
	for {
		old, err := c.Replace(v)
		if err == nil {
			return old
		}
		bo.Wait()
	}
}

// detach removes child from kids and returns the handle kids held for it,
// or nil.
func detach[V any](kids *[]Handle[V], child Handle[V]) Handle[V] {
	i := slices.IndexFunc(*kids, child.PtrEq)
	if i < 0 {
		return nil
	}
	k := (*kids)[i]
	*kids = slices.Delete(*kids, i, i+1)
	return k
}

// isAncestor reports whether a is n or one of n's ancestors. A parent
// chain that loops without reaching a is a concurrent adoption about to
// undo itself; that reports ErrBorrowConflict.
func isAncestor[V any](a, n Handle[V]) (bool, error) {
	if a.PtrEq(n) {
		return true, nil
	}
	seen := map[rc.Serial]struct{}{n.Serial(): {}}
	cur := n.Clone()
	defer func() { cur.Release() }()
	for {
		p, ok, err := cur.Get().Parent()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		cur.Release()
		cur = p
		if a.PtrEq(cur) {
			return true, nil
		}
		if _, dup := seen[cur.Serial()]; dup {
			return false, rc.ErrBorrowConflict
		}
		seen[cur.Serial()] = struct{}{}
	}
}

// Orphan removes child from parent's children and clears child's parent
// link. It reports whether child was found. On error nothing changes.
func Orphan[V any](parent, child Handle[V]) (bool, error) {
	kids, err := parent.Get().children.BorrowMut()
	if err != nil {
		return false, err
	}
	if !slices.ContainsFunc(*kids.Get(), child.PtrEq) {
		kids.Release()
		return false, nil
	}
	empty := rc.NewWeak[Node[V]]()
	old, err := child.Get().parent.Replace(empty)
	if err != nil {
		kids.Release()
		empty.Release()
		return false, err
	}
	removed := detach(kids.Get(), child)
	kids.Release()
	removed.Release()
	old.Release()
	return true, nil
}

// SetParent points n's parent link at p without p owning n. Passing nil
// clears the link.
func (n *Node[V]) SetParent(p Handle[V]) error {
	w := rc.NewWeak[Node[V]]()
	if p != nil {
		w = p.Downgrade()
	}
	old, err := n.parent.Replace(w)
	if err != nil {
		w.Release()
		return err
	}
	old.Release()
	return nil
}

// Parent upgrades n's parent link. ok is false when n has no parent or
// the parent has been destroyed.
func (n *Node[V]) Parent() (p Handle[V], ok bool, err error) {
	err = n.parent.Read(func(w *rc.Weak[Node[V]]) error {
		p, ok = w.Upgrade()
		return nil
	})
	return p, ok, err
}

// Children returns new strong handles to n's children, in adoption order.
// The caller releases them.
func (n *Node[V]) Children() ([]Handle[V], error) {
	var out []Handle[V]
	err := n.children.Read(func(kids []Handle[V]) error {
		out = make([]Handle[V], 0, len(kids))
		for _, k := range kids {
			out = append(out, k.Clone())
		}
		return nil
	})
	return out, err
}

// Len returns the number of children.
func (n *Node[V]) Len() (int, error) {
	var l int
	err := n.children.Read(func(kids []Handle[V]) error {
		l = len(kids)
		return nil
	})
	return l, err
}

// Walk visits root and its descendants depth first, parents before
// children. Read guards on a node's children are held while its subtree
// is visited, so Adopt or Orphan on such a node from fn returns
// rc.ErrBorrowConflict and changes nothing.
func Walk[V any](root Handle[V], fn func(depth int, h Handle[V]) error) error {
	return walk(root, 0, fn)
}

func walk[V any](h Handle[V], depth int, fn func(int, Handle[V]) error) error {
	if err := fn(depth, h); err != nil {
		return err
	}
	return h.Get().children.Read(func(kids []Handle[V]) error {
		for _, k := range kids {
			if err := walk(k, depth+1, fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// Format renders the subtree under root, one node per line, with its
// strong and weak counts.
func Format[V any](root Handle[V]) (string, error) {
	var sb strings.Builder
	err := Walk(root, func(depth int, h Handle[V]) error {
		fmt.Fprintf(&sb, "%s%v (strong=%d, weak=%d)\n",
			strings.Repeat("  ", depth), h.Get().Value, h.StrongCount(), h.WeakCount())
		return nil
	})
	return sb.String(), err
}
