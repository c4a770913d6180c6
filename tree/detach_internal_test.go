// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tree

import (
	"testing"

	"code.hybscloud.com/rc"
)

func TestDetachClearsVacatedSlot(t *testing.T) {
	a, b, c := New("a"), New("b"), New("c")
	defer rc.ReleaseAll(a, b, c)

	kids := []Handle[string]{a, b, c}
	got := detach(&kids, b)
	if got != b {
		t.Fatalf("detach returned %v, want b", got)
	}
	if len(kids) != 2 || kids[0] != a || kids[1] != c {
		t.Fatalf("remaining children %v, want [a c]", kids)
	}
	if tail := kids[:3][2]; tail != nil {
		t.Fatal("vacated slot still references a released handle")
	}
	if detach(&kids, b) != nil {
		t.Fatal("detached a child that is no longer listed")
	}
}

func TestIsAncestorStopsOnForeignLoop(t *testing.T) {
	a, b, c := NewSync(1), NewSync(2), NewSync(3)
	defer rc.ReleaseAll(a, b, c)
	if err := a.Get().SetParent(b); err != nil {
		t.Fatal(err)
	}
	if err := b.Get().SetParent(a); err != nil {
		t.Fatal(err)
	}

	owns, err := isAncestor(c, a)
	if owns || !rc.IsBorrowConflict(err) {
		t.Fatalf("got (%v, %v), want (false, borrow conflict)", owns, err)
	}
	owns, err = isAncestor(b, a)
	if !owns || err != nil {
		t.Fatalf("got (%v, %v), want (true, nil)", owns, err)
	}
}
