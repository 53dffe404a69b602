// Package IntervalTree implements a compressed interval store: a fixed-size domain
// [0, Capacity) represented as run-length encoded intervals kept in an arena backed
// red-black tree. Lookups and point updates cost O(log k) where k is the number of runs.
//
// A Tree is not safe for concurrent use, not even for reads during a write.
package IntervalTree

import (
	"math/bits"
)

// Tree is a compressed interval store over values of type T.
// The in-order sequence of its runs always tiles [0, Capacity()) exactly.
type Tree[T comparable] struct {
	arena[T]
	capacity int
}

// New returns a tree over [0, capacity) holding the zero value everywhere.
func New[T comparable](capacity int) (*Tree[T], error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, ErrCapacity
	}
	u := &Tree[T]{capacity: capacity}
	u.InitSingle(*new(T))
	return u, nil
}

// InitSingle resets the tree to a single black run covering the domain. O(1), keeps the arena memory.
func (u *Tree[T]) InitSingle(v T) {
	u.nodes = append(u.nodes[:0], node[T]{length: uint16(u.capacity), sum: uint16(u.capacity), l: nilIdx, r: nilIdx, p: nilIdx, v: v})
	u.root = 0
}

// InitFromSortedArray resets the tree to the given runs, which must be sorted by Start,
// contiguous, non-empty and cover [0, Capacity()) exactly. The tree is left unchanged on error.
// Time: O(k).
func (u *Tree[T]) InitFromSortedArray(runs []LNode[T]) error {
	if err := u.validRuns(runs); err != nil {
		return err
	}
	u.nodes = u.nodes[:0]
	for _, r := range runs {
		u.nodes = append(u.nodes, node[T]{sc: r.Start, length: r.Length, v: r.Value})
	}
	u.rebuild()
	u.verify()
	return nil
}

func (u *Tree[T]) validRuns(runs []LNode[T]) error {
	if len(runs) == 0 {
		return &RunError{-1, "no runs"}
	}
	if len(runs) > u.capacity {
		return &RunError{-1, "more runs than positions"}
	}
	next := 0
	for i, r := range runs {
		if int(r.Start) != next {
			if int(r.Start) < next {
				return &RunError{i, "overlaps previous run"}
			}
			return &RunError{i, "gap before run"}
		}
		if r.Length == 0 {
			return &RunError{i, "zero length"}
		}
		if next = r.End(); next > u.capacity {
			return &RunError{i, "extends past capacity"}
		}
	}
	if next != u.capacity {
		return &RunError{-1, "runs don't cover capacity"}
	}
	return nil
}

// rebuild links the already in-order nodes into a balanced red-black tree.
func (u *Tree[T]) rebuild() {
	k := len(u.nodes)
	red := bits.Len(uint(k)) - 1 // depth of the deepest level
	if red == 0 {
		red = -1
	}
	u.root = u.build(0, int32(k), nilIdx, 0, red)
}

func (u *Tree[T]) clamp(index int) int {
	if uint(index) < uint(u.capacity) {
		return index
	}
	if debug {
		panic(&IndexError{index, u.capacity})
	}
	if index < 0 {
		return 0
	}
	return u.capacity - 1
}

// locate returns the node covering index and the absolute start of that node,
// accumulating left subtree sums on the way down.
func (u *Tree[T]) locate(index int) (int32, int) {
	off := 0
	for curI := u.root; ; {
		cur := &u.nodes[curI]
		ls := int(u.sumOf(cur.l))
		if index < off+ls {
			curI = cur.l
		} else if index < off+ls+int(cur.length) {
			return curI, off + ls
		} else {
			off += ls + int(cur.length)
			curI = cur.r
		}
	}
}

// GetInterval returns the id of the node whose run covers index. O(log k).
// Ids are only valid until the next mutation.
func (u *Tree[T]) GetInterval(index int) int32 {
	i, _ := u.locate(u.clamp(index))
	return i
}

// GetData returns the value at index. O(log k).
func (u *Tree[T]) GetData(index int) T {
	i, _ := u.locate(u.clamp(index))
	return u.nodes[i].v
}

// Node returns the run of the node id given by GetInterval or Insert.
func (u *Tree[T]) Node(id int32) LNode[T] {
	return u.nodes[id].lnode()
}

// Insert sets the value at index to v and returns the id of the node now covering index.
// If the covering run already holds v nothing changes. Otherwise the run is split into
// up to three runs: the covering slot is reused for the singleton [index, index+1) and the
// non-empty remainders are linked in as new nodes followed by red-black fix-up.
// The arena grows by at most 2 nodes. O(log k)
func (u *Tree[T]) Insert(index int, v T) int32 {
	index = u.clamp(index)
	ci, s := u.locate(index)
	c := &u.nodes[ci]
	if c.v == v {
		return ci
	}
	e, old := s+int(c.length), c.v
	c.setStart(uint16(index))
	c.length, c.v = 1, v
	// sums along the path are repaired by the attach calls; a run of length 1 needs none.
	if index > s {
		u.attachBefore(ci, u.alloc(uint16(s), uint16(index-s), old))
	}
	if index+1 < e {
		u.attachAfter(ci, u.alloc(uint16(index+1), uint16(e-index-1), old))
	}
	u.verify()
	return ci
}

// UncompressIntoBuffer writes every position into buf[:Capacity()]. O(Capacity).
// Panics if buf is shorter than the capacity.
func (u *Tree[T]) UncompressIntoBuffer(buf []T) {
	buf = buf[:u.capacity]
	u.InOrder(func(start int, n LNode[T]) bool {
		s := buf[start : start+int(n.Length)]
		for i := range s {
			s[i] = n.Value
		}
		return true
	})
}

// Size is the number of runs k.
func (u *Tree[T]) Size() int {
	return len(u.nodes)
}

// Capacity is the size of the domain.
func (u *Tree[T]) Capacity() int {
	return u.capacity
}

// Cap is the number of node slots the arena can hold without growing.
func (u *Tree[T]) Cap() int {
	return cap(u.nodes)
}

// Height of the tree, 1 for a single run.
// Recursive.
func (u *Tree[T]) Height() int {
	return u.height(u.root)
}

// InOrder calls f for every run in ascending order with its absolute start, which is
// computed from the running total of lengths. Stops when f returns false.
// The tree must not be modified during the traversal.
func (u *Tree[T]) InOrder(f func(start int, n LNode[T]) bool) {
	st := make([]int32, 0, 2*bits.Len(uint(len(u.nodes)))+1)
	off := 0
	for curI := u.root; curI != nilIdx; curI = u.nodes[curI].l {
		st = append(st, curI)
	}
	for len(st) > 0 {
		curI := st[len(st)-1]
		st = st[:len(st)-1]
		cur := &u.nodes[curI]
		if !f(off, LNode[T]{uint16(off), cur.length, cur.v}) {
			return
		}
		off += int(cur.length)
		for curI = cur.r; curI != nilIdx; curI = u.nodes[curI].l {
			st = append(st, curI)
		}
	}
}

// Runs appends the runs in order to dst and returns it. The result is valid input for InitFromSortedArray.
func (u *Tree[T]) Runs(dst []LNode[T]) []LNode[T] {
	u.InOrder(func(_ int, n LNode[T]) bool {
		dst = append(dst, n)
		return true
	})
	return dst
}

// Mergeable counts adjacent runs holding equal values. O(k)
func (u *Tree[T]) Mergeable() (m int) {
	var prev T
	first := true
	u.InOrder(func(_ int, n LNode[T]) bool {
		if !first && n.Value == prev {
			m++
		}
		prev, first = n.Value, false
		return true
	})
	return
}

// Compact merges adjacent runs holding equal values and rebuilds a balanced tree
// in the existing arena memory. Returns the number of nodes removed. O(k)
// Node ids are invalidated.
func (u *Tree[T]) Compact() int {
	before := len(u.nodes)
	runs := u.Runs(make([]LNode[T], 0, before))
	u.nodes = u.nodes[:0]
	for _, r := range runs {
		if k := len(u.nodes); k > 0 && u.nodes[k-1].v == r.Value {
			u.nodes[k-1].length += r.Length
			continue
		}
		u.nodes = append(u.nodes, node[T]{sc: r.Start, length: r.Length, v: r.Value})
	}
	u.rebuild()
	u.verify()
	return before - len(u.nodes)
}

// Clone returns a deep copy. Node ids of u are valid in the clone.
func (u *Tree[T]) Clone() *Tree[T] {
	c := &Tree[T]{arena[T]{make([]node[T], len(u.nodes)), u.root}, u.capacity}
	copy(c.nodes, u.nodes)
	return c
}

func (u *Tree[T]) verify() {
	if debug {
		if err := u.Check(); err != nil {
			panic(err)
		}
	}
}
