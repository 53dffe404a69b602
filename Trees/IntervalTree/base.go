package IntervalTree

// arena holds every node of a Tree. Indices are stable until the next bulk build.
type arena[T comparable] struct {
	nodes []node[T]
	root  int32
}

func (u *arena[T]) isRed(i int32) bool {
	return i != nilIdx && u.nodes[i].red()
}

func (u *arena[T]) sumOf(i int32) uint16 {
	if i == nilIdx {
		return 0
	}
	return u.nodes[i].sum
}

// pull recomputes sum of i from its children.
func (u *arena[T]) pull(i int32) {
	n := &u.nodes[i]
	n.sum = n.length + u.sumOf(n.l) + u.sumOf(n.r)
}

// pullUp recomputes sums from i to the root.
func (u *arena[T]) pullUp(i int32) {
	for ; i != nilIdx; i = u.nodes[i].p {
		u.pull(i)
	}
}

// alloc appends a red leaf. Pointers into nodes are invalid afterwards.
func (u *arena[T]) alloc(start, length uint16, v T) int32 {
	u.nodes = append(u.nodes, node[T]{sc: start | redBit, length: length, sum: length, l: nilIdx, r: nilIdx, p: nilIdx, v: v})
	return int32(len(u.nodes) - 1)
}

// replaceChild makes nw take old's place under p.
func (u *arena[T]) replaceChild(p, old, nw int32) {
	if p == nilIdx {
		u.root = nw
	} else if u.nodes[p].l == old {
		u.nodes[p].l = nw
	} else {
		u.nodes[p].r = nw
	}
}

func (u *arena[T]) rotateLeft(x int32) {
	xn := &u.nodes[x]
	y := xn.r
	yn := &u.nodes[y]

	xn.r = yn.l
	if yn.l != nilIdx {
		u.nodes[yn.l].p = x
	}
	yn.p = xn.p
	u.replaceChild(xn.p, x, y)
	yn.l, xn.p = x, y
	yn.sum = xn.sum
	u.pull(x)
}

func (u *arena[T]) rotateRight(x int32) {
	xn := &u.nodes[x]
	y := xn.l
	yn := &u.nodes[y]

	xn.l = yn.r
	if yn.r != nilIdx {
		u.nodes[yn.r].p = x
	}
	yn.p = xn.p
	u.replaceChild(xn.p, x, y)
	yn.r, xn.p = x, y
	yn.sum = xn.sum
	u.pull(x)
}

// attachBefore links the detached leaf ni as the in-order predecessor of at.
func (u *arena[T]) attachBefore(at, ni int32) {
	if l := u.nodes[at].l; l == nilIdx {
		u.nodes[at].l = ni
	} else {
		for at = l; u.nodes[at].r != nilIdx; at = u.nodes[at].r {
		}
		u.nodes[at].r = ni
	}
	u.nodes[ni].p = at
	u.pullUp(at)
	u.fixInsert(ni)
}

// attachAfter links the detached leaf ni as the in-order successor of at.
func (u *arena[T]) attachAfter(at, ni int32) {
	if r := u.nodes[at].r; r == nilIdx {
		u.nodes[at].r = ni
	} else {
		for at = r; u.nodes[at].l != nilIdx; at = u.nodes[at].l {
		}
		u.nodes[at].l = ni
	}
	u.nodes[ni].p = at
	u.pullUp(at)
	u.fixInsert(ni)
}

// fixInsert restores the red-black properties after the red leaf x was linked in.
func (u *arena[T]) fixInsert(x int32) {
	for {
		p := u.nodes[x].p
		if !u.isRed(p) {
			break
		}
		// p is red so it isn't the root and g exists.
		g := u.nodes[p].p
		if p == u.nodes[g].l {
			if y := u.nodes[g].r; u.isRed(y) {
				u.nodes[p].paint(false)
				u.nodes[y].paint(false)
				u.nodes[g].paint(true)
				x = g
				continue
			}
			if x == u.nodes[p].r {
				x = p
				u.rotateLeft(x)
				p = u.nodes[x].p
			}
			u.nodes[p].paint(false)
			u.nodes[g].paint(true)
			u.rotateRight(g)
		} else {
			if y := u.nodes[g].l; u.isRed(y) {
				u.nodes[p].paint(false)
				u.nodes[y].paint(false)
				u.nodes[g].paint(true)
				x = g
				continue
			}
			if x == u.nodes[p].l {
				x = p
				u.rotateRight(x)
				p = u.nodes[x].p
			}
			u.nodes[p].paint(false)
			u.nodes[g].paint(true)
			u.rotateLeft(g)
		}
		break
	}
	u.nodes[u.root].paint(false)
}

// build links nodes[lo:hi] into a balanced subtree by midpoint and returns its root.
// Nodes on level red are painted red, every other level black.
func (u *arena[T]) build(lo, hi, p int32, depth, red int) int32 {
	if lo >= hi {
		return nilIdx
	}
	mid := overflowMid(lo, hi-1)
	n := &u.nodes[mid]
	n.p = p
	n.paint(depth == red)
	n.l = u.build(lo, mid, mid, depth+1, red)
	n.r = u.build(mid+1, hi, mid, depth+1, red)
	u.pull(mid)
	return mid
}

func (u *arena[T]) height(i int32) int {
	if i == nilIdx {
		return 0
	}
	return 1 + max(u.height(u.nodes[i].l), u.height(u.nodes[i].r))
}
