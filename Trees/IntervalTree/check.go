package IntervalTree

// Check validates the whole structure and returns a *CorruptError for the first broken invariant:
// coverage of [0, Capacity()), node bounds, subtree sums, parent/child linkage and the
// red-black properties. O(k); meant for tests and rledebug builds.
func (u *Tree[T]) Check() error {
	if len(u.nodes) == 0 {
		return &CorruptError{nilIdx, "empty arena"}
	}
	if u.root < 0 || int(u.root) >= len(u.nodes) {
		return &CorruptError{u.root, "root out of arena"}
	}
	if root := &u.nodes[u.root]; root.p != nilIdx {
		return &CorruptError{u.root, "root has a parent"}
	} else if root.red() {
		return &CorruptError{u.root, "root is red"}
	}
	c := checker[T]{u: u, seen: make([]bool, len(u.nodes))}
	if _, err := c.walk(u.root); err != nil {
		return err
	}
	if c.off != u.capacity {
		return &CorruptError{u.root, "runs don't cover capacity"}
	}
	if c.count != len(u.nodes) {
		return &CorruptError{nilIdx, "unreachable arena slots"}
	}
	return nil
}

type checker[T comparable] struct {
	u     *Tree[T]
	seen  []bool
	off   int // running absolute offset
	count int
}

// walk visits i in order and returns the black height below it.
func (c *checker[T]) walk(i int32) (int, error) {
	if i == nilIdx {
		return 1, nil
	}
	u := c.u
	if i < 0 || int(i) >= len(u.nodes) {
		return 0, &CorruptError{i, "index out of arena"}
	}
	if c.seen[i] {
		return 0, &CorruptError{i, "reachable twice"}
	}
	c.seen[i] = true
	c.count++
	n := &u.nodes[i]
	for _, ch := range [2]int32{n.l, n.r} {
		if ch == i {
			return 0, &CorruptError{i, "own child"}
		}
		if ch == nilIdx {
			continue
		}
		if ch < 0 || int(ch) >= len(u.nodes) {
			return 0, &CorruptError{i, "child out of arena"}
		}
		if u.nodes[ch].p != i {
			return 0, &CorruptError{ch, "parent doesn't match child link"}
		}
		if n.red() && u.nodes[ch].red() {
			return 0, &CorruptError{ch, "red node with red parent"}
		}
	}
	lh, err := c.walk(n.l)
	if err != nil {
		return 0, err
	}
	if n.length == 0 {
		return 0, &CorruptError{i, "zero length"}
	}
	if int(n.start()) != c.off {
		return 0, &CorruptError{i, "start doesn't match offset"}
	}
	if c.off += int(n.length); c.off > u.capacity {
		return 0, &CorruptError{i, "run extends past capacity"}
	}
	rh, err := c.walk(n.r)
	if err != nil {
		return 0, err
	}
	if lh != rh {
		return 0, &CorruptError{i, "unequal black height"}
	}
	if n.sum != n.length+u.sumOf(n.l)+u.sumOf(n.r) {
		return 0, &CorruptError{i, "subtree sum mismatch"}
	}
	if !n.red() {
		lh++
	}
	return lh, nil
}
