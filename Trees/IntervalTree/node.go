package IntervalTree

import "golang.org/x/exp/constraints"

const (
	StartBits = 15
	// StartMask is the largest start a node can hold.
	StartMask = 1<<StartBits - 1
	// MaxCapacity is the largest domain a Tree can address.
	MaxCapacity = StartMask + 1

	redBit        = 1 << StartBits
	nilIdx  int32 = -1
)

// LNode describes the run [Start, Start+Length) holding Value. It is only used
// as input to and output from bulk operations, never as a node of the live tree.
type LNode[T comparable] struct {
	Start, Length uint16
	Value         T
}

// End of the run, exclusive.
func (n LNode[T]) End() int {
	return int(n.Start) + int(n.Length)
}

// A node in the arena.
// sc packs the 15 bit start with the color in the top bit, set meaning red.
// sum is the total length covered by the subtree rooted here.
type node[T comparable] struct {
	sc, length, sum uint16
	l, r, p         int32
	v               T
}

func (n *node[T]) start() uint16 {
	return n.sc & StartMask
}

func (n *node[T]) setStart(s uint16) {
	n.sc = n.sc&redBit | s&StartMask
}

func (n *node[T]) red() bool {
	return n.sc&redBit != 0
}

func (n *node[T]) paint(red bool) {
	if red {
		n.sc |= redBit
	} else {
		n.sc &^= redBit
	}
}

func (n *node[T]) lnode() LNode[T] {
	return LNode[T]{n.start(), n.length, n.v}
}

// overflowMid is (a+b)/2 without overflowing S.
func overflowMid[S constraints.Integer](a, b S) S {
	return a + (b-a)/2
}
