package IntervalTree

import (
	"errors"
	"fmt"
)

// ErrCapacity is returned by New when the domain doesn't fit the 15 bit start field.
var ErrCapacity = errors.New("IntervalTree: capacity must be in [1, MaxCapacity]")

// RunError reports malformed input to InitFromSortedArray.
type RunError struct {
	At     int // index into the run slice, -1 for whole-input problems
	Reason string
}

func (e *RunError) Error() string {
	if e.At < 0 {
		return "IntervalTree: invalid runs: " + e.Reason
	}
	return fmt.Sprintf("IntervalTree: invalid run %d: %s", e.At, e.Reason)
}

// IndexError is the panic value for an index outside the domain in debug builds.
type IndexError struct {
	Index, Capacity int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("IntervalTree: index %d out of range [0, %d)", e.Index, e.Capacity)
}

// CorruptError is returned by Check and names the broken invariant.
type CorruptError struct {
	Node      int32
	Invariant string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("IntervalTree: node %d: %s", e.Node, e.Invariant)
}
