package Queues

import (
	"sync/atomic"
)

type node[T any] struct {
	v  T
	nx atomic.Pointer[node[T]]
}

// syncLinkedQ is a lock-free Michael-Scott queue. headPtr always points at a sentinel.
type syncLinkedQ[T any] struct {
	headPtr, tail atomic.Pointer[node[T]]
}

func MakeConcurrentLinkedQueue[T any]() Queue[T] {
	t := syncLinkedQ[T]{}
	a := new(node[T])
	t.headPtr.Store(a)
	t.tail.Store(a)
	return &t
}

func (c *syncLinkedQ[T]) Push(item T) {
	newNode := &node[T]{v: item}
	var oldTail *node[T]
	for added := false; !added; {
		oldTail = c.tail.Load()
		if next := oldTail.nx.Load(); next != nil {
			c.tail.CompareAndSwap(oldTail, next) // help a lagging push
		} else {
			added = oldTail.nx.CompareAndSwap(nil, newNode)
		}
	}
	c.tail.CompareAndSwap(oldTail, newNode)
}

func (c *syncLinkedQ[T]) Pop() (T, error) {
	var next *node[T]
	for removed := false; !removed; {
		sentinel, oldTail := c.headPtr.Load(), c.tail.Load()
		next = sentinel.nx.Load()
		if oldTail == sentinel {
			if next == nil {
				return *new(T), &EmptyQueueError{}
			}
			c.tail.CompareAndSwap(oldTail, next)
		} else {
			removed = c.headPtr.CompareAndSwap(sentinel, next)
		}
	}
	return next.v, nil
}

func (c *syncLinkedQ[T]) Peek() T {
	if next := c.headPtr.Load().nx.Load(); next != nil {
		return next.v
	}
	return *new(T)
}

func (c *syncLinkedQ[T]) Empty() bool {
	return c.headPtr.Load().nx.Load() == nil
}

func (c *syncLinkedQ[T]) Drain(dst []T) []T {
	for {
		v, err := c.Pop()
		if err != nil {
			return dst
		}
		dst = append(dst, v)
	}
}
