package Queues

type Queue[T any] interface {
	Push(item T)
	Pop() (T, error)
	// Peek returns the zero value when the queue is empty.
	Peek() T
	Empty() bool
	// Drain pops every item in FIFO order, appending to dst.
	Drain(dst []T) []T
}

type ArrayQueue[T any] interface {
	Queue[T]
	Shrink()
	Clear()
	Size() uint
	resize(newLen uint)
}

type EmptyQueueError struct {
}

func (e *EmptyQueueError) Error() string {
	return "Queue is Empty: cannot Pop."
}
