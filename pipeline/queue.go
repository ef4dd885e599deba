package pipeline

// StageQueue is an unbounded FIFO owned by a single stage goroutine. It is
// deliberately unsynchronized: only its owner touches it, and items leave
// it only through Pop or Drain.
type StageQueue[T any] struct {
	items []T
	head  int
}

// Push appends v to the tail.
func (q *StageQueue[T]) Push(v T) {
	q.items = append(q.items, v)
}

// PushAll appends vs to the tail, preserving their order.
func (q *StageQueue[T]) PushAll(vs []T) {
	q.items = append(q.items, vs...)
}

// Pop removes and returns the head. ok is false when the queue is empty.
func (q *StageQueue[T]) Pop() (v T, ok bool) {
	if q.head >= len(q.items) {
		return v, false
	}
	v = q.items[q.head]
	var zero T
	q.items[q.head] = zero
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return v, true
}

// Len returns the number of queued items.
func (q *StageQueue[T]) Len() int {
	return len(q.items) - q.head
}

// Drain removes and returns every queued item in FIFO order. The returned
// slice is no longer referenced by the queue.
func (q *StageQueue[T]) Drain() []T {
	n := q.Len()
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	copy(out, q.items[q.head:])
	clear(q.items)
	q.items = q.items[:0]
	q.head = 0
	return out
}
