package pipeline

import "context"

// Batch is the unit of hand-off between two stages: everything the
// upstream stage produced since its previous flush.
type Batch[T any] struct {
	Items []T
	// EOS marks the last batch the upstream stage will ever send.
	EOS bool
}

// Link carries batches from one stage to the next.
type Link[T any] chan Batch[T]

// NewLink creates a link buffering up to capacity batches.
func NewLink[T any](capacity int) Link[T] {
	return make(Link[T], capacity)
}

// Outbox is the sending side of a stage: a StageQueue flushed as one batch
// per tick. Not safe for concurrent use.
type Outbox[T any] struct {
	queue   StageQueue[T]
	link    Link[T]
	eosSent bool
	shipped int
}

// NewOutbox returns an outbox that flushes into link.
func NewOutbox[T any](link Link[T]) *Outbox[T] {
	return &Outbox[T]{link: link}
}

// Push queues v for the next flush.
func (o *Outbox[T]) Push(v T) {
	o.queue.Push(v)
}

// Len returns the number of items waiting for the next flush.
func (o *Outbox[T]) Len() int {
	return o.queue.Len()
}

// Shipped returns how many items have been flushed so far.
func (o *Outbox[T]) Shipped() int {
	return o.shipped
}

// Flush ships every queued item as a single batch. An empty queue sends
// nothing. It blocks until the downstream link accepts the batch or ctx
// is done.
func (o *Outbox[T]) Flush(ctx context.Context) (int, error) {
	if o.queue.Len() == 0 {
		return 0, nil
	}
	return o.send(ctx, false)
}

// Close ships any queued items together with the end-of-stream mark.
// Subsequent calls are no-ops.
func (o *Outbox[T]) Close(ctx context.Context) (int, error) {
	if o.eosSent {
		return 0, nil
	}
	return o.send(ctx, true)
}

// Closed reports whether the end-of-stream mark has been sent.
func (o *Outbox[T]) Closed() bool {
	return o.eosSent
}

func (o *Outbox[T]) send(ctx context.Context, eos bool) (int, error) {
	items := o.queue.Drain()
	select {
	case o.link <- Batch[T]{Items: items, EOS: eos}:
		o.shipped += len(items)
		if eos {
			o.eosSent = true
		}
		return len(items), nil
	case <-ctx.Done():
		// Put the batch back so the caller still owns it.
		o.queue.PushAll(items)
		return 0, ctx.Err()
	}
}

// Inbox is the receiving side of a stage. Batches are accepted whole, in
// arrival order, into a StageQueue the stage works through itself.
// Not safe for concurrent use.
type Inbox[T any] struct {
	queue    StageQueue[T]
	eos      bool
	received int
}

// Accept takes ownership of the batch's items.
func (in *Inbox[T]) Accept(b Batch[T]) {
	in.queue.PushAll(b.Items)
	in.received += len(b.Items)
	if b.EOS {
		in.eos = true
	}
}

// Pop removes the next item.
func (in *Inbox[T]) Pop() (T, bool) {
	return in.queue.Pop()
}

// Drain removes every pending item.
func (in *Inbox[T]) Drain() []T {
	return in.queue.Drain()
}

// Len returns the number of pending items.
func (in *Inbox[T]) Len() int {
	return in.queue.Len()
}

// Received returns the total number of items accepted.
func (in *Inbox[T]) Received() int {
	return in.received
}

// EOS reports whether upstream has signalled end-of-stream.
func (in *Inbox[T]) EOS() bool {
	return in.eos
}

// Exhausted reports whether upstream has signalled end-of-stream and every
// accepted item has been taken.
func (in *Inbox[T]) Exhausted() bool {
	return in.eos && in.queue.Len() == 0
}
