package fetch

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
	"github.com/kbukum/pmidfetch/resilience"
)

// Dispatcher issues one remote lookup per rate-limiter admission. Lookups
// run on their own goroutines; their results rejoin the stage loop and are
// shipped downstream on the next tick.
type Dispatcher struct {
	in      pipeline.Link[Record]
	inbox   pipeline.Inbox[Record]
	out     *pipeline.Outbox[LookupResult]
	lookup  Lookup
	limiter *resilience.RateLimiter
	timeout time.Duration
	tick    time.Duration
	mode    CompletionMode
	obs     Observer
	log     *logger.Logger

	results  chan LookupResult
	admit    *time.Timer
	admitC   <-chan time.Time
	inflight int
	lookups  sync.WaitGroup

	issued   int
	failures int
}

// NewDispatcher returns a Dispatcher reading from in and feeding out.
func NewDispatcher(in pipeline.Link[Record], out pipeline.Link[LookupResult], lookup Lookup, limiter *resilience.RateLimiter, cfg Config, obs Observer, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		in:      in,
		out:     pipeline.NewOutbox(out),
		lookup:  lookup,
		limiter: limiter,
		timeout: cfg.LookupTimeout,
		tick:    cfg.Tick,
		mode:    cfg.Completion,
		obs:     obs,
		log:     log.WithComponent(string(StageDispatcher)),
		results: make(chan LookupResult, 1),
	}
}

// Run dispatches until ctx is cancelled or, in EOS mode, until upstream has
// ended and every lookup has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()
	// Lookups share ctx, so after cancellation this only waits for them
	// to unwind.
	defer d.lookups.Wait()
	defer d.disarm()

	in := d.in
	for {
		d.dispatch(ctx)

		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			d.inbox.Accept(batch)

		case <-d.admitC:
			d.admitC = nil

		case res := <-d.results:
			d.inflight--
			if res.Failed() {
				d.failures++
			}
			d.out.Push(res)

		case <-ticker.C:
			d.obs.QueueDepth(StageDispatcher, d.inbox.Len()+d.inflight+d.out.Len())
			last := d.mode == CompletionEOS && d.inbox.Exhausted() && d.inflight == 0
			var shipped int
			var err error
			if last {
				shipped, err = d.out.Close(ctx)
			} else {
				shipped, err = d.out.Flush(ctx)
			}
			if err != nil {
				return nil
			}
			if shipped > 0 || d.inbox.Len() > 0 {
				d.log.Debug("lookups progressing", logger.Fields(
					"remaining", d.inbox.Len(),
					"in_flight", d.inflight,
					logger.FieldBatchSize, shipped,
				))
			}
			if last {
				d.log.Info("dispatcher finished", logger.Fields("issued", d.issued, "failed", d.failures))
				return nil
			}
		}
	}
}

// dispatch issues at most one lookup. When the limiter refuses it arms a
// timer for the next admission instead of polling.
func (d *Dispatcher) dispatch(ctx context.Context) {
	if d.inbox.Len() == 0 || d.admitC != nil || ctx.Err() != nil {
		return
	}
	if !d.limiter.TryAdmit() {
		d.arm(d.limiter.NextAdmission())
		return
	}

	rec, _ := d.inbox.Pop()
	d.inflight++
	d.issued++
	d.lookups.Go(func() { d.perform(ctx, rec) })

	if d.inbox.Len() > 0 {
		d.arm(d.limiter.NextAdmission())
	}
}

func (d *Dispatcher) arm(wait time.Duration) {
	if d.admit == nil {
		d.admit = time.NewTimer(wait)
	} else {
		d.admit.Reset(wait)
	}
	d.admitC = d.admit.C
}

func (d *Dispatcher) disarm() {
	if d.admit != nil {
		d.admit.Stop()
	}
}

// perform runs a single lookup and hands the result back to the stage loop.
func (d *Dispatcher) perform(ctx context.Context, rec Record) {
	lookupCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	payload, err := d.lookup.Lookup(lookupCtx, rec.Title)
	elapsed := time.Since(start)

	res := LookupResult{Record: rec, Payload: payload}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		res.Payload = nil
		res.Err = classifyLookupError(lookupCtx, rec.Title, err)
		d.log.Warn("lookup failed", logger.Fields(
			logger.FieldTitle, rec.Title,
			logger.FieldError, err.Error(),
			logger.FieldDuration, elapsed.Milliseconds(),
		))
	}
	d.obs.LookupDone(ctx, res, elapsed)

	select {
	case d.results <- res:
	case <-ctx.Done():
	}
}

type timeoutError interface {
	Timeout() bool
}

func classifyLookupError(ctx context.Context, term string, err error) error {
	var te timeoutError
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || (stderrors.As(err, &te) && te.Timeout()) {
		return errors.Timeout(term, err)
	}
	return errors.LookupFailed(term, err)
}

// Issued returns the number of lookups started. Only valid after Run returns.
func (d *Dispatcher) Issued() int {
	return d.issued
}

// Failures returns the number of failed lookups. Only valid after Run returns.
func (d *Dispatcher) Failures() int {
	return d.failures
}
