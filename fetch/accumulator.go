package fetch

import (
	"context"
	"time"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
)

// Accumulator appends parsed results to the output document and decides
// when the run is complete. The document is written exactly once.
type Accumulator struct {
	in         pipeline.Link[ParsedResult]
	inbox      pipeline.Inbox[ParsedResult]
	doc        *Document
	sink       ResultSink
	quiescence *pipeline.Quiescence
	tick       time.Duration
	mode       CompletionMode
	obs        Observer
	log        *logger.Logger

	written bool
}

// NewAccumulator returns an Accumulator reading from in and writing to sink.
func NewAccumulator(in pipeline.Link[ParsedResult], sink ResultSink, cfg Config, obs Observer, log *logger.Logger) *Accumulator {
	return &Accumulator{
		in:         in,
		doc:        NewDocument(),
		sink:       sink,
		quiescence: pipeline.NewQuiescence(cfg.QuiescenceTicks),
		tick:       cfg.Tick,
		mode:       cfg.Completion,
		obs:        obs,
		log:        log.WithComponent(string(StageAccumulator)),
	}
}

// Run accumulates until the run completes and the document has been
// written. It returns nil without writing if ctx is cancelled first, and a
// SINK_WRITE_ERROR if the sink fails.
func (a *Accumulator) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()

	in := a.in
	for {
		select {
		case <-ctx.Done():
			return nil

		case batch, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			a.inbox.Accept(batch)

		case <-ticker.C:
			if a.onTick() {
				return a.complete(ctx)
			}
		}
	}
}

// onTick moves everything received since the previous tick into the
// document and reports whether the run is complete.
func (a *Accumulator) onTick() bool {
	a.obs.QueueDepth(StageAccumulator, a.inbox.Len())
	appended := a.inbox.Drain()
	a.doc.Append(appended...)
	if len(appended) > 0 {
		a.obs.Appended(len(appended))
	}

	quiet := a.quiescence.Observe(len(appended))
	if len(appended) > 0 {
		a.log.Debug("results appended", logger.Fields(
			logger.FieldBatchSize, len(appended),
			"entries", a.doc.Len(),
		))
	} else if a.mode == CompletionQuiescence {
		a.log.Debug("idle tick", logger.Fields(
			logger.FieldIdleTicks, a.quiescence.Idle(),
			"threshold", a.quiescence.Threshold(),
		))
	}

	if a.mode == CompletionEOS {
		return a.inbox.Exhausted()
	}
	return quiet
}

func (a *Accumulator) complete(ctx context.Context) error {
	if a.written {
		return nil
	}
	a.written = true

	a.log.Info("pipeline complete, writing document", logger.Fields(
		"entries", a.doc.Len(),
		"resolved", a.doc.Resolved(),
		"completion", string(a.mode),
	))
	if err := a.sink.Write(ctx, a.doc); err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return err
		}
		return errors.SinkWrite("sink", err)
	}
	return nil
}

// Document returns the accumulated document. Only valid after Run returns.
func (a *Accumulator) Document() *Document {
	return a.doc
}

// Written reports whether the sink has been invoked.
func (a *Accumulator) Written() bool {
	return a.written
}
