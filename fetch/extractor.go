package fetch

import (
	"context"
	"time"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
)

// Extractor pulls records from the source and ships them downstream once
// per tick, in source order.
type Extractor struct {
	source RecordSource
	out    *pipeline.Outbox[Record]
	tick   time.Duration
	mode   CompletionMode
	obs    Observer
	log    *logger.Logger

	records int
	err     error
}

// NewExtractor returns an Extractor feeding out.
func NewExtractor(source RecordSource, out pipeline.Link[Record], cfg Config, obs Observer, log *logger.Logger) *Extractor {
	return &Extractor{
		source: source,
		out:    pipeline.NewOutbox(out),
		tick:   cfg.Tick,
		mode:   cfg.Completion,
		obs:    obs,
		log:    log.WithComponent(string(StageExtractor)),
	}
}

// Run reads the source to exhaustion. A read failure stops the Extractor
// but is not returned: downstream stages keep draining what was already
// extracted. Err reports it after Run returns.
func (e *Extractor) Run(ctx context.Context) error {
	records := make(chan Record)
	failed := make(chan error, 1)
	go e.read(ctx, records, failed)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	exhausted := false
	for {
		select {
		case <-ctx.Done():
			return nil

		case rec, ok := <-records:
			if !ok {
				exhausted = true
				records = nil
				select {
				case e.err = <-failed:
				default:
				}
				continue
			}
			e.records++
			e.out.Push(rec)
			e.obs.Extracted(rec)

		case <-ticker.C:
			pending := e.out.Len()
			e.obs.QueueDepth(StageExtractor, pending)
			if err := e.ship(ctx, exhausted); err != nil {
				return nil
			}
			if pending > 0 {
				e.log.Debug("records shipped", logger.Fields(
					logger.FieldBatchSize, pending,
					"extracted", e.records,
				))
			}
			if exhausted {
				e.log.Info("extractor finished", logger.Fields("extracted", e.records))
				return nil
			}
		}
	}
}

// ship flushes the tick's batch. In EOS mode the final batch carries the
// end-of-stream mark.
func (e *Extractor) ship(ctx context.Context, last bool) error {
	var err error
	if last && e.mode == CompletionEOS {
		_, err = e.out.Close(ctx)
	} else {
		_, err = e.out.Flush(ctx)
	}
	return err
}

// read pulls from the source on its own goroutine so a slow source never
// delays the tick. A failure is posted on failed before records is closed.
func (e *Extractor) read(ctx context.Context, records chan<- Record, failed chan<- error) {
	defer close(records)

	seq := 0
	err := pipeline.ForEach(ctx, e.source, func(ctx context.Context, rec Record) error {
		seq++
		rec.Seq = seq
		select {
		case records <- rec:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err == nil || ctx.Err() != nil {
		return
	}
	failed <- errors.SourceRead(err).WithDetail("records_read", seq)
	e.log.Error("record source failed, extractor stopping", logger.Fields(
		logger.FieldError, err.Error(),
		"records_read", seq,
	))
}

// Extracted returns the number of records shipped downstream. Only valid
// after Run returns.
func (e *Extractor) Extracted() int {
	return e.records
}

// Err returns the source failure, if any. Only valid after Run returns.
func (e *Extractor) Err() error {
	return e.err
}
