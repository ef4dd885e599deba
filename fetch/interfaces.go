package fetch

import (
	"context"
	"time"

	"github.com/kbukum/pmidfetch/pipeline"
)

// RecordSource yields records until exhausted. Next returns ok=false at the
// end of input; a non-nil error is fatal to the Extractor only.
type RecordSource = pipeline.Iterator[Record]

// ResultSink persists the finished document. It is called exactly once.
type ResultSink interface {
	Write(ctx context.Context, doc *Document) error
}

// SinkFunc adapts a function into a ResultSink.
type SinkFunc func(ctx context.Context, doc *Document) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, doc *Document) error { return f(ctx, doc) }

// Lookup queries the remote service for a single term and returns the raw
// response payload.
type Lookup interface {
	Lookup(ctx context.Context, term string) ([]byte, error)
}

// LookupFunc adapts a function into a Lookup.
type LookupFunc func(ctx context.Context, term string) ([]byte, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, term string) ([]byte, error) { return f(ctx, term) }

// IdentifierExtractor finds the identifier of interest in a payload. It
// returns Absent with a nil error when the payload is well-formed but has
// no match, and an error when the payload cannot be parsed.
type IdentifierExtractor interface {
	Extract(payload []byte) (Identifier, error)
}

// ExtractorFunc adapts a function into an IdentifierExtractor.
type ExtractorFunc func(payload []byte) (Identifier, error)

// Extract calls f.
func (f ExtractorFunc) Extract(payload []byte) (Identifier, error) { return f(payload) }

// Observer receives progress events from the stages. Implementations must
// be safe for concurrent use; each stage calls from its own goroutine.
//
// QueueDepth is reported once per tick, before the hand-off, and counts the
// items a stage holds that have not yet reached the next stage. Throttled
// is called each time the rate limiter refuses a dispatch.
type Observer interface {
	Extracted(rec Record)
	LookupDone(ctx context.Context, res LookupResult, elapsed time.Duration)
	Parsed(res ParsedResult)
	Appended(n int)
	QueueDepth(stage Stage, depth int)
	Throttled()
	Completed(rep Report)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Extracted(Record) {}
func (NopObserver) LookupDone(context.Context, LookupResult, time.Duration) {}
func (NopObserver) Parsed(ParsedResult) {}
func (NopObserver) Appended(int) {}
func (NopObserver) QueueDepth(Stage, int) {}
func (NopObserver) Throttled() {}
func (NopObserver) Completed(Report) {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Extracted(rec Record) {
	for _, ob := range o {
		ob.Extracted(rec)
	}
}

func (o Observers) LookupDone(ctx context.Context, res LookupResult, elapsed time.Duration) {
	for _, ob := range o {
		ob.LookupDone(ctx, res, elapsed)
	}
}

func (o Observers) Parsed(res ParsedResult) {
	for _, ob := range o {
		ob.Parsed(res)
	}
}

func (o Observers) Appended(n int) {
	for _, ob := range o {
		ob.Appended(n)
	}
}

func (o Observers) QueueDepth(stage Stage, depth int) {
	for _, ob := range o {
		ob.QueueDepth(stage, depth)
	}
}

func (o Observers) Throttled() {
	for _, ob := range o {
		ob.Throttled()
	}
}

func (o Observers) Completed(rep Report) {
	for _, ob := range o {
		ob.Completed(rep)
	}
}
