package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
	"github.com/kbukum/pmidfetch/resilience"
)

// Report summarises a finished run.
type Report struct {
	RunID      string
	Completion CompletionMode
	Started    time.Time
	Elapsed    time.Duration
	// Extracted is the number of records read from the source.
	Extracted int
	// Entries is the number of entries in the written document.
	Entries  int
	Resolved int
	// LookupFailures counts lookups that produced no payload.
	LookupFailures int
	// SourceErr is the source failure that stopped the Extractor, if any.
	SourceErr error
}

// String formats the report for the operator.
func (r Report) String() string {
	return fmt.Sprintf("run %s: %d entries (%d resolved, %d lookup failures) in %.3fs",
		r.RunID, r.Entries, r.Resolved, r.LookupFailures, r.Elapsed.Seconds())
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithObserver adds an observer for stage events.
func WithObserver(obs Observer) Option {
	return func(s *Supervisor) {
		s.observers = append(s.observers, obs)
	}
}

// WithLogger sets the logger stages derive their component loggers from.
func WithLogger(log *logger.Logger) Option {
	return func(s *Supervisor) {
		s.log = log
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(s *Supervisor) {
		s.runID = id
	}
}

// Supervisor owns the four stages of one run, wires them together and
// stops them when the Accumulator reports completion.
type Supervisor struct {
	cfg       Config
	source    RecordSource
	lookup    Lookup
	extractor IdentifierExtractor
	sink      ResultSink
	limiter   *resilience.RateLimiter
	observers Observers
	log       *logger.Logger
	runID     string
}

// NewSupervisor validates cfg and returns a Supervisor for a single run.
// A non-positive rate fails here, before any stage starts.
func NewSupervisor(cfg Config, source RecordSource, lookup Lookup, extractor IdentifierExtractor, sink ResultSink, opts ...Option) (*Supervisor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		cfg:       cfg,
		source:    source,
		lookup:    lookup,
		extractor: extractor,
		sink:      sink,
		log:       logger.Get("fetch"),
	}
	for _, opt := range opts {
		opt(s)
	}
	limiter, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		Name:    string(StageDispatcher),
		Rate:    cfg.Rate,
		OnLimit: func(string) { s.observers.Throttled() },
	})
	if err != nil {
		return nil, err
	}
	s.limiter = limiter
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	return s, nil
}

// RunID returns the identifier of this run.
func (s *Supervisor) RunID() string {
	return s.runID
}

// Run starts every stage and blocks until the document is written, the
// sink fails or ctx is cancelled. Once the Accumulator completes, the other
// stages are cancelled. Lookups still in flight see the cancellation through
// their context and their results are discarded; Run returns after they
// have unwound. Report.Elapsed stops at the Accumulator's completion.
func (s *Supervisor) Run(ctx context.Context) (Report, error) {
	log := s.log.WithRunID(s.runID)
	obs := Observer(NopObserver{})
	if len(s.observers) > 0 {
		obs = s.observers
	}

	records := pipeline.NewLink[Record](s.cfg.LinkCapacity)
	lookups := pipeline.NewLink[LookupResult](s.cfg.LinkCapacity)
	parsed := pipeline.NewLink[ParsedResult](s.cfg.LinkCapacity)

	extractor := NewExtractor(s.source, records, s.cfg, obs, log)
	dispatcher := NewDispatcher(records, lookups, s.lookup, s.limiter, s.cfg, obs, log)
	parser := NewParser(lookups, parsed, s.extractor, s.cfg, obs, log)
	accumulator := NewAccumulator(parsed, s.sink, s.cfg, obs, log)

	report := Report{RunID: s.runID, Completion: s.cfg.Completion, Started: time.Now()}
	log.Info("pipeline starting", logger.Fields(
		"rate", s.cfg.Rate,
		"tick", s.cfg.Tick.String(),
		"quiescence_ticks", s.cfg.QuiescenceTicks,
		"completion", string(s.cfg.Completion),
	))

	g, gctx := errgroup.WithContext(ctx)
	stagesCtx, stopStages := context.WithCancel(gctx)
	defer stopStages()

	g.Go(func() error { return extractor.Run(stagesCtx) })
	g.Go(func() error { return dispatcher.Run(stagesCtx) })
	g.Go(func() error { return parser.Run(stagesCtx) })
	var finished time.Time
	g.Go(func() error {
		defer stopStages()
		err := accumulator.Run(gctx)
		finished = time.Now()
		return err
	})

	err := g.Wait()
	report.Elapsed = finished.Sub(report.Started)
	report.Extracted = extractor.Extracted()
	report.Entries = accumulator.Document().Len()
	report.Resolved = accumulator.Document().Resolved()
	report.LookupFailures = dispatcher.Failures()
	report.SourceErr = extractor.Err()

	if err != nil {
		log.Error("pipeline failed", logger.Fields(
			logger.FieldError, err.Error(),
			logger.FieldDuration, report.Elapsed.Milliseconds(),
		))
		return report, err
	}
	if !accumulator.Written() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		return report, errors.Internal(fmt.Errorf("stages stopped before completion"))
	}

	obs.Completed(report)
	log.Info("pipeline finished", logger.Fields(
		"entries", report.Entries,
		"resolved", report.Resolved,
		"lookup_failures", report.LookupFailures,
		"elapsed_seconds", report.Elapsed.Seconds(),
	))
	return report, nil
}
