package fetch

import (
	"bytes"
	"context"
	stderrors "errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kbukum/pmidfetch/errors"
	"github.com/kbukum/pmidfetch/pipeline"
	"github.com/kbukum/pmidfetch/resilience"
)

// runStage runs a stage loop until the test ends.
func runStage(t *testing.T, run func(context.Context) error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func recvBatch[T any](t *testing.T, link pipeline.Link[T]) pipeline.Batch[T] {
	t.Helper()
	select {
	case b := <-link:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
		return pipeline.Batch[T]{}
	}
}

func TestExtractor_ShipsTickBatchInOrder(t *testing.T) {
	out := pipeline.NewLink[Record](4)
	cfg := testConfig(CompletionEOS)
	cfg.Tick = 50 * time.Millisecond
	ex := NewExtractor(titles("Alpha", "Beta"), out, cfg, NopObserver{}, testLogger())
	runStage(t, ex.Run)

	b := recvBatch(t, out)
	want := []Record{{Seq: 1, Title: "Alpha"}, {Seq: 2, Title: "Beta"}}
	if diff := cmp.Diff(want, b.Items); diff != "" {
		t.Errorf("first batch mismatch (-want +got):\n%s", diff)
	}
	if !b.EOS {
		t.Error("expected EOS on the batch that drains an exhausted source")
	}
}

func TestExtractor_SourceError(t *testing.T) {
	boom := stderrors.New("bad markup")
	n := 0
	source := pipeline.FromFunc(func(context.Context) (Record, bool, error) {
		n++
		if n == 2 {
			return Record{}, false, boom
		}
		return Record{Title: "only"}, true, nil
	})
	out := pipeline.NewLink[Record](4)
	ex := NewExtractor(source, out, testConfig(CompletionEOS), NopObserver{}, testLogger())

	if err := ex.Run(context.Background()); err != nil {
		t.Fatalf("source failure must not fail the stage: %v", err)
	}
	if !errors.Is(ex.Err(), errors.ErrCodeSourceRead) {
		t.Errorf("expected SOURCE_READ_ERROR, got %v", ex.Err())
	}
	b := <-out
	if len(b.Items) != 1 || !b.EOS {
		t.Errorf("expected the record read before the failure plus EOS, got %+v", b)
	}
}

func TestDispatcher_RespectsRate(t *testing.T) {
	const rate = 20 // one admission every 50ms
	in := pipeline.NewLink[Record](1)
	out := pipeline.NewLink[LookupResult](16)
	lookup := &stubLookup{}
	limiter, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: rate})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(in, out, lookup, limiter, testConfig(CompletionEOS), NopObserver{}, testLogger())

	in <- pipeline.Batch[Record]{Items: []Record{{Title: "a"}, {Title: "b"}, {Title: "c"}, {Title: "d"}}, EOS: true}
	if err := d.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	starts := lookup.startTimes()
	if len(starts) != 4 {
		t.Fatalf("expected 4 lookups, got %d", len(starts))
	}
	minGap := resilience.IntervalFor(rate) - 5*time.Millisecond
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < minGap {
			t.Errorf("lookups %d and %d only %v apart", i-1, i, gap)
		}
	}

	var got []string
	for len(out) > 0 {
		b := <-out
		for _, r := range b.Items {
			got = append(got, r.Record.Title)
		}
	}
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, got); diff != "" {
		t.Errorf("dispatch order mismatch (-want +got):\n%s", diff)
	}
	if d.Issued() != 4 || d.Failures() != 0 {
		t.Errorf("issued=%d failures=%d", d.Issued(), d.Failures())
	}
}

func TestDispatcher_FailedLookupsCarryOn(t *testing.T) {
	tests := []struct {
		name string
		stub *stubLookup
		code errors.ErrorCode
	}{
		{"network failure", &stubLookup{failures: map[string]error{"x": stderrors.New("refused")}}, errors.ErrCodeLookupFailed},
		{"timeout", &stubLookup{hang: map[string]bool{"x": true}}, errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := pipeline.NewLink[Record](1)
			out := pipeline.NewLink[LookupResult](4)
			limiter, _ := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 100})
			cfg := testConfig(CompletionEOS)
			cfg.LookupTimeout = 20 * time.Millisecond
			d := NewDispatcher(in, out, tt.stub, limiter, cfg, NopObserver{}, testLogger())

			in <- pipeline.Batch[Record]{Items: []Record{{Title: "x"}}, EOS: true}
			if err := d.Run(context.Background()); err != nil {
				t.Fatal(err)
			}

			var results []LookupResult
			for len(out) > 0 {
				results = append(results, (<-out).Items...)
			}
			if len(results) != 1 {
				t.Fatalf("expected the failed record to be carried on, got %d results", len(results))
			}
			r := results[0]
			if !r.Failed() || len(r.Payload) != 0 {
				t.Errorf("expected failed result with empty payload, got %+v", r)
			}
			if !errors.Is(r.Err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, r.Err)
			}
			if d.Failures() != 1 {
				t.Errorf("expected 1 failure, got %d", d.Failures())
			}
		})
	}
}

func TestParser_Parse(t *testing.T) {
	p := NewParser(nil, pipeline.NewLink[ParsedResult](1), prefixExtractor, testConfig(CompletionEOS), NopObserver{}, testLogger())
	rec := Record{Seq: 1, Title: "t"}

	tests := []struct {
		name string
		in   LookupResult
		want Identifier
	}{
		{"single identifier", LookupResult{Record: rec, Payload: []byte("id:42")}, Resolved("42")},
		{"no identifier", LookupResult{Record: rec, Payload: []byte("none")}, Absent()},
		{"malformed", LookupResult{Record: rec, Payload: []byte("<eSearch")}, Absent()},
		{"empty payload", LookupResult{Record: rec}, Absent()},
		{"failed lookup", LookupResult{Record: rec, Payload: []byte("id:1"), Err: stderrors.New("x")}, Absent()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.in)
			if got.Record != rec {
				t.Errorf("record not preserved: %+v", got.Record)
			}
			if got.Identifier != tt.want {
				t.Errorf("got %v, want %v", got.Identifier, tt.want)
			}
		})
	}
}

func TestParser_RecoversExtractorPanic(t *testing.T) {
	panicky := ExtractorFunc(func(payload []byte) (Identifier, error) {
		_ = payload[len(payload)+1]
		return Absent(), nil
	})
	p := NewParser(nil, pipeline.NewLink[ParsedResult](1), panicky, testConfig(CompletionEOS), NopObserver{}, testLogger())
	got := p.Parse(LookupResult{Payload: []byte("abc")})
	if got.Identifier.IsResolved() {
		t.Errorf("expected absent identifier, got %v", got.Identifier)
	}
}

func TestParser_GarbageNeverEscapes(t *testing.T) {
	p := NewParser(nil, pipeline.NewLink[ParsedResult](1), prefixExtractor, testConfig(CompletionEOS), NopObserver{}, testLogger())

	valid := []byte("id:12345")
	for i := range len(valid) {
		got := p.Parse(LookupResult{Payload: valid[:i]})
		if wantResolved := i > len("id:"); got.Identifier.IsResolved() != wantResolved {
			t.Errorf("truncated %q: resolved=%v", valid[:i], got.Identifier.IsResolved())
		}
	}

	rng := rand.New(rand.NewPCG(1, 2))
	for range 500 {
		buf := make([]byte, rng.IntN(64))
		for j := range buf {
			buf[j] = byte(rng.UintN(256))
		}
		got := p.Parse(LookupResult{Payload: buf})
		if got.Identifier.IsResolved() && !bytes.HasPrefix(buf, []byte("id:")) {
			t.Fatalf("resolved identifier from garbage %q", buf)
		}
	}
}

func TestParser_ForwardsEOS(t *testing.T) {
	in := pipeline.NewLink[LookupResult](1)
	out := pipeline.NewLink[ParsedResult](4)
	p := NewParser(in, out, prefixExtractor, testConfig(CompletionEOS), NopObserver{}, testLogger())

	in <- pipeline.Batch[LookupResult]{Items: []LookupResult{{Payload: []byte("id:7")}}, EOS: true}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	b := <-out
	if !b.EOS || len(b.Items) != 1 || b.Items[0].Identifier != Resolved("7") {
		t.Errorf("unexpected batch %+v", b)
	}
}

func TestAccumulator_KeepsDuplicates(t *testing.T) {
	in := pipeline.NewLink[ParsedResult](1)
	sink := &recordingSink{}
	a := NewAccumulator(in, sink, testConfig(CompletionEOS), NopObserver{}, testLogger())

	pr := ParsedResult{Record: Record{Seq: 1, Title: "Same"}, Identifier: Resolved("9")}
	in <- pipeline.Batch[ParsedResult]{Items: []ParsedResult{pr, pr}, EOS: true}
	if err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	calls, doc, _ := sink.snapshot()
	if calls != 1 {
		t.Fatalf("expected one write, got %d", calls)
	}
	if diff := cmp.Diff([]ParsedResult{pr, pr}, doc.Entries(), cmp.AllowUnexported(Identifier{})); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestAccumulator_QuiescenceTiming(t *testing.T) {
	const (
		tick      = 200 * time.Millisecond
		threshold = 3
	)
	in := pipeline.NewLink[ParsedResult](1)
	sink := &recordingSink{}
	obs := &timedObserver{}
	cfg := testConfig(CompletionQuiescence)
	cfg.Tick = tick
	cfg.QuiescenceTicks = threshold
	a := NewAccumulator(in, sink, cfg, obs, testLogger())

	in <- pipeline.Batch[ParsedResult]{Items: []ParsedResult{{Record: Record{Title: "only"}}}}
	if err := a.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	calls, doc, wroteAt := sink.snapshot()
	if calls != 1 || doc.Len() != 1 {
		t.Fatalf("expected one write of one entry, got calls=%d entries=%d", calls, doc.Len())
	}
	idle := wroteAt.Sub(obs.lastAppend())
	earliest := threshold*tick - 20*time.Millisecond
	latest := (threshold + 1) * tick
	if idle < earliest || idle > latest {
		t.Errorf("completion fired %v after the last append, want within [%v, %v]", idle, earliest, latest)
	}
}

func TestAccumulator_ActivityResetsIdleCount(t *testing.T) {
	in := pipeline.NewLink[ParsedResult](1)
	sink := &recordingSink{}
	cfg := testConfig(CompletionQuiescence)
	cfg.QuiescenceTicks = 3
	a := NewAccumulator(in, sink, cfg, NopObserver{}, testLogger())

	a.inbox.Accept(pipeline.Batch[ParsedResult]{Items: []ParsedResult{{}}})
	steps := []struct {
		items int
		done  bool
	}{
		{1, false}, {0, false}, {0, false}, {2, false}, {0, false}, {0, false}, {0, true},
	}
	for i, s := range steps {
		if i > 0 && s.items > 0 {
			a.inbox.Accept(pipeline.Batch[ParsedResult]{Items: make([]ParsedResult, s.items)})
		}
		if got := a.onTick(); got != s.done {
			t.Fatalf("tick %d: complete=%v, want %v", i, got, s.done)
		}
	}
	if a.Document().Len() != 3 {
		t.Errorf("expected 3 entries, got %d", a.Document().Len())
	}
}

func TestQueueDepth_ReportsPendingItems(t *testing.T) {
	t.Run("extractor", func(t *testing.T) {
		obs := &depthObserver{}
		out := pipeline.NewLink[Record](4)
		cfg := testConfig(CompletionQuiescence)
		cfg.Tick = 50 * time.Millisecond
		ex := NewExtractor(titles("a", "b"), out, cfg, obs, testLogger())
		runStage(t, ex.Run)

		if diff := cmp.Diff([]int{2}, obs.firstDepths(t, StageExtractor, 1)); diff != "" {
			t.Errorf("depths mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("dispatcher", func(t *testing.T) {
		obs := &depthObserver{}
		in := pipeline.NewLink[Record](1)
		out := pipeline.NewLink[LookupResult](16)
		limiter, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{Rate: 1})
		if err != nil {
			t.Fatal(err)
		}
		d := NewDispatcher(in, out, &stubLookup{}, limiter, testConfig(CompletionQuiescence), obs, testLogger())
		in <- pipeline.Batch[Record]{Items: []Record{{Title: "a"}, {Title: "b"}, {Title: "c"}}}
		runStage(t, d.Run)

		// One lookup is admitted; its result ships on the first tick and
		// the other two keep waiting for admission.
		if diff := cmp.Diff([]int{3, 2}, obs.firstDepths(t, StageDispatcher, 2)); diff != "" {
			t.Errorf("depths mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("parser", func(t *testing.T) {
		obs := &depthObserver{}
		in := pipeline.NewLink[LookupResult](1)
		out := pipeline.NewLink[ParsedResult](4)
		p := NewParser(in, out, prefixExtractor, testConfig(CompletionQuiescence), obs, testLogger())
		in <- pipeline.Batch[LookupResult]{Items: []LookupResult{{Payload: []byte("id:1")}, {Payload: []byte("id:2")}}}
		runStage(t, p.Run)

		if diff := cmp.Diff([]int{2, 0}, obs.firstDepths(t, StageParser, 2)); diff != "" {
			t.Errorf("depths mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("accumulator", func(t *testing.T) {
		obs := &depthObserver{}
		a := NewAccumulator(pipeline.NewLink[ParsedResult](1), &recordingSink{}, testConfig(CompletionQuiescence), obs, testLogger())
		a.inbox.Accept(pipeline.Batch[ParsedResult]{Items: make([]ParsedResult, 3)})
		a.onTick()
		a.onTick()

		if diff := cmp.Diff([]int{3, 0}, obs.firstDepths(t, StageAccumulator, 2)); diff != "" {
			t.Errorf("depths mismatch (-want +got):\n%s", diff)
		}
	})
}
