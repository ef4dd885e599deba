package fetch

import (
	"context"
	stderrors "errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/pmidfetch/logger"
	"github.com/kbukum/pmidfetch/pipeline"
)

// stubLookup answers from fixed tables. Titles in hang block until the
// lookup context ends; unknown titles resolve to "id:<lowercased title>".
type stubLookup struct {
	payloads map[string]string
	failures map[string]error
	hang     map[string]bool

	mu     sync.Mutex
	starts []time.Time
	terms  []string
}

func (s *stubLookup) Lookup(ctx context.Context, term string) ([]byte, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.terms = append(s.terms, term)
	s.mu.Unlock()

	if s.hang[term] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := s.failures[term]; ok {
		return nil, err
	}
	if p, ok := s.payloads[term]; ok {
		return []byte(p), nil
	}
	return []byte("id:" + strings.ToLower(term)), nil
}

func (s *stubLookup) startTimes() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.starts)
}

// prefixExtractor resolves payloads of the form "id:<value>" and rejects
// anything else as malformed.
var prefixExtractor = ExtractorFunc(func(payload []byte) (Identifier, error) {
	s := string(payload)
	if s == "none" {
		return Absent(), nil
	}
	v, ok := strings.CutPrefix(s, "id:")
	if !ok {
		return Absent(), stderrors.New("malformed payload")
	}
	return Resolved(v), nil
})

// recordingSink keeps every document it is asked to write.
type recordingSink struct {
	mu    sync.Mutex
	calls int
	at    time.Time
	doc   *Document
	err   error
}

func (s *recordingSink) Write(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.at = time.Now()
	s.doc = doc
	return s.err
}

func (s *recordingSink) snapshot() (int, *Document, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls, s.doc, s.at
}

// timedObserver records when results were appended.
type timedObserver struct {
	NopObserver
	mu       sync.Mutex
	appended []time.Time
}

func (o *timedObserver) Appended(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.appended = append(o.appended, time.Now())
}

func (o *timedObserver) lastAppend() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.appended) == 0 {
		return time.Time{}
	}
	return o.appended[len(o.appended)-1]
}

func titles(names ...string) RecordSource {
	recs := make([]Record, len(names))
	for i, n := range names {
		recs[i] = Record{Title: n}
	}
	return pipeline.FromSlice(recs)
}

// slowSource yields each title after delay, honouring ctx.
func slowSource(delay time.Duration, names ...string) RecordSource {
	i := 0
	return pipeline.FromFunc(func(ctx context.Context) (Record, bool, error) {
		if i >= len(names) {
			return Record{}, false, nil
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Record{}, false, ctx.Err()
		}
		i++
		return Record{Title: names[i-1]}, true, nil
	})
}

func testConfig(mode CompletionMode) Config {
	cfg := Config{
		Rate:            1000,
		Tick:            10 * time.Millisecond,
		QuiescenceTicks: 20,
		Completion:      mode,
		LookupTimeout:   time.Second,
	}
	cfg.ApplyDefaults()
	return cfg
}

func testLogger() *logger.Logger {
	return logger.Nop()
}

// byTitle indexes document entries by record title.
func byTitle(doc *Document) map[string][]Identifier {
	m := make(map[string][]Identifier)
	for _, e := range doc.All() {
		m[e.Record.Title] = append(m[e.Record.Title], e.Identifier)
	}
	return m
}

// depthObserver records every queue depth report and throttle event.
type depthObserver struct {
	NopObserver
	mu        sync.Mutex
	depths    map[Stage][]int
	throttled int
}

func (o *depthObserver) QueueDepth(stage Stage, depth int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.depths == nil {
		o.depths = make(map[Stage][]int)
	}
	o.depths[stage] = append(o.depths[stage], depth)
}

func (o *depthObserver) Throttled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.throttled++
}

// firstDepths waits until stage has reported n depths and returns them.
func (o *depthObserver) firstDepths(t *testing.T, stage Stage, n int) []int {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		o.mu.Lock()
		got := slices.Clone(o.depths[stage])
		o.mu.Unlock()
		if len(got) >= n {
			return got[:n]
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s reported fewer than %d depths", stage, n)
	return nil
}

func (o *depthObserver) throttleCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.throttled
}
