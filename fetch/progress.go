package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Progress counts stage events for live status reporting. It is safe for
// concurrent use.
type Progress struct {
	extracted atomic.Int64
	lookups   atomic.Int64
	failures  atomic.Int64
	parsed    atomic.Int64
	resolved  atomic.Int64
	entries   atomic.Int64
	throttled atomic.Int64
	done      atomic.Bool

	mu     sync.Mutex
	depths map[Stage]int
	report Report
}

var _ Observer = (*Progress)(nil)

// ProgressSnapshot is a point-in-time copy of Progress.
type ProgressSnapshot struct {
	Extracted      int64         `json:"extracted"`
	Lookups        int64         `json:"lookups"`
	LookupFailures int64         `json:"lookup_failures"`
	Parsed         int64         `json:"parsed"`
	Resolved       int64         `json:"resolved"`
	Entries        int64         `json:"entries"`
	Throttled      int64         `json:"throttled"`
	QueueDepths    map[Stage]int `json:"queue_depths"`
	Done           bool          `json:"done"`
	RunID          string        `json:"run_id,omitempty"`
	ElapsedSeconds float64       `json:"elapsed_seconds,omitempty"`
}

// NewProgress returns an empty tracker.
func NewProgress() *Progress {
	return &Progress{depths: make(map[Stage]int)}
}

func (p *Progress) Extracted(Record) { p.extracted.Add(1) }

func (p *Progress) LookupDone(_ context.Context, res LookupResult, _ time.Duration) {
	p.lookups.Add(1)
	if res.Failed() {
		p.failures.Add(1)
	}
}

func (p *Progress) Parsed(res ParsedResult) {
	p.parsed.Add(1)
	if res.Identifier.IsResolved() {
		p.resolved.Add(1)
	}
}

func (p *Progress) Appended(n int) { p.entries.Add(int64(n)) }

func (p *Progress) Throttled() { p.throttled.Add(1) }

func (p *Progress) QueueDepth(stage Stage, depth int) {
	p.mu.Lock()
	p.depths[stage] = depth
	p.mu.Unlock()
}

func (p *Progress) Completed(rep Report) {
	p.mu.Lock()
	p.report = rep
	p.mu.Unlock()
	p.done.Store(true)
}

// Snapshot copies the current counters.
func (p *Progress) Snapshot() ProgressSnapshot {
	s := ProgressSnapshot{
		Extracted:      p.extracted.Load(),
		Lookups:        p.lookups.Load(),
		LookupFailures: p.failures.Load(),
		Parsed:         p.parsed.Load(),
		Resolved:       p.resolved.Load(),
		Entries:        p.entries.Load(),
		Throttled:      p.throttled.Load(),
		Done:           p.done.Load(),
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	s.QueueDepths = make(map[Stage]int, len(p.depths))
	for k, v := range p.depths {
		s.QueueDepths[k] = v
	}
	if s.Done {
		s.RunID = p.report.RunID
		s.ElapsedSeconds = p.report.Elapsed.Seconds()
	}
	return s
}
