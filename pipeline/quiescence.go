package pipeline

// Quiescence infers completion from inactivity: it counts consecutive
// ticks on which no work was observed and trips once the count reaches
// the threshold. Any activity resets the count.
//
// The inference is only as good as the threshold. If every upstream stage
// stalls for a full window while work is still pending, Quiescence trips
// early; pipelines that cannot tolerate that should complete on EOS.
type Quiescence struct {
	threshold int
	idle      int
}

// NewQuiescence returns a detector tripping after threshold idle ticks.
// Thresholds below one are treated as one.
func NewQuiescence(threshold int) *Quiescence {
	if threshold < 1 {
		threshold = 1
	}
	return &Quiescence{threshold: threshold}
}

// Observe records one tick on which active units of work were seen and
// reports whether the pipeline is now considered quiescent.
func (q *Quiescence) Observe(active int) bool {
	if active > 0 {
		q.idle = 0
		return false
	}
	q.idle++
	return q.idle >= q.threshold
}

// Idle returns the current count of consecutive idle ticks.
func (q *Quiescence) Idle() int {
	return q.idle
}

// Threshold returns the configured number of idle ticks.
func (q *Quiescence) Threshold() int {
	return q.threshold
}
