// Package resilience provides the admission control that keeps remote
// lookups under a fixed requests-per-second ceiling.
//
// RateLimiter admits at most one unit of work per interval T = 1s / rate.
// Unlike a token bucket it grants no burst credit: a caller that stays idle
// for several intervals still gets exactly one admission, then waits a full
// interval for the next. Elapsed time is measured with the monotonic clock
// reading carried by time.Now, so wall-clock adjustments do not affect it.
//
//	rl, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{Name: "esearch", Rate: 44})
//	if rl.TryAdmit() {
//	    // issue one request
//	} else {
//	    timer := time.NewTimer(rl.NextAdmission())
//	    ...
//	}
package resilience
