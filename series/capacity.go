package series

import (
	"fmt"
	"time"
)

// Capacity bounds how much history a [Window] retains.
//
// A Capacity is either time-bounded ([TimeBounded]) or count-bounded
// ([CountBounded]). The zero Capacity retains everything.
type Capacity struct {
	maxAge     time.Duration
	maxSamples int
}

// TimeBounded retains samples whose timestamp is no older than maxAge
// relative to the time the window is built.
func TimeBounded(maxAge time.Duration) Capacity {
	return Capacity{maxAge: maxAge}
}

// CountBounded retains the n most recent samples.
func CountBounded(n int) Capacity {
	return Capacity{maxSamples: n}
}

// MaxAge returns the retention age, or 0 for a count-bounded capacity.
func (c Capacity) MaxAge() time.Duration {
	return c.maxAge
}

// MaxSamples returns the retained sample count, or 0 for a time-bounded capacity.
func (c Capacity) MaxSamples() int {
	return c.maxSamples
}

// IsZero reports whether the capacity is unbounded.
func (c Capacity) IsZero() bool {
	return c.maxAge <= 0 && c.maxSamples <= 0
}

// String describes the policy, e.g. "last 168h0m0s" or "last 500 samples".
func (c Capacity) String() string {
	switch {
	case c.maxSamples > 0:
		return fmt.Sprintf("last %d samples", c.maxSamples)
	case c.maxAge > 0:
		return fmt.Sprintf("last %s", c.maxAge)
	default:
		return "unbounded"
	}
}

// apply trims sorted samples to the policy. The input is not modified.
func (c Capacity) apply(samples []Sample, now time.Time) []Sample {
	switch {
	case c.maxSamples > 0:
		if len(samples) > c.maxSamples {
			return samples[len(samples)-c.maxSamples:]
		}
	case c.maxAge > 0:
		cutoff := now.Add(-c.maxAge)
		for i, s := range samples {
			if !s.Time.Before(cutoff) {
				return samples[i:]
			}
		}
		return samples[:0]
	}
	return samples
}
