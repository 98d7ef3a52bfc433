package series

import (
	"encoding/json"
	"time"
)

// Window is an immutable, time-ordered history of samples.
//
// Samples are strictly increasing by timestamp. A Window is built by
// [NewWindow], [EmptyWindow] or [Merge] and never changes afterwards; the
// poller publishes a new Window on every successful fetch instead of
// mutating the previous one.
type Window struct {
	fields  []string
	samples []Sample
	display Display
}

// EmptyWindow returns a window with no samples for the given fields.
func EmptyWindow(fields []string, display Display) Window {
	return Window{
		fields:  append([]string(nil), fields...),
		display: display,
	}
}

// NewWindow builds a window from samples in any order. Samples sharing a
// timestamp collapse to the last one given.
func NewWindow(fields []string, samples []Sample, display Display) Window {
	return Window{
		fields:  append([]string(nil), fields...),
		samples: dedupe(samples),
		display: display,
	}
}

// Merge combines the previous window with freshly pivoted samples.
//
// A fresh sample replaces a previous sample with the same timestamp. The
// union is sorted by time and trimmed to capacity relative to now. prev is
// left untouched.
func Merge(prev Window, fresh []Sample, capacity Capacity, now time.Time) Window {
	all := make([]Sample, 0, len(prev.samples)+len(fresh))
	all = append(all, prev.samples...)
	all = append(all, fresh...)

	return Window{
		fields:  append([]string(nil), prev.fields...),
		samples: capacity.apply(dedupe(all), now),
		display: prev.display,
	}
}

// dedupe sorts samples by time and keeps the last sample for each timestamp.
// The input slice is not modified.
func dedupe(samples []Sample) []Sample {
	if len(samples) == 0 {
		return nil
	}

	// index of the winning sample per timestamp, later entries win
	last := make(map[time.Time]int, len(samples))
	for i, s := range samples {
		last[s.Time.UTC()] = i
	}

	out := make([]Sample, 0, len(last))
	for i, s := range samples {
		if last[s.Time.UTC()] == i {
			out = append(out, s)
		}
	}
	sortByTime(out)
	return out
}

// Fields returns a copy of the recognised field names, in display order.
func (w Window) Fields() []string {
	return append([]string(nil), w.fields...)
}

// Len returns the number of samples.
func (w Window) Len() int {
	return len(w.samples)
}

// IsEmpty reports whether the window holds no samples.
func (w Window) IsEmpty() bool {
	return len(w.samples) == 0
}

// Display returns the formatting used by the derived views.
func (w Window) Display() Display {
	return w.display
}

// Samples returns a deep copy of the samples, oldest first.
func (w Window) Samples() []Sample {
	out := make([]Sample, len(w.samples))
	for i, s := range w.samples {
		out[i] = s.clone()
	}
	return out
}

// Latest returns a copy of the most recent sample.
func (w Window) Latest() (Sample, bool) {
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[len(w.samples)-1].clone(), true
}

// Span returns the timestamps of the oldest and newest samples.
func (w Window) Span() (from, to time.Time, ok bool) {
	if len(w.samples) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return w.samples[0].Time, w.samples[len(w.samples)-1].Time, true
}

// windowJSON is the wire form of a Window.
type windowJSON struct {
	Fields  []string `json:"fields"`
	Samples []Sample `json:"samples"`
}

// MarshalJSON implements json.Marshaler.
func (w Window) MarshalJSON() ([]byte, error) {
	fields := w.fields
	if fields == nil {
		fields = []string{}
	}
	samples := w.samples
	if samples == nil {
		samples = []Sample{}
	}
	return json.Marshal(windowJSON{Fields: fields, Samples: samples})
}
