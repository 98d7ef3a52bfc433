package series

import (
	"time"
)

// Row is one raw reading as reported by a time-series store: a single field
// of a single instant. Value is left untyped; [Pivot] parses it.
type Row struct {
	Time  time.Time
	Field string
	Value any
}

// Sample is every recognised field's reading at one instant.
//
// Fields holds an entry for each recognised field; fields with no reading
// at this instant are [Absent]. Samples inside a [Window] are shared between
// snapshots and must be treated as read-only; use [Window.Samples] to get a
// copy that is safe to modify.
type Sample struct {
	Time   time.Time        `json:"time"`
	Fields map[string]Value `json:"values"`
}

// Value returns the reading for field, or an absent Value if the field is
// not part of the sample.
func (s Sample) Value(field string) Value {
	return s.Fields[field]
}

// clone returns a deep copy of the sample.
func (s Sample) clone() Sample {
	fields := make(map[string]Value, len(s.Fields))
	for k, v := range s.Fields {
		fields[k] = v
	}
	return Sample{Time: s.Time, Fields: fields}
}
