package series

import (
	"errors"
	"iter"
	"slices"
	"time"
)

// PivotStats counts how the rows of one pivot were handled.
type PivotStats struct {
	// Rows is the number of rows consumed from the stream.
	Rows int `json:"rows"`

	// Kept is the number of rows stored in a sample.
	Kept int `json:"kept"`

	// MissingTime counts rows without a timestamp.
	MissingTime int `json:"missing_time"`

	// UnknownField counts rows whose field is not recognised.
	UnknownField int `json:"unknown_field"`

	// AbsentValue counts rows with a nil value.
	AbsentValue int `json:"absent_value"`

	// Unparseable counts rows whose value is not a finite number.
	Unparseable int `json:"unparseable"`
}

// Skipped returns the number of rows that did not contribute to a sample.
func (s PivotStats) Skipped() int {
	return s.MissingTime + s.UnknownField + s.AbsentValue + s.Unparseable
}

// Pivot folds a stream of rows into one [Sample] per distinct timestamp.
//
// Only rows that carry a timestamp, whose field appears in fields and whose
// value parses with [ParseValue] are kept; every other row is skipped and counted in the
// returned [PivotStats]. A timestamp yields a sample only if at least one of
// its rows was kept. Fields with no reading at a timestamp are [Absent]. When
// the same field appears twice at one timestamp, the later row wins.
//
// The result is sorted ascending by time with unique timestamps. Pivot has
// no side effects: pivoting the same rows twice yields identical samples.
// The rows sequence is consumed exactly once.
func Pivot(rows iter.Seq[Row], fields []string) ([]Sample, PivotStats) {
	known := make(map[string]struct{}, len(fields))
	for _, name := range fields {
		known[name] = struct{}{}
	}

	var stats PivotStats
	// keyed by the UTC instant, which compares equal for equal times
	byTime := make(map[time.Time]map[string]Value)

	for row := range rows {
		stats.Rows++

		if row.Time.IsZero() {
			stats.MissingTime++
			continue
		}

		if _, ok := known[row.Field]; !ok {
			stats.UnknownField++
			continue
		}

		f, err := ParseValue(row.Value)
		if err != nil {
			if errors.Is(err, ErrAbsentValue) {
				stats.AbsentValue++
			} else {
				stats.Unparseable++
			}
			continue
		}

		key := row.Time.UTC()
		values, ok := byTime[key]
		if !ok {
			values = make(map[string]Value, len(fields))
			byTime[key] = values
		}
		values[row.Field] = Some(f)
		stats.Kept++
	}

	samples := make([]Sample, 0, len(byTime))
	for key, values := range byTime {
		sample := Sample{
			Time:   key,
			Fields: make(map[string]Value, len(fields)),
		}
		for _, name := range fields {
			sample.Fields[name] = values[name]
		}
		samples = append(samples, sample)
	}
	sortByTime(samples)

	return samples, stats
}

// sortByTime sorts samples ascending by timestamp.
func sortByTime(samples []Sample) {
	slices.SortFunc(samples, func(a, b Sample) int {
		return a.Time.Compare(b.Time)
	})
}
