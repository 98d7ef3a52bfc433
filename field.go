package aquaboard

import (
	"errors"
	"strings"
)

// Field describes one reading the dashboard shows.
//
// Field is immutable after creation via [NewField]. The name must match the
// field name stored in the bucket; the rest is presentation.
type Field struct {
	name     string
	label    string
	unit     string
	color    string
	min, max float64
	hasRange bool
}

// Name returns the field name as stored in the bucket.
func (f Field) Name() string {
	return f.name
}

// Label returns the display label. Defaults to the name.
func (f Field) Label() string {
	return f.label
}

// Unit returns the measurement unit, or "" if none was set.
func (f Field) Unit() string {
	return f.unit
}

// Color returns the chart colour as a CSS colour string, or "" when the
// dashboard should pick one.
func (f Field) Color() string {
	return f.color
}

// Range returns the fixed y-axis range. ok is false when the axis scales to
// the data.
func (f Field) Range() (lo, hi float64, ok bool) {
	return f.min, f.max, f.hasRange
}

// NewField creates a [Field] with the given name and options.
//
// Example:
//
//	ph, err := aquaboard.NewField("ph",
//	    aquaboard.WithLabel("pH"),
//	    aquaboard.WithRange(0, 14),
//	)
//
// Returns an error if the name is blank or an option is invalid.
func NewField(name string, opts ...FieldOption) (Field, error) {
	if strings.TrimSpace(name) == "" {
		return Field{}, errors.New("field name cannot be empty")
	}

	cfg := &fieldConfig{label: name}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return Field{}, err
		}
	}

	return Field{
		name:     name,
		label:    cfg.label,
		unit:     cfg.unit,
		color:    cfg.color,
		min:      cfg.min,
		max:      cfg.max,
		hasRange: cfg.hasRange,
	}, nil
}

// DefaultFields returns the water quality readings shown when no fields are
// configured: pH, turbidity and conductivity.
func DefaultFields() []Field {
	return []Field{
		mustField("ph", WithLabel("pH"), WithColor("rgb(75, 192, 192)"), WithRange(0, 14)),
		mustField("turbidez", WithLabel("Turbidez"), WithUnit("NTU"), WithColor("rgb(255, 99, 132)")),
		mustField("conductividad", WithLabel("Conductividad"), WithUnit("µS/cm"), WithColor("rgb(54, 162, 235)")),
	}
}

func mustField(name string, opts ...FieldOption) Field {
	f, err := NewField(name, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// palette colours fields that have none, by position.
var palette = []string{
	"rgb(75, 192, 192)",
	"rgb(255, 99, 132)",
	"rgb(54, 162, 235)",
	"rgb(255, 159, 64)",
	"rgb(153, 102, 255)",
	"rgb(255, 205, 86)",
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.name
	}
	return names
}
