package aquaboard

import (
	"errors"
	"fmt"
	"strings"
)

// fieldConfig holds mutable state during field construction.
type fieldConfig struct {
	label    string
	unit     string
	color    string
	min, max float64
	hasRange bool
}

// FieldOption is a function that configures a [Field] during construction.
//
// Built-in options: [WithLabel], [WithUnit], [WithColor], [WithRange].
type FieldOption func(*fieldConfig) error

// WithLabel sets the label shown in charts, the table header and the legend.
//
// Returns an error if the label is blank.
func WithLabel(label string) FieldOption {
	return func(cfg *fieldConfig) error {
		if strings.TrimSpace(label) == "" {
			return errors.New("field label cannot be empty")
		}
		cfg.label = label
		return nil
	}
}

// WithUnit sets the measurement unit appended to the label, e.g. "NTU".
func WithUnit(unit string) FieldOption {
	return func(cfg *fieldConfig) error {
		cfg.unit = unit
		return nil
	}
}

// WithColor sets the chart colour. Any CSS colour string is accepted.
//
// Returns an error if the colour is blank.
func WithColor(color string) FieldOption {
	return func(cfg *fieldConfig) error {
		if strings.TrimSpace(color) == "" {
			return errors.New("field color cannot be empty")
		}
		cfg.color = color
		return nil
	}
}

// WithRange fixes the y-axis of the field's own chart to [lo, hi].
//
// Example:
//
//	ph, err := aquaboard.NewField("ph", aquaboard.WithRange(0, 14))
//
// Returns an error if lo is not below hi.
func WithRange(lo, hi float64) FieldOption {
	return func(cfg *fieldConfig) error {
		if lo >= hi {
			return fmt.Errorf("field range minimum %v must be below maximum %v", lo, hi)
		}
		cfg.min, cfg.max, cfg.hasRange = lo, hi, true
		return nil
	}
}
