package series

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// absentText is how a missing reading is rendered in tables.
const absentText = "N/A"

var (
	// ErrAbsentValue is returned by [ParseValue] for a nil raw value.
	ErrAbsentValue = errors.New("value is absent")

	// ErrUnparseable is returned by [ParseValue] when a raw value cannot be
	// read as a finite number.
	ErrUnparseable = errors.New("value is not a finite number")
)

// Value is a single reading that is either a number or absent.
//
// The zero Value is absent. Absent values are never coerced to 0: they
// marshal to JSON null and render as "N/A".
type Value struct {
	v  float64
	ok bool
}

// Some returns a present Value holding f.
func Some(f float64) Value {
	return Value{v: f, ok: true}
}

// Absent returns a Value with no reading.
func Absent() Value {
	return Value{}
}

// Float returns the reading and whether it is present.
func (v Value) Float() (float64, bool) {
	return v.v, v.ok
}

// IsAbsent reports whether the value holds no reading.
func (v Value) IsAbsent() bool {
	return !v.ok
}

// Equal reports whether two values are both absent or hold the same number.
func (v Value) Equal(o Value) bool {
	if v.ok != o.ok {
		return false
	}
	return !v.ok || v.v == o.v
}

// String formats the reading with exactly two decimal places, or "N/A".
func (v Value) String() string {
	if !v.ok {
		return absentText
	}
	return strconv.FormatFloat(v.v, 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler. Absent values encode as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.ok {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(v.v, 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("series: invalid value %s: %w", data, err)
	}
	*v = Some(f)
	return nil
}

// ParseValue converts a raw value reported by a store into a float64.
//
// Numeric Go types are accepted directly; strings are trimmed and parsed
// with strconv.ParseFloat. nil yields [ErrAbsentValue]; anything else,
// including NaN and infinities, yields [ErrUnparseable].
func ParseValue(raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, ErrAbsentValue
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int8:
		f = float64(v)
	case int16:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint8:
		f = float64(v)
	case uint16:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrUnparseable, v)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrUnparseable, raw)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrUnparseable, f)
	}
	return f, nil
}
