package series

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    float64
		wantErr error
	}{
		{name: "float64", raw: 7.25, want: 7.25},
		{name: "float32", raw: float32(0.5), want: 0.5},
		{name: "int64", raw: int64(410), want: 410},
		{name: "uint8", raw: uint8(3), want: 3},
		{name: "string", raw: "7.20", want: 7.2},
		{name: "padded string", raw: "  3.5\n", want: 3.5},
		{name: "negative string", raw: "-1e2", want: -100},
		{name: "nil", raw: nil, wantErr: ErrAbsentValue},
		{name: "empty string", raw: "", wantErr: ErrUnparseable},
		{name: "text", raw: "clear", wantErr: ErrUnparseable},
		{name: "trailing text", raw: "7.2 pH", wantErr: ErrUnparseable},
		{name: "bool", raw: false, wantErr: ErrUnparseable},
		{name: "nan", raw: math.NaN(), wantErr: ErrUnparseable},
		{name: "inf string", raw: "+Inf", wantErr: ErrUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.raw)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseValue(%v) error = %v, want %v", tt.raw, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseValue(%v) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseValue(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		value Value
		want  string
	}{
		{Some(7.2), "7.20"},
		{Some(7.1), "7.10"},
		{Some(3.456), "3.46"},
		{Some(0), "0.00"},
		{Absent(), "N/A"},
	}

	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestValue_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Value{"ph": Some(7.2), "turbidez": Absent()})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `{"ph":7.2,"turbidez":null}` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded map[string]Value
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded["ph"].Equal(Some(7.2)) {
		t.Errorf("decoded ph = %v, want 7.20", decoded["ph"])
	}
	if !decoded["turbidez"].IsAbsent() {
		t.Errorf("decoded turbidez = %v, want absent", decoded["turbidez"])
	}
}

func TestValue_ZeroIsAbsent(t *testing.T) {
	var v Value
	if !v.IsAbsent() {
		t.Error("zero Value should be absent")
	}
	if Some(0).IsAbsent() {
		t.Error("Some(0) should be present")
	}
	if Some(0).Equal(Absent()) {
		t.Error("Some(0) should not equal Absent()")
	}
}
