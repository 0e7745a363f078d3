package protocol

import (
	"encoding/json"
	"testing"
)

func TestValueMatches(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		dt    DataType
		want  bool
	}{
		{"bool matches bool", Bool(true), DataTypeBool, true},
		{"bool rejects int16", Bool(true), DataTypeInt16, false},
		{"int matches int32", Int(7), DataTypeInt32, true},
		{"int widens to float64", Int(7), DataTypeFloat64, true},
		{"float rejects int64", Float(1.5), DataTypeInt64, false},
		{"float matches float32", Float(1.5), DataTypeFloat32, true},
		{"string matches string", String("run"), DataTypeString, true},
		{"string rejects bool", String("true"), DataTypeBool, false},
		{"null matches nothing", Null(), DataTypeBool, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Matches(tt.dt); got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.dt, got, tt.want)
			}
		})
	}
}

func TestValueAsFloat(t *testing.T) {
	if f, ok := Int(42).AsFloat(); !ok || f != 42 {
		t.Errorf("Int(42).AsFloat() = %v, %v; want 42, true", f, ok)
	}
	if f, ok := Float(2.5).AsFloat(); !ok || f != 2.5 {
		t.Errorf("Float(2.5).AsFloat() = %v, %v; want 2.5, true", f, ok)
	}
	if _, ok := String("nope").AsFloat(); ok {
		t.Error("String.AsFloat() should not be ok")
	}
	if _, ok := Null().AsFloat(); ok {
		t.Error("Null.AsFloat() should not be ok")
	}
}

func TestValueUnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"null", "null", Null()},
		{"bool", "true", Bool(true)},
		{"integer", "42", Int(42)},
		{"negative integer", "-3", Int(-3)},
		{"fraction decodes as float", "1.5", Float(1.5)},
		{"exponent decodes as float", "2e3", Float(2000)},
		{"string", `"clamped"`, String("clamped")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			if err := json.Unmarshal([]byte(tt.in), &v); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.in, err)
			}
			if !v.Equal(tt.want) {
				t.Errorf("Unmarshal(%s) = %s, want %s", tt.in, v.GoString(), tt.want.GoString())
			}
		})
	}

	var v Value
	if err := json.Unmarshal([]byte(`{"value":1}`), &v); err == nil {
		t.Error("Unmarshal(object) should fail, values are scalars")
	}
}

func TestValueEqualAcrossKinds(t *testing.T) {
	if Int(1).Equal(Float(1)) {
		t.Error("Int(1) must not equal Float(1); variants are distinct")
	}
	if !Null().Equal(Null()) {
		t.Error("Null must equal Null")
	}
}
