package vm

import (
	"math"
	"testing"
)

func TestNumberToString(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{42, "42"},
		{-42, "-42"},
		{123.456, "123.456"},
		{0.1, "0.1"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-7, "1.5e-7"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e300, "1.5e+300"},
		{9007199254740993, "9007199254740992"},
	}
	for _, tt := range tests {
		if got := NumberToString(tt.in); got != tt.want {
			t.Errorf("NumberToString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStringToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{"42", 42},
		{" \t\n42\r\n ", 42},
		{" 42\uFEFF", 42},
		{"-0", math.Copysign(0, -1)},
		{"+1.5", 1.5},
		{".5", 0.5},
		{"5.", 5},
		{"1e3", 1000},
		{"1E-2", 0.01},
		{"0x1F", 31},
		{"0X1f", 31},
		{"0o17", 15},
		{"0b101", 5},
		{"0x10000000000000000", 18446744073709551616},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
		{"1e400", math.Inf(1)},
		{"infinity", math.NaN()},
		{"-0x1", math.NaN()},
		{"0x", math.NaN()},
		{"0b2", math.NaN()},
		{"1_000", math.NaN()},
		{"12px", math.NaN()},
		{"e5", math.NaN()},
		{".", math.NaN()},
		{"\u008542", math.NaN()},
	}
	for _, tt := range tests {
		if got := StringToNumber(tt.in); !floatsEqual(got, tt.want) {
			t.Errorf("StringToNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNumericStringRoundTrip(t *testing.T) {
	n, err := NewString("42").ToNumber()
	if err != nil {
		t.Fatal(err)
	}
	s, _ := n.ToString()
	if s != "42" {
		t.Errorf("toString(toNumber(\"42\")) = %q", s)
	}
	for _, in := range []string{"0.1", "1e+21", "1e-7", "123456789012", "-5.25"} {
		if got := NumberToString(StringToNumber(in)); got != in {
			t.Errorf("round trip of %q gave %q", in, got)
		}
	}
}

func TestNumberToStringRadix(t *testing.T) {
	tests := []struct {
		in    float64
		radix int
		want  string
	}{
		{255, 16, "ff"},
		{-255, 2, "-11111111"},
		{0.5, 2, "0.1"},
		{0.25, 4, "0.1"},
		{35, 36, "z"},
		{10, 10, "10"},
		{0, 2, "0"},
		{math.NaN(), 16, "NaN"},
		{math.Inf(-1), 8, "-Infinity"},
		{1 << 60, 16, "1000000000000000"},
	}
	for _, tt := range tests {
		if got := NumberToStringRadix(tt.in, tt.radix); got != tt.want {
			t.Errorf("NumberToStringRadix(%v, %d) = %q, want %q", tt.in, tt.radix, got, tt.want)
		}
	}
}

func TestInt64BeyondSafeRange(t *testing.T) {
	v := NewInt64(1<<53 + 1)
	s, _ := v.ToString()
	if s != "9007199254740992" {
		t.Errorf("ToString(2^53+1 as int64) = %q, want the double rendering", s)
	}
	small, _ := NewInt64(-12345).ToString()
	if small != "-12345" {
		t.Errorf("ToString(-12345) = %q", small)
	}
}

func TestEnumValues(t *testing.T) {
	color := NewEnumType("Color", map[string]int64{"Red": 0, "Green": 1, "Blue": 2})
	v := NewEnum(color, 1)
	if v.Kind() != KindEnum || v.TypeOf() != "number" {
		t.Errorf("enum kind = %v, typeof = %q", v.Kind(), v.TypeOf())
	}
	et, ord, ok := v.AsEnum()
	if !ok || et != color || ord != 1 {
		t.Fatalf("AsEnum = %v, %d, %v", et, ord, ok)
	}
	if name, ok := color.NameOf(ord); !ok || name != "Green" {
		t.Errorf("NameOf(1) = %q, %v", name, ok)
	}
	if o, ok := color.ValueOf("Blue"); !ok || o != 2 {
		t.Errorf("ValueOf(Blue) = %d, %v", o, ok)
	}
	if !v.SameValue(NewInt32(1)) {
		t.Error("enum value should equal its ordinal")
	}
	n, _ := v.ToNumber()
	if n.Kind() == KindEnum || n.AsFloat() != 1 {
		t.Errorf("ToNumber(enum) = %v (%v)", n, n.Kind())
	}
	if _, _, ok := NewInt32(1).AsEnum(); ok {
		t.Error("a plain number is not an enum")
	}
}
