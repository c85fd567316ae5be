package vm

import (
	"math"
	"math/big"
	"testing"

	"jsbind/pkg/errors"
)

func floatsEqual(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b && math.Signbit(a) == math.Signbit(b)
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected a panic", name)
		}
	}()
	fn()
}

func TestZeroValueIsUndefined(t *testing.T) {
	var v Value
	if !v.IsUndefined() {
		t.Errorf("zero Value kind = %v, want undefined", v.Kind())
	}
	if v != Undefined {
		t.Error("zero Value should equal Undefined")
	}
	if v.TypeOf() != "undefined" {
		t.Errorf("typeof zero Value = %q", v.TypeOf())
	}
	if FromBinder(InlineHandle(0), undefinedBinderInstance) != Undefined {
		t.Error("FromBinder with the undefined binder should yield Undefined")
	}
}

func TestTypeOf(t *testing.T) {
	fn := NewNativeFunction("f", 0, func(Value, []Value) (Value, error) { return Undefined, nil })
	tests := []struct {
		v    Value
		want string
	}{
		{Undefined, "undefined"},
		{Null, "object"},
		{True, "boolean"},
		{NewInt32(1), "number"},
		{NewInt64(1 << 40), "number"},
		{NewNumber(1.5), "number"},
		{NewString("x"), "string"},
		{NewString("length"), "string"},
		{NewSymbol("s"), "symbol"},
		{NewBigInt(big.NewInt(1)), "bigint"},
		{NewObject(ObjectPrototype).Value(), "object"},
		{fn.Value(), "function"},
	}
	for _, tt := range tests {
		if got := tt.v.TypeOf(); got != tt.want {
			t.Errorf("typeof %v = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestToBooleanTable(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want bool
	}{
		{"undefined", Undefined, false},
		{"null", Null, false},
		{"false", False, false},
		{"true", True, true},
		{"0", NewInt32(0), false},
		{"-0", NewNumber(math.Copysign(0, -1)), false},
		{"NaN", NaN, false},
		{"1", NewNumber(1), true},
		{"int64 0", NewInt64(0), false},
		{"empty string", NewString(""), false},
		{"\"0\"", NewString("0"), true},
		{"\"false\"", NewString("false"), true},
		{"symbol", NewSymbol(""), true},
		{"0n", NewBigInt(big.NewInt(0)), false},
		{"1n", NewBigInt(big.NewInt(1)), true},
		{"{}", NewObject(ObjectPrototype).Value(), true},
	}
	for _, tt := range tests {
		if got := tt.v.ToBoolean(); got != tt.want {
			t.Errorf("ToBoolean(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestToInt32Wraparound(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{4294967296.0, 0},
		{4294967297.0, 1},
		{2147483648.0, -2147483648},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{-1.5, -1},
		{1.9, 1},
		{-4294967295.0, 1},
		{math.Copysign(0, -1), 0},
	}
	for _, tt := range tests {
		got, err := NewNumber(tt.in).ToInt32()
		if err != nil {
			t.Fatalf("ToInt32(%v): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ToInt32(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}

	u, err := NewNumber(-1).ToUint32()
	if err != nil || u != 4294967295 {
		t.Errorf("ToUint32(-1) = %d, %v", u, err)
	}
	i, _ := NewNumber(18446744073709551616.0 + 4096).ToInt64()
	if i != 4096 {
		t.Errorf("ToInt64(2^64+4096) = %d, want 4096", i)
	}
}

func TestNaNCanonicalization(t *testing.T) {
	payload := math.Float64frombits(0x7FF0000000000123)
	v := NewNumber(payload)
	if v.Handle().Bits() != canonicalNaNBits {
		t.Errorf("NewNumber(NaN payload) bits = %#x", v.Handle().Bits())
	}

	neg := NumberFromBits(0xFFF0000000000456)
	if neg.Handle().Bits() != negativeNaNBits {
		t.Errorf("NumberFromBits(negative NaN) bits = %#x, want %#x", neg.Handle().Bits(), negativeNaNBits)
	}
	if !math.Signbit(neg.AsFloat()) {
		t.Error("negative NaN lost its sign")
	}

	abs, err := Abs(neg)
	if err != nil {
		t.Fatal(err)
	}
	if abs.Handle().Bits() != canonicalNaNBits {
		t.Errorf("Abs(-NaN) bits = %#x, want canonical NaN", abs.Handle().Bits())
	}
	back, _ := Negate(abs)
	if back.Handle().Bits() != negativeNaNBits {
		t.Errorf("Negate(NaN) bits = %#x, want negative NaN", back.Handle().Bits())
	}
	if !neg.SameValue(NaN) {
		t.Error("negative NaN should be SameValue to NaN")
	}
}

func TestAbsAndNegate(t *testing.T) {
	v, _ := Abs(NewInt32(-5))
	if v.AsFloat() != 5 {
		t.Errorf("Abs(-5) = %v", v)
	}
	z, _ := Negate(NewInt32(0))
	if !math.Signbit(z.AsFloat()) {
		t.Error("Negate(0) should be -0")
	}
	if _, err := Abs(NewSymbol("x")); !errors.IsTypeError(err) {
		t.Errorf("Abs(symbol) error = %v", err)
	}
}

func TestEquality(t *testing.T) {
	negZero := NewNumber(math.Copysign(0, -1))
	obj := NewObject(ObjectPrototype).Value()
	sym := NewSymbol("s")
	big53 := NewEnumType("Big", map[string]int64{"Top": 1<<53 + 1})

	tests := []struct {
		name                string
		a, b                Value
		same, sameZero, eqq bool
	}{
		{"int32 vs double", NewInt32(3), NewNumber(3), true, true, true},
		{"int64 vs int32", NewInt64(7), NewInt32(7), true, true, true},
		{"+0 vs -0", NewInt32(0), negZero, false, true, true},
		{"NaN vs NaN", NaN, NewNumber(math.NaN()), true, true, false},
		{"interned vs heap", NewString("length"), NewString("len" + "gth"), true, true, true},
		{"strings differ", NewString("a"), NewString("b"), false, false, false},
		{"same object", obj, obj, true, true, true},
		{"distinct objects", obj, NewObject(ObjectPrototype).Value(), false, false, false},
		{"same symbol", sym, sym, true, true, true},
		{"same description", sym, NewSymbol("s"), false, false, false},
		{"null vs undefined", Null, Undefined, false, false, false},
		{"string vs number", NewString("1"), NewInt32(1), false, false, false},
		{"bigint by value", NewBigInt(big.NewInt(9)), NewBigInt(big.NewInt(9)), true, true, true},
		{"int64 rounding to 2^53", NewInt64(1<<53 + 1), NewInt64(1 << 53), true, true, true},
		{"int64 vs double past 2^53", NewInt64(1<<53 + 1), NewNumber(1 << 53), true, true, true},
		{"enum rounding to 2^53", NewEnum(big53, 1<<53+1), NewEnum(big53, 1<<53), true, true, true},
		{"int64 far apart", NewInt64(1<<60), NewInt64(1<<60 + 1024), false, false, false},
	}
	for _, tt := range tests {
		if got := tt.a.SameValue(tt.b); got != tt.same {
			t.Errorf("%s: SameValue = %v, want %v", tt.name, got, tt.same)
		}
		if got := tt.a.SameValueZero(tt.b); got != tt.sameZero {
			t.Errorf("%s: SameValueZero = %v, want %v", tt.name, got, tt.sameZero)
		}
		if got := tt.a.StrictEquals(tt.b); got != tt.eqq {
			t.Errorf("%s: StrictEquals = %v, want %v", tt.name, got, tt.eqq)
		}
	}
}

func TestHashConsistentWithSameValueZero(t *testing.T) {
	pairs := [][2]Value{
		{NewInt32(42), NewNumber(42)},
		{NewInt64(42), NewInt32(42)},
		{NewInt32(0), NewNumber(math.Copysign(0, -1))},
		{NaN, NumberFromBits(negativeNaNBits)},
		{NewString("name"), NewString(string([]byte("name")))},
		{NewString("some longer text"), NewString("some longer " + "text")},
	}
	for _, p := range pairs {
		if !p[0].SameValueZero(p[1]) {
			t.Fatalf("%v and %v should be SameValueZero", p[0], p[1])
		}
		if p[0].Hash() != p[1].Hash() {
			t.Errorf("Hash(%v) != Hash(%v)", p[0], p[1])
		}
	}
}

func TestValuesAsMapKeys(t *testing.T) {
	sym := NewSymbol("k")
	m := map[Value]int{True: 1, Null: 2, sym: 3, NewString("length"): 4}
	if m[True] != 1 || m[Null] != 2 || m[sym] != 3 {
		t.Error("map lookup by Value failed")
	}
	if m[NewString("length")] != 4 {
		t.Error("interned strings should be identical map keys")
	}
	if _, ok := m[NewString("some key")]; ok {
		t.Error("heap strings are distinct map keys")
	}
}

func TestAsAccessorsPanicOnWrongKind(t *testing.T) {
	expectPanic(t, "AsBoolean", func() { NewInt32(1).AsBoolean() })
	expectPanic(t, "AsString", func() { True.AsString() })
	expectPanic(t, "AsBigInt", func() { NewString("1").AsBigInt() })
	expectPanic(t, "AsFloat", func() { NewString("1").AsFloat() })
}

func TestToObject(t *testing.T) {
	if _, err := Undefined.ToObject(); !errors.IsTypeError(err) {
		t.Errorf("ToObject(undefined) error = %v", err)
	}
	if _, err := Null.ToObject(); !errors.IsTypeError(err) {
		t.Errorf("ToObject(null) error = %v", err)
	}
	boxed, err := NewString("hi").ToObject()
	if err != nil {
		t.Fatal(err)
	}
	tag, _ := ClassTag(boxed)
	if tag != "String" {
		t.Errorf("class tag of boxed string = %q", tag)
	}
	n, _ := boxed.GetStr("length")
	if n.AsFloat() != 2 {
		t.Errorf("boxed string length = %v", n)
	}
	obj := NewObject(nil).Value()
	same, _ := obj.ToObject()
	if same != obj {
		t.Error("ToObject should return objects unchanged")
	}
}

func TestCallNonCallable(t *testing.T) {
	for _, v := range []Value{Undefined, Null, NewInt32(1), NewString("f"), NewObject(ObjectPrototype).Value()} {
		if _, err := v.Call(Undefined); !errors.IsTypeError(err) {
			t.Errorf("Call on %v: error = %v, want TypeError", v, err)
		}
	}
}

func TestPropertyAccessOnNullish(t *testing.T) {
	key := NewStringKey("x")
	for _, v := range []Value{Undefined, Null} {
		got, err := v.Get(key)
		if err != nil || !got.IsUndefined() {
			t.Errorf("Get on %v = %v, %v", v, got, err)
		}
		if err := v.Set(key, True); !errors.IsTypeError(err) {
			t.Errorf("Set on %v: error = %v, want TypeError", v, err)
		}
		if err := v.Delete(key); !errors.IsTypeError(err) {
			t.Errorf("Delete on %v: error = %v, want TypeError", v, err)
		}
	}
}
