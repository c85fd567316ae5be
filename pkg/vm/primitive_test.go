package vm

import (
	"math"
	"math/big"
	"testing"

	"jsbind/pkg/errors"
)

func TestSymbolCoercions(t *testing.T) {
	s := NewSymbol("tag")
	if _, err := s.ToNumber(); !errors.IsTypeError(err) {
		t.Errorf("ToNumber(symbol) error = %v", err)
	}
	if _, err := s.ToString(); !errors.IsTypeError(err) {
		t.Errorf("ToString(symbol) error = %v", err)
	}
	if !s.ToBoolean() {
		t.Error("symbols are truthy")
	}
	desc, _ := s.GetStr("description")
	if desc.AsString() != "tag" {
		t.Errorf("description = %v", desc)
	}
	anon, _ := NewAnonymousSymbol().GetStr("description")
	if !anon.IsUndefined() {
		t.Errorf("anonymous description = %v", anon)
	}
	str, err := s.Method("toString")
	if err != nil || str.AsString() != "Symbol(tag)" {
		t.Errorf("toString() = %v, %v", str, err)
	}
	if err := s.SetStr("x", True); !errors.IsTypeError(err) {
		t.Errorf("write to symbol: error = %v", err)
	}
}

func TestWellKnownSymbols(t *testing.T) {
	it := WellKnownSymbol(SymIterator)
	if !it.SameValue(WellKnownSymbol(SymIterator)) {
		t.Error("well-known symbols must be unique per kind")
	}
	for _, name := range []string{"iterator", "Symbol.iterator"} {
		v, ok := LookupWellKnownSymbol(name)
		if !ok || !v.SameValue(it) {
			t.Errorf("LookupWellKnownSymbol(%q) = %v, %v", name, v, ok)
		}
	}
	if _, ok := LookupWellKnownSymbol("nope"); ok {
		t.Error("unknown well-known name should not resolve")
	}
	if SymToPrimitive.String() != "Symbol.toPrimitive" {
		t.Errorf("SymToPrimitive.String() = %q", SymToPrimitive.String())
	}
	if SymbolDescriptiveString(it) != "Symbol(Symbol.iterator)" {
		t.Errorf("descriptive string = %q", SymbolDescriptiveString(it))
	}
}

func TestWellKnownSymbolHandles(t *testing.T) {
	it := WellKnownSymbol(SymIterator)
	if it.b == NewSymbol("x").b {
		t.Error("well-known symbols should have their own binder")
	}
	if it.h.ref != nil || it.h.bits != uint64(SymIterator) {
		t.Errorf("handle = %+v, want the ordinal in bits", it.h)
	}
	if w, ok := it.AsWellKnown(); !ok || w != SymIterator {
		t.Errorf("AsWellKnown = %v, %v", w, ok)
	}
	if _, ok := NewSymbol("Symbol.iterator").AsWellKnown(); ok {
		t.Error("a fresh symbol is not well-known")
	}
	if it.SameValue(WellKnownSymbol(SymToPrimitive)) || it.SameValue(NewSymbol("Symbol.iterator")) {
		t.Error("well-known symbols are distinct from each other and from fresh symbols")
	}
	if it.Hash() != WellKnownSymbol(SymIterator).Hash() {
		t.Error("hash should be stable per ordinal")
	}
	if desc, _ := it.GetStr("description"); desc.AsString() != "Symbol.iterator" {
		t.Errorf("description = %v", desc)
	}
	if !NewSymbolKey(it).ToValue().SameValue(WellKnownKey(SymIterator).ToValue()) {
		t.Error("keys built from the same well-known symbol should agree")
	}
	if _, err := it.ToString(); !errors.IsTypeError(err) {
		t.Errorf("ToString: error = %v", err)
	}
	if m := map[Value]int{it: 1}; m[WellKnownSymbol(SymIterator)] != 1 {
		t.Error("well-known symbols should be identical map keys")
	}
}

func TestBigIntCoercions(t *testing.T) {
	v := NewBigInt(big.NewInt(42))
	if _, err := v.ToNumber(); !errors.IsTypeError(err) {
		t.Errorf("ToNumber(bigint) error = %v", err)
	}
	s, _ := v.ToString()
	if s != "42" {
		t.Errorf("ToString(42n) = %q", s)
	}
	hex, err := v.Method("toString", NewInt32(16))
	if err != nil || hex.AsString() != "2a" {
		t.Errorf("(42n).toString(16) = %v, %v", hex, err)
	}
}

func TestToBigInt(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{True, "1"},
		{False, "0"},
		{NewString(""), "0"},
		{NewString(" 123 "), "123"},
		{NewString("-7"), "-7"},
		{NewString("0x1f"), "31"},
		{NewString("0b11"), "3"},
		{NewString("123456789012345678901234567890"), "123456789012345678901234567890"},
		{NewBigInt(big.NewInt(-5)), "-5"},
	}
	for _, tt := range tests {
		got, err := ToBigInt(tt.in)
		if err != nil {
			t.Errorf("ToBigInt(%v): %v", tt.in, err)
			continue
		}
		if got.String() != tt.want {
			t.Errorf("ToBigInt(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, s := range []string{"1.5", "12px", "--1", "0x-1", "1_0"} {
		_, err := ToBigInt(NewString(s))
		if k := errors.KindOf(err); k != errors.KindSyntaxError {
			t.Errorf("ToBigInt(%q) error kind = %v (%v), want SyntaxError", s, k, err)
		}
	}
	for _, v := range []Value{NewInt32(1), Undefined, Null, NewSymbol("s")} {
		if _, err := ToBigInt(v); !errors.IsTypeError(err) {
			t.Errorf("ToBigInt(%v) error = %v, want TypeError", v, err)
		}
	}
}

func methodObject(valueOf, toString func() Value) *Object {
	o := NewObject(ObjectPrototype)
	if valueOf != nil {
		o.DefineMethod("valueOf", 0, func(Value, []Value) (Value, error) { return valueOf(), nil })
	}
	if toString != nil {
		o.DefineMethod("toString", 0, func(Value, []Value) (Value, error) { return toString(), nil })
	}
	return o
}

func TestOrdinaryToPrimitiveOrder(t *testing.T) {
	o := methodObject(
		func() Value { return NewInt32(1) },
		func() Value { return NewString("s") },
	)
	n, _ := o.Value().ToPrimitive(HintNumber)
	if n.AsFloat() != 1 {
		t.Errorf("number hint = %v, want valueOf result", n)
	}
	s, _ := o.Value().ToPrimitive(HintString)
	if s.AsString() != "s" {
		t.Errorf("string hint = %v, want toString result", s)
	}
	d, _ := o.Value().ToPrimitive(HintDefault)
	if d.AsString() != "s" {
		t.Errorf("default hint = %v", d)
	}
}

func TestOrdinaryToPrimitiveSkipsObjects(t *testing.T) {
	o := methodObject(
		func() Value { return NewObject(nil).Value() },
		func() Value { return NewString("fallback") },
	)
	v, err := o.Value().ToNumber()
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(v.AsFloat()) {
		t.Errorf("ToNumber via toString(\"fallback\") = %v, want NaN", v)
	}

	both := methodObject(
		func() Value { return NewObject(nil).Value() },
		func() Value { return NewObject(nil).Value() },
	)
	if _, err := both.Value().ToPrimitive(HintNumber); !errors.IsTypeError(err) {
		t.Errorf("both methods returning objects: error = %v", err)
	}
	if _, err := NewObject(nil).Value().ToString(); !errors.IsTypeError(err) {
		t.Errorf("object without conversion methods: error = %v", err)
	}
}

func TestToPrimitiveHook(t *testing.T) {
	var hints []string
	o := NewObject(ObjectPrototype)
	hook := NewNativeFunction("[Symbol.toPrimitive]", 1, func(_ Value, args []Value) (Value, error) {
		h := Arg(args, 0).AsString()
		hints = append(hints, h)
		if h == "number" {
			return NewInt32(7), nil
		}
		return NewString(h), nil
	})
	o.SetOwn(WellKnownKey(SymToPrimitive), hook.Value())

	n, _ := o.Value().ToDouble()
	s, _ := o.Value().ToString()
	d, _ := o.Value().ToPrimitive(HintDefault)
	if n != 7 || s != "string" || d.AsString() != "default" {
		t.Errorf("results = %v, %q, %v", n, s, d)
	}
	if !equalStrings(hints, []string{"number", "string", "default"}) {
		t.Errorf("hints = %v", hints)
	}

	bad := NewObject(ObjectPrototype)
	bad.SetOwn(WellKnownKey(SymToPrimitive), NewString("nope"))
	if _, err := bad.Value().ToString(); !errors.IsTypeError(err) {
		t.Errorf("non-callable hook: error = %v", err)
	}
}

func TestClassTag(t *testing.T) {
	toString := func(v Value) string {
		t.Helper()
		fn, _ := ObjectPrototype.GetStr("toString")
		res, err := fn.Call(v)
		if err != nil {
			t.Fatalf("Object.prototype.toString(%v): %v", v, err)
		}
		return res.AsString()
	}
	tagged := NewObject(ObjectPrototype)
	tagged.SetOwn(WellKnownKey(SymToStringTag), NewString("Custom"))
	boxed, _ := NewInt32(1).ToObject()
	fn := NewNativeFunction("f", 0, func(Value, []Value) (Value, error) { return Undefined, nil })

	tests := []struct {
		v    Value
		want string
	}{
		{NewObject(ObjectPrototype).Value(), "[object Object]"},
		{tagged.Value(), "[object Custom]"},
		{boxed, "[object Number]"},
		{fn.Value(), "[object Function]"},
		{Undefined, "[object Undefined]"},
		{Null, "[object Null]"},
		{True, "[object Boolean]"},
		{NewString("s"), "[object String]"},
		{NewBigInt(big.NewInt(1)), "[object BigInt]"},
	}
	for _, tt := range tests {
		if got := toString(tt.v); got != tt.want {
			t.Errorf("toString(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestNumberPrototypeToString(t *testing.T) {
	v, err := NewInt32(255).Method("toString", NewInt32(16))
	if err != nil || v.AsString() != "ff" {
		t.Errorf("(255).toString(16) = %v, %v", v, err)
	}
	for _, r := range []int32{1, 37} {
		if _, err := NewInt32(1).Method("toString", NewInt32(r)); !errors.IsRangeError(err) {
			t.Errorf("radix %d: error = %v, want RangeError", r, err)
		}
	}
	fn, _ := NumberPrototype.GetStr("toString")
	if _, err := fn.Call(NewString("1")); !errors.IsTypeError(err) {
		t.Errorf("Number.prototype.toString on a string: error = %v", err)
	}
}

func TestArrayPrototypeJoin(t *testing.T) {
	arr := NewObject(ArrayPrototype)
	arr.SetOwn(IndexKey(0), NewInt32(1))
	arr.SetOwn(IndexKey(1), Null)
	arr.SetOwn(IndexKey(2), NewString("x"))
	arr.SetOwnNonEnumerable("length", NewInt32(3))

	s, err := arr.Value().Method("join", NewString("-"))
	if err != nil || s.AsString() != "1--x" {
		t.Errorf("join(\"-\") = %v, %v", s, err)
	}
	def, _ := arr.Value().ToString()
	if def != "1,,x" {
		t.Errorf("String(arr) = %q", def)
	}
	n, err := arr.Value().Method("push", True)
	if err != nil || n.AsFloat() != 4 {
		t.Errorf("push = %v, %v", n, err)
	}
	idx, _ := arr.Value().Method("indexOf", True)
	if idx.AsFloat() != 3 {
		t.Errorf("indexOf(true) = %v", idx)
	}
}
