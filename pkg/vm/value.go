package vm

import (
	"math"
	"math/big"
	"unsafe"

	"jsbind/pkg/errors"
)

// Value is an immutable (Handle, Binder) pair representing one ECMAScript
// value. It is cheap to copy and comparable; the zero Value is undefined.
type Value struct {
	h Handle
	b Binder
}

var (
	Undefined = Value{}
	Null      = Value{b: nullBinderInstance}
	True      = Value{h: Handle{bits: 1}, b: booleanBinderInstance}
	False     = Value{h: Handle{bits: 0}, b: booleanBinderInstance}
	NaN       = Value{h: Handle{bits: canonicalNaNBits}, b: doubleBinderInstance}
)

// FromBinder pairs a handle with a binder. Binder implementations outside
// this package use it to mint Values for their representation.
func FromBinder(h Handle, b Binder) Value {
	if b == Binder(undefinedBinderInstance) {
		return Undefined
	}
	return Value{h: h, b: b}
}

func NewBoolean(value bool) Value {
	if value {
		return True
	}
	return False
}

func NewInt32(value int32) Value {
	return Value{h: Handle{bits: uint64(uint32(value))}, b: int32BinderInstance}
}

func NewInt64(value int64) Value {
	return Value{h: Handle{bits: uint64(value)}, b: int64BinderInstance}
}

// NewNumber builds a double Value. Every NaN collapses to the canonical
// NaN encoding.
func NewNumber(value float64) Value {
	bits := math.Float64bits(value)
	if value != value {
		bits = canonicalNaNBits
	}
	return Value{h: Handle{bits: bits}, b: doubleBinderInstance}
}

// NumberFromBits builds a double Value from raw IEEE-754 bits, keeping the
// sign of a NaN (its payload still collapses to one of the two canonical
// encodings). Used for internal double-to-handle round trips.
func NumberFromBits(bits uint64) Value {
	if f := math.Float64frombits(bits); f != f {
		if bits&signBit != 0 {
			bits = negativeNaNBits
		} else {
			bits = canonicalNaNBits
		}
	}
	return Value{h: Handle{bits: bits}, b: doubleBinderInstance}
}

// NewString builds a string Value. Well-known property names are encoded
// inline as a table index and do not allocate.
func NewString(value string) Value {
	if idx, ok := internedNameIndex[value]; ok {
		return Value{h: Handle{bits: uint64(idx)}, b: internedStringBinderInstance}
	}
	p := new(string)
	*p = value
	return Value{h: Handle{ref: unsafe.Pointer(p)}, b: stringBinderInstance}
}

// NewBigInt builds a bigint Value holding a private copy of value.
func NewBigInt(value *big.Int) Value {
	x := new(big.Int).Set(value)
	return Value{h: Handle{ref: unsafe.Pointer(x)}, b: bigIntBinderInstance}
}

// --- Accessors ---

func (v Value) binder() Binder {
	if v.b == nil {
		return undefinedBinderInstance
	}
	return v.b
}

// Binder returns the binder paired with this value.
func (v Value) Binder() Binder { return v.binder() }

// Handle returns the payload half of this value.
func (v Value) Handle() Handle { return v.h }

// Kind returns the value-kind tag. It never allocates.
func (v Value) Kind() Kind {
	if v.b == nil {
		return KindUndefined
	}
	return v.b.Kind()
}

func (v Value) IsUndefined() bool { return v.Kind() == KindUndefined }
func (v Value) IsNull() bool      { return v.Kind() == KindNull }
func (v Value) IsNullish() bool   { k := v.Kind(); return k == KindUndefined || k == KindNull }
func (v Value) IsBoolean() bool   { return v.Kind() == KindBoolean }
func (v Value) IsNumber() bool    { return v.Kind().IsNumber() }
func (v Value) IsString() bool    { return v.Kind() == KindString }
func (v Value) IsSymbol() bool    { return v.Kind() == KindSymbol }
func (v Value) IsBigInt() bool    { return v.Kind() == KindBigInt }
func (v Value) IsObject() bool    { return v.Kind() == KindObject }

// IsCallable reports whether the value can be invoked with Call.
func (v Value) IsCallable() bool {
	if _, ok := v.b.(Callable); !ok {
		return false
	}
	if cc, ok := v.b.(CallableChecker); ok {
		return cc.IsCallable(v.h)
	}
	return true
}

// TypeOf returns the result of the typeof operator.
func (v Value) TypeOf() string {
	switch k := v.Kind(); {
	case k == KindNull:
		return "object"
	case k.IsNumber():
		return "number"
	case k == KindObject:
		if v.IsCallable() {
			return "function"
		}
		return "object"
	default:
		return k.String()
	}
}

// AsBoolean returns the payload of a boolean value.
func (v Value) AsBoolean() bool {
	if v.Kind() != KindBoolean {
		panic("vm: value is not a boolean")
	}
	return v.h.bits != 0
}

// AsString returns the contents of a string value.
func (v Value) AsString() string {
	switch v.b {
	case Binder(stringBinderInstance):
		return *(*string)(v.h.ref)
	case Binder(internedStringBinderInstance):
		return internedNames[v.h.bits]
	}
	panic("vm: value is not a string")
}

// AsBigInt returns the bigint payload. The result must not be mutated.
func (v Value) AsBigInt() *big.Int {
	if v.b != Binder(bigIntBinderInstance) {
		panic("vm: value is not a bigint")
	}
	return (*big.Int)(v.h.ref)
}

// AsObject returns the runtime object behind v, or nil when v is not
// backed by a runtime object.
func (v Value) AsObject() *Object {
	o, _ := v.b.(*Object)
	return o
}

// AsFloat returns the numeric payload of a Number-kind value.
func (v Value) AsFloat() float64 {
	switch v.Kind() {
	case KindInt32:
		return float64(int32(uint32(v.h.bits)))
	case KindInt64, KindEnum:
		return float64(int64(v.h.bits))
	case KindDouble:
		return math.Float64frombits(v.h.bits)
	}
	panic("vm: value is not a number")
}

// --- Coercions ---

func (v Value) ToBoolean() bool                   { return v.binder().ToBoolean(v.h) }
func (v Value) ToNumber() (Value, error)          { return v.binder().ToNumber(v.h) }
func (v Value) ToDouble() (float64, error)        { return v.binder().ToDouble(v.h) }
func (v Value) ToInt32() (int32, error)           { return v.binder().ToInt32(v.h) }
func (v Value) ToInt64() (int64, error)           { return v.binder().ToInt64(v.h) }
func (v Value) ToString() (string, error)         { return v.binder().ToString(v.h) }
func (v Value) ToPrimitive(h Hint) (Value, error) { return v.binder().ToPrimitive(v.h, h) }

// ToUint32 is ToInt32 reinterpreted as unsigned.
func (v Value) ToUint32() (uint32, error) {
	i, err := v.ToInt32()
	return uint32(i), err
}

// ToObject boxes primitives into wrapper objects. Objects are returned
// unchanged; null and undefined raise a TypeError.
func (v Value) ToObject() (Value, error) {
	switch v.Kind() {
	case KindUndefined, KindNull:
		return Undefined, errors.NewTypeError("Cannot convert undefined or null to object")
	case KindObject:
		return v, nil
	}
	return NewPrimitiveObject(v).Value(), nil
}

// --- Property protocol ---

// Get reads a property. Missing properties and values without a property
// view yield undefined.
func (v Value) Get(key PropertyKey) (Value, error) {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return Undefined, nil
	}
	res, _, err := pb.Get(v.h, key, v)
	return res, err
}

// GetStr is Get with a string key.
func (v Value) GetStr(name string) (Value, error) { return v.Get(NewStringKey(name)) }

// Set writes a property with v as the receiver.
func (v Value) Set(key PropertyKey, val Value) error {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return errors.NewTypeError("Cannot create property '%s' on %s", key, v.TypeOf())
	}
	return pb.Set(v.h, key, val, v)
}

// SetStr is Set with a string key.
func (v Value) SetStr(name string, val Value) error { return v.Set(NewStringKey(name), val) }

func (v Value) Has(key PropertyKey) (bool, error) {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return false, nil
	}
	return pb.HasProperty(v.h, key)
}

func (v Value) HasOwn(key PropertyKey) (bool, error) {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return false, nil
	}
	return pb.HasOwnProperty(v.h, key)
}

func (v Value) Delete(key PropertyKey) error {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return errors.NewTypeError("Cannot delete property '%s' of %s", key, v.TypeOf())
	}
	return pb.Delete(v.h, key)
}

// OwnKeys returns the enumerable own string keys of v.
func (v Value) OwnKeys() ([]PropertyKey, error) {
	pb, ok := v.binder().(PropertyBearing)
	if !ok {
		return nil, nil
	}
	return pb.OwnKeys(v.h)
}

// DefineOwnProperty defines a property from a full descriptor.
func (v Value) DefineOwnProperty(key PropertyKey, desc PropertyDescriptor) (bool, error) {
	pd, ok := v.binder().(PropertyDefiner)
	if !ok {
		return false, errors.NewTypeError("Cannot define property '%s' on %s", key, v.TypeOf())
	}
	return pd.DefineOwnProperty(v.h, key, desc)
}

// Call invokes v with the given this value.
func (v Value) Call(this Value, args ...Value) (Value, error) {
	if !v.IsCallable() {
		return Undefined, errors.NewTypeError("%s is not a function", v.describe())
	}
	return v.b.(Callable).Call(v.h, this, args)
}

// Method reads the named property of v and calls it with v as this.
func (v Value) Method(name string, args ...Value) (Value, error) {
	fn, err := v.GetStr(name)
	if err != nil {
		return Undefined, err
	}
	if !fn.IsCallable() {
		return Undefined, errors.NewTypeError("%s.%s is not a function", v.describe(), name)
	}
	return fn.b.(Callable).Call(fn.h, v, args)
}

// --- Equality ---

// SameValue implements the SameValue algorithm: NaN equals NaN, +0 and -0
// differ, objects and symbols compare by identity.
func (v Value) SameValue(w Value) bool {
	vb, wb := v.binder(), w.binder()
	if vb == wb {
		return vb.SameValue(v.h, w.h)
	}
	vk, wk := vb.Kind(), wb.Kind()
	switch {
	case vk.IsNumber() && wk.IsNumber():
		return sameNumber(v.AsFloat(), w.AsFloat())
	case vk == KindString && wk == KindString:
		return v.AsString() == w.AsString()
	}
	return false
}

// SameValueZero is SameValue except that +0 and -0 are equal.
func (v Value) SameValueZero(w Value) bool {
	if v.IsNumber() && w.IsNumber() {
		a, b := v.AsFloat(), w.AsFloat()
		return a == b || (a != a && b != b)
	}
	return v.SameValue(w)
}

// StrictEquals implements ===: no coercion, NaN !== NaN, +0 === -0.
func (v Value) StrictEquals(w Value) bool {
	if v.IsNumber() && w.IsNumber() {
		return v.AsFloat() == w.AsFloat()
	}
	return v.SameValue(w)
}

// Hash returns a hash consistent with SameValueZero.
func (v Value) Hash() uint64 { return v.binder().Hash(v.h) }

// String renders the value for diagnostics. It never fails.
func (v Value) String() string {
	switch v.Kind() {
	case KindSymbol:
		return SymbolDescriptiveString(v)
	case KindObject:
		tag, err := ClassTag(v)
		if err != nil {
			tag = "Object"
		}
		return "[object " + tag + "]"
	}
	s, err := v.ToString()
	if err != nil {
		return "<" + v.TypeOf() + ">"
	}
	return s
}

// describe is the short form used in error messages.
func (v Value) describe() string {
	switch v.Kind() {
	case KindString:
		return "\"" + v.AsString() + "\""
	case KindObject:
		if v.IsCallable() {
			return "function"
		}
		return "object"
	}
	return v.String()
}
