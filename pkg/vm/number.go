package vm

import (
	"math"
	"strconv"
	"unsafe"

	"jsbind/pkg/errors"
)

const (
	signBit          uint64 = 1 << 63
	canonicalNaNBits uint64 = 0x7FF8000000000000
	negativeNaNBits  uint64 = 0xFFF8000000000000
)

var (
	booleanBinderInstance = &booleanBinder{}
	int32BinderInstance   = &int32Binder{}
	int64BinderInstance   = &int64Binder{}
	doubleBinderInstance  = &doubleBinder{}
	enumBinderInstance    = &enumBinder{}
)

// sameNumber is SameValue on doubles.
func sameNumber(a, b float64) bool {
	if a != a {
		return b != b
	}
	return math.Float64bits(a) == math.Float64bits(b)
}

// numberHash hashes a double consistently with SameValueZero.
func numberHash(f float64) uint64 {
	if f == 0 {
		f = 0 // folds -0 into +0
	}
	bits := math.Float64bits(f)
	if f != f {
		bits = canonicalNaNBits
	}
	return mix64(bits)
}

// HashIdentity hashes a reference identity for binders whose values compare
// by reference.
func HashIdentity(p unsafe.Pointer) uint64 { return mix64(uint64(uintptr(p))) }

// mix64 is the murmur3 fmix64 finalizer.
func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Abs returns |x| for a Number value, clearing the sign bit on the raw
// encoding so that a negative NaN round-trips as a positive one.
func Abs(v Value) (Value, error) {
	f, err := v.ToDouble()
	if err != nil {
		return Undefined, err
	}
	return NumberFromBits(math.Float64bits(f) &^ signBit), nil
}

// Negate flips the sign bit of a Number value (unary minus).
func Negate(v Value) (Value, error) {
	if v.Kind() == KindDouble {
		return NumberFromBits(v.h.bits ^ signBit), nil
	}
	f, err := v.ToDouble()
	if err != nil {
		return Undefined, err
	}
	return NumberFromBits(math.Float64bits(f) ^ signBit), nil
}

// primitiveProto resolves a property on the intrinsic prototype of a
// primitive kind, with the primitive itself as receiver.
func primitiveProto(proto *Object, key PropertyKey, receiver Value) (Value, bool, error) {
	if proto == nil {
		return Undefined, false, nil
	}
	return proto.GetProperty(key, receiver)
}

func primitiveSetError(kind string, key PropertyKey) error {
	return errors.NewTypeError("Cannot create property '%s' on %s", key, kind)
}

func primitiveDeleteError(key PropertyKey) error {
	return errors.NewTypeError("Cannot delete property '%s' of primitive", key)
}

// --- boolean ---

type booleanBinder struct{}

func (b *booleanBinder) Kind() Kind              { return KindBoolean }
func (b *booleanBinder) ToBoolean(h Handle) bool { return h.bits != 0 }
func (b *booleanBinder) ToNumber(h Handle) (Value, error) {
	return NewInt32(int32(h.bits & 1)), nil
}
func (b *booleanBinder) ToDouble(h Handle) (float64, error) { return float64(h.bits & 1), nil }
func (b *booleanBinder) ToInt32(h Handle) (int32, error)    { return int32(h.bits & 1), nil }
func (b *booleanBinder) ToInt64(h Handle) (int64, error)    { return int64(h.bits & 1), nil }
func (b *booleanBinder) ToString(h Handle) (string, error) {
	if h.bits != 0 {
		return "true", nil
	}
	return "false", nil
}
func (b *booleanBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *booleanBinder) SameValue(x, y Handle) bool { return x.bits == y.bits }
func (b *booleanBinder) Hash(h Handle) uint64       { return 0x9e3779b97f4a7c15 ^ h.bits }

func (b *booleanBinder) HasProperty(h Handle, key PropertyKey) (bool, error) {
	return BooleanPrototype.HasPropertyKey(key), nil
}
func (b *booleanBinder) HasOwnProperty(Handle, PropertyKey) (bool, error) { return false, nil }
func (b *booleanBinder) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	return primitiveProto(BooleanPrototype, key, receiver)
}
func (b *booleanBinder) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return primitiveSetError("boolean", key)
}
func (b *booleanBinder) Delete(Handle, PropertyKey) error      { return nil }
func (b *booleanBinder) OwnKeys(Handle) ([]PropertyKey, error) { return nil, nil }

// --- shared number view ---

// numberView supplies the boxed-Number property view shared by all numeric
// binders.
type numberView struct{}

func (numberView) HasProperty(h Handle, key PropertyKey) (bool, error) {
	return NumberPrototype.HasPropertyKey(key), nil
}
func (numberView) HasOwnProperty(Handle, PropertyKey) (bool, error) { return false, nil }
func (numberView) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	return primitiveProto(NumberPrototype, key, receiver)
}
func (numberView) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return primitiveSetError("number", key)
}
func (numberView) Delete(Handle, PropertyKey) error      { return nil }
func (numberView) OwnKeys(Handle) ([]PropertyKey, error) { return nil, nil }

// --- int32 ---

type int32Binder struct{ numberView }

func int32Of(h Handle) int32 { return int32(uint32(h.bits)) }

func (b *int32Binder) Kind() Kind              { return KindInt32 }
func (b *int32Binder) ToBoolean(h Handle) bool { return int32Of(h) != 0 }
func (b *int32Binder) ToNumber(h Handle) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *int32Binder) ToDouble(h Handle) (float64, error) { return float64(int32Of(h)), nil }
func (b *int32Binder) ToInt32(h Handle) (int32, error)    { return int32Of(h), nil }
func (b *int32Binder) ToInt64(h Handle) (int64, error)    { return int64(int32Of(h)), nil }
func (b *int32Binder) ToString(h Handle) (string, error) {
	return strconv.FormatInt(int64(int32Of(h)), 10), nil
}
func (b *int32Binder) ToPrimitive(h Handle, _ Hint) (Value, error) { return Value{h: h, b: b}, nil }
func (b *int32Binder) SameValue(x, y Handle) bool                   { return uint32(x.bits) == uint32(y.bits) }
func (b *int32Binder) Hash(h Handle) uint64                         { return numberHash(float64(int32Of(h))) }

// --- int64 ---

// maxSafeInteger is 2^53 - 1; int64 payloads within ±maxSafeInteger are
// exactly representable as doubles.
const maxSafeInteger = 1<<53 - 1

type int64Binder struct{ numberView }

func (b *int64Binder) Kind() Kind              { return KindInt64 }
func (b *int64Binder) ToBoolean(h Handle) bool { return h.bits != 0 }
func (b *int64Binder) ToNumber(h Handle) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *int64Binder) ToDouble(h Handle) (float64, error) { return float64(int64(h.bits)), nil }
func (b *int64Binder) ToInt32(h Handle) (int32, error)    { return int32(uint32(h.bits)), nil }
func (b *int64Binder) ToInt64(h Handle) (int64, error)    { return int64(h.bits), nil }
func (b *int64Binder) ToString(h Handle) (string, error) {
	i := int64(h.bits)
	if i >= -maxSafeInteger && i <= maxSafeInteger {
		return strconv.FormatInt(i, 10), nil
	}
	// Beyond 2^53 the Number value is the rounded double.
	return NumberToString(float64(i)), nil
}
func (b *int64Binder) ToPrimitive(h Handle, _ Hint) (Value, error) { return Value{h: h, b: b}, nil }
func (b *int64Binder) SameValue(x, y Handle) bool {
	return sameNumber(float64(int64(x.bits)), float64(int64(y.bits)))
}
func (b *int64Binder) Hash(h Handle) uint64                         { return numberHash(float64(int64(h.bits))) }

// --- double ---

type doubleBinder struct{ numberView }

func doubleOf(h Handle) float64 { return math.Float64frombits(h.bits) }

func (b *doubleBinder) Kind() Kind { return KindDouble }
func (b *doubleBinder) ToBoolean(h Handle) bool {
	f := doubleOf(h)
	return f == f && f != 0
}
func (b *doubleBinder) ToNumber(h Handle) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *doubleBinder) ToDouble(h Handle) (float64, error) { return doubleOf(h), nil }
func (b *doubleBinder) ToInt32(h Handle) (int32, error)    { return DoubleToInt32(doubleOf(h)), nil }
func (b *doubleBinder) ToInt64(h Handle) (int64, error)    { return DoubleToInt64(doubleOf(h)), nil }
func (b *doubleBinder) ToString(h Handle) (string, error) {
	return NumberToString(doubleOf(h)), nil
}
func (b *doubleBinder) ToPrimitive(h Handle, _ Hint) (Value, error) { return Value{h: h, b: b}, nil }
func (b *doubleBinder) SameValue(x, y Handle) bool {
	return sameNumber(doubleOf(x), doubleOf(y))
}
func (b *doubleBinder) Hash(h Handle) uint64 { return numberHash(doubleOf(h)) }

// --- enum ---

// EnumType names the members of a host enumeration. Enum values behave as
// Numbers in every ECMAScript operation; the type only lets the host read
// the symbolic name back.
type EnumType struct {
	Name   string
	names  map[int64]string
	values map[string]int64
}

// NewEnumType builds an enum type from a member-name to ordinal table.
func NewEnumType(name string, members map[string]int64) *EnumType {
	et := &EnumType{
		Name:   name,
		names:  make(map[int64]string, len(members)),
		values: make(map[string]int64, len(members)),
	}
	for n, v := range members {
		et.names[v] = n
		et.values[n] = v
	}
	return et
}

// NameOf returns the member name for an ordinal.
func (et *EnumType) NameOf(ordinal int64) (string, bool) {
	n, ok := et.names[ordinal]
	return n, ok
}

// ValueOf returns the ordinal for a member name.
func (et *EnumType) ValueOf(name string) (int64, bool) {
	v, ok := et.values[name]
	return v, ok
}

// NewEnum builds an enum-backed Number value.
func NewEnum(et *EnumType, ordinal int64) Value {
	return Value{h: Handle{bits: uint64(ordinal), ref: unsafe.Pointer(et)}, b: enumBinderInstance}
}

// AsEnum returns the enum type and ordinal of an enum-backed value.
func (v Value) AsEnum() (*EnumType, int64, bool) {
	if v.b != Binder(enumBinderInstance) {
		return nil, 0, false
	}
	return (*EnumType)(v.h.ref), int64(v.h.bits), true
}

type enumBinder struct{ numberView }

func (b *enumBinder) Kind() Kind              { return KindEnum }
func (b *enumBinder) ToBoolean(h Handle) bool { return h.bits != 0 }
func (b *enumBinder) ToNumber(h Handle) (Value, error) {
	return NewInt64(int64(h.bits)), nil
}
func (b *enumBinder) ToDouble(h Handle) (float64, error) { return float64(int64(h.bits)), nil }
func (b *enumBinder) ToInt32(h Handle) (int32, error)    { return int32(uint32(h.bits)), nil }
func (b *enumBinder) ToInt64(h Handle) (int64, error)    { return int64(h.bits), nil }
func (b *enumBinder) ToString(h Handle) (string, error) {
	return int64BinderInstance.ToString(h)
}
func (b *enumBinder) ToPrimitive(h Handle, _ Hint) (Value, error) { return Value{h: h, b: b}, nil }
func (b *enumBinder) SameValue(x, y Handle) bool {
	return sameNumber(float64(int64(x.bits)), float64(int64(y.bits)))
}
func (b *enumBinder) Hash(h Handle) uint64                         { return numberHash(float64(int64(h.bits))) }
