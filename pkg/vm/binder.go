package vm

import "unsafe"

// Kind is the value-kind tag reported by a binder. The number subkinds all
// report "number" through TypeOf.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindInt32
	KindInt64
	KindDouble
	KindEnum
	KindString
	KindSymbol
	KindBigInt
	KindObject
)

// String returns a human-readable name for the kind
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindEnum:
		return "enum"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindBigInt:
		return "bigint"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// IsNumber reports whether k is one of the Number subkinds.
func (k Kind) IsNumber() bool {
	return k == KindInt32 || k == KindInt64 || k == KindDouble || k == KindEnum
}

// IsPrimitive reports whether k is anything but an object.
func (k Kind) IsPrimitive() bool { return k != KindObject }

// Hint is the preferred type passed to ToPrimitive.
type Hint uint8

const (
	HintDefault Hint = iota
	HintNumber
	HintString
)

func (h Hint) String() string {
	switch h {
	case HintNumber:
		return "number"
	case HintString:
		return "string"
	default:
		return "default"
	}
}

// Handle is the fixed-width payload half of a Value: either inline scalar
// bits or an opaque reference token. It carries no type information; its
// meaning is defined entirely by the binder it is paired with.
type Handle struct {
	bits uint64
	ref  unsafe.Pointer
}

// InlineHandle builds a handle carrying only scalar bits.
func InlineHandle(bits uint64) Handle { return Handle{bits: bits} }

// RefHandle builds a handle carrying a reference token.
func RefHandle(ref unsafe.Pointer) Handle { return Handle{ref: ref} }

func (h Handle) Bits() uint64        { return h.bits }
func (h Handle) Ref() unsafe.Pointer { return h.ref }

// Coercible is the capability every binder provides: the ECMAScript type
// conversions for its representation.
type Coercible interface {
	ToBoolean(h Handle) bool
	// ToNumber returns a Number-kind Value.
	ToNumber(h Handle) (Value, error)
	ToDouble(h Handle) (float64, error)
	ToInt32(h Handle) (int32, error)
	ToInt64(h Handle) (int64, error)
	ToString(h Handle) (string, error)
	ToPrimitive(h Handle, hint Hint) (Value, error)
}

// Identity gives a binder its equality and hashing rules.
type Identity interface {
	// SameValue compares two handles that are both paired with this binder.
	SameValue(a, b Handle) bool
	Hash(h Handle) uint64
}

// Binder is the strategy object that gives a handle its semantics.
// Binders must be comparable (pointer types) so that Value is comparable.
// Comparing Values with == compares binder and handle. Heap strings with
// equal contents, or one number held as int32 and as double, are different
// map keys; only interned property names are shared. Use Hash and
// SameValueZero for content equality.
type Binder interface {
	Kind() Kind
	Coercible
	Identity
}

// PropertyBearing is implemented by binders that expose properties.
// Get reports found=false for missing keys; that is not an error.
type PropertyBearing interface {
	HasProperty(h Handle, key PropertyKey) (bool, error)
	HasOwnProperty(h Handle, key PropertyKey) (bool, error)
	Get(h Handle, key PropertyKey, receiver Value) (v Value, found bool, err error)
	Set(h Handle, key PropertyKey, v Value, receiver Value) error
	Delete(h Handle, key PropertyKey) error
	// OwnKeys returns the enumerable own string keys in property order.
	OwnKeys(h Handle) ([]PropertyKey, error)
}

// Callable is implemented by binders whose values can be called.
type Callable interface {
	Call(h Handle, this Value, args []Value) (Value, error)
}

// CallableChecker is implemented by binders whose callability depends on
// the handle (runtime objects are callable only when they carry a function).
type CallableChecker interface {
	IsCallable(h Handle) bool
}

// PropertyDefiner is implemented by binders that accept full descriptors.
// Host wrappers implement it by promoting to a runtime object.
type PropertyDefiner interface {
	DefineOwnProperty(h Handle, key PropertyKey, desc PropertyDescriptor) (bool, error)
}

// Promoter is implemented by binders that can hand out the runtime object
// that is (or backs) their property store.
type Promoter interface {
	Promote(h Handle) *Object
}

// ClassTagger lets a binder report its default class tag
// ("Array", "Date", ...) for Object.prototype.toString.
type ClassTagger interface {
	ClassTag(h Handle) string
}

// PrimitiveHolder is implemented by objects carrying an intrinsic primitive
// value ([[BooleanData]], [[NumberData]], [[StringData]], ...).
type PrimitiveHolder interface {
	PrimitiveValue(h Handle) (Value, bool)
}
