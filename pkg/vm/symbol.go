package vm

import (
	"unsafe"

	"jsbind/pkg/errors"
)

// Symbol is the payload of a symbol value. Each NewSymbol call yields a
// distinct identity regardless of description.
type Symbol struct {
	description string
	hasDesc     bool
}

// WellKnown enumerates the well-known symbols.
type WellKnown uint8

const (
	SymAsyncIterator WellKnown = iota
	SymHasInstance
	SymIsConcatSpreadable
	SymIterator
	SymMatch
	SymMatchAll
	SymReplace
	SymSearch
	SymSpecies
	SymSplit
	SymToPrimitive
	SymToStringTag
	SymUnscopables
	wellKnownCount
)

var wellKnownNames = [wellKnownCount]string{
	"asyncIterator", "hasInstance", "isConcatSpreadable", "iterator",
	"match", "matchAll", "replace", "search", "species", "split",
	"toPrimitive", "toStringTag", "unscopables",
}

var wellKnownSymbols = func() (t [wellKnownCount]*Symbol) {
	for i, n := range wellKnownNames {
		t[i] = &Symbol{description: "Symbol." + n, hasDesc: true}
	}
	return t
}()

var (
	symbolBinderInstance          = &symbolBinder{}
	wellKnownSymbolBinderInstance = &wellKnownSymbolBinder{}
)

func (w WellKnown) String() string {
	if w < wellKnownCount {
		return "Symbol." + wellKnownNames[w]
	}
	return "Symbol.unknown"
}

// NewSymbol creates a fresh symbol with the given description.
func NewSymbol(description string) Value {
	return symbolValue(&Symbol{description: description, hasDesc: true})
}

// NewAnonymousSymbol creates a fresh symbol whose description is undefined.
func NewAnonymousSymbol() Value {
	return symbolValue(&Symbol{})
}

func symbolValue(s *Symbol) Value {
	return Value{h: Handle{ref: unsafe.Pointer(s)}, b: symbolBinderInstance}
}

// WellKnownSymbol returns the shared value for a well-known symbol. Its
// handle carries the ordinal rather than a pointer.
func WellKnownSymbol(w WellKnown) Value {
	if w >= wellKnownCount {
		panic("vm: unknown well-known symbol")
	}
	return Value{h: Handle{bits: uint64(w)}, b: wellKnownSymbolBinderInstance}
}

// AsWellKnown reports which well-known symbol v is, if any.
func (v Value) AsWellKnown() (WellKnown, bool) {
	if v.b != Binder(wellKnownSymbolBinderInstance) {
		return 0, false
	}
	return WellKnown(v.h.bits), true
}

// LookupWellKnownSymbol finds a well-known symbol by its description
// ("Symbol.iterator") or its bare name ("iterator").
func LookupWellKnownSymbol(name string) (Value, bool) {
	for i, n := range wellKnownNames {
		if name == n || name == "Symbol."+n {
			return WellKnownSymbol(WellKnown(i)), true
		}
	}
	return Undefined, false
}

// AsSymbol returns the symbol payload of v.
func (v Value) AsSymbol() *Symbol {
	switch v.b {
	case Binder(symbolBinderInstance):
		return (*Symbol)(v.h.ref)
	case Binder(wellKnownSymbolBinderInstance):
		return wellKnownSymbols[v.h.bits]
	}
	panic("vm: value is not a symbol")
}

// Description returns the symbol description and whether it is defined.
func (s *Symbol) Description() (string, bool) { return s.description, s.hasDesc }

// SymbolDescriptiveString renders "Symbol(desc)".
func SymbolDescriptiveString(v Value) string {
	return "Symbol(" + v.AsSymbol().description + ")"
}

type symbolBinder struct{}

func (b *symbolBinder) Kind() Kind              { return KindSymbol }
func (b *symbolBinder) ToBoolean(h Handle) bool { return true }
func (b *symbolBinder) ToNumber(h Handle) (Value, error) {
	return Undefined, errSymbolToNumber()
}
func (b *symbolBinder) ToDouble(h Handle) (float64, error) { return 0, errSymbolToNumber() }
func (b *symbolBinder) ToInt32(h Handle) (int32, error)    { return 0, errSymbolToNumber() }
func (b *symbolBinder) ToInt64(h Handle) (int64, error)    { return 0, errSymbolToNumber() }
func (b *symbolBinder) ToString(h Handle) (string, error) {
	return "", errors.NewTypeError("Cannot convert a Symbol value to a string")
}
func (b *symbolBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *symbolBinder) SameValue(x, y Handle) bool { return x.ref == y.ref }
func (b *symbolBinder) Hash(h Handle) uint64       { return HashIdentity(h.ref) }

func errSymbolToNumber() error {
	return errors.NewTypeError("Cannot convert a Symbol value to a number")
}

func (b *symbolBinder) HasProperty(h Handle, key PropertyKey) (bool, error) {
	if key.IsString() && key.Name() == "description" {
		return true, nil
	}
	return SymbolPrototype.HasPropertyKey(key), nil
}
func (b *symbolBinder) HasOwnProperty(Handle, PropertyKey) (bool, error) { return false, nil }
func (b *symbolBinder) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	return symbolGet((*Symbol)(h.ref), key, receiver)
}

func symbolGet(s *Symbol, key PropertyKey, receiver Value) (Value, bool, error) {
	if key.IsString() && key.Name() == "description" {
		if !s.hasDesc {
			return Undefined, true, nil
		}
		return NewString(s.description), true, nil
	}
	return primitiveProto(SymbolPrototype, key, receiver)
}
func (b *symbolBinder) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return primitiveSetError("symbol", key)
}
func (b *symbolBinder) Delete(Handle, PropertyKey) error      { return nil }
func (b *symbolBinder) OwnKeys(Handle) ([]PropertyKey, error) { return nil, nil }

// wellKnownSymbolBinder resolves the ordinal in the handle bits through the
// shared well-known table. Coercions and property access match ordinary
// symbols.
type wellKnownSymbolBinder struct{ symbolBinder }

func (b *wellKnownSymbolBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *wellKnownSymbolBinder) SameValue(x, y Handle) bool { return x.bits == y.bits }
func (b *wellKnownSymbolBinder) Hash(h Handle) uint64 {
	return HashIdentity(unsafe.Pointer(wellKnownSymbols[h.bits]))
}
func (b *wellKnownSymbolBinder) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	return symbolGet(wellKnownSymbols[h.bits], key, receiver)
}
