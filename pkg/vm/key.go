package vm

import "strconv"

type KeyKind uint8

const (
	KeyKindString KeyKind = iota
	KeyKindSymbol
)

// PropertyKey represents a property key which can be a string or a symbol.
// PropertyKey is comparable and can be used directly as a map key: symbol
// identity is the identity of the symbol Value.
type PropertyKey struct {
	kind KeyKind
	name string // for string keys
	sym  Value  // for symbol keys
}

// NewStringKey constructs a PropertyKey for string-named properties.
func NewStringKey(name string) PropertyKey {
	return PropertyKey{kind: KeyKindString, name: name}
}

// NewSymbolKey constructs a PropertyKey for symbol-named properties.
func NewSymbolKey(sym Value) PropertyKey {
	if !sym.IsSymbol() {
		panic("vm: NewSymbolKey called with a non-symbol value")
	}
	return PropertyKey{kind: KeyKindSymbol, sym: sym}
}

// WellKnownKey is a shortcut for NewSymbolKey(WellKnownSymbol(w)).
func WellKnownKey(w WellKnown) PropertyKey {
	return PropertyKey{kind: KeyKindSymbol, sym: WellKnownSymbol(w)}
}

// IndexKey builds the canonical string key for an array index.
func IndexKey(i int) PropertyKey {
	return PropertyKey{kind: KeyKindString, name: strconv.Itoa(i)}
}

func (k PropertyKey) IsString() bool { return k.kind == KeyKindString }
func (k PropertyKey) IsSymbol() bool { return k.kind == KeyKindSymbol }

// Name returns the string name of a string key ("" for symbols).
func (k PropertyKey) Name() string { return k.name }

// Symbol returns the symbol Value of a symbol key (Undefined for strings).
func (k PropertyKey) Symbol() Value { return k.sym }

// ToValue converts the key back into a string or symbol Value.
func (k PropertyKey) ToValue() Value {
	if k.kind == KeyKindSymbol {
		return k.sym
	}
	return NewString(k.name)
}

// String returns a debug name for the key.
func (k PropertyKey) String() string {
	if k.kind == KeyKindSymbol {
		return k.sym.String()
	}
	return k.name
}

// ArrayIndex reports whether the key is a canonical array index
// (a decimal integer in [0, 2^32-2] without leading zeros).
func (k PropertyKey) ArrayIndex() (uint32, bool) {
	if k.kind != KeyKindString {
		return 0, false
	}
	return parseArrayIndex(k.name)
}

func parseArrayIndex(s string) (uint32, bool) {
	n := len(s)
	if n == 0 || n > 10 {
		return 0, false
	}
	if s[0] == '0' {
		return 0, n == 1
	}
	var v uint64
	for i := 0; i < n; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + uint64(c-'0')
	}
	if v >= 4294967295 {
		return 0, false
	}
	return uint32(v), true
}

// ToPropertyKey converts an arbitrary value to a property key
// (ToPrimitive with string hint, then symbols stay symbols).
func ToPropertyKey(v Value) (PropertyKey, error) {
	switch v.Kind() {
	case KindString:
		return NewStringKey(v.AsString()), nil
	case KindSymbol:
		return PropertyKey{kind: KeyKindSymbol, sym: v}, nil
	}
	prim, err := v.ToPrimitive(HintString)
	if err != nil {
		return PropertyKey{}, err
	}
	if prim.IsSymbol() {
		return PropertyKey{kind: KeyKindSymbol, sym: prim}, nil
	}
	s, err := prim.ToString()
	if err != nil {
		return PropertyKey{}, err
	}
	return NewStringKey(s), nil
}
