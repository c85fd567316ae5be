package vm

import (
	"math/big"
	"strings"

	"github.com/zeebo/xxh3"

	"jsbind/pkg/errors"
)

var bigIntBinderInstance = &bigIntBinder{}

type bigIntBinder struct{}

func bigOf(h Handle) *big.Int { return (*big.Int)(h.ref) }

func errBigIntToNumber() error {
	return errors.NewTypeError("Cannot convert a BigInt value to a number")
}

func (b *bigIntBinder) Kind() Kind              { return KindBigInt }
func (b *bigIntBinder) ToBoolean(h Handle) bool { return bigOf(h).Sign() != 0 }
func (b *bigIntBinder) ToNumber(h Handle) (Value, error) {
	return Undefined, errBigIntToNumber()
}
func (b *bigIntBinder) ToDouble(h Handle) (float64, error) { return 0, errBigIntToNumber() }
func (b *bigIntBinder) ToInt32(h Handle) (int32, error)    { return 0, errBigIntToNumber() }
func (b *bigIntBinder) ToInt64(h Handle) (int64, error)    { return 0, errBigIntToNumber() }
func (b *bigIntBinder) ToString(h Handle) (string, error)  { return bigOf(h).String(), nil }
func (b *bigIntBinder) ToPrimitive(h Handle, _ Hint) (Value, error) {
	return Value{h: h, b: b}, nil
}
func (b *bigIntBinder) SameValue(x, y Handle) bool { return bigOf(x).Cmp(bigOf(y)) == 0 }
func (b *bigIntBinder) Hash(h Handle) uint64       { return xxh3.Hash(bigOf(h).Append(nil, 16)) }

func (b *bigIntBinder) HasProperty(h Handle, key PropertyKey) (bool, error) {
	return BigIntPrototype.HasPropertyKey(key), nil
}
func (b *bigIntBinder) HasOwnProperty(Handle, PropertyKey) (bool, error) { return false, nil }
func (b *bigIntBinder) Get(h Handle, key PropertyKey, receiver Value) (Value, bool, error) {
	return primitiveProto(BigIntPrototype, key, receiver)
}
func (b *bigIntBinder) Set(h Handle, key PropertyKey, _ Value, _ Value) error {
	return primitiveSetError("bigint", key)
}
func (b *bigIntBinder) Delete(Handle, PropertyKey) error      { return nil }
func (b *bigIntBinder) OwnKeys(Handle) ([]PropertyKey, error) { return nil, nil }

// ToBigInt implements the ToBigInt abstract operation. Numbers are rejected
// (use BigInt(n) semantics at the call site instead).
func ToBigInt(v Value) (*big.Int, error) {
	prim, err := v.ToPrimitive(HintNumber)
	if err != nil {
		return nil, err
	}
	switch prim.Kind() {
	case KindBigInt:
		return prim.AsBigInt(), nil
	case KindBoolean:
		if prim.AsBoolean() {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case KindString:
		if bi, ok := StringToBigInt(prim.AsString()); ok {
			return bi, nil
		}
		return nil, errors.NewSyntaxError("Cannot convert %s to a BigInt", prim.AsString())
	}
	return nil, errors.NewTypeError("Cannot convert %s to a BigInt", prim.String())
}

// StringToBigInt parses a StringIntegerLiteral (decimal with optional sign,
// or 0x/0o/0b prefixed). The empty string is 0n.
func StringToBigInt(s string) (*big.Int, bool) {
	str := strings.TrimFunc(s, isJSWhitespace)
	if str == "" {
		return new(big.Int), true
	}
	base := 10
	if len(str) > 2 && str[0] == '0' {
		switch str[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 10 {
			str = str[2:]
		}
	}
	if base == 10 {
		digits := strings.TrimLeft(str, "+-")
		if len(str)-len(digits) > 1 || digits == "" {
			return nil, false
		}
	} else if str[0] == '+' || str[0] == '-' {
		return nil, false
	}
	if strings.ContainsRune(str, '_') {
		return nil, false
	}
	bi, ok := new(big.Int).SetString(str, base)
	return bi, ok
}
